package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	requestsrepo "fieldops_backend/internal/requests/repository"
	"fieldops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Quote is the database model for a quote header.
type Quote struct {
	ID               uuid.UUID  `db:"id"`
	RequestID        *uuid.UUID `db:"request_id"`
	QuoteNumber      string     `db:"quote_number"`
	TotalCents       int64      `db:"total_cents"`
	Notes            *string    `db:"notes"`
	SentAt           *time.Time `db:"sent_at"`
	ValidUntil       *time.Time `db:"valid_until"`
	ClientApprovedAt *time.Time `db:"client_approved_at"`
	LostReason       *string    `db:"lost_reason"`
	ApprovalStatus   string     `db:"approval_status"`
	ArchivedAt       *time.Time `db:"archived_at"`
	ConvertedToJobID *uuid.UUID `db:"converted_to_job_id"`
	Status           string     `db:"status"`
	StatusChangedAt  time.Time  `db:"status_changed_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// Facts returns the derivation inputs for this row.
func (q *Quote) Facts() domain.QuoteFacts {
	return domain.QuoteFacts{
		SentAt:           q.SentAt,
		ValidUntil:       q.ValidUntil,
		ClientApprovedAt: q.ClientApprovedAt,
		LostReason:       q.LostReason,
		ApprovalStatus:   q.ApprovalStatus,
		ArchivedAt:       q.ArchivedAt,
		ConvertedToJobID: q.ConvertedToJobID,
	}
}

// CreateParams contains the facts for a new quote.
type CreateParams struct {
	RequestID  *uuid.UUID
	TotalCents int64
	ValidUntil *time.Time
	Notes      *string
}

// ListParams contains parameters for listing quotes.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ── Repository ────────────────────────────────────────────────────────────────

const quoteNotFoundMsg = "quote not found"

const quoteColumns = `
	id, request_id, quote_number, total_cents, notes,
	sent_at, valid_until, client_approved_at, lost_reason, approval_status,
	archived_at, converted_to_job_id,
	status, status_changed_at, created_at, updated_at`

// Repository provides database operations for quotes.
type Repository struct {
	pool     *pgxpool.Pool
	gate     *engine.Gate
	derive   *domain.Deriver
	requests *requestsrepo.Repository
}

// New creates a new quotes repository. The requests repository is needed for
// the conversion cascade into the upstream service request.
func New(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver, requests *requestsrepo.Repository) *Repository {
	return &Repository{pool: pool, gate: gate, derive: derive, requests: requests}
}

// NextQuoteNumber generates the next sequential quote number.
func (r *Repository) NextQuoteNumber(ctx context.Context) (string, error) {
	var nextNum int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('quote_number_seq')`).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate quote number: %w", err)
	}
	return fmt.Sprintf("QUO-%d-%04d", time.Now().Year(), nextNum), nil
}

// Create inserts a quote and, when an upstream request is referenced, runs
// the conversion cascade in the same transaction: the quote insert and the
// upstream pointer assignment commit or roll back together.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Quote, *engine.Transition, error) {
	number, err := r.NextQuoteNumber(ctx)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	quote := &Quote{
		ID:              uuid.New(),
		RequestID:       params.RequestID,
		QuoteNumber:     number,
		TotalCents:      params.TotalCents,
		Notes:           params.Notes,
		ValidUntil:      params.ValidUntil,
		ApprovalStatus:  domain.ApprovalDraft,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	quote.Status = r.derive.Quote(quote.Facts(), now)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO quotes (
			id, request_id, quote_number, total_cents, notes,
			sent_at, valid_until, client_approved_at, lost_reason, approval_status,
			archived_at, converted_to_job_id,
			status, status_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		quote.ID, quote.RequestID, quote.QuoteNumber, quote.TotalCents, quote.Notes,
		quote.SentAt, quote.ValidUntil, quote.ClientApprovedAt, quote.LostReason, quote.ApprovalStatus,
		quote.ArchivedAt, quote.ConvertedToJobID,
		quote.Status, quote.StatusChangedAt, quote.CreatedAt, quote.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert quote: %w", err)
	}

	var upstream *engine.Transition
	if params.RequestID != nil {
		upstream, err = r.requests.LinkQuote(ctx, tx, *params.RequestID, quote.ID, now)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return quote, upstream, nil
}

// GetByID retrieves a quote by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quote, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+quoteColumns+` FROM quotes WHERE id = $1`, id)
	return scanQuote(row)
}

// List retrieves quotes, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Quote, int, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM quotes
		WHERE ($1::text IS NULL OR status = $1)`, statusParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count quotes: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT`+quoteColumns+`
		FROM quotes
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, statusParam, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *quote)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate quotes: %w", err)
	}
	return items, total, nil
}

// Send marks the quote as sent to the client.
func (r *Repository) Send(ctx context.Context, id uuid.UUID, validUntil *time.Time, actor *uuid.UUID) (*Quote, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(q *Quote) error {
		if q.ArchivedAt != nil {
			return apperr.Conflict("quote is archived")
		}
		if q.SentAt != nil {
			return apperr.Conflict("quote has already been sent")
		}
		now := time.Now()
		q.SentAt = &now
		if validUntil != nil {
			q.ValidUntil = validUntil
		}
		return nil
	})
}

// SetApproval moves the internal approval state.
func (r *Repository) SetApproval(ctx context.Context, id uuid.UUID, state string, actor *uuid.UUID) (*Quote, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(q *Quote) error {
		if q.ArchivedAt != nil {
			return apperr.Conflict("quote is archived")
		}
		if !domain.IsKnownApprovalState(state) {
			return apperr.Validation("unknown approval state")
		}
		q.ApprovalStatus = state
		return nil
	})
}

// ClientApprove records the client's acceptance.
func (r *Repository) ClientApprove(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*Quote, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(q *Quote) error {
		if q.ArchivedAt != nil {
			return apperr.Conflict("quote is archived")
		}
		if q.ConvertedToJobID != nil {
			return apperr.Conflict("quote has already been converted")
		}
		if q.ClientApprovedAt != nil {
			return apperr.Conflict("quote has already been approved")
		}
		now := time.Now()
		q.ClientApprovedAt = &now
		return nil
	})
}

// MarkLost records why the quote was lost.
func (r *Repository) MarkLost(ctx context.Context, id uuid.UUID, reason string, actor *uuid.UUID) (*Quote, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(q *Quote) error {
		if q.ArchivedAt != nil {
			return apperr.Conflict("quote is archived")
		}
		if q.ConvertedToJobID != nil {
			return apperr.Conflict("quote has already been converted")
		}
		q.LostReason = &reason
		return nil
	})
}

// Archive terminates the quote.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*Quote, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(q *Quote) error {
		if q.ArchivedAt != nil {
			return apperr.Conflict("quote is already archived")
		}
		now := time.Now()
		q.ArchivedAt = &now
		return nil
	})
}

// ── Link write path ───────────────────────────────────────────────────────────

// LinkJob assigns the converted-to-job pointer inside the downstream job's
// creation transaction. First-writer-wins; an already-set pointer is a
// silent no-op.
func (r *Repository) LinkJob(ctx context.Context, tx pgx.Tx, quoteID, jobID uuid.UUID, now time.Time) (*engine.Transition, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE quotes SET converted_to_job_id = $2, updated_at = $3
		WHERE id = $1 AND converted_to_job_id IS NULL`,
		quoteID, jobID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to link job to quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.rederiveTx(ctx, tx, quoteID, now, nil)
}

// ── Time-based refresh ────────────────────────────────────────────────────────

// EntityType identifies this sweeper in refresh reports.
func (r *Repository) EntityType() string { return domain.EntityQuote }

// Candidates returns sent quotes, whose status can decay to follow_up.
func (r *Repository) Candidates(ctx context.Context, _ time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM quotes
		WHERE status = $1
		ORDER BY status_changed_at ASC
		LIMIT $2`,
		domain.QuoteStatusSent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote candidates: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

// Reevaluate forces one row back through the derivation gate.
func (r *Repository) Reevaluate(ctx context.Context, id uuid.UUID, now time.Time) (*engine.Transition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tr, err := r.rederiveTx(ctx, tx, id, now, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tr, nil
}

// ── Internals ─────────────────────────────────────────────────────────────────

func (r *Repository) mutate(ctx context.Context, id uuid.UUID, actor *uuid.UUID, apply func(*Quote) error) (*Quote, *engine.Transition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	quote, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := apply(quote); err != nil {
		return nil, nil, err
	}

	tr, err := r.finishTx(ctx, tx, quote, time.Now(), actor)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return quote, tr, nil
}

func (r *Repository) rederiveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	quote, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return r.finishTx(ctx, tx, quote, now, actor)
}

func (r *Repository) finishTx(ctx context.Context, tx pgx.Tx, quote *Quote, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	prev := quote.Status
	quote.Status = r.derive.Quote(quote.Facts(), now)
	if quote.Status != prev {
		quote.StatusChangedAt = now
	}
	quote.UpdatedAt = now

	_, err := tx.Exec(ctx, `
		UPDATE quotes SET
			total_cents = $2, notes = $3,
			sent_at = $4, valid_until = $5, client_approved_at = $6,
			lost_reason = $7, approval_status = $8, archived_at = $9,
			status = $10, status_changed_at = $11, updated_at = $12
		WHERE id = $1`,
		quote.ID, quote.TotalCents, quote.Notes,
		quote.SentAt, quote.ValidUntil, quote.ClientApprovedAt,
		quote.LostReason, quote.ApprovalStatus, quote.ArchivedAt,
		quote.Status, quote.StatusChangedAt, quote.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}

	return r.gate.Commit(ctx, tx, engine.CommitParams{
		EntityType: domain.EntityQuote,
		EntityID:   quote.ID,
		From:       prev,
		To:         quote.Status,
		ChangedAt:  now,
		ChangedBy:  actor,
	})
}

func (r *Repository) getForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Quote, error) {
	row := tx.QueryRow(ctx, `SELECT`+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id)
	return scanQuote(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.RequestID, &q.QuoteNumber, &q.TotalCents, &q.Notes,
		&q.SentAt, &q.ValidUntil, &q.ClientApprovedAt, &q.LostReason, &q.ApprovalStatus,
		&q.ArchivedAt, &q.ConvertedToJobID,
		&q.Status, &q.StatusChangedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quoteNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan quote: %w", err)
	}
	return &q, nil
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}
	return ids, nil
}
