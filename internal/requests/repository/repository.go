package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// ServiceRequest is the database model for an intake request.
type ServiceRequest struct {
	ID                    uuid.UUID  `db:"id"`
	ContactName           string     `db:"contact_name"`
	Summary               *string    `db:"summary"`
	AssessmentScheduledAt *time.Time `db:"assessment_scheduled_at"`
	AssessmentCompletedAt *time.Time `db:"assessment_completed_at"`
	ArchivedAt            *time.Time `db:"archived_at"`
	ConvertedToQuoteID    *uuid.UUID `db:"converted_to_quote_id"`
	ConvertedToJobID      *uuid.UUID `db:"converted_to_job_id"`
	Status                string     `db:"status"`
	StatusChangedAt       time.Time  `db:"status_changed_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// Facts returns the derivation inputs for this row.
func (sr *ServiceRequest) Facts() domain.RequestFacts {
	return domain.RequestFacts{
		AssessmentScheduledAt: sr.AssessmentScheduledAt,
		AssessmentCompletedAt: sr.AssessmentCompletedAt,
		ArchivedAt:            sr.ArchivedAt,
		ConvertedToQuoteID:    sr.ConvertedToQuoteID,
		ConvertedToJobID:      sr.ConvertedToJobID,
	}
}

// ListParams contains parameters for listing service requests.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ── Repository ────────────────────────────────────────────────────────────────

const requestNotFoundMsg = "service request not found"

const requestColumns = `
	id, contact_name, summary, assessment_scheduled_at, assessment_completed_at,
	archived_at, converted_to_quote_id, converted_to_job_id,
	status, status_changed_at, created_at, updated_at`

// Repository provides database operations for service requests. All status
// writes go through the derivation gate; the cached status column is never
// assigned from caller input.
type Repository struct {
	pool   *pgxpool.Pool
	gate   *engine.Gate
	derive *domain.Deriver
}

// New creates a new service request repository.
func New(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver) *Repository {
	return &Repository{pool: pool, gate: gate, derive: derive}
}

// Create inserts a new service request with its initial derived status.
// The initial status is not a transition, so no history is recorded.
func (r *Repository) Create(ctx context.Context, contactName string, summary *string, assessmentScheduledAt *time.Time) (*ServiceRequest, error) {
	now := time.Now()
	req := &ServiceRequest{
		ID:                    uuid.New(),
		ContactName:           contactName,
		Summary:               summary,
		AssessmentScheduledAt: assessmentScheduledAt,
		StatusChangedAt:       now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	req.Status = r.derive.Request(req.Facts(), now)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO service_requests (
			id, contact_name, summary, assessment_scheduled_at, assessment_completed_at,
			archived_at, converted_to_quote_id, converted_to_job_id,
			status, status_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, req.ContactName, req.Summary, req.AssessmentScheduledAt, req.AssessmentCompletedAt,
		req.ArchivedAt, req.ConvertedToQuoteID, req.ConvertedToJobID,
		req.Status, req.StatusChangedAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert service request: %w", err)
	}
	return req, nil
}

// GetByID retrieves a service request by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*ServiceRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+requestColumns+` FROM service_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// List retrieves service requests, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, params ListParams) ([]ServiceRequest, int, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM service_requests
		WHERE ($1::text IS NULL OR status = $1)`, statusParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count service requests: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT`+requestColumns+`
		FROM service_requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, statusParam, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list service requests: %w", err)
	}
	defer rows.Close()

	items := make([]ServiceRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate service requests: %w", err)
	}
	return items, total, nil
}

// ScheduleAssessment sets or moves the assessment date.
func (r *Repository) ScheduleAssessment(ctx context.Context, id uuid.UUID, at time.Time, actor *uuid.UUID) (*ServiceRequest, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(req *ServiceRequest) error {
		if req.ArchivedAt != nil {
			return apperr.Conflict("service request is archived")
		}
		req.AssessmentScheduledAt = &at
		return nil
	})
}

// CompleteAssessment marks the assessment as done.
func (r *Repository) CompleteAssessment(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*ServiceRequest, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(req *ServiceRequest) error {
		if req.ArchivedAt != nil {
			return apperr.Conflict("service request is archived")
		}
		if req.AssessmentScheduledAt == nil {
			return apperr.Conflict("no assessment has been scheduled")
		}
		now := time.Now()
		req.AssessmentCompletedAt = &now
		return nil
	})
}

// Archive terminates the request. Archiving twice is a conflict.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*ServiceRequest, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(req *ServiceRequest) error {
		if req.ArchivedAt != nil {
			return apperr.Conflict("service request is already archived")
		}
		now := time.Now()
		req.ArchivedAt = &now
		return nil
	})
}

// ── Link write path ───────────────────────────────────────────────────────────

// LinkQuote assigns the converted-to-quote pointer inside the downstream
// quote's creation transaction. The guarded update gives first-writer-wins:
// a pointer that is already set leaves the row untouched, which is a
// documented no-op, not an error. A successful assignment re-enters the
// derivation gate for this row only; it never cascades further.
func (r *Repository) LinkQuote(ctx context.Context, tx pgx.Tx, requestID, quoteID uuid.UUID, now time.Time) (*engine.Transition, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE service_requests SET converted_to_quote_id = $2, updated_at = $3
		WHERE id = $1 AND converted_to_quote_id IS NULL`,
		requestID, quoteID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to link quote to service request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.rederiveTx(ctx, tx, requestID, now, nil)
}

// LinkJob assigns the converted-to-job pointer; same contract as LinkQuote.
func (r *Repository) LinkJob(ctx context.Context, tx pgx.Tx, requestID, jobID uuid.UUID, now time.Time) (*engine.Transition, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE service_requests SET converted_to_job_id = $2, updated_at = $3
		WHERE id = $1 AND converted_to_job_id IS NULL`,
		requestID, jobID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to link job to service request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.rederiveTx(ctx, tx, requestID, now, nil)
}

// ── Time-based refresh ────────────────────────────────────────────────────────

// EntityType identifies this sweeper in refresh reports.
func (r *Repository) EntityType() string { return domain.EntityServiceRequest }

// Candidates returns rows whose status can flip purely because time advanced.
func (r *Repository) Candidates(ctx context.Context, _ time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM service_requests
		WHERE status = ANY($1)
		ORDER BY status_changed_at ASC
		LIMIT $2`,
		[]string{domain.RequestStatusAssessmentScheduled, domain.RequestStatusAssessmentToday},
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query request candidates: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

// Reevaluate forces one row back through the derivation gate using the
// injected clock. Unchanged rows are no-ops.
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

// mutate is the business write path: lock, apply fact changes, derive, persist
// status and history atomically.
func (r *Repository) mutate(ctx context.Context, id uuid.UUID, actor *uuid.UUID, apply func(*ServiceRequest) error) (*ServiceRequest, *engine.Transition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := apply(req); err != nil {
		return nil, nil, err
	}

	tr, err := r.finishTx(ctx, tx, req, time.Now(), actor)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return req, tr, nil
}

func (r *Repository) rederiveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	req, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return r.finishTx(ctx, tx, req, now, actor)
}

// finishTx derives the candidate status from the (possibly modified) facts,
// persists the row, and runs the gate. It must be called with the row locked.
func (r *Repository) finishTx(ctx context.Context, tx pgx.Tx, req *ServiceRequest, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	prev := req.Status
	req.Status = r.derive.Request(req.Facts(), now)
	if req.Status != prev {
		req.StatusChangedAt = now
	}
	req.UpdatedAt = now

	_, err := tx.Exec(ctx, `
		UPDATE service_requests SET
			contact_name = $2, summary = $3,
			assessment_scheduled_at = $4, assessment_completed_at = $5, archived_at = $6,
			status = $7, status_changed_at = $8, updated_at = $9
		WHERE id = $1`,
		req.ID, req.ContactName, req.Summary,
		req.AssessmentScheduledAt, req.AssessmentCompletedAt, req.ArchivedAt,
		req.Status, req.StatusChangedAt, req.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update service request: %w", err)
	}

	return r.gate.Commit(ctx, tx, engine.CommitParams{
		EntityType: domain.EntityServiceRequest,
		EntityID:   req.ID,
		From:       prev,
		To:         req.Status,
		ChangedAt:  now,
		ChangedBy:  actor,
	})
}

func (r *Repository) getForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*ServiceRequest, error) {
	row := tx.QueryRow(ctx, `SELECT`+requestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, id)
	return scanRequest(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*ServiceRequest, error) {
	var req ServiceRequest
	err := row.Scan(
		&req.ID, &req.ContactName, &req.Summary,
		&req.AssessmentScheduledAt, &req.AssessmentCompletedAt,
		&req.ArchivedAt, &req.ConvertedToQuoteID, &req.ConvertedToJobID,
		&req.Status, &req.StatusChangedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(requestNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan service request: %w", err)
	}
	return &req, nil
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
