package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	jobsrepo "fieldops_backend/internal/jobs/repository"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Invoice is the database model for an invoice header. AmountPaidCents and
// BalanceDueCents are maintained exclusively by the payment aggregator.
type Invoice struct {
	ID              uuid.UUID  `db:"id"`
	JobID           *uuid.UUID `db:"job_id"`
	InvoiceNumber   string     `db:"invoice_number"`
	TotalCents      int64      `db:"total_cents"`
	AmountPaidCents int64      `db:"amount_paid_cents"`
	BalanceDueCents int64      `db:"balance_due_cents"`
	DueDate         *time.Time `db:"due_date"`
	SentAt          *time.Time `db:"sent_at"`
	ArchivedAt      *time.Time `db:"archived_at"`
	Status          string     `db:"status"`
	StatusChangedAt time.Time  `db:"status_changed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Facts returns the derivation inputs for this row.
func (inv *Invoice) Facts() domain.InvoiceFacts {
	return domain.InvoiceFacts{
		TotalCents:      inv.TotalCents,
		AmountPaidCents: inv.AmountPaidCents,
		DueDate:         inv.DueDate,
		SentAt:          inv.SentAt,
		ArchivedAt:      inv.ArchivedAt,
	}
}

// Payment is the database model for one payment against an invoice.
type Payment struct {
	ID          uuid.UUID `db:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id"`
	AmountCents int64     `db:"amount_cents"`
	PaidAt      time.Time `db:"paid_at"`
	Method      *string   `db:"method"`
	Reference   *string   `db:"reference"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CreateParams contains the facts for a new invoice.
type CreateParams struct {
	JobID      *uuid.UUID
	TotalCents int64
	DueDate    *time.Time
}

// PaymentParams contains the facts for a payment write.
type PaymentParams struct {
	AmountCents int64
	PaidAt      time.Time
	Method      *string
	Reference   *string
}

// ListParams contains parameters for listing invoices.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ── Repository ────────────────────────────────────────────────────────────────

const (
	invoiceNotFoundMsg = "invoice not found"
	paymentNotFoundMsg = "payment not found"
)

const invoiceColumns = `
	id, job_id, invoice_number, total_cents, amount_paid_cents, balance_due_cents,
	due_date, sent_at, archived_at,
	status, status_changed_at, created_at, updated_at`

const paymentColumns = `
	id, invoice_id, amount_cents, paid_at, method, reference, created_at, updated_at`

// Repository provides database operations for invoices and their payments.
type Repository struct {
	pool   *pgxpool.Pool
	gate   *engine.Gate
	derive *domain.Deriver
	jobs   *jobsrepo.Repository
}

// New creates a new invoices repository. The jobs repository feeds the
// invoiced cascade into the upstream job.
func New(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver, jobs *jobsrepo.Repository) *Repository {
	return &Repository{pool: pool, gate: gate, derive: derive, jobs: jobs}
}

// NextInvoiceNumber generates the next sequential invoice number.
func (r *Repository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var nextNum int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%04d", time.Now().Year(), nextNum), nil
}

// Create inserts an invoice and, when an upstream job is referenced, marks it
// invoiced in the same transaction.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Invoice, *engine.Transition, error) {
	number, err := r.NextInvoiceNumber(ctx)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	inv := &Invoice{
		ID:              uuid.New(),
		JobID:           params.JobID,
		InvoiceNumber:   number,
		TotalCents:      params.TotalCents,
		BalanceDueCents: params.TotalCents,
		DueDate:         params.DueDate,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	inv.Status = r.derive.Invoice(inv.Facts(), now)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (
			id, job_id, invoice_number, total_cents, amount_paid_cents, balance_due_cents,
			due_date, sent_at, archived_at,
			status, status_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID, inv.JobID, inv.InvoiceNumber, inv.TotalCents, inv.AmountPaidCents, inv.BalanceDueCents,
		inv.DueDate, inv.SentAt, inv.ArchivedAt,
		inv.Status, inv.StatusChangedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	var upstream *engine.Transition
	if params.JobID != nil {
		upstream, err = r.jobs.LinkInvoice(ctx, tx, *params.JobID, inv.ID, now)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inv, upstream, nil
}

// GetByID retrieves an invoice by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

// List retrieves invoices, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Invoice, int, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE ($1::text IS NULL OR status = $1)`, statusParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT`+invoiceColumns+`
		FROM invoices
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, statusParam, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	items := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return items, total, nil
}

// Send marks the invoice as sent to the client.
func (r *Repository) Send(ctx context.Context, id uuid.UUID, dueDate *time.Time, actor *uuid.UUID) (*Invoice, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(inv *Invoice) error {
		if inv.ArchivedAt != nil {
			return apperr.Conflict("invoice is archived")
		}
		if inv.SentAt != nil {
			return apperr.Conflict("invoice has already been sent")
		}
		now := time.Now()
		inv.SentAt = &now
		if dueDate != nil {
			inv.DueDate = dueDate
		}
		return nil
	})
}

// Archive terminates the invoice.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*Invoice, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(inv *Invoice) error {
		if inv.ArchivedAt != nil {
			return apperr.Conflict("invoice is already archived")
		}
		now := time.Now()
		inv.ArchivedAt = &now
		return nil
	})
}

// ── Payment aggregator ────────────────────────────────────────────────────────

// AddPayment records a payment and recomputes the invoice totals.
func (r *Repository) AddPayment(ctx context.Context, invoiceID uuid.UUID, params PaymentParams, actor *uuid.UUID) (*Payment, *engine.Transition, error) {
	payment := &Payment{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		AmountCents: params.AmountCents,
		PaidAt:      params.PaidAt,
		Method:      params.Method,
		Reference:   params.Reference,
	}
	tr, err := r.mutatePayments(ctx, invoiceID, actor, func(tx pgx.Tx, now time.Time) error {
		payment.CreatedAt = now
		payment.UpdatedAt = now
		_, err := tx.Exec(ctx, `
			INSERT INTO payments (id, invoice_id, amount_cents, paid_at, method, reference, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			payment.ID, payment.InvoiceID, payment.AmountCents, payment.PaidAt,
			payment.Method, payment.Reference, payment.CreatedAt, payment.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, tr, nil
}

// UpdatePayment corrects a recorded payment and recomputes the invoice totals.
func (r *Repository) UpdatePayment(ctx context.Context, invoiceID, paymentID uuid.UUID, params PaymentParams, actor *uuid.UUID) (*Payment, *engine.Transition, error) {
	var payment *Payment
	tr, err := r.mutatePayments(ctx, invoiceID, actor, func(tx pgx.Tx, now time.Time) error {
		tag, err := tx.Exec(ctx, `
			UPDATE payments SET amount_cents = $3, paid_at = $4, method = $5, reference = $6, updated_at = $7
			WHERE id = $2 AND invoice_id = $1`,
			invoiceID, paymentID, params.AmountCents, params.PaidAt, params.Method, params.Reference, now)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound(paymentNotFoundMsg)
		}
		row := tx.QueryRow(ctx, `SELECT`+paymentColumns+` FROM payments WHERE id = $1`, paymentID)
		payment, err = scanPayment(row)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, tr, nil
}

// DeletePayment removes a recorded payment and recomputes the invoice totals.
func (r *Repository) DeletePayment(ctx context.Context, invoiceID, paymentID uuid.UUID, actor *uuid.UUID) (*engine.Transition, error) {
	return r.mutatePayments(ctx, invoiceID, actor, func(tx pgx.Tx, _ time.Time) error {
		tag, err := tx.Exec(ctx, `DELETE FROM payments WHERE id = $2 AND invoice_id = $1`, invoiceID, paymentID)
		if err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound(paymentNotFoundMsg)
		}
		return nil
	})
}

// ListPayments returns the payments recorded against an invoice.
func (r *Repository) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+paymentColumns+`
		FROM payments WHERE invoice_id = $1
		ORDER BY paid_at ASC, created_at ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	items := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return items, nil
}

// mutatePayments runs one payment write with the invoice row locked, then
// recomputes amount_paid from the full payment set rather than applying a
// delta. The recompute self-heals any drift and keeps concurrent payment
// writes serialized on the invoice row.
func (r *Repository) mutatePayments(ctx context.Context, invoiceID uuid.UUID, actor *uuid.UUID, write func(tx pgx.Tx, now time.Time) error) (*engine.Transition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := r.getForUpdate(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.ArchivedAt != nil {
		return nil, apperr.Conflict("invoice is archived")
	}

	now := time.Now()
	if err := write(tx, now); err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE invoice_id = $1`,
		invoiceID).Scan(&inv.AmountPaidCents); err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	tr, err := r.finishTx(ctx, tx, inv, now, actor)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tr, nil
}

// ── Time-based refresh ────────────────────────────────────────────────────────

// EntityType identifies this sweeper in refresh reports.
func (r *Repository) EntityType() string { return domain.EntityInvoice }

// Candidates returns sent invoices, whose status can decay to past_due.
func (r *Repository) Candidates(ctx context.Context, _ time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM invoices
		WHERE status = $1
		ORDER BY status_changed_at ASC
		LIMIT $2`,
		domain.InvoiceStatusSent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice candidates: %w", err)
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

func (r *Repository) mutate(ctx context.Context, id uuid.UUID, actor *uuid.UUID, apply func(*Invoice) error) (*Invoice, *engine.Transition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := apply(inv); err != nil {
		return nil, nil, err
	}

	tr, err := r.finishTx(ctx, tx, inv, time.Now(), actor)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inv, tr, nil
}

func (r *Repository) rederiveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	inv, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return r.finishTx(ctx, tx, inv, now, actor)
}

func (r *Repository) finishTx(ctx context.Context, tx pgx.Tx, inv *Invoice, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	prev := inv.Status
	facts := inv.Facts()
	inv.BalanceDueCents = facts.BalanceDueCents()
	inv.Status = r.derive.Invoice(facts, now)
	if inv.Status != prev {
		inv.StatusChangedAt = now
	}
	inv.UpdatedAt = now

	_, err := tx.Exec(ctx, `
		UPDATE invoices SET
			total_cents = $2, amount_paid_cents = $3, balance_due_cents = $4,
			due_date = $5, sent_at = $6, archived_at = $7,
			status = $8, status_changed_at = $9, updated_at = $10
		WHERE id = $1`,
		inv.ID, inv.TotalCents, inv.AmountPaidCents, inv.BalanceDueCents,
		inv.DueDate, inv.SentAt, inv.ArchivedAt,
		inv.Status, inv.StatusChangedAt, inv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	return r.gate.Commit(ctx, tx, engine.CommitParams{
		EntityType: domain.EntityInvoice,
		EntityID:   inv.ID,
		From:       prev,
		To:         inv.Status,
		ChangedAt:  now,
		ChangedBy:  actor,
	})
}

func (r *Repository) getForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Invoice, error) {
	row := tx.QueryRow(ctx, `SELECT`+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
	return scanInvoice(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.JobID, &inv.InvoiceNumber, &inv.TotalCents, &inv.AmountPaidCents, &inv.BalanceDueCents,
		&inv.DueDate, &inv.SentAt, &inv.ArchivedAt,
		&inv.Status, &inv.StatusChangedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(invoiceNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}
	return &inv, nil
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.InvoiceID, &p.AmountCents, &p.PaidAt, &p.Method, &p.Reference, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(paymentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return &p, nil
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
