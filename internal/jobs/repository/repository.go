package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	quotesrepo "fieldops_backend/internal/quotes/repository"
	requestsrepo "fieldops_backend/internal/requests/repository"
	"fieldops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Job is the database model for a job.
type Job struct {
	ID                 uuid.UUID  `db:"id"`
	QuoteID            *uuid.UUID `db:"quote_id"`
	RequestID          *uuid.UUID `db:"request_id"`
	Title              string     `db:"title"`
	ScheduledDate      *time.Time `db:"scheduled_date"`
	AssignedCrewID     *uuid.UUID `db:"assigned_crew_id"`
	ReadyForYardAt     *time.Time `db:"ready_for_yard_at"`
	PickingStartedAt   *time.Time `db:"picking_started_at"`
	StagingCompletedAt *time.Time `db:"staging_completed_at"`
	LoadedAt           *time.Time `db:"loaded_at"`
	WorkStartedAt      *time.Time `db:"work_started_at"`
	WorkCompletedAt    *time.Time `db:"work_completed_at"`
	InvoicedAt         *time.Time `db:"invoiced_at"`
	InvoiceID          *uuid.UUID `db:"invoice_id"`
	Status             string     `db:"status"`
	StatusChangedAt    time.Time  `db:"status_changed_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// Facts returns the derivation inputs for this row.
func (j *Job) Facts() domain.JobFacts {
	return domain.JobFacts{
		ScheduledDate:      j.ScheduledDate,
		AssignedCrewID:     j.AssignedCrewID,
		ReadyForYardAt:     j.ReadyForYardAt,
		PickingStartedAt:   j.PickingStartedAt,
		StagingCompletedAt: j.StagingCompletedAt,
		LoadedAt:           j.LoadedAt,
		WorkStartedAt:      j.WorkStartedAt,
		WorkCompletedAt:    j.WorkCompletedAt,
		InvoicedAt:         j.InvoicedAt,
	}
}

// Milestone names accepted by RecordMilestone, in execution order.
const (
	MilestoneReadyForYard  = "ready_for_yard"
	MilestonePickingStart  = "picking_started"
	MilestoneStagingDone   = "staging_completed"
	MilestoneLoaded        = "loaded"
	MilestoneWorkStarted   = "work_started"
	MilestoneWorkCompleted = "work_completed"
)

// CreateParams contains the facts for a new job.
type CreateParams struct {
	QuoteID   *uuid.UUID
	RequestID *uuid.UUID
	Title     string
}

// ListParams contains parameters for listing jobs.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ── Repository ────────────────────────────────────────────────────────────────

const jobNotFoundMsg = "job not found"

const jobColumns = `
	id, quote_id, request_id, title,
	scheduled_date, assigned_crew_id,
	ready_for_yard_at, picking_started_at, staging_completed_at, loaded_at,
	work_started_at, work_completed_at, invoiced_at, invoice_id,
	status, status_changed_at, created_at, updated_at`

// Repository provides database operations for jobs.
type Repository struct {
	pool     *pgxpool.Pool
	gate     *engine.Gate
	derive   *domain.Deriver
	quotes   *quotesrepo.Repository
	requests *requestsrepo.Repository
}

// New creates a new jobs repository. The quotes and requests repositories feed
// the conversion cascades into the upstream rows.
func New(pool *pgxpool.Pool, gate *engine.Gate, derive *domain.Deriver, quotes *quotesrepo.Repository, requests *requestsrepo.Repository) *Repository {
	return &Repository{pool: pool, gate: gate, derive: derive, quotes: quotes, requests: requests}
}

// Create inserts a job and converts the referenced upstream quote and request
// in the same transaction. Each upstream write is first-writer-wins and never
// cascades further than its own row.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Job, []engine.Transition, error) {
	now := time.Now()
	job := &Job{
		ID:              uuid.New(),
		QuoteID:         params.QuoteID,
		RequestID:       params.RequestID,
		Title:           params.Title,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	job.Status = r.derive.Job(job.Facts(), now)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO jobs (
			id, quote_id, request_id, title,
			scheduled_date, assigned_crew_id,
			ready_for_yard_at, picking_started_at, staging_completed_at, loaded_at,
			work_started_at, work_completed_at, invoiced_at, invoice_id,
			status, status_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		job.ID, job.QuoteID, job.RequestID, job.Title,
		job.ScheduledDate, job.AssignedCrewID,
		job.ReadyForYardAt, job.PickingStartedAt, job.StagingCompletedAt, job.LoadedAt,
		job.WorkStartedAt, job.WorkCompletedAt, job.InvoicedAt, job.InvoiceID,
		job.Status, job.StatusChangedAt, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert job: %w", err)
	}

	var upstream []engine.Transition
	if params.QuoteID != nil {
		tr, err := r.quotes.LinkJob(ctx, tx, *params.QuoteID, job.ID, now)
		if err != nil {
			return nil, nil, err
		}
		if tr != nil {
			upstream = append(upstream, *tr)
		}
	}
	if params.RequestID != nil {
		tr, err := r.requests.LinkJob(ctx, tx, *params.RequestID, job.ID, now)
		if err != nil {
			return nil, nil, err
		}
		if tr != nil {
			upstream = append(upstream, *tr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return job, upstream, nil
}

// GetByID retrieves a job by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// List retrieves jobs, newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Job, int, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM jobs
		WHERE ($1::text IS NULL OR status = $1)`, statusParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, `
		SELECT`+jobColumns+`
		FROM jobs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, statusParam, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return items, total, nil
}

// Schedule assigns the execution date and crew. Both are required for the job
// to derive as scheduled.
func (r *Repository) Schedule(ctx context.Context, id uuid.UUID, date time.Time, crewID uuid.UUID, actor *uuid.UUID) (*Job, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(j *Job) error {
		if j.InvoicedAt != nil {
			return apperr.Conflict("job has already been invoiced")
		}
		j.ScheduledDate = &date
		j.AssignedCrewID = &crewID
		return nil
	})
}

// RecordMilestone stamps the named execution milestone. A milestone that is
// already stamped conflicts; earlier milestones may be skipped, the latest
// stamped one wins during derivation.
func (r *Repository) RecordMilestone(ctx context.Context, id uuid.UUID, milestone string, actor *uuid.UUID) (*Job, *engine.Transition, error) {
	return r.mutate(ctx, id, actor, func(j *Job) error {
		if j.InvoicedAt != nil {
			return apperr.Conflict("job has already been invoiced")
		}
		now := time.Now()
		slot, err := j.milestoneSlot(milestone)
		if err != nil {
			return err
		}
		if *slot != nil {
			return apperr.Conflict("milestone has already been recorded")
		}
		*slot = &now
		return nil
	})
}

func (j *Job) milestoneSlot(milestone string) (**time.Time, error) {
	switch milestone {
	case MilestoneReadyForYard:
		return &j.ReadyForYardAt, nil
	case MilestonePickingStart:
		return &j.PickingStartedAt, nil
	case MilestoneStagingDone:
		return &j.StagingCompletedAt, nil
	case MilestoneLoaded:
		return &j.LoadedAt, nil
	case MilestoneWorkStarted:
		return &j.WorkStartedAt, nil
	case MilestoneWorkCompleted:
		return &j.WorkCompletedAt, nil
	default:
		return nil, apperr.Validation("unknown milestone")
	}
}

// ── Link write path ───────────────────────────────────────────────────────────

// LinkInvoice assigns the invoice pointer and the invoiced timestamp inside
// the downstream invoice's creation transaction. First-writer-wins; an
// already-invoiced job is a silent no-op.
func (r *Repository) LinkInvoice(ctx context.Context, tx pgx.Tx, jobID, invoiceID uuid.UUID, now time.Time) (*engine.Transition, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET invoice_id = $2, invoiced_at = $3, updated_at = $3
		WHERE id = $1 AND invoice_id IS NULL`,
		jobID, invoiceID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to link invoice to job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.rederiveTx(ctx, tx, jobID, now, nil)
}

// ── Time-based refresh ────────────────────────────────────────────────────────

// EntityType identifies this sweeper in refresh reports.
func (r *Repository) EntityType() string { return domain.EntityJob }

// Candidates returns nothing: no job status depends on the passage of time.
// The sweeper still participates so that a future calendar-sensitive rule
// only needs a query change here.
func (r *Repository) Candidates(_ context.Context, _ time.Time, _ int) ([]uuid.UUID, error) {
	return nil, nil
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

func (r *Repository) mutate(ctx context.Context, id uuid.UUID, actor *uuid.UUID, apply func(*Job) error) (*Job, *engine.Transition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	job, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := apply(job); err != nil {
		return nil, nil, err
	}

	tr, err := r.finishTx(ctx, tx, job, time.Now(), actor)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return job, tr, nil
}

func (r *Repository) rederiveTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	job, err := r.getForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return r.finishTx(ctx, tx, job, now, actor)
}

func (r *Repository) finishTx(ctx context.Context, tx pgx.Tx, job *Job, now time.Time, actor *uuid.UUID) (*engine.Transition, error) {
	prev := job.Status
	job.Status = r.derive.Job(job.Facts(), now)
	if job.Status != prev {
		job.StatusChangedAt = now
	}
	job.UpdatedAt = now

	_, err := tx.Exec(ctx, `
		UPDATE jobs SET
			title = $2, scheduled_date = $3, assigned_crew_id = $4,
			ready_for_yard_at = $5, picking_started_at = $6, staging_completed_at = $7,
			loaded_at = $8, work_started_at = $9, work_completed_at = $10,
			status = $11, status_changed_at = $12, updated_at = $13
		WHERE id = $1`,
		job.ID, job.Title, job.ScheduledDate, job.AssignedCrewID,
		job.ReadyForYardAt, job.PickingStartedAt, job.StagingCompletedAt,
		job.LoadedAt, job.WorkStartedAt, job.WorkCompletedAt,
		job.Status, job.StatusChangedAt, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	return r.gate.Commit(ctx, tx, engine.CommitParams{
		EntityType: domain.EntityJob,
		EntityID:   job.ID,
		From:       prev,
		To:         job.Status,
		ChangedAt:  now,
		ChangedBy:  actor,
	})
}

func (r *Repository) getForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Job, error) {
	row := tx.QueryRow(ctx, `SELECT`+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.QuoteID, &j.RequestID, &j.Title,
		&j.ScheduledDate, &j.AssignedCrewID,
		&j.ReadyForYardAt, &j.PickingStartedAt, &j.StagingCompletedAt, &j.LoadedAt,
		&j.WorkStartedAt, &j.WorkCompletedAt, &j.InvoicedAt, &j.InvoiceID,
		&j.Status, &j.StatusChangedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(jobNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return &j, nil
}
