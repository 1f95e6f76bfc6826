package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRecord is one append-only row in the shared status_history table.
type HistoryRecord struct {
	ID         uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	FromStatus *string
	ToStatus   string
	ChangedAt  time.Time
	ChangedBy  *uuid.UUID
}

// HistoryRepository provides append and read access to status_history.
// Rows are immutable once written; there is no update or delete path.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new status history repository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Append inserts one history record inside the caller's transaction.
func (r *HistoryRepository) Append(ctx context.Context, tx pgx.Tx, rec HistoryRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO status_history (id, entity_type, entity_id, from_status, to_status, changed_at, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.EntityType, rec.EntityID, rec.FromStatus, rec.ToStatus, rec.ChangedAt, rec.ChangedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// ListByEntity returns the full transition history for one entity, oldest
// first — the order in which the transitions committed.
func (r *HistoryRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]HistoryRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entity_type, entity_id, from_status, to_status, changed_at, changed_by
		FROM status_history
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY changed_at ASC, id ASC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	records := make([]HistoryRecord, 0)
	for rows.Next() {
		var rec HistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.EntityType, &rec.EntityID,
			&rec.FromStatus, &rec.ToStatus, &rec.ChangedAt, &rec.ChangedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status history: %w", err)
	}
	return records, nil
}

var _ Appender = (*HistoryRepository)(nil)
