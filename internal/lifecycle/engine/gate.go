package engine

import (
	"context"
	"time"

	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Appender persists one history record inside the caller's transaction.
type Appender interface {
	Append(ctx context.Context, tx pgx.Tx, rec HistoryRecord) error
}

// Gate is the single derivation gate used by all entity write paths. The
// comparison and the history append run inside the caller's transaction, so
// "status written" and "history recorded" commit or roll back together.
type Gate struct {
	history Appender
	log     *logger.Logger
}

// NewGate creates a Gate backed by the given history appender.
func NewGate(history Appender, log *logger.Logger) *Gate {
	return &Gate{history: history, log: log}
}

// CommitParams carries one derivation outcome through the gate.
type CommitParams struct {
	EntityType string
	EntityID   uuid.UUID
	From       string     // previously stored status; empty on first derivation
	To         string     // freshly derived status
	ChangedAt  time.Time
	ChangedBy  *uuid.UUID // nil for time-driven (system) transitions
}

// Commit records the transition if the derived status differs from the stored
// one. An unchanged status is a no-op and returns (nil, nil) — this is the
// idempotency anchor that stops cascades from looping. The first derivation
// of a freshly created row (From == "") sets the initial status and is not a
// transition, so no history is recorded for it.
func (g *Gate) Commit(ctx context.Context, tx pgx.Tx, p CommitParams) (*Transition, error) {
	if p.From == p.To {
		return nil, nil
	}

	tr := Transition{
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		From:       p.From,
		To:         p.To,
		ChangedAt:  p.ChangedAt,
		ChangedBy:  p.ChangedBy,
	}

	if p.From != "" {
		rec := HistoryRecord{
			ID:         uuid.New(),
			EntityType: p.EntityType,
			EntityID:   p.EntityID,
			FromStatus: &tr.From,
			ToStatus:   p.To,
			ChangedAt:  p.ChangedAt,
			ChangedBy:  p.ChangedBy,
		}
		if err := g.history.Append(ctx, tx, rec); err != nil {
			return nil, err
		}
	}

	if g.log != nil {
		g.log.StatusTransition(p.EntityType, p.EntityID.String(), p.From, p.To, tr.System())
	}

	return &tr, nil
}
