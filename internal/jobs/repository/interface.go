package repository

import (
	"context"
	"time"

	"fieldops_backend/internal/lifecycle/engine"

	"github.com/google/uuid"
)

// Store defines the job persistence operations the service layer depends on.
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Job, []engine.Transition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, params ListParams) ([]Job, int, error)
	Schedule(ctx context.Context, id uuid.UUID, date time.Time, crewID uuid.UUID, actor *uuid.UUID) (*Job, *engine.Transition, error)
	RecordMilestone(ctx context.Context, id uuid.UUID, milestone string, actor *uuid.UUID) (*Job, *engine.Transition, error)
}

var _ Store = (*Repository)(nil)
