package repository

import (
	"context"
	"time"

	"fieldops_backend/internal/lifecycle/engine"

	"github.com/google/uuid"
)

// Store is the persistence interface consumed by the service layer.
type Store interface {
	Create(ctx context.Context, contactName string, summary *string, assessmentScheduledAt *time.Time) (*ServiceRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceRequest, error)
	List(ctx context.Context, params ListParams) ([]ServiceRequest, int, error)
	ScheduleAssessment(ctx context.Context, id uuid.UUID, at time.Time, actor *uuid.UUID) (*ServiceRequest, *engine.Transition, error)
	CompleteAssessment(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*ServiceRequest, *engine.Transition, error)
	Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*ServiceRequest, *engine.Transition, error)
}

var _ Store = (*Repository)(nil)
