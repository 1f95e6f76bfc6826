package repository

import (
	"context"
	"time"

	"fieldops_backend/internal/lifecycle/engine"

	"github.com/google/uuid"
)

// Store defines the quote persistence operations the service layer depends on.
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Quote, *engine.Transition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	List(ctx context.Context, params ListParams) ([]Quote, int, error)
	Send(ctx context.Context, id uuid.UUID, validUntil *time.Time, actor *uuid.UUID) (*Quote, *engine.Transition, error)
	SetApproval(ctx context.Context, id uuid.UUID, state string, actor *uuid.UUID) (*Quote, *engine.Transition, error)
	ClientApprove(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*Quote, *engine.Transition, error)
	MarkLost(ctx context.Context, id uuid.UUID, reason string, actor *uuid.UUID) (*Quote, *engine.Transition, error)
	Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*Quote, *engine.Transition, error)
}

var _ Store = (*Repository)(nil)
