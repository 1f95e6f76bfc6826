package repository

import (
	"context"
	"time"

	"fieldops_backend/internal/lifecycle/engine"

	"github.com/google/uuid"
)

// Store defines the invoice persistence operations the service layer depends on.
type Store interface {
	Create(ctx context.Context, params CreateParams) (*Invoice, *engine.Transition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, params ListParams) ([]Invoice, int, error)
	Send(ctx context.Context, id uuid.UUID, dueDate *time.Time, actor *uuid.UUID) (*Invoice, *engine.Transition, error)
	Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*Invoice, *engine.Transition, error)
	AddPayment(ctx context.Context, invoiceID uuid.UUID, params PaymentParams, actor *uuid.UUID) (*Payment, *engine.Transition, error)
	UpdatePayment(ctx context.Context, invoiceID, paymentID uuid.UUID, params PaymentParams, actor *uuid.UUID) (*Payment, *engine.Transition, error)
	DeletePayment(ctx context.Context, invoiceID, paymentID uuid.UUID, actor *uuid.UUID) (*engine.Transition, error)
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
}

var _ Store = (*Repository)(nil)
