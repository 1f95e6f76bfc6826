package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateInvoiceRequest carries the facts for a new invoice. Referencing a job
// marks that job invoiced in the same transaction.
type CreateInvoiceRequest struct {
	JobID      *uuid.UUID `json:"jobId"`
	TotalCents int64      `json:"totalCents" validate:"gte=0"`
	DueDate    *time.Time `json:"dueDate"`
}

// SendInvoiceRequest optionally sets the due date at send time.
type SendInvoiceRequest struct {
	DueDate *time.Time `json:"dueDate"`
}

// PaymentRequest carries the facts for a payment write.
type PaymentRequest struct {
	AmountCents int64     `json:"amountCents" validate:"gt=0"`
	PaidAt      time.Time `json:"paidAt" validate:"required"`
	Method      *string   `json:"method" validate:"omitempty,max=50"`
	Reference   *string   `json:"reference" validate:"omitempty,max=200"`
}

// ListInvoicesRequest contains list query parameters.
type ListInvoicesRequest struct {
	Status   *string `form:"status"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// InvoiceResponse is the API representation of an invoice.
type InvoiceResponse struct {
	ID              uuid.UUID  `json:"id"`
	JobID           *uuid.UUID `json:"jobId,omitempty"`
	InvoiceNumber   string     `json:"invoiceNumber"`
	TotalCents      int64      `json:"totalCents"`
	AmountPaidCents int64      `json:"amountPaidCents"`
	BalanceDueCents int64      `json:"balanceDueCents"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	SentAt          *time.Time `json:"sentAt,omitempty"`
	ArchivedAt      *time.Time `json:"archivedAt,omitempty"`
	Status          string     `json:"status"`
	StatusChangedAt time.Time  `json:"statusChangedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// InvoiceListResponse is a paginated list of invoices.
type InvoiceListResponse struct {
	Items    []InvoiceResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// PaymentResponse is the API representation of a payment.
type PaymentResponse struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoiceId"`
	AmountCents int64     `json:"amountCents"`
	PaidAt      time.Time `json:"paidAt"`
	Method      *string   `json:"method,omitempty"`
	Reference   *string   `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HistoryEntryResponse is one recorded status transition.
type HistoryEntryResponse struct {
	FromStatus *string    `json:"fromStatus"`
	ToStatus   string     `json:"toStatus"`
	ChangedAt  time.Time  `json:"changedAt"`
	ChangedBy  *uuid.UUID `json:"changedBy,omitempty"`
}
