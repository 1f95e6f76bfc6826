package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateQuoteRequest carries the facts for a new quote. Status is never
// accepted from the caller.
type CreateQuoteRequest struct {
	RequestID  *uuid.UUID `json:"requestId"`
	TotalCents int64      `json:"totalCents" validate:"gte=0"`
	ValidUntil *time.Time `json:"validUntil"`
	Notes      *string    `json:"notes" validate:"omitempty,max=2000"`
}

// SendQuoteRequest optionally overrides the validity window at send time.
type SendQuoteRequest struct {
	ValidUntil *time.Time `json:"validUntil"`
}

// SetApprovalRequest moves the internal approval workflow state.
type SetApprovalRequest struct {
	State string `json:"state" validate:"required,oneof=draft pending approved"`
}

// MarkLostRequest records why the client declined.
type MarkLostRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ListQuotesRequest contains list query parameters.
type ListQuotesRequest struct {
	Status   *string `form:"status"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// QuoteResponse is the API representation of a quote.
type QuoteResponse struct {
	ID               uuid.UUID  `json:"id"`
	RequestID        *uuid.UUID `json:"requestId,omitempty"`
	QuoteNumber      string     `json:"quoteNumber"`
	TotalCents       int64      `json:"totalCents"`
	Notes            *string    `json:"notes,omitempty"`
	SentAt           *time.Time `json:"sentAt,omitempty"`
	ValidUntil       *time.Time `json:"validUntil,omitempty"`
	ClientApprovedAt *time.Time `json:"clientApprovedAt,omitempty"`
	LostReason       *string    `json:"lostReason,omitempty"`
	ApprovalStatus   string     `json:"approvalStatus"`
	ArchivedAt       *time.Time `json:"archivedAt,omitempty"`
	ConvertedToJobID *uuid.UUID `json:"convertedToJobId,omitempty"`
	Status           string     `json:"status"`
	StatusChangedAt  time.Time  `json:"statusChangedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// QuoteListResponse is a paginated list of quotes.
type QuoteListResponse struct {
	Items    []QuoteResponse `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// HistoryEntryResponse is one recorded status transition.
type HistoryEntryResponse struct {
	FromStatus *string    `json:"fromStatus"`
	ToStatus   string     `json:"toStatus"`
	ChangedAt  time.Time  `json:"changedAt"`
	ChangedBy  *uuid.UUID `json:"changedBy,omitempty"`
}
