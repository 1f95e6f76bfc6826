package domain

import (
	"time"

	"github.com/google/uuid"
)

// Fact snapshots carry exactly the fields each derivation function reads.
// Repositories populate them from the locked row before asking the deriver
// for the canonical status.

// RequestFacts are the derivation inputs for a service request.
type RequestFacts struct {
	AssessmentScheduledAt *time.Time
	AssessmentCompletedAt *time.Time
	ArchivedAt            *time.Time
	ConvertedToQuoteID    *uuid.UUID
	ConvertedToJobID      *uuid.UUID
}

// QuoteFacts are the derivation inputs for a quote.
type QuoteFacts struct {
	SentAt           *time.Time
	ValidUntil       *time.Time
	ClientApprovedAt *time.Time
	LostReason       *string
	ApprovalStatus   string
	ArchivedAt       *time.Time
	ConvertedToJobID *uuid.UUID
}

// JobFacts are the derivation inputs for a job. The milestone timestamps are
// an ordered sequence; a later milestone being set dominates earlier ones.
type JobFacts struct {
	ScheduledDate      *time.Time
	AssignedCrewID     *uuid.UUID
	ReadyForYardAt     *time.Time
	PickingStartedAt   *time.Time
	StagingCompletedAt *time.Time
	LoadedAt           *time.Time
	WorkStartedAt      *time.Time
	WorkCompletedAt    *time.Time
	InvoicedAt         *time.Time
}

// InvoiceFacts are the derivation inputs for an invoice.
type InvoiceFacts struct {
	TotalCents      int64
	AmountPaidCents int64
	DueDate         *time.Time
	SentAt          *time.Time
	ArchivedAt      *time.Time
}

// BalanceDueCents is the derived balance for an invoice.
func (f InvoiceFacts) BalanceDueCents() int64 {
	return f.TotalCents - f.AmountPaidCents
}
