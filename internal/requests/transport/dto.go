package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequestRequest contains the intake facts for a new service request.
// Status is never accepted from callers; it is derived.
type CreateRequestRequest struct {
	ContactName           string     `json:"contactName" validate:"required,min=1,max=200"`
	Summary               *string    `json:"summary,omitempty" validate:"omitempty,max=2000"`
	AssessmentScheduledAt *time.Time `json:"assessmentScheduledAt,omitempty"`
}

// ScheduleAssessmentRequest sets or moves the assessment date.
type ScheduleAssessmentRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// ListRequestsRequest contains query filters for listing.
type ListRequestsRequest struct {
	Status   *string `form:"status"`
	Page     int     `form:"page"`
	PageSize int     `form:"pageSize"`
}

// RequestResponse represents a service request in API responses.
type RequestResponse struct {
	ID                    uuid.UUID  `json:"id"`
	ContactName           string     `json:"contactName"`
	Summary               *string    `json:"summary,omitempty"`
	AssessmentScheduledAt *time.Time `json:"assessmentScheduledAt,omitempty"`
	AssessmentCompletedAt *time.Time `json:"assessmentCompletedAt,omitempty"`
	ArchivedAt            *time.Time `json:"archivedAt,omitempty"`
	ConvertedToQuoteID    *uuid.UUID `json:"convertedToQuoteId,omitempty"`
	ConvertedToJobID      *uuid.UUID `json:"convertedToJobId,omitempty"`
	Status                string     `json:"status"`
	StatusChangedAt       time.Time  `json:"statusChangedAt"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// RequestListResponse wraps a paginated list of service requests.
type RequestListResponse struct {
	Items []RequestResponse `json:"items"`
	Total int               `json:"total"`
}

// HistoryEntryResponse is one recorded status transition.
type HistoryEntryResponse struct {
	FromStatus *string    `json:"fromStatus"`
	ToStatus   string     `json:"toStatus"`
	ChangedAt  time.Time  `json:"changedAt"`
	ChangedBy  *uuid.UUID `json:"changedBy,omitempty"`
}
