package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateJobRequest carries the facts for a new job. Referencing a quote or a
// request converts that upstream row in the same transaction.
type CreateJobRequest struct {
	QuoteID   *uuid.UUID `json:"quoteId"`
	RequestID *uuid.UUID `json:"requestId"`
	Title     string     `json:"title" validate:"required,max=200"`
}

// ScheduleJobRequest assigns the execution date and crew.
type ScheduleJobRequest struct {
	ScheduledDate time.Time `json:"scheduledDate" validate:"required"`
	CrewID        uuid.UUID `json:"crewId" validate:"required"`
}

// RecordMilestoneRequest stamps one execution milestone.
type RecordMilestoneRequest struct {
	Milestone string `json:"milestone" validate:"required,oneof=ready_for_yard picking_started staging_completed loaded work_started work_completed"`
}

// ListJobsRequest contains list query parameters.
type ListJobsRequest struct {
	Status   *string `form:"status"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

// JobResponse is the API representation of a job.
type JobResponse struct {
	ID                 uuid.UUID  `json:"id"`
	QuoteID            *uuid.UUID `json:"quoteId,omitempty"`
	RequestID          *uuid.UUID `json:"requestId,omitempty"`
	Title              string     `json:"title"`
	ScheduledDate      *time.Time `json:"scheduledDate,omitempty"`
	AssignedCrewID     *uuid.UUID `json:"assignedCrewId,omitempty"`
	ReadyForYardAt     *time.Time `json:"readyForYardAt,omitempty"`
	PickingStartedAt   *time.Time `json:"pickingStartedAt,omitempty"`
	StagingCompletedAt *time.Time `json:"stagingCompletedAt,omitempty"`
	LoadedAt           *time.Time `json:"loadedAt,omitempty"`
	WorkStartedAt      *time.Time `json:"workStartedAt,omitempty"`
	WorkCompletedAt    *time.Time `json:"workCompletedAt,omitempty"`
	InvoicedAt         *time.Time `json:"invoicedAt,omitempty"`
	InvoiceID          *uuid.UUID `json:"invoiceId,omitempty"`
	Status             string     `json:"status"`
	StatusChangedAt    time.Time  `json:"statusChangedAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// JobListResponse is a paginated list of jobs.
type JobListResponse struct {
	Items    []JobResponse `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// HistoryEntryResponse is one recorded status transition.
type HistoryEntryResponse struct {
	FromStatus *string    `json:"fromStatus"`
	ToStatus   string     `json:"toStatus"`
	ChangedAt  time.Time  `json:"changedAt"`
	ChangedBy  *uuid.UUID `json:"changedBy,omitempty"`
}
