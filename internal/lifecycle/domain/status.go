// Package domain provides the status vocabulary and derivation rules for the
// lifecycle engine. Every status in the system is a pure function of an
// entity's fact fields; nothing in this package performs I/O.
package domain

// Entity type tags, used in status_history and sweep reports.
const (
	EntityServiceRequest = "service_request"
	EntityQuote          = "quote"
	EntityJob            = "job"
	EntityInvoice        = "invoice"
)

// ServiceRequest statuses.
const (
	RequestStatusArchived             = "archived"
	RequestStatusConverted            = "converted"
	RequestStatusAssessmentCompleted  = "assessment_completed"
	RequestStatusAssessmentOverdue    = "assessment_overdue"
	RequestStatusAssessmentToday      = "assessment_today"
	RequestStatusAssessmentScheduled  = "assessment_scheduled"
	RequestStatusPending              = "pending"
)

// Quote statuses.
const (
	QuoteStatusArchived         = "archived"
	QuoteStatusConverted        = "converted"
	QuoteStatusLost             = "lost"
	QuoteStatusApproved         = "approved"
	QuoteStatusAwaitingApproval = "awaiting_approval"
	QuoteStatusFollowUp         = "follow_up"
	QuoteStatusSent             = "sent"
	QuoteStatusDraft            = "draft"
)

// Quote internal approval states (a fact field, not a derived status).
const (
	ApprovalDraft    = "draft"
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
)

// Job statuses. The chain is last-milestone-wins over the ordered milestone
// timestamps, so later milestones appear first in the rule list.
const (
	JobStatusInvoiced     = "invoiced"
	JobStatusCompleted    = "completed"
	JobStatusInProgress   = "in_progress"
	JobStatusLoaded       = "loaded"
	JobStatusStaged       = "staged"
	JobStatusPicking      = "picking"
	JobStatusReadyForYard = "ready_for_yard"
	JobStatusScheduled    = "scheduled"
	JobStatusWon          = "won"
)

// Invoice statuses.
const (
	InvoiceStatusArchived = "archived"
	InvoiceStatusPaid     = "paid"
	InvoiceStatusPastDue  = "past_due"
	InvoiceStatusSent     = "sent"
	InvoiceStatusDraft    = "draft"
)

var knownApprovalStates = map[string]struct{}{
	ApprovalDraft:    {},
	ApprovalPending:  {},
	ApprovalApproved: {},
}

// IsKnownApprovalState reports whether s is a valid quote approval state.
func IsKnownApprovalState(s string) bool {
	_, ok := knownApprovalStates[s]
	return ok
}
