package domain

import "time"

// DefaultQuoteFollowUpAfter is the grace window after sending a quote before
// it flips to follow_up with no client response.
const DefaultQuoteFollowUpAfter = 72 * time.Hour

// Rule is one (predicate, result) pair in a derivation priority chain.
// Chains are evaluated top-down; the first matching predicate wins.
type Rule[F any] struct {
	Name string
	When func(f F, now time.Time) bool
	Then string
}

func evaluate[F any](rules []Rule[F], f F, now time.Time, fallback string) string {
	for _, r := range rules {
		if r.When(f, now) {
			return r.Then
		}
	}
	return fallback
}

// Deriver computes canonical statuses from fact snapshots. It is stateless
// apart from configuration; "now" is always an explicit parameter so
// derivation stays deterministic under test.
type Deriver struct {
	requestRules []Rule[RequestFacts]
	quoteRules   []Rule[QuoteFacts]
	jobRules     []Rule[JobFacts]
	invoiceRules []Rule[InvoiceFacts]
}

// NewDeriver builds a Deriver. A non-positive followUpAfter falls back to
// DefaultQuoteFollowUpAfter.
func NewDeriver(followUpAfter time.Duration) *Deriver {
	if followUpAfter <= 0 {
		followUpAfter = DefaultQuoteFollowUpAfter
	}

	return &Deriver{
		requestRules: requestRules(),
		quoteRules:   quoteRules(followUpAfter),
		jobRules:     jobRules(),
		invoiceRules: invoiceRules(),
	}
}

// Request derives the status of a service request.
func (d *Deriver) Request(f RequestFacts, now time.Time) string {
	return evaluate(d.requestRules, f, now, RequestStatusPending)
}

// Quote derives the status of a quote.
func (d *Deriver) Quote(f QuoteFacts, now time.Time) string {
	return evaluate(d.quoteRules, f, now, QuoteStatusDraft)
}

// Job derives the status of a job.
func (d *Deriver) Job(f JobFacts, now time.Time) string {
	return evaluate(d.jobRules, f, now, JobStatusWon)
}

// Invoice derives the status of an invoice.
func (d *Deriver) Invoice(f InvoiceFacts, now time.Time) string {
	return evaluate(d.invoiceRules, f, now, InvoiceStatusDraft)
}

func requestRules() []Rule[RequestFacts] {
	return []Rule[RequestFacts]{
		{
			Name: "archived",
			When: func(f RequestFacts, _ time.Time) bool { return f.ArchivedAt != nil },
			Then: RequestStatusArchived,
		},
		{
			Name: "converted",
			When: func(f RequestFacts, _ time.Time) bool {
				return f.ConvertedToQuoteID != nil || f.ConvertedToJobID != nil
			},
			Then: RequestStatusConverted,
		},
		{
			Name: "assessment_completed",
			When: func(f RequestFacts, _ time.Time) bool { return f.AssessmentCompletedAt != nil },
			Then: RequestStatusAssessmentCompleted,
		},
		{
			Name: "assessment_overdue",
			When: func(f RequestFacts, now time.Time) bool {
				return f.AssessmentScheduledAt != nil && beforeDay(*f.AssessmentScheduledAt, now)
			},
			Then: RequestStatusAssessmentOverdue,
		},
		{
			Name: "assessment_today",
			When: func(f RequestFacts, now time.Time) bool {
				return f.AssessmentScheduledAt != nil && sameDay(*f.AssessmentScheduledAt, now)
			},
			Then: RequestStatusAssessmentToday,
		},
		{
			Name: "assessment_scheduled",
			When: func(f RequestFacts, _ time.Time) bool { return f.AssessmentScheduledAt != nil },
			Then: RequestStatusAssessmentScheduled,
		},
	}
}

func quoteRules(followUpAfter time.Duration) []Rule[QuoteFacts] {
	return []Rule[QuoteFacts]{
		{
			Name: "archived",
			When: func(f QuoteFacts, _ time.Time) bool { return f.ArchivedAt != nil },
			Then: QuoteStatusArchived,
		},
		{
			Name: "converted",
			When: func(f QuoteFacts, _ time.Time) bool { return f.ConvertedToJobID != nil },
			Then: QuoteStatusConverted,
		},
		{
			Name: "lost",
			When: func(f QuoteFacts, _ time.Time) bool { return f.LostReason != nil },
			Then: QuoteStatusLost,
		},
		{
			Name: "client_approved",
			When: func(f QuoteFacts, _ time.Time) bool { return f.ClientApprovedAt != nil },
			Then: QuoteStatusApproved,
		},
		{
			Name: "awaiting_internal_approval",
			When: func(f QuoteFacts, _ time.Time) bool { return f.ApprovalStatus == ApprovalPending },
			Then: QuoteStatusAwaitingApproval,
		},
		{
			Name: "sent_expired",
			When: func(f QuoteFacts, now time.Time) bool {
				return f.SentAt != nil && f.ValidUntil != nil && f.ValidUntil.Before(now)
			},
			Then: QuoteStatusFollowUp,
		},
		{
			Name: "sent_no_response",
			When: func(f QuoteFacts, now time.Time) bool {
				return f.SentAt != nil && now.Sub(*f.SentAt) > followUpAfter
			},
			Then: QuoteStatusFollowUp,
		},
		{
			Name: "sent",
			When: func(f QuoteFacts, _ time.Time) bool { return f.SentAt != nil },
			Then: QuoteStatusSent,
		},
	}
}

func jobRules() []Rule[JobFacts] {
	return []Rule[JobFacts]{
		{
			Name: "invoiced",
			When: func(f JobFacts, _ time.Time) bool { return f.InvoicedAt != nil },
			Then: JobStatusInvoiced,
		},
		{
			Name: "work_completed",
			When: func(f JobFacts, _ time.Time) bool { return f.WorkCompletedAt != nil },
			Then: JobStatusCompleted,
		},
		{
			Name: "work_started",
			When: func(f JobFacts, _ time.Time) bool { return f.WorkStartedAt != nil },
			Then: JobStatusInProgress,
		},
		{
			Name: "loaded",
			When: func(f JobFacts, _ time.Time) bool { return f.LoadedAt != nil },
			Then: JobStatusLoaded,
		},
		{
			Name: "staging_completed",
			When: func(f JobFacts, _ time.Time) bool { return f.StagingCompletedAt != nil },
			Then: JobStatusStaged,
		},
		{
			Name: "picking_started",
			When: func(f JobFacts, _ time.Time) bool { return f.PickingStartedAt != nil },
			Then: JobStatusPicking,
		},
		{
			Name: "ready_for_yard",
			When: func(f JobFacts, _ time.Time) bool { return f.ReadyForYardAt != nil },
			Then: JobStatusReadyForYard,
		},
		{
			Name: "scheduled",
			When: func(f JobFacts, _ time.Time) bool {
				return f.ScheduledDate != nil && f.AssignedCrewID != nil
			},
			Then: JobStatusScheduled,
		},
	}
}

func invoiceRules() []Rule[InvoiceFacts] {
	return []Rule[InvoiceFacts]{
		{
			Name: "archived",
			When: func(f InvoiceFacts, _ time.Time) bool { return f.ArchivedAt != nil },
			Then: InvoiceStatusArchived,
		},
		{
			Name: "paid",
			When: func(f InvoiceFacts, _ time.Time) bool {
				return f.BalanceDueCents() <= 0 || f.AmountPaidCents >= f.TotalCents
			},
			Then: InvoiceStatusPaid,
		},
		{
			Name: "past_due",
			When: func(f InvoiceFacts, now time.Time) bool {
				return f.SentAt != nil && f.DueDate != nil && beforeDay(*f.DueDate, now)
			},
			Then: InvoiceStatusPastDue,
		},
		{
			Name: "sent",
			When: func(f InvoiceFacts, _ time.Time) bool { return f.SentAt != nil },
			Then: InvoiceStatusSent,
		},
	}
}

// Calendar-day comparisons are made in the wall-clock's location so that an
// assessment scheduled for "today" stays "today" until local midnight.

func sameDay(t, now time.Time) bool {
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func beforeDay(t, now time.Time) bool {
	t = t.In(now.Location())
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return t.Before(startOfToday)
}
