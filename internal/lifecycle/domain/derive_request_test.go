package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func ptrUUID() *uuid.UUID {
	id := uuid.New()
	return &id
}

func TestDeriveRequest_Default(t *testing.T) {
	d := NewDeriver(0)

	got := d.Request(RequestFacts{}, testNow)
	if got != RequestStatusPending {
		t.Fatalf("expected %q for empty facts, got %q", RequestStatusPending, got)
	}
}

func TestDeriveRequest_AssessmentOverdue(t *testing.T) {
	d := NewDeriver(0)

	// Scheduled yesterday, never completed, not archived or converted.
	facts := RequestFacts{
		AssessmentScheduledAt: ptrTime(testNow.AddDate(0, 0, -1)),
	}

	got := d.Request(facts, testNow)
	if got != RequestStatusAssessmentOverdue {
		t.Fatalf("expected %q, got %q", RequestStatusAssessmentOverdue, got)
	}
}

func TestDeriveRequest_AssessmentToday(t *testing.T) {
	d := NewDeriver(0)

	// Scheduled earlier today: today wins over overdue.
	facts := RequestFacts{
		AssessmentScheduledAt: ptrTime(testNow.Add(-2 * time.Hour)),
	}

	got := d.Request(facts, testNow)
	if got != RequestStatusAssessmentToday {
		t.Fatalf("expected %q, got %q", RequestStatusAssessmentToday, got)
	}
}

func TestDeriveRequest_AssessmentScheduledInFuture(t *testing.T) {
	d := NewDeriver(0)

	facts := RequestFacts{
		AssessmentScheduledAt: ptrTime(testNow.AddDate(0, 0, 3)),
	}

	got := d.Request(facts, testNow)
	if got != RequestStatusAssessmentScheduled {
		t.Fatalf("expected %q, got %q", RequestStatusAssessmentScheduled, got)
	}
}

func TestDeriveRequest_CompletedBeatsDateRules(t *testing.T) {
	d := NewDeriver(0)

	facts := RequestFacts{
		AssessmentScheduledAt: ptrTime(testNow.AddDate(0, 0, -5)),
		AssessmentCompletedAt: ptrTime(testNow.AddDate(0, 0, -4)),
	}

	got := d.Request(facts, testNow)
	if got != RequestStatusAssessmentCompleted {
		t.Fatalf("expected %q, got %q", RequestStatusAssessmentCompleted, got)
	}
}

func TestDeriveRequest_ConvertedBeatsAssessment(t *testing.T) {
	d := NewDeriver(0)

	facts := RequestFacts{
		AssessmentScheduledAt: ptrTime(testNow.AddDate(0, 0, -5)),
		AssessmentCompletedAt: ptrTime(testNow.AddDate(0, 0, -4)),
		ConvertedToQuoteID:    ptrUUID(),
	}

	got := d.Request(facts, testNow)
	if got != RequestStatusConverted {
		t.Fatalf("expected %q, got %q", RequestStatusConverted, got)
	}

	facts = RequestFacts{ConvertedToJobID: ptrUUID()}
	if got := d.Request(facts, testNow); got != RequestStatusConverted {
		t.Fatalf("expected %q for job conversion, got %q", RequestStatusConverted, got)
	}
}

func TestDeriveRequest_ArchivedDominatesEverything(t *testing.T) {
	d := NewDeriver(0)

	facts := RequestFacts{
		AssessmentScheduledAt: ptrTime(testNow.AddDate(0, 0, -5)),
		AssessmentCompletedAt: ptrTime(testNow.AddDate(0, 0, -4)),
		ConvertedToQuoteID:    ptrUUID(),
		ConvertedToJobID:      ptrUUID(),
		ArchivedAt:            ptrTime(testNow),
	}

	got := d.Request(facts, testNow)
	if got != RequestStatusArchived {
		t.Fatalf("expected %q, got %q", RequestStatusArchived, got)
	}
}

func TestDeriveRequest_Idempotent(t *testing.T) {
	d := NewDeriver(0)

	facts := RequestFacts{
		AssessmentScheduledAt: ptrTime(testNow.AddDate(0, 0, -1)),
	}

	first := d.Request(facts, testNow)
	second := d.Request(facts, testNow)
	if first != second {
		t.Fatalf("derivation not idempotent: %q then %q", first, second)
	}
}
