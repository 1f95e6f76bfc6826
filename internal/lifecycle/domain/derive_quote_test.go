package domain

import (
	"testing"
	"time"
)

func ptrString(s string) *string { return &s }

func TestDeriveQuote_Default(t *testing.T) {
	d := NewDeriver(0)

	if got := d.Quote(QuoteFacts{}, testNow); got != QuoteStatusDraft {
		t.Fatalf("expected %q for empty facts, got %q", QuoteStatusDraft, got)
	}
}

func TestDeriveQuote_SentRecently(t *testing.T) {
	d := NewDeriver(0)

	facts := QuoteFacts{SentAt: ptrTime(testNow.Add(-24 * time.Hour))}
	if got := d.Quote(facts, testNow); got != QuoteStatusSent {
		t.Fatalf("expected %q, got %q", QuoteStatusSent, got)
	}
}

func TestDeriveQuote_FollowUpAfterGraceWindow(t *testing.T) {
	d := NewDeriver(0)

	// Sent 4 days ago, no response, not converted.
	facts := QuoteFacts{SentAt: ptrTime(testNow.AddDate(0, 0, -4))}
	if got := d.Quote(facts, testNow); got != QuoteStatusFollowUp {
		t.Fatalf("expected %q, got %q", QuoteStatusFollowUp, got)
	}
}

func TestDeriveQuote_FollowUpWhenExpired(t *testing.T) {
	d := NewDeriver(0)

	// Sent an hour ago but validity already lapsed.
	facts := QuoteFacts{
		SentAt:     ptrTime(testNow.Add(-time.Hour)),
		ValidUntil: ptrTime(testNow.Add(-time.Minute)),
	}
	if got := d.Quote(facts, testNow); got != QuoteStatusFollowUp {
		t.Fatalf("expected %q, got %q", QuoteStatusFollowUp, got)
	}
}

func TestDeriveQuote_ConfiguredGraceWindow(t *testing.T) {
	d := NewDeriver(7 * 24 * time.Hour)

	facts := QuoteFacts{SentAt: ptrTime(testNow.AddDate(0, 0, -4))}
	if got := d.Quote(facts, testNow); got != QuoteStatusSent {
		t.Fatalf("expected %q inside a 7d window, got %q", QuoteStatusSent, got)
	}
}

func TestDeriveQuote_AwaitingInternalApproval(t *testing.T) {
	d := NewDeriver(0)

	facts := QuoteFacts{ApprovalStatus: ApprovalPending}
	if got := d.Quote(facts, testNow); got != QuoteStatusAwaitingApproval {
		t.Fatalf("expected %q, got %q", QuoteStatusAwaitingApproval, got)
	}
}

func TestDeriveQuote_ClientApprovedBeatsFollowUp(t *testing.T) {
	d := NewDeriver(0)

	facts := QuoteFacts{
		SentAt:           ptrTime(testNow.AddDate(0, 0, -10)),
		ClientApprovedAt: ptrTime(testNow.AddDate(0, 0, -1)),
	}
	if got := d.Quote(facts, testNow); got != QuoteStatusApproved {
		t.Fatalf("expected %q, got %q", QuoteStatusApproved, got)
	}
}

func TestDeriveQuote_LostBeatsApproved(t *testing.T) {
	d := NewDeriver(0)

	facts := QuoteFacts{
		ClientApprovedAt: ptrTime(testNow.AddDate(0, 0, -1)),
		LostReason:       ptrString("price too high"),
	}
	if got := d.Quote(facts, testNow); got != QuoteStatusLost {
		t.Fatalf("expected %q, got %q", QuoteStatusLost, got)
	}
}

func TestDeriveQuote_ConvertedBeatsLost(t *testing.T) {
	d := NewDeriver(0)

	facts := QuoteFacts{
		LostReason:       ptrString("stale"),
		ConvertedToJobID: ptrUUID(),
	}
	if got := d.Quote(facts, testNow); got != QuoteStatusConverted {
		t.Fatalf("expected %q, got %q", QuoteStatusConverted, got)
	}
}

func TestDeriveQuote_ArchivedDominatesEverything(t *testing.T) {
	d := NewDeriver(0)

	facts := QuoteFacts{
		SentAt:           ptrTime(testNow.AddDate(0, 0, -10)),
		ClientApprovedAt: ptrTime(testNow),
		LostReason:       ptrString("n/a"),
		ConvertedToJobID: ptrUUID(),
		ArchivedAt:       ptrTime(testNow),
	}
	if got := d.Quote(facts, testNow); got != QuoteStatusArchived {
		t.Fatalf("expected %q, got %q", QuoteStatusArchived, got)
	}
}
