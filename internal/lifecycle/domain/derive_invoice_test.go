package domain

import (
	"testing"
	"time"
)

func TestDeriveInvoice_Draft(t *testing.T) {
	d := NewDeriver(0)

	facts := InvoiceFacts{TotalCents: 50000}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusDraft {
		t.Fatalf("expected %q, got %q", InvoiceStatusDraft, got)
	}
}

func TestDeriveInvoice_PaidIndependentOfDueDate(t *testing.T) {
	d := NewDeriver(0)

	facts := InvoiceFacts{
		TotalCents:      50000,
		AmountPaidCents: 50000,
		SentAt:          ptrTime(testNow.AddDate(0, 0, -30)),
		DueDate:         ptrTime(testNow.AddDate(0, 0, -10)),
	}

	if facts.BalanceDueCents() != 0 {
		t.Fatalf("expected zero balance, got %d", facts.BalanceDueCents())
	}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusPaid {
		t.Fatalf("expected %q, got %q", InvoiceStatusPaid, got)
	}
}

func TestDeriveInvoice_ZeroTotalIsPaid(t *testing.T) {
	d := NewDeriver(0)

	// A zero-total invoice carries no balance due, so it is paid from the
	// moment it exists.
	facts := InvoiceFacts{TotalCents: 0, AmountPaidCents: 0}
	if facts.BalanceDueCents() != 0 {
		t.Fatalf("expected zero balance, got %d", facts.BalanceDueCents())
	}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusPaid {
		t.Fatalf("expected %q, got %q", InvoiceStatusPaid, got)
	}
}

func TestDeriveInvoice_OverpaidIsPaid(t *testing.T) {
	d := NewDeriver(0)

	facts := InvoiceFacts{TotalCents: 50000, AmountPaidCents: 60000}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusPaid {
		t.Fatalf("expected %q, got %q", InvoiceStatusPaid, got)
	}
}

func TestDeriveInvoice_PastDue(t *testing.T) {
	d := NewDeriver(0)

	facts := InvoiceFacts{
		TotalCents:      50000,
		AmountPaidCents: 20000,
		SentAt:          ptrTime(testNow.AddDate(0, 0, -20)),
		DueDate:         ptrTime(testNow.AddDate(0, 0, -1)),
	}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusPastDue {
		t.Fatalf("expected %q, got %q", InvoiceStatusPastDue, got)
	}
}

func TestDeriveInvoice_DueTodayIsNotPastDue(t *testing.T) {
	d := NewDeriver(0)

	facts := InvoiceFacts{
		TotalCents: 50000,
		SentAt:     ptrTime(testNow.AddDate(0, 0, -5)),
		DueDate:    ptrTime(testNow.Add(-time.Hour)),
	}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusSent {
		t.Fatalf("expected %q, got %q", InvoiceStatusSent, got)
	}
}

func TestDeriveInvoice_UnsentNeverPastDue(t *testing.T) {
	d := NewDeriver(0)

	facts := InvoiceFacts{
		TotalCents: 50000,
		DueDate:    ptrTime(testNow.AddDate(0, 0, -10)),
	}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusDraft {
		t.Fatalf("expected %q, got %q", InvoiceStatusDraft, got)
	}
}

func TestDeriveInvoice_ArchivedDominatesPaid(t *testing.T) {
	d := NewDeriver(0)

	facts := InvoiceFacts{
		TotalCents:      50000,
		AmountPaidCents: 50000,
		ArchivedAt:      ptrTime(testNow),
	}
	if got := d.Invoice(facts, testNow); got != InvoiceStatusArchived {
		t.Fatalf("expected %q, got %q", InvoiceStatusArchived, got)
	}
}
