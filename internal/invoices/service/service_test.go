package service

import (
	"context"
	"testing"
	"time"

	"fieldops_backend/internal/invoices/repository"
	"fieldops_backend/internal/invoices/transport"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

type fakeStore struct {
	invoices map[uuid.UUID]*repository.Invoice
	payments map[uuid.UUID][]repository.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices: make(map[uuid.UUID]*repository.Invoice),
		payments: make(map[uuid.UUID][]repository.Payment),
	}
}

func (s *fakeStore) add(inv *repository.Invoice) { s.invoices[inv.ID] = inv }

func (s *fakeStore) Create(_ context.Context, params repository.CreateParams) (*repository.Invoice, *engine.Transition, error) {
	inv := &repository.Invoice{
		ID:              uuid.New(),
		JobID:           params.JobID,
		TotalCents:      params.TotalCents,
		BalanceDueCents: params.TotalCents,
		DueDate:         params.DueDate,
		Status:          "draft",
	}
	s.add(inv)
	var upstream *engine.Transition
	if params.JobID != nil {
		upstream = &engine.Transition{
			EntityType: "job",
			EntityID:   *params.JobID,
			From:       "completed",
			To:         "invoiced",
			ChangedAt:  time.Now(),
		}
	}
	return inv, upstream, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Invoice, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, apperr.NotFound("invoice not found")
	}
	return inv, nil
}

func (s *fakeStore) List(_ context.Context, params repository.ListParams) ([]repository.Invoice, int, error) {
	out := make([]repository.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (s *fakeStore) Send(_ context.Context, id uuid.UUID, _ *time.Time, _ *uuid.UUID) (*repository.Invoice, *engine.Transition, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, nil, apperr.NotFound("invoice not found")
	}
	now := time.Now()
	inv.SentAt = &now
	prev := inv.Status
	inv.Status = "sent"
	return inv, &engine.Transition{EntityType: "invoice", EntityID: id, From: prev, To: inv.Status, ChangedAt: now}, nil
}

func (s *fakeStore) Archive(_ context.Context, id uuid.UUID, _ *uuid.UUID) (*repository.Invoice, *engine.Transition, error) {
	inv, ok := s.invoices[id]
	if !ok {
		return nil, nil, apperr.NotFound("invoice not found")
	}
	now := time.Now()
	inv.ArchivedAt = &now
	prev := inv.Status
	inv.Status = "archived"
	return inv, &engine.Transition{EntityType: "invoice", EntityID: id, From: prev, To: inv.Status, ChangedAt: now}, nil
}

func (s *fakeStore) AddPayment(_ context.Context, invoiceID uuid.UUID, params repository.PaymentParams, actor *uuid.UUID) (*repository.Payment, *engine.Transition, error) {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return nil, nil, apperr.NotFound("invoice not found")
	}
	p := repository.Payment{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		AmountCents: params.AmountCents,
		PaidAt:      params.PaidAt,
	}
	s.payments[invoiceID] = append(s.payments[invoiceID], p)
	inv.AmountPaidCents += params.AmountCents
	inv.BalanceDueCents = inv.TotalCents - inv.AmountPaidCents
	var tr *engine.Transition
	if inv.BalanceDueCents <= 0 && inv.Status != "paid" {
		prev := inv.Status
		inv.Status = "paid"
		tr = &engine.Transition{EntityType: "invoice", EntityID: invoiceID, From: prev, To: "paid", ChangedAt: time.Now(), ChangedBy: actor}
	}
	return &p, tr, nil
}

func (s *fakeStore) UpdatePayment(_ context.Context, invoiceID, paymentID uuid.UUID, params repository.PaymentParams, _ *uuid.UUID) (*repository.Payment, *engine.Transition, error) {
	for i, p := range s.payments[invoiceID] {
		if p.ID == paymentID {
			s.payments[invoiceID][i].AmountCents = params.AmountCents
			return &s.payments[invoiceID][i], nil, nil
		}
	}
	return nil, nil, apperr.NotFound("payment not found")
}

func (s *fakeStore) DeletePayment(_ context.Context, invoiceID, paymentID uuid.UUID, _ *uuid.UUID) (*engine.Transition, error) {
	for i, p := range s.payments[invoiceID] {
		if p.ID == paymentID {
			s.payments[invoiceID] = append(s.payments[invoiceID][:i], s.payments[invoiceID][i+1:]...)
			return nil, nil
		}
	}
	return nil, apperr.NotFound("payment not found")
}

func (s *fakeStore) ListPayments(_ context.Context, invoiceID uuid.UUID) ([]repository.Payment, error) {
	return s.payments[invoiceID], nil
}

type fakeHistory struct {
	records []engine.HistoryRecord
}

func (f *fakeHistory) ListByEntity(_ context.Context, _ string, _ uuid.UUID) ([]engine.HistoryRecord, error) {
	return f.records, nil
}

type captureBus struct {
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *captureBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func TestCreatePublishesUpstreamTransition(t *testing.T) {
	store := newFakeStore()
	bus := &captureBus{}
	svc := New(store, &fakeHistory{}, bus)

	jobID := uuid.New()
	resp, err := svc.Create(context.Background(), transport.CreateInvoiceRequest{
		JobID:      &jobID,
		TotalCents: 150_000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if resp.BalanceDueCents != 150_000 {
		t.Fatalf("expected full balance due, got %d", resp.BalanceDueCents)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(bus.published))
	}
	event, ok := bus.published[0].(engine.StatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.published[0])
	}
	if event.Transition.To != "invoiced" {
		t.Fatalf("expected upstream job transition to invoiced, got %s", event.Transition.To)
	}
}

func TestCreateWithoutJobPublishesNothing(t *testing.T) {
	store := newFakeStore()
	bus := &captureBus{}
	svc := New(store, &fakeHistory{}, bus)

	if _, err := svc.Create(context.Background(), transport.CreateInvoiceRequest{TotalCents: 5_000}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected no events for an unlinked invoice, got %d", len(bus.published))
	}
}

func TestAddPaymentPublishesOnlyRealizedTransitions(t *testing.T) {
	store := newFakeStore()
	bus := &captureBus{}
	svc := New(store, &fakeHistory{}, bus)

	inv := &repository.Invoice{ID: uuid.New(), TotalCents: 10_000, BalanceDueCents: 10_000, Status: "sent"}
	store.add(inv)

	partial := transport.PaymentRequest{AmountCents: 4_000, PaidAt: time.Now()}
	if _, err := svc.AddPayment(context.Background(), inv.ID, partial, nil); err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("partial payment must not publish a transition, got %d events", len(bus.published))
	}

	rest := transport.PaymentRequest{AmountCents: 6_000, PaidAt: time.Now()}
	if _, err := svc.AddPayment(context.Background(), inv.ID, rest, nil); err != nil {
		t.Fatalf("AddPayment returned error: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event after settling payment, got %d", len(bus.published))
	}
	event := bus.published[0].(engine.StatusChangedEvent)
	if event.Transition.To != "paid" {
		t.Fatalf("expected transition to paid, got %s", event.Transition.To)
	}
}

func TestHistoryRequiresExistingInvoice(t *testing.T) {
	svc := New(newFakeStore(), &fakeHistory{}, &captureBus{})

	_, err := svc.History(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected not found error")
	}
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound kind, got %v", apperr.GetKind(err))
	}
}

func TestListClampsPagination(t *testing.T) {
	store := newFakeStore()
	store.add(&repository.Invoice{ID: uuid.New(), Status: "draft"})
	svc := New(store, &fakeHistory{}, &captureBus{})

	resp, err := svc.List(context.Background(), transport.ListInvoicesRequest{Page: -3, PageSize: 9999})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if resp.Page != 1 || resp.PageSize != 20 {
		t.Fatalf("expected clamped pagination 1/20, got %d/%d", resp.Page, resp.PageSize)
	}
}
