package service

import (
	"context"
	"testing"
	"time"

	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/internal/quotes/repository"
	"fieldops_backend/internal/quotes/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// fakeStore keeps quotes in memory. Linking a quote to a request mirrors the
// guarded pointer update in the real repository: only the first quote to claim
// a request wins, later quotes attach without converting it again.
type fakeStore struct {
	quotes         map[uuid.UUID]*repository.Quote
	linkedRequests map[uuid.UUID]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quotes:         make(map[uuid.UUID]*repository.Quote),
		linkedRequests: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *fakeStore) add(q *repository.Quote) { s.quotes[q.ID] = q }

func (s *fakeStore) Create(_ context.Context, params repository.CreateParams) (*repository.Quote, *engine.Transition, error) {
	q := &repository.Quote{
		ID:         uuid.New(),
		RequestID:  params.RequestID,
		TotalCents: params.TotalCents,
		ValidUntil: params.ValidUntil,
		Notes:      params.Notes,
		Status:     "draft",
	}
	s.add(q)

	var upstream *engine.Transition
	if params.RequestID != nil {
		if _, claimed := s.linkedRequests[*params.RequestID]; !claimed {
			s.linkedRequests[*params.RequestID] = q.ID
			upstream = &engine.Transition{
				EntityType: "request",
				EntityID:   *params.RequestID,
				From:       "pending",
				To:         "converted",
				ChangedAt:  time.Now(),
			}
		}
	}
	return q, upstream, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Quote, error) {
	q, ok := s.quotes[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	return q, nil
}

func (s *fakeStore) List(_ context.Context, params repository.ListParams) ([]repository.Quote, int, error) {
	out := make([]repository.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (s *fakeStore) Send(_ context.Context, id uuid.UUID, validUntil *time.Time, _ *uuid.UUID) (*repository.Quote, *engine.Transition, error) {
	q, ok := s.quotes[id]
	if !ok {
		return nil, nil, apperr.NotFound("quote not found")
	}
	now := time.Now()
	q.SentAt = &now
	q.ValidUntil = validUntil
	prev := q.Status
	q.Status = "sent"
	return q, &engine.Transition{EntityType: "quote", EntityID: id, From: prev, To: q.Status, ChangedAt: now}, nil
}

func (s *fakeStore) SetApproval(_ context.Context, id uuid.UUID, state string, _ *uuid.UUID) (*repository.Quote, *engine.Transition, error) {
	q, ok := s.quotes[id]
	if !ok {
		return nil, nil, apperr.NotFound("quote not found")
	}
	q.ApprovalStatus = state
	return q, nil, nil
}

func (s *fakeStore) ClientApprove(_ context.Context, id uuid.UUID, _ *uuid.UUID) (*repository.Quote, *engine.Transition, error) {
	q, ok := s.quotes[id]
	if !ok {
		return nil, nil, apperr.NotFound("quote not found")
	}
	now := time.Now()
	q.ClientApprovedAt = &now
	prev := q.Status
	q.Status = "approved"
	return q, &engine.Transition{EntityType: "quote", EntityID: id, From: prev, To: q.Status, ChangedAt: now}, nil
}

func (s *fakeStore) MarkLost(_ context.Context, id uuid.UUID, reason string, _ *uuid.UUID) (*repository.Quote, *engine.Transition, error) {
	q, ok := s.quotes[id]
	if !ok {
		return nil, nil, apperr.NotFound("quote not found")
	}
	q.LostReason = &reason
	prev := q.Status
	q.Status = "lost"
	return q, &engine.Transition{EntityType: "quote", EntityID: id, From: prev, To: q.Status, ChangedAt: time.Now()}, nil
}

func (s *fakeStore) Archive(_ context.Context, id uuid.UUID, _ *uuid.UUID) (*repository.Quote, *engine.Transition, error) {
	q, ok := s.quotes[id]
	if !ok {
		return nil, nil, apperr.NotFound("quote not found")
	}
	now := time.Now()
	q.ArchivedAt = &now
	prev := q.Status
	q.Status = "archived"
	return q, &engine.Transition{EntityType: "quote", EntityID: id, From: prev, To: q.Status, ChangedAt: now}, nil
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

func TestCreateConvertsRequestOnce(t *testing.T) {
	store := newFakeStore()
	bus := &captureBus{}
	svc := New(store, &fakeHistory{}, bus)

	requestID := uuid.New()

	first, err := svc.Create(context.Background(), transport.CreateQuoteRequest{
		RequestID:  &requestID,
		TotalCents: 80_000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published event for the first quote, got %d", len(bus.published))
	}
	event, ok := bus.published[0].(engine.StatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.published[0])
	}
	if event.Transition.EntityType != "request" || event.Transition.To != "converted" {
		t.Fatalf("expected request conversion, got %s -> %s", event.Transition.EntityType, event.Transition.To)
	}

	// A second quote against the same request still persists, but the
	// request pointer is already claimed so no conversion is published.
	second, err := svc.Create(context.Background(), transport.CreateQuoteRequest{
		RequestID:  &requestID,
		TotalCents: 95_000,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected a distinct quote for the second create")
	}
	if len(bus.published) != 1 {
		t.Fatalf("second quote against the same request must not republish a conversion, got %d events", len(bus.published))
	}
	if store.linkedRequests[requestID] != first.ID {
		t.Fatalf("expected the request to stay linked to the first quote")
	}
}

func TestCreateWithoutRequestPublishesNothing(t *testing.T) {
	store := newFakeStore()
	bus := &captureBus{}
	svc := New(store, &fakeHistory{}, bus)

	if _, err := svc.Create(context.Background(), transport.CreateQuoteRequest{TotalCents: 12_000}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected no events for an unlinked quote, got %d", len(bus.published))
	}
}

func TestHistoryRequiresExistingQuote(t *testing.T) {
	svc := New(newFakeStore(), &fakeHistory{}, &captureBus{})

	_, err := svc.History(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected not found error")
	}
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound kind, got %v", apperr.GetKind(err))
	}
}
