package service

import (
	"context"

	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/internal/quotes/repository"
	"fieldops_backend/internal/quotes/transport"
	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// HistoryReader reads recorded status transitions for an entity.
type HistoryReader interface {
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]engine.HistoryRecord, error)
}

// Service contains the business logic for quotes.
type Service struct {
	repo    repository.Store
	history HistoryReader
	bus     events.Bus
}

// New creates a new quotes service.
func New(repo repository.Store, history HistoryReader, bus events.Bus) *Service {
	return &Service{repo: repo, history: history, bus: bus}
}

// Create persists a new quote. When request_id is given the upstream request
// is converted in the same transaction.
func (s *Service) Create(ctx context.Context, req transport.CreateQuoteRequest) (*transport.QuoteResponse, error) {
	quote, upstream, err := s.repo.Create(ctx, repository.CreateParams{
		RequestID:  req.RequestID,
		TotalCents: req.TotalCents,
		ValidUntil: req.ValidUntil,
		Notes:      req.Notes,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, upstream)
	return toResponse(quote), nil
}

// GetByID returns a single quote.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.QuoteResponse, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(quote), nil
}

// List returns quotes with pagination.
func (s *Service) List(ctx context.Context, req transport.ListQuotesRequest) (*transport.QuoteListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Status:   req.Status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}

	resp := &transport.QuoteListResponse{
		Items:    make([]transport.QuoteResponse, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, *toResponse(&items[i]))
	}
	return resp, nil
}

// Send marks the quote as sent.
func (s *Service) Send(ctx context.Context, id uuid.UUID, req transport.SendQuoteRequest, actor *uuid.UUID) (*transport.QuoteResponse, error) {
	quote, tr, err := s.repo.Send(ctx, id, req.ValidUntil, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(quote), nil
}

// SetApproval moves the internal approval state.
func (s *Service) SetApproval(ctx context.Context, id uuid.UUID, req transport.SetApprovalRequest, actor *uuid.UUID) (*transport.QuoteResponse, error) {
	quote, tr, err := s.repo.SetApproval(ctx, id, req.State, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(quote), nil
}

// ClientApprove records the client's acceptance.
func (s *Service) ClientApprove(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*transport.QuoteResponse, error) {
	quote, tr, err := s.repo.ClientApprove(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(quote), nil
}

// MarkLost records why the quote was lost.
func (s *Service) MarkLost(ctx context.Context, id uuid.UUID, req transport.MarkLostRequest, actor *uuid.UUID) (*transport.QuoteResponse, error) {
	quote, tr, err := s.repo.MarkLost(ctx, id, req.Reason, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(quote), nil
}

// Archive terminates the quote.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*transport.QuoteResponse, error) {
	quote, tr, err := s.repo.Archive(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(quote), nil
}

// History returns the recorded status transitions for a quote.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]transport.HistoryEntryResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.history.ListByEntity(ctx, domain.EntityQuote, id)
	if err != nil {
		return nil, err
	}
	return toHistoryResponses(records), nil
}

func (s *Service) publish(ctx context.Context, tr *engine.Transition) {
	if tr == nil || s.bus == nil {
		return
	}
	s.bus.Publish(ctx, engine.NewStatusChangedEvent(*tr))
}

func toResponse(q *repository.Quote) *transport.QuoteResponse {
	return &transport.QuoteResponse{
		ID:               q.ID,
		RequestID:        q.RequestID,
		QuoteNumber:      q.QuoteNumber,
		TotalCents:       q.TotalCents,
		Notes:            q.Notes,
		SentAt:           q.SentAt,
		ValidUntil:       q.ValidUntil,
		ClientApprovedAt: q.ClientApprovedAt,
		LostReason:       q.LostReason,
		ApprovalStatus:   q.ApprovalStatus,
		ArchivedAt:       q.ArchivedAt,
		ConvertedToJobID: q.ConvertedToJobID,
		Status:           q.Status,
		StatusChangedAt:  q.StatusChangedAt,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

func toHistoryResponses(records []engine.HistoryRecord) []transport.HistoryEntryResponse {
	out := make([]transport.HistoryEntryResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, transport.HistoryEntryResponse{
			FromStatus: rec.FromStatus,
			ToStatus:   rec.ToStatus,
			ChangedAt:  rec.ChangedAt,
			ChangedBy:  rec.ChangedBy,
		})
	}
	return out
}
