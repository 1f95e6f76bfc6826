package service

import (
	"context"
	"time"

	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/internal/requests/repository"
	"fieldops_backend/internal/requests/transport"
	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// HistoryReader reads the recorded transitions for one entity.
type HistoryReader interface {
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]engine.HistoryRecord, error)
}

// Service implements the service request operations.
type Service struct {
	repo    repository.Store
	history HistoryReader
	bus     events.Bus
}

// New creates a new service request service.
func New(repo repository.Store, history HistoryReader, bus events.Bus) *Service {
	return &Service{repo: repo, history: history, bus: bus}
}

// Create registers a new intake request. The initial status is derived, not
// supplied.
func (s *Service) Create(ctx context.Context, req transport.CreateRequestRequest) (transport.RequestResponse, error) {
	created, err := s.repo.Create(ctx, req.ContactName, req.Summary, req.AssessmentScheduledAt)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	return toResponse(created), nil
}

// GetByID returns one service request.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.RequestResponse, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	return toResponse(req), nil
}

// List returns service requests with optional status filtering.
func (s *Service) List(ctx context.Context, req transport.ListRequestsRequest) (transport.RequestListResponse, error) {
	params := repository.ListParams{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.RequestListResponse{}, err
	}

	out := transport.RequestListResponse{Items: make([]transport.RequestResponse, 0, len(items)), Total: total}
	for i := range items {
		out.Items = append(out.Items, toResponse(&items[i]))
	}
	return out, nil
}

// ScheduleAssessment sets the assessment date.
func (s *Service) ScheduleAssessment(ctx context.Context, id uuid.UUID, at time.Time, actor *uuid.UUID) (transport.RequestResponse, error) {
	req, tr, err := s.repo.ScheduleAssessment(ctx, id, at, actor)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	s.publish(ctx, tr)
	return toResponse(req), nil
}

// CompleteAssessment marks the assessment done.
func (s *Service) CompleteAssessment(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (transport.RequestResponse, error) {
	req, tr, err := s.repo.CompleteAssessment(ctx, id, actor)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	s.publish(ctx, tr)
	return toResponse(req), nil
}

// Archive terminates the request.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (transport.RequestResponse, error) {
	req, tr, err := s.repo.Archive(ctx, id, actor)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	s.publish(ctx, tr)
	return toResponse(req), nil
}

// History returns the recorded transitions for a request, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]transport.HistoryEntryResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.history.ListByEntity(ctx, domain.EntityServiceRequest, id)
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

func toResponse(req *repository.ServiceRequest) transport.RequestResponse {
	return transport.RequestResponse{
		ID:                    req.ID,
		ContactName:           req.ContactName,
		Summary:               req.Summary,
		AssessmentScheduledAt: req.AssessmentScheduledAt,
		AssessmentCompletedAt: req.AssessmentCompletedAt,
		ArchivedAt:            req.ArchivedAt,
		ConvertedToQuoteID:    req.ConvertedToQuoteID,
		ConvertedToJobID:      req.ConvertedToJobID,
		Status:                req.Status,
		StatusChangedAt:       req.StatusChangedAt,
		CreatedAt:             req.CreatedAt,
		UpdatedAt:             req.UpdatedAt,
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
