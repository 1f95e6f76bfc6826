package service

import (
	"context"

	"fieldops_backend/internal/jobs/repository"
	"fieldops_backend/internal/jobs/transport"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// HistoryReader reads recorded status transitions for an entity.
type HistoryReader interface {
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]engine.HistoryRecord, error)
}

// Service contains the business logic for jobs.
type Service struct {
	repo    repository.Store
	history HistoryReader
	bus     events.Bus
}

// New creates a new jobs service.
func New(repo repository.Store, history HistoryReader, bus events.Bus) *Service {
	return &Service{repo: repo, history: history, bus: bus}
}

// Create persists a new job, converting any referenced quote and request.
func (s *Service) Create(ctx context.Context, req transport.CreateJobRequest) (*transport.JobResponse, error) {
	job, upstream, err := s.repo.Create(ctx, repository.CreateParams{
		QuoteID:   req.QuoteID,
		RequestID: req.RequestID,
		Title:     req.Title,
	})
	if err != nil {
		return nil, err
	}
	for i := range upstream {
		s.publish(ctx, &upstream[i])
	}
	return toResponse(job), nil
}

// GetByID returns a single job.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.JobResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(job), nil
}

// List returns jobs with pagination.
func (s *Service) List(ctx context.Context, req transport.ListJobsRequest) (*transport.JobListResponse, error) {
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

	resp := &transport.JobListResponse{
		Items:    make([]transport.JobResponse, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, *toResponse(&items[i]))
	}
	return resp, nil
}

// Schedule assigns the execution date and crew.
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, req transport.ScheduleJobRequest, actor *uuid.UUID) (*transport.JobResponse, error) {
	job, tr, err := s.repo.Schedule(ctx, id, req.ScheduledDate, req.CrewID, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(job), nil
}

// RecordMilestone stamps one execution milestone.
func (s *Service) RecordMilestone(ctx context.Context, id uuid.UUID, req transport.RecordMilestoneRequest, actor *uuid.UUID) (*transport.JobResponse, error) {
	job, tr, err := s.repo.RecordMilestone(ctx, id, req.Milestone, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(job), nil
}

// History returns the recorded status transitions for a job.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]transport.HistoryEntryResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.history.ListByEntity(ctx, domain.EntityJob, id)
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

func toResponse(j *repository.Job) *transport.JobResponse {
	return &transport.JobResponse{
		ID:                 j.ID,
		QuoteID:            j.QuoteID,
		RequestID:          j.RequestID,
		Title:              j.Title,
		ScheduledDate:      j.ScheduledDate,
		AssignedCrewID:     j.AssignedCrewID,
		ReadyForYardAt:     j.ReadyForYardAt,
		PickingStartedAt:   j.PickingStartedAt,
		StagingCompletedAt: j.StagingCompletedAt,
		LoadedAt:           j.LoadedAt,
		WorkStartedAt:      j.WorkStartedAt,
		WorkCompletedAt:    j.WorkCompletedAt,
		InvoicedAt:         j.InvoicedAt,
		InvoiceID:          j.InvoiceID,
		Status:             j.Status,
		StatusChangedAt:    j.StatusChangedAt,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
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
