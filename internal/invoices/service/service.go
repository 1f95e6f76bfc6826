package service

import (
	"context"

	"fieldops_backend/internal/invoices/repository"
	"fieldops_backend/internal/invoices/transport"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/events"

	"github.com/google/uuid"
)

// HistoryReader reads recorded status transitions for an entity.
type HistoryReader interface {
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]engine.HistoryRecord, error)
}

// Service contains the business logic for invoices and payments.
type Service struct {
	repo    repository.Store
	history HistoryReader
	bus     events.Bus
}

// New creates a new invoices service.
func New(repo repository.Store, history HistoryReader, bus events.Bus) *Service {
	return &Service{repo: repo, history: history, bus: bus}
}

// Create persists a new invoice, marking any referenced job as invoiced.
func (s *Service) Create(ctx context.Context, req transport.CreateInvoiceRequest) (*transport.InvoiceResponse, error) {
	inv, upstream, err := s.repo.Create(ctx, repository.CreateParams{
		JobID:      req.JobID,
		TotalCents: req.TotalCents,
		DueDate:    req.DueDate,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, upstream)
	return toResponse(inv), nil
}

// GetByID returns a single invoice.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.InvoiceResponse, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(inv), nil
}

// List returns invoices with pagination.
func (s *Service) List(ctx context.Context, req transport.ListInvoicesRequest) (*transport.InvoiceListResponse, error) {
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

	resp := &transport.InvoiceListResponse{
		Items:    make([]transport.InvoiceResponse, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i := range items {
		resp.Items = append(resp.Items, *toResponse(&items[i]))
	}
	return resp, nil
}

// Send marks the invoice as sent.
func (s *Service) Send(ctx context.Context, id uuid.UUID, req transport.SendInvoiceRequest, actor *uuid.UUID) (*transport.InvoiceResponse, error) {
	inv, tr, err := s.repo.Send(ctx, id, req.DueDate, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(inv), nil
}

// Archive terminates the invoice.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*transport.InvoiceResponse, error) {
	inv, tr, err := s.repo.Archive(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toResponse(inv), nil
}

// AddPayment records a payment against the invoice.
func (s *Service) AddPayment(ctx context.Context, invoiceID uuid.UUID, req transport.PaymentRequest, actor *uuid.UUID) (*transport.PaymentResponse, error) {
	payment, tr, err := s.repo.AddPayment(ctx, invoiceID, toPaymentParams(req), actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toPaymentResponse(payment), nil
}

// UpdatePayment corrects a recorded payment.
func (s *Service) UpdatePayment(ctx context.Context, invoiceID, paymentID uuid.UUID, req transport.PaymentRequest, actor *uuid.UUID) (*transport.PaymentResponse, error) {
	payment, tr, err := s.repo.UpdatePayment(ctx, invoiceID, paymentID, toPaymentParams(req), actor)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tr)
	return toPaymentResponse(payment), nil
}

// DeletePayment removes a recorded payment.
func (s *Service) DeletePayment(ctx context.Context, invoiceID, paymentID uuid.UUID, actor *uuid.UUID) error {
	tr, err := s.repo.DeletePayment(ctx, invoiceID, paymentID, actor)
	if err != nil {
		return err
	}
	s.publish(ctx, tr)
	return nil
}

// ListPayments returns the payments recorded against an invoice.
func (s *Service) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]transport.PaymentResponse, error) {
	if _, err := s.repo.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, *toPaymentResponse(&payments[i]))
	}
	return out, nil
}

// History returns the recorded status transitions for an invoice.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]transport.HistoryEntryResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.history.ListByEntity(ctx, domain.EntityInvoice, id)
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

func toPaymentParams(req transport.PaymentRequest) repository.PaymentParams {
	return repository.PaymentParams{
		AmountCents: req.AmountCents,
		PaidAt:      req.PaidAt,
		Method:      req.Method,
		Reference:   req.Reference,
	}
}

func toResponse(inv *repository.Invoice) *transport.InvoiceResponse {
	return &transport.InvoiceResponse{
		ID:              inv.ID,
		JobID:           inv.JobID,
		InvoiceNumber:   inv.InvoiceNumber,
		TotalCents:      inv.TotalCents,
		AmountPaidCents: inv.AmountPaidCents,
		BalanceDueCents: inv.BalanceDueCents,
		DueDate:         inv.DueDate,
		SentAt:          inv.SentAt,
		ArchivedAt:      inv.ArchivedAt,
		Status:          inv.Status,
		StatusChangedAt: inv.StatusChangedAt,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func toPaymentResponse(p *repository.Payment) *transport.PaymentResponse {
	return &transport.PaymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		AmountCents: p.AmountCents,
		PaidAt:      p.PaidAt,
		Method:      p.Method,
		Reference:   p.Reference,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
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
