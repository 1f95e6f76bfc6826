package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldops_backend/internal/invoices/service"
	"fieldops_backend/internal/invoices/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/httpkit"
	"fieldops_backend/platform/validator"
)

const (
	msgInvalidRequest   = "Invalid request body"
	msgValidationFailed = "Validation failed"
	msgInvalidID        = "Invalid invoice ID"
	msgInvalidPaymentID = "Invalid payment ID"
)

// Handler handles HTTP requests for invoices and payments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new invoices handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the invoice routes on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.GET("/:id/history", h.history)
	rg.POST("/:id/send", h.send)
	rg.POST("/:id/archive", h.archive)
	rg.GET("/:id/payments", h.listPayments)
	rg.POST("/:id/payments", h.addPayment)
	rg.PUT("/:id/payments/:paymentId", h.updatePayment)
	rg.DELETE("/:id/payments/:paymentId", h.deletePayment)
}

func (h *Handler) create(c *gin.Context) {
	var req transport.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed))
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, resp)
}

func (h *Handler) list(c *gin.Context) {
	var req transport.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}

	resp, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) history(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	entries, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, entries)
}

func (h *Handler) send(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	req := transport.SendInvoiceRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
			return
		}
	}

	resp, err := h.svc.Send(c.Request.Context(), id, req, httpkit.ActorID(c))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) archive(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Archive(c.Request.Context(), id, httpkit.ActorID(c))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) listPayments(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	payments, err := h.svc.ListPayments(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, payments)
}

func (h *Handler) addPayment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req transport.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed))
		return
	}

	resp, err := h.svc.AddPayment(c.Request.Context(), id, req, httpkit.ActorID(c))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.Created(c, resp)
}

func (h *Handler) updatePayment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	paymentID, ok := h.parsePaymentID(c)
	if !ok {
		return
	}
	var req transport.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed))
		return
	}

	resp, err := h.svc.UpdatePayment(c.Request.Context(), id, paymentID, req, httpkit.ActorID(c))
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) deletePayment(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	paymentID, ok := h.parsePaymentID(c)
	if !ok {
		return
	}
	if err := h.svc.DeletePayment(c.Request.Context(), id, paymentID, httpkit.ActorID(c)); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidID))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) parsePaymentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("paymentId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidPaymentID))
		return uuid.Nil, false
	}
	return id, true
}
