package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/response"
)

type transferService interface {
	Create(ctx context.Context, req dto.CreateTransferRequest, actor models.Actor) (*dto.TransferResult, error)
	Approve(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error)
	Reject(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error)
	Cancel(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error)
	Complete(ctx context.Context, id string, req dto.CompleteTransferRequest, actor models.Actor) (*dto.TransferResult, error)
	Remove(ctx context.Context, id string, actor models.Actor) error
	Get(ctx context.Context, id, tenantID string) (*models.TransferCase, error)
	List(ctx context.Context, tenantID string, query dto.TransferQuery) ([]models.TransferCase, *models.Pagination, error)
}

// TransferHandler exposes the cross-tenant transfer workflow.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(service transferService) *TransferHandler {
	return &TransferHandler{service: service}
}

// Create godoc
// @Summary Request a student transfer to another tenant
// @Tags Transfers
// @Accept json
// @Produce json
// @Param payload body dto.CreateTransferRequest true "Transfer payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /transfers [post]
func (h *TransferHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transfer payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result.Transfer, warningsMeta(result.Warnings))
}

// List godoc
// @Summary List transfers involving the acting tenant
// @Tags Transfers
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param direction query string false "incoming, outgoing or all"
// @Param studentId query string false "Student ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /transfers [get]
func (h *TransferHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.TransferQuery{
		Direction: models.TransferDirection(strings.ToLower(strings.TrimSpace(c.Query("direction")))),
		StudentID: strings.TrimSpace(c.Query("studentId")),
	}
	for _, status := range splitCSV(c.Query("status")) {
		query.Status = append(query.Status, models.TransferStatus(strings.ToLower(status)))
	}
	query.Page, query.PageSize = pageParams(c)
	transfers, pagination, err := h.service.List(c.Request.Context(), actor.TenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfers, pagination)
}

// Get godoc
// @Summary Get transfer detail
// @Tags Transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transfers/{id} [get]
func (h *TransferHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	transfer, err := h.service.Get(c.Request.Context(), c.Param("id"), actor.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfer, nil)
}

// Approve godoc
// @Summary Approve a requested transfer (destination tenant)
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param payload body dto.TransferDecisionRequest false "Decision note"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a requested transfer (destination tenant)
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param payload body dto.TransferDecisionRequest false "Decision note"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

// Cancel godoc
// @Summary Cancel a pending transfer (either tenant)
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param payload body dto.TransferDecisionRequest false "Decision note"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *gin.Context) {
	h.decide(c, h.service.Cancel)
}

// Complete godoc
// @Summary Complete an approved transfer (destination tenant)
// @Tags Transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param payload body dto.CompleteTransferRequest false "Placement overrides"
// @Success 200 {object} response.Envelope
// @Router /transfers/{id}/complete [post]
func (h *TransferHandler) Complete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CompleteTransferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid completion payload"))
			return
		}
	}
	result, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Transfer, nil, warningsMeta(result.Warnings))
}

// Remove godoc
// @Summary Delete a transfer that never completed (source tenant)
// @Tags Transfers
// @Param id path string true "Transfer ID"
// @Success 204
// @Router /transfers/{id} [delete]
func (h *TransferHandler) Remove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type decisionFunc func(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error)

func (h *TransferHandler) decide(c *gin.Context, fn decisionFunc) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.TransferDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
			return
		}
	}
	transfer, err := fn(c.Request.Context(), c.Param("id"), req.Note, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfer, nil)
}
