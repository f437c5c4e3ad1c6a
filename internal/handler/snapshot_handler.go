package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/response"
)

type snapshotService interface {
	Generate(ctx context.Context, tenantID string, req dto.GenerateSnapshotRequest, actor models.Actor) (*models.AcademicRecordSnapshot, error)
	Finalize(ctx context.Context, id, tenantID, notes string, actor models.Actor) (*models.AcademicRecordSnapshot, error)
	Revoke(ctx context.Context, id, tenantID, reason string, actor models.Actor) (*models.AcademicRecordSnapshot, error)
	Verify(ctx context.Context, id, tenantID string) (*dto.VerifySnapshotResponse, error)
	Get(ctx context.Context, id, tenantID string) (*models.AcademicRecordSnapshot, error)
	List(ctx context.Context, tenantID string, query dto.SnapshotQuery) ([]models.AcademicRecordSnapshot, *models.Pagination, error)
	Export(ctx context.Context, id, tenantID, format string) (*dto.SnapshotExport, error)
}

// SnapshotHandler exposes academic record snapshot endpoints.
type SnapshotHandler struct {
	service snapshotService
}

// NewSnapshotHandler constructs the handler.
func NewSnapshotHandler(service snapshotService) *SnapshotHandler {
	return &SnapshotHandler{service: service}
}

// Generate godoc
// @Summary Generate a draft academic record snapshot
// @Tags Snapshots
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSnapshotRequest true "Snapshot scope"
// @Success 201 {object} response.Envelope
// @Router /snapshots [post]
func (h *SnapshotHandler) Generate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GenerateSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid snapshot payload"))
		return
	}
	snapshot, err := h.service.Generate(c.Request.Context(), actor.TenantID, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snapshot)
}

// List godoc
// @Summary List snapshots of the acting tenant
// @Tags Snapshots
// @Produce json
// @Param studentId query string false "Student ID"
// @Param kind query string false "Snapshot kind"
// @Param status query string false "active, superseded or revoked"
// @Param isFinal query bool false "Only final or only draft snapshots"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /snapshots [get]
func (h *SnapshotHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.SnapshotQuery{StudentID: strings.TrimSpace(c.Query("studentId"))}
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind := models.SnapshotKind(strings.ToLower(raw))
		query.Kind = &kind
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.SnapshotStatus(strings.ToLower(raw))
		query.Status = &status
	}
	isFinal, err := optionalBool(c, "isFinal")
	if err != nil {
		response.Error(c, err)
		return
	}
	query.IsFinal = isFinal
	query.Page, query.PageSize = pageParams(c)

	snapshots, pagination, err := h.service.List(c.Request.Context(), actor.TenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, pagination)
}

// Get godoc
// @Summary Get snapshot detail including payload
// @Tags Snapshots
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} response.Envelope
// @Router /snapshots/{id} [get]
func (h *SnapshotHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	snapshot, err := h.service.Get(c.Request.Context(), c.Param("id"), actor.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Finalize godoc
// @Summary Seal a draft snapshot and supersede its siblings
// @Tags Snapshots
// @Accept json
// @Produce json
// @Param id path string true "Snapshot ID"
// @Param payload body dto.FinalizeSnapshotRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /snapshots/{id}/finalize [post]
func (h *SnapshotHandler) Finalize(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.FinalizeSnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid finalize payload"))
			return
		}
	}
	snapshot, err := h.service.Finalize(c.Request.Context(), c.Param("id"), actor.TenantID, req.Notes, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Revoke godoc
// @Summary Revoke a snapshot
// @Tags Snapshots
// @Accept json
// @Produce json
// @Param id path string true "Snapshot ID"
// @Param payload body dto.RevokeSnapshotRequest true "Revocation reason"
// @Success 200 {object} response.Envelope
// @Router /snapshots/{id}/revoke [post]
func (h *SnapshotHandler) Revoke(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RevokeSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid revoke payload"))
		return
	}
	snapshot, err := h.service.Revoke(c.Request.Context(), c.Param("id"), actor.TenantID, req.Reason, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Verify godoc
// @Summary Recompute and compare the payload hash
// @Tags Snapshots
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} response.Envelope
// @Router /snapshots/{id}/verify [get]
func (h *SnapshotHandler) Verify(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Verify(c.Request.Context(), c.Param("id"), actor.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download a snapshot transcript
// @Tags Snapshots
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Snapshot ID"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} file
// @Router /snapshots/{id}/export [get]
func (h *SnapshotHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	export, err := h.service.Export(c.Request.Context(), c.Param("id"), actor.TenantID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, export.ContentType, export.Content)
}
