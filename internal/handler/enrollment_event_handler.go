package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/response"
)

type enrollmentEventService interface {
	List(ctx context.Context, tenantID, enrollmentID string) ([]models.EnrollmentEvent, error)
}

// EnrollmentEventHandler exposes the enrollment timeline.
type EnrollmentEventHandler struct {
	service enrollmentEventService
}

// NewEnrollmentEventHandler constructs the handler.
func NewEnrollmentEventHandler(service enrollmentEventService) *EnrollmentEventHandler {
	return &EnrollmentEventHandler{service: service}
}

// List godoc
// @Summary List the events of an enrollment, newest first
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/events [get]
func (h *EnrollmentEventHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollmentID := c.Param("id")
	events, err := h.service.List(c.Request.Context(), actor.TenantID, enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []models.EnrollmentEvent{}
	}
	response.JSON(c, http.StatusOK, dto.EnrollmentTimeline{EnrollmentID: enrollmentID, Events: events}, nil)
}
