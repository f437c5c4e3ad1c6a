package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type enrollmentEventServiceMock struct {
	events     []models.EnrollmentEvent
	err        error
	lastTenant string
}

func (m *enrollmentEventServiceMock) List(ctx context.Context, tenantID, enrollmentID string) ([]models.EnrollmentEvent, error) {
	m.lastTenant = tenantID
	return m.events, m.err
}

func TestEnrollmentEventHandlerList(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	svc := &enrollmentEventServiceMock{events: []models.EnrollmentEvent{
		{ID: "ev-2", EnrollmentID: "enr-1", EventType: models.EventTransferCompleted, EffectiveAt: now},
		{ID: "ev-1", EnrollmentID: "enr-1", EventType: models.EventCreated, EffectiveAt: now.AddDate(-1, 0, 0)},
	}}
	handler := NewEnrollmentEventHandler(svc)

	c, w := newGinContext(http.MethodGet, "/enrollments/enr-1/events", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-a", svc.lastTenant)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "enr-1", data["enrollment_id"])
	events := data["events"].([]interface{})
	require.Len(t, events, 2)
	assert.Equal(t, "ev-2", events[0].(map[string]interface{})["id"])
}

func TestEnrollmentEventHandlerEmptyTimeline(t *testing.T) {
	handler := NewEnrollmentEventHandler(&enrollmentEventServiceMock{})

	c, w := newGinContext(http.MethodGet, "/enrollments/enr-1/events", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, data["events"])
}

func TestEnrollmentEventHandlerNotFound(t *testing.T) {
	handler := NewEnrollmentEventHandler(&enrollmentEventServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")})

	c, w := newGinContext(http.MethodGet, "/enrollments/enr-9/events", "", registrarClaims("tenant-b"))
	c.Params = gin.Params{{Key: "id", Value: "enr-9"}}
	handler.List(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
