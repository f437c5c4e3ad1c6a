package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/middleware"
	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type transferServiceMock struct {
	createReq    dto.CreateTransferRequest
	createResult *dto.TransferResult
	createErr    error
	decided      string
	note         string
	decisionErr  error
	completeReq  dto.CompleteTransferRequest
	completeRes  *dto.TransferResult
	removed      string
	removeErr    error
	lastQuery    dto.TransferQuery
	lastActor    models.Actor
}

func (m *transferServiceMock) Create(ctx context.Context, req dto.CreateTransferRequest, actor models.Actor) (*dto.TransferResult, error) {
	m.createReq = req
	m.lastActor = actor
	return m.createResult, m.createErr
}

func (m *transferServiceMock) decision(name, id, note string, actor models.Actor) (*models.TransferCase, error) {
	m.decided = name
	m.note = note
	m.lastActor = actor
	if m.decisionErr != nil {
		return nil, m.decisionErr
	}
	return &models.TransferCase{ID: id, Status: models.TransferStatus(name)}, nil
}

func (m *transferServiceMock) Approve(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error) {
	return m.decision("approved", id, note, actor)
}

func (m *transferServiceMock) Reject(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error) {
	return m.decision("rejected", id, note, actor)
}

func (m *transferServiceMock) Cancel(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error) {
	return m.decision("cancelled", id, note, actor)
}

func (m *transferServiceMock) Complete(ctx context.Context, id string, req dto.CompleteTransferRequest, actor models.Actor) (*dto.TransferResult, error) {
	m.completeReq = req
	return m.completeRes, nil
}

func (m *transferServiceMock) Remove(ctx context.Context, id string, actor models.Actor) error {
	m.removed = id
	return m.removeErr
}

func (m *transferServiceMock) Get(ctx context.Context, id, tenantID string) (*models.TransferCase, error) {
	return &models.TransferCase{ID: id, FromTenantID: tenantID}, nil
}

func (m *transferServiceMock) List(ctx context.Context, tenantID string, query dto.TransferQuery) ([]models.TransferCase, *models.Pagination, error) {
	m.lastQuery = query
	return []models.TransferCase{{ID: "tc-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func newGinContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func registrarClaims(tenantID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + tenantID, TenantID: tenantID, Role: models.RoleRegistrar}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTransferHandlerCreateReturnsWarnings(t *testing.T) {
	svc := &transferServiceMock{createResult: &dto.TransferResult{
		Transfer: &models.TransferCase{ID: "tc-1", Status: models.TransferRequested},
		Warnings: []string{"created event for enrollment enr-1 was not recorded"},
	}}
	handler := NewTransferHandler(svc)

	c, w := newGinContext(http.MethodPost, "/transfers", `{"studentId":"student-1","toTenantId":"tenant-b","reason":"moving"}`, registrarClaims("tenant-a"))
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "student-1", svc.createReq.StudentID)
	assert.Equal(t, "tenant-b", svc.createReq.ToTenantID)
	assert.Equal(t, "tenant-a", svc.lastActor.TenantID)
	assert.Equal(t, models.ActorUser, svc.lastActor.Type)

	body := decodeEnvelope(t, w)
	meta := body["meta"].(map[string]interface{})
	assert.Len(t, meta["warnings"], 1)
}

func TestTransferHandlerCreateRequiresTenantClaims(t *testing.T) {
	handler := NewTransferHandler(&transferServiceMock{})

	c, w := newGinContext(http.MethodPost, "/transfers", `{}`, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTransferHandlerCreateInvalidBody(t *testing.T) {
	handler := NewTransferHandler(&transferServiceMock{})

	c, w := newGinContext(http.MethodPost, "/transfers", `{"studentId":`, registrarClaims("tenant-a"))
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferHandlerCreateConflict(t *testing.T) {
	svc := &transferServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "student already has a pending transfer")}
	handler := NewTransferHandler(svc)

	c, w := newGinContext(http.MethodPost, "/transfers", `{"studentId":"student-1","toTenantId":"tenant-b"}`, registrarClaims("tenant-a"))
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, "CONFLICT", body["error"].(map[string]interface{})["code"])
}

func TestTransferHandlerListParsesFilters(t *testing.T) {
	svc := &transferServiceMock{}
	handler := NewTransferHandler(svc)

	c, w := newGinContext(http.MethodGet, "/transfers?status=Requested,approved&direction=INCOMING&page=2&pageSize=5", "", registrarClaims("tenant-b"))
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.TransferStatus{models.TransferRequested, models.TransferApproved}, svc.lastQuery.Status)
	assert.Equal(t, models.DirectionIncoming, svc.lastQuery.Direction)
	assert.Equal(t, 2, svc.lastQuery.Page)
	assert.Equal(t, 5, svc.lastQuery.PageSize)
}

func TestTransferHandlerDecisionsPassNote(t *testing.T) {
	svc := &transferServiceMock{}
	handler := NewTransferHandler(svc)

	c, w := newGinContext(http.MethodPost, "/transfers/tc-1/approve", `{"note":"welcome"}`, registrarClaims("tenant-b"))
	c.Params = gin.Params{{Key: "id", Value: "tc-1"}}
	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", svc.decided)
	assert.Equal(t, "welcome", svc.note)

	c, w = newGinContext(http.MethodPost, "/transfers/tc-1/cancel", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "tc-1"}}
	handler.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", svc.decided)
	assert.Empty(t, svc.note)
}

func TestTransferHandlerDecisionForbidden(t *testing.T) {
	svc := &transferServiceMock{decisionErr: appErrors.Clone(appErrors.ErrForbidden, "only the destination tenant can reject")}
	handler := NewTransferHandler(svc)

	c, w := newGinContext(http.MethodPost, "/transfers/tc-1/reject", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "tc-1"}}
	handler.Reject(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTransferHandlerCompleteBindsOverrides(t *testing.T) {
	svc := &transferServiceMock{completeRes: &dto.TransferResult{
		Transfer: &models.TransferCase{ID: "tc-1", Status: models.TransferCompleted},
	}}
	handler := NewTransferHandler(svc)

	c, w := newGinContext(http.MethodPost, "/transfers/tc-1/complete", `{"toClassGroupId":"group-b"}`, registrarClaims("tenant-b"))
	c.Params = gin.Params{{Key: "id", Value: "tc-1"}}
	handler.Complete(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.completeReq.ClassGroupID)
	assert.Equal(t, "group-b", *svc.completeReq.ClassGroupID)
	body := decodeEnvelope(t, w)
	assert.Nil(t, body["meta"])
}

func TestTransferHandlerRemove(t *testing.T) {
	svc := &transferServiceMock{}
	handler := NewTransferHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/transfers/tc-1", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "tc-1"}}
	handler.Remove(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tc-1", svc.removed)
}
