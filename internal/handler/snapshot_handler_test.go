package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type snapshotServiceMock struct {
	generateReq dto.GenerateSnapshotRequest
	lastTenant  string
	lastQuery   dto.SnapshotQuery
	notes       string
	reason      string
	format      string
	getErr      error
	verify      *dto.VerifySnapshotResponse
}

func (m *snapshotServiceMock) Generate(ctx context.Context, tenantID string, req dto.GenerateSnapshotRequest, actor models.Actor) (*models.AcademicRecordSnapshot, error) {
	m.generateReq = req
	m.lastTenant = tenantID
	return &models.AcademicRecordSnapshot{ID: "snap-1", TenantID: tenantID, StudentID: req.StudentID, Kind: req.Kind, Version: 1}, nil
}

func (m *snapshotServiceMock) Finalize(ctx context.Context, id, tenantID, notes string, actor models.Actor) (*models.AcademicRecordSnapshot, error) {
	m.notes = notes
	return &models.AcademicRecordSnapshot{ID: id, IsFinal: true}, nil
}

func (m *snapshotServiceMock) Revoke(ctx context.Context, id, tenantID, reason string, actor models.Actor) (*models.AcademicRecordSnapshot, error) {
	m.reason = reason
	return &models.AcademicRecordSnapshot{ID: id, Status: models.SnapshotRevoked}, nil
}

func (m *snapshotServiceMock) Verify(ctx context.Context, id, tenantID string) (*dto.VerifySnapshotResponse, error) {
	return m.verify, nil
}

func (m *snapshotServiceMock) Get(ctx context.Context, id, tenantID string) (*models.AcademicRecordSnapshot, error) {
	m.lastTenant = tenantID
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.AcademicRecordSnapshot{ID: id, TenantID: tenantID}, nil
}

func (m *snapshotServiceMock) List(ctx context.Context, tenantID string, query dto.SnapshotQuery) ([]models.AcademicRecordSnapshot, *models.Pagination, error) {
	m.lastQuery = query
	return []models.AcademicRecordSnapshot{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *snapshotServiceMock) Export(ctx context.Context, id, tenantID, format string) (*dto.SnapshotExport, error) {
	m.format = format
	if format == "xml" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &dto.SnapshotExport{Filename: "snapshot-full_history-v1.csv", ContentType: "text/csv", Content: []byte("section,field,value\n")}, nil
}

func TestSnapshotHandlerGenerate(t *testing.T) {
	svc := &snapshotServiceMock{}
	handler := NewSnapshotHandler(svc)

	c, w := newGinContext(http.MethodPost, "/snapshots", `{"studentId":"student-1","kind":"full_history","includeAttendance":false}`, registrarClaims("tenant-a"))
	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tenant-a", svc.lastTenant)
	assert.Equal(t, models.SnapshotKind("full_history"), svc.generateReq.Kind)
	require.NotNil(t, svc.generateReq.IncludeAttendance)
	assert.False(t, *svc.generateReq.IncludeAttendance)
	assert.Nil(t, svc.generateReq.IncludeResults)
}

func TestSnapshotHandlerListFilters(t *testing.T) {
	svc := &snapshotServiceMock{}
	handler := NewSnapshotHandler(svc)

	c, w := newGinContext(http.MethodGet, "/snapshots?studentId=student-1&kind=FULL_HISTORY&status=active&isFinal=true&page_size=10", "", registrarClaims("tenant-a"))
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student-1", svc.lastQuery.StudentID)
	require.NotNil(t, svc.lastQuery.Kind)
	assert.Equal(t, models.SnapshotKind("full_history"), *svc.lastQuery.Kind)
	require.NotNil(t, svc.lastQuery.Status)
	assert.Equal(t, models.SnapshotActive, *svc.lastQuery.Status)
	require.NotNil(t, svc.lastQuery.IsFinal)
	assert.True(t, *svc.lastQuery.IsFinal)
	assert.Equal(t, 10, svc.lastQuery.PageSize)
}

func TestSnapshotHandlerListRejectsBadBoolean(t *testing.T) {
	handler := NewSnapshotHandler(&snapshotServiceMock{})

	c, w := newGinContext(http.MethodGet, "/snapshots?isFinal=maybe", "", registrarClaims("tenant-a"))
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnapshotHandlerGetHidesOtherTenants(t *testing.T) {
	svc := &snapshotServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "snapshot not found")}
	handler := NewSnapshotHandler(svc)

	c, w := newGinContext(http.MethodGet, "/snapshots/snap-1", "", registrarClaims("tenant-b"))
	c.Params = gin.Params{{Key: "id", Value: "snap-1"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "tenant-b", svc.lastTenant)
}

func TestSnapshotHandlerGetStoreFailure(t *testing.T) {
	svc := &snapshotServiceMock{getErr: appErrors.Store(errors.New("connection reset"), "failed to load snapshot")}
	handler := NewSnapshotHandler(svc)

	c, w := newGinContext(http.MethodGet, "/snapshots/snap-1", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "snap-1"}}
	handler.Get(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, c.Errors, 1)
}

func TestSnapshotHandlerFinalizeAndRevoke(t *testing.T) {
	svc := &snapshotServiceMock{}
	handler := NewSnapshotHandler(svc)

	c, w := newGinContext(http.MethodPost, "/snapshots/snap-1/finalize", `{"notes":"signed"}`, registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "snap-1"}}
	handler.Finalize(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed", svc.notes)

	c, w = newGinContext(http.MethodPost, "/snapshots/snap-1/revoke", `{"reason":"issued in error"}`, registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "snap-1"}}
	handler.Revoke(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "issued in error", svc.reason)
}

func TestSnapshotHandlerVerify(t *testing.T) {
	svc := &snapshotServiceMock{verify: &dto.VerifySnapshotResponse{SnapshotID: "snap-1", Valid: false, StoredHash: "aa", ComputedHash: "bb"}}
	handler := NewSnapshotHandler(svc)

	c, w := newGinContext(http.MethodGet, "/snapshots/snap-1/verify", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "snap-1"}}
	handler.Verify(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, "bb", data["computed_hash"])
}

func TestSnapshotHandlerExport(t *testing.T) {
	svc := &snapshotServiceMock{}
	handler := NewSnapshotHandler(svc)

	c, w := newGinContext(http.MethodGet, "/snapshots/snap-1/export?format=csv", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "snap-1"}}
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "snapshot-full_history-v1.csv")
	assert.Equal(t, "section,field,value\n", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/snapshots/snap-1/export?format=xml", "", registrarClaims("tenant-a"))
	c.Params = gin.Params{{Key: "id", Value: "snap-1"}}
	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
