package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/pkg/database"
)

var transferRowColumns = []string{"id", "student_id", "from_tenant_id", "from_school_id", "to_tenant_id", "to_school_id", "status",
	"requested_at", "requested_by", "approved_at", "decided_at", "decided_by", "completed_at",
	"from_enrollment_id", "to_enrollment_id", "snapshot_id", "metadata", "created_at", "updated_at", "deleted_at"}

func transferRow(id string, status models.TransferStatus, completedAt interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(transferRowColumns).
		AddRow(id, "stu-1", "tenant-a", "school-x", "tenant-b", "school-y", status,
			now, "user-a", nil, nil, nil, completedAt,
			"enr-1", nil, nil, []byte(`{"reason":"moving"}`), now, now, nil)
}

func TestTransferRepositoryCreateSurfacesPendingViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transfer_cases")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	transfer := &models.TransferCase{StudentID: "stu-1", FromTenantID: "tenant-a", ToTenantID: "tenant-b"}
	require.NoError(t, repo.Create(context.Background(), transfer))
	require.NotEmpty(t, transfer.ID)
	require.Equal(t, models.TransferRequested, transfer.Status)
	require.NotNil(t, transfer.Metadata)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transfer_cases")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: PendingTransferConstraint})
	err := repo.Create(context.Background(), &models.TransferCase{StudentID: "stu-1", FromTenantID: "tenant-a", ToTenantID: "tenant-c"})
	require.Error(t, err)
	require.True(t, database.IsUniqueViolation(err, PendingTransferConstraint))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryHasPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND status IN ($2, $3)")).
		WithArgs("stu-1", models.TransferRequested, models.TransferApproved).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	pending, err := repo.HasPending(context.Background(), "stu-1")
	require.NoError(t, err)
	require.True(t, pending)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND status IN ($2, $3)")).
		WillReturnError(sql.ErrNoRows)
	pending, err = repo.HasPending(context.Background(), "stu-2")
	require.NoError(t, err)
	require.False(t, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryListByDirection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transfer_cases WHERE deleted_at IS NULL AND to_tenant_id = $1 AND status IN ($2) ORDER BY requested_at DESC")).
		WithArgs("tenant-b", models.TransferRequested).
		WillReturnRows(transferRow("tc-1", models.TransferRequested, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transfer_cases WHERE deleted_at IS NULL AND to_tenant_id = $1")).
		WithArgs("tenant-b", models.TransferRequested).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TransferFilter{
		TenantID:  "tenant-b",
		Direction: models.DirectionIncoming,
		Statuses:  []models.TransferStatus{models.TransferRequested},
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, "moving", list[0].Metadata["reason"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryTransitionIsGuarded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)
	now := time.Now().UTC()
	by := "user-b"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transfer_cases SET status = $2, updated_at = $3, approved_at = $3, decided_by = $4")).
		WithArgs("tc-1", models.TransferApproved, now, by, models.TransferRequested).
		WillReturnRows(transferRow("tc-1", models.TransferApproved, nil))
	updated, err := repo.Transition(context.Background(), models.TransferTransition{
		ID: "tc-1", From: []models.TransferStatus{models.TransferRequested}, To: models.TransferApproved, At: now, By: &by,
	})
	require.NoError(t, err)
	require.Equal(t, models.TransferApproved, updated.Status)

	mock.ExpectQuery(regexp.QuoteMeta("metadata = metadata || $5::jsonb")).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Transition(context.Background(), models.TransferTransition{
		ID: "tc-1", From: []models.TransferStatus{models.TransferRequested, models.TransferApproved},
		To: models.TransferCancelled, At: now, By: &by, Metadata: datatypes.JSONMap{"decision_note": "withdrawn"},
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryCompleteAndSoftDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransferRepository(db)
	now := time.Now().UTC()
	toEnrollment := "enr-2"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transfer_cases SET status = $2, completed_at = $3")).
		WillReturnRows(transferRow("tc-1", models.TransferCompleted, now))
	completed, err := repo.Complete(context.Background(), CompleteTransferParams{ID: "tc-1", CompletedAt: now, ToEnrollmentID: &toEnrollment})
	require.NoError(t, err)
	require.Equal(t, models.TransferCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfer_cases SET deleted_at = $2")).
		WithArgs("tc-1", now, models.TransferCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.SoftDelete(context.Background(), "tc-1", now)
	require.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE transfer_cases SET deleted_at = $2")).
		WillReturnError(fmt.Errorf("timeout"))
	err = repo.SoftDelete(context.Background(), "tc-2", now)
	require.Error(t, err)
	require.NotErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
