package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/pkg/database"
)

var snapshotRowColumns = []string{"id", "tenant_id", "school_id", "student_id", "kind", "academic_year_id", "as_of_at", "version", "is_final", "status",
	"payload", "payload_schema_version", "payload_hash", "hash_algo", "hash_encoding", "source_type", "source_transfer_case_id",
	"notes", "finalized_at", "finalized_by", "revoked_at", "revoked_by", "revoked_reason", "created_by", "created_at", "updated_at", "deleted_at"}

func snapshotRow(id string, version int, final bool, status models.SnapshotStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(snapshotRowColumns).
		AddRow(id, "tenant-a", nil, "stu-1", "academic_year", "year-a", now, version, final, status,
			[]byte(`{"schema_version":1}`), 1, "abc", "sha256", "hex", "manual", nil,
			nil, nil, nil, nil, nil, nil, nil, now, now, nil)
}

func TestSnapshotRepositoryMaxVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM academic_record_snapshots")).
		WithArgs("tenant-a", "stu-1", models.SnapshotKindAcademicYear).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	version, err := repo.MaxVersion(context.Background(), "tenant-a", "stu-1", models.SnapshotKindAcademicYear)
	require.NoError(t, err)
	require.Equal(t, 3, version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func lockRows(slots ...[]driver.Value) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "is_final", "status"})
	for _, slot := range slots {
		rows.AddRow(slot...)
	}
	return rows
}

func TestSnapshotRepositoryCreateDraftStaysOutOfActiveSlotAfterFinal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)
	newDraft := func() *models.AcademicRecordSnapshot {
		return &models.AcademicRecordSnapshot{
			TenantID: "tenant-a", StudentID: "stu-1", Kind: models.SnapshotKindAcademicYear,
			Version: 2, Status: models.SnapshotActive, Payload: []byte(`{}`), SourceType: models.SnapshotSourceManual,
		}
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id FOR UPDATE")).
		WithArgs("tenant-a", "stu-1", models.SnapshotKindAcademicYear).
		WillReturnRows(lockRows([]driver.Value{"snap-1", false, models.SnapshotActive}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO academic_record_snapshots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	draft := newDraft()
	require.NoError(t, repo.Create(context.Background(), draft))
	require.Equal(t, models.SnapshotActive, draft.Status)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id FOR UPDATE")).
		WillReturnRows(lockRows(
			[]driver.Value{"snap-1", true, models.SnapshotActive},
			[]driver.Value{"snap-2", false, models.SnapshotSuperseded},
		))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO academic_record_snapshots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	draft = newDraft()
	require.NoError(t, repo.Create(context.Background(), draft))
	require.Equal(t, models.SnapshotSuperseded, draft.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryCreateFinalSupersedesInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id FOR UPDATE")).
		WillReturnRows(lockRows([]driver.Value{"snap-1", false, models.SnapshotActive}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_record_snapshots SET status = $5")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO academic_record_snapshots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	snapshot := &models.AcademicRecordSnapshot{
		TenantID: "tenant-a", StudentID: "stu-1", Kind: models.SnapshotKindTransferPacket,
		Version: 1, IsFinal: true, Payload: []byte(`{}`), SourceType: models.SnapshotSourceTransfer,
	}
	require.NoError(t, repo.CreateFinal(context.Background(), snapshot))
	require.NotEmpty(t, snapshot.ID)
	require.Equal(t, models.SnapshotActive, snapshot.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryFinalizeRollsBackWhenTargetNotEligible(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)
	params := FinalizeSnapshotParams{
		ID: "snap-2", TenantID: "tenant-a", StudentID: "stu-1", Kind: models.SnapshotKindAcademicYear, FinalizedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id FOR UPDATE")).
		WillReturnRows(lockRows([]driver.Value{"snap-1", false, models.SnapshotActive}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_record_snapshots SET status = $5")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SET is_final = TRUE")).
		WillReturnRows(snapshotRow("snap-2", 2, true, models.SnapshotActive))
	mock.ExpectCommit()
	finalized, err := repo.Finalize(context.Background(), params)
	require.NoError(t, err)
	require.True(t, finalized.IsFinal)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id FOR UPDATE")).
		WillReturnRows(lockRows([]driver.Value{"snap-1", false, models.SnapshotActive}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_record_snapshots SET status = $5")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SET is_final = TRUE")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()
	_, err = repo.Finalize(context.Background(), params)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryFinalizeLocksSiblingsBeforeWriting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)
	params := FinalizeSnapshotParams{
		ID: "snap-2", TenantID: "tenant-a", StudentID: "stu-1", Kind: models.SnapshotKindAcademicYear, FinalizedAt: time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id FOR UPDATE")).
		WithArgs("tenant-a", "stu-1", models.SnapshotKindAcademicYear).
		WillReturnError(&pq.Error{Code: "40P01"})
	mock.ExpectRollback()
	_, err := repo.Finalize(context.Background(), params)
	require.True(t, database.IsDeadlock(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryRevoke(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SET status = $3, revoked_at = $4")).
		WithArgs("snap-1", "tenant-a", models.SnapshotRevoked, now, nil, "entered in error").
		WillReturnRows(snapshotRow("snap-1", 1, true, models.SnapshotRevoked))
	revoked, err := repo.Revoke(context.Background(), RevokeSnapshotParams{ID: "snap-1", TenantID: "tenant-a", Reason: "entered in error", RevokedAt: now})
	require.NoError(t, err)
	require.Equal(t, models.SnapshotRevoked, revoked.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SET status = $3, revoked_at = $4")).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Revoke(context.Background(), RevokeSnapshotParams{ID: "snap-1", TenantID: "tenant-a", Reason: "again", RevokedAt: now})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)
	kind := models.SnapshotKindAcademicYear
	final := true

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id = $1 AND deleted_at IS NULL AND student_id = $2 AND kind = $3 AND is_final = $4")).
		WithArgs("tenant-a", "stu-1", kind, final).
		WillReturnRows(snapshotRow("snap-1", 1, true, models.SnapshotActive))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM academic_record_snapshots")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SnapshotFilter{TenantID: "tenant-a", StudentID: "stu-1", Kind: &kind, IsFinal: &final})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.JSONEq(t, `{"schema_version":1}`, string(list[0].Payload))
	require.NoError(t, mock.ExpectationsWereMet())
}
