package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
)

func TestStudentRepositoryGetWithPersonSkipsDeleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1 AND s.deleted_at IS NULL")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "full_name", "birth_date", "document_number", "created_at", "deleted_at"}).
			AddRow("stu-1", "per-1", "Ana Putri", nil, nil, time.Now(), nil))
	student, err := repo.GetWithPerson(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, "Ana Putri", student.FullName)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1 AND s.deleted_at IS NULL")).
		WithArgs("stu-gone").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetWithPerson(context.Background(), "stu-gone")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryProfiles(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_tenant_profiles")).
		WithArgs("tenant-a", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "student_id", "status", "created_at"}).
			AddRow("stp-1", "tenant-a", "stu-1", "active", time.Now()))
	profile, err := repo.FindTenantProfile(context.Background(), "tenant-a", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.ProfileStatusActive, profile.Status)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_tenant_profiles")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	created := &models.StudentTenantProfile{TenantID: "tenant-b", StudentID: "stu-1"}
	require.NoError(t, repo.CreateTenantProfile(context.Background(), created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, models.ProfileStatusActive, created.Status)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_school_profiles")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	school := &models.StudentSchoolProfile{TenantID: "tenant-b", SchoolID: "school-y", StudentID: "stu-1"}
	require.NoError(t, repo.CreateSchoolProfile(context.Background(), school))
	require.NotEmpty(t, school.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryActivateProfiles(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE student_tenant_profiles SET status = $2 WHERE id = $1")).
		WithArgs("stp-1", models.ProfileStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "student_id", "status", "created_at"}).
			AddRow("stp-1", "tenant-b", "stu-1", "active", time.Now()))
	tenant, err := repo.ActivateTenantProfile(context.Background(), "stp-1")
	require.NoError(t, err)
	require.Equal(t, models.ProfileStatusActive, tenant.Status)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE student_school_profiles SET status = $2 WHERE id = $1")).
		WithArgs("ssp-gone", models.ProfileStatusActive).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.ActivateSchoolProfile(context.Background(), "ssp-gone")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
