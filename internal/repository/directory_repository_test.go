package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRepositoryLookups(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, active, created_at FROM tenants WHERE id = $1")).
		WithArgs("tenant-b").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "created_at"}).AddRow("tenant-b", "North", true, time.Now()))
	tenant, err := repo.GetTenant(context.Background(), "tenant-b")
	require.NoError(t, err)
	require.Equal(t, "North", tenant.Name)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schools WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("school-x").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetSchool(context.Background(), "school-x")
	require.ErrorIs(t, err, sql.ErrNoRows)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE school_id = $1 AND is_active = TRUE")).
		WithArgs("school-y").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "school_id", "name", "starts_on", "ends_on", "is_active"}).
			AddRow("year-1", "tenant-b", "school-y", "2025/2026", start, start.AddDate(1, 0, 0), true))
	year, err := repo.FindActiveYear(context.Background(), "school-y")
	require.NoError(t, err)
	require.Equal(t, "year-1", year.ID)
	require.True(t, year.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_groups WHERE id = $1")).
		WithArgs("group-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "school_id", "academic_year_id", "name"}).
			AddRow("group-1", "tenant-b", "school-y", "year-1", "7A"))
	group, err := repo.GetClassGroup(context.Background(), "group-1")
	require.NoError(t, err)
	require.Equal(t, "school-y", group.SchoolID)
	require.NoError(t, mock.ExpectationsWereMet())
}
