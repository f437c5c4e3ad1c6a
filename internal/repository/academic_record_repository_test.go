package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
)

func TestAcademicRecordRepositoryScopesBySchoolAndYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicRecordRepository(db)
	asOf := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	school := "school-x"
	year := "year-a"
	scope := models.AggregationScope{TenantID: "tenant-a", StudentID: "stu-1", SchoolID: &school, AcademicYearID: &year, AsOf: asOf}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.tenant_id = $1 AND e.student_id = $2 AND e.enrolled_at <= $3 AND e.school_id = $4 AND e.academic_year_id = $5")).
		WithArgs("tenant-a", "stu-1", asOf, school, year).
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "school_name", "academic_year_id", "academic_year_name", "status", "enrolled_at", "ended_at"}).
			AddRow("enr-1", school, "SMA 1", year, "2025/2026", "active", asOf.AddDate(0, -4, 0), nil))
	enrollments, err := repo.ListEnrollments(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, "2025/2026", enrollments[0].AcademicYear)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assessment_scores a")).
		WithArgs("tenant-a", "stu-1", asOf, school, year).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id", "subject_id", "subject_name", "assessment_name", "score", "max_score", "recorded_at"}).
			AddRow("enr-1", "math", "Mathematics", "Midterm", "87.50", "100", asOf.AddDate(0, -1, 0)))
	scores, err := repo.ListAssessments(context.Background(), scope)
	require.NoError(t, err)
	require.InDelta(t, 87.5, scores[0].Score, 0.001)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records ar")).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id", "present", "absent", "late", "excused", "total"}).
			AddRow("enr-1", 40, 2, 1, 1, 44))
	attendance, err := repo.ListAttendance(context.Background(), scope)
	require.NoError(t, err)
	require.Equal(t, 44, attendance[0].Total)

	mock.ExpectQuery(regexp.QuoteMeta("FROM subject_results sr")).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id", "academic_year_id", "subject_id", "subject_name", "final_score", "grade_letter", "passed"}).
			AddRow("enr-1", year, "math", "Mathematics", nil, nil, false))
	results, err := repo.ListResults(context.Background(), scope)
	require.NoError(t, err)
	require.Nil(t, results[0].FinalScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicRecordRepositoryWithoutOptionalScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicRecordRepository(db)
	asOf := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.tenant_id = $1 AND e.student_id = $2 AND e.enrolled_at <= $3\n")).
		WithArgs("tenant-a", "stu-1", asOf).
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "school_name", "academic_year_id", "academic_year_name", "status", "enrolled_at", "ended_at"}))
	enrollments, err := repo.ListEnrollments(context.Background(), models.AggregationScope{TenantID: "tenant-a", StudentID: "stu-1", AsOf: asOf})
	require.NoError(t, err)
	require.Empty(t, enrollments)
	require.NotNil(t, enrollments)
	require.NoError(t, mock.ExpectationsWereMet())
}
