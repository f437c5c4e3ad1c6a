package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// AcademicRecordRepository reads the academic data aggregated into snapshots.
// All reads are bounded by an AggregationScope.
type AcademicRecordRepository struct {
	db *sqlx.DB
}

// NewAcademicRecordRepository constructs the repository.
func NewAcademicRecordRepository(db *sqlx.DB) *AcademicRecordRepository {
	return &AcademicRecordRepository{db: db}
}

// scopeClause builds the enrollment predicate shared by every aggregation read.
func scopeClause(scope models.AggregationScope) (string, []interface{}) {
	args := []interface{}{scope.TenantID, scope.StudentID, scope.AsOf}
	conditions := []string{"e.tenant_id = $1", "e.student_id = $2", "e.enrolled_at <= $3"}
	if scope.SchoolID != nil {
		args = append(args, *scope.SchoolID)
		conditions = append(conditions, fmt.Sprintf("e.school_id = $%d", len(args)))
	}
	if scope.AcademicYearID != nil {
		args = append(args, *scope.AcademicYearID)
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

// ListEnrollments returns the scoped enrollments with school and year names.
func (r *AcademicRecordRepository) ListEnrollments(ctx context.Context, scope models.AggregationScope) ([]models.PayloadEnrollment, error) {
	where, args := scopeClause(scope)
	query := `SELECT e.id, e.school_id, sc.name AS school_name, e.academic_year_id, ay.name AS academic_year_name,
       e.status, e.enrolled_at, e.ended_at
	FROM enrollments e
	JOIN schools sc ON sc.id = e.school_id
	JOIN academic_years ay ON ay.id = e.academic_year_id
	WHERE ` + where + `
	ORDER BY e.enrolled_at ASC, e.id ASC`
	enrollments := make([]models.PayloadEnrollment, 0)
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list snapshot enrollments: %w", err)
	}
	return enrollments, nil
}

// ListAssessments returns assessment scores recorded up to the scope's as-of time.
func (r *AcademicRecordRepository) ListAssessments(ctx context.Context, scope models.AggregationScope) ([]models.AssessmentScore, error) {
	where, args := scopeClause(scope)
	query := `SELECT a.enrollment_id, a.subject_id, sb.name AS subject_name, a.assessment_name, a.score, a.max_score, a.recorded_at
	FROM assessment_scores a
	JOIN enrollments e ON e.id = a.enrollment_id
	JOIN subjects sb ON sb.id = a.subject_id
	WHERE ` + where + ` AND a.recorded_at <= $3
	ORDER BY a.recorded_at ASC, a.id ASC`
	scores := make([]models.AssessmentScore, 0)
	if err := r.db.SelectContext(ctx, &scores, query, args...); err != nil {
		return nil, fmt.Errorf("list snapshot assessments: %w", err)
	}
	return scores, nil
}

// ListAttendance returns per-enrollment attendance totals up to the as-of time.
func (r *AcademicRecordRepository) ListAttendance(ctx context.Context, scope models.AggregationScope) ([]models.AttendanceSummary, error) {
	where, args := scopeClause(scope)
	query := `SELECT ar.enrollment_id,
       COUNT(*) FILTER (WHERE ar.status = 'present') AS present,
       COUNT(*) FILTER (WHERE ar.status = 'absent') AS absent,
       COUNT(*) FILTER (WHERE ar.status = 'late') AS late,
       COUNT(*) FILTER (WHERE ar.status = 'excused') AS excused,
       COUNT(*) AS total
	FROM attendance_records ar
	JOIN enrollments e ON e.id = ar.enrollment_id
	WHERE ` + where + ` AND ar.attended_on <= $3
	GROUP BY ar.enrollment_id
	ORDER BY ar.enrollment_id ASC`
	summaries := make([]models.AttendanceSummary, 0)
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("list snapshot attendance: %w", err)
	}
	return summaries, nil
}

// ListResults returns final subject results for the scoped enrollments.
func (r *AcademicRecordRepository) ListResults(ctx context.Context, scope models.AggregationScope) ([]models.SubjectResult, error) {
	where, args := scopeClause(scope)
	query := `SELECT sr.enrollment_id, e.academic_year_id, sr.subject_id, sb.name AS subject_name,
       sr.final_score, sr.grade_letter, sr.passed
	FROM subject_results sr
	JOIN enrollments e ON e.id = sr.enrollment_id
	JOIN subjects sb ON sb.id = sr.subject_id
	WHERE ` + where + `
	ORDER BY e.enrolled_at ASC, sb.name ASC, sr.id ASC`
	results := make([]models.SubjectResult, 0)
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list snapshot results: %w", err)
	}
	return results, nil
}
