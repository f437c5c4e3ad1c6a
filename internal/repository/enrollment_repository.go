package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

const enrollmentColumns = `id, tenant_id, school_id, student_id, academic_year_id, status, enrolled_at, ended_at`

// EnrollmentRepository handles persistence of enrollments and class memberships.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindActiveByStudentAndSchool returns the student's active enrollment at a school.
func (r *EnrollmentRepository) FindActiveByStudentAndSchool(ctx context.Context, tenantID, studentID, schoolID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments
	WHERE tenant_id = $1 AND student_id = $2 AND school_id = $3 AND status = $4
	ORDER BY enrolled_at DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, tenantID, studentID, schoolID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindActiveByStudent returns the student's most recent active enrollment in a tenant.
func (r *EnrollmentRepository) FindActiveByStudent(ctx context.Context, tenantID, studentID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments
	WHERE tenant_id = $1 AND student_id = $2 AND status = $3
	ORDER BY enrolled_at DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, tenantID, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, tenant_id, school_id, student_id, academic_year_id, status, enrolled_at, ended_at)
	VALUES (:id, :tenant_id, :school_id, :student_id, :academic_year_id, :status, :enrolled_at, :ended_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// TransitionStatus moves an enrollment from one status to another. It reports
// false without error when the enrollment was no longer in the from status.
func (r *EnrollmentRepository) TransitionStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, endedAt *time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = $3, ended_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, endedAt)
	if err != nil {
		return false, fmt.Errorf("update enrollment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check enrollment update rows: %w", err)
	}
	return rows > 0, nil
}

// FindOpenClassMembership returns the membership with no valid_to for an enrollment.
func (r *EnrollmentRepository) FindOpenClassMembership(ctx context.Context, enrollmentID string) (*models.ClassMembership, error) {
	const query = `SELECT id, tenant_id, enrollment_id, class_group_id, valid_from, valid_to FROM class_memberships
	WHERE enrollment_id = $1 AND valid_to IS NULL`
	var membership models.ClassMembership
	if err := r.db.GetContext(ctx, &membership, query, enrollmentID); err != nil {
		return nil, err
	}
	return &membership, nil
}

// CreateClassMembership inserts a class membership.
func (r *EnrollmentRepository) CreateClassMembership(ctx context.Context, membership *models.ClassMembership) error {
	if membership.ID == "" {
		membership.ID = uuid.NewString()
	}
	if membership.ValidFrom.IsZero() {
		membership.ValidFrom = time.Now().UTC()
	}
	const query = `INSERT INTO class_memberships (id, tenant_id, enrollment_id, class_group_id, valid_from, valid_to)
	VALUES (:id, :tenant_id, :enrollment_id, :class_group_id, :valid_from, :valid_to)`
	if _, err := r.db.NamedExecContext(ctx, query, membership); err != nil {
		return fmt.Errorf("create class membership: %w", err)
	}
	return nil
}

// CloseOpenClassMembership sets valid_to on the open membership of an
// enrollment and returns it, or sql.ErrNoRows when none is open.
func (r *EnrollmentRepository) CloseOpenClassMembership(ctx context.Context, enrollmentID string, at time.Time) (*models.ClassMembership, error) {
	const query = `UPDATE class_memberships SET valid_to = $2
	WHERE enrollment_id = $1 AND valid_to IS NULL
	RETURNING id, tenant_id, enrollment_id, class_group_id, valid_from, valid_to`
	var membership models.ClassMembership
	if err := r.db.GetContext(ctx, &membership, query, enrollmentID, at); err != nil {
		return nil, err
	}
	return &membership, nil
}
