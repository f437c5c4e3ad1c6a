package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// StudentRepository reads students and maintains their tenant and school profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetWithPerson returns a non-deleted student joined with its person record.
func (r *StudentRepository) GetWithPerson(ctx context.Context, id string) (*models.StudentWithPerson, error) {
	const query = `SELECT s.id, s.person_id, p.full_name, p.birth_date, p.document_number, s.created_at, s.deleted_at
	FROM students s
	JOIN persons p ON p.id = s.person_id
	WHERE s.id = $1 AND s.deleted_at IS NULL`
	var student models.StudentWithPerson
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindTenantProfile returns the student's profile in a tenant.
func (r *StudentRepository) FindTenantProfile(ctx context.Context, tenantID, studentID string) (*models.StudentTenantProfile, error) {
	const query = `SELECT id, tenant_id, student_id, status, created_at FROM student_tenant_profiles
	WHERE tenant_id = $1 AND student_id = $2`
	var profile models.StudentTenantProfile
	if err := r.db.GetContext(ctx, &profile, query, tenantID, studentID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateTenantProfile inserts a tenant profile.
func (r *StudentRepository) CreateTenantProfile(ctx context.Context, profile *models.StudentTenantProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.Status == "" {
		profile.Status = models.ProfileStatusActive
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_tenant_profiles (id, tenant_id, student_id, status, created_at)
	VALUES (:id, :tenant_id, :student_id, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create tenant profile: %w", err)
	}
	return nil
}

// ActivateTenantProfile sets a tenant profile back to active.
func (r *StudentRepository) ActivateTenantProfile(ctx context.Context, id string) (*models.StudentTenantProfile, error) {
	const query = `UPDATE student_tenant_profiles SET status = $2 WHERE id = $1
	RETURNING id, tenant_id, student_id, status, created_at`
	var profile models.StudentTenantProfile
	if err := r.db.GetContext(ctx, &profile, query, id, models.ProfileStatusActive); err != nil {
		return nil, fmt.Errorf("activate tenant profile: %w", err)
	}
	return &profile, nil
}

// FindSchoolProfile returns the student's profile at a school.
func (r *StudentRepository) FindSchoolProfile(ctx context.Context, schoolID, studentID string) (*models.StudentSchoolProfile, error) {
	const query = `SELECT id, tenant_id, school_id, student_id, status, created_at FROM student_school_profiles
	WHERE school_id = $1 AND student_id = $2`
	var profile models.StudentSchoolProfile
	if err := r.db.GetContext(ctx, &profile, query, schoolID, studentID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateSchoolProfile inserts a school profile.
func (r *StudentRepository) CreateSchoolProfile(ctx context.Context, profile *models.StudentSchoolProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.Status == "" {
		profile.Status = models.ProfileStatusActive
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_school_profiles (id, tenant_id, school_id, student_id, status, created_at)
	VALUES (:id, :tenant_id, :school_id, :student_id, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create school profile: %w", err)
	}
	return nil
}

// ActivateSchoolProfile sets a school profile back to active.
func (r *StudentRepository) ActivateSchoolProfile(ctx context.Context, id string) (*models.StudentSchoolProfile, error) {
	const query = `UPDATE student_school_profiles SET status = $2 WHERE id = $1
	RETURNING id, tenant_id, school_id, student_id, status, created_at`
	var profile models.StudentSchoolProfile
	if err := r.db.GetContext(ctx, &profile, query, id, models.ProfileStatusActive); err != nil {
		return nil, fmt.Errorf("activate school profile: %w", err)
	}
	return &profile, nil
}
