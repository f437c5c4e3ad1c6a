package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// DirectoryRepository reads the tenant, school, academic year and class group
// directories. Lookups return sql.ErrNoRows when the row is absent.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetTenant fetches a tenant by identifier.
func (r *DirectoryRepository) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	const query = `SELECT id, name, active, created_at FROM tenants WHERE id = $1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetSchool fetches a non-deleted school by identifier.
func (r *DirectoryRepository) GetSchool(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, tenant_id, name, deleted_at FROM schools WHERE id = $1 AND deleted_at IS NULL`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// GetAcademicYear fetches an academic year by identifier.
func (r *DirectoryRepository) GetAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error) {
	const query = `SELECT id, tenant_id, school_id, name, starts_on, ends_on, is_active FROM academic_years WHERE id = $1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindActiveYear returns the school's currently active academic year.
func (r *DirectoryRepository) FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	const query = `SELECT id, tenant_id, school_id, name, starts_on, ends_on, is_active FROM academic_years
	WHERE school_id = $1 AND is_active = TRUE ORDER BY starts_on DESC LIMIT 1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, schoolID); err != nil {
		return nil, err
	}
	return &year, nil
}

// GetClassGroup fetches a class group by identifier.
func (r *DirectoryRepository) GetClassGroup(ctx context.Context, id string) (*models.ClassGroup, error) {
	const query = `SELECT id, tenant_id, school_id, academic_year_id, name FROM class_groups WHERE id = $1`
	var group models.ClassGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}
