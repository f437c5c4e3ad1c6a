package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/pkg/database"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type tenantDirectory interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	GetSchool(ctx context.Context, id string) (*models.School, error)
}

type placementDirectory interface {
	GetSchool(ctx context.Context, id string) (*models.School, error)
	GetAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error)
	FindActiveYear(ctx context.Context, schoolID string) (*models.AcademicYear, error)
	GetClassGroup(ctx context.Context, id string) (*models.ClassGroup, error)
}

type studentProfileStore interface {
	FindTenantProfile(ctx context.Context, tenantID, studentID string) (*models.StudentTenantProfile, error)
	CreateTenantProfile(ctx context.Context, profile *models.StudentTenantProfile) error
	ActivateTenantProfile(ctx context.Context, id string) (*models.StudentTenantProfile, error)
	FindSchoolProfile(ctx context.Context, schoolID, studentID string) (*models.StudentSchoolProfile, error)
	CreateSchoolProfile(ctx context.Context, profile *models.StudentSchoolProfile) error
	ActivateSchoolProfile(ctx context.Context, id string) (*models.StudentSchoolProfile, error)
}

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindActiveByStudentAndSchool(ctx context.Context, tenantID, studentID, schoolID string) (*models.Enrollment, error)
	FindActiveByStudent(ctx context.Context, tenantID, studentID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	TransitionStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, endedAt *time.Time) (bool, error)
	FindOpenClassMembership(ctx context.Context, enrollmentID string) (*models.ClassMembership, error)
	CreateClassMembership(ctx context.Context, membership *models.ClassMembership) error
	CloseOpenClassMembership(ctx context.Context, enrollmentID string, at time.Time) (*models.ClassMembership, error)
}

// ProvisionRequest describes where a transferred student lands.
type ProvisionRequest struct {
	TenantID       string
	SchoolID       string
	StudentID      string
	AcademicYearID *string
	ClassGroupID   *string
	At             time.Time
}

// ProvisionResult reports the destination records and which of them were
// created by this call.
type ProvisionResult struct {
	TenantProfile     *models.StudentTenantProfile
	SchoolProfile     *models.StudentSchoolProfile
	AcademicYear      *models.AcademicYear
	Enrollment        *models.Enrollment
	EnrollmentCreated bool
	Membership        *models.ClassMembership
	MembershipCreated bool
}

// DestinationProvisioner creates the destination-side records of a transfer.
// Every step looks up before it inserts, so a repeated call after a partial
// failure reuses what already exists.
type DestinationProvisioner struct {
	students    studentProfileStore
	directory   placementDirectory
	enrollments enrollmentStore
	logger      *zap.Logger
}

// NewDestinationProvisioner constructs a provisioner.
func NewDestinationProvisioner(students studentProfileStore, directory placementDirectory, enrollments enrollmentStore, logger *zap.Logger) *DestinationProvisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DestinationProvisioner{students: students, directory: directory, enrollments: enrollments, logger: logger}
}

// Provision runs every step for req in order.
func (p *DestinationProvisioner) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}
	result := &ProvisionResult{}
	var err error
	if result.TenantProfile, _, err = p.ResolveOrCreateTenantProfile(ctx, req.TenantID, req.StudentID); err != nil {
		return nil, err
	}
	if result.SchoolProfile, _, err = p.ResolveOrCreateSchoolProfile(ctx, req.TenantID, req.SchoolID, req.StudentID); err != nil {
		return nil, err
	}
	if result.AcademicYear, err = p.ResolveAcademicYear(ctx, req.TenantID, req.SchoolID, req.AcademicYearID); err != nil {
		return nil, err
	}
	result.Enrollment, result.EnrollmentCreated, err = p.ResolveOrCreateEnrollment(ctx, req.TenantID, req.SchoolID, req.StudentID, result.AcademicYear.ID, req.At)
	if err != nil {
		return nil, err
	}
	if req.ClassGroupID != nil && *req.ClassGroupID != "" {
		result.Membership, result.MembershipCreated, err = p.ResolveOrCreateClassMembership(ctx, result.Enrollment, *req.ClassGroupID, req.At)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ResolveOrCreateTenantProfile returns the student's profile in tenantID,
// creating an active one when absent. An inactive profile left by an earlier
// departure is reactivated.
func (p *DestinationProvisioner) ResolveOrCreateTenantProfile(ctx context.Context, tenantID, studentID string) (*models.StudentTenantProfile, bool, error) {
	find := func() (*models.StudentTenantProfile, error) {
		return p.students.FindTenantProfile(ctx, tenantID, studentID)
	}
	if profile, err := find(); err == nil {
		if profile.Status == models.ProfileStatusActive {
			return profile, false, nil
		}
		reactivated, err := p.students.ActivateTenantProfile(ctx, profile.ID)
		if err != nil {
			return nil, false, appErrors.Store(err, "failed to reactivate tenant profile")
		}
		p.logger.Info("tenant profile reactivated",
			zap.String("tenant_id", tenantID),
			zap.String("student_id", studentID),
			zap.String("previous_status", string(profile.Status)),
		)
		return reactivated, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Store(err, "failed to load tenant profile")
	}
	profile := &models.StudentTenantProfile{TenantID: tenantID, StudentID: studentID, Status: models.ProfileStatusActive}
	if err := p.students.CreateTenantProfile(ctx, profile); err != nil {
		if database.IsUniqueViolation(err) {
			existing, findErr := find()
			if findErr != nil {
				return nil, false, appErrors.Store(findErr, "failed to load tenant profile")
			}
			return existing, false, nil
		}
		return nil, false, appErrors.Store(err, "failed to create tenant profile")
	}
	p.logger.Debug("tenant profile created", zap.String("tenant_id", tenantID), zap.String("student_id", studentID))
	return profile, true, nil
}

// ResolveOrCreateSchoolProfile returns the student's profile at schoolID,
// creating an active one when absent and reactivating an inactive one.
func (p *DestinationProvisioner) ResolveOrCreateSchoolProfile(ctx context.Context, tenantID, schoolID, studentID string) (*models.StudentSchoolProfile, bool, error) {
	find := func() (*models.StudentSchoolProfile, error) {
		return p.students.FindSchoolProfile(ctx, schoolID, studentID)
	}
	if profile, err := find(); err == nil {
		if profile.Status == models.ProfileStatusActive {
			return profile, false, nil
		}
		reactivated, err := p.students.ActivateSchoolProfile(ctx, profile.ID)
		if err != nil {
			return nil, false, appErrors.Store(err, "failed to reactivate school profile")
		}
		p.logger.Info("school profile reactivated",
			zap.String("school_id", schoolID),
			zap.String("student_id", studentID),
			zap.String("previous_status", string(profile.Status)),
		)
		return reactivated, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Store(err, "failed to load school profile")
	}
	profile := &models.StudentSchoolProfile{TenantID: tenantID, SchoolID: schoolID, StudentID: studentID, Status: models.ProfileStatusActive}
	if err := p.students.CreateSchoolProfile(ctx, profile); err != nil {
		if database.IsUniqueViolation(err) {
			existing, findErr := find()
			if findErr != nil {
				return nil, false, appErrors.Store(findErr, "failed to load school profile")
			}
			return existing, false, nil
		}
		return nil, false, appErrors.Store(err, "failed to create school profile")
	}
	p.logger.Debug("school profile created", zap.String("school_id", schoolID), zap.String("student_id", studentID))
	return profile, true, nil
}

// ResolveAcademicYear returns the override year when given, otherwise the
// school's active year. An override must belong to the school.
func (p *DestinationProvisioner) ResolveAcademicYear(ctx context.Context, tenantID, schoolID string, override *string) (*models.AcademicYear, error) {
	if override != nil && *override != "" {
		year, err := p.directory.GetAcademicYear(ctx, *override)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Store(err, "failed to load academic year")
		}
		if err != nil || year.SchoolID != schoolID || year.TenantID != tenantID {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "academic year does not belong to the destination school", map[string]interface{}{
				"academic_year_id": *override,
				"school_id":        schoolID,
			})
		}
		return year, nil
	}
	year, err := p.directory.FindActiveYear(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "destination school has no active academic year", map[string]interface{}{"school_id": schoolID})
		}
		return nil, appErrors.Store(err, "failed to resolve academic year")
	}
	return year, nil
}

// ResolveOrCreateEnrollment returns the student's active enrollment at the
// school, creating one for academicYearID when none exists.
func (p *DestinationProvisioner) ResolveOrCreateEnrollment(ctx context.Context, tenantID, schoolID, studentID, academicYearID string, at time.Time) (*models.Enrollment, bool, error) {
	find := func() (*models.Enrollment, error) {
		return p.enrollments.FindActiveByStudentAndSchool(ctx, tenantID, studentID, schoolID)
	}
	if enrollment, err := find(); err == nil {
		return enrollment, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Store(err, "failed to load enrollment")
	}
	enrollment := &models.Enrollment{
		TenantID:       tenantID,
		SchoolID:       schoolID,
		StudentID:      studentID,
		AcademicYearID: academicYearID,
		Status:         models.EnrollmentStatusActive,
		EnrolledAt:     at,
	}
	if err := p.enrollments.Create(ctx, enrollment); err != nil {
		if database.IsUniqueViolation(err) {
			existing, findErr := find()
			if findErr != nil {
				return nil, false, appErrors.Store(findErr, "failed to load enrollment")
			}
			return existing, false, nil
		}
		return nil, false, appErrors.Store(err, "failed to create enrollment")
	}
	p.logger.Info("destination enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("tenant_id", tenantID),
		zap.String("school_id", schoolID),
	)
	return enrollment, true, nil
}

// ResolveOrCreateClassMembership returns the enrollment's open membership,
// opening one in classGroupID when none exists. The class group must belong
// to the enrollment's school.
func (p *DestinationProvisioner) ResolveOrCreateClassMembership(ctx context.Context, enrollment *models.Enrollment, classGroupID string, at time.Time) (*models.ClassMembership, bool, error) {
	group, err := p.directory.GetClassGroup(ctx, classGroupID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Store(err, "failed to load class group")
	}
	if err != nil || group.SchoolID != enrollment.SchoolID || group.TenantID != enrollment.TenantID {
		return nil, false, appErrors.WithDetails(appErrors.ErrValidation, "class group does not belong to the destination school", map[string]interface{}{
			"class_group_id": classGroupID,
			"school_id":      enrollment.SchoolID,
		})
	}
	find := func() (*models.ClassMembership, error) {
		return p.enrollments.FindOpenClassMembership(ctx, enrollment.ID)
	}
	if membership, err := find(); err == nil {
		return membership, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Store(err, "failed to load class membership")
	}
	membership := &models.ClassMembership{
		TenantID:     enrollment.TenantID,
		EnrollmentID: enrollment.ID,
		ClassGroupID: group.ID,
		ValidFrom:    at,
	}
	if err := p.enrollments.CreateClassMembership(ctx, membership); err != nil {
		if database.IsUniqueViolation(err) {
			existing, findErr := find()
			if findErr != nil {
				return nil, false, appErrors.Store(findErr, "failed to load class membership")
			}
			return existing, false, nil
		}
		return nil, false, appErrors.Store(err, "failed to create class membership")
	}
	return membership, true, nil
}
