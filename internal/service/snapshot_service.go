package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	"github.com/noah-isme/sma-records-api/pkg/canonical"
	"github.com/noah-isme/sma-records-api/pkg/database"
	"github.com/noah-isme/sma-records-api/pkg/export"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type snapshotStore interface {
	MaxVersion(ctx context.Context, tenantID, studentID string, kind models.SnapshotKind) (int, error)
	Create(ctx context.Context, snapshot *models.AcademicRecordSnapshot) error
	CreateFinal(ctx context.Context, snapshot *models.AcademicRecordSnapshot) error
	GetByID(ctx context.Context, id string) (*models.AcademicRecordSnapshot, error)
	FindByTransferCase(ctx context.Context, transferCaseID string) (*models.AcademicRecordSnapshot, error)
	List(ctx context.Context, filter models.SnapshotFilter) ([]models.AcademicRecordSnapshot, int, error)
	Finalize(ctx context.Context, params repository.FinalizeSnapshotParams) (*models.AcademicRecordSnapshot, error)
	Revoke(ctx context.Context, params repository.RevokeSnapshotParams) (*models.AcademicRecordSnapshot, error)
}

type academicRecordReader interface {
	ListEnrollments(ctx context.Context, scope models.AggregationScope) ([]models.PayloadEnrollment, error)
	ListAssessments(ctx context.Context, scope models.AggregationScope) ([]models.AssessmentScore, error)
	ListAttendance(ctx context.Context, scope models.AggregationScope) ([]models.AttendanceSummary, error)
	ListResults(ctx context.Context, scope models.AggregationScope) ([]models.SubjectResult, error)
}

type studentDirectory interface {
	GetWithPerson(ctx context.Context, id string) (*models.StudentWithPerson, error)
	FindTenantProfile(ctx context.Context, tenantID, studentID string) (*models.StudentTenantProfile, error)
}

type snapshotDirectory interface {
	GetSchool(ctx context.Context, id string) (*models.School, error)
	GetAcademicYear(ctx context.Context, id string) (*models.AcademicYear, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// SnapshotConfig tunes payload and hash generation.
type SnapshotConfig struct {
	SchemaVersion int
	HashAlgo      string
	HashEncoding  string
	CacheTTL      time.Duration
}

// SnapshotService generates, seals, revokes and verifies academic record snapshots.
type SnapshotService struct {
	store     snapshotStore
	records   academicRecordReader
	students  studentDirectory
	directory snapshotDirectory
	cache     *CacheService
	metrics   *MetricsService
	csv       documentRenderer
	pdf       documentRenderer
	validator *validator.Validate
	logger    *zap.Logger
	config    SnapshotConfig
	now       func() time.Time
}

// NewSnapshotService constructs the snapshot engine.
func NewSnapshotService(
	store snapshotStore,
	records academicRecordReader,
	students studentDirectory,
	directory snapshotDirectory,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config SnapshotConfig,
) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SchemaVersion <= 0 {
		config.SchemaVersion = 1
	}
	if config.HashAlgo == "" {
		config.HashAlgo = canonical.AlgoSHA256
	}
	if config.HashEncoding == "" {
		config.HashEncoding = canonical.EncodingHex
	}
	return &SnapshotService{
		store:     store,
		records:   records,
		students:  students,
		directory: directory,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

type includeFlags struct {
	assessments bool
	attendance  bool
	results     bool
}

func includeAll() includeFlags {
	return includeFlags{assessments: true, attendance: true, results: true}
}

func boolOrTrue(v *bool) bool {
	return v == nil || *v
}

// Generate aggregates a student's academic data into a new draft snapshot.
// Assessment, attendance and result sections default to included.
func (s *SnapshotService) Generate(ctx context.Context, tenantID string, req dto.GenerateSnapshotRequest, actor models.Actor) (*models.AcademicRecordSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid snapshot payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported snapshot kind", map[string]interface{}{"kind": req.Kind})
	}
	if req.Kind == models.SnapshotKindTransferPacket {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "transfer packets are sealed by transfer completion", map[string]interface{}{"kind": req.Kind})
	}
	if req.Kind == models.SnapshotKindAcademicYear && req.AcademicYearID == nil {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "academic year is required for academic_year snapshots", map[string]interface{}{"kind": req.Kind})
	}
	source := req.SourceType
	switch source {
	case "":
		source = models.SnapshotSourceManual
	case models.SnapshotSourceManual, models.SnapshotSourceSystem, models.SnapshotSourceYearClose:
	default:
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported snapshot source", map[string]interface{}{"source_type": source})
	}
	if err := s.checkScopeOwnership(ctx, tenantID, req.SchoolID, req.AcademicYearID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	asOf := now
	if req.AsOf != nil && !req.AsOf.IsZero() {
		asOf = req.AsOf.UTC()
	}
	scope := models.AggregationScope{
		TenantID:       tenantID,
		StudentID:      req.StudentID,
		SchoolID:       req.SchoolID,
		AcademicYearID: req.AcademicYearID,
		AsOf:           asOf,
	}
	include := includeFlags{
		assessments: boolOrTrue(req.IncludeAssessments),
		attendance:  boolOrTrue(req.IncludeAttendance),
		results:     boolOrTrue(req.IncludeResults),
	}
	snapshot, err := s.seal(ctx, scope, req.Kind, include, now)
	if err != nil {
		return nil, err
	}
	snapshot.SourceType = source
	snapshot.Status = models.SnapshotActive
	snapshot.CreatedBy = actor.UserIDPtr()
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		snapshot.Notes = &notes
	}

	if err := s.insertVersioned(ctx, snapshot, s.store.Create); err != nil {
		return nil, err
	}
	s.metrics.RecordSnapshotGenerated(string(snapshot.Kind))
	s.logger.Info("snapshot generated",
		zap.String("snapshot_id", snapshot.ID),
		zap.String("tenant_id", tenantID),
		zap.String("student_id", snapshot.StudentID),
		zap.String("kind", string(snapshot.Kind)),
		zap.Int("version", snapshot.Version),
	)
	return snapshot, nil
}

// GenerateForTransfer seals the source-side history of a transfer as a final
// transfer_packet snapshot. Prior active packets of the student are superseded
// in the same transaction. Calling it again for the same case returns the
// existing packet.
func (s *SnapshotService) GenerateForTransfer(ctx context.Context, tenantID, studentID string, schoolID *string, transferCaseID string, actor models.Actor) (*models.AcademicRecordSnapshot, error) {
	if existing, err := s.store.FindByTransferCase(ctx, transferCaseID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Store(err, "failed to look up transfer packet")
	}

	now := s.now().UTC()
	scope := models.AggregationScope{TenantID: tenantID, StudentID: studentID, SchoolID: schoolID, AsOf: now}
	snapshot, err := s.seal(ctx, scope, models.SnapshotKindTransferPacket, includeAll(), now)
	if err != nil {
		return nil, err
	}
	caseID := transferCaseID
	snapshot.IsFinal = true
	snapshot.Status = models.SnapshotActive
	snapshot.SourceType = models.SnapshotSourceTransfer
	snapshot.SourceTransferCaseID = &caseID
	snapshot.CreatedBy = actor.UserIDPtr()
	snapshot.FinalizedAt = &now
	snapshot.FinalizedBy = actor.UserIDPtr()

	if err := s.insertVersioned(ctx, snapshot, s.store.CreateFinal); err != nil {
		if database.IsUniqueViolation(err, repository.SnapshotTransferConstraint) {
			return s.store.FindByTransferCase(ctx, transferCaseID)
		}
		return nil, err
	}
	s.cache.InvalidatePattern(ctx, snapshotCachePattern(tenantID))
	s.metrics.RecordSnapshotGenerated(string(snapshot.Kind))
	s.logger.Info("transfer packet sealed",
		zap.String("snapshot_id", snapshot.ID),
		zap.String("tenant_id", tenantID),
		zap.String("transfer_case_id", transferCaseID),
		zap.Int("version", snapshot.Version),
	)
	return snapshot, nil
}

// Finalize seals a draft snapshot, superseding every other active snapshot of
// the same tenant, student and kind first. The payload is left untouched.
func (s *SnapshotService) Finalize(ctx context.Context, id, tenantID, notes string, actor models.Actor) (*models.AcademicRecordSnapshot, error) {
	current, err := s.load(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.SnapshotRevoked || current.IsFinal {
		return nil, snapshotStateConflict(current, "snapshot cannot be finalized")
	}
	params := repository.FinalizeSnapshotParams{
		ID:          current.ID,
		TenantID:    current.TenantID,
		StudentID:   current.StudentID,
		Kind:        current.Kind,
		FinalizedBy: actor.UserIDPtr(),
		FinalizedAt: s.now().UTC(),
	}
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		params.Notes = &trimmed
	}
	finalized, err := s.store.Finalize(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, snapshotStateConflict(current, "snapshot was finalized or revoked concurrently")
		}
		if database.IsDeadlock(err) {
			return nil, snapshotStateConflict(current, "snapshot was finalized concurrently")
		}
		return nil, appErrors.Store(err, "failed to finalize snapshot")
	}
	s.cache.InvalidatePattern(ctx, snapshotCachePattern(tenantID))
	return finalized, nil
}

// Revoke withdraws a snapshot. Revocation is terminal and keeps the payload,
// hash and is_final flag unchanged.
func (s *SnapshotService) Revoke(ctx context.Context, id, tenantID, reason string, actor models.Actor) (*models.AcademicRecordSnapshot, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "revocation reason is required", map[string]interface{}{"snapshot_id": id})
	}
	current, err := s.load(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.SnapshotRevoked {
		return nil, snapshotStateConflict(current, "snapshot already revoked")
	}
	revoked, err := s.store.Revoke(ctx, repository.RevokeSnapshotParams{
		ID:        current.ID,
		TenantID:  tenantID,
		Reason:    reason,
		RevokedBy: actor.UserIDPtr(),
		RevokedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, snapshotStateConflict(current, "snapshot already revoked")
		}
		return nil, appErrors.Store(err, "failed to revoke snapshot")
	}
	s.cache.Invalidate(ctx, snapshotCacheKey(tenantID, id))
	return revoked, nil
}

// Verify recomputes the canonical hash of the stored payload with the stored
// algorithm and encoding. A mismatch is reported in the result, not as an error.
func (s *SnapshotService) Verify(ctx context.Context, id, tenantID string) (*dto.VerifySnapshotResponse, error) {
	snapshot, err := s.load(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if !canonical.Supported(snapshot.HashAlgo, snapshot.HashEncoding) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "snapshot hash algorithm is not supported", map[string]interface{}{
			"snapshot_id":   snapshot.ID,
			"hash_algo":     snapshot.HashAlgo,
			"hash_encoding": snapshot.HashEncoding,
		})
	}
	result := &dto.VerifySnapshotResponse{
		SnapshotID:   snapshot.ID,
		StoredHash:   snapshot.PayloadHash,
		HashAlgo:     snapshot.HashAlgo,
		HashEncoding: snapshot.HashEncoding,
	}
	computed, err := canonical.HashWith(snapshot.HashAlgo, snapshot.HashEncoding, []byte(snapshot.Payload))
	if err != nil {
		s.logger.Warn("snapshot payload could not be canonicalized", zap.String("snapshot_id", snapshot.ID), zap.Error(err))
	} else {
		result.ComputedHash = computed
		result.Valid = computed == snapshot.PayloadHash
	}
	s.metrics.RecordVerification(result.Valid)
	if !result.Valid {
		s.logger.Warn("snapshot integrity mismatch",
			zap.String("snapshot_id", snapshot.ID),
			zap.String("tenant_id", tenantID),
			zap.String("stored_hash", result.StoredHash),
			zap.String("computed_hash", result.ComputedHash),
		)
	}
	return result, nil
}

// Get returns a snapshot owned by the tenant. Final snapshots are served from cache.
func (s *SnapshotService) Get(ctx context.Context, id, tenantID string) (*models.AcademicRecordSnapshot, error) {
	key := snapshotCacheKey(tenantID, id)
	var cached models.AcademicRecordSnapshot
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	snapshot, err := s.load(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if snapshot.IsFinal {
		s.cache.Set(ctx, key, snapshot, s.config.CacheTTL)
	}
	return snapshot, nil
}

// List returns the tenant's snapshots matching the query.
func (s *SnapshotService) List(ctx context.Context, tenantID string, query dto.SnapshotQuery) ([]models.AcademicRecordSnapshot, *models.Pagination, error) {
	if query.Kind != nil && !query.Kind.Valid() {
		return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported snapshot kind", map[string]interface{}{"kind": *query.Kind})
	}
	filter := models.SnapshotFilter{
		TenantID:  tenantID,
		StudentID: query.StudentID,
		Kind:      query.Kind,
		Status:    query.Status,
		IsFinal:   query.IsFinal,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	snapshots, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err, "failed to list snapshots")
	}
	page, size := pageDefaults(query.Page, query.PageSize)
	return snapshots, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *SnapshotService) load(ctx context.Context, id, tenantID string) (*models.AcademicRecordSnapshot, error) {
	snapshot, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "snapshot not found", map[string]interface{}{"snapshot_id": id})
		}
		return nil, appErrors.Store(err, "failed to load snapshot")
	}
	if snapshot.TenantID != tenantID {
		return nil, appErrors.WithDetails(appErrors.ErrNotFound, "snapshot not found", map[string]interface{}{"snapshot_id": id})
	}
	return snapshot, nil
}

func (s *SnapshotService) checkScopeOwnership(ctx context.Context, tenantID string, schoolID, academicYearID *string) error {
	if schoolID != nil {
		school, err := s.directory.GetSchool(ctx, *schoolID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Store(err, "failed to load school")
		}
		if err != nil || school.TenantID != tenantID {
			return appErrors.WithDetails(appErrors.ErrNotFound, "school not found", map[string]interface{}{"school_id": *schoolID})
		}
	}
	if academicYearID != nil {
		year, err := s.directory.GetAcademicYear(ctx, *academicYearID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Store(err, "failed to load academic year")
		}
		if err != nil || year.TenantID != tenantID {
			return appErrors.WithDetails(appErrors.ErrNotFound, "academic year not found", map[string]interface{}{"academic_year_id": *academicYearID})
		}
	}
	return nil
}

// seal aggregates the payload for scope and returns an unsaved snapshot with
// its hash computed.
func (s *SnapshotService) seal(ctx context.Context, scope models.AggregationScope, kind models.SnapshotKind, include includeFlags, now time.Time) (*models.AcademicRecordSnapshot, error) {
	payload, err := s.aggregate(ctx, scope, kind, include, now)
	if err != nil {
		return nil, err
	}
	encoded, err := canonical.Canonicalize(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode snapshot payload")
	}
	hash, err := canonical.HashWith(s.config.HashAlgo, s.config.HashEncoding, encoded)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash snapshot payload")
	}
	return &models.AcademicRecordSnapshot{
		TenantID:             scope.TenantID,
		SchoolID:             scope.SchoolID,
		StudentID:            scope.StudentID,
		Kind:                 kind,
		AcademicYearID:       scope.AcademicYearID,
		AsOfAt:               scope.AsOf,
		Payload:              datatypes.JSON(encoded),
		PayloadSchemaVersion: s.config.SchemaVersion,
		PayloadHash:          hash,
		HashAlgo:             strings.ToLower(s.config.HashAlgo),
		HashEncoding:         strings.ToLower(s.config.HashEncoding),
		CreatedAt:            now,
	}, nil
}

func (s *SnapshotService) aggregate(ctx context.Context, scope models.AggregationScope, kind models.SnapshotKind, include includeFlags, now time.Time) (*models.SnapshotPayload, error) {
	// Any profile status qualifies: former students keep their records.
	if _, err := s.students.FindTenantProfile(ctx, scope.TenantID, scope.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "student not found", map[string]interface{}{"student_id": scope.StudentID})
		}
		return nil, appErrors.Store(err, "failed to load tenant profile")
	}
	student, err := s.students.GetWithPerson(ctx, scope.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "student not found", map[string]interface{}{"student_id": scope.StudentID})
		}
		return nil, appErrors.Store(err, "failed to load student")
	}
	payload := &models.SnapshotPayload{
		SchemaVersion:  s.config.SchemaVersion,
		GeneratedAt:    now,
		Kind:           kind,
		TenantID:       scope.TenantID,
		SchoolID:       scope.SchoolID,
		AcademicYearID: scope.AcademicYearID,
		AsOf:           scope.AsOf,
		Student: models.PayloadStudent{
			ID:             student.ID,
			PersonID:       student.PersonID,
			FullName:       student.FullName,
			BirthDate:      student.BirthDate,
			DocumentNumber: student.DocumentNumber,
		},
	}
	if payload.Enrollments, err = s.records.ListEnrollments(ctx, scope); err != nil {
		return nil, appErrors.Store(err, "failed to aggregate enrollments")
	}
	if include.assessments {
		if payload.Assessments, err = s.records.ListAssessments(ctx, scope); err != nil {
			return nil, appErrors.Store(err, "failed to aggregate assessments")
		}
	}
	if include.attendance {
		if payload.Attendance, err = s.records.ListAttendance(ctx, scope); err != nil {
			return nil, appErrors.Store(err, "failed to aggregate attendance")
		}
	}
	if include.results {
		if payload.Results, err = s.records.ListResults(ctx, scope); err != nil {
			return nil, appErrors.Store(err, "failed to aggregate results")
		}
	}
	return payload, nil
}

// insertVersioned assigns 1 + max(version) and inserts with create. A lost
// version race is retried once with a re-read version, a second loss is a conflict.
func (s *SnapshotService) insertVersioned(ctx context.Context, snapshot *models.AcademicRecordSnapshot, create func(context.Context, *models.AcademicRecordSnapshot) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		latest, err := s.store.MaxVersion(ctx, snapshot.TenantID, snapshot.StudentID, snapshot.Kind)
		if err != nil {
			return backoff.Permanent(appErrors.Store(err, "failed to read snapshot version"))
		}
		snapshot.Version = latest + 1
		if err := create(ctx, snapshot); err != nil {
			if database.IsUniqueViolation(err, repository.SnapshotVersionConstraint) {
				s.logger.Debug("snapshot version taken", zap.Int("version", snapshot.Version), zap.Int("attempt", attempt))
				return err
			}
			if database.IsUniqueViolation(err) {
				return backoff.Permanent(err)
			}
			if database.IsDeadlock(err) {
				return backoff.Permanent(appErrors.WithDetails(appErrors.ErrConflict, "snapshot key is being written concurrently", map[string]interface{}{
					"student_id": snapshot.StudentID,
					"kind":       snapshot.Kind,
				}))
			}
			return backoff.Permanent(appErrors.Store(err, "failed to store snapshot"))
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1), ctx)
	err := backoff.Retry(operation, policy)
	if err != nil && database.IsUniqueViolation(err, repository.SnapshotVersionConstraint) {
		return appErrors.WithDetails(appErrors.ErrConflict, "snapshot version was taken by a concurrent generation", map[string]interface{}{
			"student_id": snapshot.StudentID,
			"kind":       snapshot.Kind,
			"version":    snapshot.Version,
		})
	}
	return err
}

func snapshotStateConflict(snapshot *models.AcademicRecordSnapshot, message string) error {
	return appErrors.WithDetails(appErrors.ErrConflict, message, map[string]interface{}{
		"snapshot_id": snapshot.ID,
		"status":      snapshot.Status,
		"is_final":    snapshot.IsFinal,
	})
}

func snapshotCacheKey(tenantID, id string) string {
	return fmt.Sprintf("snapshot:%s:%s", tenantID, id)
}

func snapshotCachePattern(tenantID string) string {
	return fmt.Sprintf("snapshot:%s:*", tenantID)
}

func pageDefaults(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
