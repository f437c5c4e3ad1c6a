package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/repository"
	"github.com/noah-isme/sma-records-api/pkg/database"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type transferStore interface {
	Create(ctx context.Context, transfer *models.TransferCase) error
	GetByID(ctx context.Context, id string) (*models.TransferCase, error)
	HasPending(ctx context.Context, studentID string) (bool, error)
	List(ctx context.Context, filter models.TransferFilter) ([]models.TransferCase, int, error)
	Transition(ctx context.Context, t models.TransferTransition) (*models.TransferCase, error)
	Complete(ctx context.Context, params repository.CompleteTransferParams) (*models.TransferCase, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type transferStudentReader interface {
	GetWithPerson(ctx context.Context, id string) (*models.StudentWithPerson, error)
	FindTenantProfile(ctx context.Context, tenantID, studentID string) (*models.StudentTenantProfile, error)
}

type transferSnapshotter interface {
	GenerateForTransfer(ctx context.Context, tenantID, studentID string, schoolID *string, transferCaseID string, actor models.Actor) (*models.AcademicRecordSnapshot, error)
}

type transferProvisioner interface {
	Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)
}

type enrollmentEventRecorder interface {
	AppendBestEffort(ctx context.Context, in models.EnrollmentEventInput) (string, string)
}

// TransferService drives the cross-tenant transfer state machine.
//
//	requested -> approved -> completed
//	requested -> rejected
//	requested | approved -> cancelled
//
// Every transition is a guarded update: losing a race leaves the status
// unchanged and surfaces as a conflict.
type TransferService struct {
	transfers   transferStore
	students    transferStudentReader
	tenants     tenantDirectory
	enrollments enrollmentStore
	provisioner transferProvisioner
	snapshots   transferSnapshotter
	events      enrollmentEventRecorder
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// TransferServiceDeps groups the collaborators of TransferService.
type TransferServiceDeps struct {
	Transfers   transferStore
	Students    transferStudentReader
	Tenants     tenantDirectory
	Enrollments enrollmentStore
	Provisioner transferProvisioner
	Snapshots   transferSnapshotter
	Events      enrollmentEventRecorder
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewTransferService constructs the transfer state machine.
func NewTransferService(deps TransferServiceDeps) *TransferService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &TransferService{
		transfers:   deps.Transfers,
		students:    deps.Students,
		tenants:     deps.Tenants,
		enrollments: deps.Enrollments,
		provisioner: deps.Provisioner,
		snapshots:   deps.Snapshots,
		events:      deps.Events,
		metrics:     deps.Metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Create opens a transfer case on behalf of the source tenant.
func (s *TransferService) Create(ctx context.Context, req dto.CreateTransferRequest, actor models.Actor) (result *dto.TransferResult, err error) {
	defer func() { s.metrics.RecordTransferTransition("create", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if req.ToTenantID == actor.TenantID {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "destination tenant must differ from the source tenant", map[string]interface{}{
			"to_tenant_id": req.ToTenantID,
		})
	}

	if _, err := s.students.GetWithPerson(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "student not found", map[string]interface{}{"student_id": req.StudentID})
		}
		return nil, appErrors.Store(err, "failed to load student")
	}
	profile, err := s.students.FindTenantProfile(ctx, actor.TenantID, req.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Store(err, "failed to load tenant profile")
	}
	if err != nil || profile.Status != models.ProfileStatusActive {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "student has no active profile in the source tenant", map[string]interface{}{
			"student_id": req.StudentID,
			"tenant_id":  actor.TenantID,
		})
	}

	var source *models.Enrollment
	if req.FromSchoolID != nil {
		source, err = s.enrollments.FindActiveByStudentAndSchool(ctx, actor.TenantID, req.StudentID, *req.FromSchoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.WithDetails(appErrors.ErrValidation, "student has no active enrollment at the source school", map[string]interface{}{
					"student_id":     req.StudentID,
					"from_school_id": *req.FromSchoolID,
				})
			}
			return nil, appErrors.Store(err, "failed to load source enrollment")
		}
	} else if found, findErr := s.enrollments.FindActiveByStudent(ctx, actor.TenantID, req.StudentID); findErr == nil {
		source = found
	} else if !errors.Is(findErr, sql.ErrNoRows) {
		return nil, appErrors.Store(findErr, "failed to load source enrollment")
	}

	if _, err := s.tenants.GetTenant(ctx, req.ToTenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "destination tenant not found", map[string]interface{}{"to_tenant_id": req.ToTenantID})
		}
		return nil, appErrors.Store(err, "failed to load destination tenant")
	}
	if req.ToSchoolID != nil {
		school, err := s.tenants.GetSchool(ctx, *req.ToSchoolID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Store(err, "failed to load destination school")
		}
		if err != nil || school.TenantID != req.ToTenantID {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "destination school does not belong to the destination tenant", map[string]interface{}{
				"to_school_id": *req.ToSchoolID,
				"to_tenant_id": req.ToTenantID,
			})
		}
	}

	pending, err := s.transfers.HasPending(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to check pending transfers")
	}
	if pending {
		return nil, pendingTransferConflict(req.StudentID)
	}

	metadata := datatypes.JSONMap{}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		metadata[models.TransferMetaReason] = reason
	}
	if req.AcademicYearID != nil {
		metadata[models.TransferMetaAcademicYearID] = *req.AcademicYearID
	}
	if req.ClassGroupID != nil {
		metadata[models.TransferMetaClassGroupID] = *req.ClassGroupID
	}
	transfer := &models.TransferCase{
		StudentID:    req.StudentID,
		FromTenantID: actor.TenantID,
		FromSchoolID: req.FromSchoolID,
		ToTenantID:   req.ToTenantID,
		ToSchoolID:   req.ToSchoolID,
		Status:       models.TransferRequested,
		RequestedAt:  s.now().UTC(),
		RequestedBy:  actor.UserIDPtr(),
		Metadata:     metadata,
	}
	if source != nil {
		transfer.FromEnrollmentID = &source.ID
	}
	if err := s.transfers.Create(ctx, transfer); err != nil {
		if database.IsUniqueViolation(err, repository.PendingTransferConstraint) {
			return nil, pendingTransferConflict(req.StudentID)
		}
		return nil, appErrors.Store(err, "failed to create transfer case")
	}

	result = &dto.TransferResult{Transfer: transfer}
	if source != nil {
		_, warning := s.events.AppendBestEffort(ctx, models.EnrollmentEventInput{
			TenantID:     actor.TenantID,
			EnrollmentID: source.ID,
			EventType:    models.EventTransferRequested,
			Actor:        actor,
			EffectiveAt:  transfer.RequestedAt,
			Metadata: map[string]interface{}{
				"transfer_case_id": transfer.ID,
				"to_tenant_id":     transfer.ToTenantID,
			},
		})
		result.AddWarning(warning)
	}
	s.logger.Info("transfer requested",
		zap.String("transfer_id", transfer.ID),
		zap.String("student_id", transfer.StudentID),
		zap.String("from_tenant_id", transfer.FromTenantID),
		zap.String("to_tenant_id", transfer.ToTenantID),
	)
	return result, nil
}

// Approve accepts a requested case. Only the destination tenant may approve.
func (s *TransferService) Approve(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error) {
	return s.transition(ctx, id, actor, "approve", destinationOnly, []models.TransferStatus{models.TransferRequested}, models.TransferApproved, decisionMetadata(note, nil))
}

// Reject declines a requested case. Only the destination tenant may reject.
func (s *TransferService) Reject(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error) {
	return s.transition(ctx, id, actor, "reject", destinationOnly, []models.TransferStatus{models.TransferRequested}, models.TransferRejected, decisionMetadata(note, nil))
}

// Cancel withdraws a pending case. Either tenant may cancel.
func (s *TransferService) Cancel(ctx context.Context, id, note string, actor models.Actor) (*models.TransferCase, error) {
	extra := map[string]interface{}{models.TransferMetaCancelledByTenant: actor.TenantID}
	return s.transition(ctx, id, actor, "cancel", eitherTenant, []models.TransferStatus{models.TransferRequested, models.TransferApproved}, models.TransferCancelled, decisionMetadata(note, extra))
}

// Complete finishes an approved case on behalf of the destination tenant:
// destination records are provisioned, the source enrollment is closed, the
// source history is sealed into a transfer packet and the case is marked
// completed. Ledger and snapshot failures become warnings.
func (s *TransferService) Complete(ctx context.Context, id string, req dto.CompleteTransferRequest, actor models.Actor) (result *dto.TransferResult, err error) {
	defer func() { s.metrics.RecordTransferTransition("complete", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	transfer, err := s.load(ctx, id, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if err := destinationOnly(transfer, actor.TenantID, "complete"); err != nil {
		return nil, err
	}
	if transfer.Status != models.TransferApproved {
		return nil, transferStateConflict(transfer, models.TransferApproved)
	}

	result = &dto.TransferResult{}
	now := s.now().UTC()

	var destination *models.Enrollment
	if transfer.ToSchoolID != nil {
		destination, err = s.provisionDestination(ctx, transfer, req, actor, now, result)
		if err != nil {
			return nil, err
		}
	}

	fromEnrollmentID, err := s.closeSourceEnrollment(ctx, transfer, actor, now, result)
	if err != nil {
		return nil, err
	}

	var snapshotID *string
	snapshot, snapErr := s.snapshots.GenerateForTransfer(ctx, transfer.FromTenantID, transfer.StudentID, transfer.FromSchoolID, transfer.ID, actor)
	if snapErr != nil {
		s.logger.Warn("transfer packet not sealed",
			zap.String("transfer_id", transfer.ID),
			zap.String("from_tenant_id", transfer.FromTenantID),
			zap.Error(snapErr),
		)
		s.metrics.RecordBestEffortFailure("transfer_snapshot")
		result.AddWarning("transfer packet snapshot was not generated; it can be regenerated later")
	} else {
		snapshotID = &snapshot.ID
	}

	params := repository.CompleteTransferParams{
		ID:               transfer.ID,
		CompletedAt:      now,
		CompletedBy:      actor.UserIDPtr(),
		FromEnrollmentID: fromEnrollmentID,
		SnapshotID:       snapshotID,
	}
	if destination != nil {
		params.ToEnrollmentID = &destination.ID
	}
	completed, err := s.transfers.Complete(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.raceConflict(ctx, transfer, models.TransferApproved)
		}
		return nil, appErrors.Store(err, "failed to complete transfer case")
	}
	result.Transfer = completed
	s.logger.Info("transfer completed",
		zap.String("transfer_id", completed.ID),
		zap.String("student_id", completed.StudentID),
		zap.Stringp("to_enrollment_id", completed.ToEnrollmentID),
		zap.Stringp("snapshot_id", completed.SnapshotID),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// Remove soft-deletes a case that never completed. Only the source tenant may remove.
func (s *TransferService) Remove(ctx context.Context, id string, actor models.Actor) (err error) {
	defer func() { s.metrics.RecordTransferTransition("remove", err) }()

	transfer, err := s.load(ctx, id, actor.TenantID)
	if err != nil {
		return err
	}
	if err := sourceOnly(transfer, actor.TenantID, "remove"); err != nil {
		return err
	}
	if transfer.Status == models.TransferCompleted {
		return appErrors.WithDetails(appErrors.ErrConflict, "completed transfers cannot be removed", map[string]interface{}{
			"transfer_id": transfer.ID,
			"status":      transfer.Status,
		})
	}
	if err := s.transfers.SoftDelete(ctx, transfer.ID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.raceConflict(ctx, transfer, "")
		}
		return appErrors.Store(err, "failed to remove transfer case")
	}
	return nil
}

// Get returns a case visible to the acting tenant.
func (s *TransferService) Get(ctx context.Context, id, tenantID string) (*models.TransferCase, error) {
	return s.load(ctx, id, tenantID)
}

// List returns cases in which the tenant participates.
func (s *TransferService) List(ctx context.Context, tenantID string, query dto.TransferQuery) ([]models.TransferCase, *models.Pagination, error) {
	direction := query.Direction
	switch direction {
	case "":
		direction = models.DirectionAll
	case models.DirectionIncoming, models.DirectionOutgoing, models.DirectionAll:
	default:
		return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported direction", map[string]interface{}{"direction": direction})
	}
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported transfer status", map[string]interface{}{"status": status})
		}
	}
	filter := models.TransferFilter{
		TenantID:  tenantID,
		Direction: direction,
		Statuses:  query.Status,
		StudentID: query.StudentID,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	transfers, total, err := s.transfers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err, "failed to list transfer cases")
	}
	page, size := pageDefaults(query.Page, query.PageSize)
	return transfers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

type authorityCheck func(transfer *models.TransferCase, tenantID, operation string) error

func destinationOnly(transfer *models.TransferCase, tenantID, operation string) error {
	return requireTenantIs(transfer, transfer.ToTenantID, tenantID, operation)
}

func sourceOnly(transfer *models.TransferCase, tenantID, operation string) error {
	return requireTenantIs(transfer, transfer.FromTenantID, tenantID, operation)
}

func eitherTenant(transfer *models.TransferCase, tenantID, operation string) error {
	if tenantID == transfer.FromTenantID {
		return nil
	}
	return requireTenantIs(transfer, transfer.ToTenantID, tenantID, operation)
}

func requireTenantIs(transfer *models.TransferCase, expected, acting, operation string) error {
	if expected == acting {
		return nil
	}
	return appErrors.WithDetails(appErrors.ErrForbidden, "tenant may not "+operation+" this transfer", map[string]interface{}{
		"transfer_id":      transfer.ID,
		"operation":        operation,
		"acting_tenant_id": acting,
		"from_tenant_id":   transfer.FromTenantID,
		"to_tenant_id":     transfer.ToTenantID,
	})
}

func (s *TransferService) transition(ctx context.Context, id string, actor models.Actor, operation string, authority authorityCheck, from []models.TransferStatus, to models.TransferStatus, metadata datatypes.JSONMap) (result *models.TransferCase, err error) {
	defer func() { s.metrics.RecordTransferTransition(operation, err) }()

	transfer, err := s.load(ctx, id, actor.TenantID)
	if err != nil {
		return nil, err
	}
	if err := authority(transfer, actor.TenantID, operation); err != nil {
		return nil, err
	}
	if !statusIn(transfer.Status, from) {
		return nil, transferStateConflict(transfer, from...)
	}
	updated, err := s.transfers.Transition(ctx, models.TransferTransition{
		ID:       transfer.ID,
		From:     from,
		To:       to,
		At:       s.now().UTC(),
		By:       actor.UserIDPtr(),
		Metadata: metadata,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.raceConflict(ctx, transfer, from...)
		}
		return nil, appErrors.Store(err, "failed to update transfer case")
	}
	s.logger.Info("transfer transitioned",
		zap.String("transfer_id", updated.ID),
		zap.String("from", string(transfer.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("tenant_id", actor.TenantID),
	)
	return updated, nil
}

// load returns a case only to the two tenants that participate in it.
func (s *TransferService) load(ctx context.Context, id, tenantID string) (*models.TransferCase, error) {
	transfer, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "transfer not found", map[string]interface{}{"transfer_id": id})
		}
		return nil, appErrors.Store(err, "failed to load transfer case")
	}
	if transfer.FromTenantID != tenantID && transfer.ToTenantID != tenantID {
		return nil, appErrors.WithDetails(appErrors.ErrNotFound, "transfer not found", map[string]interface{}{"transfer_id": id})
	}
	return transfer, nil
}

// raceConflict reports a guarded update that matched no row, using the
// current status when it can still be read.
func (s *TransferService) raceConflict(ctx context.Context, transfer *models.TransferCase, required ...models.TransferStatus) error {
	if current, err := s.transfers.GetByID(ctx, transfer.ID); err == nil {
		return transferStateConflict(current, required...)
	}
	return transferStateConflict(transfer, required...)
}

func (s *TransferService) provisionDestination(ctx context.Context, transfer *models.TransferCase, req dto.CompleteTransferRequest, actor models.Actor, now time.Time, result *dto.TransferResult) (*models.Enrollment, error) {
	provision := ProvisionRequest{
		TenantID:       transfer.ToTenantID,
		SchoolID:       *transfer.ToSchoolID,
		StudentID:      transfer.StudentID,
		AcademicYearID: req.AcademicYearID,
		ClassGroupID:   req.ClassGroupID,
		At:             now,
	}
	if provision.AcademicYearID == nil {
		if v, ok := transfer.MetaString(models.TransferMetaAcademicYearID); ok {
			provision.AcademicYearID = &v
		}
	}
	if provision.ClassGroupID == nil {
		if v, ok := transfer.MetaString(models.TransferMetaClassGroupID); ok {
			provision.ClassGroupID = &v
		}
	}
	provisioned, err := s.provisioner.Provision(ctx, provision)
	if err != nil {
		return nil, err
	}
	enrollment := provisioned.Enrollment
	if provisioned.EnrollmentCreated {
		_, warning := s.events.AppendBestEffort(ctx, models.EnrollmentEventInput{
			TenantID:     enrollment.TenantID,
			EnrollmentID: enrollment.ID,
			EventType:    models.EventCreated,
			Actor:        actor,
			EffectiveAt:  now,
			Metadata: map[string]interface{}{
				"transfer_case_id": transfer.ID,
				"from_tenant_id":   transfer.FromTenantID,
			},
		})
		result.AddWarning(warning)
	}
	if provisioned.MembershipCreated {
		groupID := provisioned.Membership.ClassGroupID
		_, warning := s.events.AppendBestEffort(ctx, models.EnrollmentEventInput{
			TenantID:       enrollment.TenantID,
			EnrollmentID:   enrollment.ID,
			EventType:      models.EventClassMembershipAdded,
			Actor:          actor,
			EffectiveAt:    now,
			ToClassGroupID: &groupID,
			Metadata:       map[string]interface{}{"transfer_case_id": transfer.ID},
		})
		result.AddWarning(warning)
	}
	return enrollment, nil
}

// closeSourceEnrollment marks the source enrollment transferred and closes its
// open class membership. A rerun after partial failure only finishes what is
// left. It returns the source enrollment id when one is known.
func (s *TransferService) closeSourceEnrollment(ctx context.Context, transfer *models.TransferCase, actor models.Actor, now time.Time, result *dto.TransferResult) (*string, error) {
	var source *models.Enrollment
	var err error
	switch {
	case transfer.FromEnrollmentID != nil:
		source, err = s.enrollments.FindByID(ctx, *transfer.FromEnrollmentID)
	case transfer.FromSchoolID != nil:
		source, err = s.enrollments.FindActiveByStudentAndSchool(ctx, transfer.FromTenantID, transfer.StudentID, *transfer.FromSchoolID)
	default:
		source, err = s.enrollments.FindActiveByStudent(ctx, transfer.FromTenantID, transfer.StudentID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transfer.FromEnrollmentID, nil
		}
		return nil, appErrors.Store(err, "failed to load source enrollment")
	}
	if source.TenantID != transfer.FromTenantID {
		return transfer.FromEnrollmentID, nil
	}

	sourceActor := actor
	sourceActor.TenantID = transfer.FromTenantID

	if source.Status == models.EnrollmentStatusActive {
		changed, err := s.enrollments.TransitionStatus(ctx, source.ID, models.EnrollmentStatusActive, models.EnrollmentStatusTransferred, &now)
		if err != nil {
			return nil, appErrors.Store(err, "failed to mark source enrollment transferred")
		}
		if changed {
			_, warning := s.events.AppendBestEffort(ctx, models.EnrollmentEventInput{
				TenantID:     source.TenantID,
				EnrollmentID: source.ID,
				EventType:    models.EventTransferCompleted,
				Actor:        sourceActor,
				EffectiveAt:  now,
				Metadata: map[string]interface{}{
					"transfer_case_id": transfer.ID,
					"to_tenant_id":     transfer.ToTenantID,
				},
			})
			result.AddWarning(warning)
		}
	}

	closed, err := s.enrollments.CloseOpenClassMembership(ctx, source.ID, now)
	switch {
	case err == nil:
		groupID := closed.ClassGroupID
		_, warning := s.events.AppendBestEffort(ctx, models.EnrollmentEventInput{
			TenantID:         source.TenantID,
			EnrollmentID:     source.ID,
			EventType:        models.EventClassMembershipClosed,
			Actor:            sourceActor,
			EffectiveAt:      now,
			FromClassGroupID: &groupID,
			Metadata:         map[string]interface{}{"transfer_case_id": transfer.ID},
		})
		result.AddWarning(warning)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Store(err, "failed to close source class membership")
	}
	return &source.ID, nil
}

func statusIn(status models.TransferStatus, allowed []models.TransferStatus) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}

func transferStateConflict(transfer *models.TransferCase, required ...models.TransferStatus) error {
	details := map[string]interface{}{
		"transfer_id": transfer.ID,
		"status":      transfer.Status,
	}
	if len(required) > 0 {
		details["required_status"] = required
	}
	return appErrors.WithDetails(appErrors.ErrConflict, "transfer is not in a state that allows this operation", details)
}

func pendingTransferConflict(studentID string) error {
	return appErrors.WithDetails(appErrors.ErrConflict, "student already has a pending transfer", map[string]interface{}{"student_id": studentID})
}

func decisionMetadata(note string, extra map[string]interface{}) datatypes.JSONMap {
	metadata := datatypes.JSONMap{}
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		metadata[models.TransferMetaDecisionNote] = trimmed
	}
	for k, v := range extra {
		metadata[k] = v
	}
	return metadata
}
