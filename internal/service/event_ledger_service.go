package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

type enrollmentEventStore interface {
	Append(ctx context.Context, event *models.EnrollmentEvent) error
	ListByEnrollment(ctx context.Context, tenantID, enrollmentID string) ([]models.EnrollmentEvent, error)
}

type enrollmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// EventLedgerService appends and reads enrollment events. Events are never
// updated or deleted.
type EventLedgerService struct {
	store       enrollmentEventStore
	enrollments enrollmentLookup
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewEventLedgerService constructs the ledger service.
func NewEventLedgerService(store enrollmentEventStore, enrollments enrollmentLookup, metrics *MetricsService, logger *zap.Logger) *EventLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLedgerService{store: store, enrollments: enrollments, metrics: metrics, logger: logger, now: time.Now}
}

// Append writes exactly one event and returns its id. Store failures are
// returned to the caller without retry.
func (s *EventLedgerService) Append(ctx context.Context, in models.EnrollmentEventInput) (string, error) {
	if strings.TrimSpace(in.TenantID) == "" || strings.TrimSpace(in.EnrollmentID) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "tenant and enrollment are required")
	}
	if !in.EventType.Valid() {
		return "", appErrors.WithDetails(appErrors.ErrValidation, "unknown event type", map[string]interface{}{
			"event_type": in.EventType,
		})
	}
	actorType := in.Actor.Type
	if actorType == "" {
		actorType = models.ActorSystem
	}
	effectiveAt := in.EffectiveAt
	if effectiveAt.IsZero() {
		effectiveAt = s.now().UTC()
	}
	metadata := datatypes.JSONMap{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	event := &models.EnrollmentEvent{
		ID:               uuid.NewString(),
		TenantID:         in.TenantID,
		EnrollmentID:     in.EnrollmentID,
		EventType:        in.EventType,
		EffectiveAt:      effectiveAt,
		ActorType:        actorType,
		ActorID:          in.Actor.UserIDPtr(),
		FromClassGroupID: in.FromClassGroupID,
		ToClassGroupID:   in.ToClassGroupID,
		Metadata:         metadata,
	}
	if err := s.store.Append(ctx, event); err != nil {
		return "", appErrors.Store(err, "failed to append enrollment event")
	}
	return event.ID, nil
}

// AppendBestEffort appends an event and converts a failure into a warning
// instead of an error.
func (s *EventLedgerService) AppendBestEffort(ctx context.Context, in models.EnrollmentEventInput) (string, string) {
	id, err := s.Append(ctx, in)
	if err != nil {
		s.logger.Warn("enrollment event not recorded",
			zap.String("tenant_id", in.TenantID),
			zap.String("enrollment_id", in.EnrollmentID),
			zap.String("event_type", string(in.EventType)),
			zap.Error(err),
		)
		s.metrics.RecordBestEffortFailure("event_" + string(in.EventType))
		return "", fmt.Sprintf("%s event for enrollment %s was not recorded", in.EventType, in.EnrollmentID)
	}
	return id, ""
}

// List returns the enrollment's timeline, newest effective first. The acting
// tenant must own the enrollment.
func (s *EventLedgerService) List(ctx context.Context, tenantID, enrollmentID string) ([]models.EnrollmentEvent, error) {
	if s.enrollments != nil {
		enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.WithDetails(appErrors.ErrNotFound, "enrollment not found", map[string]interface{}{"enrollment_id": enrollmentID})
			}
			return nil, appErrors.Store(err, "failed to load enrollment")
		}
		if enrollment.TenantID != tenantID {
			return nil, appErrors.WithDetails(appErrors.ErrNotFound, "enrollment not found", map[string]interface{}{"enrollment_id": enrollmentID})
		}
	}
	events, err := s.store.ListByEnrollment(ctx, tenantID, enrollmentID)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list enrollment events")
	}
	return events, nil
}
