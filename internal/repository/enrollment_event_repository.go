package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// EnrollmentEventRepository is the append-only store of enrollment events.
// It intentionally exposes no update or delete operations.
type EnrollmentEventRepository struct {
	db *sqlx.DB
}

// NewEnrollmentEventRepository constructs the repository.
func NewEnrollmentEventRepository(db *sqlx.DB) *EnrollmentEventRepository {
	return &EnrollmentEventRepository{db: db}
}

// Append inserts exactly one event row and fills in its sequence and creation time.
func (r *EnrollmentEventRepository) Append(ctx context.Context, event *models.EnrollmentEvent) error {
	const query = `INSERT INTO enrollment_events
	(id, tenant_id, enrollment_id, event_type, effective_at, actor_type, actor_id, from_class_group_id, to_class_group_id, metadata)
	VALUES (:id, :tenant_id, :enrollment_id, :event_type, :effective_at, :actor_type, :actor_id, :from_class_group_id, :to_class_group_id, :metadata)
	RETURNING seq, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("append enrollment event: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&event.Seq, &event.CreatedAt); err != nil {
			return fmt.Errorf("scan enrollment event: %w", err)
		}
	}
	return rows.Err()
}

// ListByEnrollment returns the enrollment's events, newest effective first
// with ties broken by insertion order.
func (r *EnrollmentEventRepository) ListByEnrollment(ctx context.Context, tenantID, enrollmentID string) ([]models.EnrollmentEvent, error) {
	const query = `SELECT id, seq, tenant_id, enrollment_id, event_type, effective_at, actor_type, actor_id,
       from_class_group_id, to_class_group_id, metadata, created_at
	FROM enrollment_events
	WHERE tenant_id = $1 AND enrollment_id = $2
	ORDER BY effective_at DESC, seq DESC`
	events := make([]models.EnrollmentEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, tenantID, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment events: %w", err)
	}
	return events, nil
}
