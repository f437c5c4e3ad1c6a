package models

import (
	"time"

	"gorm.io/datatypes"
)

// EnrollmentEventType enumerates ledger fact kinds.
type EnrollmentEventType string

const (
	EventCreated               EnrollmentEventType = "created"
	EventStatusChanged         EnrollmentEventType = "status_changed"
	EventClassMembershipAdded  EnrollmentEventType = "class_membership_added"
	EventClassMembershipClosed EnrollmentEventType = "class_membership_closed"
	EventTransferRequested     EnrollmentEventType = "transfer_requested"
	EventTransferCompleted     EnrollmentEventType = "transfer_completed"
	EventLeftSchool            EnrollmentEventType = "left_school"
)

// Valid reports whether t is a known event type.
func (t EnrollmentEventType) Valid() bool {
	switch t {
	case EventCreated, EventStatusChanged, EventClassMembershipAdded, EventClassMembershipClosed,
		EventTransferRequested, EventTransferCompleted, EventLeftSchool:
		return true
	}
	return false
}

// EnrollmentEvent is an append-only fact about one enrollment. Rows are never
// updated or deleted.
type EnrollmentEvent struct {
	ID               string              `db:"id" json:"id"`
	Seq              int64               `db:"seq" json:"seq"`
	TenantID         string              `db:"tenant_id" json:"tenant_id"`
	EnrollmentID     string              `db:"enrollment_id" json:"enrollment_id"`
	EventType        EnrollmentEventType `db:"event_type" json:"event_type"`
	EffectiveAt      time.Time           `db:"effective_at" json:"effective_at"`
	ActorType        ActorType           `db:"actor_type" json:"actor_type"`
	ActorID          *string             `db:"actor_id" json:"actor_id,omitempty"`
	FromClassGroupID *string             `db:"from_class_group_id" json:"from_class_group_id,omitempty"`
	ToClassGroupID   *string             `db:"to_class_group_id" json:"to_class_group_id,omitempty"`
	Metadata         datatypes.JSONMap   `db:"metadata" json:"metadata"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
}

// EnrollmentEventInput is the append contract of the ledger.
type EnrollmentEventInput struct {
	TenantID         string
	EnrollmentID     string
	EventType        EnrollmentEventType
	Actor            Actor
	EffectiveAt      time.Time
	Metadata         map[string]interface{}
	FromClassGroupID *string
	ToClassGroupID   *string
}
