package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/pkg/database"
)

// SnapshotVersionConstraint guards version uniqueness per (tenant, student, kind).
const SnapshotVersionConstraint = "uq_snapshots_version"

// SnapshotTransferConstraint allows one snapshot per originating transfer case.
const SnapshotTransferConstraint = "uq_snapshots_transfer_case"

const snapshotColumns = `id, tenant_id, school_id, student_id, kind, academic_year_id, as_of_at, version, is_final, status,
       payload, payload_schema_version, payload_hash, hash_algo, hash_encoding, source_type, source_transfer_case_id,
       notes, finalized_at, finalized_by, revoked_at, revoked_by, revoked_reason, created_by, created_at, updated_at, deleted_at`

const insertSnapshotQuery = `INSERT INTO academic_record_snapshots
	(id, tenant_id, school_id, student_id, kind, academic_year_id, as_of_at, version, is_final, status,
	 payload, payload_schema_version, payload_hash, hash_algo, hash_encoding, source_type, source_transfer_case_id,
	 notes, finalized_at, finalized_by, created_by, created_at, updated_at)
	VALUES (:id, :tenant_id, :school_id, :student_id, :kind, :academic_year_id, :as_of_at, :version, :is_final, :status,
	 :payload, :payload_schema_version, :payload_hash, :hash_algo, :hash_encoding, :source_type, :source_transfer_case_id,
	 :notes, :finalized_at, :finalized_by, :created_by, :created_at, :updated_at)`

// lockSiblingsQuery takes row locks on every snapshot of a key in id order,
// so concurrent writers on the same key queue instead of deadlocking.
const lockSiblingsQuery = `SELECT id, is_final, status FROM academic_record_snapshots
	WHERE tenant_id = $1 AND student_id = $2 AND kind = $3 AND deleted_at IS NULL
	ORDER BY id FOR UPDATE`

const supersedeSiblingsQuery = `UPDATE academic_record_snapshots SET status = $5, updated_at = $6
	WHERE tenant_id = $1 AND student_id = $2 AND kind = $3 AND id <> $4 AND status = $7 AND deleted_at IS NULL`

// SnapshotRepository persists academic record snapshots. Payload and hash
// columns are written once at insert and never updated.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// MaxVersion returns the highest version of non-deleted snapshots for the key, or 0.
func (r *SnapshotRepository) MaxVersion(ctx context.Context, tenantID, studentID string, kind models.SnapshotKind) (int, error) {
	const query = `SELECT COALESCE(MAX(version), 0) FROM academic_record_snapshots
	WHERE tenant_id = $1 AND student_id = $2 AND kind = $3 AND deleted_at IS NULL`
	var version int
	if err := r.db.GetContext(ctx, &version, query, tenantID, studentID, kind); err != nil {
		return 0, fmt.Errorf("max snapshot version: %w", err)
	}
	return version, nil
}

// Create inserts a draft snapshot. While a final snapshot of the same kind
// holds the active slot the draft is stored superseded, so it only becomes
// active once it is finalized itself. A lost version race surfaces as a
// unique violation on SnapshotVersionConstraint.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *models.AcademicRecordSnapshot) error {
	prepareSnapshot(snapshot)
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		siblings, err := lockSiblings(ctx, tx, snapshot.TenantID, snapshot.StudentID, snapshot.Kind)
		if err != nil {
			return err
		}
		if !snapshot.IsFinal {
			snapshot.Status = models.SnapshotActive
			if hasActiveFinal(siblings) {
				snapshot.Status = models.SnapshotSuperseded
			}
		}
		if _, err := tx.NamedExecContext(ctx, insertSnapshotQuery, snapshot); err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		return nil
	})
}

// CreateFinal inserts an already-final snapshot after superseding the active
// siblings of the same kind, in one transaction.
func (r *SnapshotRepository) CreateFinal(ctx context.Context, snapshot *models.AcademicRecordSnapshot) error {
	prepareSnapshot(snapshot)
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := lockSiblings(ctx, tx, snapshot.TenantID, snapshot.StudentID, snapshot.Kind); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, supersedeSiblingsQuery,
			snapshot.TenantID, snapshot.StudentID, snapshot.Kind, snapshot.ID,
			models.SnapshotSuperseded, snapshot.CreatedAt, models.SnapshotActive,
		); err != nil {
			return fmt.Errorf("supersede snapshots: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, insertSnapshotQuery, snapshot); err != nil {
			return fmt.Errorf("create final snapshot: %w", err)
		}
		return nil
	})
}

// GetByID fetches a non-deleted snapshot.
func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*models.AcademicRecordSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM academic_record_snapshots WHERE id = $1 AND deleted_at IS NULL`
	var snapshot models.AcademicRecordSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, id); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// FindByTransferCase returns the snapshot sealed for a transfer case.
func (r *SnapshotRepository) FindByTransferCase(ctx context.Context, transferCaseID string) (*models.AcademicRecordSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM academic_record_snapshots
	WHERE source_transfer_case_id = $1 AND deleted_at IS NULL`
	var snapshot models.AcademicRecordSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, transferCaseID); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns snapshots matching the filter, newest version first.
func (r *SnapshotRepository) List(ctx context.Context, filter models.SnapshotFilter) ([]models.AcademicRecordSnapshot, int, error) {
	conditions := []string{"tenant_id = $1", "deleted_at IS NULL"}
	args := []interface{}{filter.TenantID}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.IsFinal != nil {
		args = append(args, *filter.IsFinal)
		conditions = append(conditions, fmt.Sprintf("is_final = $%d", len(args)))
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM academic_record_snapshots%s ORDER BY created_at DESC, version DESC LIMIT %d OFFSET %d`,
		snapshotColumns, clause, size, (page-1)*size)

	snapshots := make([]models.AcademicRecordSnapshot, 0)
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list snapshots: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM academic_record_snapshots"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count snapshots: %w", err)
	}
	return snapshots, total, nil
}

// FinalizeSnapshotParams groups the columns written on finalize.
type FinalizeSnapshotParams struct {
	ID          string
	TenantID    string
	StudentID   string
	Kind        models.SnapshotKind
	Notes       *string
	FinalizedBy *string
	FinalizedAt time.Time
}

// Finalize supersedes every other active snapshot of the same kind and then
// marks the target final and active, in one transaction. It returns
// sql.ErrNoRows when the target is already final or revoked.
func (r *SnapshotRepository) Finalize(ctx context.Context, params FinalizeSnapshotParams) (*models.AcademicRecordSnapshot, error) {
	var snapshot models.AcademicRecordSnapshot
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := lockSiblings(ctx, tx, params.TenantID, params.StudentID, params.Kind); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, supersedeSiblingsQuery,
			params.TenantID, params.StudentID, params.Kind, params.ID,
			models.SnapshotSuperseded, params.FinalizedAt, models.SnapshotActive,
		); err != nil {
			return fmt.Errorf("supersede snapshots: %w", err)
		}
		query := `UPDATE academic_record_snapshots
		SET is_final = TRUE, status = $2, notes = COALESCE($3, notes), finalized_at = $4, finalized_by = $5, updated_at = $4
		WHERE id = $1 AND tenant_id = $6 AND is_final = FALSE AND status <> $7 AND deleted_at IS NULL
		RETURNING ` + snapshotColumns
		return tx.GetContext(ctx, &snapshot, query,
			params.ID, models.SnapshotActive, params.Notes, params.FinalizedAt, params.FinalizedBy,
			params.TenantID, models.SnapshotRevoked,
		)
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// RevokeSnapshotParams groups the columns written on revoke.
type RevokeSnapshotParams struct {
	ID        string
	TenantID  string
	Reason    string
	RevokedBy *string
	RevokedAt time.Time
}

// Revoke marks a snapshot revoked. It returns sql.ErrNoRows when it was already revoked.
func (r *SnapshotRepository) Revoke(ctx context.Context, params RevokeSnapshotParams) (*models.AcademicRecordSnapshot, error) {
	query := `UPDATE academic_record_snapshots
	SET status = $3, revoked_at = $4, revoked_by = $5, revoked_reason = $6, updated_at = $4
	WHERE id = $1 AND tenant_id = $2 AND status <> $3 AND deleted_at IS NULL
	RETURNING ` + snapshotColumns
	var snapshot models.AcademicRecordSnapshot
	err := r.db.GetContext(ctx, &snapshot, query,
		params.ID, params.TenantID, models.SnapshotRevoked, params.RevokedAt, params.RevokedBy, params.Reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("revoke snapshot: %w", err)
	}
	return &snapshot, nil
}

type snapshotSlot struct {
	ID      string                `db:"id"`
	IsFinal bool                  `db:"is_final"`
	Status  models.SnapshotStatus `db:"status"`
}

func lockSiblings(ctx context.Context, tx *sqlx.Tx, tenantID, studentID string, kind models.SnapshotKind) ([]snapshotSlot, error) {
	var slots []snapshotSlot
	if err := tx.SelectContext(ctx, &slots, lockSiblingsQuery, tenantID, studentID, kind); err != nil {
		return nil, fmt.Errorf("lock snapshots: %w", err)
	}
	return slots, nil
}

func hasActiveFinal(slots []snapshotSlot) bool {
	for _, slot := range slots {
		if slot.IsFinal && slot.Status == models.SnapshotActive {
			return true
		}
	}
	return false
}

func prepareSnapshot(snapshot *models.AcademicRecordSnapshot) {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}
	snapshot.UpdatedAt = snapshot.CreatedAt
	if snapshot.Status == "" {
		snapshot.Status = models.SnapshotActive
	}
}
