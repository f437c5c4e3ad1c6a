package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gorm.io/datatypes"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// PendingTransferConstraint is the partial unique index allowing one open case per student.
const PendingTransferConstraint = "uq_transfer_cases_pending_student"

const transferColumns = `id, student_id, from_tenant_id, from_school_id, to_tenant_id, to_school_id, status,
       requested_at, requested_by, approved_at, decided_at, decided_by, completed_at,
       from_enrollment_id, to_enrollment_id, snapshot_id, metadata, created_at, updated_at, deleted_at`

// TransferRepository persists transfer cases.
type TransferRepository struct {
	db *sqlx.DB
}

// NewTransferRepository constructs the repository.
func NewTransferRepository(db *sqlx.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a new transfer case. A second open case for the same student
// fails with a unique violation on PendingTransferConstraint.
func (r *TransferRepository) Create(ctx context.Context, transfer *models.TransferCase) error {
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if transfer.RequestedAt.IsZero() {
		transfer.RequestedAt = now
	}
	if transfer.Status == "" {
		transfer.Status = models.TransferRequested
	}
	if transfer.Metadata == nil {
		transfer.Metadata = datatypes.JSONMap{}
	}
	transfer.CreatedAt = now
	transfer.UpdatedAt = now
	const query = `INSERT INTO transfer_cases
	(id, student_id, from_tenant_id, from_school_id, to_tenant_id, to_school_id, status, requested_at, requested_by,
	 from_enrollment_id, metadata, created_at, updated_at)
	VALUES (:id, :student_id, :from_tenant_id, :from_school_id, :to_tenant_id, :to_school_id, :status, :requested_at, :requested_by,
	 :from_enrollment_id, :metadata, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, transfer); err != nil {
		return fmt.Errorf("create transfer case: %w", err)
	}
	return nil
}

// GetByID fetches a non-deleted transfer case.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*models.TransferCase, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_cases WHERE id = $1 AND deleted_at IS NULL`
	var transfer models.TransferCase
	if err := r.db.GetContext(ctx, &transfer, query, id); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// HasPending reports whether the student already has a requested or approved case.
func (r *TransferRepository) HasPending(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM transfer_cases
	WHERE student_id = $1 AND status IN ($2, $3) AND deleted_at IS NULL LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, models.TransferRequested, models.TransferApproved); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending transfer: %w", err)
	}
	return true, nil
}

// List returns cases visible to the filter's tenant, newest request first.
func (r *TransferRepository) List(ctx context.Context, filter models.TransferFilter) ([]models.TransferCase, int, error) {
	var conditions []string
	var args []interface{}

	conditions = append(conditions, "deleted_at IS NULL")
	args = append(args, filter.TenantID)
	switch filter.Direction {
	case models.DirectionIncoming:
		conditions = append(conditions, fmt.Sprintf("to_tenant_id = $%d", len(args)))
	case models.DirectionOutgoing:
		conditions = append(conditions, fmt.Sprintf("from_tenant_id = $%d", len(args)))
	default:
		conditions = append(conditions, fmt.Sprintf("(from_tenant_id = $%d OR to_tenant_id = $%d)", len(args), len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM transfer_cases%s ORDER BY requested_at DESC, id DESC LIMIT %d OFFSET %d`,
		transferColumns, clause, size, (page-1)*size)

	transfers := make([]models.TransferCase, 0)
	if err := r.db.SelectContext(ctx, &transfers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transfer cases: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM transfer_cases"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count transfer cases: %w", err)
	}
	return transfers, total, nil
}

// Transition applies a guarded status change. It returns sql.ErrNoRows when
// the case is missing or no longer in one of the expected statuses.
func (r *TransferRepository) Transition(ctx context.Context, t models.TransferTransition) (*models.TransferCase, error) {
	if len(t.From) == 0 {
		return nil, fmt.Errorf("transition transfer case: no source status")
	}
	args := []interface{}{t.ID, t.To, t.At}
	sets := []string{"status = $2", "updated_at = $3"}
	switch t.To {
	case models.TransferApproved:
		sets = append(sets, "approved_at = $3")
	case models.TransferRejected, models.TransferCancelled:
		sets = append(sets, "decided_at = $3")
	}
	if t.By != nil {
		args = append(args, *t.By)
		sets = append(sets, fmt.Sprintf("decided_by = $%d", len(args)))
	}
	if len(t.Metadata) > 0 {
		args = append(args, t.Metadata)
		sets = append(sets, fmt.Sprintf("metadata = metadata || $%d::jsonb", len(args)))
	}
	placeholders := make([]string, len(t.From))
	for i, status := range t.From {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE transfer_cases SET %s
	WHERE id = $1 AND deleted_at IS NULL AND status IN (%s)
	RETURNING %s`, strings.Join(sets, ", "), strings.Join(placeholders, ","), transferColumns)

	var transfer models.TransferCase
	if err := r.db.GetContext(ctx, &transfer, query, args...); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// CompleteTransferParams groups the columns written on completion.
type CompleteTransferParams struct {
	ID               string
	CompletedAt      time.Time
	CompletedBy      *string
	FromEnrollmentID *string
	ToEnrollmentID   *string
	SnapshotID       *string
}

// Complete marks an approved case completed. It returns sql.ErrNoRows when the
// case is no longer approved.
func (r *TransferRepository) Complete(ctx context.Context, params CompleteTransferParams) (*models.TransferCase, error) {
	query := `UPDATE transfer_cases SET status = $2, completed_at = $3, updated_at = $3, decided_by = COALESCE($4, decided_by),
	from_enrollment_id = COALESCE($5, from_enrollment_id), to_enrollment_id = $6, snapshot_id = $7
	WHERE id = $1 AND deleted_at IS NULL AND status = $8
	RETURNING ` + transferColumns
	var transfer models.TransferCase
	err := r.db.GetContext(ctx, &transfer, query,
		params.ID,
		models.TransferCompleted,
		params.CompletedAt,
		params.CompletedBy,
		params.FromEnrollmentID,
		params.ToEnrollmentID,
		params.SnapshotID,
		models.TransferApproved,
	)
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// SoftDelete marks a non-completed case deleted. It returns sql.ErrNoRows when
// the case is missing, already deleted, or completed.
func (r *TransferRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE transfer_cases SET deleted_at = $2, updated_at = $2
	WHERE id = $1 AND deleted_at IS NULL AND status <> $3`
	result, err := r.db.ExecContext(ctx, query, id, at, models.TransferCompleted)
	if err != nil {
		return fmt.Errorf("delete transfer case: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transfer delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
