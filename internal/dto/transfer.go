package dto

import (
	"github.com/noah-isme/sma-records-api/internal/models"
)

// CreateTransferRequest opens a transfer case from the acting tenant.
type CreateTransferRequest struct {
	StudentID      string  `json:"studentId" validate:"required"`
	FromSchoolID   *string `json:"fromSchoolId" validate:"omitempty,min=1"`
	ToTenantID     string  `json:"toTenantId" validate:"required"`
	ToSchoolID     *string `json:"toSchoolId" validate:"omitempty,min=1"`
	AcademicYearID *string `json:"toAcademicYearId" validate:"omitempty,min=1"`
	ClassGroupID   *string `json:"toClassGroupId" validate:"omitempty,min=1"`
	Reason         string  `json:"reason" validate:"max=1000"`
}

// TransferDecisionRequest carries an optional note for approve/reject/cancel.
type TransferDecisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// CompleteTransferRequest lets the destination override placement at completion.
type CompleteTransferRequest struct {
	AcademicYearID *string `json:"toAcademicYearId" validate:"omitempty,min=1"`
	ClassGroupID   *string `json:"toClassGroupId" validate:"omitempty,min=1"`
}

// TransferQuery mirrors supported listing filters.
type TransferQuery struct {
	Status    []models.TransferStatus
	Direction models.TransferDirection
	StudentID string
	Page      int
	PageSize  int
}

// TransferResult is returned by mutating transfer operations. Warnings list
// best-effort side effects that failed without failing the operation.
type TransferResult struct {
	Transfer *models.TransferCase `json:"transfer"`
	Warnings []string             `json:"warnings,omitempty"`
}

// AddWarning records a non-empty warning.
func (r *TransferResult) AddWarning(warning string) {
	if warning != "" {
		r.Warnings = append(r.Warnings, warning)
	}
}
