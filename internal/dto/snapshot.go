package dto

import (
	"time"

	"github.com/noah-isme/sma-records-api/internal/models"
)

// GenerateSnapshotRequest asks for a new draft snapshot of a student.
type GenerateSnapshotRequest struct {
	StudentID          string                `json:"studentId" validate:"required"`
	Kind               models.SnapshotKind   `json:"kind" validate:"required"`
	SchoolID           *string               `json:"schoolId" validate:"omitempty,min=1"`
	AcademicYearID     *string               `json:"academicYearId" validate:"omitempty,min=1"`
	AsOf               *time.Time            `json:"asOf"`
	IncludeAssessments *bool                 `json:"includeAssessments"`
	IncludeAttendance  *bool                 `json:"includeAttendance"`
	IncludeResults     *bool                 `json:"includeResults"`
	SourceType         models.SnapshotSource `json:"sourceType"`
	Notes              string                `json:"notes" validate:"max=2000"`
}

// FinalizeSnapshotRequest seals a draft snapshot.
type FinalizeSnapshotRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// RevokeSnapshotRequest records why a snapshot is withdrawn.
type RevokeSnapshotRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// SnapshotQuery mirrors supported listing filters.
type SnapshotQuery struct {
	StudentID string
	Kind      *models.SnapshotKind
	Status    *models.SnapshotStatus
	IsFinal   *bool
	Page      int
	PageSize  int
}

// VerifySnapshotResponse reports the integrity check of a stored payload.
type VerifySnapshotResponse struct {
	SnapshotID   string `json:"snapshot_id"`
	Valid        bool   `json:"valid"`
	ComputedHash string `json:"computed_hash"`
	StoredHash   string `json:"stored_hash"`
	HashAlgo     string `json:"hash_algo"`
	HashEncoding string `json:"hash_encoding"`
}

// SnapshotExport holds a rendered snapshot document.
type SnapshotExport struct {
	Filename    string
	ContentType string
	Content     []byte
}
