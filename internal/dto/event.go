package dto

import "github.com/noah-isme/sma-records-api/internal/models"

// EnrollmentTimeline is the ordered event history of one enrollment.
type EnrollmentTimeline struct {
	EnrollmentID string                   `json:"enrollment_id"`
	Events       []models.EnrollmentEvent `json:"events"`
}
