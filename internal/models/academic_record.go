package models

import "time"

// AggregationScope bounds the academic data read into a snapshot payload.
type AggregationScope struct {
	TenantID       string
	StudentID      string
	SchoolID       *string
	AcademicYearID *string
	AsOf           time.Time
}

// AssessmentScore is one graded assessment of an enrolled student.
type AssessmentScore struct {
	EnrollmentID   string    `db:"enrollment_id" json:"enrollment_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	SubjectName    string    `db:"subject_name" json:"subject_name"`
	AssessmentName string    `db:"assessment_name" json:"assessment_name"`
	Score          float64   `db:"score" json:"score"`
	MaxScore       float64   `db:"max_score" json:"max_score"`
	RecordedAt     time.Time `db:"recorded_at" json:"recorded_at"`
}

// AttendanceSummary aggregates attendance marks per enrollment.
type AttendanceSummary struct {
	EnrollmentID string `db:"enrollment_id" json:"enrollment_id"`
	Present      int    `db:"present" json:"present"`
	Absent       int    `db:"absent" json:"absent"`
	Late         int    `db:"late" json:"late"`
	Excused      int    `db:"excused" json:"excused"`
	Total        int    `db:"total" json:"total"`
}

// SubjectResult is the final outcome of a subject for an enrollment.
type SubjectResult struct {
	EnrollmentID   string   `db:"enrollment_id" json:"enrollment_id"`
	AcademicYearID string   `db:"academic_year_id" json:"academic_year_id"`
	SubjectID      string   `db:"subject_id" json:"subject_id"`
	SubjectName    string   `db:"subject_name" json:"subject_name"`
	FinalScore     *float64 `db:"final_score" json:"final_score,omitempty"`
	GradeLetter    *string  `db:"grade_letter" json:"grade_letter,omitempty"`
	Passed         bool     `db:"passed" json:"passed"`
}
