package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-records-api/internal/dto"
	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/pkg/export"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

// Export formats supported by SnapshotService.Export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// Export renders a snapshot payload as a CSV or PDF transcript. The footer
// carries the stored hash so a printed copy can be checked against Verify.
func (s *SnapshotService) Export(ctx context.Context, id, tenantID, format string) (*dto.SnapshotExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatPDF
	}
	var renderer documentRenderer
	contentType := ""
	switch format {
	case ExportFormatCSV:
		renderer, contentType = s.csv, "text/csv"
	case ExportFormatPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported export format", map[string]interface{}{"format": format})
	}

	snapshot, err := s.Get(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	var payload models.SnapshotPayload
	if err := json.Unmarshal(snapshot.Payload, &payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "snapshot payload is unreadable")
	}
	content, err := renderer.Render(snapshotDocument(snapshot, &payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render snapshot")
	}
	return &dto.SnapshotExport{
		Filename:    fmt.Sprintf("snapshot-%s-v%d.%s", snapshot.Kind, snapshot.Version, format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func snapshotDocument(snapshot *models.AcademicRecordSnapshot, payload *models.SnapshotPayload) export.Document {
	student := export.Dataset{
		Headers: []string{"field", "value"},
		Rows: []map[string]string{
			{"field": "student_id", "value": payload.Student.ID},
			{"field": "full_name", "value": payload.Student.FullName},
			{"field": "as_of", "value": payload.AsOf.Format(time.RFC3339)},
		},
	}
	if payload.Student.BirthDate != nil {
		student.Rows = append(student.Rows, map[string]string{"field": "birth_date", "value": payload.Student.BirthDate.Format("2006-01-02")})
	}
	if payload.Student.DocumentNumber != nil {
		student.Rows = append(student.Rows, map[string]string{"field": "document_number", "value": *payload.Student.DocumentNumber})
	}

	enrollments := export.Dataset{Headers: []string{"school", "academic_year", "status", "enrolled_at", "ended_at"}}
	for _, e := range payload.Enrollments {
		ended := ""
		if e.EndedAt != nil {
			ended = e.EndedAt.Format("2006-01-02")
		}
		enrollments.Rows = append(enrollments.Rows, map[string]string{
			"school":        e.SchoolName,
			"academic_year": e.AcademicYear,
			"status":        string(e.Status),
			"enrolled_at":   e.EnrolledAt.Format("2006-01-02"),
			"ended_at":      ended,
		})
	}

	sections := []export.Section{
		{Title: "Student", Data: student},
		{Title: "Enrollments", Data: enrollments},
	}
	if len(payload.Results) > 0 {
		results := export.Dataset{Headers: []string{"subject", "final_score", "grade", "passed"}}
		for _, r := range payload.Results {
			score, grade := "", ""
			if r.FinalScore != nil {
				score = strconv.FormatFloat(*r.FinalScore, 'f', 2, 64)
			}
			if r.GradeLetter != nil {
				grade = *r.GradeLetter
			}
			results.Rows = append(results.Rows, map[string]string{
				"subject":     r.SubjectName,
				"final_score": score,
				"grade":       grade,
				"passed":      strconv.FormatBool(r.Passed),
			})
		}
		sections = append(sections, export.Section{Title: "Results", Data: results})
	}
	if len(payload.Assessments) > 0 {
		assessments := export.Dataset{Headers: []string{"subject", "assessment", "score", "max_score", "recorded_at"}}
		for _, a := range payload.Assessments {
			assessments.Rows = append(assessments.Rows, map[string]string{
				"subject":     a.SubjectName,
				"assessment":  a.AssessmentName,
				"score":       strconv.FormatFloat(a.Score, 'f', 2, 64),
				"max_score":   strconv.FormatFloat(a.MaxScore, 'f', 2, 64),
				"recorded_at": a.RecordedAt.Format("2006-01-02"),
			})
		}
		sections = append(sections, export.Section{Title: "Assessments", Data: assessments})
	}
	if len(payload.Attendance) > 0 {
		attendance := export.Dataset{Headers: []string{"enrollment", "present", "absent", "late", "excused", "total"}}
		for _, a := range payload.Attendance {
			attendance.Rows = append(attendance.Rows, map[string]string{
				"enrollment": a.EnrollmentID,
				"present":    strconv.Itoa(a.Present),
				"absent":     strconv.Itoa(a.Absent),
				"late":       strconv.Itoa(a.Late),
				"excused":    strconv.Itoa(a.Excused),
				"total":      strconv.Itoa(a.Total),
			})
		}
		sections = append(sections, export.Section{Title: "Attendance", Data: attendance})
	}

	return export.Document{
		Title:    fmt.Sprintf("Academic record: %s", payload.Student.FullName),
		Sections: sections,
		Footer: []string{
			fmt.Sprintf("snapshot %s version %d kind %s status %s final %t", snapshot.ID, snapshot.Version, snapshot.Kind, snapshot.Status, snapshot.IsFinal),
			fmt.Sprintf("%s/%s %s", snapshot.HashAlgo, snapshot.HashEncoding, snapshot.PayloadHash),
		},
	}
}
