package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/export"
)

const (
	exportPageSize = 100
	exportMaxRows  = 10000
)

var rosterHeaders = []string{"id", "course_id", "participant", "status", "enrolled_at", "created_by"}

// Export renders the enrollments matching filter as a roster document. Pagination fields of the
// filter are ignored; at most exportMaxRows rows are rendered.
func (s *EnrollmentService) Export(ctx context.Context, filter models.EnrollmentFilter, format string) (*dto.ExportFile, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", filter.Status))
	}

	rows := make([][]string, 0, exportPageSize)
	filter.PageSize = exportPageSize
	for filter.Page = 1; len(rows) < exportMaxRows; filter.Page++ {
		page, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
		}
		for _, e := range page {
			rows = append(rows, []string{
				e.ID,
				e.CourseID,
				e.Participant().String(),
				string(e.Status),
				e.EnrolledAt.UTC().Format(time.RFC3339),
				e.CreatedBy,
			})
		}
		if len(page) < exportPageSize || filter.Page*exportPageSize >= total {
			break
		}
	}
	if len(rows) > exportMaxRows {
		rows = rows[:exportMaxRows]
	}

	title := "Enrollments"
	if filter.CourseID != "" {
		title = fmt.Sprintf("Enrollments for course %s", filter.CourseID)
	}
	content, err := export.Render(f, export.Table{Title: title, Headers: rosterHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("enrollments exported", zap.String("format", string(f)), zap.Int("rows", len(rows)))
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("enrollments-%s.%s", time.Now().UTC().Format("20060102"), f),
		ContentType: f.ContentType(),
		Content:     content,
	}, nil
}
