package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

type pagedEnrollmentStore struct {
	enrollmentStoreStub
	all   []models.Enrollment
	pages []int
}

func (s *pagedEnrollmentStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	s.pages = append(s.pages, filter.Page)
	_, size, offset := models.NormalizePage(filter.Page, filter.PageSize)
	if offset >= len(s.all) {
		return nil, len(s.all), nil
	}
	end := offset + size
	if end > len(s.all) {
		end = len(s.all)
	}
	return s.all[offset:end], len(s.all), nil
}

func TestEnrollmentServiceExportCSV(t *testing.T) {
	repo := &pagedEnrollmentStore{}
	for i := 0; i < 150; i++ {
		e := activeEnrollment(fmt.Sprintf("enr-%03d", i))
		repo.all = append(repo.all, *e)
	}
	svc := NewEnrollmentService(repo, nil, nil, nil)

	file, err := svc.Export(context.Background(), models.EnrollmentFilter{CourseID: "course-1", Page: 7, PageSize: 3}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	assert.Equal(t, []int{1, 2}, repo.pages)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 151)
	assert.Equal(t, "id,course_id,participant,status,enrolled_at,created_by", lines[0])
	assert.Equal(t, "enr-000,course-1,student stu-1,active,2024-01-10T08:00:00Z,staff-1", lines[1])
}

func TestEnrollmentServiceExportRejectsBadInput(t *testing.T) {
	svc := NewEnrollmentService(&pagedEnrollmentStore{}, nil, nil, nil)

	_, err := svc.Export(context.Background(), models.EnrollmentFilter{}, "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Export(context.Background(), models.EnrollmentFilter{Status: "gone"}, "pdf")
	assert.ErrorIs(t, err, appErrors.ErrInvalidStatus)
}

func TestEnrollmentServiceExportEmptyPDF(t *testing.T) {
	svc := NewEnrollmentService(&pagedEnrollmentStore{}, nil, nil, nil)

	file, err := svc.Export(context.Background(), models.EnrollmentFilter{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Content)
}
