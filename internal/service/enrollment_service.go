package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

const (
	recordEnrollment        = "enrollment"
	recordPendingEnrollment = "pending_enrollment"
)

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, apply func(*models.Enrollment) error) (*models.Enrollment, error)
}

type workflowMetrics interface {
	RecordTransition(record, from, to string)
	RecordExpired()
}

// EnrollmentService orchestrates reads and status changes of confirmed enrollments.
type EnrollmentService struct {
	repo      enrollmentStore
	metrics   workflowMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, metrics workflowMetrics, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", filter.Status))
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns enrollment by id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repositoryError(err, "enrollment not found", "load enrollment")
	}
	return enrollment, nil
}

// UpdateStatus applies a status transition to the locked enrollment row and persists it.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	next := models.EnrollmentStatus(req.Status)
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", req.Status))
	}

	var from models.EnrollmentStatus
	updated, err := s.repo.UpdateStatus(ctx, id, func(e *models.Enrollment) error {
		from = e.Status
		return e.TransitionTo(next)
	})
	if err != nil {
		s.logger.Warn("enrollment transition rejected", zap.String("enrollment_id", id), zap.String("to", string(next)), zap.Error(err))
		return nil, repositoryError(err, "enrollment not found", "update enrollment status")
	}

	if s.metrics != nil {
		s.metrics.RecordTransition(recordEnrollment, string(from), string(updated.Status))
	}
	s.logger.Info("enrollment status updated",
		zap.String("enrollment_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}
