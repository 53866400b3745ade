package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/pkg/config"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

const pendingNotFound = "pending enrollment not found"

type pendingEnrollmentStore interface {
	Create(ctx context.Context, pending *models.PendingEnrollment) error
	FindByID(ctx context.Context, id string) (*models.PendingEnrollment, error)
	List(ctx context.Context, filter models.PendingEnrollmentFilter) ([]models.PendingEnrollment, int, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
	Process(ctx context.Context, id string, apply func(*models.PendingEnrollment) (*models.Enrollment, error)) (*models.PendingEnrollment, *models.Enrollment, error)
}

// PendingEnrollmentService orchestrates the registration request workflow: creation, approval,
// cancellation, expiry and conversion into enrollments.
type PendingEnrollmentService struct {
	repo       pendingEnrollmentStore
	metrics    workflowMetrics
	validator  *validator.Validate
	logger     *zap.Logger
	defaultTTL time.Duration
	now        func() time.Time
}

// NewPendingEnrollmentService constructs PendingEnrollmentService.
func NewPendingEnrollmentService(
	repo pendingEnrollmentStore,
	metrics workflowMetrics,
	cfg config.PendingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *PendingEnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingEnrollmentService{
		repo:       repo,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		defaultTTL: cfg.DefaultTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new pending enrollment. A request without deadline receives the configured
// default window, if any.
func (s *PendingEnrollmentService) Create(ctx context.Context, req dto.CreatePendingEnrollmentRequest) (*models.PendingEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pending enrollment payload")
	}
	participant, err := models.ParticipantFromColumns(nonEmpty(req.ParentID), nonEmpty(req.StudentID), nonEmpty(req.ChildID))
	if err != nil {
		return nil, err
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil && s.defaultTTL > 0 {
		deadline := s.now().Add(s.defaultTTL)
		expiresAt = &deadline
	}

	pending, err := models.NewPendingEnrollment(req.CourseID, participant, *req.Price, expiresAt, req.Notes)
	if err != nil {
		return nil, err
	}
	pending.CreatedAt = s.now()
	if err := s.repo.Create(ctx, pending); err != nil {
		return nil, repositoryError(err, pendingNotFound, "create pending enrollment")
	}

	s.logger.Info("pending enrollment created",
		zap.String("pending_enrollment_id", pending.ID),
		zap.String("course_id", pending.CourseID),
		zap.String("participant", participant.String()),
	)
	return pending, nil
}

// Get returns a pending enrollment by id.
func (s *PendingEnrollmentService) Get(ctx context.Context, id string) (*models.PendingEnrollment, error) {
	pending, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repositoryError(err, pendingNotFound, "load pending enrollment")
	}
	return pending, nil
}

// List returns pending enrollments with pagination metadata.
func (s *PendingEnrollmentService) List(ctx context.Context, filter models.PendingEnrollmentFilter) ([]models.PendingEnrollment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", filter.Status))
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending enrollments")
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// UpdateStatus applies a status transition on behalf of actorID. An empty actorID records no
// processor. Accepting through this path does not create the enrollment; use Accept for that.
func (s *PendingEnrollmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdatePendingEnrollmentStatusRequest, actorID string) (*models.PendingEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	return s.transition(ctx, id, models.PendingEnrollmentStatus(req.Status), actorID)
}

// Cancel withdraws a pending enrollment.
func (s *PendingEnrollmentService) Cancel(ctx context.Context, id, actorID string) (*models.PendingEnrollment, error) {
	return s.transition(ctx, id, models.PendingStatusCancelled, actorID)
}

// Accept approves a pending enrollment and creates the matching enrollment in the same
// transaction. Neither record changes when the enrollment cannot be created.
func (s *PendingEnrollmentService) Accept(ctx context.Context, id, actorID string) (*models.PendingEnrollment, *models.Enrollment, error) {
	now := s.now()
	pending, enrollment, err := s.repo.Process(ctx, id, func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		if err := p.TransitionTo(models.PendingStatusAccepted, nonEmpty(actorID), now); err != nil {
			return nil, err
		}
		return p.ToEnrollment()
	})
	if err != nil {
		s.logger.Warn("pending enrollment acceptance rejected", zap.String("pending_enrollment_id", id), zap.Error(err))
		return nil, nil, repositoryError(err, pendingNotFound, "accept pending enrollment")
	}

	s.recordTransition(recordPendingEnrollment, string(models.PendingStatusPending), string(pending.Status))
	s.recordTransition(recordEnrollment, "", string(enrollment.Status))
	s.logger.Info("pending enrollment accepted",
		zap.String("pending_enrollment_id", pending.ID),
		zap.String("enrollment_id", enrollment.ID),
		zap.String("actor_id", actorID),
	)
	return pending, enrollment, nil
}

// Expire marks the pending enrollment expired when its deadline has been reached. The boolean
// reports whether the record changed; a record without deadline, or one not yet due, is left alone.
func (s *PendingEnrollmentService) Expire(ctx context.Context, id string) (*models.PendingEnrollment, bool, error) {
	now := s.now()
	var expired bool
	pending, _, err := s.repo.Process(ctx, id, func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		var err error
		expired, err = p.Expire(now)
		return nil, err
	})
	if err != nil {
		return nil, false, repositoryError(err, pendingNotFound, "expire pending enrollment")
	}
	if expired {
		s.recordTransition(recordPendingEnrollment, string(models.PendingStatusPending), string(models.PendingStatusExpired))
		if s.metrics != nil {
			s.metrics.RecordExpired()
		}
		s.logger.Info("pending enrollment expired", zap.String("pending_enrollment_id", id))
	}
	return pending, expired, nil
}

// ToEnrollment converts an already accepted pending enrollment into an enrollment. It serves
// records accepted through UpdateStatus; Accept performs the conversion itself. The pending row
// stays locked until the enrollment is inserted.
func (s *PendingEnrollmentService) ToEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	pending, enrollment, err := s.repo.Process(ctx, id, func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		return p.ToEnrollment()
	})
	if err != nil {
		return nil, repositoryError(err, pendingNotFound, "convert pending enrollment")
	}

	s.recordTransition(recordEnrollment, "", string(enrollment.Status))
	s.logger.Info("pending enrollment converted",
		zap.String("pending_enrollment_id", pending.ID),
		zap.String("enrollment_id", enrollment.ID),
	)
	return enrollment, nil
}

func (s *PendingEnrollmentService) transition(ctx context.Context, id string, next models.PendingEnrollmentStatus, actorID string) (*models.PendingEnrollment, error) {
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", next))
	}
	now := s.now()
	var from models.PendingEnrollmentStatus
	pending, _, err := s.repo.Process(ctx, id, func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		from = p.Status
		return nil, p.TransitionTo(next, nonEmpty(actorID), now)
	})
	if err != nil {
		s.logger.Warn("pending enrollment transition rejected", zap.String("pending_enrollment_id", id), zap.String("to", string(next)), zap.Error(err))
		return nil, repositoryError(err, pendingNotFound, "update pending enrollment status")
	}

	s.recordTransition(recordPendingEnrollment, string(from), string(pending.Status))
	s.logger.Info("pending enrollment status updated",
		zap.String("pending_enrollment_id", pending.ID),
		zap.String("from", string(from)),
		zap.String("to", string(pending.Status)),
	)
	return pending, nil
}

func (s *PendingEnrollmentService) recordTransition(record, from, to string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTransition(record, from, to)
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
