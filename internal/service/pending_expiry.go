package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/pkg/config"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/jobs"
)

const expiryJobType = "pending_enrollment.expire"

// ExpireDue runs one expiry pass: it collects the pending enrollments whose deadline has been
// reached and expires them over a worker pool, retrying transient failures. Records that were
// processed elsewhere in the meantime are skipped. The pass does not reschedule itself.
func (s *PendingEnrollmentService) ExpireDue(ctx context.Context, cfg config.ExpiryConfig) (dto.ExpirySummary, error) {
	ids, err := s.repo.ListDue(ctx, s.now(), cfg.BatchSize)
	if err != nil {
		return dto.ExpirySummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due pending enrollments")
	}
	summary := dto.ExpirySummary{Due: len(ids)}
	if len(ids) == 0 {
		return summary, nil
	}

	var expired, skipped atomic.Int64
	queue := jobs.NewQueue("pending-expiry", func(ctx context.Context, job jobs.Job) error {
		id, _ := job.Payload.(string)
		_, changed, err := s.Expire(ctx, id)
		switch {
		case err == nil:
			if changed {
				expired.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		case errors.Is(err, appErrors.ErrInvariant), errors.Is(err, appErrors.ErrNotFound):
			skipped.Add(1)
			return nil
		case errors.Is(err, appErrors.ErrInternal):
			return err
		default:
			return jobs.Permanent(err)
		}
	}, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: len(ids),
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     s.logger,
	})
	queue.Start(ctx)

	for _, id := range ids {
		if err := queue.Enqueue(jobs.Job{ID: id, Type: expiryJobType, Payload: id}); err != nil {
			queue.Stop()
			return summary, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to enqueue expiry of %s", id))
		}
	}
	stats := queue.Drain()

	summary.Expired = int(expired.Load())
	summary.Skipped = int(skipped.Load())
	summary.Failed = int(stats.Failed)
	s.logger.Info("expiry pass finished",
		zap.Int("due", summary.Due),
		zap.Int("expired", summary.Expired),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}
