package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const pendingEnrollmentColumns = `id, course_id, parent_id, student_id, child_id, status, price, created_at, expires_at, notes, processed_by, processed_at`

type enrollmentTxWriter interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
}

// PendingEnrollmentRepository persists registration requests.
type PendingEnrollmentRepository struct {
	db          *sqlx.DB
	enrollments enrollmentTxWriter
}

// NewPendingEnrollmentRepository constructs the repository. enrollments receives the records
// produced by accepted requests inside the same transaction.
func NewPendingEnrollmentRepository(db *sqlx.DB, enrollments enrollmentTxWriter) *PendingEnrollmentRepository {
	return &PendingEnrollmentRepository{db: db, enrollments: enrollments}
}

// Create inserts a new pending enrollment.
func (r *PendingEnrollmentRepository) Create(ctx context.Context, pending *models.PendingEnrollment) error {
	if pending.Status == "" {
		pending.Status = models.PendingStatusPending
	}
	if err := pending.Validate(); err != nil {
		return err
	}
	if pending.ID == "" {
		pending.ID = uuid.NewString()
	}
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pending_enrollments
	(id, course_id, parent_id, student_id, child_id, status, price, created_at, expires_at, notes, processed_by, processed_at)
	VALUES (:id, :course_id, :parent_id, :student_id, :child_id, :status, :price, :created_at, :expires_at, :notes, :processed_by, :processed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pending); err != nil {
		return translateError("create pending enrollment", err)
	}
	return nil
}

// FindByID fetches a pending enrollment by identifier.
func (r *PendingEnrollmentRepository) FindByID(ctx context.Context, id string) (*models.PendingEnrollment, error) {
	query := `SELECT ` + pendingEnrollmentColumns + ` FROM pending_enrollments WHERE id = $1`
	var pending models.PendingEnrollment
	if err := r.db.GetContext(ctx, &pending, query, id); err != nil {
		return nil, err
	}
	return &pending, nil
}

// List returns pending enrollments matching the filter, newest first.
func (r *PendingEnrollmentRepository) List(ctx context.Context, filter models.PendingEnrollmentFilter) ([]models.PendingEnrollment, int, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.ParentID != "" {
		args = append(args, filter.ParentID)
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if filter.ChildID != "" {
		args = append(args, filter.ChildID)
		conditions = append(conditions, fmt.Sprintf("child_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	_, size, offset := models.NormalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM pending_enrollments%s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`, pendingEnrollmentColumns, clause, size, offset)
	var pending []models.PendingEnrollment
	if err := r.db.SelectContext(ctx, &pending, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list pending enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM pending_enrollments"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count pending enrollments: %w", err)
	}
	return pending, total, nil
}

// ListDue returns the identifiers of pending requests whose deadline is at or before now,
// oldest deadline first.
func (r *PendingEnrollmentRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id FROM pending_enrollments
	WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
	ORDER BY expires_at LIMIT $3`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.PendingStatusPending, now, limit); err != nil {
		return nil, fmt.Errorf("list due pending enrollments: %w", err)
	}
	return ids, nil
}

// Process locks the pending row and hands it to apply. A status change made by apply is written
// back, and a returned enrollment is inserted, within the same transaction. Nothing is written
// when apply fails.
func (r *PendingEnrollmentRepository) Process(ctx context.Context, id string, apply func(*models.PendingEnrollment) (*models.Enrollment, error)) (processed *models.PendingEnrollment, created *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin pending enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var pending models.PendingEnrollment
	lockQuery := `SELECT ` + pendingEnrollmentColumns + ` FROM pending_enrollments WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &pending, lockQuery, id); err != nil {
		return nil, nil, err
	}
	previous := pending.Status

	enrollment, err := apply(&pending)
	if err != nil {
		return nil, nil, err
	}

	if pending.Status != previous {
		const updateQuery = `UPDATE pending_enrollments SET status = $2, processed_by = $3, processed_at = $4 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, updateQuery, pending.ID, pending.Status, pending.ProcessedBy, pending.ProcessedAt); err != nil {
			return nil, nil, translateError("update pending enrollment status", err)
		}
	}
	if enrollment != nil {
		if err = r.enrollments.CreateWithTx(ctx, tx, enrollment); err != nil {
			return nil, nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit pending enrollment: %w", err)
	}
	return &pending, enrollment, nil
}
