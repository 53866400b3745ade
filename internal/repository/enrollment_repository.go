package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

const enrollmentColumns = `id, course_id, student_id, child_id, created_by, enrolled_at, active, status, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
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

	query := fmt.Sprintf(`SELECT %s FROM enrollments%s ORDER BY enrolled_at DESC, id LIMIT %d OFFSET %d`, enrollmentColumns, clause, size, offset)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CreateWithTx inserts an enrollment using an existing transaction. The participant must not
// already hold an enrollment in the course, whatever its status.
func (r *EnrollmentRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if err := enrollment.Validate(); err != nil {
		return err
	}

	const existsQuery = `SELECT 1 FROM enrollments WHERE course_id = $1 AND (student_id = $2 OR child_id = $3) LIMIT 1`
	var exists int
	err := tx.GetContext(ctx, &exists, existsQuery, enrollment.CourseID, enrollment.StudentID, enrollment.ChildID)
	switch {
	case err == nil:
		return appErrors.Clone(appErrors.ErrConflict, "participant already enrolled in course")
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check existing enrollment: %w", err)
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, course_id, student_id, child_id, created_by, enrolled_at, active, status, created_at, updated_at)
        VALUES (:id, :course_id, :student_id, :child_id, :created_by, :enrolled_at, :active, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return translateError("create enrollment", err)
	}
	return nil
}

// UpdateStatus locks the enrollment row, lets apply mutate the loaded record and persists the
// result in the same transaction. Nothing is written when apply fails.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, apply func(*models.Enrollment) error) (updated *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var enrollment models.Enrollment
	lockQuery := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &enrollment, lockQuery, id); err != nil {
		return nil, err
	}
	if err = apply(&enrollment); err != nil {
		return nil, err
	}

	enrollment.UpdatedAt = time.Now().UTC()
	const updateQuery = `UPDATE enrollments SET status = $2, active = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, enrollment.ID, enrollment.Status, enrollment.Active, enrollment.UpdatedAt); err != nil {
		return nil, translateError("update enrollment status", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment status: %w", err)
	}
	return &enrollment, nil
}
