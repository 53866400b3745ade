package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

// PostgreSQL SQLSTATE codes surfaced by enrollment writes.
const (
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
	pqForeignKeyViolation = "23503"
)

var constraintMessages = map[string]string{
	"unique_course_student":            "student already enrolled in course",
	"unique_course_child":              "child already enrolled in course",
	"one_child_or_student":             "select exactly one of student or child",
	"parent_child_or_student":          "select either a parent and child together or a student alone",
	"enrollment_active_matches_status": "active flag does not match status",
	"pending_price_non_negative":       "price must not be negative",
}

// translateError turns constraint violations reported by PostgreSQL into typed errors and wraps
// everything else with the operation name.
func translateError(op string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	message := constraintMessages[pqErr.Constraint]
	switch pqErr.Code {
	case pqUniqueViolation:
		if message == "" {
			message = "duplicate record"
		}
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	case pqCheckViolation:
		if message == "" {
			message = fmt.Sprintf("constraint %s violated", pqErr.Constraint)
		}
		return appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, message)
	case pqForeignKeyViolation:
		return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "referenced record not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}
