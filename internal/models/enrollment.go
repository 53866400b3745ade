package models

import (
	"fmt"
	"time"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
	EnrollmentStatusSuspended EnrollmentStatus = "suspended"
)

var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusActive:    {EnrollmentStatusCompleted, EnrollmentStatusDropped, EnrollmentStatusSuspended},
	EnrollmentStatusCompleted: {},
	EnrollmentStatusDropped:   {},
	EnrollmentStatusSuspended: {EnrollmentStatusActive},
}

// EnrollmentStatuses lists every known status.
func EnrollmentStatuses() []EnrollmentStatus {
	return []EnrollmentStatus{EnrollmentStatusActive, EnrollmentStatusCompleted, EnrollmentStatusDropped, EnrollmentStatusSuspended}
}

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	_, ok := enrollmentTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is reachable from s in one step. No status reaches itself.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s EnrollmentStatus) Terminal() bool {
	return s.Valid() && len(enrollmentTransitions[s]) == 0
}

// Enrollment is the confirmed registration of one student or child in a course.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	StudentID  *string          `db:"student_id" json:"student_id,omitempty"`
	ChildID    *string          `db:"child_id" json:"child_id,omitempty"`
	CreatedBy  string           `db:"created_by" json:"created_by"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Active     bool             `db:"active" json:"active"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// Validate enforces the record invariants mirrored by the enrollments table constraints.
func (e *Enrollment) Validate() error {
	if e.CourseID == "" {
		return appErrors.Clone(appErrors.ErrInvariant, "course is required")
	}
	if present(e.StudentID) == present(e.ChildID) {
		return appErrors.Clone(appErrors.ErrInvariant, "select exactly one of student or child")
	}
	if e.CreatedBy == "" {
		return appErrors.Clone(appErrors.ErrInvariant, "created_by is required")
	}
	if e.EnrolledAt.IsZero() {
		return appErrors.Clone(appErrors.ErrInvariant, "enrolled_at is required")
	}
	if !e.Status.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", e.Status))
	}
	if e.Active != (e.Status == EnrollmentStatusActive) {
		return appErrors.Clone(appErrors.ErrInvariant, "active flag does not match status")
	}
	return nil
}

// TransitionTo moves the enrollment to next and keeps Active in sync. The receiver is left
// untouched when the transition is rejected.
func (e *Enrollment) TransitionTo(next EnrollmentStatus) error {
	if !next.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", next))
	}
	if !e.Status.CanTransitionTo(next) {
		return appErrors.Clone(appErrors.ErrIllegalTransition, fmt.Sprintf("cannot transition from %s to %s", e.Status, next))
	}
	e.Status = next
	e.Active = next == EnrollmentStatusActive
	return nil
}

// Participant returns who is enrolled. Enrollments do not keep the registering parent.
func (e *Enrollment) Participant() Participant {
	if present(e.StudentID) {
		return StudentParticipant(*e.StudentID)
	}
	if present(e.ChildID) {
		return Participant{Kind: ParticipantChild, ChildID: *e.ChildID}
	}
	return Participant{}
}

// Describe renders a short human readable label.
func (e *Enrollment) Describe() string {
	return fmt.Sprintf("Enrollment for %s in course %s", e.Participant(), e.CourseID)
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	CourseID  string
	StudentID string
	ChildID   string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
}
