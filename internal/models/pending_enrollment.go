package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

// PendingEnrollmentStatus captures the workflow states of a registration request.
type PendingEnrollmentStatus string

const (
	PendingStatusPending   PendingEnrollmentStatus = "pending"
	PendingStatusCancelled PendingEnrollmentStatus = "cancelled"
	PendingStatusExpired   PendingEnrollmentStatus = "expired"
	PendingStatusAccepted  PendingEnrollmentStatus = "accepted"
)

var pendingTransitions = map[PendingEnrollmentStatus][]PendingEnrollmentStatus{
	PendingStatusPending:   {PendingStatusAccepted, PendingStatusCancelled, PendingStatusExpired},
	PendingStatusAccepted:  {},
	PendingStatusCancelled: {},
	PendingStatusExpired:   {},
}

// PendingEnrollmentStatuses lists every known status.
func PendingEnrollmentStatuses() []PendingEnrollmentStatus {
	return []PendingEnrollmentStatus{PendingStatusPending, PendingStatusCancelled, PendingStatusExpired, PendingStatusAccepted}
}

// Valid reports whether s is a known status.
func (s PendingEnrollmentStatus) Valid() bool {
	_, ok := pendingTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is reachable from s.
func (s PendingEnrollmentStatus) CanTransitionTo(next PendingEnrollmentStatus) bool {
	for _, allowed := range pendingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Price bounds, matching NUMERIC(10,2).
var maxPrice = decimal.New(1, 8)

// PendingEnrollment is a registration request awaiting acceptance, cancellation or expiry.
type PendingEnrollment struct {
	ID          string                  `db:"id" json:"id"`
	CourseID    string                  `db:"course_id" json:"course_id"`
	ParentID    *string                 `db:"parent_id" json:"parent_id,omitempty"`
	StudentID   *string                 `db:"student_id" json:"student_id,omitempty"`
	ChildID     *string                 `db:"child_id" json:"child_id,omitempty"`
	Status      PendingEnrollmentStatus `db:"status" json:"status"`
	Price       decimal.Decimal         `db:"price" json:"price"`
	CreatedAt   time.Time               `db:"created_at" json:"created_at"`
	ExpiresAt   *time.Time              `db:"expires_at" json:"expires_at,omitempty"`
	Notes       *string                 `db:"notes" json:"notes,omitempty"`
	ProcessedBy *string                 `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt *time.Time              `db:"processed_at" json:"processed_at,omitempty"`
}

// NewPendingEnrollment builds a validated request in the pending state.
func NewPendingEnrollment(courseID string, participant Participant, price decimal.Decimal, expiresAt *time.Time, notes *string) (*PendingEnrollment, error) {
	if err := participant.Validate(); err != nil {
		return nil, err
	}
	parentID, studentID, childID := participant.Columns()
	p := &PendingEnrollment{
		CourseID:  courseID,
		ParentID:  parentID,
		StudentID: studentID,
		ChildID:   childID,
		Status:    PendingStatusPending,
		Price:     price,
		ExpiresAt: expiresAt,
		Notes:     notes,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidatePrice accepts non-negative amounts with at most two fractional digits that fit NUMERIC(10,2).
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return appErrors.Clone(appErrors.ErrInvariant, "price must not be negative")
	}
	if !price.Equal(price.Truncate(2)) {
		return appErrors.Clone(appErrors.ErrInvariant, "price must have at most two decimal places")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return appErrors.Clone(appErrors.ErrInvariant, "price exceeds the maximum of 99999999.99")
	}
	return nil
}

// Participant decodes the participant columns.
func (p *PendingEnrollment) Participant() (Participant, error) {
	return ParticipantFromColumns(p.ParentID, p.StudentID, p.ChildID)
}

// Validate enforces the invariants mirrored by the pending_enrollments table constraints.
func (p *PendingEnrollment) Validate() error {
	if p.CourseID == "" {
		return appErrors.Clone(appErrors.ErrInvariant, "course is required")
	}
	if _, err := p.Participant(); err != nil {
		return err
	}
	if !p.Status.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", p.Status))
	}
	return ValidatePrice(p.Price)
}

// TransitionTo applies a status change. Accepting or cancelling stamps the processing time and
// actor; expiring goes through the same path as Expire and never records an actor.
func (p *PendingEnrollment) TransitionTo(next PendingEnrollmentStatus, processedBy *string, now time.Time) error {
	if !next.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid status: %s", next))
	}
	if !p.Status.CanTransitionTo(next) {
		return appErrors.Clone(appErrors.ErrIllegalTransition, fmt.Sprintf("cannot transition from %s to %s", p.Status, next))
	}
	switch next {
	case PendingStatusExpired:
		p.markExpired(now)
	case PendingStatusAccepted, PendingStatusCancelled:
		p.Status = next
		p.ProcessedAt = &now
		p.ProcessedBy = processedBy
	}
	return nil
}

// Due reports whether the deadline is set and has been reached at now.
func (p *PendingEnrollment) Due(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// Expire marks a pending request expired once its deadline has passed. It returns false without
// error when there is no deadline or it has not been reached yet.
func (p *PendingEnrollment) Expire(now time.Time) (bool, error) {
	if p.Status != PendingStatusPending {
		return false, appErrors.Clone(appErrors.ErrInvariant, "only pending enrollments can be expired")
	}
	if !p.Due(now) {
		return false, nil
	}
	p.markExpired(now)
	return true, nil
}

func (p *PendingEnrollment) markExpired(now time.Time) {
	p.Status = PendingStatusExpired
	p.ProcessedAt = &now
	p.ProcessedBy = nil
}

// ToEnrollment builds the active enrollment for an accepted request. The parent reference is
// not carried over.
func (p *PendingEnrollment) ToEnrollment() (*Enrollment, error) {
	if p.Status != PendingStatusAccepted {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "only accepted pending enrollments can be converted to enrollments")
	}
	if p.ProcessedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "accepted pending enrollment has no processed_at")
	}
	if !present(p.ProcessedBy) {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "accepted pending enrollment has no processed_by")
	}
	enrollment := &Enrollment{
		CourseID:   p.CourseID,
		StudentID:  copyString(p.StudentID),
		ChildID:    copyString(p.ChildID),
		CreatedBy:  *p.ProcessedBy,
		EnrolledAt: *p.ProcessedAt,
		Status:     EnrollmentStatusActive,
		Active:     true,
	}
	if err := enrollment.Validate(); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Describe renders a short human readable label.
func (p *PendingEnrollment) Describe() string {
	participant, err := p.Participant()
	label := participant.String()
	if err != nil {
		label = "Unknown"
	}
	return fmt.Sprintf("Pending Enrollment for %s in course %s", label, p.CourseID)
}

// PendingEnrollmentFilter constrains listing queries.
type PendingEnrollmentFilter struct {
	CourseID  string
	StudentID string
	ParentID  string
	ChildID   string
	Status    PendingEnrollmentStatus
	Page      int
	PageSize  int
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
