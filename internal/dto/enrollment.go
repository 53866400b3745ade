package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// UpdateEnrollmentStatusRequest moves an enrollment to another status.
type UpdateEnrollmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreatePendingEnrollmentRequest registers a request for a student, or for a child through its parent.
type CreatePendingEnrollmentRequest struct {
	CourseID  string           `json:"course_id" validate:"required,uuid"`
	StudentID string           `json:"student_id" validate:"omitempty,uuid"`
	ParentID  string           `json:"parent_id" validate:"omitempty,uuid"`
	ChildID   string           `json:"child_id" validate:"omitempty,uuid"`
	Price     *decimal.Decimal `json:"price" validate:"required"`
	ExpiresAt *time.Time       `json:"expires_at"`
	Notes     *string          `json:"notes" validate:"omitempty,max=2000"`
}

// UpdatePendingEnrollmentStatusRequest moves a pending enrollment to another status.
type UpdatePendingEnrollmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AcceptPendingEnrollmentResponse carries both records touched by an acceptance.
type AcceptPendingEnrollmentResponse struct {
	PendingEnrollment *models.PendingEnrollment `json:"pending_enrollment"`
	Enrollment        *models.Enrollment        `json:"enrollment"`
}

// ExpirySummary reports the outcome of one expiry sweep.
type ExpirySummary struct {
	Due     int `json:"due"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ExportFile is a rendered document ready to be served as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
