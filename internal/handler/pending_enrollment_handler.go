package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/response"
)

type pendingEnrollmentService interface {
	Create(ctx context.Context, req dto.CreatePendingEnrollmentRequest) (*models.PendingEnrollment, error)
	Get(ctx context.Context, id string) (*models.PendingEnrollment, error)
	List(ctx context.Context, filter models.PendingEnrollmentFilter) ([]models.PendingEnrollment, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdatePendingEnrollmentStatusRequest, actorID string) (*models.PendingEnrollment, error)
	Accept(ctx context.Context, id, actorID string) (*models.PendingEnrollment, *models.Enrollment, error)
	Cancel(ctx context.Context, id, actorID string) (*models.PendingEnrollment, error)
	Expire(ctx context.Context, id string) (*models.PendingEnrollment, bool, error)
	ToEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
}

// PendingEnrollmentHandler exposes the registration request workflow.
type PendingEnrollmentHandler struct {
	pending pendingEnrollmentService
}

// NewPendingEnrollmentHandler constructs PendingEnrollmentHandler.
func NewPendingEnrollmentHandler(pending pendingEnrollmentService) *PendingEnrollmentHandler {
	return &PendingEnrollmentHandler{pending: pending}
}

// List godoc
// @Summary List pending enrollments
// @Tags PendingEnrollments
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param studentId query string false "Filter by student"
// @Param parentId query string false "Filter by parent"
// @Param childId query string false "Filter by child"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /pending-enrollments [get]
func (h *PendingEnrollmentHandler) List(c *gin.Context) {
	filter := models.PendingEnrollmentFilter{
		CourseID:  c.Query("courseId"),
		StudentID: c.Query("studentId"),
		ParentID:  c.Query("parentId"),
		ChildID:   c.Query("childId"),
		Status:    models.PendingEnrollmentStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.pending.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get pending enrollment
// @Tags PendingEnrollments
// @Produce json
// @Param id path string true "Pending enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /pending-enrollments/{id} [get]
func (h *PendingEnrollmentHandler) Get(c *gin.Context) {
	pending, err := h.pending.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// Create godoc
// @Summary Register a pending enrollment
// @Tags PendingEnrollments
// @Accept json
// @Produce json
// @Param payload body dto.CreatePendingEnrollmentRequest true "Pending enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /pending-enrollments [post]
func (h *PendingEnrollmentHandler) Create(c *gin.Context) {
	var req dto.CreatePendingEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pending, err := h.pending.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pending)
}

// UpdateStatus godoc
// @Summary Change pending enrollment status
// @Tags PendingEnrollments
// @Accept json
// @Produce json
// @Param id path string true "Pending enrollment ID"
// @Param payload body dto.UpdatePendingEnrollmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pending-enrollments/{id}/status [patch]
func (h *PendingEnrollmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdatePendingEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pending, err := h.pending.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// Accept godoc
// @Summary Accept a pending enrollment and create the enrollment
// @Tags PendingEnrollments
// @Produce json
// @Param id path string true "Pending enrollment ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /pending-enrollments/{id}/accept [post]
func (h *PendingEnrollmentHandler) Accept(c *gin.Context) {
	pending, enrollment, err := h.pending.Accept(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.AcceptPendingEnrollmentResponse{PendingEnrollment: pending, Enrollment: enrollment})
}

// Cancel godoc
// @Summary Cancel a pending enrollment
// @Tags PendingEnrollments
// @Produce json
// @Param id path string true "Pending enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /pending-enrollments/{id}/cancel [post]
func (h *PendingEnrollmentHandler) Cancel(c *gin.Context) {
	pending, err := h.pending.Cancel(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// Expire godoc
// @Summary Expire a pending enrollment whose deadline has passed
// @Tags PendingEnrollments
// @Produce json
// @Param id path string true "Pending enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /pending-enrollments/{id}/expire [post]
func (h *PendingEnrollmentHandler) Expire(c *gin.Context) {
	pending, _, err := h.pending.Expire(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// ToEnrollment godoc
// @Summary Create the enrollment for an accepted pending enrollment
// @Tags PendingEnrollments
// @Produce json
// @Param id path string true "Pending enrollment ID"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /pending-enrollments/{id}/enrollment [post]
func (h *PendingEnrollmentHandler) ToEnrollment(c *gin.Context) {
	enrollment, err := h.pending.ToEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}
