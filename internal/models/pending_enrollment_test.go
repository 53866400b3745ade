package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func pendingForStudent() *PendingEnrollment {
	return &PendingEnrollment{
		ID:        "pen-1",
		CourseID:  "course-1",
		StudentID: strPtr("stu-1"),
		Status:    PendingStatusPending,
		Price:     decimal.RequireFromString("150.00"),
		CreatedAt: now.Add(-time.Hour),
	}
}

func TestPendingTransitionTable(t *testing.T) {
	for _, from := range PendingEnrollmentStatuses() {
		for _, to := range PendingEnrollmentStatuses() {
			p := pendingForStudent()
			p.Status = from

			err := p.TransitionTo(to, strPtr("admin-1"), now)
			if from == PendingStatusPending && to != PendingStatusPending {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, p.Status)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, errors.Is(err, appErrors.ErrIllegalTransition))
			assert.Equal(t, from, p.Status)
			assert.Nil(t, p.ProcessedAt)
		}
	}
}

func TestPendingTransitionRejectsUnknownStatus(t *testing.T) {
	p := pendingForStudent()
	err := p.TransitionTo("approved", nil, now)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidStatus))
	assert.Equal(t, PendingStatusPending, p.Status)
}

func TestPendingAcceptAndCancelStampProcessing(t *testing.T) {
	for _, status := range []PendingEnrollmentStatus{PendingStatusAccepted, PendingStatusCancelled} {
		p := pendingForStudent()
		require.NoError(t, p.TransitionTo(status, strPtr("admin-1"), now))
		require.NotNil(t, p.ProcessedAt)
		assert.Equal(t, now, *p.ProcessedAt)
		require.NotNil(t, p.ProcessedBy)
		assert.Equal(t, "admin-1", *p.ProcessedBy)
	}

	p := pendingForStudent()
	require.NoError(t, p.TransitionTo(PendingStatusCancelled, nil, now))
	assert.Nil(t, p.ProcessedBy)
	assert.NotNil(t, p.ProcessedAt)
}

func TestPendingExpireThroughTransitionMatchesExpire(t *testing.T) {
	viaStatus := pendingForStudent()
	require.NoError(t, viaStatus.TransitionTo(PendingStatusExpired, strPtr("admin-1"), now))

	viaExpire := pendingForStudent()
	past := now.Add(-time.Minute)
	viaExpire.ExpiresAt = &past
	expired, err := viaExpire.Expire(now)
	require.NoError(t, err)
	require.True(t, expired)

	for _, p := range []*PendingEnrollment{viaStatus, viaExpire} {
		assert.Equal(t, PendingStatusExpired, p.Status)
		require.NotNil(t, p.ProcessedAt)
		assert.Equal(t, now, *p.ProcessedAt)
		assert.Nil(t, p.ProcessedBy)
	}
}

func TestPendingExpire(t *testing.T) {
	p := pendingForStudent()
	past := now.Add(-time.Second)
	p.ExpiresAt = &past

	expired, err := p.Expire(now)
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, PendingStatusExpired, p.Status)

	_, err = p.Expire(now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvariant))
}

func TestPendingExpireAtDeadline(t *testing.T) {
	p := pendingForStudent()
	deadline := now
	p.ExpiresAt = &deadline
	expired, err := p.Expire(now)
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestPendingExpireNoop(t *testing.T) {
	future := now.Add(time.Hour)
	withFuture := pendingForStudent()
	withFuture.ExpiresAt = &future

	for _, p := range []*PendingEnrollment{withFuture, pendingForStudent()} {
		expired, err := p.Expire(now)
		require.NoError(t, err)
		assert.False(t, expired)
		assert.Equal(t, PendingStatusPending, p.Status)
		assert.Nil(t, p.ProcessedAt)
	}
}

func TestPendingToEnrollmentRequiresAccepted(t *testing.T) {
	p := pendingForStudent()
	_, err := p.ToEnrollment()
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvariant))
}

func TestPendingToEnrollmentForStudent(t *testing.T) {
	p := pendingForStudent()
	require.NoError(t, p.TransitionTo(PendingStatusAccepted, strPtr("admin-1"), now))

	enrollment, err := p.ToEnrollment()
	require.NoError(t, err)
	assert.Equal(t, EnrollmentStatusActive, enrollment.Status)
	assert.True(t, enrollment.Active)
	assert.Equal(t, now, enrollment.EnrolledAt)
	assert.Equal(t, "admin-1", enrollment.CreatedBy)
	assert.Equal(t, "course-1", enrollment.CourseID)
	require.NotNil(t, enrollment.StudentID)
	assert.Equal(t, "stu-1", *enrollment.StudentID)
	assert.Nil(t, enrollment.ChildID)

	*p.StudentID = "changed"
	assert.Equal(t, "stu-1", *enrollment.StudentID)
}

func TestPendingToEnrollmentDropsParent(t *testing.T) {
	p := pendingForStudent()
	p.StudentID = nil
	p.ParentID = strPtr("parent-1")
	p.ChildID = strPtr("child-1")
	require.NoError(t, p.TransitionTo(PendingStatusAccepted, strPtr("admin-1"), now))

	enrollment, err := p.ToEnrollment()
	require.NoError(t, err)
	assert.Nil(t, enrollment.StudentID)
	require.NotNil(t, enrollment.ChildID)
	assert.Equal(t, "child-1", *enrollment.ChildID)
}

func TestPendingToEnrollmentRechecksParticipant(t *testing.T) {
	p := pendingForStudent()
	p.ChildID = strPtr("child-1")
	p.Status = PendingStatusAccepted
	p.ProcessedAt = &now
	p.ProcessedBy = strPtr("admin-1")

	_, err := p.ToEnrollment()
	assert.True(t, errors.Is(err, appErrors.ErrInvariant))
}

func TestPendingToEnrollmentRequiresActor(t *testing.T) {
	p := pendingForStudent()
	require.NoError(t, p.TransitionTo(PendingStatusAccepted, nil, now))
	_, err := p.ToEnrollment()
	assert.True(t, errors.Is(err, appErrors.ErrInvariant))
}

func TestPendingValidateParticipantComposite(t *testing.T) {
	cases := []struct {
		name                   string
		parent, student, child *string
		valid                  bool
	}{
		{name: "parent and child", parent: strPtr("p"), child: strPtr("c"), valid: true},
		{name: "student alone", student: strPtr("s"), valid: true},
		{name: "parent and student", parent: strPtr("p"), student: strPtr("s")},
		{name: "none", valid: false},
		{name: "child without parent", child: strPtr("c")},
		{name: "parent without child", parent: strPtr("p")},
		{name: "all three", parent: strPtr("p"), student: strPtr("s"), child: strPtr("c")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := pendingForStudent()
			p.ParentID, p.StudentID, p.ChildID = tc.parent, tc.student, tc.child
			err := p.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, appErrors.ErrInvariant))
		})
	}
}

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice(decimal.Zero))
	assert.NoError(t, ValidatePrice(decimal.RequireFromString("99999999.99")))
	assert.NoError(t, ValidatePrice(decimal.RequireFromString("12.5")))
	assert.Error(t, ValidatePrice(decimal.RequireFromString("-1")))
	assert.Error(t, ValidatePrice(decimal.RequireFromString("12.345")))
	assert.Error(t, ValidatePrice(decimal.RequireFromString("100000000")))
}

func TestNewPendingEnrollment(t *testing.T) {
	p, err := NewPendingEnrollment("course-1", ChildParticipant("parent-1", "child-1"), decimal.RequireFromString("80"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, PendingStatusPending, p.Status)
	assert.Nil(t, p.StudentID)
	assert.Equal(t, "parent-1", *p.ParentID)
	assert.Equal(t, "Pending Enrollment for child child-1 in course course-1", p.Describe())

	_, err = NewPendingEnrollment("course-1", ChildParticipant("", "child-1"), decimal.Zero, nil, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvariant))

	_, err = NewPendingEnrollment("", StudentParticipant("stu-1"), decimal.Zero, nil, nil)
	assert.True(t, errors.Is(err, appErrors.ErrInvariant))
}
