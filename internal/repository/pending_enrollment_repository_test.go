package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

var pendingColumnNames = []string{"id", "course_id", "parent_id", "student_id", "child_id", "status", "price", "created_at", "expires_at", "notes", "processed_by", "processed_at"}

func TestPendingEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	pending, err := models.NewPendingEnrollment("course-1", models.ChildParticipant("parent-1", "child-1"), decimal.RequireFromString("150.00"), nil, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), pending))
	assert.NotEmpty(t, pending.ID)
	assert.False(t, pending.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryCreateMapsCheckViolation(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_enrollments")).
		WillReturnError(&pq.Error{Code: "23514", Constraint: "pending_price_non_negative"})

	pending, err := models.NewPendingEnrollment("course-1", models.StudentParticipant("stu-1"), decimal.Zero, nil, nil)
	require.NoError(t, err)

	err = repo.Create(context.Background(), pending)
	assert.ErrorIs(t, err, appErrors.ErrInvariant)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryCreateRejectsBrokenParticipant(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	child := "child-1"
	err := repo.Create(context.Background(), &models.PendingEnrollment{CourseID: "course-1", ChildID: &child, Price: decimal.Zero})
	assert.ErrorIs(t, err, appErrors.ErrInvariant)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + pendingEnrollmentColumns + " FROM pending_enrollments WHERE parent_id = $1 ORDER BY created_at DESC, id LIMIT 10 OFFSET 10")).
		WithArgs("parent-1").
		WillReturnRows(sqlmock.NewRows(pendingColumnNames).
			AddRow("pen-1", "course-1", "parent-1", nil, "child-1", "pending", "99.50", now, nil, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM pending_enrollments WHERE parent_id = $1")).
		WithArgs("parent-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	pending, total, err := repo.List(context.Background(), models.PendingEnrollmentFilter{ParentID: "parent-1", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 11, total)
	assert.True(t, decimal.RequireFromString("99.5").Equal(pending[0].Price))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryListDue(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("expires_at IS NOT NULL AND expires_at <= $2")).
		WithArgs(models.PendingStatusPending, now, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pen-1").AddRow("pen-2"))

	ids, err := repo.ListDue(context.Background(), now, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"pen-1", "pen-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryProcessAcceptsAndInserts(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	created := time.Now().Add(-time.Hour)
	processedAt := time.Now()
	actor := "staff-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM pending_enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("pen-1").
		WillReturnRows(sqlmock.NewRows(pendingColumnNames).
			AddRow("pen-1", "course-1", nil, "stu-1", nil, "pending", "10.00", created, nil, nil, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pending_enrollments SET status = $2, processed_by = $3, processed_at = $4 WHERE id = $1")).
		WithArgs("pen-1", models.PendingStatusAccepted, actor, processedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE course_id = $1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	pending, enrollment, err := repo.Process(context.Background(), "pen-1", func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		if err := p.TransitionTo(models.PendingStatusAccepted, &actor, processedAt); err != nil {
			return nil, err
		}
		return p.ToEnrollment()
	})
	require.NoError(t, err)
	assert.Equal(t, models.PendingStatusAccepted, pending.Status)
	require.NotNil(t, enrollment)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, actor, enrollment.CreatedBy)
	assert.Equal(t, processedAt, enrollment.EnrolledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryProcessRollsBackWhenParticipantEnrolled(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	actor := "staff-1"
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM pending_enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("pen-1").
		WillReturnRows(sqlmock.NewRows(pendingColumnNames).
			AddRow("pen-1", "course-1", nil, "stu-1", nil, "pending", "10.00", time.Now(), nil, nil, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pending_enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE course_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, _, err := repo.Process(context.Background(), "pen-1", func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		if err := p.TransitionTo(models.PendingStatusAccepted, &actor, time.Now()); err != nil {
			return nil, err
		}
		return p.ToEnrollment()
	})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryProcessSkipsUpdateWhenUnchanged(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	future := time.Now().Add(time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM pending_enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("pen-1").
		WillReturnRows(sqlmock.NewRows(pendingColumnNames).
			AddRow("pen-1", "course-1", nil, "stu-1", nil, "pending", "10.00", time.Now(), future, nil, nil, nil))
	mock.ExpectCommit()

	pending, enrollment, err := repo.Process(context.Background(), "pen-1", func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		_, err := p.Expire(time.Now())
		return nil, err
	})
	require.NoError(t, err)
	assert.Nil(t, enrollment)
	assert.Equal(t, models.PendingStatusPending, pending.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryProcessConvertsAcceptedWithoutUpdate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	processedAt := time.Now().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM pending_enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("pen-1").
		WillReturnRows(sqlmock.NewRows(pendingColumnNames).
			AddRow("pen-1", "course-1", nil, "stu-1", nil, "accepted", "10.00", time.Now().Add(-2*time.Hour), nil, nil, "staff-1", processedAt))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE course_id = $1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	pending, enrollment, err := repo.Process(context.Background(), "pen-1", func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		return p.ToEnrollment()
	})
	require.NoError(t, err)
	assert.Equal(t, models.PendingStatusAccepted, pending.Status)
	require.NotNil(t, enrollment)
	assert.Equal(t, "staff-1", enrollment.CreatedBy)
	assert.True(t, processedAt.Equal(enrollment.EnrolledAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingEnrollmentRepositoryProcessNotFound(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewPendingEnrollmentRepository(db, NewEnrollmentRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM pending_enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.Process(context.Background(), "missing", func(p *models.PendingEnrollment) (*models.Enrollment, error) {
		t.Fatal("apply must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
