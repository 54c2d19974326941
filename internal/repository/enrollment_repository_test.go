package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

var enrollmentRowColumns = []string{
	"id", "qualification_id", "qualification_code", "qualification_name", "trainee", "enrolled_date", "status",
	"trainer_approver", "trainer_approved_date", "examiner_approver", "examiner_approved_date",
	"commander_approver", "commander_approved_date", "rejection_reason", "rejected_by", "rejected_by_role", "rejected_date",
}

func TestEnrollmentRepositoryListByTraineeAndStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("e1", 1, "RSAF-F16-001", "F-16 Fighter Pilot Qualification", "John Tan", "2024-03-01", "Trainer Approved",
			"Sarah Lim", "2024-03-02", nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE trainee = $1 AND status IN ($2, $3) ORDER BY created_at, id")).
		WithArgs("John Tan", "Pending", "Trainer Approved").
		WillReturnRows(rows)

	enrollments, err := repo.List(context.Background(), models.EnrollmentFilter{
		Trainee:  "John Tan",
		Statuses: []models.EnrollmentStatus{models.EnrollmentStatusPending, models.EnrollmentStatusTrainerApproved},
	})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, &models.Approval{Approver: "Sarah Lim", Date: "2024-03-02"}, enrollments[0].TrainerApproval)
	assert.Nil(t, enrollments[0].ExaminerApproval)
	assert.Equal(t, "Awaiting Examiner Approval", enrollments[0].CurrentStage())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindRejected(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("e2", 4, "RSAF-SAF-004", "Aviation Safety Officer", "John Tan", "2024-03-01", "Rejected",
			nil, nil, nil, nil, nil, nil, "Medical disqualification", "Sarah Lim", "Trainer", "2024-03-02")
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE id = $1")).
		WithArgs("e2").
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), "e2")
	require.NoError(t, err)
	assert.Equal(t, "Rejected by Trainer", enrollment.CurrentStage())
	assert.Equal(t, "Medical disqualification", enrollment.RejectionReason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Enrollment{
		ID: "e1", QualificationID: 1, Trainee: "John Tan", EnrolledDate: "2024-03-01", Status: models.EnrollmentStatusPending,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateUnlessBlockedInsertsUnderLock(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1), $2)")).
		WithArgs("John Tan", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("e0", 4, "RSAF-SAF-004", "Aviation Safety Officer", "John Tan", "2024-02-01", "Rejected",
			nil, nil, nil, nil, nil, nil, "Medical disqualification", "Sarah Lim", "Trainer", "2024-02-02")
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE trainee = $1 AND qualification_id = $2")).
		WithArgs("John Tan", 4).
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var seen []models.Enrollment
	err := repo.CreateUnlessBlocked(context.Background(), &models.Enrollment{
		ID: "e1", QualificationID: 4, Trainee: "John Tan", EnrolledDate: "2024-03-01", Status: models.EnrollmentStatusPending,
	}, func(existing []models.Enrollment) bool {
		seen = existing
		return false
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, models.EnrollmentStatusRejected, seen[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateUnlessBlockedRollsBack(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1), $2)")).
		WithArgs("John Tan", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows(enrollmentRowColumns).
		AddRow("e0", 1, "RSAF-F16-001", "F-16 Fighter Pilot Qualification", "John Tan", "2024-02-01", "Pending",
			nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE trainee = $1 AND qualification_id = $2")).
		WithArgs("John Tan", 1).
		WillReturnRows(rows)
	mock.ExpectRollback()

	err := repo.CreateUnlessBlocked(context.Background(), &models.Enrollment{
		ID: "e1", QualificationID: 1, Trainee: "John Tan", EnrolledDate: "2024-03-01", Status: models.EnrollmentStatusPending,
	}, func(existing []models.Enrollment) bool { return len(existing) > 0 })
	assert.ErrorIs(t, err, ErrEnrollmentBlocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateConditional(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrollment := &models.Enrollment{
		ID:              "e1",
		Status:          models.EnrollmentStatusTrainerApproved,
		TrainerApproval: &models.Approval{Approver: "Sarah Lim", Date: "2024-03-02"},
	}
	query := regexp.QuoteMeta("WHERE id = $1 AND status = $2")

	mock.ExpectExec(query).
		WithArgs("e1", "Pending", "Trainer Approved", "Sarah Lim", "2024-03-02",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), enrollment, models.EnrollmentStatusPending))

	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), enrollment, models.EnrollmentStatusPending)
	assert.ErrorIs(t, err, ErrEnrollmentStale)

	mock.ExpectExec(query).WillReturnError(errors.New("connection reset"))
	err = repo.Update(context.Background(), enrollment, models.EnrollmentStatusPending)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEnrollmentStale)

	require.NoError(t, mock.ExpectationsWereMet())
}
