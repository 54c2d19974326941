package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
)

const enrollmentColumns = `id, qualification_id, qualification_code, qualification_name, trainee, enrolled_date, status,
        trainer_approver, trainer_approved_date, examiner_approver, examiner_approved_date,
        commander_approver, commander_approved_date, rejection_reason, rejected_by, rejected_by_role, rejected_date`

type enrollmentRow struct {
	ID                    string         `db:"id"`
	QualificationID       int            `db:"qualification_id"`
	QualificationCode     string         `db:"qualification_code"`
	QualificationName     string         `db:"qualification_name"`
	Trainee               string         `db:"trainee"`
	EnrolledDate          string         `db:"enrolled_date"`
	Status                string         `db:"status"`
	TrainerApprover       sql.NullString `db:"trainer_approver"`
	TrainerApprovedDate   sql.NullString `db:"trainer_approved_date"`
	ExaminerApprover      sql.NullString `db:"examiner_approver"`
	ExaminerApprovedDate  sql.NullString `db:"examiner_approved_date"`
	CommanderApprover     sql.NullString `db:"commander_approver"`
	CommanderApprovedDate sql.NullString `db:"commander_approved_date"`
	RejectionReason       sql.NullString `db:"rejection_reason"`
	RejectedBy            sql.NullString `db:"rejected_by"`
	RejectedByRole        sql.NullString `db:"rejected_by_role"`
	RejectedDate          sql.NullString `db:"rejected_date"`
}

func toEnrollmentRow(e *models.Enrollment) enrollmentRow {
	row := enrollmentRow{
		ID:                e.ID,
		QualificationID:   e.QualificationID,
		QualificationCode: e.QualificationCode,
		QualificationName: e.QualificationName,
		Trainee:           e.Trainee,
		EnrolledDate:      e.EnrolledDate,
		Status:            string(e.Status),
		RejectionReason:   nullString(e.RejectionReason),
		RejectedBy:        nullString(e.RejectedBy),
		RejectedByRole:    nullString(string(e.RejectedByRole)),
		RejectedDate:      nullString(e.RejectedDate),
	}
	if a := e.TrainerApproval; a != nil {
		row.TrainerApprover, row.TrainerApprovedDate = nullString(a.Approver), nullString(a.Date)
	}
	if a := e.ExaminerApproval; a != nil {
		row.ExaminerApprover, row.ExaminerApprovedDate = nullString(a.Approver), nullString(a.Date)
	}
	if a := e.CommanderApproval; a != nil {
		row.CommanderApprover, row.CommanderApprovedDate = nullString(a.Approver), nullString(a.Date)
	}
	return row
}

func (row enrollmentRow) toModel() models.Enrollment {
	return models.Enrollment{
		ID:                row.ID,
		QualificationID:   row.QualificationID,
		QualificationCode: row.QualificationCode,
		QualificationName: row.QualificationName,
		Trainee:           row.Trainee,
		EnrolledDate:      row.EnrolledDate,
		Status:            models.EnrollmentStatus(row.Status),
		TrainerApproval:   approvalFromRow(row.TrainerApprover, row.TrainerApprovedDate),
		ExaminerApproval:  approvalFromRow(row.ExaminerApprover, row.ExaminerApprovedDate),
		CommanderApproval: approvalFromRow(row.CommanderApprover, row.CommanderApprovedDate),
		RejectionReason:   row.RejectionReason.String,
		RejectedBy:        row.RejectedBy.String,
		RejectedByRole:    models.Role(row.RejectedByRole.String),
		RejectedDate:      row.RejectedDate.String,
	}
}

func approvalFromRow(approver, date sql.NullString) *models.Approval {
	if !approver.Valid {
		return nil
	}
	return &models.Approval{Approver: approver.String, Date: date.String}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// EnrollmentRepository stores one row per enrollment in postgres.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria in creation order.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	var conditions []string
	var args []interface{}

	if filter.Trainee != "" {
		conditions = append(conditions, fmt.Sprintf("trainee = $%d", len(args)+1))
		args = append(args, filter.Trainee)
	}
	if filter.QualificationID != 0 {
		conditions = append(conditions, fmt.Sprintf("qualification_id = $%d", len(args)+1))
		args = append(args, filter.QualificationID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf("SELECT %s FROM enrollments%s ORDER BY created_at, id", enrollmentColumns, clause)

	var rows []enrollmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	enrollments := make([]models.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toModel())
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var row enrollmentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	enrollment := row.toModel()
	return &enrollment, nil
}

const insertEnrollmentQuery = `INSERT INTO enrollments (id, qualification_id, qualification_code, qualification_name, trainee, enrolled_date, status,
        trainer_approver, trainer_approved_date, examiner_approver, examiner_approved_date,
        commander_approver, commander_approved_date, rejection_reason, rejected_by, rejected_by_role, rejected_date)
        VALUES (:id, :qualification_id, :qualification_code, :qualification_name, :trainee, :enrolled_date, :status,
        :trainer_approver, :trainer_approved_date, :examiner_approver, :examiner_approved_date,
        :commander_approver, :commander_approved_date, :rejection_reason, :rejected_by, :rejected_by_role, :rejected_date)`

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if _, err := r.db.NamedExecContext(ctx, insertEnrollmentQuery, toEnrollmentRow(enrollment)); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// CreateUnlessBlocked inserts the enrollment unless blocked rejects the trainee's existing
// enrollments for the same qualification. A transaction-scoped advisory lock on
// (trainee, qualification) serialises concurrent attempts, since there is no row to lock yet.
func (r *EnrollmentRepository) CreateUnlessBlocked(ctx context.Context, enrollment *models.Enrollment, blocked func(existing []models.Enrollment) bool) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQuery = `SELECT pg_advisory_xact_lock(hashtext($1), $2)`
	if _, err = tx.ExecContext(ctx, lockQuery, enrollment.Trainee, enrollment.QualificationID); err != nil {
		return fmt.Errorf("lock enrollment slot: %w", err)
	}

	if blocked != nil {
		query := fmt.Sprintf("SELECT %s FROM enrollments WHERE trainee = $1 AND qualification_id = $2 ORDER BY created_at, id", enrollmentColumns)
		var rows []enrollmentRow
		if err = tx.SelectContext(ctx, &rows, query, enrollment.Trainee, enrollment.QualificationID); err != nil {
			return fmt.Errorf("list existing enrollments: %w", err)
		}
		existing := make([]models.Enrollment, 0, len(rows))
		for _, row := range rows {
			existing = append(existing, row.toModel())
		}
		if blocked(existing) {
			err = ErrEnrollmentBlocked
			return err
		}
	}

	if _, err = tx.NamedExecContext(ctx, insertEnrollmentQuery, toEnrollmentRow(enrollment)); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// Update writes the enrollment's mutable columns when the stored status still equals expected.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $3,
        trainer_approver = $4, trainer_approved_date = $5,
        examiner_approver = $6, examiner_approved_date = $7,
        commander_approver = $8, commander_approved_date = $9,
        rejection_reason = $10, rejected_by = $11, rejected_by_role = $12, rejected_date = $13
        WHERE id = $1 AND status = $2`
	row := toEnrollmentRow(enrollment)
	result, err := r.db.ExecContext(ctx, query, row.ID, string(expected), row.Status,
		row.TrainerApprover, row.TrainerApprovedDate,
		row.ExaminerApprover, row.ExaminerApprovedDate,
		row.CommanderApprover, row.CommanderApprovedDate,
		row.RejectionReason, row.RejectedBy, row.RejectedByRole, row.RejectedDate)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment rows affected: %w", err)
	}
	if affected == 0 {
		return ErrEnrollmentStale
	}
	return nil
}
