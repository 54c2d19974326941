package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/repository"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
)

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	CreateUnlessBlocked(ctx context.Context, enrollment *models.Enrollment, blocked func(existing []models.Enrollment) bool) error
	Update(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus) error
}

type qualificationReader interface {
	List(ctx context.Context, filter models.QualificationFilter) ([]models.Qualification, error)
	FindByID(ctx context.Context, id int) (*models.Qualification, error)
	Count(ctx context.Context) (int, error)
}

type transitionRecorder interface {
	RecordTransition(status models.EnrollmentStatus)
}

// WorkflowConfig tunes enrollment rules.
type WorkflowConfig struct {
	// AllowReenrollAfterRejection lets a trainee enroll again once every earlier attempt was rejected.
	AllowReenrollAfterRejection bool
}

// WorkflowService runs the enrollment approval state machine.
type WorkflowService struct {
	store   enrollmentStore
	catalog qualificationReader
	metrics transitionRecorder
	logger  *zap.Logger
	cfg     WorkflowConfig
	now     func() time.Time
	newID   func() (string, error)
}

// NewWorkflowService constructs WorkflowService.
func NewWorkflowService(store enrollmentStore, catalog qualificationReader, metrics transitionRecorder, cfg WorkflowConfig, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		store:   store,
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		newID:   newEnrollmentID,
	}
}

func newEnrollmentID() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Enroll creates a Pending enrollment for the acting trainee.
func (s *WorkflowService) Enroll(ctx context.Context, actor models.Identity, cmd EnrollCommand) (*models.Enrollment, error) {
	if actor.Role != models.RoleTrainee {
		return nil, appErrors.Clone(appErrors.ErrPermissionDenied, "only trainees can enroll in qualifications")
	}
	qualification, err := s.catalog.FindByID(ctx, cmd.QualificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "qualification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualification")
	}
	id, err := s.newID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate enrollment id")
	}
	enrollment := &models.Enrollment{
		ID:                id,
		QualificationID:   qualification.ID,
		QualificationCode: qualification.Code,
		QualificationName: qualification.Title,
		Trainee:           actor.Name,
		EnrolledDate:      models.FormatDate(s.now()),
		Status:            models.EnrollmentStatusPending,
	}
	blocked := func(existing []models.Enrollment) bool { return blocksEnrollment(existing, s.cfg) }
	if err := s.store.CreateUnlessBlocked(ctx, enrollment, blocked); err != nil {
		if errors.Is(err, repository.ErrEnrollmentBlocked) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in "+qualification.Title)
		}
		s.logger.Error("persist enrollment", zap.String("trainee", actor.Name), zap.Int("qualification_id", qualification.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save enrollment")
	}
	s.recordTransition(enrollment.Status)
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("trainee", actor.Name),
		zap.String("qualification", qualification.Code),
	)
	return enrollment, nil
}

// Approve advances the enrollment one stage when actor holds the responsible role.
func (s *WorkflowService) Approve(ctx context.Context, actor models.Identity, cmd ApproveCommand) (*models.Enrollment, error) {
	enrollment, err := s.load(ctx, cmd.EnrollmentID)
	if err != nil {
		return nil, err
	}
	stage, err := authorizeTransition(enrollment, actor)
	if err != nil {
		return nil, err
	}
	from := enrollment.Status
	applyApproval(enrollment, stage, actor, models.FormatDate(s.now()))
	if err := s.persist(ctx, enrollment, from); err != nil {
		return nil, err
	}
	s.logger.Info("enrollment approved",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("approver", actor.Name),
		zap.String("role", string(actor.Role)),
		zap.String("status", string(enrollment.Status)),
	)
	return enrollment, nil
}

// Reject ends the enrollment with the given reason when actor holds the responsible role.
func (s *WorkflowService) Reject(ctx context.Context, actor models.Identity, cmd RejectCommand) (*models.Enrollment, error) {
	if cmd.Reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason for rejection is required")
	}
	enrollment, err := s.load(ctx, cmd.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeTransition(enrollment, actor); err != nil {
		return nil, err
	}
	from := enrollment.Status
	applyRejection(enrollment, actor, cmd.Reason, models.FormatDate(s.now()))
	if err := s.persist(ctx, enrollment, from); err != nil {
		return nil, err
	}
	s.logger.Info("enrollment rejected",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("rejected_by", actor.Name),
		zap.String("role", string(actor.Role)),
	)
	return enrollment, nil
}

// Get returns one enrollment. Trainees only see their own.
func (s *WorkflowService) Get(ctx context.Context, actor models.Identity, id string) (*models.Enrollment, error) {
	enrollment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTrainee && enrollment.Trainee != actor.Name {
		return nil, appErrors.Clone(appErrors.ErrPermissionDenied, "trainees may only view their own enrollments")
	}
	return enrollment, nil
}

func (s *WorkflowService) load(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *WorkflowService) persist(ctx context.Context, enrollment *models.Enrollment, from models.EnrollmentStatus) error {
	if err := s.store.Update(ctx, enrollment, from); err != nil {
		switch {
		case errors.Is(err, repository.ErrEnrollmentStale):
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "enrollment was updated by someone else")
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		s.logger.Error("persist enrollment transition", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save enrollment")
	}
	s.recordTransition(enrollment.Status)
	return nil
}

func (s *WorkflowService) recordTransition(status models.EnrollmentStatus) {
	if s.metrics != nil {
		s.metrics.RecordTransition(status)
	}
}

// blocksEnrollment applies the re-enrollment rule to a trainee's earlier attempts at one qualification.
func blocksEnrollment(existing []models.Enrollment, cfg WorkflowConfig) bool {
	if !cfg.AllowReenrollAfterRejection {
		return len(existing) > 0
	}
	for _, e := range existing {
		if e.Status != models.EnrollmentStatusRejected {
			return true
		}
	}
	return false
}
