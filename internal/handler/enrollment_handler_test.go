package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
)

type workflowStub struct {
	enrollment *models.Enrollment
	err        error

	lastActor   models.Identity
	lastEnroll  service.EnrollCommand
	lastApprove service.ApproveCommand
	lastReject  service.RejectCommand
	lastGetID   string
	calls       int
}

func (s *workflowStub) Enroll(_ context.Context, actor models.Identity, cmd service.EnrollCommand) (*models.Enrollment, error) {
	s.calls++
	s.lastActor, s.lastEnroll = actor, cmd
	return s.enrollment, s.err
}

func (s *workflowStub) Approve(_ context.Context, actor models.Identity, cmd service.ApproveCommand) (*models.Enrollment, error) {
	s.calls++
	s.lastActor, s.lastApprove = actor, cmd
	return s.enrollment, s.err
}

func (s *workflowStub) Reject(_ context.Context, actor models.Identity, cmd service.RejectCommand) (*models.Enrollment, error) {
	s.calls++
	s.lastActor, s.lastReject = actor, cmd
	return s.enrollment, s.err
}

func (s *workflowStub) Get(_ context.Context, actor models.Identity, id string) (*models.Enrollment, error) {
	s.calls++
	s.lastActor, s.lastGetID = actor, id
	return s.enrollment, s.err
}

type queriesStub struct {
	rows    []dto.EnrollmentRow
	pending []dto.PendingApprovalRow
	detail  *dto.EnrollmentDetail
	err     error
}

func (s *queriesStub) MyEnrollmentRows(context.Context, models.Identity) ([]dto.EnrollmentRow, error) {
	return s.rows, s.err
}

func (s *queriesStub) PendingRows(context.Context, models.Identity) ([]dto.PendingApprovalRow, error) {
	return s.pending, s.err
}

func (s *queriesStub) Detail(_ context.Context, e models.Enrollment) (*dto.EnrollmentDetail, error) {
	if s.detail != nil {
		return s.detail, s.err
	}
	return &dto.EnrollmentDetail{Enrollment: e, Progress: service.ApprovalProgress(e)}, s.err
}

func pendingEnrollment() *models.Enrollment {
	return &models.Enrollment{
		ID:                "enr-1",
		QualificationID:   1,
		QualificationCode: "F16-PILOT",
		QualificationName: "F-16 Fighter Pilot",
		Trainee:           "John Tan",
		EnrolledDate:      "2024-03-01",
		Status:            models.EnrollmentStatusPending,
	}
}

func TestEnrollmentHandlerEnrollCreated(t *testing.T) {
	workflow := &workflowStub{enrollment: pendingEnrollment()}
	handler := NewEnrollmentHandler(workflow, &queriesStub{})

	c, rec := newTestContext(http.MethodPost, "/enrollments", dto.EnrollRequest{QualificationID: 1}, trainee)
	handler.Enroll(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, workflow.lastEnroll.QualificationID)
	assert.Equal(t, "John Tan", workflow.lastActor.Name)

	envelope := decodeEnvelope(t, rec)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(envelope.Data, &body))
	assert.Equal(t, "Pending", body["status"])
	assert.Equal(t, models.StageAwaitingTrainer, body["currentStage"])
}

func TestEnrollmentHandlerEnrollRejectsBadPayload(t *testing.T) {
	workflow := &workflowStub{}
	handler := NewEnrollmentHandler(workflow, &queriesStub{})

	c, rec := newTestContext(http.MethodPost, "/enrollments", `{"qualification_id":"abc"}`, trainee)
	handler.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, workflow.calls)

	c, rec = newTestContext(http.MethodPost, "/enrollments", dto.EnrollRequest{}, trainee)
	handler.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, workflow.calls)
}

func TestEnrollmentHandlerEnrollMapsServiceErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"duplicate":   {err: appErrors.Clone(appErrors.ErrConflict, "already enrolled"), status: http.StatusConflict},
		"not trainee": {err: appErrors.Clone(appErrors.ErrPermissionDenied, "only trainees may enroll"), status: http.StatusForbidden},
		"unknown":     {err: appErrors.Clone(appErrors.ErrNotFound, "qualification not found"), status: http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewEnrollmentHandler(&workflowStub{err: tc.err}, &queriesStub{})
			c, rec := newTestContext(http.MethodPost, "/enrollments", dto.EnrollRequest{QualificationID: 3}, trainee)
			handler.Enroll(c)

			assert.Equal(t, tc.status, rec.Code)
			envelope := decodeEnvelope(t, rec)
			require.NotNil(t, envelope.Error)
		})
	}
}

func TestEnrollmentHandlerRequiresIdentity(t *testing.T) {
	handler := NewEnrollmentHandler(&workflowStub{}, &queriesStub{})

	c, rec := newTestContext(http.MethodGet, "/enrollments/mine", nil, nil)
	handler.Mine(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentHandlerMine(t *testing.T) {
	queries := &queriesStub{rows: []dto.EnrollmentRow{
		{ID: "enr-1", QualificationCode: "F16-PILOT", Status: models.EnrollmentStatusPending, CurrentStage: models.StageAwaitingTrainer},
	}}
	handler := NewEnrollmentHandler(&workflowStub{}, queries)

	c, rec := newTestContext(http.MethodGet, "/enrollments/mine", nil, trainee)
	handler.Mine(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(1), envelope.Meta["total"])
	var rows []dto.EnrollmentRow
	require.NoError(t, json.Unmarshal(envelope.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "F16-PILOT", rows[0].QualificationCode)
}

func TestEnrollmentHandlerGetReturnsProgress(t *testing.T) {
	enrollment := pendingEnrollment()
	enrollment.Status = models.EnrollmentStatusTrainerApproved
	enrollment.TrainerApproval = &models.Approval{Approver: "Sarah Lim", Date: "2024-03-02"}
	workflow := &workflowStub{enrollment: enrollment}
	handler := NewEnrollmentHandler(workflow, &queriesStub{})

	c, rec := newTestContext(http.MethodGet, "/enrollments/enr-1", nil, trainee)
	c.AddParam("id", "enr-1")
	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "enr-1", workflow.lastGetID)

	envelope := decodeEnvelope(t, rec)
	var detail struct {
		Progress []struct {
			Role string `json:"role"`
			Done bool   `json:"done"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &detail))
	require.Len(t, detail.Progress, 3)
	assert.True(t, detail.Progress[0].Done)
	assert.False(t, detail.Progress[1].Done)
}

func TestEnrollmentHandlerGetNotFound(t *testing.T) {
	handler := NewEnrollmentHandler(&workflowStub{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")}, &queriesStub{})

	c, rec := newTestContext(http.MethodGet, "/enrollments/missing", nil, trainee)
	c.AddParam("id", "missing")
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
