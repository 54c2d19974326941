package service

import (
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
)

// chainStage is one step of the Trainer → Examiner → Commander chain.
type chainStage struct {
	from models.EnrollmentStatus
	role models.Role
	to   models.EnrollmentStatus
}

var approvalChain = []chainStage{
	{from: models.EnrollmentStatusPending, role: models.RoleTrainer, to: models.EnrollmentStatusTrainerApproved},
	{from: models.EnrollmentStatusTrainerApproved, role: models.RoleExaminer, to: models.EnrollmentStatusExaminerApproved},
	{from: models.EnrollmentStatusExaminerApproved, role: models.RoleCommander, to: models.EnrollmentStatusCommanderApproved},
}

func stageFrom(status models.EnrollmentStatus) (chainStage, bool) {
	for _, stage := range approvalChain {
		if stage.from == status {
			return stage, true
		}
	}
	return chainStage{}, false
}

func stageOwnedBy(role models.Role) (chainStage, bool) {
	for _, stage := range approvalChain {
		if stage.role == role {
			return stage, true
		}
	}
	return chainStage{}, false
}

// ResponsibleRole returns the role that may act on an enrollment in status.
func ResponsibleRole(status models.EnrollmentStatus) (models.Role, bool) {
	stage, ok := stageFrom(status)
	return stage.role, ok
}

// IsPendingFor reports whether e sits in role's work queue.
func IsPendingFor(e models.Enrollment, role models.Role) bool {
	stage, ok := stageOwnedBy(role)
	if !ok {
		return false
	}
	return e.Status == stage.from && e.ApprovalFor(role) == nil
}

// PendingFor filters the enrollments awaiting role, keeping their order.
func PendingFor(enrollments []models.Enrollment, role models.Role) []models.Enrollment {
	result := make([]models.Enrollment, 0)
	for _, e := range enrollments {
		if IsPendingFor(e, role) {
			result = append(result, e)
		}
	}
	return result
}

// authorizeTransition validates that actor may approve or reject e right now.
// A terminal enrollment has no responsible role, so every actor is denied.
func authorizeTransition(e *models.Enrollment, actor models.Identity) (chainStage, error) {
	if e.Status.IsTerminal() {
		return chainStage{}, appErrors.Clone(appErrors.ErrPermissionDenied, "enrollment is already finalized as "+string(e.Status))
	}
	stage, ok := stageFrom(e.Status)
	if !ok {
		return chainStage{}, appErrors.Clone(appErrors.ErrInternal, "unknown enrollment status "+string(e.Status))
	}
	if actor.Role != stage.role {
		return chainStage{}, appErrors.Clone(appErrors.ErrPermissionDenied, "enrollment is awaiting "+string(stage.role)+" approval")
	}
	if e.ApprovalFor(stage.role) != nil {
		return chainStage{}, appErrors.Clone(appErrors.ErrConflict, string(stage.role)+" approval already recorded")
	}
	return stage, nil
}

// applyApproval fills the stage's slot and advances the status.
func applyApproval(e *models.Enrollment, stage chainStage, actor models.Identity, date string) {
	approval := &models.Approval{Approver: actor.Name, Date: date}
	switch stage.role {
	case models.RoleTrainer:
		e.TrainerApproval = approval
	case models.RoleExaminer:
		e.ExaminerApproval = approval
	case models.RoleCommander:
		e.CommanderApproval = approval
	}
	e.Status = stage.to
}

// applyRejection marks e rejected by actor. Earlier approval slots are kept.
func applyRejection(e *models.Enrollment, actor models.Identity, reason, date string) {
	e.Status = models.EnrollmentStatusRejected
	e.RejectionReason = reason
	e.RejectedBy = actor.Name
	e.RejectedByRole = actor.Role
	e.RejectedDate = date
}
