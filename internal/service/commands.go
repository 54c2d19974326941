package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
)

var commandValidator = validator.New()

// EnrollCommand asks to enroll the acting trainee in a qualification.
type EnrollCommand struct {
	QualificationID int `validate:"required,gt=0"`
}

// NewEnrollCommand validates the qualification id.
func NewEnrollCommand(qualificationID int) (EnrollCommand, error) {
	cmd := EnrollCommand{QualificationID: qualificationID}
	if err := commandValidator.Struct(cmd); err != nil {
		return EnrollCommand{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "qualification id must be a positive integer")
	}
	return cmd, nil
}

// ApproveCommand approves the current stage of an enrollment.
type ApproveCommand struct {
	EnrollmentID string `validate:"required"`
}

// NewApproveCommand validates the enrollment id.
func NewApproveCommand(enrollmentID string) (ApproveCommand, error) {
	cmd := ApproveCommand{EnrollmentID: strings.TrimSpace(enrollmentID)}
	if err := commandValidator.Struct(cmd); err != nil {
		return ApproveCommand{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "enrollment id is required")
	}
	return cmd, nil
}

// RejectCommand rejects an enrollment. Reason is never blank.
type RejectCommand struct {
	EnrollmentID string `validate:"required"`
	Reason       string `validate:"required"`
}

// NewRejectCommand validates the id and trims the reason; a blank reason is refused.
func NewRejectCommand(enrollmentID, reason string) (RejectCommand, error) {
	cmd := RejectCommand{EnrollmentID: strings.TrimSpace(enrollmentID), Reason: strings.TrimSpace(reason)}
	if cmd.EnrollmentID == "" {
		return RejectCommand{}, appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	if err := commandValidator.Struct(cmd); err != nil {
		return RejectCommand{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a reason for rejection is required")
	}
	return cmd, nil
}
