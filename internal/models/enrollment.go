package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for every enrollment date.
const DateLayout = "2006-01-02"

// FormatDate renders t as a UTC calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// EnrollmentStatus represents the position of an enrollment in the approval chain.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending           EnrollmentStatus = "Pending"
	EnrollmentStatusTrainerApproved   EnrollmentStatus = "Trainer Approved"
	EnrollmentStatusExaminerApproved  EnrollmentStatus = "Examiner Approved"
	EnrollmentStatusCommanderApproved EnrollmentStatus = "Commander Approved"
	EnrollmentStatusRejected          EnrollmentStatus = "Rejected"
)

// IsTerminal reports whether no further transition is defined.
func (s EnrollmentStatus) IsTerminal() bool {
	return s == EnrollmentStatusCommanderApproved || s == EnrollmentStatusRejected
}

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusTrainerApproved, EnrollmentStatusExaminerApproved,
		EnrollmentStatusCommanderApproved, EnrollmentStatusRejected:
		return true
	}
	return false
}

// Stage labels shown next to a status.
const (
	StageAwaitingTrainer   = "Awaiting Trainer Approval"
	StageAwaitingExaminer  = "Awaiting Examiner Approval"
	StageAwaitingCommander = "Awaiting Commander Approval"
	StageAuthorized        = "Qualification Authorized"
	rejectedStagePrefix    = "Rejected by "
)

// StageLabel derives the human-readable stage. rejectedBy is only consulted for Rejected.
func StageLabel(status EnrollmentStatus, rejectedBy Role) string {
	switch status {
	case EnrollmentStatusPending:
		return StageAwaitingTrainer
	case EnrollmentStatusTrainerApproved:
		return StageAwaitingExaminer
	case EnrollmentStatusExaminerApproved:
		return StageAwaitingCommander
	case EnrollmentStatusCommanderApproved:
		return StageAuthorized
	case EnrollmentStatusRejected:
		return rejectedStagePrefix + string(rejectedBy)
	}
	return ""
}

// Approval records who signed off a stage and when.
type Approval struct {
	Approver string `json:"approver"`
	Date     string `json:"date"`
}

// Enrollment is a trainee's request to obtain a qualification.
type Enrollment struct {
	ID                string           `json:"id"`
	QualificationID   int              `json:"qualificationId"`
	QualificationCode string           `json:"qualificationCode"`
	QualificationName string           `json:"qualificationName"`
	Trainee           string           `json:"trainee"`
	EnrolledDate      string           `json:"enrolledDate"`
	Status            EnrollmentStatus `json:"status"`
	TrainerApproval   *Approval        `json:"trainerApproval"`
	ExaminerApproval  *Approval        `json:"examinerApproval"`
	CommanderApproval *Approval        `json:"commanderApproval"`
	RejectionReason   string           `json:"rejectionReason,omitempty"`
	RejectedBy        string           `json:"rejectedBy,omitempty"`
	RejectedByRole    Role             `json:"rejectedByRole,omitempty"`
	RejectedDate      string           `json:"rejectedDate,omitempty"`
}

// CurrentStage is derived from the status; it is never stored on its own.
func (e Enrollment) CurrentStage() string {
	return StageLabel(e.Status, e.RejectedByRole)
}

// ApprovalFor returns the slot owned by role, or nil for Trainee.
func (e *Enrollment) ApprovalFor(role Role) *Approval {
	switch role {
	case RoleTrainer:
		return e.TrainerApproval
	case RoleExaminer:
		return e.ExaminerApproval
	case RoleCommander:
		return e.CommanderApproval
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored slots.
func (e Enrollment) Clone() Enrollment {
	clone := e
	clone.TrainerApproval = cloneApproval(e.TrainerApproval)
	clone.ExaminerApproval = cloneApproval(e.ExaminerApproval)
	clone.CommanderApproval = cloneApproval(e.CommanderApproval)
	return clone
}

func cloneApproval(a *Approval) *Approval {
	if a == nil {
		return nil
	}
	copied := *a
	return &copied
}

type enrollmentFields Enrollment

// MarshalJSON emits the derived currentStage alongside the stored fields.
func (e Enrollment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		enrollmentFields
		CurrentStage string `json:"currentStage"`
	}{enrollmentFields(e), e.CurrentStage()})
}

// UnmarshalJSON accepts blobs written by the browser client: numeric ids and a stored
// currentStage, from which the rejecting role is recovered when rejectedByRole is absent.
func (e *Enrollment) UnmarshalJSON(data []byte) error {
	var raw struct {
		enrollmentFields
		ID           json.RawMessage `json:"id"`
		CurrentStage string          `json:"currentStage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Enrollment(raw.enrollmentFields)
	e.ID = decodeID(raw.ID)
	if e.Status == EnrollmentStatusRejected && e.RejectedByRole == "" {
		if role, ok := ParseRole(strings.TrimPrefix(raw.CurrentStage, rejectedStagePrefix)); ok {
			e.RejectedByRole = role
		}
	}
	return nil
}

func decodeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	return string(raw)
}

// EnrollmentFilter narrows enrollment listings. Empty fields do not filter.
type EnrollmentFilter struct {
	Trainee         string
	QualificationID int
	Statuses        []EnrollmentStatus
}

// Matches reports whether e satisfies the filter.
func (f EnrollmentFilter) Matches(e Enrollment) bool {
	if f.Trainee != "" && e.Trainee != f.Trainee {
		return false
	}
	if f.QualificationID != 0 && e.QualificationID != f.QualificationID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if e.Status == s {
			return true
		}
	}
	return false
}
