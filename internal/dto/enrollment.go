package dto

import "github.com/noah-isme/rsaf-qualification-api/internal/models"

// EnrollRequest is the body of POST /enrollments.
type EnrollRequest struct {
	QualificationID int `json:"qualification_id" validate:"required,gt=0"`
}

// RejectRequest is the body of POST /enrollments/:id/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Row actions offered to approvers.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionView    = "view"
)

// CatalogItem pairs a qualification with the caller's eligibility.
type CatalogItem struct {
	models.Qualification
	Enrolled bool `json:"enrolled"`
}

// EnrollmentRow is one line of the "my enrollments" table.
type EnrollmentRow struct {
	ID                string                  `json:"id"`
	QualificationCode string                  `json:"qualification_code"`
	QualificationName string                  `json:"qualification_name"`
	EnrolledDate      string                  `json:"enrolled_date"`
	Status            models.EnrollmentStatus `json:"status"`
	CurrentStage      string                  `json:"current_stage"`
}

// PendingApprovalRow is one line of the approver's work queue.
type PendingApprovalRow struct {
	ID            string                  `json:"id"`
	Trainee       string                  `json:"trainee"`
	Qualification string                  `json:"qualification"`
	EnrolledDate  string                  `json:"enrolled_date"`
	Status        models.EnrollmentStatus `json:"status"`
	CurrentStage  string                  `json:"current_stage"`
	Actions       []string                `json:"actions,omitempty"`
}

// ApprovalStep is one stage of an enrollment's approval progress.
type ApprovalStep struct {
	Role     models.Role      `json:"role"`
	Approval *models.Approval `json:"approval"`
	Done     bool             `json:"done"`
}

// EnrollmentDetail is the enrollment with its qualification and per-stage progress.
type EnrollmentDetail struct {
	Enrollment    models.Enrollment     `json:"enrollment"`
	Qualification *models.Qualification `json:"qualification,omitempty"`
	Progress      []ApprovalStep        `json:"progress"`
}

// SummaryResponse carries the dashboard counters.
type SummaryResponse struct {
	TotalQualifications int `json:"total_qualifications"`
	MyEnrollments       int `json:"my_enrollments"`
	Pending             int `json:"pending"`
	Completed           int `json:"completed"`
}
