package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the position a user holds in the approval chain.
type Role string

const (
	RoleTrainee   Role = "Trainee"
	RoleTrainer   Role = "Trainer"
	RoleExaminer  Role = "Examiner"
	RoleCommander Role = "Commander"
)

// Roles lists every role in chain order.
var Roles = []Role{RoleTrainee, RoleTrainer, RoleExaminer, RoleCommander}

// ApproverRoles are the roles that review enrollments.
var ApproverRoles = []Role{RoleTrainer, RoleExaminer, RoleCommander}

// Key is the lower-case form persisted as the role selection.
func (r Role) Key() string {
	return strings.ToLower(string(r))
}

// IsApprover reports whether the role owns a stage of the approval chain.
func (r Role) IsApprover() bool {
	return r == RoleTrainer || r == RoleExaminer || r == RoleCommander
}

// ParseRole accepts either the display name or the persisted key, case-insensitively.
func ParseRole(raw string) (Role, bool) {
	raw = strings.TrimSpace(raw)
	for _, r := range Roles {
		if strings.EqualFold(raw, string(r)) {
			return r, true
		}
	}
	return "", false
}

// Identity is the acting user of a session.
type Identity struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Directory maps each role to the user who acts under it.
type Directory map[Role]Identity

// DefaultDirectory returns the demo users.
func DefaultDirectory() Directory {
	return Directory{
		RoleTrainee:   {Name: "John Tan", Role: RoleTrainee},
		RoleTrainer:   {Name: "Sarah Lim", Role: RoleTrainer},
		RoleExaminer:  {Name: "David Wong", Role: RoleExaminer},
		RoleCommander: {Name: "Colonel Lee", Role: RoleCommander},
	}
}

// SessionClaims is the JWT payload identifying the acting user.
type SessionClaims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Identity extracts the acting identity.
func (c *SessionClaims) Identity() Identity {
	if c == nil {
		return Identity{}
	}
	return Identity{Name: c.Name, Role: c.Role}
}
