package domain

import "fmt"

type Role string

const (
	RoleUnset   Role = ""
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts the upper-case wire names used by the account API.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return RoleUnset, fmt.Errorf("unsupported role %q: %w", s, ErrUnknownRole)
	}
	return r, nil
}

// Phase is one of the two sequential signup stages.
type Phase string

const (
	PhaseAccount Phase = "ACCOUNT"
	PhaseProfile Phase = "PROFILE"
)

func (p Phase) IsValid() bool {
	return p == PhaseAccount || p == PhaseProfile
}
