package domain

import (
	"errors"
	"sort"
)

// Precondition and collaborator errors surfaced by the registration core.
// Precondition errors are returned before any collaborator is contacted.
var (
	ErrRoleRequired         = errors.New("select a role first")
	ErrUnknownRole          = errors.New("unknown role")
	ErrUnknownField         = errors.New("unknown field")
	ErrInvalidPhase         = errors.New("operation not allowed in current phase")
	ErrFieldsFrozen         = errors.New("account fields are read-only in the profile phase")
	ErrValidation           = errors.New("fields failed validation")
	ErrCooldownActive       = errors.New("resend is not available yet")
	ErrIncompleteCode       = errors.New("enter all 6 digits")
	ErrInvalidTransition    = errors.New("invalid channel transition")
	ErrUnknownChannel       = errors.New("unknown verification channel")
	ErrMissingIdentifier    = errors.New("no address to send the code to")
	ErrVerificationRequired = errors.New("verification is not complete")
	ErrContactVerified      = errors.New("a verified contact detail cannot be changed")
	ErrStaleResult          = errors.New("result arrived after the channel was reset")
	ErrSessionClosed        = errors.New("registration session is closed")
	ErrDecode               = errors.New("could not read the sign-in credential")
	ErrNoDraft              = errors.New("no draft to resume")
)

// One-time code failures reported by the verification service.
var (
	ErrOtpRejected    = errors.New("verification service rejected the request")
	ErrOtpRateLimited = errors.New("too many verification attempts")
	ErrOtpUnavailable = errors.New("verification service unavailable")
)

// ErrorMap holds field-keyed validation messages. Multiple fields may fail at once.
type ErrorMap map[string]string

func (m ErrorMap) HasErrors() bool {
	return len(m) > 0
}

func (m ErrorMap) Has(field string) bool {
	_, ok := m[field]
	return ok
}

// Keys returns the failing field names in a stable order.
func (m ErrorMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Visible keeps only the errors for fields the user has interacted with.
func (m ErrorMap) Visible(touched map[string]bool) ErrorMap {
	out := ErrorMap{}
	for k, v := range m {
		if touched[k] {
			out[k] = v
		}
	}
	return out
}

// Merge copies other into m, keeping existing keys.
func (m ErrorMap) Merge(other ErrorMap) ErrorMap {
	out := ErrorMap{}
	for k, v := range other {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CreationCode classifies account-creation failures reported by the account API.
type CreationCode string

const (
	CreationInviteInvalid CreationCode = "INVITE_CODE_INVALID"
	CreationEmailTaken    CreationCode = "EMAIL_ALREADY_REGISTERED"
	CreationRejected      CreationCode = "VALIDATION_REJECTED"
	CreationUnavailable   CreationCode = "UNAVAILABLE"
)

// CreationError is the structured failure returned by the account API.
type CreationError struct {
	Code    CreationCode
	Message string
}

func (e *CreationError) Error() string {
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code)
}

// UserMessage maps a creation failure to the text shown next to the submit button.
func (e *CreationError) UserMessage() string {
	switch e.Code {
	case CreationInviteInvalid:
		return "That invite code is not valid. Check it with your school and try again."
	case CreationEmailTaken:
		return "An account with this email already exists. Try signing in instead."
	case CreationRejected:
		if e.Message != "" {
			return e.Message
		}
		return "Some details were rejected. Review the form and try again."
	default:
		return "We could not create your account right now. Please try again."
	}
}
