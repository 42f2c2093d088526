package domain

// AccountPayload is the role-tagged request handed to the account API.
type AccountPayload struct {
	Role       Role              `json:"role"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	Profile    map[string]string `json:"profile"`
	ExternalID string            `json:"external_id,omitempty"`
	Provider   string            `json:"provider,omitempty"`
}

type AccountResult struct {
	UserID string `json:"user_id"`
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)
