package domain

import "time"

// DraftTTL is how long an unfinished signup can be resumed.
const DraftTTL = 24 * time.Hour

// Draft is the persisted, non-secret snapshot of an in-progress signup.
type Draft struct {
	Role     Role              `json:"role"`
	Phase    Phase             `json:"phase"`
	FormData map[string]string `json:"formData"`
	SavedAt  time.Time         `json:"savedAt"`
}

// Expired reports whether the draft is older than ttl at now.
func (d Draft) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(d.SavedAt) > ttl
}

// Sanitized returns a copy without any password field.
func (d Draft) Sanitized() Draft {
	out := d
	out.FormData = make(map[string]string, len(d.FormData))
	for k, v := range d.FormData {
		if IsSecretField(k) {
			continue
		}
		out.FormData[k] = v
	}
	return out
}

// WellFormed reports whether a decoded draft has the shape the session can apply.
func (d Draft) WellFormed() bool {
	return d.Role.IsValid() && d.Phase.IsValid() && !d.SavedAt.IsZero() && d.FormData != nil
}
