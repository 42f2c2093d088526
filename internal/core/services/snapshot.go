package services

import (
	"math"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/validation"
)

// Snapshot is the read model handed to presentation code. It never carries a password.
type Snapshot struct {
	Phase          domain.Phase        `json:"phase"`
	Role           domain.Role         `json:"role,omitempty"`
	Account        map[string]string   `json:"account"`
	PasswordSet    bool                `json:"password_set"`
	Profile        map[string]string   `json:"profile,omitempty"`
	IdentityLinked bool                `json:"identity_linked"`
	Errors         domain.ErrorMap     `json:"errors"`
	ScopeErrors    map[Scope]string    `json:"scope_errors,omitempty"`
	Strength       validation.Strength `json:"password_strength"`
	Channels       []ChannelView       `json:"channels,omitempty"`
	ActiveChannel  domain.ChannelID    `json:"active_channel,omitempty"`
	FullyVerified  bool                `json:"fully_verified"`
	Resumed        bool                `json:"resumed"`
	Closed         bool                `json:"closed"`
}

type ChannelView struct {
	Channel       domain.ChannelID          `json:"channel"`
	Status        domain.OtpStatus          `json:"status"`
	Code          [domain.CodeLength]string `json:"code"`
	ResendSeconds int                       `json:"resend_in_seconds"`
	LastError     string                    `json:"last_error,omitempty"`
}

// Snapshot captures the session for rendering. Countdowns are recomputed from
// stored deadlines, so polling it once a second keeps timers accurate.
func (s *RegistrationSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:          s.phase,
		Role:           s.role,
		Account:        s.account.Public(),
		PasswordSet:    s.account.Password != "",
		IdentityLinked: s.link != nil,
		Errors:         s.phaseErrorsLocked().Visible(s.touched),
		ScopeErrors:    make(map[Scope]string, len(s.scopeErrors)),
		Resumed:        s.resumed,
		Closed:         s.closed,
	}
	if s.link == nil {
		snap.Strength = validation.PasswordStrength(s.account.Password)
	}
	if s.profile != nil {
		snap.Profile = s.profile.Fields()
	}
	for k, v := range s.scopeErrors {
		snap.ScopeErrors[k] = v
	}

	if s.verification != nil {
		now := s.deps.Clock.Now()
		for _, ch := range s.verification.Channels() {
			st := ch.State()
			view := ChannelView{
				Channel:       st.Channel,
				Status:        st.Status,
				ResendSeconds: int(math.Ceil(st.ResendIn(now).Seconds())),
				LastError:     st.LastError,
			}
			for i, d := range st.Code {
				if d.Filled {
					view.Code[i] = string(rune('0' + d.Value))
				}
			}
			snap.Channels = append(snap.Channels, view)
		}
		snap.ActiveChannel = s.verification.Active()
		snap.FullyVerified = s.verification.FullyVerified()
	} else {
		snap.FullyVerified = !s.cfg.RequireVerification
	}
	return snap
}
