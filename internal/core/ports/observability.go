package ports

import (
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

// Clock abstracts wall time so countdowns and debouncing can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

// Metrics records registration outcomes.
type Metrics interface {
	OtpSent(channel domain.ChannelID, ok bool)
	OtpVerified(channel domain.ChannelID, ok bool)
	DraftSaved()
	DraftResumed(role domain.Role)
	DraftDiscarded(reason string)
	IdentityLinked(ok bool)
	Submission(role domain.Role, outcome string)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) OtpSent(domain.ChannelID, bool)     {}
func (NopMetrics) OtpVerified(domain.ChannelID, bool) {}
func (NopMetrics) DraftSaved()                        {}
func (NopMetrics) DraftResumed(domain.Role)           {}
func (NopMetrics) DraftDiscarded(string)              {}
func (NopMetrics) IdentityLinked(bool)                {}
func (NopMetrics) Submission(domain.Role, string)     {}
