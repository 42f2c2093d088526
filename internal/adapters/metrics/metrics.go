package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// Metrics records signup funnel counters in Prometheus.
type Metrics struct {
	OtpSends       *prometheus.CounterVec
	OtpVerifies    *prometheus.CounterVec
	DraftsSaved    prometheus.Counter
	DraftsResumed  *prometheus.CounterVec
	DraftsDropped  *prometheus.CounterVec
	IdentityLinks  *prometheus.CounterVec
	Submissions    *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	DraftsPurged   prometheus.Counter
}

var _ ports.Metrics = (*Metrics)(nil)

// New registers every collector with reg. Pass prometheus.DefaultRegisterer in binaries.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OtpSends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_otp_sends_total",
			Help: "One-time code send attempts by channel and result",
		}, []string{"channel", "ok"}),
		OtpVerifies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_otp_verifications_total",
			Help: "One-time code verification attempts by channel and result",
		}, []string{"channel", "ok"}),
		DraftsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "signup_drafts_saved_total",
			Help: "Draft autosaves written",
		}),
		DraftsResumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_drafts_resumed_total",
			Help: "Drafts resumed by role",
		}, []string{"role"}),
		DraftsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_drafts_discarded_total",
			Help: "Drafts discarded by reason",
		}, []string{"reason"}),
		IdentityLinks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_identity_links_total",
			Help: "Google identity link attempts by result",
		}, []string{"ok"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "signup_submissions_total",
			Help: "Account submissions by role and outcome",
		}, []string{"role", "outcome"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "signup_active_sessions",
			Help: "Registration sessions currently held by the gateway",
		}),
		DraftsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "signup_drafts_purged_total",
			Help: "Expired drafts removed by the janitor",
		}),
	}
}

func (m *Metrics) OtpSent(channel domain.ChannelID, ok bool) {
	m.OtpSends.WithLabelValues(string(channel), strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) OtpVerified(channel domain.ChannelID, ok bool) {
	m.OtpVerifies.WithLabelValues(string(channel), strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) DraftSaved() {
	m.DraftsSaved.Inc()
}

func (m *Metrics) DraftResumed(role domain.Role) {
	m.DraftsResumed.WithLabelValues(string(role)).Inc()
}

func (m *Metrics) DraftDiscarded(reason string) {
	m.DraftsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IdentityLinked(ok bool) {
	m.IdentityLinks.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) Submission(role domain.Role, outcome string) {
	m.Submissions.WithLabelValues(string(role), outcome).Inc()
}

func (m *Metrics) SessionOpened() { m.ActiveSessions.Inc() }
func (m *Metrics) SessionClosed() { m.ActiveSessions.Dec() }

func (m *Metrics) Purged(n int64) {
	m.DraftsPurged.Add(float64(n))
}
