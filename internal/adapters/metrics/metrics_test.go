package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

func TestMetrics_RecordsFunnel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OtpSent(domain.ChannelEmail, true)
	m.OtpSent(domain.ChannelEmail, false)
	m.OtpVerified(domain.ChannelPhone, true)
	m.DraftSaved()
	m.DraftSaved()
	m.DraftResumed(domain.RoleAdmin)
	m.DraftDiscarded("expired")
	m.IdentityLinked(true)
	m.Submission(domain.RoleTeacher, "created")
	m.Purged(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OtpSends.WithLabelValues("email", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OtpSends.WithLabelValues("email", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OtpVerifies.WithLabelValues("phone", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DraftsSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftsResumed.WithLabelValues("ADMIN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftsDropped.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentityLinks.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("TEACHER", "created")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.DraftsPurged))
}

func TestMetrics_ActiveSessionsGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestMetrics_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.DraftSaved()
	m.SessionOpened()

	n, err := testutil.GatherAndCount(reg, "signup_drafts_saved_total", "signup_active_sessions")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Panics(t, func() { New(reg) }, "double registration is a programming error")
}
