package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

const DefaultSwitchDelay = 1500 * time.Millisecond

// Verification coordinates the configured OTP channels and the active tab.
// With requireBoth every channel must verify; otherwise any one is enough.
type Verification struct {
	clock       ports.Clock
	switchDelay time.Duration
	requireBoth bool
	order       []domain.ChannelID
	channels    map[domain.ChannelID]*OtpChannel

	mu          sync.Mutex
	active      domain.ChannelID
	switchTimer ports.Timer
	closed      bool
}

func NewVerification(channels []*OtpChannel, requireBoth bool, clock ports.Clock, switchDelay time.Duration) (*Verification, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one verification channel is required")
	}
	if switchDelay <= 0 {
		switchDelay = DefaultSwitchDelay
	}

	v := &Verification{
		clock:       clock,
		switchDelay: switchDelay,
		requireBoth: requireBoth,
		channels:    make(map[domain.ChannelID]*OtpChannel, len(channels)),
		active:      channels[0].ID(),
	}
	for _, ch := range channels {
		if _, dup := v.channels[ch.ID()]; dup {
			return nil, fmt.Errorf("duplicate channel %q", ch.ID())
		}
		v.order = append(v.order, ch.ID())
		v.channels[ch.ID()] = ch
		ch.setOnVerified(v.channelVerified)
	}
	return v, nil
}

func (v *Verification) Channel(id domain.ChannelID) (*OtpChannel, error) {
	ch, ok := v.channels[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, domain.ErrUnknownChannel)
	}
	return ch, nil
}

// Channels returns the channels in configuration order.
func (v *Verification) Channels() []*OtpChannel {
	out := make([]*OtpChannel, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.channels[id])
	}
	return out
}

func (v *Verification) RequireBoth() bool { return v.requireBoth }

func (v *Verification) Active() domain.ChannelID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// Select switches the visible tab and cancels a pending automatic switch.
func (v *Verification) Select(id domain.ChannelID) error {
	if _, ok := v.channels[id]; !ok {
		return fmt.Errorf("%q: %w", id, domain.ErrUnknownChannel)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopTimerLocked()
	v.active = id
	return nil
}

// FullyVerified is the predicate gating account creation.
func (v *Verification) FullyVerified() bool {
	verified := 0
	for _, id := range v.order {
		if v.channels[id].Verified() {
			verified++
		}
	}
	if v.requireBoth {
		return verified == len(v.order)
	}
	return verified > 0
}

// Close stops all channels and any pending switch.
func (v *Verification) Close() {
	v.mu.Lock()
	v.closed = true
	v.stopTimerLocked()
	v.mu.Unlock()
	for _, ch := range v.channels {
		ch.Close()
	}
}

func (v *Verification) channelVerified(id domain.ChannelID) {
	if !v.requireBoth {
		return
	}
	next, ok := v.nextUnverified(id)
	if !ok {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.stopTimerLocked()
	v.switchTimer = v.clock.AfterFunc(v.switchDelay, func() {
		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			return
		}
		v.active = next
		v.switchTimer = nil
		v.mu.Unlock()
		v.channels[next].ResetEntry()
	})
}

func (v *Verification) nextUnverified(after domain.ChannelID) (domain.ChannelID, bool) {
	start := 0
	for i, id := range v.order {
		if id == after {
			start = i
			break
		}
	}
	for k := 1; k <= len(v.order); k++ {
		id := v.order[(start+k)%len(v.order)]
		if id != after && !v.channels[id].Verified() {
			return id, true
		}
	}
	return "", false
}

func (v *Verification) stopTimerLocked() {
	if v.switchTimer != nil {
		v.switchTimer.Stop()
		v.switchTimer = nil
	}
}
