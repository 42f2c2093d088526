package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

const (
	msgSendFailed   = "We could not send the code. Try again."
	msgVerifyFailed = "That code did not match. Check it and try again."
)

// userMessenger is implemented by collaborator errors that carry display text.
type userMessenger interface {
	UserMessage() string
}

func messageFor(err error, fallback string) string {
	var um userMessenger
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return fallback
}

// OtpChannel is the send/verify state machine of one verification channel.
//
//	IDLE -> SENDING -> SENT -> VERIFYING -> VERIFIED
//	SENDING failure  -> ERROR (sendable again)
//	VERIFYING failure -> SENT with LastError
//
// Network calls run without the lock held. Each call remembers the channel epoch
// it started in and its result is dropped when the epoch has moved on.
type OtpChannel struct {
	id       domain.ChannelID
	gateway  ports.OtpGateway
	clock    ports.Clock
	cooldown time.Duration
	metrics  ports.Metrics
	logger   *slog.Logger

	mu         sync.Mutex
	state      domain.OtpState
	epoch      uint64
	closed     bool
	onVerified func(domain.ChannelID)
}

func NewOtpChannel(id domain.ChannelID, gateway ports.OtpGateway, clock ports.Clock, cooldown time.Duration, metrics ports.Metrics, logger *slog.Logger) *OtpChannel {
	if cooldown <= 0 {
		cooldown = domain.ResendCooldown
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OtpChannel{
		id:       id,
		gateway:  gateway,
		clock:    clock,
		cooldown: cooldown,
		metrics:  metrics,
		logger:   logger.With("channel", id),
		state:    domain.OtpState{Channel: id, Status: domain.OtpIdle},
	}
}

func (c *OtpChannel) ID() domain.ChannelID { return c.id }

// State returns a copy of the current channel state.
func (c *OtpChannel) State() domain.OtpState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *OtpChannel) Verified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status == domain.OtpVerified
}

// ResendIn is the remaining cooldown, recomputed from the stored deadline.
func (c *OtpChannel) ResendIn() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ResendIn(c.clock.Now())
}

func (c *OtpChannel) setOnVerified(fn func(domain.ChannelID)) {
	c.mu.Lock()
	c.onVerified = fn
	c.mu.Unlock()
}

// Send requests the first code for identifier. Allowed from IDLE and ERROR.
func (c *OtpChannel) Send(ctx context.Context, identifier string) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil || c.state.Status == domain.OtpVerified {
		c.mu.Unlock()
		return err
	}
	if c.state.Status != domain.OtpIdle && c.state.Status != domain.OtpError {
		c.mu.Unlock()
		return fmt.Errorf("send from %s: %w", c.state.Status, domain.ErrInvalidTransition)
	}
	return c.dispatchLocked(ctx, identifier)
}

// Resend requests a new code once the cooldown has elapsed. Before that it
// changes nothing and never contacts the gateway.
func (c *OtpChannel) Resend(ctx context.Context, identifier string) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil || c.state.Status == domain.OtpVerified {
		c.mu.Unlock()
		return err
	}
	if c.state.Status != domain.OtpSent {
		c.mu.Unlock()
		return fmt.Errorf("resend from %s: %w", c.state.Status, domain.ErrInvalidTransition)
	}
	if !c.state.CanResend(c.clock.Now()) {
		c.mu.Unlock()
		return domain.ErrCooldownActive
	}
	return c.dispatchLocked(ctx, identifier)
}

// dispatchLocked is entered with c.mu held and returns with it released.
func (c *OtpChannel) dispatchLocked(ctx context.Context, identifier string) error {
	if identifier == "" {
		c.state.LastError = "Add a valid " + string(c.state.Channel) + " before requesting a code."
		c.mu.Unlock()
		return domain.ErrMissingIdentifier
	}

	c.state.Status = domain.OtpSending
	c.state.LastError = ""
	epoch := c.epoch
	channel := c.state.Channel
	c.mu.Unlock()

	err := c.gateway.Send(ctx, channel, identifier)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.OtpSent(channel, err == nil)
	if stale := c.staleLocked(epoch); stale != nil {
		c.logger.Debug("dropping stale send result", "epoch", epoch)
		return stale
	}

	if err != nil {
		c.state.Status = domain.OtpError
		c.state.LastError = messageFor(err, msgSendFailed)
		c.logger.Warn("otp send failed", "error", err)
		return fmt.Errorf("send %s code: %w", channel, err)
	}

	c.state.Status = domain.OtpSent
	c.state.Identifier = identifier
	c.state.ResendAvailableAt = c.clock.Now().Add(c.cooldown)
	c.state.Code.Reset()
	return nil
}

// Submit verifies the entered code. Incomplete codes are rejected locally.
func (c *OtpChannel) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil || c.state.Status == domain.OtpVerified {
		c.mu.Unlock()
		return err
	}
	if c.state.Status != domain.OtpSent {
		c.mu.Unlock()
		return fmt.Errorf("submit from %s: %w", c.state.Status, domain.ErrInvalidTransition)
	}
	if !c.state.Code.Complete() {
		c.state.LastError = "Enter all 6 digits."
		c.mu.Unlock()
		return domain.ErrIncompleteCode
	}

	c.state.Status = domain.OtpVerifying
	c.state.LastError = ""
	epoch := c.epoch
	channel := c.state.Channel
	identifier := c.state.Identifier
	code := c.state.Code.String()
	c.mu.Unlock()

	err := c.gateway.Verify(ctx, channel, identifier, code)

	c.mu.Lock()
	c.metrics.OtpVerified(channel, err == nil)
	if stale := c.staleLocked(epoch); stale != nil {
		c.mu.Unlock()
		c.logger.Debug("dropping stale verify result", "epoch", epoch)
		return stale
	}

	if err != nil {
		c.state.Status = domain.OtpSent
		c.state.Code.Reset()
		c.state.LastError = messageFor(err, msgVerifyFailed)
		c.mu.Unlock()
		return fmt.Errorf("verify %s code: %w", channel, err)
	}

	c.state.Status = domain.OtpVerified
	c.state.LastError = ""
	notify := c.onVerified
	c.mu.Unlock()

	if notify != nil {
		notify(channel)
	}
	return nil
}

// SetDigit fills one slot. Entry is frozen while verifying and after verification.
func (c *OtpChannel) SetDigit(slot int, digit rune) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.entryGuardLocked(); err != nil {
		return err
	}
	return c.state.Code.Set(slot, digit)
}

// Paste spreads a pasted code over the slots and returns the slot to focus.
func (c *OtpChannel) Paste(s string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.entryGuardLocked(); err != nil {
		return 0, err
	}
	return c.state.Code.Paste(s), nil
}

// Backspace clears a slot or moves focus back from an empty one.
func (c *OtpChannel) Backspace(slot int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.entryGuardLocked(); err != nil {
		return slot, err
	}
	return c.state.Code.Backspace(slot), nil
}

// ResetEntry clears the local code entry without touching status or cooldown.
func (c *OtpChannel) ResetEntry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != domain.OtpVerifying {
		c.state.Code.Reset()
	}
}

// Invalidate returns an unverified channel to IDLE, e.g. after its address changed.
// Results of calls already in flight are dropped.
func (c *OtpChannel) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == domain.OtpVerified || c.state.Status == domain.OtpIdle {
		return
	}
	c.epoch++
	c.state = domain.OtpState{Channel: c.id, Status: domain.OtpIdle}
}

// Close stops the channel; late results are discarded.
func (c *OtpChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.epoch++
}

// staleLocked reports why a result from epoch must be dropped, if it must.
func (c *OtpChannel) staleLocked(epoch uint64) error {
	switch {
	case c.closed:
		return domain.ErrSessionClosed
	case epoch != c.epoch:
		return domain.ErrStaleResult
	}
	return nil
}

func (c *OtpChannel) guardLocked() error {
	if c.closed {
		return domain.ErrSessionClosed
	}
	return nil
}

func (c *OtpChannel) entryGuardLocked() error {
	if c.closed {
		return domain.ErrSessionClosed
	}
	if c.state.Status == domain.OtpVerifying || c.state.Status == domain.OtpVerified {
		return fmt.Errorf("code entry in %s: %w", c.state.Status, domain.ErrInvalidTransition)
	}
	return nil
}
