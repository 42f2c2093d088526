package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// ResumeOffer is shown to the user instead of applying a draft automatically.
type ResumeOffer struct {
	Draft domain.Draft
	Age   time.Duration
}

// ResumeNegotiator decides at session start whether to offer resume-or-discard.
type ResumeNegotiator struct {
	store   *DraftStore
	clock   ports.Clock
	metrics ports.Metrics
	logger  *slog.Logger
}

func NewResumeNegotiator(store *DraftStore, clock ports.Clock, metrics ports.Metrics, logger *slog.Logger) *ResumeNegotiator {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeNegotiator{store: store, clock: clock, metrics: metrics, logger: logger}
}

// Negotiate returns an offer when a live draft with a role exists.
func (n *ResumeNegotiator) Negotiate(ctx context.Context) (ResumeOffer, bool) {
	draft, ok := n.store.Load(ctx)
	if !ok || !draft.Role.IsValid() {
		return ResumeOffer{}, false
	}
	return ResumeOffer{Draft: draft, Age: n.clock.Now().Sub(draft.SavedAt)}, true
}

// Resume applies the offered draft to a fresh session.
func (n *ResumeNegotiator) Resume(ctx context.Context, session *RegistrationSession, offer ResumeOffer) error {
	if !offer.Draft.Role.IsValid() {
		return domain.ErrNoDraft
	}
	if n.store.IsExpired(offer.Draft) {
		_ = n.store.Clear(ctx)
		n.metrics.DraftDiscarded("expired")
		return fmt.Errorf("draft expired before resume: %w", domain.ErrNoDraft)
	}
	if err := session.Rehydrate(offer.Draft); err != nil {
		return err
	}
	n.metrics.DraftResumed(offer.Draft.Role)
	n.logger.InfoContext(ctx, "draft resumed", "role", offer.Draft.Role, "age", offer.Age.Round(time.Second))
	return nil
}

// Discard clears the slot so the caller continues with an empty session.
func (n *ResumeNegotiator) Discard(ctx context.Context) error {
	if err := n.store.Clear(ctx); err != nil {
		return err
	}
	n.metrics.DraftDiscarded("user")
	return nil
}
