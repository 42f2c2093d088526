package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// DraftStore keeps the single draft slot for one device.
type DraftStore struct {
	substrate ports.DraftSubstrate
	key       string
	clock     ports.Clock
	ttl       time.Duration
	logger    *slog.Logger
	metrics   ports.Metrics
}

type DraftOption func(*DraftStore)

func WithDraftTTL(ttl time.Duration) DraftOption {
	return func(s *DraftStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithDraftLogger(logger *slog.Logger) DraftOption {
	return func(s *DraftStore) {
		s.logger = logger
	}
}

func WithDraftMetrics(m ports.Metrics) DraftOption {
	return func(s *DraftStore) {
		s.metrics = m
	}
}

func NewDraftStore(substrate ports.DraftSubstrate, key string, clock ports.Clock, opts ...DraftOption) (*DraftStore, error) {
	if substrate == nil {
		return nil, fmt.Errorf("draft substrate is required")
	}
	if key == "" {
		return nil, fmt.Errorf("draft key is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}

	s := &DraftStore{
		substrate: substrate,
		key:       key,
		clock:     clock,
		ttl:       domain.DraftTTL,
		logger:    slog.Default(),
		metrics:   ports.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *DraftStore) TTL() time.Duration { return s.ttl }

// Save overwrites the slot. Password fields are stripped even if the caller left them in.
func (s *DraftStore) Save(ctx context.Context, draft domain.Draft) error {
	draft = draft.Sanitized()
	if draft.SavedAt.IsZero() {
		draft.SavedAt = s.clock.Now()
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.substrate.Write(ctx, s.key, payload); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	s.metrics.DraftSaved()
	return nil
}

// Load returns the stored draft when it is present, well formed and younger than the TTL.
// Expired and malformed drafts are deleted. Substrate failures read as "no draft".
func (s *DraftStore) Load(ctx context.Context) (domain.Draft, bool) {
	payload, err := s.substrate.Read(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			s.logger.WarnContext(ctx, "draft read failed", "key", s.key, "error", err)
		}
		return domain.Draft{}, false
	}

	var draft domain.Draft
	if err := json.Unmarshal(payload, &draft); err != nil || !draft.WellFormed() {
		s.logger.DebugContext(ctx, "discarding malformed draft", "key", s.key)
		s.purge(ctx, "malformed")
		return domain.Draft{}, false
	}

	if s.IsExpired(draft) {
		s.logger.DebugContext(ctx, "discarding expired draft", "key", s.key, "saved_at", draft.SavedAt)
		s.purge(ctx, "expired")
		return domain.Draft{}, false
	}

	return draft.Sanitized(), true
}

func (s *DraftStore) Clear(ctx context.Context) error {
	if err := s.substrate.Delete(ctx, s.key); err != nil && !errors.Is(err, ports.ErrNotFound) {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (s *DraftStore) IsExpired(draft domain.Draft) bool {
	return draft.Expired(s.clock.Now(), s.ttl)
}

func (s *DraftStore) purge(ctx context.Context, reason string) {
	if err := s.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "draft purge failed", "key", s.key, "reason", reason, "error", err)
	}
	s.metrics.DraftDiscarded(reason)
}
