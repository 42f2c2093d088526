package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/classroom/signup-engine/internal/config"
)

const (
	sweepTimeout              = 30 * time.Second
	maxConsecutiveFailures    = 5
	healthCheckStaleThreshold = 5 * time.Minute
)

// Purger deletes drafts last saved before cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeRecorder counts removed drafts.
type PurgeRecorder interface {
	Purged(n int64)
}

// Janitor periodically removes drafts older than the draft TTL from the
// shared store. Reads already ignore expired drafts; the sweep keeps the
// table from growing with abandoned slots.
type Janitor struct {
	purger   Purger
	ttl      time.Duration
	interval time.Duration
	cb       *gobreaker.CircuitBreaker
	logger   *slog.Logger
	recorder PurgeRecorder
	now      func() time.Time

	mu        sync.RWMutex
	lastSweep time.Time
	failures  int
}

type Option func(*Janitor)

func WithLogger(l *slog.Logger) Option {
	return func(j *Janitor) { j.logger = l }
}

func WithRecorder(r PurgeRecorder) Option {
	return func(j *Janitor) { j.recorder = r }
}

func WithNow(now func() time.Time) Option {
	return func(j *Janitor) { j.now = now }
}

func New(purger Purger, ttl, interval time.Duration, opts ...Option) *Janitor {
	j := &Janitor{
		purger:   purger,
		ttl:      ttl,
		interval: interval,
		cb:       config.NewCircuitBreaker("Janitor-PostgreSQL"),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.lastSweep = j.now()
	return j
}

// IsHealthy is the liveness signal. An open breaker is degraded, not dead;
// only a long run of failed sweeps marks the process unhealthy.
func (j *Janitor) IsHealthy() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.failures < maxConsecutiveFailures
}

// IsReady reports whether sweeps are succeeding.
func (j *Janitor) IsReady() bool {
	if j.cb.State() == gobreaker.StateOpen {
		return false
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.now().Sub(j.lastSweep) > max(healthCheckStaleThreshold, 2*j.interval) {
		return false
	}
	return j.failures == 0
}

// Start sweeps once immediately, then on every interval until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.logger.Info("janitor started", "interval", j.interval, "ttl", j.ttl)

	if _, err := j.Sweep(ctx); err != nil {
		j.logger.Error("initial sweep failed", "error", err)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep removes every draft saved more than ttl ago.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	cutoff := j.now().Add(-j.ttl)
	res, err := j.cb.Execute(func() (interface{}, error) {
		return j.purger.PurgeOlderThan(ctx, cutoff)
	})
	if err != nil {
		j.mu.Lock()
		j.failures++
		j.mu.Unlock()
		return 0, err
	}

	n := res.(int64)
	j.mu.Lock()
	j.lastSweep = j.now()
	j.failures = 0
	j.mu.Unlock()

	if j.recorder != nil {
		j.recorder.Purged(n)
	}
	if n > 0 {
		j.logger.Info("expired drafts purged", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
