package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

const (
	DefaultAutosaveDelay = 800 * time.Millisecond
	autosaveWriteTimeout = 5 * time.Second
)

// Autosaver debounces draft writes. Only the newest scheduled draft is written.
type Autosaver struct {
	store  *DraftStore
	clock  ports.Clock
	delay  time.Duration
	logger *slog.Logger

	// writeMu orders writes so the last scheduled draft is the one that lands.
	writeMu sync.Mutex

	mu      sync.Mutex
	pending *domain.Draft
	timer   ports.Timer
	stopped bool
}

func NewAutosaver(store *DraftStore, clock ports.Clock, delay time.Duration, logger *slog.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{store: store, clock: clock, delay: delay, logger: logger}
}

// Schedule replaces the pending draft and restarts the idle timer.
func (a *Autosaver) Schedule(draft domain.Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.pending = &draft
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.clock.AfterFunc(a.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), autosaveWriteTimeout)
		defer cancel()
		if err := a.Flush(ctx); err != nil {
			a.logger.Warn("draft autosave failed", "error", err)
		}
	})
}

// Flush writes the pending draft immediately, e.g. on field blur.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	draft := a.pending
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	if draft == nil {
		return nil
	}
	return a.store.Save(ctx, *draft)
}

// HasPending reports whether a write is waiting for the idle timer.
func (a *Autosaver) HasPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Stop drops any pending write and waits for an in-flight one to finish.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	a.writeMu.Lock()
	a.writeMu.Unlock()
}
