package handler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/services"
)

var ErrSessionNotFound = errors.New("session not found")

// Bundle is what the gateway keeps per open signup.
type Bundle struct {
	Session    *services.RegistrationSession
	Negotiator *services.ResumeNegotiator
}

// SessionFactory builds a session bound to the device's draft slot.
type SessionFactory func(ctx context.Context, sessionID, deviceKey string) (Bundle, error)

// SessionGauge tracks how many sessions are held.
type SessionGauge interface {
	SessionOpened()
	SessionClosed()
}

type entry struct {
	id        string
	deviceKey string
	bundle    Bundle

	mu       sync.Mutex
	offer    *services.ResumeOffer
	lastSeen time.Time
}

func (e *entry) takeOffer() (services.ResumeOffer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.offer == nil {
		return services.ResumeOffer{}, false
	}
	o := *e.offer
	e.offer = nil
	return o, true
}

// restoreOffer puts back an offer whose resume did not go through.
func (e *entry) restoreOffer(o services.ResumeOffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.offer == nil {
		e.offer = &o
	}
}

func (e *entry) pendingOffer() *services.ResumeOffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offer
}

// Registry holds live sessions keyed by id. A device has at most one live
// session; opening another releases the previous one so its edits reach the slot.
type Registry struct {
	factory SessionFactory
	idle    time.Duration
	now     func() time.Time
	gauge   SessionGauge
	logger  *slog.Logger

	mu       sync.Mutex
	entries  map[string]*entry
	byDevice map[string]string
}

type RegistryOption func(*Registry)

func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idle = d }
}

func WithGauge(g SessionGauge) RegistryOption {
	return func(r *Registry) { r.gauge = g }
}

func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

func WithRegistryNow(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(factory SessionFactory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory:  factory,
		idle:     30 * time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
		entries:  make(map[string]*entry),
		byDevice: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open starts a session for deviceKey and asks its negotiator whether a draft can be resumed.
func (r *Registry) Open(ctx context.Context, deviceKey string) (*entry, error) {
	r.mu.Lock()
	previous := r.detachDeviceLocked(deviceKey)
	r.mu.Unlock()
	if previous != nil {
		previous.bundle.Session.Release(ctx)
		r.closed()
	}

	id := uuid.NewString()
	bundle, err := r.factory(ctx, id, deviceKey)
	if err != nil {
		return nil, err
	}
	e := &entry{id: id, deviceKey: deviceKey, bundle: bundle, lastSeen: r.now()}
	if bundle.Negotiator != nil {
		if offer, ok := bundle.Negotiator.Negotiate(ctx); ok {
			e.offer = &offer
		}
	}

	// A concurrent Open for the same device may have registered first.
	r.mu.Lock()
	displaced := r.detachDeviceLocked(deviceKey)
	r.entries[id] = e
	r.byDevice[deviceKey] = id
	r.mu.Unlock()
	if r.gauge != nil {
		r.gauge.SessionOpened()
	}
	if displaced != nil {
		displaced.bundle.Session.Release(ctx)
		r.closed()
	}
	return e, nil
}

func (r *Registry) Get(id string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.mu.Lock()
	e.lastSeen = r.now()
	e.mu.Unlock()
	return e, nil
}

// Remove drops a session that has already been closed (submitted or discarded).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		if r.byDevice[e.deviceKey] == id {
			delete(r.byDevice, e.deviceKey)
		}
	}
	r.mu.Unlock()
	if ok {
		r.closed()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict releases sessions idle for longer than the idle timeout. Their drafts stay resumable.
func (r *Registry) Evict(ctx context.Context) int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*entry
	for id, e := range r.entries {
		e.mu.Lock()
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle || e.bundle.Session.Closed() {
			stale = append(stale, e)
			delete(r.entries, id)
			if r.byDevice[e.deviceKey] == id {
				delete(r.byDevice, e.deviceKey)
			}
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.bundle.Session.Release(ctx)
		r.closed()
	}
	if len(stale) > 0 {
		r.logger.InfoContext(ctx, "idle sessions evicted", "count", len(stale))
	}
	return len(stale)
}

// Run evicts idle sessions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Evict(ctx)
		}
	}
}

// Shutdown releases every session, flushing pending drafts.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.entries = make(map[string]*entry)
	r.byDevice = make(map[string]string)
	r.mu.Unlock()

	for _, e := range all {
		e.bundle.Session.Release(ctx)
		r.closed()
	}
}

func (r *Registry) detachDeviceLocked(deviceKey string) *entry {
	id, ok := r.byDevice[deviceKey]
	if !ok {
		return nil
	}
	delete(r.byDevice, deviceKey)
	e := r.entries[id]
	delete(r.entries, id)
	return e
}

func (r *Registry) closed() {
	if r.gauge != nil {
		r.gauge.SessionClosed()
	}
}
