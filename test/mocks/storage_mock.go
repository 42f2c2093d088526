package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// MockDraftSubstrate is an in-memory ports.DraftSubstrate with error injection.
type MockDraftSubstrate struct {
	mu   sync.Mutex
	data map[string][]byte

	Writes  int
	Deletes int

	// Error injection
	ReadError   error
	WriteError  error
	DeleteError error
}

var _ ports.DraftSubstrate = (*MockDraftSubstrate)(nil)

func NewMockDraftSubstrate() *MockDraftSubstrate {
	return &MockDraftSubstrate{data: map[string][]byte{}}
}

func (m *MockDraftSubstrate) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadError != nil {
		return nil, m.ReadError
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MockDraftSubstrate) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if m.WriteError != nil {
		return m.WriteError
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockDraftSubstrate) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.data, key)
	return nil
}

// Raw returns the stored bytes for key (for test assertions).
func (m *MockDraftSubstrate) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Put stores raw bytes directly (for test setup).
func (m *MockDraftSubstrate) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// MockMetrics implements ports.Metrics and counts every observation.
type MockMetrics struct {
	mu sync.Mutex

	Sent        map[domain.ChannelID]int
	Verified    map[domain.ChannelID]int
	Saved       int
	Resumed     int
	Discarded   map[string]int
	Links       int
	Submissions map[string]int
}

var _ ports.Metrics = (*MockMetrics)(nil)

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Sent:        map[domain.ChannelID]int{},
		Verified:    map[domain.ChannelID]int{},
		Discarded:   map[string]int{},
		Submissions: map[string]int{},
	}
}

func (m *MockMetrics) OtpSent(c domain.ChannelID, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.Sent[c]++
	}
}

func (m *MockMetrics) OtpVerified(c domain.ChannelID, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.Verified[c]++
	}
}

func (m *MockMetrics) DraftSaved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved++
}

func (m *MockMetrics) DraftResumed(domain.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resumed++
}

func (m *MockMetrics) DraftDiscarded(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Discarded[reason]++
}

func (m *MockMetrics) IdentityLinked(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.Links++
	}
}

func (m *MockMetrics) Submission(_ domain.Role, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submissions[outcome]++
}

// DiscardCount returns how many drafts were discarded for reason.
func (m *MockMetrics) DiscardCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Discarded[reason]
}
