package storage

import (
	"context"
	"sync"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

// MemorySubstrate keeps draft slots in process memory. It backs single-device
// embeddings and tests.
type MemorySubstrate struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

var _ ports.DraftSubstrate = (*MemorySubstrate)(nil)

func NewMemorySubstrate() *MemorySubstrate {
	return &MemorySubstrate{slots: make(map[string][]byte)}
}

func (m *MemorySubstrate) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.slots[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemorySubstrate) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemorySubstrate) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}
