package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore keeps counters in process memory. It only limits a single
// instance; use RedisStore when several instances share traffic.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore starts a janitor evicting finished windows every interval.
// A non-positive interval disables the janitor.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	m := &MemoryStore{
		counters: make(map[string]*counter),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if interval > 0 {
		go m.janitor(interval)
	}
	return m
}

func (m *MemoryStore) Incr(_ context.Context, key string, windowEnd time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.counters[key]
	if !ok || !m.now().Before(entry.expiresAt) {
		entry = &counter{expiresAt: windowEnd}
		m.counters[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// Len reports the number of tracked counters.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

// Close stops the janitor.
func (m *MemoryStore) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.counters {
		if !now.Before(entry.expiresAt) {
			delete(m.counters, key)
		}
	}
}
