package marketcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// MemoryStore is an in-process TTL store used when Redis is disabled.
// Values are kept JSON-encoded so callers never share memory with the cache.
// ⭐ SSOT: 인메모리 캐싱은 이 구조체에서만
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
	logger     *logger.Logger
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
	storedAt  time.Time
}

// NewMemoryStore creates a store holding at most maxEntries values
func NewMemoryStore(maxEntries int, log *logger.Logger) *MemoryStore {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     log,
	}
}

// Get decodes the value under key into dest. Expired entries are misses.
func (m *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(entry.expiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("memory cache unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key for ttl
func (m *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory cache marshal %s: %w", key, err)
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evict(now)
	}
	m.entries[key] = memoryEntry{data: data, expiresAt: now.Add(ttl), storedAt: now}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CleanExpired removes expired entries and returns how many were dropped
func (m *MemoryStore) CleanExpired() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// evict drops expired entries, or the oldest one if none expired. Caller holds mu.
func (m *MemoryStore) evict(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			removed++
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	if removed == 0 && oldestKey != "" {
		delete(m.entries, oldestKey)
		removed = 1
	}

	m.logger.WithFields(map[string]interface{}{
		"removed":   removed,
		"remaining": len(m.entries),
	}).Debug("Evicted memory cache entries")
}
