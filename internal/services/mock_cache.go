package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCache is an in-memory Cache for tests. Expirations are recorded but
// never enforced.
type MockCache struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration

	// PingErr is returned by Ping and WaitForConnection when set.
	PingErr error
	Closed  bool
}

var _ Cache = (*MockCache)(nil)

// NewMockCache creates an empty mock cache.
func NewMockCache() *MockCache {
	return &MockCache{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *MockCache) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.values[key] = v
	case []byte:
		m.values[key] = string(v)
	default:
		m.values[key] = fmt.Sprint(v)
	}
	m.ttls[key] = expiration
	return nil
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

// TTL returns the expiration key was stored with.
func (m *MockCache) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *MockCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockCache) WaitForConnection(ctx context.Context) error {
	return m.Ping(ctx)
}
