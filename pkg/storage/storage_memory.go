package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Interface, used for tests and STORAGE=memory
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory builds an empty Memory store
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

// Get returns the value stored under key
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	return value, ok, nil
}

// Set stores value under key
func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

// Remove deletes key
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
