package prefs

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Backend used for development and tests.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
	writes map[string]int
	err    error
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
		writes: make(map[string]int),
	}
}

// WithError makes every subsequent call fail with err.
func (m *Memory) WithError(err error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Put stores a raw value, bypassing the envelope. Used to plant corrupt data.
func (m *Memory) Put(key, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
}

// Writes reports how many times key has been written through Set.
func (m *Memory) Writes(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	m.writes[key]++
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values = make(map[string]string)
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
