package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is an in-process LRU with a cache-wide TTL. The ttl argument of Set is
// ignored; entries expire after the TTL given to NewMemory.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory returns a cache holding at most size entries for ttl each.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 1000
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the entry for key if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, value)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Available() bool { return true }
func (m *Memory) Name() string    { return "memory" }

// Close drops all entries.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
