package store

import (
	"context"
	"sync"

	"consentd/pkg/platform/sentinel"
)

// NamedCollection is an in-memory, namespace-scoped key-value store. It is
// the default backend and the one tests run against.
type NamedCollection struct {
	mu          sync.RWMutex
	namespace   string
	values      map[string]string
	unavailable bool
	writes      int
}

// NewNamedCollection creates an empty collection for namespace.
func NewNamedCollection(namespace string) *NamedCollection {
	return &NamedCollection{
		namespace: namespace,
		values:    make(map[string]string),
	}
}

// Namespace returns the collection namespace.
func (c *NamedCollection) Namespace() string {
	return c.namespace
}

func (c *NamedCollection) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.unavailable {
		return "", sentinel.ErrUnavailable
	}
	v, ok := c.values[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

func (c *NamedCollection) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return sentinel.ErrUnavailable
	}
	c.values[key] = value
	c.writes++
	return nil
}

func (c *NamedCollection) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return sentinel.ErrUnavailable
	}
	delete(c.values, key)
	c.writes++
	return nil
}

// SetUnavailable makes every operation fail with sentinel.ErrUnavailable,
// mirroring a storage backend that is not ready yet.
func (c *NamedCollection) SetUnavailable(unavailable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable = unavailable
}

// Writes returns the number of successful Set and Remove calls.
func (c *NamedCollection) Writes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writes
}
