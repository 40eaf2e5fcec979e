package model

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Opener loads a Session from a checkpoint location.
type Opener func(path string) (Session, error)

// Cache keeps recently used sessions keyed by checkpoint path, so a checkpoint
// is read once and reused across separation requests.
type Cache struct {
	mu    sync.Mutex
	open  Opener
	items *lru.Cache[string, Session]
}

// NewCache creates a Cache holding up to size sessions. Evicted sessions are closed.
func NewCache(size int, open Opener) (*Cache, error) {
	if open == nil {
		open = Open
	}
	items, err := lru.NewWithEvict(size, func(_ string, s Session) {
		s.Close()
	})
	if err != nil {
		return nil, err
	}
	return &Cache{open: open, items: items}, nil
}

// Get returns the session for path, loading it on first use.
func (c *Cache) Get(path string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.items.Get(path); ok {
		return s, nil
	}
	s, err := c.open(path)
	if err != nil {
		return nil, err
	}
	c.items.Add(path, s)
	return s, nil
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Purge closes and drops every cached session.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
}
