// Package lanes serializes operations per aggregate key inside one process.
package lanes

import (
	"strings"
	"sync"
)

// Set hands out one mutex per key. The zero value is ready to use and a nil
// *Set performs no locking.
type Set struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

func New() *Set {
	return &Set{lanes: make(map[string]*lane)}
}

// Acquire blocks until key is free and returns the matching release func.
func (s *Set) Acquire(key string) func() {
	if s == nil {
		return func() {}
	}
	key = strings.TrimSpace(key)

	s.mu.Lock()
	if s.lanes == nil {
		s.lanes = make(map[string]*lane)
	}
	item, ok := s.lanes[key]
	if !ok {
		item = &lane{}
		s.lanes[key] = item
	}
	item.refs++
	s.mu.Unlock()

	item.mu.Lock()
	return func() {
		item.mu.Unlock()
		s.mu.Lock()
		item.refs--
		if item.refs == 0 {
			delete(s.lanes, key)
		}
		s.mu.Unlock()
	}
}
