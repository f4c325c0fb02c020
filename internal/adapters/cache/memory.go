package cache

import (
	"context"
	"sync"
	"time"
)

// Default memory store configuration constants.
const (
	defaultMaxEntries = 1024
)

// entry is one cached value in the insertion-ordered list.
type entry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
	prev      *entry
	next      *entry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore implements Store in process memory.
//
// When maxEntries > 0 and the bound is reached, expired keys are dropped
// first and then the oldest written key. When ttl > 0 every write expires
// after ttl.
type MemoryStore struct {
	mu         sync.Mutex
	items      map[string]*entry
	head       *entry // oldest
	tail       *entry // newest
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryStore creates an in-memory store with configuration options.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = make(map[string]*entry)
	return s
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		s.remove(e)
		return nil, false, nil
	}
	return clone(e.value), true, nil
}

// Set stores a copy of value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(key, value, s.ttl)
	return nil
}

// Add stores value only if key is absent or expired. A ttl > 0 overrides the
// store expiry for this key.
func (s *MemoryStore) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok && !e.expired(s.now()) {
		return false, nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.put(key, value, ttl)
	return true, nil
}

// Len returns the number of entries held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// put writes key as the newest entry. Must be called with s.mu held.
func (s *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	if e, ok := s.items[key]; ok {
		s.remove(e)
	}
	if s.maxEntries > 0 && len(s.items) >= s.maxEntries {
		s.dropExpired()
		for len(s.items) >= s.maxEntries && s.head != nil {
			s.remove(s.head)
		}
	}

	e := &entry{key: key, value: clone(value)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	e.prev = s.tail
	if s.tail != nil {
		s.tail.next = e
	}
	s.tail = e
	if s.head == nil {
		s.head = e
	}
	s.items[key] = e
}

// dropExpired removes every expired entry. Must be called with s.mu held.
func (s *MemoryStore) dropExpired() {
	now := s.now()
	for e := s.head; e != nil; {
		next := e.next
		if e.expired(now) {
			s.remove(e)
		}
		e = next
	}
}

// remove unlinks e. Must be called with s.mu held.
func (s *MemoryStore) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
	delete(s.items, e.key)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
