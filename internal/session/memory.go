package session

import (
	"context"
	"sync"
	"time"

	"github.com/craftfolio/backend/internal/auth"
)

type memoryEntry struct {
	principal auth.Principal
	expiresAt time.Time
}

// MemoryStore is an in-process session store with the same TTL semantics
// as RedisStore. Used in tests and single-node development.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memoryEntry
}

var _ auth.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, sessions: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Create(_ context.Context, p auth.Principal) (string, error) {
	handle, err := newHandle()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sessions[handle] = memoryEntry{principal: p, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return handle, nil
}

func (s *MemoryStore) Get(_ context.Context, handle string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[handle]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.sessions, handle)
		return nil, nil
	}
	p := e.principal
	return &p, nil
}

func (s *MemoryStore) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	delete(s.sessions, handle)
	s.mu.Unlock()
	return nil
}
