package session

import (
	"context"
	"sync"
)

// Store is the durable key-value state behind a session: the answer map,
// visited set, completed markers and the attempt hand-off slot. Injected
// rather than ambient so the keying contract is explicit and testable. Get
// returns "" for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is a process-local Store, used in tests and as a fallback when
// Redis is not configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// scopedStore prefixes every key with a user namespace so one user's session
// state cannot collide with another's. Beneath the prefix, keys keep their
// (subject, mode) namespacing.
type scopedStore struct {
	inner  Store
	prefix string
}

// Scoped wraps a Store so all keys are private to the given username.
func Scoped(inner Store, username string) Store {
	return &scopedStore{inner: inner, prefix: "user:" + username + ":"}
}

func (s *scopedStore) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scopedStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
