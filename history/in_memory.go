package history

import (
	"context"
	"sync"
	"time"

	"github.com/avilaj/rassist/core"
)

// InMemoryStore is a volatile Store keeping messages in a process-local map.
// Safe for concurrent access; listed messages are defensive copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Message
}

// NewInMemoryStore constructs an empty in-memory history store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]core.Message)}
}

// Append implements Store.
func (s *InMemoryStore) Append(_ context.Context, sessionID, role, content string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], core.Message{Role: role, Content: content, Timestamp: ts})
	return nil
}

// List implements Store.
func (s *InMemoryStore) List(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]core.Message, len(s.sessions[sessionID]))
	copy(msgs, s.sessions[sessionID])
	return msgs, nil
}

// Clear implements Store.
func (s *InMemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
