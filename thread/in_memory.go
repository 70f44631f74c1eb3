package thread

import (
	"context"
	"sync"
	"time"

	"github.com/troupehq/troupe/troupe"
)

// InMemoryStore keeps threads in process memory.
//
// Use cases:
//   - Tests and local development
//   - Single-instance deployments where loss on restart is acceptable
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*Thread
	activeByID map[string]string // userID -> active thread ID
	idleWindow time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewInMemoryStore creates an in-memory store. A non-positive idle
// window uses DefaultIdleWindow.
func NewInMemoryStore(idleWindow time.Duration) *InMemoryStore {
	if idleWindow <= 0 {
		idleWindow = DefaultIdleWindow
	}
	return &InMemoryStore{
		byID:       make(map[string]*Thread),
		activeByID: make(map[string]string),
		idleWindow: idleWindow,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateActive returns the user's active thread or starts a new one.
func (s *InMemoryStore) GetOrCreateActive(_ context.Context, userID string) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.activeByID[userID]; ok {
		if t, ok := s.byID[id]; ok && !t.Closed && s.now().Sub(t.UpdatedAt) <= s.idleWindow {
			return copyThread(t), nil
		}
	}

	t := New(userID)
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.byID[t.ID] = t
	s.activeByID[userID] = t.ID
	return copyThread(t), nil
}

// Get returns a thread by ID.
func (s *InMemoryStore) Get(_ context.Context, threadID string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyThread(t), nil
}

// Append adds messages and refreshes the thread's activity time.
func (s *InMemoryStore) Append(_ context.Context, threadID string, messages ...troupe.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[threadID]
	if !ok {
		return ErrNotFound
	}
	t.Messages = append(t.Messages, messages...)
	t.UpdatedAt = s.now()
	return nil
}

// Close marks the thread finished.
func (s *InMemoryStore) Close(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[threadID]
	if !ok {
		return ErrNotFound
	}
	t.Closed = true
	return nil
}

func copyThread(t *Thread) *Thread {
	clone := *t
	clone.Messages = make([]troupe.Message, len(t.Messages))
	copy(clone.Messages, t.Messages)
	return &clone
}
