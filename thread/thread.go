// Package thread provides conversation thread storage.
//
// A thread is one user's conversation history. Each user has at most
// one active thread; a thread goes stale after an idle window and the
// next message starts a fresh one, so old context never bleeds into a
// new conversation. Two stores are provided: an in-memory store for
// tests and single-process deployments, and a Redis store for
// multi-instance deployments.
package thread

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/troupehq/troupe/troupe"
)

// DefaultIdleWindow is how long a thread stays active without a new
// message before the next message starts a fresh thread.
const DefaultIdleWindow = 30 * time.Minute

// ErrNotFound is returned when a thread ID is unknown to the store.
var ErrNotFound = errors.New("thread not found")

// Thread is one user's conversation history.
type Thread struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Messages  []troupe.Message `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Closed    bool             `json:"closed"`
}

// New creates an empty thread for the user.
func New(userID string) *Thread {
	now := time.Now().UTC()
	return &Thread{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store persists threads and resolves each user's active thread.
type Store interface {
	// GetOrCreateActive returns the user's active thread, creating a
	// fresh one when none exists, the last one is closed, or the last
	// one has been idle past the window.
	GetOrCreateActive(ctx context.Context, userID string) (*Thread, error)

	// Get returns a thread by ID, or ErrNotFound.
	Get(ctx context.Context, threadID string) (*Thread, error)

	// Append adds messages to a thread and refreshes its activity time.
	Append(ctx context.Context, threadID string, messages ...troupe.Message) error

	// Close marks a thread finished; the user's next message starts a
	// new thread.
	Close(ctx context.Context, threadID string) error
}
