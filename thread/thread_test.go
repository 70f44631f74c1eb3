package thread

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/troupehq/troupe/troupe"
)

func newClockedStore(idleWindow time.Duration) (*InMemoryStore, *time.Time) {
	store := NewInMemoryStore(idleWindow)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	return store, &current
}

func TestGetOrCreateActive_ReusesWithinWindow(t *testing.T) {
	store, clock := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	first, err := store.GetOrCreateActive(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}

	*clock = clock.Add(10 * time.Minute)
	second, err := store.GetOrCreateActive(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("thread must be reused within the idle window")
	}
}

func TestGetOrCreateActive_NewThreadAfterIdleWindow(t *testing.T) {
	store, clock := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	first, err := store.GetOrCreateActive(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}

	*clock = clock.Add(31 * time.Minute)
	second, err := store.GetOrCreateActive(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Error("idle thread must not be reused")
	}
}

func TestAppend_RefreshesWindow(t *testing.T) {
	store, clock := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	first, _ := store.GetOrCreateActive(ctx, "user-1")

	*clock = clock.Add(20 * time.Minute)
	if err := store.Append(ctx, first.ID, troupe.NewMessage(troupe.RoleUser, "still here")); err != nil {
		t.Fatal(err)
	}

	// 20 + 20 minutes from creation, but only 20 since the append.
	*clock = clock.Add(20 * time.Minute)
	second, _ := store.GetOrCreateActive(ctx, "user-1")
	if second.ID != first.ID {
		t.Error("append must refresh the idle window")
	}
}

func TestClose_ForcesNewThread(t *testing.T) {
	store, _ := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	first, _ := store.GetOrCreateActive(ctx, "user-1")
	if err := store.Close(ctx, first.ID); err != nil {
		t.Fatal(err)
	}

	second, _ := store.GetOrCreateActive(ctx, "user-1")
	if second.ID == first.ID {
		t.Error("closed thread must not be reused")
	}
}

func TestThreads_IsolatedPerUser(t *testing.T) {
	store, _ := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	a, _ := store.GetOrCreateActive(ctx, "user-a")
	b, _ := store.GetOrCreateActive(ctx, "user-b")
	if a.ID == b.ID {
		t.Fatal("users must not share threads")
	}

	if err := store.Append(ctx, a.ID, troupe.NewMessage(troupe.RoleUser, "only for a")); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Get(ctx, b.ID)
	if len(got.Messages) != 0 {
		t.Errorf("user-b thread must stay empty, got %d messages", len(got.Messages))
	}
}

func TestAppend_PreservesOrder(t *testing.T) {
	store, _ := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	thread, _ := store.GetOrCreateActive(ctx, "user-1")
	err := store.Append(ctx, thread.ID,
		troupe.NewMessage(troupe.RoleUser, "first"),
		troupe.NewMessage(troupe.RoleAssistant, "second"),
	)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(ctx, thread.ID)
	if len(got.Messages) != 2 || got.Messages[0].Content != "first" || got.Messages[1].Content != "second" {
		t.Errorf("order lost: %+v", got.Messages)
	}
}

func TestGet_CopiesAreIndependent(t *testing.T) {
	store, _ := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	thread, _ := store.GetOrCreateActive(ctx, "user-1")
	_ = store.Append(ctx, thread.ID, troupe.NewMessage(troupe.RoleUser, "original"))

	copy1, _ := store.Get(ctx, thread.ID)
	copy1.Messages[0].Content = "mutated"

	copy2, _ := store.Get(ctx, thread.ID)
	if copy2.Messages[0].Content != "original" {
		t.Error("store must not share message slices with callers")
	}
}

func TestUnknownThreadID(t *testing.T) {
	store, _ := newClockedStore(30 * time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if err := store.Append(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Append: expected ErrNotFound, got %v", err)
	}
	if err := store.Close(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Close: expected ErrNotFound, got %v", err)
	}
}
