package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	session := &Session{
		ID:      "sess-1",
		Patient: Patient{Name: "Asha Verma", Email: "asha@example.com", Phone: "+91 98000 00000"},
		State:   StateAwaitingDateChoice,
		Date:    &date,
		Messages: []Message{
			{Role: RoleAssistant, Content: "Hello!"},
			{Role: RoleUser, Content: "chest pain"},
		},
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Patient.Name != "Asha Verma" || loaded.State != StateAwaitingDateChoice {
		t.Errorf("loaded session differs: %+v", loaded)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Date == nil || !loaded.Date.Equal(date) {
		t.Errorf("date not preserved: %v", loaded.Date)
	}
}

func TestRedisStore_GetMissing(t *testing.T) {
	store := newRedisStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{ID: "sess-2", State: StateAwaitingSymptoms}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "sess-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "sess-2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("session should be gone, got %v", err)
	}
	if err := store.Delete(ctx, "sess-2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second delete should report not found, got %v", err)
	}
}

func TestMemoryStore_CopiesOnReadAndWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session := &Session{ID: "sess-3", State: StateAwaitingSymptoms}
	session.Append(RoleAssistant, "Hello!")
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the original after save must not leak into the store.
	session.Append(RoleUser, "should not appear")
	loaded, err := store.Get(ctx, "sess-3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(loaded.Messages) != 1 {
		t.Errorf("store aliased caller slice: %d messages", len(loaded.Messages))
	}

	// Mutating a loaded copy must not change the stored session either.
	loaded.Append(RoleUser, "local only")
	again, _ := store.Get(ctx, "sess-3")
	if len(again.Messages) != 1 {
		t.Errorf("store aliased returned slice: %d messages", len(again.Messages))
	}
}
