package bgsync

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func TestMutation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		m       Mutation
		wantErr bool
	}{
		{"valid add", NewMutation(KindAdd, "movie", 550, nil), false},
		{"valid update with payload", NewMutation(KindUpdate, "tv", 1399, json.RawMessage(`{"watched":true}`)), false},
		{"unknown kind", NewMutation(Kind("rate"), "movie", 550, nil), true},
		{"missing media type", NewMutation(KindAdd, "", 550, nil), true},
		{"zero item", NewMutation(KindRemove, "movie", 0, nil), true},
		{"invalid payload", NewMutation(KindAdd, "movie", 550, json.RawMessage(`{`)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMutation_UniqueIDs(t *testing.T) {
	a := NewMutation(KindAdd, "movie", 550, nil)
	b := NewMutation(KindAdd, "movie", 550, nil)
	if a.ID == b.ID || a.ID == uuid.Nil {
		t.Errorf("IDs = %s, %s; want distinct non-nil", a.ID, b.ID)
	}
}

func TestQueue_EnqueueAndPendingOrder(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	var ids []uuid.UUID
	for i, kind := range []Kind{KindAdd, KindUpdate, KindRemove} {
		m, err := q.Enqueue(ctx, NewMutation(kind, "movie", int64(100+i), json.RawMessage(`{"n":1}`)))
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		ids = append(ids, m.ID)
	}

	pending, err := q.Pending(ctx, 0)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len(Pending()) = %d, want 3", len(pending))
	}
	for i, m := range pending {
		if m.ID != ids[i] {
			t.Errorf("pending[%d].ID = %s, want %s (insertion order)", i, m.ID, ids[i])
		}
	}
	if pending[1].Kind != KindUpdate || pending[1].ItemID != 101 || string(pending[1].Payload) != `{"n":1}` {
		t.Errorf("pending[1] = %+v", pending[1])
	}

	limited, _ := q.Pending(ctx, 2)
	if len(limited) != 2 || limited[0].ID != ids[0] {
		t.Errorf("Pending(2) = %d items", len(limited))
	}
}

func TestQueue_EnqueueFillsDefaults(t *testing.T) {
	q := openTestQueue(t)

	m, err := q.Enqueue(context.Background(), Mutation{Kind: KindAdd, MediaType: "tv", ItemID: 1399})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if m.ID == uuid.Nil || m.CreatedAt.IsZero() {
		t.Errorf("Enqueue() = %+v, want generated ID and timestamp", m)
	}
}

func TestQueue_EnqueueRejectsInvalid(t *testing.T) {
	q := openTestQueue(t)

	if _, err := q.Enqueue(context.Background(), Mutation{Kind: "bogus", MediaType: "movie", ItemID: 1}); err == nil {
		t.Error("Enqueue() accepted an invalid mutation")
	}
	if n, _ := q.Len(context.Background()); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestQueue_EnqueueDuplicateID(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)
	m := NewMutation(KindAdd, "movie", 550, nil)

	if _, err := q.Enqueue(ctx, m); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := q.Enqueue(ctx, m); err == nil {
		t.Error("second Enqueue() with the same ID succeeded")
	}
}

func TestQueue_RemoveAndLen(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)

	m, _ := q.Enqueue(ctx, NewMutation(KindAdd, "movie", 550, nil))
	q.Enqueue(ctx, NewMutation(KindAdd, "movie", 551, nil))

	removed, err := q.Remove(ctx, m.ID)
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v; want true, nil", removed, err)
	}
	removed, err = q.Remove(ctx, m.ID)
	if err != nil || removed {
		t.Errorf("second Remove() = %v, %v; want false, nil", removed, err)
	}

	if n, _ := q.Len(ctx); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestQueue_MarkAttempt(t *testing.T) {
	ctx := context.Background()
	q := openTestQueue(t)
	m, _ := q.Enqueue(ctx, NewMutation(KindAdd, "movie", 550, nil))

	q.MarkAttempt(ctx, m.ID, errors.New("connection refused"))
	if err := q.MarkAttempt(ctx, m.ID, errors.New("HTTP 502")); err != nil {
		t.Fatalf("MarkAttempt() error = %v", err)
	}

	pending, _ := q.Pending(ctx, 0)
	if pending[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", pending[0].Attempts)
	}
	if pending[0].LastError != "HTTP 502" {
		t.Errorf("LastError = %q, want latest error", pending[0].LastError)
	}
}

func TestQueue_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sync.db")

	q, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	m, _ := q.Enqueue(ctx, NewMutation(KindRemove, "tv", 1399, nil))
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	pending, err := reopened.Pending(ctx, 0)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != m.ID || pending[0].Kind != KindRemove {
		t.Errorf("pending after reopen = %+v", pending)
	}
	if reopened.Path() != path {
		t.Errorf("Path() = %q", reopened.Path())
	}
}

func TestQueue_CloseNil(t *testing.T) {
	var q *Queue
	if err := q.Close(); err != nil {
		t.Errorf("Close() on nil queue = %v", err)
	}
}
