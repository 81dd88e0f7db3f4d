package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreBatchSemantics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	batch := NewBatch().
		Incr("count", 1).
		SetOnce("first", "100").
		Set("last", "100")
	if err := store.Apply(ctx, "k", batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	again := NewBatch().
		Incr("count", 2).
		SetOnce("first", "999").
		Set("last", "200").
		DeleteFields("missing")
	if err := store.Apply(ctx, "k", again); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rec, _ := store.Record(ctx, "k")
	if rec["count"] != "3" {
		t.Fatalf("expected count 3, got %q", rec["count"])
	}
	if rec["first"] != "100" {
		t.Fatalf("set-once field overwritten: %q", rec["first"])
	}
	if rec["last"] != "200" {
		t.Fatalf("expected last 200, got %q", rec["last"])
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	if err := store.Apply(ctx, "k", NewBatch().Incr("count", 1).Expire(time.Hour)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rec, _ := store.Record(ctx, "k")
	if rec["count"] != "1" {
		t.Fatalf("expected live record, got %v", rec)
	}

	store.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
	rec, _ = store.Record(ctx, "k")
	if len(rec) != 0 {
		t.Fatalf("expected expired record, got %v", rec)
	}
}

func TestMemoryStoreSampleCapAndOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c", "d"} {
		if err := store.PushSample(ctx, "list", []byte(p), 3, time.Hour); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	samples, err := store.Samples(ctx, "list", 0)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(samples))
	}
	if string(samples[0]) != "d" || string(samples[2]) != "b" {
		t.Fatalf("expected most-recent-first order, got %q %q %q", samples[0], samples[1], samples[2])
	}

	limited, _ := store.Samples(ctx, "list", 1)
	if len(limited) != 1 || string(limited[0]) != "d" {
		t.Fatalf("unexpected limited read: %v", limited)
	}
}

func TestMemoryStoreFieldsAndKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	batch := NewBatch().
		Incr("count", 5).
		Incr("throughput_1700000040000", 2).
		Incr("throughput_1700000100000", 1)
	store.Apply(ctx, "lens:performance:GET:/users/:id", batch)
	store.Apply(ctx, "lens:global:GET:/users/:id", NewBatch().Incr("count", 5))

	fields, err := store.Fields(ctx, "lens:performance:GET:/users/:id", "throughput_*")
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 throughput fields, got %v", fields)
	}

	keys, err := store.Keys(ctx, "lens:global:*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "lens:global:GET:/users/:id" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"lens:global:*", "lens:global:GET:/users/:id", true},
		{"lens:global:*", "lens:daily:2026-08-30:GET:/x", false},
		{"lens:*:GET:*", "lens:routes:GET:/users", true},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"*", "anything", true},
	}

	for _, tc := range cases {
		if got := globMatch(tc.pattern, tc.key); got != tc.want {
			t.Fatalf("globMatch(%q, %q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}
