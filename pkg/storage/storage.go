package storage

import (
	"context"
	"time"
)

// Store defines the interface for the key-value store behind the tracker.
// Hash records hold aggregate counters, list keys hold raw event samples.
// Apply must be atomic: a concurrent reader never observes a half-applied
// batch, and concurrent batches on the same key never lose increments.
type Store interface {
	// Apply runs one batch of commutative mutations against a hash record.
	Apply(ctx context.Context, key string, batch *Batch) error

	// PushSample prepends a payload to a bounded list and refreshes its TTL.
	PushSample(ctx context.Context, key string, payload []byte, maxLen int64, ttl time.Duration) error

	// Samples returns up to limit payloads, most-recent first. limit <= 0 means all.
	Samples(ctx context.Context, key string, limit int64) ([][]byte, error)

	// Record returns all fields of a hash record. Missing keys yield an empty map.
	Record(ctx context.Context, key string) (map[string]string, error)

	// Fields lists hash field names matching a glob pattern.
	Fields(ctx context.Context, key, pattern string) ([]string, error)

	// Keys lists keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Delete removes whole keys.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}

type fieldDelta struct {
	field string
	delta int64
}

type fieldValue struct {
	field string
	value string
}

// Batch collects mutations that Apply submits as one atomic unit.
// Only commutative operations are offered: increments, set-if-absent,
// plain set, and field deletion. There is deliberately no read-modify-write.
type Batch struct {
	incrs   []fieldDelta
	setOnce []fieldValue
	sets    []fieldValue
	dels    []string
	ttl     time.Duration
}

func NewBatch() *Batch {
	return &Batch{}
}

// Incr adds delta to a counter field.
func (b *Batch) Incr(field string, delta int64) *Batch {
	b.incrs = append(b.incrs, fieldDelta{field: field, delta: delta})
	return b
}

// SetOnce writes a field only if it is absent.
func (b *Batch) SetOnce(field, value string) *Batch {
	b.setOnce = append(b.setOnce, fieldValue{field: field, value: value})
	return b
}

// Set overwrites a field unconditionally.
func (b *Batch) Set(field, value string) *Batch {
	b.sets = append(b.sets, fieldValue{field: field, value: value})
	return b
}

// DeleteFields removes fields from the record.
func (b *Batch) DeleteFields(fields ...string) *Batch {
	b.dels = append(b.dels, fields...)
	return b
}

// Expire refreshes the record's TTL. Zero leaves the key without expiry.
func (b *Batch) Expire(ttl time.Duration) *Batch {
	b.ttl = ttl
	return b
}

// Empty reports whether the batch carries no mutations.
func (b *Batch) Empty() bool {
	return len(b.incrs) == 0 && len(b.setOnce) == 0 && len(b.sets) == 0 && len(b.dels) == 0
}
