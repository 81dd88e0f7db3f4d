package storage

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same atomicity guarantees as
// the Redis implementation: one mutex guards every batch, so a batch is
// applied whole or not at all. It backs tests and redis-less deployments.
type MemoryStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	lists   map[string][][]byte
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes:  make(map[string]map[string]string),
		lists:   make(map[string][][]byte),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the expiry clock. Tests use this to advance time.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) expired(key string) bool {
	exp, ok := s.expires[key]
	return ok && !s.now().Before(exp)
}

func (s *MemoryStore) dropIfExpired(key string) {
	if s.expired(key) {
		delete(s.hashes, key)
		delete(s.lists, key)
		delete(s.expires, key)
	}
}

// Apply runs the batch under the store lock.
func (s *MemoryStore) Apply(_ context.Context, key string, batch *Batch) error {
	if batch == nil || batch.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropIfExpired(key)
	h := s.hashes[key]
	if h == nil {
		h = make(map[string]string)
		s.hashes[key] = h
	}

	for _, in := range batch.incrs {
		cur, _ := strconv.ParseInt(h[in.field], 10, 64)
		h[in.field] = strconv.FormatInt(cur+in.delta, 10)
	}
	for _, so := range batch.setOnce {
		if _, ok := h[so.field]; !ok {
			h[so.field] = so.value
		}
	}
	for _, fv := range batch.sets {
		h[fv.field] = fv.value
	}
	for _, f := range batch.dels {
		delete(h, f)
	}
	if batch.ttl > 0 {
		s.expires[key] = s.now().Add(batch.ttl)
	}
	return nil
}

// PushSample prepends to the list and trims it to maxLen.
func (s *MemoryStore) PushSample(_ context.Context, key string, payload []byte, maxLen int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropIfExpired(key)
	cp := make([]byte, len(payload))
	copy(cp, payload)

	list := append([][]byte{cp}, s.lists[key]...)
	if maxLen > 0 && int64(len(list)) > maxLen {
		list = list[:maxLen]
	}
	s.lists[key] = list
	if ttl > 0 {
		s.expires[key] = s.now().Add(ttl)
	}
	return nil
}

// Samples returns list payloads, most-recent first.
func (s *MemoryStore) Samples(_ context.Context, key string, limit int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropIfExpired(key)
	list := s.lists[key]
	if limit > 0 && int64(len(list)) > limit {
		list = list[:limit]
	}

	out := make([][]byte, len(list))
	for i, p := range list {
		cp := make([]byte, len(p))
		copy(cp, p)
		out[i] = cp
	}
	return out, nil
}

// Record returns a copy of the hash for a key.
func (s *MemoryStore) Record(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropIfExpired(key)
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

// Fields lists hash field names matching a glob pattern.
func (s *MemoryStore) Fields(_ context.Context, key, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropIfExpired(key)
	var fields []string
	for f := range s.hashes[key] {
		if globMatch(pattern, f) {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// Keys matches stored keys against a Redis-style glob pattern.
func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var keys []string
	collect := func(key string) {
		if _, dup := seen[key]; dup {
			return
		}
		s.dropIfExpired(key)
		if _, ok := s.hashes[key]; !ok {
			if _, ok := s.lists[key]; !ok {
				return
			}
		}
		if globMatch(pattern, key) {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	for key := range s.hashes {
		collect(key)
	}
	for key := range s.lists {
		collect(key)
	}
	return keys, nil
}

// Delete removes keys.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.hashes, key)
		delete(s.lists, key)
		delete(s.expires, key)
	}
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// globMatch supports the subset of Redis glob syntax the tracker uses:
// literal text and `*` wildcards. `*` matches any run of characters,
// including path separators.
func globMatch(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == key
	}

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}
	return strings.HasSuffix(key, last)
}
