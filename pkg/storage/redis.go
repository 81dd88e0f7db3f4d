package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ngoyal88/lens/pkg/cache"
)

// RedisStore implements Store on top of Redis. Batches are submitted through
// a transactional pipeline, so every mutation in a batch lands in a single
// MULTI/EXEC round trip and no partial record state is ever visible.
type RedisStore struct {
	rdb *cache.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *cache.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Apply runs the batch inside one transactional pipeline.
func (s *RedisStore) Apply(ctx context.Context, key string, batch *Batch) error {
	if batch == nil || batch.Empty() {
		return nil
	}

	pipe := s.rdb.Redis().TxPipeline()
	for _, in := range batch.incrs {
		pipe.HIncrBy(ctx, key, in.field, in.delta)
	}
	for _, so := range batch.setOnce {
		pipe.HSetNX(ctx, key, so.field, so.value)
	}
	for _, fv := range batch.sets {
		pipe.HSet(ctx, key, fv.field, fv.value)
	}
	if len(batch.dels) > 0 {
		pipe.HDel(ctx, key, batch.dels...)
	}
	if batch.ttl > 0 {
		pipe.Expire(ctx, key, batch.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("apply batch to %s: %w", key, err)
	}
	return nil
}

// PushSample prepends to the sample list, trims it, and refreshes the TTL.
func (s *RedisStore) PushSample(ctx context.Context, key string, payload []byte, maxLen int64, ttl time.Duration) error {
	pipe := s.rdb.Redis().TxPipeline()
	pipe.LPush(ctx, key, payload)
	if maxLen > 0 {
		pipe.LTrim(ctx, key, 0, maxLen-1)
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push sample to %s: %w", key, err)
	}
	return nil
}

// Samples returns list payloads, most-recent first.
func (s *RedisStore) Samples(ctx context.Context, key string, limit int64) ([][]byte, error) {
	end := int64(-1)
	if limit > 0 {
		end = limit - 1
	}

	values, err := s.rdb.Redis().LRange(ctx, key, 0, end).Result()
	if err != nil {
		return nil, fmt.Errorf("read samples from %s: %w", key, err)
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Record returns the full hash for a key.
func (s *RedisStore) Record(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.rdb.Redis().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", key, err)
	}
	return fields, nil
}

// Fields scans a hash for field names matching the pattern.
func (s *RedisStore) Fields(ctx context.Context, key, pattern string) ([]string, error) {
	var (
		fields []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Redis().HScan(ctx, key, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("scan fields of %s: %w", key, err)
		}
		// HSCAN yields alternating field, value pairs.
		for i := 0; i+1 < len(batch); i += 2 {
			fields = append(fields, batch[i])
		}
		cursor = next
		if cursor == 0 {
			return fields, nil
		}
	}
}

// Keys scans for keys matching the pattern. SCAN is used instead of KEYS so
// large key spaces do not block the server.
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Redis().Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Delete removes keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Redis().Del(ctx, keys...).Err()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Redis().Ping(ctx).Err()
}
