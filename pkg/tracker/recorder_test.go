package tracker

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/storage"
)

func testConfig() config.Config {
	return config.Config{
		KeyPrefix:       "lens",
		TrackingEnabled: true,
		Performance: config.PerformanceConfig{
			Enabled:         true,
			SlowThresholdMs: 1000,
			MemoryTracking:  true,
			CPUTracking:     true,
		},
	}
}

func newTestRecorder(cfg config.Config, now time.Time) (*Recorder, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	rec := NewRecorder(store, config.StaticStore(cfg), nil, nil)
	rec.SetClock(func() time.Time { return now })
	return rec, store
}

func TestRecordAggregatesGlobalAndDaily(t *testing.T) {
	now := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	rec, store := newTestRecorder(testConfig(), now)
	ctx := context.Background()

	ev := Event{Method: "get", Path: "/users/42", StatusCode: 200, ResponseTimeMs: Int64(150)}
	if out := rec.Record(ctx, ev); out != OutcomeRecorded {
		t.Fatalf("expected OutcomeRecorded, got %v", out)
	}

	keys := NewKeyBuilder("lens")
	ep := EndpointKey{Method: "GET", Path: "/users/:id"}

	global, err := store.Record(ctx, keys.Global(ep))
	if err != nil {
		t.Fatalf("read global record: %v", err)
	}
	if global[FieldCount] != "1" {
		t.Fatalf("expected count 1, got %q", global[FieldCount])
	}
	if global[StatusField(200)] != "1" {
		t.Fatalf("expected status_200 1, got %q", global[StatusField(200)])
	}
	if global[FieldTotalResponseTime] != "150" || global[FieldResponseCount] != "1" {
		t.Fatalf("unexpected response accumulators: %v", global)
	}

	wantTs := strconv.FormatInt(now.UnixMilli(), 10)
	if global[FieldFirstAccessed] != wantTs || global[FieldLastAccessed] != wantTs {
		t.Fatalf("unexpected access timestamps: %v", global)
	}

	daily, err := store.Record(ctx, keys.Daily(ep, "2026-08-30"))
	if err != nil {
		t.Fatalf("read daily record: %v", err)
	}
	if daily[FieldCount] != "1" {
		t.Fatalf("expected daily count 1, got %q", daily[FieldCount])
	}
}

func TestRecordSetOnceAndLastAccessedAdvance(t *testing.T) {
	first := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	rec, store := newTestRecorder(testConfig(), first)
	ctx := context.Background()

	ev := Event{Method: "GET", Path: "/users/1", StatusCode: 200}
	rec.Record(ctx, ev)

	second := first.Add(48 * time.Hour)
	rec.SetClock(func() time.Time { return second })
	rec.Record(ctx, ev)

	keys := NewKeyBuilder("lens")
	global, _ := store.Record(ctx, keys.Global(EndpointKey{Method: "GET", Path: "/users/:id"}))

	if global[FieldFirstAccessed] != strconv.FormatInt(first.UnixMilli(), 10) {
		t.Fatalf("first_accessed changed on second record: %q", global[FieldFirstAccessed])
	}
	if global[FieldLastAccessed] != strconv.FormatInt(second.UnixMilli(), 10) {
		t.Fatalf("last_accessed did not advance: %q", global[FieldLastAccessed])
	}
	if global[FieldCount] != "2" {
		t.Fatalf("expected count 2, got %q", global[FieldCount])
	}
}

func TestRecordConcurrentNoLostUpdates(t *testing.T) {
	now := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	rec, store := newTestRecorder(testConfig(), now)
	ctx := context.Background()

	const goroutines = 40
	const perGoroutine = 5

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				rec.Record(ctx, Event{Method: "GET", Path: "/users/7", StatusCode: 200, ResponseTimeMs: Int64(10)})
			}
		}()
	}
	wg.Wait()

	keys := NewKeyBuilder("lens")
	global, _ := store.Record(ctx, keys.Global(EndpointKey{Method: "GET", Path: "/users/:id"}))

	want := strconv.Itoa(goroutines * perGoroutine)
	if global[FieldCount] != want {
		t.Fatalf("lost updates: count=%q want %s", global[FieldCount], want)
	}
	if global[FieldResponseCount] != want {
		t.Fatalf("lost response samples: %q want %s", global[FieldResponseCount], want)
	}
}

func TestRecordExclusionsAndMasterSwitch(t *testing.T) {
	now := time.Now()

	cfg := testConfig()
	cfg.ExcludePaths = []string{"/health", "/admin"}
	rec, store := newTestRecorder(cfg, now)
	ctx := context.Background()

	if out := rec.Record(ctx, Event{Method: "GET", Path: "/health", StatusCode: 200}); out != OutcomeExcluded {
		t.Fatalf("expected OutcomeExcluded, got %v", out)
	}
	if out := rec.Record(ctx, Event{Method: "GET", Path: "/admin/usage/stats", StatusCode: 200}); out != OutcomeExcluded {
		t.Fatalf("expected OutcomeExcluded for prefix match, got %v", out)
	}

	keys, _ := store.Keys(ctx, "lens:*")
	if len(keys) != 0 {
		t.Fatalf("excluded events must not write anything, found %v", keys)
	}

	disabled := testConfig()
	disabled.TrackingEnabled = false
	rec2, store2 := newTestRecorder(disabled, now)
	if out := rec2.Record(ctx, Event{Method: "GET", Path: "/users", StatusCode: 200}); out != OutcomeDisabled {
		t.Fatalf("expected OutcomeDisabled, got %v", out)
	}
	keys2, _ := store2.Keys(ctx, "lens:*")
	if len(keys2) != 0 {
		t.Fatalf("disabled tracker must not write anything, found %v", keys2)
	}
}

func TestRecordPerformanceCounters(t *testing.T) {
	now := time.Date(2026, time.August, 30, 10, 30, 0, 0, time.UTC)
	rec, store := newTestRecorder(testConfig(), now)
	ctx := context.Background()

	rec.Record(ctx, Event{
		Method:         "POST",
		Path:           "/orders",
		StatusCode:     500,
		ResponseTimeMs: Int64(2500),
		MemoryBytes:    Int64(1 << 20),
		CPUTicks:       Int64(300),
	})
	rec.Record(ctx, Event{
		Method:         "POST",
		Path:           "/orders",
		StatusCode:     201,
		ResponseTimeMs: Int64(80),
	})

	keys := NewKeyBuilder("lens")
	perf, _ := store.Record(ctx, keys.Performance(EndpointKey{Method: "POST", Path: "/orders"}))

	if perf[FieldTotalRequests] != "2" {
		t.Fatalf("expected total_requests 2, got %q", perf[FieldTotalRequests])
	}
	if perf[FieldSlowRequests] != "1" {
		t.Fatalf("expected slow_requests 1, got %q", perf[FieldSlowRequests])
	}
	if perf[FieldErrorRequests] != "1" {
		t.Fatalf("expected error_requests 1, got %q", perf[FieldErrorRequests])
	}
	if perf[FieldTotalMemory] != strconv.Itoa(1<<20) || perf[FieldMemoryCount] != "1" {
		t.Fatalf("unexpected memory accumulators: %v", perf)
	}
	if perf[FieldTotalCPU] != "300" || perf[FieldCPUCount] != "1" {
		t.Fatalf("unexpected cpu accumulators: %v", perf)
	}

	bucket := ThroughputField(MinuteBucket(now.UnixMilli()))
	if perf[bucket] != "2" {
		t.Fatalf("expected throughput bucket 2, got %q", perf[bucket])
	}
}

func TestRecordPrunesOldThroughputBuckets(t *testing.T) {
	start := time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC)
	rec, store := newTestRecorder(testConfig(), start)
	ctx := context.Background()

	ev := Event{Method: "GET", Path: "/orders", StatusCode: 200}
	rec.Record(ctx, ev)

	// Two hours later the first bucket is past the one-hour horizon.
	later := start.Add(2 * time.Hour)
	rec.SetClock(func() time.Time { return later })
	rec.Record(ctx, ev)

	keys := NewKeyBuilder("lens")
	perf, _ := store.Record(ctx, keys.Performance(EndpointKey{Method: "GET", Path: "/orders"}))

	oldBucket := ThroughputField(MinuteBucket(start.UnixMilli()))
	if _, ok := perf[oldBucket]; ok {
		t.Fatalf("expected old throughput bucket pruned, record: %v", perf)
	}
	newBucket := ThroughputField(MinuteBucket(later.UnixMilli()))
	if perf[newBucket] != "1" {
		t.Fatalf("expected fresh bucket count 1, got %q", perf[newBucket])
	}
	if perf[FieldTotalRequests] != "2" {
		t.Fatalf("pruning must not touch totals, got %q", perf[FieldTotalRequests])
	}
}

func TestRecordRawSample(t *testing.T) {
	now := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	rec, store := newTestRecorder(testConfig(), now)
	ctx := context.Background()

	rec.Record(ctx, Event{Method: "GET", Path: "/users/42", StatusCode: 404, ResponseTimeMs: Int64(75), UserAgent: "curl/8"})

	keys := NewKeyBuilder("lens")
	payloads, err := store.Samples(ctx, keys.Raw(EndpointKey{Method: "GET", Path: "/users/:id"}), 0)
	if err != nil {
		t.Fatalf("read samples: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(payloads))
	}

	var stored StoredEvent
	if err := json.Unmarshal(payloads[0], &stored); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if stored.Path != "/users/:id" || stored.Method != "GET" {
		t.Fatalf("sample should carry the normalized key, got %+v", stored)
	}
	if stored.Timestamp != now.UnixMilli() {
		t.Fatalf("timestamp must be assigned at ingestion, got %d", stored.Timestamp)
	}
	if stored.ResponseTimeMs == nil || *stored.ResponseTimeMs != 75 {
		t.Fatalf("unexpected response time: %+v", stored.ResponseTimeMs)
	}
}
