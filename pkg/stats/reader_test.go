package stats

import (
	"context"
	"testing"
	"time"

	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/storage"
	"github.com/ngoyal88/lens/pkg/tracker"
)

func testSetup() (*tracker.Recorder, *Reader, *storage.MemoryStore) {
	cfg := config.StaticStore(config.Config{
		KeyPrefix:       "lens",
		TrackingEnabled: true,
		Performance: config.PerformanceConfig{
			Enabled:         true,
			SlowThresholdMs: 1000,
		},
	})
	store := storage.NewMemoryStore()
	rec := tracker.NewRecorder(store, cfg, nil, nil)
	reader := NewReader(store, cfg, nil)
	return rec, reader, store
}

func at(rec *tracker.Recorder, ts time.Time) {
	rec.SetClock(func() time.Time { return ts })
}

func TestListStatsScenario(t *testing.T) {
	rec, reader, _ := testSetup()
	ctx := context.Background()

	now := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	at(rec, now)
	for _, rt := range []int64{100, 200, 300} {
		rec.Record(ctx, tracker.Event{Method: "GET", Path: "/users/1", StatusCode: 200, ResponseTimeMs: tracker.Int64(rt)})
	}

	list, err := reader.ListStats(ctx, Filter{})
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one endpoint, got %d", len(list))
	}

	st := list[0]
	if st.Method != "GET" || st.Path != "/users/:id" {
		t.Fatalf("unexpected endpoint identity: %+v", st)
	}
	if st.Count != 3 {
		t.Fatalf("expected count 3, got %d", st.Count)
	}
	if st.AverageResponseTime != 200 {
		t.Fatalf("expected average 200, got %v", st.AverageResponseTime)
	}
	if st.StatusCodes[200] != 3 {
		t.Fatalf("expected 3 status 200 hits, got %v", st.StatusCodes)
	}

	perf, err := reader.PerformanceStats(ctx, Filter{})
	if err != nil {
		t.Fatalf("performance stats: %v", err)
	}
	if len(perf) != 1 || perf[0].Performance == nil {
		t.Fatalf("expected one performance entry, got %+v", perf)
	}
	if perf[0].Performance.P50 != 200 {
		t.Fatalf("expected p50 200, got %v", perf[0].Performance.P50)
	}
}

func TestListStatsSortedByCount(t *testing.T) {
	rec, reader, _ := testSetup()
	ctx := context.Background()
	at(rec, time.Now())

	for i := 0; i < 2; i++ {
		rec.Record(ctx, tracker.Event{Method: "GET", Path: "/rare", StatusCode: 200})
	}
	for i := 0; i < 5; i++ {
		rec.Record(ctx, tracker.Event{Method: "GET", Path: "/busy", StatusCode: 200})
	}

	list, err := reader.ListStats(ctx, Filter{})
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two endpoints, got %d", len(list))
	}
	if list[0].Path != "/busy" || list[1].Path != "/rare" {
		t.Fatalf("expected descending count order, got %s then %s", list[0].Path, list[1].Path)
	}
}

func TestListStatsFilter(t *testing.T) {
	rec, reader, _ := testSetup()
	ctx := context.Background()
	at(rec, time.Now())

	rec.Record(ctx, tracker.Event{Method: "GET", Path: "/users/1", StatusCode: 200})
	rec.Record(ctx, tracker.Event{Method: "POST", Path: "/users", StatusCode: 201})

	byMethod, err := reader.ListStats(ctx, Filter{Method: "post"})
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(byMethod) != 1 || byMethod[0].Method != "POST" {
		t.Fatalf("method filter failed: %+v", byMethod)
	}

	byPath, err := reader.ListStats(ctx, Filter{Path: "/users/:id"})
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(byPath) != 1 || byPath[0].Path != "/users/:id" {
		t.Fatalf("path filter failed: %+v", byPath)
	}
}

func TestUnusedEndpointsThresholdBoundary(t *testing.T) {
	rec, reader, _ := testSetup()
	ctx := context.Background()

	lastUse := time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)
	at(rec, lastUse)
	rec.Record(ctx, tracker.Event{Method: "DELETE", Path: "/users/5/avatar", StatusCode: 204})

	// Exactly at the threshold instant: not unused.
	reader.SetClock(func() time.Time { return lastUse.Add(30 * 24 * time.Hour) })
	unused, err := reader.UnusedEndpoints(ctx, 30)
	if err != nil {
		t.Fatalf("unused endpoints: %v", err)
	}
	if len(unused) != 0 {
		t.Fatalf("endpoint at exact threshold must not be unused, got %+v", unused)
	}

	// 45 days later: unused at 30 days, not at 50.
	reader.SetClock(func() time.Time { return lastUse.Add(45 * 24 * time.Hour) })
	unused, err = reader.UnusedEndpoints(ctx, 30)
	if err != nil {
		t.Fatalf("unused endpoints: %v", err)
	}
	if len(unused) != 1 || unused[0].Path != "/users/:id/avatar" {
		t.Fatalf("expected stale endpoint reported, got %+v", unused)
	}

	unused, err = reader.UnusedEndpoints(ctx, 50)
	if err != nil {
		t.Fatalf("unused endpoints: %v", err)
	}
	if len(unused) != 0 {
		t.Fatalf("50-day threshold should exclude it, got %+v", unused)
	}
}

func TestSlowEndpointsAverageOrP95(t *testing.T) {
	rec, reader, _ := testSetup()
	ctx := context.Background()
	at(rec, time.Now())

	// Slow on average.
	for i := 0; i < 2; i++ {
		rec.Record(ctx, tracker.Event{Method: "GET", Path: "/reports", StatusCode: 200, ResponseTimeMs: tracker.Int64(3000)})
	}
	// Fast on average, slow at p95: nine quick requests and one outlier.
	for i := 0; i < 9; i++ {
		rec.Record(ctx, tracker.Event{Method: "GET", Path: "/search", StatusCode: 200, ResponseTimeMs: tracker.Int64(100)})
	}
	rec.Record(ctx, tracker.Event{Method: "GET", Path: "/search", StatusCode: 200, ResponseTimeMs: tracker.Int64(5000)})
	// Fast everywhere.
	for i := 0; i < 5; i++ {
		rec.Record(ctx, tracker.Event{Method: "GET", Path: "/ping", StatusCode: 200, ResponseTimeMs: tracker.Int64(50)})
	}

	slow, err := reader.SlowEndpoints(ctx, 2000)
	if err != nil {
		t.Fatalf("slow endpoints: %v", err)
	}
	if len(slow) != 2 {
		t.Fatalf("expected 2 slow endpoints, got %+v", slow)
	}
	paths := map[string]bool{}
	for _, st := range slow {
		paths[st.Path] = true
	}
	if !paths["/reports"] || !paths["/search"] {
		t.Fatalf("expected /reports and /search, got %v", paths)
	}
}

func TestErrorRate(t *testing.T) {
	rec, reader, _ := testSetup()
	ctx := context.Background()
	at(rec, time.Now())

	for i := 0; i < 18; i++ {
		rec.Record(ctx, tracker.Event{Method: "POST", Path: "/checkout", StatusCode: 200})
	}
	for i := 0; i < 2; i++ {
		rec.Record(ctx, tracker.Event{Method: "POST", Path: "/checkout", StatusCode: 502})
	}

	perf, err := reader.PerformanceStats(ctx, Filter{})
	if err != nil {
		t.Fatalf("performance stats: %v", err)
	}
	if len(perf) != 1 {
		t.Fatalf("expected one endpoint, got %d", len(perf))
	}
	if got := perf[0].Performance.ErrorRate; got != 0.10 {
		t.Fatalf("expected error rate 0.10, got %v", got)
	}
	if perf[0].Performance.ErrorRequests != 2 {
		t.Fatalf("expected 2 error requests, got %d", perf[0].Performance.ErrorRequests)
	}
}

func TestThroughputOverRetainedWindow(t *testing.T) {
	rec, reader, _ := testSetup()
	ctx := context.Background()

	base := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	at(rec, base)
	rec.Record(ctx, tracker.Event{Method: "GET", Path: "/feed", StatusCode: 200})
	rec.Record(ctx, tracker.Event{Method: "GET", Path: "/feed", StatusCode: 200})
	at(rec, base.Add(time.Minute))
	rec.Record(ctx, tracker.Event{Method: "GET", Path: "/feed", StatusCode: 200})

	perf, err := reader.PerformanceStats(ctx, Filter{})
	if err != nil {
		t.Fatalf("performance stats: %v", err)
	}

	// Three requests over a two-minute retained span.
	if got := perf[0].Performance.Throughput; got != 1.5 {
		t.Fatalf("expected 1.5 req/min, got %v", got)
	}
	if got := perf[0].Performance.PeakThroughput; got != 2 {
		t.Fatalf("expected peak 2, got %v", got)
	}
}
