package registry

import (
	"context"
	"testing"
	"time"

	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/stats"
	"github.com/ngoyal88/lens/pkg/storage"
	"github.com/ngoyal88/lens/pkg/tracker"
)

func testSetup() (*Registry, *tracker.Recorder, *stats.Reader) {
	cfg := config.StaticStore(config.Config{
		KeyPrefix:       "lens",
		TrackingEnabled: true,
	})
	store := storage.NewMemoryStore()
	return New(store, cfg, nil),
		tracker.NewRecorder(store, cfg, nil, nil),
		stats.NewReader(store, cfg, nil)
}

func TestRegisterRouteIdempotent(t *testing.T) {
	reg, _, _ := testSetup()
	ctx := context.Background()

	first := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time { return first })
	if err := reg.RegisterRoute(ctx, "get", "/users/:id"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Re-registration a week later must not move discovered_at.
	reg.SetClock(func() time.Time { return first.Add(7 * 24 * time.Hour) })
	if err := reg.RegisterRoute(ctx, "GET", "/users/:id"); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	routes, err := reg.ListRoutes(ctx)
	if err != nil {
		t.Fatalf("list routes: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected one route, got %d", len(routes))
	}
	if routes[0].Method != "GET" || routes[0].Path != "/users/:id" {
		t.Fatalf("unexpected route: %+v", routes[0])
	}
	if !routes[0].DiscoveredAt.Equal(first) {
		t.Fatalf("discovered_at moved: want %v, got %v", first, routes[0].DiscoveredAt)
	}
}

func TestListRoutesSorted(t *testing.T) {
	reg, _, _ := testSetup()
	ctx := context.Background()

	reg.ImportRoutes(ctx, StaticSource{
		{Method: "POST", Path: "/orders"},
		{Method: "GET", Path: "/users"},
		{Method: "GET", Path: "/orders"},
	})

	routes, err := reg.ListRoutes(ctx)
	if err != nil {
		t.Fatalf("list routes: %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(routes))
	}
	want := []Route{
		{Method: "GET", Path: "/orders"},
		{Method: "GET", Path: "/users"},
		{Method: "POST", Path: "/orders"},
	}
	for i, w := range want {
		if routes[i].Method != w.Method || routes[i].Path != w.Path {
			t.Fatalf("position %d: want %+v, got %+v", i, w, routes[i])
		}
	}
}

func TestFindUnusedRoutes(t *testing.T) {
	reg, rec, reader := testSetup()
	ctx := context.Background()

	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time { return now })
	reader.SetClock(func() time.Time { return now })

	reg.ImportRoutes(ctx, StaticSource{
		{Method: "GET", Path: "/active"},
		{Method: "GET", Path: "/stale"},
		{Method: "GET", Path: "/never"},
	})

	rec.SetClock(func() time.Time { return now.Add(-time.Hour) })
	rec.Record(ctx, tracker.Event{Method: "GET", Path: "/active", StatusCode: 200})
	rec.SetClock(func() time.Time { return now.Add(-45 * 24 * time.Hour) })
	rec.Record(ctx, tracker.Event{Method: "GET", Path: "/stale", StatusCode: 200})

	unused, err := reg.FindUnusedRoutes(ctx, reader, 30)
	if err != nil {
		t.Fatalf("find unused: %v", err)
	}
	if len(unused) != 2 {
		t.Fatalf("expected 2 unused routes, got %+v", unused)
	}
	paths := map[string]bool{}
	for _, route := range unused {
		paths[route.Path] = true
	}
	if !paths["/stale"] || !paths["/never"] {
		t.Fatalf("expected /stale and /never, got %v", paths)
	}
}
