package registry

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/stats"
	"github.com/ngoyal88/lens/pkg/storage"
	"github.com/ngoyal88/lens/pkg/tracker"
)

// Route is one (method, path) pair yielded by a RouteSource.
type Route struct {
	Method string
	Path   string
}

// RouteSource yields the routes an application exposes. Framework adapters
// implement this so the registry never inspects framework internals.
type RouteSource interface {
	Routes() []Route
}

// StaticSource is a RouteSource over a fixed route list.
type StaticSource []Route

func (s StaticSource) Routes() []Route {
	return s
}

// RouteRecord marks one known endpoint and the moment it was first seen.
// discovered_at is set-once: re-registration never rewrites it.
type RouteRecord struct {
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Registry tracks which endpoints are known to exist, independent of whether
// they have ever been exercised.
type Registry struct {
	store  storage.Store
	cfg    *config.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Registry.
func New(store storage.Store, cfg *config.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the discovery clock.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

func (r *Registry) keys() (tracker.KeyBuilder, bool) {
	cfg := r.cfg.Get()
	if cfg == nil {
		return tracker.KeyBuilder{}, false
	}
	return tracker.NewKeyBuilder(cfg.KeyPrefix), cfg.IncludeQueryParams
}

// RegisterRoute records an endpoint as known. Registration is idempotent:
// discovered_at is written set-once, so calling this again for an existing
// route only refreshes the record's TTL.
func (r *Registry) RegisterRoute(ctx context.Context, method, path string) error {
	keys, includeQuery := r.keys()
	key := tracker.NormalizeEndpoint(method, path, includeQuery)

	batch := storage.NewBatch().
		SetOnce(tracker.FieldDiscoveredAt, strconv.FormatInt(r.now().UnixMilli(), 10)).
		Set(tracker.FieldMethod, key.Method).
		Set(tracker.FieldPath, key.Path).
		Expire(tracker.RoutesTTL)

	return r.store.Apply(ctx, keys.Route(key), batch)
}

// ImportRoutes registers every route a source yields. Individual failures
// are logged and skipped so one bad route cannot block discovery.
func (r *Registry) ImportRoutes(ctx context.Context, src RouteSource) {
	for _, route := range src.Routes() {
		if err := r.RegisterRoute(ctx, route.Method, route.Path); err != nil {
			r.logger.Error("route registration failed",
				"method", route.Method, "path", route.Path, "error", err)
		}
	}
}

// ListRoutes returns all known routes, sorted by method then path.
func (r *Registry) ListRoutes(ctx context.Context) ([]RouteRecord, error) {
	keys, _ := r.keys()
	found, err := r.store.Keys(ctx, keys.RoutePattern())
	if err != nil {
		return nil, err
	}

	routes := make([]RouteRecord, 0, len(found))
	for _, storeKey := range found {
		ep, ok := keys.ParseEndpointKey("routes", storeKey)
		if !ok {
			continue
		}
		fields, err := r.store.Record(ctx, storeKey)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}

		rec := RouteRecord{Method: ep.Method, Path: ep.Path}
		if ms, err := strconv.ParseInt(fields[tracker.FieldDiscoveredAt], 10, 64); err == nil && ms > 0 {
			rec.DiscoveredAt = time.UnixMilli(ms)
		}
		routes = append(routes, rec)
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Method != routes[j].Method {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes, nil
}

// FindUnusedRoutes returns routes with no usage stats at all, or whose stats
// show a last access strictly before the threshold. Routes with zero traffic
// and routes that have gone stale are treated identically.
func (r *Registry) FindUnusedRoutes(ctx context.Context, reader *stats.Reader, daysThreshold int) ([]RouteRecord, error) {
	routes, err := r.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}

	all, err := reader.ListStats(ctx, stats.Filter{})
	if err != nil {
		return nil, err
	}
	lastAccess := make(map[string]time.Time, len(all))
	for _, st := range all {
		lastAccess[st.Method+" "+st.Path] = st.LastAccessed
	}

	cutoff := r.now().Add(-time.Duration(daysThreshold) * 24 * time.Hour)
	unused := make([]RouteRecord, 0)
	for _, route := range routes {
		last, seen := lastAccess[route.Method+" "+route.Path]
		if !seen || last.Before(cutoff) {
			unused = append(unused, route)
		}
	}
	return unused, nil
}
