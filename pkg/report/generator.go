package report

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ngoyal88/lens/pkg/registry"
	"github.com/ngoyal88/lens/pkg/stats"
)

// Generator builds usage reports from registry and stats state. Generate is
// a pure function of that state at call time: it reads, derives, and never
// writes anything back.
type Generator struct {
	registry *registry.Registry
	reader   *stats.Reader
	logger   *slog.Logger
	now      func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(reg *registry.Registry, reader *stats.Reader, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		registry: reg,
		reader:   reader,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the report clock.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate builds one report snapshot against the given thresholds.
func (g *Generator) Generate(ctx context.Context, cfg Config) (*UsageReport, error) {
	cfg = cfg.Defaults()
	now := g.now()

	routes, err := g.registry.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}

	all, err := g.reader.ListStats(ctx, stats.Filter{})
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]stats.EndpointStats, len(all))
	for _, st := range all {
		byKey[st.Method+" "+st.Path] = st
	}

	cutoff := now.Add(-time.Duration(cfg.DaysThreshold) * 24 * time.Hour)
	unused := make([]UnusedEndpoint, 0)
	for _, route := range routes {
		st, seen := byKey[route.Method+" "+route.Path]
		switch {
		case !seen:
			// Never observed: the sentinel marks "beyond threshold" without
			// pretending to know a real last-use date.
			unused = append(unused, UnusedEndpoint{
				Method:           route.Method,
				Path:             route.Path,
				DaysSinceLastUse: float64(cfg.DaysThreshold + 1),
			})
		case st.LastAccessed.Before(cutoff):
			days := now.Sub(st.LastAccessed).Hours() / 24
			unused = append(unused, UnusedEndpoint{
				Method:           route.Method,
				Path:             route.Path,
				DaysSinceLastUse: math.Round(days*10) / 10,
				TotalRequests:    st.Count,
			})
		}
	}

	slow, err := g.reader.SlowEndpoints(ctx, cfg.SlowThresholdMs)
	if err != nil {
		return nil, err
	}

	perf, err := g.reader.PerformanceStats(ctx, stats.Filter{})
	if err != nil {
		return nil, err
	}
	highError := make([]stats.EndpointStats, 0)
	for _, st := range perf {
		if st.Performance.ErrorRate > cfg.ErrorRateThreshold {
			highError = append(highError, st)
		}
	}

	pct := 0
	if len(routes) > 0 {
		pct = int(math.Round(float64(len(unused)) / float64(len(routes)) * 100))
	}

	rep := &UsageReport{
		GeneratedAt: now,
		Summary: Summary{
			TotalEndpoints:   len(routes),
			UnusedCount:      len(unused),
			UnusedPercentage: pct,
			SlowCount:        len(slow),
			HighErrorCount:   len(highError),
			DaysThreshold:    cfg.DaysThreshold,
		},
		UnusedEndpoints:        unused,
		TopUnusedEndpoints:     topUnused(unused, 10),
		SlowEndpoints:          capStats(slow, 10),
		HighErrorRateEndpoints: capStats(highError, 10),
	}
	rep.Recommendations = recommendations(rep)
	return rep, nil
}

func topUnused(unused []UnusedEndpoint, n int) []UnusedEndpoint {
	sorted := make([]UnusedEndpoint, len(unused))
	copy(sorted, unused)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DaysSinceLastUse > sorted[j].DaysSinceLastUse
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func capStats(list []stats.EndpointStats, n int) []stats.EndpointStats {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
