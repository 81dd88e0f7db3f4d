package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/storage"
	"github.com/ngoyal88/lens/pkg/tracker"
)

// Reader reconstructs endpoint statistics from stored aggregates. Reads are
// eventually consistent across endpoints: a multi-key query may observe
// different endpoints at slightly different points in time.
type Reader struct {
	store  storage.Store
	cfg    *config.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewReader creates a Reader.
func NewReader(store storage.Store, cfg *config.Store, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the clock used for window and threshold math.
func (r *Reader) SetClock(now func() time.Time) {
	r.now = now
}

func (r *Reader) keys() tracker.KeyBuilder {
	prefix := "lens"
	if cfg := r.cfg.Get(); cfg != nil {
		prefix = cfg.KeyPrefix
	}
	return tracker.NewKeyBuilder(prefix)
}

func (f Filter) matches(key tracker.EndpointKey) bool {
	if f.Method != "" && !strings.EqualFold(f.Method, key.Method) {
		return false
	}
	if f.Path != "" && f.Path != key.Path {
		return false
	}
	return true
}

// ListStats returns per-endpoint lifetime statistics, sorted by descending
// request count. Downstream top-N slicing relies on this ordering.
func (r *Reader) ListStats(ctx context.Context, filter Filter) ([]EndpointStats, error) {
	keys := r.keys()
	found, err := r.store.Keys(ctx, keys.GlobalPattern())
	if err != nil {
		return nil, err
	}

	out := make([]EndpointStats, 0, len(found))
	for _, storeKey := range found {
		ep, ok := keys.ParseEndpointKey("global", storeKey)
		if !ok || !filter.matches(ep) {
			continue
		}
		fields, err := r.store.Record(ctx, storeKey)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, buildStats(ep, fields))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// PerformanceStats returns per-endpoint statistics enriched with percentile,
// error-rate and throughput data, sorted by descending p95 response time.
func (r *Reader) PerformanceStats(ctx context.Context, filter Filter) ([]EndpointStats, error) {
	keys := r.keys()
	found, err := r.store.Keys(ctx, keys.PerformancePattern())
	if err != nil {
		return nil, err
	}

	out := make([]EndpointStats, 0, len(found))
	for _, storeKey := range found {
		ep, ok := keys.ParseEndpointKey("performance", storeKey)
		if !ok || !filter.matches(ep) {
			continue
		}
		fields, err := r.store.Record(ctx, storeKey)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}

		st := buildPerformanceStats(ep, fields)
		st.Performance.P50, st.Performance.P95, st.Performance.P99 = r.percentiles(ctx, keys, ep)
		out = append(out, st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Performance.P95 > out[j].Performance.P95
	})
	return out, nil
}

// percentiles computes p50/p95/p99 from the retained raw samples for one
// endpoint. Missing or unreadable samples yield zeros, not an error: the
// sample list is advisory, never authoritative.
func (r *Reader) percentiles(ctx context.Context, keys tracker.KeyBuilder, ep tracker.EndpointKey) (p50, p95, p99 float64) {
	payloads, err := r.store.Samples(ctx, keys.Raw(ep), 0)
	if err != nil {
		r.logger.Warn("raw sample read failed", "endpoint", ep.String(), "error", err)
		return 0, 0, 0
	}

	times := make([]float64, 0, len(payloads))
	for _, payload := range payloads {
		var ev tracker.StoredEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		if ev.ResponseTimeMs != nil {
			times = append(times, float64(*ev.ResponseTimeMs))
		}
	}

	sort.Float64s(times)
	return Percentile(times, 50), Percentile(times, 95), Percentile(times, 99)
}

// UnusedEndpoints returns stats for endpoints whose last access is strictly
// before now minus daysThreshold days. An endpoint last accessed exactly at
// the threshold instant is not unused.
func (r *Reader) UnusedEndpoints(ctx context.Context, daysThreshold int) ([]EndpointStats, error) {
	all, err := r.ListStats(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	cutoff := r.now().Add(-time.Duration(daysThreshold) * 24 * time.Hour)
	unused := make([]EndpointStats, 0)
	for _, st := range all {
		if st.LastAccessed.Before(cutoff) {
			unused = append(unused, st)
		}
	}
	return unused, nil
}

// SlowEndpoints returns performance stats where the average response time or
// the p95 exceeds the threshold (either is sufficient).
func (r *Reader) SlowEndpoints(ctx context.Context, thresholdMs float64) ([]EndpointStats, error) {
	all, err := r.PerformanceStats(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	slow := make([]EndpointStats, 0)
	for _, st := range all {
		if st.AverageResponseTime > thresholdMs || st.Performance.P95 > thresholdMs {
			slow = append(slow, st)
		}
	}
	return slow, nil
}

func buildStats(ep tracker.EndpointKey, fields map[string]string) EndpointStats {
	st := EndpointStats{
		Method:            ep.Method,
		Path:              ep.Path,
		Count:             fieldInt(fields, tracker.FieldCount),
		TotalResponseTime: fieldInt(fields, tracker.FieldTotalResponseTime),
		ResponseSamples:   fieldInt(fields, tracker.FieldResponseCount),
		FirstAccessed:     fieldTime(fields, tracker.FieldFirstAccessed),
		LastAccessed:      fieldTime(fields, tracker.FieldLastAccessed),
	}

	for field, value := range fields {
		if code, ok := tracker.ParseStatusField(field); ok {
			if st.StatusCodes == nil {
				st.StatusCodes = make(map[int]int64)
			}
			st.StatusCodes[code], _ = strconv.ParseInt(value, 10, 64)
		}
	}

	if st.ResponseSamples > 0 {
		st.AverageResponseTime = float64(st.TotalResponseTime) / float64(st.ResponseSamples)
	}
	return st
}

func buildPerformanceStats(ep tracker.EndpointKey, fields map[string]string) EndpointStats {
	st := EndpointStats{
		Method:            ep.Method,
		Path:              ep.Path,
		Count:             fieldInt(fields, tracker.FieldTotalRequests),
		TotalResponseTime: fieldInt(fields, tracker.FieldTotalResponseTime),
		ResponseSamples:   fieldInt(fields, tracker.FieldResponseCount),
		FirstAccessed:     fieldTime(fields, tracker.FieldFirstAccessed),
		LastAccessed:      fieldTime(fields, tracker.FieldLastAccessed),
	}
	if st.ResponseSamples > 0 {
		st.AverageResponseTime = float64(st.TotalResponseTime) / float64(st.ResponseSamples)
	}

	perf := &PerformanceMetrics{
		SlowRequests:  fieldInt(fields, tracker.FieldSlowRequests),
		ErrorRequests: fieldInt(fields, tracker.FieldErrorRequests),
	}
	if st.Count > 0 {
		perf.ErrorRate = float64(perf.ErrorRequests) / float64(st.Count)
	}
	perf.Throughput, perf.PeakThroughput = throughput(fields)

	if n := fieldInt(fields, tracker.FieldMemoryCount); n > 0 {
		perf.AvgMemoryBytes = float64(fieldInt(fields, tracker.FieldTotalMemory)) / float64(n)
	}
	if n := fieldInt(fields, tracker.FieldCPUCount); n > 0 {
		perf.AvgCPUTicks = float64(fieldInt(fields, tracker.FieldTotalCPU)) / float64(n)
	}

	st.Performance = perf
	return st
}

// throughput derives requests-per-minute from the retained minute buckets.
// The rate is averaged over the span the buckets actually cover, so it stays
// honest right after startup when less than an hour of data exists. The peak
// is the busiest single retained minute.
func throughput(fields map[string]string) (rpm, peak float64) {
	var (
		total   int64
		oldest  int64
		newest  int64
		haveAny bool
	)
	for field, value := range fields {
		bucket, ok := tracker.ParseThroughputField(field)
		if !ok {
			continue
		}
		n, _ := strconv.ParseInt(value, 10, 64)
		total += n
		if float64(n) > peak {
			peak = float64(n)
		}
		if !haveAny || bucket < oldest {
			oldest = bucket
		}
		if !haveAny || bucket > newest {
			newest = bucket
		}
		haveAny = true
	}
	if !haveAny {
		return 0, 0
	}

	minutes := (newest-oldest)/60000 + 1
	return float64(total) / float64(minutes), peak
}

func fieldInt(fields map[string]string, name string) int64 {
	v, _ := strconv.ParseInt(fields[name], 10, 64)
	return v
}

func fieldTime(fields map[string]string, name string) time.Time {
	ms, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
