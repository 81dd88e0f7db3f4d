package stats

import (
	"context"
	"time"
)

// Dashboard builds the aggregate view over the last windowDays of traffic:
// totals, most/least used endpoints, unused and slow endpoints, and a
// fleet-wide performance summary.
func (r *Reader) Dashboard(ctx context.Context, windowDays int) (*DashboardData, error) {
	all, err := r.ListStats(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	now := r.now()
	windowStart := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	// ListStats is already sorted by descending count.
	windowed := make([]EndpointStats, 0, len(all))
	var totalRequests int64
	for _, st := range all {
		if st.LastAccessed.Before(windowStart) {
			continue
		}
		windowed = append(windowed, st)
		totalRequests += st.Count
	}

	data := &DashboardData{
		WindowDays:     windowDays,
		GeneratedAt:    now,
		TotalRequests:  totalRequests,
		TotalEndpoints: len(windowed),
		MostUsed:       topN(windowed, 10),
		LeastUsed:      bottomN(windowed, 10),
	}

	unused, err := r.UnusedEndpoints(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	data.UnusedEndpoints = unused

	slowThreshold := float64(2000)
	if cfg := r.cfg.Get(); cfg != nil && cfg.Performance.SlowThresholdMs > 0 {
		slowThreshold = float64(cfg.Performance.SlowThresholdMs)
	}
	slow, err := r.SlowEndpoints(ctx, slowThreshold)
	if err != nil {
		return nil, err
	}
	data.SlowEndpoints = slow

	data.Performance = r.summarize(ctx)
	return data, nil
}

// summarize folds per-endpoint performance stats into fleet numbers, with
// response time and error rate weighted by request count.
func (r *Reader) summarize(ctx context.Context) PerformanceSummary {
	var sum PerformanceSummary

	perf, err := r.PerformanceStats(ctx, Filter{})
	if err != nil {
		r.logger.Warn("performance summary unavailable", "error", err)
		return sum
	}

	var (
		weightedTime float64
		weightedErr  float64
		totalWeight  float64
	)
	for _, st := range perf {
		weight := float64(st.Count)
		weightedTime += st.AverageResponseTime * weight
		weightedErr += st.Performance.ErrorRate * weight
		totalWeight += weight
		sum.TotalSlowRequests += st.Performance.SlowRequests
		if st.Performance.PeakThroughput > sum.PeakThroughput {
			sum.PeakThroughput = st.Performance.PeakThroughput
		}
	}
	if totalWeight > 0 {
		sum.AvgResponseTime = weightedTime / totalWeight
		sum.AvgErrorRate = weightedErr / totalWeight
	}
	return sum
}

func topN(stats []EndpointStats, n int) []EndpointStats {
	if len(stats) < n {
		n = len(stats)
	}
	out := make([]EndpointStats, n)
	copy(out, stats[:n])
	return out
}

// bottomN returns the n least-used endpoints, least used first.
func bottomN(stats []EndpointStats, n int) []EndpointStats {
	if len(stats) < n {
		n = len(stats)
	}
	out := make([]EndpointStats, 0, n)
	for i := len(stats) - 1; i >= len(stats)-n; i-- {
		out = append(out, stats[i])
	}
	return out
}
