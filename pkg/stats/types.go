package stats

import "time"

// EndpointStats is the read model for one endpoint, reconstructed from a
// stored aggregate record. It is derived at query time and never stored.
type EndpointStats struct {
	Method              string              `json:"method"`
	Path                string              `json:"path"`
	Count               int64               `json:"count"`
	FirstAccessed       time.Time           `json:"first_accessed"`
	LastAccessed        time.Time           `json:"last_accessed"`
	StatusCodes         map[int]int64       `json:"status_codes,omitempty"`
	TotalResponseTime   int64               `json:"total_response_time"`
	ResponseSamples     int64               `json:"response_samples"`
	AverageResponseTime float64             `json:"average_response_time"`
	Performance         *PerformanceMetrics `json:"performance,omitempty"`
}

// PerformanceMetrics extends EndpointStats when performance tracking data is
// requested. Percentiles come from the raw sample list; everything else from
// the performance aggregate record.
type PerformanceMetrics struct {
	P50            float64 `json:"p50"`
	P95            float64 `json:"p95"`
	P99            float64 `json:"p99"`
	SlowRequests   int64   `json:"slow_requests"`
	ErrorRequests  int64   `json:"error_requests"`
	ErrorRate      float64 `json:"error_rate"`
	Throughput     float64 `json:"throughput"`      // requests/minute over the retained window
	PeakThroughput float64 `json:"peak_throughput"` // busiest retained minute
	AvgMemoryBytes float64 `json:"avg_memory_bytes"`
	AvgCPUTicks    float64 `json:"avg_cpu_ticks"`
}

// Filter restricts stats queries to one method and/or normalized path.
// Empty fields match everything.
type Filter struct {
	Method string
	Path   string
}

// DashboardData is the aggregate view over a recent window.
type DashboardData struct {
	WindowDays      int                `json:"window_days"`
	GeneratedAt     time.Time          `json:"generated_at"`
	TotalRequests   int64              `json:"total_requests"`
	TotalEndpoints  int                `json:"total_endpoints"`
	MostUsed        []EndpointStats    `json:"most_used"`
	LeastUsed       []EndpointStats    `json:"least_used"`
	UnusedEndpoints []EndpointStats    `json:"unused_endpoints"`
	SlowEndpoints   []EndpointStats    `json:"slow_endpoints"`
	Performance     PerformanceSummary `json:"performance"`
}

// PerformanceSummary condenses per-endpoint performance into fleet numbers.
// Averages are weighted by request count.
type PerformanceSummary struct {
	AvgResponseTime   float64 `json:"avg_response_time"`
	TotalSlowRequests int64   `json:"total_slow_requests"`
	AvgErrorRate      float64 `json:"avg_error_rate"`
	PeakThroughput    float64 `json:"peak_throughput"`
}
