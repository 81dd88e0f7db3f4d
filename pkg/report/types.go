package report

import (
	"time"

	"github.com/ngoyal88/lens/pkg/stats"
)

// Config holds the thresholds a single report run is generated against.
type Config struct {
	DaysThreshold      int
	SlowThresholdMs    float64
	ErrorRateThreshold float64
}

// Defaults fills unset thresholds.
func (c Config) Defaults() Config {
	if c.DaysThreshold == 0 {
		c.DaysThreshold = 30
	}
	if c.SlowThresholdMs == 0 {
		c.SlowThresholdMs = 2000
	}
	if c.ErrorRateThreshold == 0 {
		c.ErrorRateThreshold = 0.05
	}
	return c
}

// UnusedEndpoint is one stale or never-used route in a report.
type UnusedEndpoint struct {
	Method           string  `json:"method"`
	Path             string  `json:"path"`
	DaysSinceLastUse float64 `json:"days_since_last_use"`
	TotalRequests    int64   `json:"total_requests"`
}

// Summary condenses a report into headline numbers.
type Summary struct {
	TotalEndpoints   int `json:"total_endpoints"`
	UnusedCount      int `json:"unused_count"`
	UnusedPercentage int `json:"unused_percentage"`
	SlowCount        int `json:"slow_count"`
	HighErrorCount   int `json:"high_error_count"`
	DaysThreshold    int `json:"days_threshold"`
}

// UsageReport is one generated snapshot. It is immutable once built and has
// no identity beyond its generation timestamp.
type UsageReport struct {
	GeneratedAt            time.Time             `json:"generated_at"`
	Summary                Summary               `json:"summary"`
	UnusedEndpoints        []UnusedEndpoint      `json:"unused_endpoints"`
	TopUnusedEndpoints     []UnusedEndpoint      `json:"top_unused_endpoints"`
	SlowEndpoints          []stats.EndpointStats `json:"slow_endpoints"`
	HighErrorRateEndpoints []stats.EndpointStats `json:"high_error_rate_endpoints"`
	Recommendations        []string              `json:"recommendations"`
}
