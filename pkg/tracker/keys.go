package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Retention horizons per aggregate family. Global records live forever;
// everything else expires from the store via TTL set at write time.
const (
	DailyTTL  = 90 * 24 * time.Hour
	RawTTL    = 30 * 24 * time.Hour
	PerfTTL   = 90 * 24 * time.Hour
	RoutesTTL = 365 * 24 * time.Hour
)

// RawSampleCap bounds the per-endpoint raw sample list so percentile reads
// stay cheap even for hot endpoints well inside the TTL horizon.
const RawSampleCap = 10000

// Hash field names, shared across processes writing to the same store.
const (
	FieldCount             = "count"
	FieldFirstAccessed     = "first_accessed"
	FieldLastAccessed      = "last_accessed"
	FieldTotalResponseTime = "total_response_time"
	FieldResponseCount     = "response_count"

	FieldTotalRequests = "total_requests"
	FieldSlowRequests  = "slow_requests"
	FieldErrorRequests = "error_requests"
	FieldTotalMemory   = "total_memory"
	FieldMemoryCount   = "memory_count"
	FieldTotalCPU      = "total_cpu"
	FieldCPUCount      = "cpu_count"

	FieldDiscoveredAt = "discovered_at"
	FieldMethod       = "method"
	FieldPath         = "path"

	statusFieldPrefix     = "status_"
	throughputFieldPrefix = "throughput_"
)

// StatusField names the counter for one status code, e.g. status_404.
func StatusField(code int) string {
	return statusFieldPrefix + strconv.Itoa(code)
}

// ParseStatusField recovers the status code from a status_{code} field name.
func ParseStatusField(field string) (int, bool) {
	if !strings.HasPrefix(field, statusFieldPrefix) {
		return 0, false
	}
	code, err := strconv.Atoi(field[len(statusFieldPrefix):])
	if err != nil {
		return 0, false
	}
	return code, true
}

// ThroughputField names the per-minute bucket counter for a minute boundary
// in epoch milliseconds.
func ThroughputField(minuteMs int64) string {
	return throughputFieldPrefix + strconv.FormatInt(minuteMs, 10)
}

// ParseThroughputField recovers the minute boundary from a throughput field.
func ParseThroughputField(field string) (int64, bool) {
	if !strings.HasPrefix(field, throughputFieldPrefix) {
		return 0, false
	}
	ms, err := strconv.ParseInt(field[len(throughputFieldPrefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// MinuteBucket floors a millisecond timestamp to its minute boundary.
func MinuteBucket(tsMs int64) int64 {
	return tsMs / 60000 * 60000
}

// KeyBuilder renders the shared key space. The layout is fixed because
// multiple processes may aggregate into one store:
//
//	{prefix}:global:{METHOD}:{path}
//	{prefix}:daily:{YYYY-MM-DD}:{METHOD}:{path}
//	{prefix}:raw:{METHOD}:{path}
//	{prefix}:performance:{METHOD}:{path}
//	{prefix}:routes:{METHOD}:{path}
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a builder for one key-space prefix.
func NewKeyBuilder(prefix string) KeyBuilder {
	return KeyBuilder{prefix: strings.TrimSuffix(prefix, ":")}
}

func (b KeyBuilder) Global(k EndpointKey) string {
	return fmt.Sprintf("%s:global:%s:%s", b.prefix, k.Method, k.Path)
}

func (b KeyBuilder) Daily(k EndpointKey, date string) string {
	return fmt.Sprintf("%s:daily:%s:%s:%s", b.prefix, date, k.Method, k.Path)
}

func (b KeyBuilder) Raw(k EndpointKey) string {
	return fmt.Sprintf("%s:raw:%s:%s", b.prefix, k.Method, k.Path)
}

func (b KeyBuilder) Performance(k EndpointKey) string {
	return fmt.Sprintf("%s:performance:%s:%s", b.prefix, k.Method, k.Path)
}

func (b KeyBuilder) Route(k EndpointKey) string {
	return fmt.Sprintf("%s:routes:%s:%s", b.prefix, k.Method, k.Path)
}

func (b KeyBuilder) GlobalPattern() string {
	return b.prefix + ":global:*"
}

func (b KeyBuilder) PerformancePattern() string {
	return b.prefix + ":performance:*"
}

func (b KeyBuilder) RoutePattern() string {
	return b.prefix + ":routes:*"
}

// ParseEndpointKey recovers the EndpointKey from a key produced by this
// builder for the given family ("global", "performance", "routes").
// The method never contains a colon, so the first colon after the family
// separates method from path even though normalized paths contain ':'.
func (b KeyBuilder) ParseEndpointKey(family, key string) (EndpointKey, bool) {
	head := b.prefix + ":" + family + ":"
	if !strings.HasPrefix(key, head) {
		return EndpointKey{}, false
	}
	rest := strings.SplitN(key[len(head):], ":", 2)
	if len(rest) != 2 || rest[0] == "" {
		return EndpointKey{}, false
	}
	return EndpointKey{Method: rest[0], Path: rest[1]}, true
}
