package tracker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis_rate/v10"

	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/storage"
)

// Outcome reports what Record did with an event.
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeDisabled
	OutcomeExcluded
)

// rawSamplesPerMinute caps raw-sample appends per endpoint. Aggregate
// counters are never throttled; only the percentile sample list is.
const rawSamplesPerMinute = 600

// Recorder ingests usage events and fans each one out to the global, daily
// and performance aggregate families plus the raw sample list. Every
// per-record update is submitted as one atomic batch, so concurrent writers
// across processes never lose increments or observe half-updated records.
//
// Store failures are logged and counted, never returned: instrumentation
// must not be able to break the instrumented request.
type Recorder struct {
	store   storage.Store
	cfg     *config.Store
	sampler *redis_rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder. sampler may be nil, in which case raw
// samples are not throttled (the list cap still bounds them).
func NewRecorder(store storage.Store, cfg *config.Store, sampler *redis_rate.Limiter, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		cfg:     cfg,
		sampler: sampler,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the ingestion clock. Tests use this to pin timestamps.
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// Record ingests one event. Timestamps are assigned here, never by the
// caller. Excluded or disabled events are a silent no-op, not an error.
func (r *Recorder) Record(ctx context.Context, ev Event) Outcome {
	cfg := r.cfg.Get()
	if cfg == nil || !cfg.TrackingEnabled {
		eventsExcluded.Inc()
		return OutcomeDisabled
	}

	key := NormalizeEndpoint(ev.Method, ev.Path, cfg.IncludeQueryParams)
	for _, prefix := range cfg.ExcludePaths {
		if strings.HasPrefix(key.Path, prefix) {
			eventsExcluded.Inc()
			return OutcomeExcluded
		}
	}

	now := r.now()
	ts := now.UnixMilli()
	keys := NewKeyBuilder(cfg.KeyPrefix)

	r.pushRawSample(ctx, keys, key, ev, ts)

	global := r.aggregateBatch(ev, ts)
	if err := r.store.Apply(ctx, keys.Global(key), global); err != nil {
		r.fail("global aggregate", key, err)
	}

	daily := r.aggregateBatch(ev, ts).Expire(DailyTTL)
	date := now.UTC().Format("2006-01-02")
	if err := r.store.Apply(ctx, keys.Daily(key, date), daily); err != nil {
		r.fail("daily aggregate", key, err)
	}

	if cfg.Performance.Enabled {
		r.recordPerformance(ctx, keys, key, ev, ts, cfg.Performance)
	}

	eventsRecorded.Inc()
	return OutcomeRecorded
}

func (r *Recorder) pushRawSample(ctx context.Context, keys KeyBuilder, key EndpointKey, ev Event, ts int64) {
	if r.sampler != nil {
		res, err := r.sampler.Allow(ctx, "lens:sampler:"+key.String(), redis_rate.PerMinute(rawSamplesPerMinute))
		if err == nil && res.Allowed == 0 {
			samplesThrottled.Inc()
			return
		}
		// Limiter errors fall through to the append; the throttle is an
		// optimization, not a correctness requirement.
	}

	stored := StoredEvent{
		Method:         key.Method,
		Path:           key.Path,
		Timestamp:      ts,
		StatusCode:     ev.StatusCode,
		ResponseTimeMs: ev.ResponseTimeMs,
		UserAgent:      ev.UserAgent,
		ClientIP:       ev.ClientIP,
		MemoryBytes:    ev.MemoryBytes,
		CPUTicks:       ev.CPUTicks,
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		r.fail("marshal raw sample", key, err)
		return
	}
	if err := r.store.PushSample(ctx, keys.Raw(key), payload, RawSampleCap, RawTTL); err != nil {
		r.fail("raw sample", key, err)
	}
}

// aggregateBatch builds the common counter update shared by the global and
// daily families: count, per-status counter, set-once first access, latest
// access, and response time accumulators when a measurement is present.
func (r *Recorder) aggregateBatch(ev Event, ts int64) *storage.Batch {
	tsStr := strconv.FormatInt(ts, 10)
	b := storage.NewBatch().
		Incr(FieldCount, 1).
		Incr(StatusField(ev.StatusCode), 1).
		SetOnce(FieldFirstAccessed, tsStr).
		Set(FieldLastAccessed, tsStr)

	if ev.ResponseTimeMs != nil {
		b.Incr(FieldTotalResponseTime, *ev.ResponseTimeMs).
			Incr(FieldResponseCount, 1)
	}
	return b
}

func (r *Recorder) recordPerformance(ctx context.Context, keys KeyBuilder, key EndpointKey, ev Event, ts int64, perf config.PerformanceConfig) {
	tsStr := strconv.FormatInt(ts, 10)
	b := storage.NewBatch().
		Incr(FieldTotalRequests, 1).
		SetOnce(FieldFirstAccessed, tsStr).
		Set(FieldLastAccessed, tsStr).
		Incr(ThroughputField(MinuteBucket(ts)), 1).
		Expire(PerfTTL)

	if ev.ResponseTimeMs != nil {
		b.Incr(FieldTotalResponseTime, *ev.ResponseTimeMs).
			Incr(FieldResponseCount, 1)
		if *ev.ResponseTimeMs > perf.SlowThresholdMs {
			b.Incr(FieldSlowRequests, 1)
		}
	}
	if ev.StatusCode >= 400 {
		b.Incr(FieldErrorRequests, 1)
	}
	if perf.MemoryTracking && ev.MemoryBytes != nil {
		b.Incr(FieldTotalMemory, *ev.MemoryBytes).
			Incr(FieldMemoryCount, 1)
	}
	if perf.CPUTracking && ev.CPUTicks != nil {
		b.Incr(FieldTotalCPU, *ev.CPUTicks).
			Incr(FieldCPUCount, 1)
	}

	perfKey := keys.Performance(key)
	r.pruneThroughput(ctx, perfKey, ts, b)

	if err := r.store.Apply(ctx, perfKey, b); err != nil {
		r.fail("performance aggregate", key, err)
	}
}

// pruneThroughput folds deletion of throughput buckets older than one hour
// into the pending batch. Best-effort: if the field scan fails, stale buckets
// simply age out on a later write.
func (r *Recorder) pruneThroughput(ctx context.Context, perfKey string, ts int64, b *storage.Batch) {
	fields, err := r.store.Fields(ctx, perfKey, throughputFieldPrefix+"*")
	if err != nil {
		return
	}

	cutoff := ts - 3600000
	for _, f := range fields {
		bucket, ok := ParseThroughputField(f)
		if ok && bucket < cutoff {
			b.DeleteFields(f)
		}
	}
}

func (r *Recorder) fail(op string, key EndpointKey, err error) {
	storeErrors.Inc()
	r.logger.Error("usage recorder write failed", "op", op, "endpoint", key.String(), "error", err)
}
