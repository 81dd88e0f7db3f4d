package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_events_recorded_total",
		Help: "Usage events aggregated into the store",
	})
	eventsExcluded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_events_excluded_total",
		Help: "Usage events skipped by exclusion rules or the master switch",
	})
	storeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_store_errors_total",
		Help: "Write-path store failures swallowed by the recorder",
	})
	samplesThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_raw_samples_throttled_total",
		Help: "Raw event samples dropped by the per-endpoint sampling limiter",
	})
)
