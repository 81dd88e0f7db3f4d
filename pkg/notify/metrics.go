package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_notifications_sent_total",
		Help: "Report notifications delivered, per channel",
	}, []string{"channel"})
	notificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lens_notifications_failed_total",
		Help: "Report notification failures, per channel",
	}, []string{"channel"})
	ticksSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lens_report_ticks_suppressed_total",
		Help: "Scheduler ticks skipped because the report had no unused endpoints",
	})
)
