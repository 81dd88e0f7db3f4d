package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ngoyal88/lens/pkg/report"
)

// Channel delivers one report to one destination. Implementations must be
// safe for concurrent use; delivery may block on network I/O.
type Channel interface {
	Name() string
	Send(ctx context.Context, rep *report.UsageReport) error
}

// DeliveryResult is the isolated outcome of one channel's delivery attempt.
type DeliveryResult struct {
	Channel string
	Err     error
}

// Dispatcher fans a report out to every configured channel concurrently.
// Each channel's failure is isolated: it is logged, counted, and returned in
// its own result, and never prevents delivery to the other channels.
//
// A circuit breaker per channel stops the dispatcher from hammering a
// destination that has failed on consecutive ticks; while the breaker is
// open the channel reports a failure without a network attempt.
type Dispatcher struct {
	channels []Channel
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *slog.Logger
	timeout  time.Duration
}

// NewDispatcher creates a Dispatcher over the given channels.
func NewDispatcher(logger *slog.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker, len(channels))
	for _, ch := range channels {
		breakers[ch.Name()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "notify-" + ch.Name(),
			Timeout: 10 * time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		})
	}

	return &Dispatcher{
		channels: channels,
		breakers: breakers,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Channels returns how many channels are configured.
func (d *Dispatcher) Channels() int {
	return len(d.channels)
}

// Dispatch delivers the report to all channels and waits for every outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, rep *report.UsageReport) []DeliveryResult {
	results := make([]DeliveryResult, len(d.channels))

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			_, err := d.breakers[ch.Name()].Execute(func() (interface{}, error) {
				return nil, ch.Send(cctx, rep)
			})

			results[i] = DeliveryResult{Channel: ch.Name(), Err: err}
			if err != nil {
				notificationsFailed.WithLabelValues(ch.Name()).Inc()
				d.logger.Error("notification delivery failed", "channel", ch.Name(), "error", err)
			} else {
				notificationsSent.WithLabelValues(ch.Name()).Inc()
			}
		}(i, ch)
	}
	wg.Wait()

	return results
}
