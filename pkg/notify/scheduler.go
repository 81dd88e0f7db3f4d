package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ngoyal88/lens/pkg/report"
)

// GenerateFunc produces a fresh report for one scheduler tick.
type GenerateFunc func(ctx context.Context) (*report.UsageReport, error)

// Scheduler runs the report-generation-and-dispatch cycle on an interval.
// Starting fires an immediate tick before the interval begins. Ticks are
// single-flight: a tick that finds the previous one still running is
// skipped. Generation failures are logged and never cancel the schedule,
// and a report with no unused endpoints is deliberately not delivered.
type Scheduler struct {
	interval   time.Duration
	generate   GenerateFunc
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	stop     chan struct{}
	wg       sync.WaitGroup
	inflight atomic.Bool
}

// NewScheduler creates a stopped scheduler. intervalHours below one second
// of resolution falls back to 24 hours.
func NewScheduler(intervalHours float64, generate GenerateFunc, dispatcher *Dispatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	interval := time.Duration(intervalHours * float64(time.Hour))
	if interval < time.Second {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		interval:   interval,
		generate:   generate,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start begins the schedule, firing one tick immediately. Calling Start on a
// running scheduler is a no-op; a stopped scheduler can be started again.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	stop := make(chan struct{})
	s.stop = stop
	s.wg.Add(1)
	go s.run(stop)
}

func (s *Scheduler) run(stop chan struct{}) {
	defer s.wg.Done()

	s.tick()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-stop:
			return
		}
	}
}

// Stop cancels the schedule and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()

	s.wg.Wait()
}

// Tick runs one generation-and-dispatch cycle. Exposed so callers can force
// an out-of-schedule report.
func (s *Scheduler) Tick() {
	s.tick()
}

func (s *Scheduler) tick() {
	if !s.inflight.CompareAndSwap(false, true) {
		s.logger.Warn("report tick skipped, previous tick still in flight")
		return
	}
	defer s.inflight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rep, err := s.generate(ctx)
	if err != nil {
		s.logger.Error("report generation failed", "error", err)
		return
	}

	if len(rep.UnusedEndpoints) == 0 {
		// Routine reports are suppressed: only reports that surface unused
		// endpoints are worth a notification.
		ticksSuppressed.Inc()
		s.logger.Info("report suppressed, no unused endpoints")
		return
	}

	s.dispatcher.Dispatch(ctx, rep)
}
