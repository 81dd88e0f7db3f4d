package middleware

import (
	"context"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/tracker"
)

// usageResponseWrapper captures the status code written by the handler.
type usageResponseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *usageResponseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *usageResponseWrapper) Write(b []byte) (int, error) {
	// If no status code was set, the first write implies 200 OK.
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// UsageTracking instruments every request and hands the observation to the
// Recorder on a detached goroutine, so aggregation latency or store outages
// never delay the response path.
//
// CPU ticks are left unset: callers with a platform source for per-request
// CPU accounting can record events through the Recorder directly.
func UsageTracking(rec *tracker.Recorder, cfg *config.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := &usageResponseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			ev := tracker.Event{
				Method:         r.Method,
				Path:           r.URL.RequestURI(),
				StatusCode:     wrapper.statusCode,
				ResponseTimeMs: tracker.Int64(time.Since(start).Milliseconds()),
				UserAgent:      r.UserAgent(),
				ClientIP:       clientIP(r),
			}

			if c := cfg.Get(); c != nil && c.Performance.Enabled && c.Performance.MemoryTracking {
				var mem runtime.MemStats
				runtime.ReadMemStats(&mem)
				ev.MemoryBytes = tracker.Int64(int64(mem.HeapAlloc))
			}

			go func(ev tracker.Event) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				rec.Record(ctx, ev)
			}(ev)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
