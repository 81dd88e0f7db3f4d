package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ngoyal88/lens/pkg/api"
	"github.com/ngoyal88/lens/pkg/cache"
	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/middleware"
	"github.com/ngoyal88/lens/pkg/notify"
	"github.com/ngoyal88/lens/pkg/registry"
	"github.com/ngoyal88/lens/pkg/report"
	"github.com/ngoyal88/lens/pkg/stats"
	"github.com/ngoyal88/lens/pkg/storage"
	"github.com/ngoyal88/lens/pkg/tracker"
)

func main() {
	// 1. Load config with hot reload
	cfgStore, err := config.LoadAndWatch()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := cfgStore.Get()
	if cfg == nil {
		log.Fatal("Config could not be read")
	}

	// 2. Connect the store
	var rdb *cache.Client
	if cfg.Redis.Enabled {
		if cfg.Redis.URL != "" {
			rdb, err = cache.NewRedisURL(cfg.Redis.URL)
		} else {
			rdb, err = cache.NewRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		}
		if err != nil {
			log.Fatalf("Could not connect to Redis: %v", err)
		}
		fmt.Println("✅ Connected to Redis successfully!")
	}

	var store storage.Store
	var sampler *redis_rate.Limiter
	if rdb != nil {
		store = storage.NewRedisStore(rdb)
		sampler = redis_rate.NewLimiter(rdb.Redis())
	} else {
		store = storage.NewMemoryStore()
		log.Println("⚠️  Redis disabled: aggregates live in process memory only")
	}

	// 3. Core services
	logger := slog.Default()
	recorder := tracker.NewRecorder(store, cfgStore, sampler, logger)
	reader := stats.NewReader(store, cfgStore, logger)
	routes := registry.New(store, cfgStore, logger)
	generator := report.NewGenerator(routes, reader, logger)

	reportCfg := report.Config{
		DaysThreshold:      cfg.Reporter.DaysThreshold,
		SlowThresholdMs:    float64(cfg.Reporter.Alerts.SlowEndpointThresholdMs),
		ErrorRateThreshold: cfg.Reporter.Alerts.ErrorRateThreshold,
	}

	// 4. Demo application routes, registered for unused-route detection
	app := demoRoutes()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	routes.ImportRoutes(ctx, demoRouteSource())
	cancel()

	// 5. Chain middleware (order matters: usage tracking sits closest to the app)
	var handler http.Handler = app
	handler = middleware.UsageTracking(recorder, cfgStore)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.RequestLogger(handler)
	fmt.Println("✅ Usage tracking enabled")

	// 6. Scheduled reporting
	if cfg.Reporter.Enabled {
		dispatcher := notify.NewDispatcher(logger, buildChannels(cfg)...)
		if dispatcher.Channels() > 0 {
			scheduler := notify.NewScheduler(cfg.Reporter.IntervalHours, func(ctx context.Context) (*report.UsageReport, error) {
				return generator.Generate(ctx, reportCfg)
			}, dispatcher, logger)
			scheduler.Start()
			defer scheduler.Stop()
			fmt.Printf("✅ Usage reports every %.1fh to %d channel(s)\n",
				cfg.Reporter.IntervalHours, dispatcher.Channels())
		}
	}

	// 7. HTTP server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Admin.Key != "" {
		adminAPI := api.NewAdminAPI(reader, routes, generator, reportCfg, cfg.Admin.Key, cfg.Admin.RPS)
		adminAPI.RegisterRoutes(mux)
		fmt.Println("✅ Admin API enabled at /admin/*")
	}

	mux.Handle("/", handler)

	port := cfg.Server.Port
	if port == "" {
		port = ":8080"
	}
	fmt.Printf("\n🎯 Server listening on %s\n", port)
	if err := http.ListenAndServe(port, mux); err != nil {
		log.Fatal("Server failed:", err)
	}
}

// demoRoutes is a small instrumented application used to exercise the
// tracker end to end.
func demoRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]interface{}{"users": []string{"ada", "grace"}})
	})
	mux.HandleFunc("/api/users/", func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]string{"user": "ada"})
	})
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]interface{}{"orders": []int{}})
	})
	return mux
}

func demoRouteSource() registry.RouteSource {
	return registry.StaticSource{
		{Method: "GET", Path: "/api/users"},
		{Method: "GET", Path: "/api/users/:id"},
		{Method: "GET", Path: "/api/orders"},
	}
}

func respond(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func buildChannels(cfg *config.Config) []notify.Channel {
	var channels []notify.Channel

	n := cfg.Reporter.Notifications
	if n.Webhook.Enabled && n.Webhook.URL != "" {
		channels = append(channels, notify.NewWebhookChannel(n.Webhook.URL, n.Webhook.Headers))
	}
	if n.Slack.Enabled && n.Slack.WebhookURL != "" {
		channels = append(channels, notify.NewSlackChannel(n.Slack.WebhookURL, n.Slack.Channel))
	}
	if cfg.Reporter.HTMLReport.Enabled {
		channels = append(channels, notify.NewHTMLChannel(cfg.Reporter.HTMLReport.OutputPath))
	}
	return channels
}
