package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ngoyal88/lens/pkg/cache"
	"github.com/ngoyal88/lens/pkg/config"
	"github.com/ngoyal88/lens/pkg/notify"
	"github.com/ngoyal88/lens/pkg/registry"
	"github.com/ngoyal88/lens/pkg/report"
	"github.com/ngoyal88/lens/pkg/stats"
	"github.com/ngoyal88/lens/pkg/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "stats":
		handleStats(newToolkit())
	case "unused":
		handleUnused(newToolkit())
	case "slow":
		handleSlow(newToolkit())
	case "report":
		handleReport(newToolkit())
	case "html":
		handleHTML(newToolkit())
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("lens-admin commands:")
	fmt.Println("  stats                List per-endpoint usage statistics")
	fmt.Println("  unused               List unused endpoints")
	fmt.Println("     flags: -days")
	fmt.Println("  slow                 List slow endpoints")
	fmt.Println("     flags: -threshold-ms")
	fmt.Println("  report               Generate a usage report as JSON")
	fmt.Println("     flags: -days")
	fmt.Println("  html                 Generate a usage report as HTML")
	fmt.Println("     flags: -days -out")
}

// toolkit bundles the read-side services the CLI commands share.
type toolkit struct {
	cfg      *config.Config
	cfgStore *config.Store
	reader   *stats.Reader
	registry *registry.Registry
	gen      *report.Generator
}

func newToolkit() *toolkit {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Redis.Enabled {
		log.Fatal("redis is not enabled in config")
	}

	var rdb *cache.Client
	if cfg.Redis.URL != "" {
		rdb, err = cache.NewRedisURL(cfg.Redis.URL)
	} else {
		rdb, err = cache.NewRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	}
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	cfgStore := config.StaticStore(*cfg)
	store := storage.NewRedisStore(rdb)
	logger := slog.Default()
	reader := stats.NewReader(store, cfgStore, logger)
	reg := registry.New(store, cfgStore, logger)

	return &toolkit{
		cfg:      cfg,
		cfgStore: cfgStore,
		reader:   reader,
		registry: reg,
		gen:      report.NewGenerator(reg, reader, logger),
	}
}

func (t *toolkit) reportConfig(days int) report.Config {
	return report.Config{
		DaysThreshold:      days,
		SlowThresholdMs:    float64(t.cfg.Reporter.Alerts.SlowEndpointThresholdMs),
		ErrorRateThreshold: t.cfg.Reporter.Alerts.ErrorRateThreshold,
	}
}

func cliContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func handleStats(t *toolkit) {
	ctx, cancel := cliContext()
	defer cancel()

	list, err := t.reader.ListStats(ctx, stats.Filter{})
	if err != nil {
		log.Fatalf("failed to read stats: %v", err)
	}

	if len(list) == 0 {
		fmt.Println("No usage recorded yet")
		return
	}
	for i, st := range list {
		fmt.Printf("%d) %s %s count=%d avg=%.0fms last=%s\n",
			i+1, st.Method, st.Path, st.Count, st.AverageResponseTime,
			st.LastAccessed.Format(time.RFC3339))
	}
}

func handleUnused(t *toolkit) {
	fs := flag.NewFlagSet("unused", flag.ExitOnError)
	days := fs.Int("days", t.cfg.Reporter.DaysThreshold, "Days without traffic")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	ctx, cancel := cliContext()
	defer cancel()

	list, err := t.registry.FindUnusedRoutes(ctx, t.reader, *days)
	if err != nil {
		log.Fatalf("failed to find unused routes: %v", err)
	}

	if len(list) == 0 {
		fmt.Printf("No endpoints unused for %d days\n", *days)
		return
	}
	for i, route := range list {
		fmt.Printf("%d) %s %s discovered=%s\n",
			i+1, route.Method, route.Path, route.DiscoveredAt.Format(time.RFC3339))
	}
}

func handleSlow(t *toolkit) {
	fs := flag.NewFlagSet("slow", flag.ExitOnError)
	threshold := fs.Int64("threshold-ms", t.cfg.Reporter.Alerts.SlowEndpointThresholdMs, "Slow threshold in ms")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	ctx, cancel := cliContext()
	defer cancel()

	list, err := t.reader.SlowEndpoints(ctx, float64(*threshold))
	if err != nil {
		log.Fatalf("failed to find slow endpoints: %v", err)
	}

	if len(list) == 0 {
		fmt.Printf("No endpoints slower than %dms\n", *threshold)
		return
	}
	for i, st := range list {
		fmt.Printf("%d) %s %s avg=%.0fms p95=%.0fms errors=%.1f%%\n",
			i+1, st.Method, st.Path, st.AverageResponseTime,
			st.Performance.P95, st.Performance.ErrorRate*100)
	}
}

func handleReport(t *toolkit) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	days := fs.Int("days", t.cfg.Reporter.DaysThreshold, "Days without traffic")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	ctx, cancel := cliContext()
	defer cancel()

	rep, err := t.gen.Generate(ctx, t.reportConfig(*days))
	if err != nil {
		log.Fatalf("failed to generate report: %v", err)
	}

	b, _ := json.MarshalIndent(rep, "", "  ")
	fmt.Println(string(b))
}

func handleHTML(t *toolkit) {
	fs := flag.NewFlagSet("html", flag.ExitOnError)
	days := fs.Int("days", t.cfg.Reporter.DaysThreshold, "Days without traffic")
	out := fs.String("out", t.cfg.Reporter.HTMLReport.OutputPath, "Output file path")
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	ctx, cancel := cliContext()
	defer cancel()

	rep, err := t.gen.Generate(ctx, t.reportConfig(*days))
	if err != nil {
		log.Fatalf("failed to generate report: %v", err)
	}

	if err := notify.NewHTMLChannel(*out).Send(ctx, rep); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	fmt.Printf("Report written to %s\n", *out)
}
