package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the usage tracker.
// The structure tags (mapstructure) tell Viper which YAML field maps to which Go struct field.
type Config struct {
	Server              ServerConfig      `mapstructure:"server"`
	Redis               RedisConfig       `mapstructure:"redis"`
	KeyPrefix           string            `mapstructure:"key_prefix"`
	TrackingEnabled     bool              `mapstructure:"tracking_enabled"`
	ExcludePaths        []string          `mapstructure:"exclude_paths"`
	IncludeQueryParams  bool              `mapstructure:"include_query_params"`
	AggregationInterval time.Duration     `mapstructure:"aggregation_interval"` // reserved for batched writes
	Performance         PerformanceConfig `mapstructure:"performance_tracking"`
	Reporter            ReporterConfig    `mapstructure:"reporter"`
	Admin               AdminConfig       `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	URL      string `mapstructure:"url"`
	Enabled  bool   `mapstructure:"enabled"`
}

// Addr returns the host:port pair for clients that do not use the URL form.
func (r RedisConfig) Addr() string {
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	port := r.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

type PerformanceConfig struct {
	Enabled         bool      `mapstructure:"enabled"`
	SlowThresholdMs int64     `mapstructure:"slow_threshold_ms"`
	Percentiles     []float64 `mapstructure:"percentiles"`
	MemoryTracking  bool      `mapstructure:"memory_tracking"`
	CPUTracking     bool      `mapstructure:"cpu_tracking"`
}

type ReporterConfig struct {
	Enabled       bool                `mapstructure:"enabled"`
	IntervalHours float64             `mapstructure:"interval_hours"`
	DaysThreshold int                 `mapstructure:"days_threshold"`
	Alerts        PerformanceAlerts   `mapstructure:"performance_alerts"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	HTMLReport    HTMLReportConfig    `mapstructure:"html_report"`
}

type PerformanceAlerts struct {
	SlowEndpointThresholdMs int64   `mapstructure:"slow_endpoint_threshold_ms"`
	ErrorRateThreshold      float64 `mapstructure:"error_rate_threshold"`
	ThroughputDropThreshold float64 `mapstructure:"throughput_drop_threshold"`
}

type NotificationsConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Email   EmailConfig   `mapstructure:"email"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// EmailConfig is accepted for forward compatibility; actual delivery is an
// external shim and not wired by this package.
type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Recipients []string `mapstructure:"recipients"`
}

type HTMLReportConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	OutputPath string `mapstructure:"output_path"`
}

type AdminConfig struct {
	Key string  `mapstructure:"key"`
	RPS float64 `mapstructure:"rps"`
}

// Store wraps configuration with thread-safe access and hot-reload updates.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil
	}
	cpy := *s.cfg
	return &cpy
}

func (s *Store) set(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// StaticStore wraps an already-built Config, for embedding the tracker as a
// library without a config file on disk.
func StaticStore(cfg Config) *Store {
	applyDefaults(&cfg)
	s := &Store{}
	s.set(&cfg)
	return s
}

// LoadAndWatch loads the config and watches for on-disk changes.
func LoadAndWatch() (*Store, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.AddConfigPath("./configs")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	store := &Store{}
	if err := refresh(v, store); err != nil {
		return nil, err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := refresh(v, store); err != nil {
			log.Printf("[CONFIG] reload failed: %v", err)
		} else {
			log.Printf("[CONFIG] reloaded from %s", e.Name)
		}
	})

	return store, nil
}

// Load preserves the old API: it loads once and does not watch.
func Load() (*Config, error) {
	store, err := LoadAndWatch()
	if err != nil {
		return nil, err
	}
	return store.Get(), nil
}

func refresh(v *viper.Viper, store *Store) error {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	applyDefaults(&cfg)
	store.set(&cfg)
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "lens"
	}
	cfg.KeyPrefix = strings.TrimSuffix(cfg.KeyPrefix, ":")
	if cfg.Performance.SlowThresholdMs == 0 {
		cfg.Performance.SlowThresholdMs = 1000
	}
	if len(cfg.Performance.Percentiles) == 0 {
		cfg.Performance.Percentiles = []float64{50, 95, 99}
	}
	if cfg.Reporter.IntervalHours == 0 {
		cfg.Reporter.IntervalHours = 24
	}
	if cfg.Reporter.DaysThreshold == 0 {
		cfg.Reporter.DaysThreshold = 30
	}
	if cfg.Reporter.Alerts.SlowEndpointThresholdMs == 0 {
		cfg.Reporter.Alerts.SlowEndpointThresholdMs = 2000
	}
	if cfg.Reporter.Alerts.ErrorRateThreshold == 0 {
		cfg.Reporter.Alerts.ErrorRateThreshold = 0.05
	}
	if cfg.Reporter.HTMLReport.OutputPath == "" {
		cfg.Reporter.HTMLReport.OutputPath = "./usage-report.html"
	}
	if cfg.Admin.RPS == 0 {
		cfg.Admin.RPS = 10
	}
}
