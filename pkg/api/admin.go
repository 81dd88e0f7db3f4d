package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/ngoyal88/lens/pkg/registry"
	"github.com/ngoyal88/lens/pkg/report"
	"github.com/ngoyal88/lens/pkg/stats"
)

// AdminAPI exposes the usage read model over HTTP.
type AdminAPI struct {
	reader    *stats.Reader
	registry  *registry.Registry
	generator *report.Generator
	reportCfg report.Config
	adminKey  string
	limiter   *rate.Limiter
}

// NewAdminAPI creates the admin API handler set.
func NewAdminAPI(reader *stats.Reader, reg *registry.Registry, gen *report.Generator, reportCfg report.Config, adminKey string, rps float64) *AdminAPI {
	if rps <= 0 {
		rps = 10
	}
	return &AdminAPI{
		reader:    reader,
		registry:  reg,
		generator: gen,
		reportCfg: reportCfg,
		adminKey:  adminKey,
		limiter:   rate.NewLimiter(rate.Limit(rps), int(rps)*2),
	}
}

// RegisterRoutes registers admin endpoints.
func (api *AdminAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/usage/stats", api.authenticate(api.handleStats))
	mux.HandleFunc("/admin/usage/performance", api.authenticate(api.handlePerformance))
	mux.HandleFunc("/admin/usage/unused", api.authenticate(api.handleUnused))
	mux.HandleFunc("/admin/usage/slow", api.authenticate(api.handleSlow))
	mux.HandleFunc("/admin/usage/dashboard", api.authenticate(api.handleDashboard))
	mux.HandleFunc("/admin/usage/routes", api.authenticate(api.handleRoutes))
	mux.HandleFunc("/admin/usage/report", api.authenticate(api.handleReport))
	mux.HandleFunc("/admin/health", api.handleHealth)
}

// authenticate checks the admin key and applies the request limiter.
func (api *AdminAPI) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !api.limiter.Allow() {
			respondJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests",
			})
			return
		}
		if r.Header.Get("X-Admin-Key") != api.adminKey {
			respondJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid admin key",
			})
			return
		}
		next(w, r)
	}
}

func (api *AdminAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := stats.Filter{
		Method: r.URL.Query().Get("method"),
		Path:   r.URL.Query().Get("path"),
	}
	list, err := api.reader.ListStats(r.Context(), filter)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to read stats: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"stats": list})
}

func (api *AdminAPI) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := stats.Filter{
		Method: r.URL.Query().Get("method"),
		Path:   r.URL.Query().Get("path"),
	}
	list, err := api.reader.PerformanceStats(r.Context(), filter)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to read performance stats: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"stats": list})
}

func (api *AdminAPI) handleUnused(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := queryInt(r, "days", api.reportCfg.DaysThreshold)
	list, err := api.reader.UnusedEndpoints(r.Context(), days)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to find unused endpoints: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days_threshold": days,
		"endpoints":      list,
	})
}

func (api *AdminAPI) handleSlow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threshold := float64(queryInt(r, "threshold_ms", int(api.reportCfg.SlowThresholdMs)))
	list, err := api.reader.SlowEndpoints(r.Context(), threshold)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to find slow endpoints: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"threshold_ms": threshold,
		"endpoints":    list,
	})
}

func (api *AdminAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := queryInt(r, "days", 7)
	data, err := api.reader.Dashboard(r.Context(), days)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to build dashboard: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, data)
}

func (api *AdminAPI) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	routes, err := api.registry.ListRoutes(r.Context())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to list routes: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"routes": routes})
}

func (api *AdminAPI) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := api.reportCfg
	cfg.DaysThreshold = queryInt(r, "days", cfg.DaysThreshold)

	rep, err := api.generator.Generate(r.Context(), cfg)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to generate report: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

func (api *AdminAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
