package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Pinger checks a dependency's connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests
type HealthHandler struct {
	critical map[string]Pinger
	optional map[string]Pinger
	started  time.Time
}

// NewHealthHandler creates a health handler. Critical dependencies gate
// readiness; optional ones (the cache) only show up in the detailed report.
func NewHealthHandler(critical, optional map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		critical: critical,
		optional: optional,
		started:  time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Uptime string            `json:"uptime,omitempty"`
}

// GetHealth handles GET /health. Includes every dependency; answers 503 when
// a critical one is down.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "ok"

	for _, name := range sortedKeys(h.critical) {
		if err := h.critical[name].Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "healthy"
	}
	for _, name := range sortedKeys(h.optional) {
		if err := h.optional[name].Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			continue
		}
		checks[name] = "healthy"
	}

	httpStatus := http.StatusOK
	if status == "degraded" {
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, HealthResponse{
		Status: status,
		Checks: checks,
		Uptime: time.Since(h.started).Round(time.Second).String(),
	}, httpStatus)
}

// GetReadiness handles GET /health/ready
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, name := range sortedKeys(h.critical) {
		if err := h.critical[name].Ping(ctx); err != nil {
			respondError(w, name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}

	respondJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// GetLiveness handles GET /health/live
func GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "alive"}, http.StatusOK)
}

func sortedKeys(m map[string]Pinger) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
