package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"
)

// Checker probes one dependency. A nil error means the dependency is up.
type Checker func(ctx context.Context) error

type HealthHandler struct {
	checks    map[string]Checker
	startTime time.Time
	version   string
}

// NewHealthHandler builds the probe endpoints. checks is keyed by dependency
// name ("database", "redis", ...); only configured backends are listed.
func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{
		checks:    checks,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse follows Kubernetes/OpenShift health check conventions
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is the liveness check: the process is up and serving.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    map[string]Check{"process": {Status: "UP"}},
	})
}

// Ready runs every dependency check (readiness probe).
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]Check, len(h.checks))
	status := "UP"
	httpStatus := http.StatusOK

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := h.run(r.Context(), name, h.checks[name])
		checks[name] = c
		if c.Status != "UP" {
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	})
}

// Live is an alias for Health.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}

func (h *HealthHandler) run(ctx context.Context, name string, check Checker) Check {
	if check == nil {
		return Check{Status: "DOWN", Message: name + " is not initialized"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := check(ctx); err != nil {
		slog.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
		return Check{Status: "DOWN", Message: "Cannot connect to " + name}
	}
	return Check{Status: "UP"}
}
