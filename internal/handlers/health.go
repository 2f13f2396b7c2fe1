// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcerda/storefront-be/internal/core/services"
	"github.com/mcerda/storefront-be/internal/pkg/config"
)

// RemotePinger checks reachability of the remote cart service
type RemotePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	redis     *redis.Client
	remote    RemotePinger
	manager   *services.Manager
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	redisClient *redis.Client,
	remote RemotePinger,
	manager *services.Manager,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		redis:     redisClient,
		remote:    remote,
		manager:   manager,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

// HealthStatus represents the health status of the application
type HealthStatus struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]ServiceInfo `json:"services"`
	System      SystemInfo             `json:"system"`
}

// ServiceInfo represents the status of a service dependency
type ServiceInfo struct {
	Status       string                 `json:"status"`
	Message      string                 `json:"message,omitempty"`
	ResponseTime string                 `json:"response_time,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SystemInfo represents system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	MemorySysMB   uint64 `json:"memory_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// Health handles the /health endpoint
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:      "healthy",
		Version:     h.config.App.Version,
		Environment: h.config.App.Environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:   time.Now(),
		Services:    make(map[string]ServiceInfo),
		System:      h.getSystemInfo(),
	}

	redisStatus := h.checkRedis(ctx)
	health.Services["redis"] = redisStatus
	if redisStatus.Status != "healthy" {
		health.Status = "degraded"
	}

	remoteStatus := h.checkRemote(ctx)
	health.Services["remote_cart"] = remoteStatus
	if remoteStatus.Status != "healthy" {
		health.Status = "degraded"
	}

	health.Services["cart_manager"] = ServiceInfo{
		Status: "healthy",
		Details: map[string]interface{}{
			"active_sessions": h.manager.ActiveSessions(),
		},
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		h.logger.Error("failed to encode health response", slog.String("error", err.Error()))
	}
}

// Liveness handles the /health/live endpoint
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

// Readiness handles the /health/ready endpoint. The service is ready
// when the remote cart upstream answers; Redis degradation alone does
// not block traffic because drafts and sessions fail soft.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := h.remote.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not_ready","reason":"remote cart unreachable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (h *HealthHandler) checkRedis(ctx context.Context) ServiceInfo {
	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ServiceInfo{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	}
	return ServiceInfo{
		Status:       "healthy",
		ResponseTime: time.Since(start).String(),
	}
}

func (h *HealthHandler) checkRemote(ctx context.Context) ServiceInfo {
	start := time.Now()
	if err := h.remote.Ping(ctx); err != nil {
		return ServiceInfo{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	}
	return ServiceInfo{
		Status:       "healthy",
		ResponseTime: time.Since(start).String(),
	}
}

func (h *HealthHandler) getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAllocMB: m.Alloc / 1024 / 1024,
		MemorySysMB:   m.Sys / 1024 / 1024,
		NumGC:         m.NumGC,
	}
}
