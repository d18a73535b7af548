package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"companywise/internal/datasource"
	"companywise/internal/storage"
)

// healthKey is read to probe the store; it is never written.
const healthKey = "healthcheck"

// HubStats is the realtime hub as seen by health checks.
type HubStats interface {
	ClientCount() int
	Stats() map[string]interface{}
}

// CacheStats exposes data cache effectiveness.
type CacheStats interface {
	Stats() datasource.CacheStats
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	source    datasource.Source
	store     storage.Store
	hub       HubStats
	cache     CacheStats
	progress  *ProgressService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthDeps are the components health checks probe. Nil members are
// reported as not configured.
type HealthDeps struct {
	Source   datasource.Source
	Store    storage.Store
	Hub      HubStats
	Cache    CacheStats
	Progress *ProgressService
}

// NewHealthService creates a health service.
func NewHealthService(version, buildTime string, deps HealthDeps, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		source:    deps.Source,
		store:     deps.Store,
		hub:       deps.Hub,
		cache:     deps.Cache,
		progress:  deps.Progress,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck probes the store and the data source.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"storage":   hs.checkStorage(ctx),
			"data":      hs.checkData(ctx),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "dependency not ready",
				slog.String("dependency", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	detail := map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
	}
	if hs.cache != nil {
		detail["cache"] = hs.cache.Stats()
	}
	if hs.hub != nil {
		detail["websocket"] = hs.hub.Stats()
	}
	if hs.progress != nil {
		detail["progress_sessions"] = hs.progress.Sessions()
	}
	return detail
}

func (hs *HealthService) checkStorage(ctx context.Context) ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "storage not configured"}
	}
	if _, err := hs.store.Get(ctx, healthKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("storage error: %v", err)}
	}
	return ServiceHealth{Status: "ready", Message: "storage is reachable"}
}

func (hs *HealthService) checkData(ctx context.Context) ServiceHealth {
	if hs.source == nil {
		return ServiceHealth{Status: "not_ready", Message: "data source not configured"}
	}
	names, err := hs.source.Companies(ctx)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: "failed to load"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d companies available", len(names))}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "realtime updates disabled"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount())}
}
