// Package handler provides HTTP handlers for the AliWeather API.
package handler

import (
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/api/response"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/provider/resilience"
	"github.com/aliweather/aliweather/internal/weather"
)

// OpsConfig holds the dependencies of the ops endpoints. Nil fields are
// reported as absent.
type OpsConfig struct {
	Version   string
	BuildTime string
	Providers *resilience.Registry
	Sessions  *lifecycle.Registry
	Weather   *weather.Service
	Clock     clockwork.Clock
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.cfg.Clock.Now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. The service is not ready while
// every weather provider circuit is open; a half-open circuit is degraded
// but still serves traffic.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.providerStatus()
	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status: status,
		Time:   models.Timestamp(h.cfg.Clock.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     h.providerStatus(),
		Time:       models.Timestamp(h.cfg.Clock.Now()),
		Version:    h.cfg.Version,
		BuildTime:  h.cfg.BuildTime,
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.cfg.Sessions != nil {
		detail := fmt.Sprintf("%d live sessions", h.cfg.Sessions.Len())
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name: "alert-sessions", Status: models.HealthStatusOK, Detail: &detail,
		})
	}
	if h.cfg.Weather != nil {
		stats := h.cfg.Weather.CacheStats()
		detail := fmt.Sprintf("%s: %d cached snapshots, %d fresh", stats.Provider, stats.SnapshotEntries, stats.SnapshotFreshEntries)
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name: "weather-cache", Status: models.HealthStatusOK, Detail: &detail,
		})
	}

	if h.cfg.Providers != nil {
		for _, ph := range h.cfg.Providers.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider:      ph.Name,
				Status:        healthStatus(ph.Status()),
				CircuitState:  ph.CircuitState.String(),
				LastSuccessAt: models.TimestampPtr(ph.LastSuccessAt),
				LastFailureAt: models.TimestampPtr(ph.LastFailureAt),
			}
			if ph.LastError != "" {
				msg := ph.LastError
				ps.Message = &msg
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) providerStatus() models.HealthStatus {
	if h.cfg.Providers == nil {
		return models.HealthStatusOK
	}
	return healthStatus(h.cfg.Providers.OverallStatus())
}

func healthStatus(s string) models.HealthStatus {
	switch s {
	case resilience.StatusUnhealthy:
		return models.HealthStatusFail
	case resilience.StatusDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
