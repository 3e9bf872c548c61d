// Package handler provides HTTP handlers for the SunSafe API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/api/response"
	"github.com/sunsafe/sunsafe/internal/resilience"
)

// readinessTimeout bounds each dependency check.
const readinessTimeout = 2 * time.Second

// DependencyCheck probes one backing service, such as Postgres or Valkey.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// MonitorStats exposes live recomputation counts.
type MonitorStats interface {
	Devices() []string
}

// AlertStats exposes the number of armed alerts.
type AlertStats interface {
	PendingCount() int
}

// OpsConfig holds the dependencies of OpsHandler. Everything but the
// version strings is optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Checks    []DependencyCheck
	Endpoints *resilience.Registry
	Monitor   MonitorStats
	Alerts    AlertStats
	Now       func() time.Time
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.cfg.Now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Any failing dependency makes
// the instance unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems, status := h.checkDependencies(r.Context())

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(h.cfg.Now()),
	}
	if len(subsystems) > 0 {
		details := make(map[string]any, len(subsystems))
		for _, s := range subsystems {
			details[s.Name] = s.Status
		}
		health.Details = details
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - dependency, endpoint and
// monitor status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	subsystems, status := h.checkDependencies(r.Context())

	endpoints := []models.EndpointStatus{}
	if h.cfg.Endpoints != nil {
		for _, e := range h.cfg.Endpoints.All() {
			es := models.EndpointStatus{
				Name:         e.Name,
				Status:       models.HealthStatusOK,
				CircuitState: e.State.String(),
			}
			switch {
			case e.Down():
				es.Status = models.HealthStatusFail
			case e.Degraded():
				es.Status = models.HealthStatusDegraded
			}
			if e.LastSuccessAt != nil {
				ts := models.Timestamp(*e.LastSuccessAt)
				es.LastSuccessAt = &ts
			}
			if e.LastFailureAt != nil {
				ts := models.Timestamp(*e.LastFailureAt)
				es.LastFailureAt = &ts
			}
			if e.LastError != "" {
				msg := e.LastError
				es.Message = &msg
			}
			if es.Status != models.HealthStatusOK && status == models.HealthStatusOK {
				status = models.HealthStatusDegraded
			}
			endpoints = append(endpoints, es)
		}
	}

	var mon models.MonitorStatus
	if h.cfg.Monitor != nil {
		mon.TrackedDevices = len(h.cfg.Monitor.Devices())
	}
	if h.cfg.Alerts != nil {
		mon.PendingAlerts = h.cfg.Alerts.PendingCount()
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     status,
		Time:       models.Timestamp(h.cfg.Now()),
		Subsystems: subsystems,
		Endpoints:  endpoints,
		Monitor:    mon,
	})
}

func (h *OpsHandler) checkDependencies(ctx context.Context) ([]models.SubsystemStatus, models.HealthStatus) {
	status := models.HealthStatusOK
	subsystems := make([]models.SubsystemStatus, 0, len(h.cfg.Checks))

	for _, c := range h.cfg.Checks {
		cctx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := c.Check(cctx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
			status = models.HealthStatusFail
		}
		subsystems = append(subsystems, s)
	}
	return subsystems, status
}
