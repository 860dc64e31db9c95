// Package handler provides HTTP handlers for the station API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/api/response"
	"github.com/stationkit/stationkit/internal/provider/resilience"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	upstreams *resilience.Registry
	checks    map[string]Pinger
	logger    zerolog.Logger
}

// NewOpsHandler creates a new OpsHandler. upstreams may be nil.
func NewOpsHandler(version string, upstreams *resilience.Registry, logger zerolog.Logger) *OpsHandler {
	return &OpsHandler{
		version:   version,
		upstreams: upstreams,
		checks:    make(map[string]Pinger),
		logger:    logger,
	}
}

// AddCheck registers a dependency probed by the readiness check.
func (h *OpsHandler) AddCheck(name string, p Pinger) {
	h.checks[name] = p
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Version: h.version,
	})
}

// ReadinessCheck handles GET /v1/ops/ready. A failed dependency check makes
// the service unready; an open upstream circuit only degrades it.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Version: h.version,
	}

	for name, p := range h.checks {
		check := models.CheckStatus{Name: name, Status: models.HealthStatusOK}
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Str("check", name).Msg("readiness check failed")
			check.Status = models.HealthStatusFail
			check.Detail = err.Error()
			health.Status = models.HealthStatusFail
		}
		health.Checks = append(health.Checks, check)
	}

	if h.upstreams != nil {
		for _, u := range h.upstreams.All() {
			status := upstreamStatus(u)
			if status.Status != models.HealthStatusOK && health.Status == models.HealthStatusOK {
				health.Status = models.HealthStatusDegraded
			}
			health.Upstreams = append(health.Upstreams, status)
		}
	}

	code := http.StatusOK
	if health.Status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

func upstreamStatus(u *resilience.Health) models.UpstreamStatus {
	s := models.UpstreamStatus{
		Name:      u.Name,
		State:     u.Status,
		LastError: u.LastError,
	}
	if u.LastSuccessAt != nil {
		s.LastSuccessAt = models.TimestampPtr(*u.LastSuccessAt)
	}
	if u.LastFailureAt != nil {
		s.LastFailureAt = models.TimestampPtr(*u.LastFailureAt)
	}
	switch {
	case u.Healthy():
		s.Status = models.HealthStatusOK
	case u.Degraded():
		s.Status = models.HealthStatusDegraded
	default:
		s.Status = models.HealthStatusFail
	}
	return s
}
