package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livraria/livraria-api/internal/metrics"
)

// Component health values.
const (
	healthUp       = "up"
	healthDown     = "down"
	healthDisabled = "disabled"
)

const pingTimeout = 2 * time.Second

func (s *Server) registerHealthRoutes() {
	register(s.api, huma.Operation{
		OperationID: "index",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service information",
		Tags:        []string{"Sistema"},
	}, s.handleIndex)

	register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports database and search index health; 503 when the database is down",
		Tags:        []string{"Sistema"},
	}, s.handleHealthCheck)

	register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Process status",
		Tags:        []string{"Sistema"},
	}, s.handleStatus)
}

// ServiceInfo describes the running service and its route groups.
type ServiceInfo struct {
	Name        string            `json:"name" doc:"Service name"`
	Version     string            `json:"version" doc:"Service version"`
	Environment string            `json:"environment" doc:"Deployment environment"`
	Endpoints   map[string]string `json:"endpoints" doc:"Route groups"`
}

// ServiceInfoOutput wraps the service information.
type ServiceInfoOutput struct {
	Body Envelope[ServiceInfo]
}

// HealthReport is the health of each component.
type HealthReport struct {
	Status     string            `json:"status" doc:"healthy or unhealthy"`
	Components map[string]string `json:"components" doc:"up, down or disabled per component"`
	Documents  *uint64           `json:"documentosIndexados,omitempty" doc:"Books in the search index"`
}

// HealthOutput wraps the health report with its status code.
type HealthOutput struct {
	Status int
	Body   Envelope[HealthReport]
}

// StatusReport is a point-in-time view of the process.
type StatusReport struct {
	State      string  `json:"state" doc:"Lifecycle phase"`
	Uptime     string  `json:"uptime" doc:"Time since start"`
	Requests   uint64  `json:"requests" doc:"Requests served"`
	Errors     uint64  `json:"errors" doc:"Requests answered with 5xx"`
	Goroutines int     `json:"goroutines"`
	HeapMB     float64 `json:"heapMB"`
	SysMB      float64 `json:"sysMB"`
}

// StatusOutput wraps the status report.
type StatusOutput struct {
	Body Envelope[StatusReport]
}

func (s *Server) handleIndex(ctx context.Context, _ *struct{}) (*ServiceInfoOutput, error) {
	env := reply(ctx, ServiceInfo{
		Name:        s.cfg.Name,
		Version:     s.cfg.Version,
		Environment: s.cfg.Environment,
		Endpoints: map[string]string{
			"livros":   "/api/livros",
			"auth":     "/api/auth",
			"usuarios": "/api/usuarios",
			"health":   "/health",
			"status":   "/status",
			"docs":     "/docs",
		},
	})
	env.Message = "API da Livraria"
	return &ServiceInfoOutput{Body: env}, nil
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	report := HealthReport{
		Status:     "healthy",
		Components: map[string]string{"database": healthDisabled, "search": healthDisabled},
	}
	status := http.StatusOK

	if s.deps.Database != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.deps.Database.Ping(pingCtx)
		cancel()
		if err != nil {
			s.logger.WarnContext(ctx, "health check: database ping failed", "error", err)
			report.Components["database"] = healthDown
			report.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			report.Components["database"] = healthUp
		}
	}

	// The index is an accelerator; a broken one degrades search but not health.
	if s.deps.Search != nil {
		if count, err := s.deps.Search.DocCount(); err != nil {
			s.logger.WarnContext(ctx, "health check: search index failed", "error", err)
			report.Components["search"] = healthDown
		} else {
			report.Components["search"] = healthUp
			report.Documents = &count
		}
	}

	env := reply(ctx, report)
	env.Success = status == http.StatusOK
	return &HealthOutput{Status: status, Body: env}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	snap := metrics.TakeSnapshot(s.deps.Metrics)
	report := StatusReport{
		State:      "unknown",
		Uptime:     snap.Uptime.Round(time.Second).String(),
		Requests:   snap.Requests,
		Errors:     snap.Errors,
		Goroutines: snap.Goroutines,
		HeapMB:     snap.HeapMB,
		SysMB:      snap.SysMB,
	}
	if s.deps.Lifecycle != nil {
		report.State = string(s.deps.Lifecycle.State())
		report.Uptime = s.deps.Lifecycle.Uptime().Round(time.Second).String()
	}
	return &StatusOutput{Body: reply(ctx, report)}, nil
}
