package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Health states, worst last.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports the store, event bus, search index and chat assistant",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes one dependency of the server.
type ComponentHealth struct {
	Status  string `json:"status" enum:"healthy,degraded,unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Time the probe took"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status" enum:"healthy,degraded,unhealthy"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// handleHealthCheck runs every probe. Only a failing store makes the server
// unhealthy; anything else missing degrades it.
func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	body := HealthResponse{
		Status: statusHealthy,
		Components: map[string]ComponentHealth{
			"database": s.checkDatabase(ctx),
			"events":   s.checkEvents(),
			"search":   s.checkSearch(),
			"chat":     s.checkChat(),
		},
	}
	for name, c := range body.Components {
		switch {
		case name == "database" && c.Status == statusUnhealthy:
			body.Status = statusUnhealthy
		case c.Status != statusHealthy && body.Status == statusHealthy:
			body.Status = statusDegraded
		}
	}
	return &HealthOutput{Body: body}, nil
}

func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "store not configured"}
	}
	start := time.Now()
	err := s.store.Ping(ctx)
	c := ComponentHealth{Status: statusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		c.Status = statusUnhealthy
		c.Message = "store read failed"
	}
	return c
}

func (s *Server) checkEvents() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: statusDegraded, Message: "event bus not configured"}
	}
	stats := s.sseManager.Stats()
	return ComponentHealth{
		Status: statusHealthy,
		Message: fmt.Sprintf("%s, %d published, %d dropped",
			plural(stats.Clients, "client"), stats.Published, stats.Dropped),
	}
}

func (s *Server) checkSearch() ComponentHealth {
	if s.services == nil || s.services.Search == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search not configured"}
	}
	n, err := s.services.Search.Indexed()
	if err != nil {
		return ComponentHealth{Status: statusDegraded, Message: "search index unreadable"}
	}
	return ComponentHealth{Status: statusHealthy, Message: plural(int(n), "indexed note")}
}

func (s *Server) checkChat() ComponentHealth {
	if s.services == nil || s.services.Chat == nil || !s.services.Chat.Configured() {
		return ComponentHealth{Status: statusDegraded, Message: "chat assistant not configured"}
	}
	return ComponentHealth{Status: statusHealthy}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
