package http

import (
	"context"
	"net/http"
	"time"
)

// handleHealth is liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady probes every configured dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]any, len(s.checks)+2)
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	limiter := s.rateLimiter.GetMetrics()
	checks["rate_limiter"] = map[string]any{
		"active_clients": limiter.ClientCount,
		"limited_total":  limiter.TotalHits,
	}
	checks["requests"] = map[string]any{
		"total":      s.traceMiddleware.GetMetrics().TotalRequests,
		"suspicious": s.securityDetector.GetMetrics().SuspiciousRequests,
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
