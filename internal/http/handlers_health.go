package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// pinger is implemented by stores backed by a database connection
type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name string, err error) {
		checks[name] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if len(s.pages) != len(pageNames) {
		fail("templates", fmt.Errorf("%d of %d pages loaded", len(s.pages), len(pageNames)))
	} else {
		checks["templates"] = "ok"
	}

	store := s.sessions.Store()
	if p, ok := store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			fail("session_store", err)
		}
	}
	if _, failed := checks["session_store"]; !failed {
		if n, err := store.Count(ctx); err != nil {
			fail("session_store", err)
		} else {
			checks["session_store"] = map[string]any{
				"sessions": n,
				"status":   "ok",
			}
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	sessions, err := s.sessions.Store().Count(r.Context())
	if err != nil {
		sessions = -1
	}

	w.WriteHeader(http.StatusOK)

	counter(w, "http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter(w, "http_errors_total", "Total number of HTTP responses with a 5xx status", traceMetrics.TotalErrors)
	gauge(w, "http_request_duration_avg_microseconds", "Average request duration in microseconds", float64(traceMetrics.AverageResponseTime))

	counter(w, "statement_uploads_total", "Statements ingested successfully", atomic.LoadInt64(&s.appMetrics.uploads))
	counter(w, "statement_uploads_rejected_total", "Statement uploads that failed", atomic.LoadInt64(&s.appMetrics.uploadsRejected))
	counter(w, "session_resets_total", "Sessions cleared by the user", atomic.LoadInt64(&s.appMetrics.resets))
	counter(w, "statement_exports_total", "XLSX exports served", atomic.LoadInt64(&s.appMetrics.exports))
	gauge(w, "sessions_active", "Stored sessions, -1 when the store is unavailable", float64(sessions))

	counter(w, "rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	gauge(w, "active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount))
	counter(w, "suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter(w, "invalid_ip_attempts_total", "Forwarded client addresses that failed to parse", securityMetrics.InvalidIPAttempts)

	if s.janitor != nil {
		jm := s.janitor.GetMetrics()
		counter(w, "session_janitor_runs_total", "Session sweeps performed", jm.Runs)
		counter(w, "session_janitor_swept_total", "Expired sessions removed", jm.TotalSwept)
		counter(w, "session_janitor_failures_total", "Session sweeps that failed", jm.Failures)
	}

	gauge(w, "uptime_seconds", "Application uptime in seconds", time.Since(s.appMetrics.uptime).Seconds())
}

func counter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

func gauge(w http.ResponseWriter, name, help string, value float64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	fmt.Fprintf(w, "%s %.0f\n\n", name, value)
}
