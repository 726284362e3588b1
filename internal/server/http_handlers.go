package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"prepforge/internal/ai"
)

// healthHandler reports service health: AI model reachability per operation,
// circuit breaker counters, and TLS certificate state when a certificate
// manager is running. Any unavailable model or unhealthy certificate degrades
// the overall status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	aiStatus := s.aiModelsHealth()
	response := map[string]any{
		"status":           "healthy",
		"service":          "prepforge",
		"version":          s.Version,
		"ai_models":        aiStatus,
		"circuit_breakers": s.circuitBreakerHealth(),
	}

	healthy := modelsAvailable(aiStatus)
	if certStatus := s.certificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, found := certStatus["healthy"].(bool); found && !ok {
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	s.respondJSON(w, code, response)
}

// aiModelsHealth probes model availability for every generation operation.
// Operations whose service could not be built (typically a missing API key)
// run on fallback content and show up as unavailable.
func (s *Server) aiModelsHealth() map[string]any {
	hc := s.AppConfig.Observability.HealthCheck
	ctx, cancel := context.WithTimeout(context.Background(), hc.Timeout)
	defer cancel()

	// Each model probe gets its own budget so one slow operation cannot
	// consume the whole health deadline.
	probeBudget := hc.AIModelCheckTimeout
	if probeBudget <= 0 {
		probeBudget = hc.Timeout
	}

	status := make(map[string]any)
	for operation, service := range s.AIClient.Services() {
		if service == nil {
			status[operation] = map[string]any{
				"available": false,
				"error":     fmt.Sprintf("AI service for operation '%s' was not initialized", operation),
			}
			continue
		}
		probeCtx, cancelProbe := context.WithTimeout(ctx, probeBudget)
		status[operation] = service.GetModelInfo(probeCtx)
		cancelProbe()
	}
	return status
}

// modelsAvailable is false when any operation reports an unavailable model.
// Entries are either *ai.ModelInfo from a live probe or a plain map for
// operations whose service never initialized.
func modelsAvailable(aiStatus map[string]any) bool {
	for _, v := range aiStatus {
		switch info := v.(type) {
		case *ai.ModelInfo:
			if !info.Available {
				return false
			}
		case map[string]any:
			if available, ok := info["available"].(bool); ok && !available {
				return false
			}
		}
	}
	return true
}

// circuitBreakerHealth reports the live breaker counters per operation.
func (s *Server) circuitBreakerHealth() map[string]any {
	status := make(map[string]any)
	for operation, service := range s.AIClient.Services() {
		if service == nil {
			status[operation] = map[string]any{
				"available": false,
				"error":     fmt.Sprintf("AI service for operation '%s' was not initialized", operation),
			}
			continue
		}
		if provider, ok := service.Provider.(*ai.GeminiProvider); ok {
			status[operation] = provider.GetCircuitBreakerStats()
		} else {
			status[operation] = map[string]any{
				"available": true,
				"message":   fmt.Sprintf("Circuit breaker integrated with %s service", operation),
			}
		}
	}
	return status
}

// expiryBands orders the certificate health thresholds from most to least
// urgent; the first band whose limit covers the remaining lifetime wins.
var expiryBands = []struct {
	limit   time.Duration
	healthy bool
	status  string
	message string
}{
	{0, false, "expired", "Certificate has expired"},
	{24 * time.Hour, false, "critical", "Certificate expires within 24 hours"},
	{7 * 24 * time.Hour, true, "warning", "Certificate expires within 7 days"},
}

// certificateHealth summarizes certificate expiry, watcher state, and reload
// counters. Returns nil when no certificate manager is running.
func (s *Server) certificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	status := make(map[string]any)

	remaining, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		status["healthy"] = false
		status["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return status
	}

	status["time_to_expiry_hours"] = int(remaining.Hours())
	status["time_to_expiry"] = remaining.String()

	status["healthy"] = true
	status["status"] = "ok"
	status["message"] = "Certificate is valid"
	for _, band := range expiryBands {
		if remaining <= band.limit {
			status["healthy"] = band.healthy
			status["status"] = band.status
			status["message"] = band.message
			break
		}
	}

	autoReload := map[string]any{"enabled": s.TLSConfig.AutoReload.Enabled}
	if s.TLSConfig.AutoReload.Enabled {
		autoReload["file_watcher_enabled"] = s.TLSConfig.AutoReload.FileWatcher.Enabled
		autoReload["vault_watcher_enabled"] = s.TLSConfig.AutoReload.VaultWatcher.Enabled
		for k, v := range s.CertificateManager.AutoReloadStatus() {
			autoReload[k] = v
		}
	}
	status["auto_reload"] = autoReload

	m := s.CertificateManager.GetMetrics()
	status["metrics"] = map[string]any{
		"reload_count":         m.ReloadCount,
		"reload_success_count": m.ReloadSuccessCount,
		"reload_failure_count": m.ReloadFailureCount,
		"last_reload_time":     m.LastReloadTime,
		"last_reload_success":  m.LastReloadSuccess,
		"last_reload_error":    m.LastReloadError,
	}

	return status
}

// sessionHandler returns a snapshot of the current preparation session.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, s.Pipeline.Snapshot())
}

// resetHandler clears the current session and returns the idle snapshot.
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.Pipeline.Reset()
	s.Logger.Info("Preparation session reset")

	s.respondJSON(w, http.StatusOK, s.Pipeline.Snapshot())
}

// statsHandler reports request limits, session state, and rate limiter
// counters.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rateLimiting := map[string]any{"enabled": false}
	if s.RateLimiter != nil {
		rateLimiting = s.RateLimiter.GetStats()
	}

	response := map[string]any{
		"service": "prepforge",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"session": map[string]any{
			"state": string(s.Pipeline.Snapshot().State),
		},
		"rate_limiting": rateLimiting,
	}

	if rl := s.RateLimit; rl != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          rl.Enabled,
			"requests_per_min": rl.RequestsPerMin,
			"burst_capacity":   rl.BurstCapacity,
			"by_ip":            rl.ByIP,
			"by_api_key":       rl.ByAPIKey,
		}
	}

	s.respondJSON(w, http.StatusOK, response)
}

// respondJSON writes v with the given status code. The content type goes out
// before the status line so degraded health responses stay JSON.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.LogError(err, "Failed to encode response")
	}
}

// parseJSONRequest decodes a JSON request body into v. Size-limit violations
// from http.MaxBytesReader surface as a descriptive error.
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// writeErrorResponse writes the standard error envelope. Encoding failures
// are logged only; the status line has already gone out.
func writeErrorResponse(w http.ResponseWriter, title, detail string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: title, Message: detail}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
