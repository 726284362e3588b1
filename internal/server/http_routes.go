package server

import (
	"net/http"
	"strings"

	"prepforge/internal/observability"
)

// setupRoutes builds the mux. Generation and tutoring endpoints share the
// full middleware chain; health and stats stay open for probes.
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	rateLimited := s.createRateLimitMiddleware(om)
	sizeLimited := s.requestSizeLimitMiddleware()
	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimited(s.authMiddleware(sizeLimited(h)))
	}

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/session", s.authMiddleware(s.sessionHandler))
	mux.HandleFunc("/prepare", protect(s.createPrepareHandler(om)))
	mux.HandleFunc("/quiz/refresh", protect(s.createQuizRefreshHandler(om)))
	mux.HandleFunc("/challenges/refresh", protect(s.createChallengesRefreshHandler(om)))
	mux.HandleFunc("/execute", protect(s.createExecuteHandler(om)))
	mux.HandleFunc("/hint", protect(s.createHintHandler(om)))
	mux.HandleFunc("/reset", rateLimited(s.authMiddleware(s.resetHandler)))

	return mux
}

// clientAPIKey pulls the key from the X-API-Key header, falling back to an
// Authorization Bearer token.
func clientAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

// authMiddleware enforces API key authentication. With no keys configured
// the server runs open.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		key := clientAPIKey(r)
		switch {
		case key == "":
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path, "client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
		case !s.APIKeys[key]:
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path, "client_ip", r.RemoteAddr, "api_key_prefix", maskAPIKey(key))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
		default:
			s.Logger.Debug("API authentication successful",
				"endpoint", r.URL.Path, "client_ip", r.RemoteAddr, "api_key_prefix", maskAPIKey(key))
			next(w, r)
		}
	}
}

// requestSizeLimitMiddleware caps request bodies at MaxRequestSize so a
// screenshot upload cannot balloon past the configured limit.
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limit := s.MaxRequestSize; limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next(w, r)
		}
	}
}

// maskAPIKey keeps only the first 8 characters for log lines
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}
