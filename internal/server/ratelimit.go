package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"prepforge/internal/errors"

	"golang.org/x/time/rate"
)

// Endpoint costs in bucket tokens. A preparation run fans out into one
// analysis call plus three generator calls, so it drains four tokens; every
// other endpoint is a single model call.
const (
	costSingleCall = 1
	costPrepareRun = 4
)

// client pairs a token bucket with the time it last served a request, so
// idle buckets can be evicted.
type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out per-key token buckets. Keys are client IPs or API
// keys depending on configuration.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client

	refill rate.Limit
	burst  int

	done   chan struct{}
	logger *errors.Logger
}

// NewRateLimiter builds a limiter allowing requestsPerMin sustained requests
// with the given burst capacity. The window argument is accepted for config
// compatibility; bucket refill is derived from requestsPerMin alone.
func NewRateLimiter(requestsPerMin int, _ time.Duration, burstCapacity int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		refill:  rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   burstCapacity,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go rl.evictIdle(10 * time.Minute)
	return rl
}

// AllowN reports whether the key may spend cost tokens right now.
func (rl *RateLimiter) AllowN(key string, cost int) bool {
	rl.mu.Lock()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rl.refill, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()

	return c.bucket.AllowN(time.Now(), cost)
}

// Allow is AllowN with a cost of one token.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.AllowN(key, costSingleCall)
}

// GetStats reports live bucket counts and the configured rates.
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.clients),
		"rate_per_second": float64(rl.refill),
		"rate_per_minute": float64(rl.refill) * 60.0,
		"burst_capacity":  rl.burst,
	}
}

// evictIdle drops buckets that have not served a request within maxIdle.
// Runs until Close.
func (rl *RateLimiter) evictIdle(maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, c := range rl.clients {
				if now.Sub(c.lastSeen) > maxIdle {
					delete(rl.clients, key)
				}
			}
			remaining := len(rl.clients)
			rl.mu.Unlock()

			if rl.logger != nil {
				rl.logger.Debug("Rate limiter cleanup completed",
					"remaining_limiters", remaining)
			}
		}
	}
}

// Close stops the eviction goroutine. Should be called when shutting down the server.
func (rl *RateLimiter) Close() {
	close(rl.done)
}

// endpointCost maps a request path to its token cost.
func endpointCost(path string) int {
	if path == "/prepare" {
		return costPrepareRun
	}
	return costSingleCall
}

// rateLimitMiddleware enforces per-client token buckets in front of the
// model-backed endpoints.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.AllowN(key, endpointCost(r.URL.Path)) {
				s.Logger.Info("Rate limit exceeded",
					"key", key, "endpoint", r.URL.Path,
					"client_ip", clientIP(r))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// rateLimitKey picks the bucket key for a request. API keys take precedence
// over IPs when both dimensions are enabled.
func rateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if key := clientAPIKey(r); key != "" {
			return "api:" + key
		}
	}
	if byIP {
		return "ip:" + clientIP(r)
	}
	return ""
}

// clientIP resolves the caller's address, honoring proxy headers before
// falling back to the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for ip := range strings.SplitSeq(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
