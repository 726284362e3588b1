package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterSpendsBurstPerKey(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute, 4, nil)
	defer rl.Close()

	if !rl.AllowN("ip:10.0.0.1", costPrepareRun) {
		t.Fatal("A fresh bucket should cover one preparation run")
	}
	if rl.Allow("ip:10.0.0.1") {
		t.Error("The bucket should be drained after spending the full burst")
	}

	// Other keys are unaffected
	if !rl.Allow("ip:10.0.0.2") {
		t.Error("Draining one key should not affect another")
	}
}

func TestRateLimiterRejectsCostAboveBurst(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute, 2, nil)
	defer rl.Close()

	if rl.AllowN("ip:10.0.0.1", costPrepareRun) {
		t.Error("A cost larger than the burst capacity should never be allowed")
	}
	// The failed spend must not have consumed tokens
	if !rl.Allow("ip:10.0.0.1") {
		t.Error("A rejected spend should leave the bucket intact")
	}
}

func TestRateLimiterStats(t *testing.T) {
	rl := NewRateLimiter(120, time.Minute, 5, nil)
	defer rl.Close()

	rl.Allow("ip:10.0.0.1")
	rl.Allow("ip:10.0.0.2")

	stats := rl.GetStats()
	if got := stats["active_limiters"].(int); got != 2 {
		t.Errorf("active_limiters = %d, want 2", got)
	}
	if got := stats["rate_per_minute"].(float64); got != 120.0 {
		t.Errorf("rate_per_minute = %v, want 120", got)
	}
	if got := stats["burst_capacity"].(int); got != 5 {
		t.Errorf("burst_capacity = %d, want 5", got)
	}
}

func TestEndpointCost(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{"/prepare", costPrepareRun},
		{"/quiz/refresh", costSingleCall},
		{"/challenges/refresh", costSingleCall},
		{"/execute", costSingleCall},
		{"/hint", costSingleCall},
		{"/reset", costSingleCall},
	}

	for _, tt := range tests {
		if got := endpointCost(tt.path); got != tt.want {
			t.Errorf("endpointCost(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		byAPIKey bool
		byIP     bool
		headers  map[string]string
		want     string
	}{
		{
			name:     "api key header preferred",
			byAPIKey: true,
			byIP:     true,
			headers:  map[string]string{"X-API-Key": "key-123"},
			want:     "api:key-123",
		},
		{
			name:     "bearer token fallback",
			byAPIKey: true,
			headers:  map[string]string{"Authorization": "Bearer tok-456"},
			want:     "api:tok-456",
		},
		{
			name: "ip key when api key dimension disabled",
			byIP: true,
			want: "ip:192.0.2.10",
		},
		{
			name:     "ip fallback when no credential present",
			byAPIKey: true,
			byIP:     true,
			want:     "ip:192.0.2.10",
		},
		{
			name: "no dimensions enabled",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/prepare", nil)
			r.RemoteAddr = "192.0.2.10:54321"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := rateLimitKey(r, tt.byAPIKey, tt.byIP); got != tt.want {
				t.Errorf("rateLimitKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "first valid forwarded ip wins",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 203.0.113.7, 10.0.0.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "real ip header",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.3"},
			want:       "198.51.100.3",
		},
		{
			name:       "socket address fallback",
			remoteAddr: "192.0.2.20:9999",
			want:       "192.0.2.20",
		},
		{
			name:       "unparseable remote addr returned as-is",
			remoteAddr: "not-a-hostport",
			want:       "not-a-hostport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/health", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
