package server

import (
	"fmt"

	"prepforge/internal/utils"
)

// displayServerInfo prints the endpoint map and security posture at startup.
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displaySecurityInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health             - Health check")
	fmt.Println("  GET  /stats              - Server statistics")
	fmt.Println("  GET  /session            - Current session snapshot (requires API key)")
	fmt.Println("  POST /prepare            - Run a full preparation (requires API key)")
	fmt.Println("  POST /quiz/refresh       - Regenerate the quiz (requires API key)")
	fmt.Println("  POST /challenges/refresh - Regenerate the challenge set (requires API key)")
	fmt.Println("  POST /execute            - Simulate a code run (requires API key)")
	fmt.Println("  POST /hint               - Get a coding hint (requires API key)")
	fmt.Println("  POST /reset              - Clear the session (requires API key)")
}

// displaySecurityInfo reports auth, request size, and rate limit settings,
// with loud warnings for anything left open.
func (s *Server) displaySecurityInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Clients authenticate with the X-API-Key header or a bearer token")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}

	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: requests of any size will be accepted!")
	}

	rl := s.RateLimit
	if rl != nil && rl.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			rl.RequestsPerMin, rl.BurstCapacity)
		if rl.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if rl.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: model-backed endpoints can be called without limits!")
	}
}
