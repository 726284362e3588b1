package server

import (
	"time"

	"prepforge/internal/ai"
	"prepforge/internal/config"
	prepforgeErrors "prepforge/internal/errors"
	"prepforge/internal/pipeline"
	"prepforge/internal/types"
)

// PrepareRequest represents the request body for the prepare endpoint.
// Exactly one of JobDescription / ImageData carries the posting; ImageData
// travels base64-encoded per the standard JSON encoding of []byte.
type PrepareRequest struct {
	JobDescription string `json:"jobDescription,omitempty"`
	ImageData      []byte `json:"imageData,omitempty"`
	ImageMIMEType  string `json:"imageMimeType,omitempty"`
	CompanyName    string `json:"companyName"`
}

// ExecuteRequest represents the request body for the execute endpoint
type ExecuteRequest struct {
	Code               string `json:"code"`
	Language           string `json:"language"`
	ProblemDescription string `json:"problemDescription"`
}

// HintRequest represents the request body for the hint endpoint
type HintRequest struct {
	Code               string `json:"code"`
	Language           string `json:"language"`
	ProblemDescription string `json:"problemDescription"`
}

// HintResponse carries a generated hint
type HintResponse struct {
	Hint string `json:"hint"`
}

// QuizRefreshResponse reports whether the regenerated quiz was applied or
// dropped as stale; Quiz reflects the session after the call either way.
type QuizRefreshResponse struct {
	Applied bool                 `json:"applied"`
	Quiz    []types.QuizQuestion `json:"quiz"`
}

// ChallengesRefreshResponse is the challenge-set counterpart of
// QuizRefreshResponse.
type ChallengesRefreshResponse struct {
	Applied    bool                  `json:"applied"`
	Challenges []types.CodeChallenge `json:"challenges"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server carries everything the HTTP layer needs: the AI client, the
// pipeline, TLS and auth state, and the serving knobs from ServerConfig.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config

	// Both singletons: the client owns the per-operation circuit breakers,
	// the pipeline owns the single in-memory session.
	AIClient *ai.Client
	Pipeline *pipeline.Pipeline

	TLSConfig          config.TLSConfig
	CertificateManager *CertificateManager

	APIKeys map[string]bool

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *prepforgeErrors.Logger
}

// ServerConfig groups the constructor arguments for NewServer.
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// apiKeySet converts the configured key list to a lookup set, skipping
// blank entries.
func apiKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			set[key] = true
		}
	}
	return set
}

// NewServer builds a Server, wiring the AI client into a fresh pipeline and
// standing up the rate limiter when enabled.
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *prepforgeErrors.Logger) *Server {
	var limiter *RateLimiter
	if rl := cfg.RateLimit; rl != nil && rl.Enabled {
		limiter = NewRateLimiter(rl.RequestsPerMin, rl.Window, rl.BurstCapacity, logger)
	}

	aiClient := ai.NewClient(appCfg, logger)

	return &Server{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Version:   cfg.Version,
		AppConfig: appCfg,

		AIClient: aiClient,
		Pipeline: pipeline.New(aiClient, logger),

		TLSConfig: cfg.TLSConfig,
		APIKeys:   apiKeySet(cfg.APIKeys),

		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,

		RateLimit:   cfg.RateLimit,
		RateLimiter: limiter,

		Logger: logger,
	}
}
