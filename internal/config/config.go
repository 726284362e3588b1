package config

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of the application configuration. API keys resolve in
// precedence order: Vault when configured, then the config file, then
// environment variables (PREPFORGE_AI_APIKEY, legacy GEMINI_API_KEY), then
// defaults.
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds the global AI settings plus one override block per
// operation. Operation blocks inherit every unset value from the globals.
type AIConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	Analyze    OperationAIConfig `mapstructure:"analyze"`
	StudyPlan  OperationAIConfig `mapstructure:"studyPlan"`
	Quiz       OperationAIConfig `mapstructure:"quiz"`
	Challenges OperationAIConfig `mapstructure:"challenges"`
	Execute    OperationAIConfig `mapstructure:"execute"`
	Hint       OperationAIConfig `mapstructure:"hint"`
}

// OperationAIConfig overrides the global AI settings for a single operation.
// Pointer fields distinguish "not set" from an explicit zero value.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig tunes the per-operation breaker around the AI provider.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // allowed through while half-open
	Interval         time.Duration `mapstructure:"interval"`         // count-reset period while closed
	Timeout          time.Duration `mapstructure:"timeout"`          // open duration before probing again
	MinRequests      uint32        `mapstructure:"minRequests"`      // observations required before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // failure ratio that trips, 0.0-1.0
}

// PromptConfig carries custom prompt text, inline or from files.
type PromptConfig struct {
	SystemPrompts SystemPrompts `mapstructure:"systemPrompts"`
	UserPrompts   UserPrompts   `mapstructure:"userPrompts"`
}

// SystemPrompts holds the per-operation system instructions. The *File
// variants name files whose content replaces the inline value at load time.
type SystemPrompts struct {
	AnalyzeJob         string `mapstructure:"analyzeJob"`
	AnalyzeJobFile     string `mapstructure:"analyzeJobFile"`
	StudyPlan          string `mapstructure:"studyPlan"`
	StudyPlanFile      string `mapstructure:"studyPlanFile"`
	Quiz               string `mapstructure:"quiz"`
	QuizFile           string `mapstructure:"quizFile"`
	CodeChallenges     string `mapstructure:"codeChallenges"`
	CodeChallengesFile string `mapstructure:"codeChallengesFile"`
	ExecuteCode        string `mapstructure:"executeCode"`
	ExecuteCodeFile    string `mapstructure:"executeCodeFile"`
	Hint               string `mapstructure:"hint"`
	HintFile           string `mapstructure:"hintFile"`
}

// UserPrompts holds the per-operation user prompt templates, with the same
// inline-or-file convention as SystemPrompts.
type UserPrompts struct {
	AnalyzeJob         string `mapstructure:"analyzeJob"`
	AnalyzeJobFile     string `mapstructure:"analyzeJobFile"`
	StudyPlan          string `mapstructure:"studyPlan"`
	StudyPlanFile      string `mapstructure:"studyPlanFile"`
	Quiz               string `mapstructure:"quiz"`
	QuizFile           string `mapstructure:"quizFile"`
	CodeChallenges     string `mapstructure:"codeChallenges"`
	CodeChallengesFile string `mapstructure:"codeChallengesFile"`
	ExecuteCode        string `mapstructure:"executeCode"`
	ExecuteCodeFile    string `mapstructure:"executeCodeFile"`
	Hint               string `mapstructure:"hint"`
	HintFile           string `mapstructure:"hintFile"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// Requests authenticate against any key in the list; an empty list
	// disables authentication.
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig tunes the token-bucket limiter in front of the AI endpoints.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`     // bucket per client address
	ByAPIKey       bool          `mapstructure:"byAPIKey"` // bucket per API key, wins over IP
	Window         time.Duration `mapstructure:"window"`
}

// TLSConfig holds TLS and mutual-TLS settings. Certificates come from files
// or, when Vault supplies them, from the *Content fields; content wins when
// both are set.
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server", or "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"` // client CA bundle, mutual mode only

	CertContent string `mapstructure:"certContent"` // PEM, typically Vault-sourced
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string   `mapstructure:"minVersion"` // "1.2" or "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // "require", "request", or "verify"

	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"` // development only
	ServerName         string `mapstructure:"serverName"`

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls how certificate rotation is picked up while the
// server runs.
type AutoReloadConfig struct {
	Enabled           bool               `mapstructure:"enabled"`
	CheckInterval     time.Duration      `mapstructure:"checkInterval"`     // expiry gauge refresh period
	PreemptiveRenewal time.Duration      `mapstructure:"preemptiveRenewal"` // reload this long before expiry
	FileWatcher       FileWatcherConfig  `mapstructure:"fileWatcher"`
	VaultWatcher      VaultWatcherConfig `mapstructure:"vaultWatcher"`
}

// FileWatcherConfig controls fsnotify watching of the certificate files.
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"` // quiet period before reloading
}

// VaultWatcherConfig controls version polling of the Vault TLS secret.
type VaultWatcherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	SecretPath   string        `mapstructure:"secretPath"` // KVv2 path holding cert, key, and ca
}

// AppConfig holds the general application settings shared by the CLI and
// the server.
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig groups the tracing, metrics, and exporter settings.
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig gates span collection and its sampling rate.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig controls metric collection and the push interval for
// periodic exporters.
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig controls the stdout exporters used during development.
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig gates the custom instrument groups individually.
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig gates the AI-operation instruments.
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackModelInfo  bool `mapstructure:"trackModelInfo"`
}

// BusinessMetricsConfig gates the domain counters.
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackFallbacks    bool `mapstructure:"trackFallbacks"`
}

// InfrastructureMetricsConfig gates the rate-limit and certificate gauges.
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackCertExpiry bool `mapstructure:"trackCertExpiry"`
}

// PrometheusConfig configures the pull-based scrape endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig configures the OTLP/HTTP exporters for traces and metrics.
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig budgets the health endpoint: Timeout caps the whole
// sweep, AIModelCheckTimeout caps each individual model probe.
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// newConfigViper builds the viper instance with defaults, environment
// handling, and the config file search paths.
func newConfigViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PREPFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/prepforge/")
	v.AddConfigPath("$HOME/.prepforge")
	v.AddConfigPath(".")

	return v
}

// LoadConfig reads the config file and environment, then runs fallbacks,
// prompt loading, and validation over the result.
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := newConfigViper()

	fileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		fileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", fileUsed)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Legacy environment variables and derived values
	cfg.applyFallbacks()
	cfg.logConfigurationSources(fileUsed)

	// Prompt files are validated up front so a typo in a path fails startup
	// instead of silently falling back to the default prompt
	if err := cfg.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	if err := cfg.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &cfg, nil
}

// Validate checks if the configuration is valid.
// A missing AI API key is deliberately not an error: the service starts
// and every generation degrades to its fallback value.
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
