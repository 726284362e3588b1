package ai

import (
	"log/slog"
	"testing"
	"time"

	"prepforge/internal/config"
	"prepforge/internal/errors"
)

// ptr builds a pointer to v for the optional OperationAIConfig fields.
func ptr[T any](v T) *T { return &v }

var testLogger = errors.NewLogger(slog.LevelDebug)

// TestOperationConfigDerivation checks that per-operation settings override
// the global AI block while unset fields inherit from it, and that the
// service factory accepts every derived config.
func TestOperationConfigDerivation(t *testing.T) {
	cfg := &config.Config{
		AI: config.AIConfig{
			Provider:         "gemini",
			Model:            "base-model",
			Timeout:          50 * time.Second,
			APIKey:           "shared-key",
			MaxRetries:       4,
			Temperature:      0.7,
			UseSystemPrompts: true,

			Analyze: config.OperationAIConfig{
				Model:       "vision-model",
				Timeout:     ptr(90 * time.Second),
				Temperature: ptr[float32](0.3),
			},
			Quiz: config.OperationAIConfig{
				Model:      "quiz-model",
				MaxRetries: ptr(1),
			},
			// Hint has no overrides and must inherit everything.
		},
	}

	tests := []struct {
		name        string
		derive      func() config.OperationAIConfig
		model       string
		timeout     time.Duration
		temperature float32
		maxRetries  int
	}{
		{
			name:        "analyze overrides model timeout and temperature",
			derive:      cfg.GetAnalyzeConfig,
			model:       "vision-model",
			timeout:     90 * time.Second,
			temperature: 0.3,
			maxRetries:  4,
		},
		{
			name:        "quiz overrides model and retries",
			derive:      cfg.GetQuizConfig,
			model:       "quiz-model",
			timeout:     50 * time.Second,
			temperature: 0.7,
			maxRetries:  1,
		},
		{
			name:        "hint inherits all globals",
			derive:      cfg.GetHintConfig,
			model:       "base-model",
			timeout:     50 * time.Second,
			temperature: 0.7,
			maxRetries:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := tt.derive()

			if op.Model != tt.model {
				t.Errorf("Model = %q, want %q", op.Model, tt.model)
			}
			if got := *op.Timeout; got != tt.timeout {
				t.Errorf("Timeout = %v, want %v", got, tt.timeout)
			}
			if got := *op.Temperature; got != tt.temperature {
				t.Errorf("Temperature = %v, want %v", got, tt.temperature)
			}
			if got := *op.MaxRetries; got != tt.maxRetries {
				t.Errorf("MaxRetries = %d, want %d", got, tt.maxRetries)
			}
			if op.APIKey != "shared-key" {
				t.Errorf("APIKey = %q, want the shared global key", op.APIKey)
			}

			svc, err := NewService(&op, "derivation-check", testLogger)
			if err != nil {
				t.Fatalf("NewService rejected derived config: %v", err)
			}
			if err := svc.Close(); err != nil {
				t.Errorf("Close() = %v", err)
			}
		})
	}
}

// TestServiceWiresCircuitBreakers checks that a freshly built service carries
// both breakers, named per operation and initially healthy.
func TestServiceWiresCircuitBreakers(t *testing.T) {
	opConfig := &config.OperationAIConfig{
		Provider:         "gemini",
		Model:            "gemini-fixture",
		Timeout:          ptr(30 * time.Second),
		APIKey:           "fixture-key",
		MaxRetries:       ptr(1),
		Temperature:      ptr[float32](0.5),
		UseSystemPrompts: ptr(true),
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      5,
			Interval:         20 * time.Second,
			Timeout:          40 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.8,
		},
	}

	service, err := NewService(opConfig, "test-op", testLogger)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	if got := service.config.CircuitBreaker.MaxRequests; got != 5 {
		t.Errorf("breaker MaxRequests = %d, want 5", got)
	}
	if got := service.config.CircuitBreaker.FailureThreshold; got != 0.8 {
		t.Errorf("breaker FailureThreshold = %f, want 0.8", got)
	}

	geminiProvider, ok := service.Provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("provider is %T, want *GeminiProvider", service.Provider)
	}
	stats := geminiProvider.GetCircuitBreakerStats()

	for statsKey, wantName := range map[string]string{
		"ai_operations":    "AI-test-op",
		"model_operations": "AI-Model-test-op",
	} {
		section, ok := stats[statsKey].(map[string]any)
		if !ok {
			t.Fatalf("stats[%q] is %T, want map[string]any", statsKey, stats[statsKey])
		}
		if name, _ := section["name"].(string); name != wantName {
			t.Errorf("stats[%q] name = %q, want %q", statsKey, name, wantName)
		}
	}

	if healthy, _ := stats["overall_healthy"].(bool); !healthy {
		t.Error("breakers should report healthy before any traffic")
	}
}
