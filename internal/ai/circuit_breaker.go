package ai

import (
	"fmt"

	"prepforge/internal/config"
	"prepforge/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker guards one class of provider calls. A nil *Breaker means the
// circuit breaker is disabled and calls pass straight through.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func newBreaker[T any](name, operationType string, cfg *config.OperationAIConfig, ready func(gobreaker.Counts) bool, logger *errors.Logger) *Breaker[T] {
	policy := cfg.CircuitBreaker
	if !policy.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: policy.MaxRequests,
		Interval:    policy.Interval,
		Timeout:     policy.Timeout,
		ReadyToTrip: ready,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name, "operation_type", operationType,
				"from", from.String(), "to", to.String(),
				"max_requests", policy.MaxRequests,
				"failure_threshold", policy.FailureThreshold)
		},
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// NewGenerationBreaker creates the breaker for content generation calls,
// tripping on the thresholds configured for the operation
func NewGenerationBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	policy := cfg.CircuitBreaker
	ready := func(counts gobreaker.Counts) bool {
		ratio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= policy.MinRequests && ratio >= policy.FailureThreshold
	}
	return newBreaker[*genai.GenerateContentResponse](
		fmt.Sprintf("AI-%s", operationType), operationType, cfg, ready, logger)
}

// NewModelBreaker creates the breaker for model info lookups. Model info is
// advisory only, so the trip thresholds are more lenient than the configured ones.
func NewModelBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.Model] {
	ready := func(counts gobreaker.Counts) bool {
		ratio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && ratio >= 0.8
	}
	return newBreaker[*genai.Model](
		fmt.Sprintf("AI-Model-%s", operationType), operationType, cfg, ready, logger)
}

// Execute runs fn with circuit breaker protection
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		// Breaker disabled, just execute the function directly
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns circuit breaker statistics
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled": true,
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
	}
}

// Healthy returns true if the circuit breaker is in closed state
func (b *Breaker[T]) Healthy() bool {
	if b == nil || b.cb == nil {
		return true // No circuit breaker, consider it healthy
	}
	return b.cb.State() == gobreaker.StateClosed
}
