package ai

import (
	"context"
	"fmt"

	"prepforge/internal/config"
	"prepforge/internal/errors"
)

// Service wraps one provider instance configured for a single operation.
// Each pipeline stage gets its own Service so model choice, temperature,
// and breaker state never bleed across operations.
type Service struct {
	Provider AIProvider // exported for the server package's health checks
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService builds the provider named by cfg.Provider for one operation.
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider, "operation_type", operationType,
		"model", cfg.Model, "temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout, "max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	if cfg.Provider != "gemini" {
		msg := fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider)
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, msg, nil)
	}

	provider, err := NewGeminiProvider(cfg, operationType, logger)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create AI provider", err)
	}

	return &Service{Provider: provider, config: cfg, logger: logger}, nil
}

// GetModelInfo reports model availability for health checks.
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases the underlying provider resources
func (s *Service) Close() error {
	return s.Provider.Close()
}
