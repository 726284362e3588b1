package ai

import (
	"context"

	"prepforge/internal/types"
)

// AIProvider interface for different AI implementations
// All methods now return token usage information - callers can ignore it if not needed
type AIProvider interface {
	AnalyzeJob(ctx context.Context, input types.AnalyzeJobInput) (types.JobAnalysis, *TokenUsage, error)
	GenerateStudyPlan(ctx context.Context, analysis types.JobAnalysis) (types.TrainingPlan, *TokenUsage, error)
	GenerateQuiz(ctx context.Context, analysis types.JobAnalysis) ([]types.QuizQuestion, *TokenUsage, error)
	GenerateCodeChallenges(ctx context.Context, analysis types.JobAnalysis) ([]types.CodeChallenge, *TokenUsage, error)
	ExecuteCode(ctx context.Context, input types.ExecuteCodeInput) (types.ExecutionResult, *TokenUsage, error)
	GenerateHint(ctx context.Context, input types.HintInput) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
