package ai

import (
	"context"
	"fmt"
	"strings"

	"prepforge/internal/config"
	"prepforge/internal/errors"
	"prepforge/internal/types"
)

// Client bundles one AI service per generation operation. Its methods always
// return usable content: when a provider is unavailable or its response fails
// sanitization, the operation's deterministic fallback is returned instead.
// The error return carries the underlying failure for logging and metrics
// only, never for caller control flow.
type Client struct {
	Analyze    *Service
	StudyPlan  *Service
	Quiz       *Service
	Challenges *Service
	Execute    *Service
	Hint       *Service

	// OnFallback, when set, is invoked each time an operation serves
	// fallback content instead of a model response. Set it before the
	// client handles traffic; it is read concurrently afterwards.
	OnFallback func(ctx context.Context, operation string)

	logger *errors.Logger
}

// NewClient builds the per-operation services. A service that cannot be built
// (missing API key, unsupported provider) is left nil and its operation
// serves fallback content; construction never blocks startup.
func NewClient(cfg *config.Config, logger *errors.Logger) *Client {
	c := &Client{logger: logger}

	c.Analyze = c.newService(cfg.GetAnalyzeConfig(), "analyze")
	c.StudyPlan = c.newService(cfg.GetStudyPlanConfig(), "studyplan")
	c.Quiz = c.newService(cfg.GetQuizConfig(), "quiz")
	c.Challenges = c.newService(cfg.GetChallengesConfig(), "challenges")
	c.Execute = c.newService(cfg.GetExecuteConfig(), "execute")
	c.Hint = c.newService(cfg.GetHintConfig(), "hint")

	return c
}

func (c *Client) newService(cfg config.OperationAIConfig, operationType string) *Service {
	svc, err := NewService(&cfg, operationType, c.logger)
	if err != nil {
		c.logger.Warn("AI service unavailable, operation will serve fallback content",
			"operation_type", operationType,
			"error", err.Error())
		return nil
	}
	return svc
}

func errServiceUnavailable(operationType string) error {
	return errors.NewAIError(errors.ErrCodeAIServiceFailed,
		fmt.Sprintf("AI service for operation '%s' is not available", operationType), nil)
}

func (c *Client) fellBack(ctx context.Context, operation string) {
	if c.OnFallback != nil {
		c.OnFallback(ctx, operation)
	}
}

// AnalyzeJob analyzes a job posting for the candidate. The company name the
// caller supplied always wins over whatever the model extracted.
func (c *Client) AnalyzeJob(ctx context.Context, input types.AnalyzeJobInput) (types.JobAnalysis, *TokenUsage, error) {
	if c.Analyze == nil {
		c.fellBack(ctx, "analyze")
		return FallbackAnalysis(input.CompanyName), nil, errServiceUnavailable("analyze")
	}

	analysis, usage, err := c.Analyze.Provider.AnalyzeJob(ctx, input)
	if err != nil {
		c.logger.Warn("Serving fallback job analysis", "error", err.Error())
		c.fellBack(ctx, "analyze")
		return FallbackAnalysis(input.CompanyName), nil, err
	}

	return normalizeAnalysis(analysis, input.CompanyName), usage, nil
}

// GenerateStudyPlan generates the week-by-week study plan for an analysis
func (c *Client) GenerateStudyPlan(ctx context.Context, analysis types.JobAnalysis) (types.TrainingPlan, *TokenUsage, error) {
	if c.StudyPlan == nil {
		c.fellBack(ctx, "studyplan")
		return FallbackTrainingPlan(), nil, errServiceUnavailable("studyplan")
	}

	plan, usage, err := c.StudyPlan.Provider.GenerateStudyPlan(ctx, analysis)
	if err != nil {
		c.logger.Warn("Serving fallback study plan", "error", err.Error())
		c.fellBack(ctx, "studyplan")
		return FallbackTrainingPlan(), nil, err
	}

	return normalizePlan(plan), usage, nil
}

// GenerateQuiz generates the screening quiz for an analysis. Malformed
// questions are dropped rather than failing the batch.
func (c *Client) GenerateQuiz(ctx context.Context, analysis types.JobAnalysis) ([]types.QuizQuestion, *TokenUsage, error) {
	if c.Quiz == nil {
		c.fellBack(ctx, "quiz")
		return FallbackQuiz(), nil, errServiceUnavailable("quiz")
	}

	questions, usage, err := c.Quiz.Provider.GenerateQuiz(ctx, analysis)
	if err != nil {
		c.logger.Warn("Serving fallback quiz", "error", err.Error())
		c.fellBack(ctx, "quiz")
		return FallbackQuiz(), nil, err
	}

	clean := sanitizeQuiz(questions)
	if dropped := len(questions) - len(clean); dropped > 0 {
		c.logger.Warn("Dropped malformed quiz questions",
			"dropped", dropped,
			"kept", len(clean))
	}

	return clean, usage, nil
}

// GenerateCodeChallenges generates the practice challenge set for an
// analysis. The result is exactly three challenges or the fallback set.
func (c *Client) GenerateCodeChallenges(ctx context.Context, analysis types.JobAnalysis) ([]types.CodeChallenge, *TokenUsage, error) {
	if c.Challenges == nil {
		c.fellBack(ctx, "challenges")
		return FallbackChallenges(), nil, errServiceUnavailable("challenges")
	}

	challenges, usage, err := c.Challenges.Provider.GenerateCodeChallenges(ctx, analysis)
	if err != nil {
		c.logger.Warn("Serving fallback challenges", "error", err.Error())
		c.fellBack(ctx, "challenges")
		return FallbackChallenges(), nil, err
	}

	clean, ok := sanitizeChallenges(challenges)
	if !ok {
		err := errors.NewAIError(errors.ErrCodeAIServiceFailed,
			fmt.Sprintf("challenge generation returned %d usable challenges, want 3", len(challenges)), nil)
		c.logger.Warn("Serving fallback challenges", "error", err.Error())
		c.fellBack(ctx, "challenges")
		return FallbackChallenges(), usage, err
	}

	return clean, usage, nil
}

// ExecuteCode simulates running a challenge submission
func (c *Client) ExecuteCode(ctx context.Context, input types.ExecuteCodeInput) (types.ExecutionResult, *TokenUsage, error) {
	if c.Execute == nil {
		c.fellBack(ctx, "execute")
		return FallbackExecution(), nil, errServiceUnavailable("execute")
	}

	result, usage, err := c.Execute.Provider.ExecuteCode(ctx, input)
	if err != nil {
		c.logger.Warn("Serving fallback execution result", "error", err.Error())
		c.fellBack(ctx, "execute")
		return FallbackExecution(), nil, err
	}

	return normalizeExecution(result), usage, nil
}

// GenerateHint produces a short tutoring hint for a submission in progress
func (c *Client) GenerateHint(ctx context.Context, input types.HintInput) (string, *TokenUsage, error) {
	if c.Hint == nil {
		c.fellBack(ctx, "hint")
		return FallbackHint(), nil, errServiceUnavailable("hint")
	}

	hint, usage, err := c.Hint.Provider.GenerateHint(ctx, input)
	if err != nil {
		c.logger.Warn("Serving fallback hint", "error", err.Error())
		c.fellBack(ctx, "hint")
		return FallbackHint(), nil, err
	}

	hint = strings.TrimSpace(hint)
	if hint == "" {
		c.fellBack(ctx, "hint")
		return FallbackHint(), usage, nil
	}

	return hint, usage, nil
}

// Services returns the per-operation services keyed by operation type.
// Unbuilt services are present as nil values so callers can report them.
func (c *Client) Services() map[string]*Service {
	return map[string]*Service{
		"analyze":    c.Analyze,
		"studyplan":  c.StudyPlan,
		"quiz":       c.Quiz,
		"challenges": c.Challenges,
		"execute":    c.Execute,
		"hint":       c.Hint,
	}
}

// Close releases every constructed provider
func (c *Client) Close() error {
	var firstErr error
	for _, svc := range c.Services() {
		if svc == nil {
			continue
		}
		if err := svc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
