package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"prepforge/internal/config"
	prepforgeErrors "prepforge/internal/errors"
	"prepforge/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API for one configured operation.
type GeminiProvider struct {
	client         *genai.Client
	httpClient     *http.Client
	config         *config.OperationAIConfig
	circuitBreaker *Breaker[*genai.GenerateContentResponse]
	modelBreaker   *Breaker[*genai.Model]
	logger         *prepforgeErrors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider builds a provider bound to one operation and its tuning.
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *prepforgeErrors.Logger) (*GeminiProvider, error) {
	// Without a key every call would fail after the full retry budget;
	// failing here lets callers route straight to fallback content.
	if cfg.APIKey == "" {
		return nil, prepforgeErrors.NewConfigError(prepforgeErrors.ErrCodeMissingAPIKey,
			"AI API key is not configured", nil)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, prepforgeErrors.NewAIError(prepforgeErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client: client,
		httpClient: &http.Client{
			Timeout: *cfg.Timeout,
		},
		config:         cfg,
		circuitBreaker: NewGenerationBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

// ModelInfo is the health-check view of the configured model.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model.
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	// Health checks arrive with their own deadline; add one only when the
	// caller brought none.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"display_name", info.DisplayName,
		"version", info.Version)

	return info
}

// AnalyzeJob implements AIProvider interface for job posting analysis.
// The posting arrives either as text or as a screenshot; with a screenshot
// the image is attached as a second content part.
func (g *GeminiProvider) AnalyzeJob(ctx context.Context, input types.AnalyzeJobInput) (types.JobAnalysis, *TokenUsage, error) {
	system, userTemplate := g.prompts("analyze")
	genCfg := g.buildAnalyzeSchema()

	// With a screenshot the posting text slot carries a reading instruction
	// and the image itself travels as a separate content part.
	posting := input.JobDescription
	if len(input.ImageData) > 0 {
		posting = "The job posting is attached as an image. Read all text from the image and treat it as the posting."
	}
	userPrompt := fmt.Sprintf(userTemplate, input.CompanyName, posting)

	contents := genai.Text(userPrompt)
	if len(input.ImageData) > 0 {
		mimeType := input.ImageMIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		contents = []*genai.Content{genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(userPrompt),
			genai.NewPartFromBytes(input.ImageData, mimeType),
		}, genai.RoleUser)}
	}

	output, tokenUsage, err := executeAIOperation[types.JobAnalysis](
		g,
		ctx,
		"analyze_job",
		contents,
		system,
		genCfg,
		attribute.Int("input.job_length", len(input.JobDescription)),
		attribute.Bool("input.has_image", len(input.ImageData) > 0),
	)
	if err != nil {
		return types.JobAnalysis{}, nil, err
	}

	// Result shape lands on the enclosing operation span.
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("analysis.company_type", string(output.CompanyType)),
			attribute.Int("analysis.skills_count", len(output.Skills)),
		)
	}

	return output, tokenUsage, nil
}

// GenerateStudyPlan implements AIProvider interface for study plan generation
func (g *GeminiProvider) GenerateStudyPlan(ctx context.Context, analysis types.JobAnalysis) (types.TrainingPlan, *TokenUsage, error) {
	system, userTemplate := g.prompts("studyplan")
	userPrompt := fmt.Sprintf(userTemplate, analysisBlock(analysis))

	output, tokenUsage, err := executeAIOperation[types.TrainingPlan](
		g,
		ctx,
		"study_plan",
		genai.Text(userPrompt),
		system,
		g.buildStudyPlanSchema(),
		attribute.String("input.company_type", string(analysis.CompanyType)),
		attribute.Int("input.skills_count", len(analysis.Skills)),
	)
	if err != nil {
		return types.TrainingPlan{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("plan.module_count", len(output.StudyPlan)))
	}

	return output, tokenUsage, nil
}

// quizResponse matches the quiz generation response schema
type quizResponse struct {
	Questions []types.QuizQuestion `json:"questions"`
}

// GenerateQuiz implements AIProvider interface for quiz generation.
// The category mix is steered by company type through a prompt directive.
func (g *GeminiProvider) GenerateQuiz(ctx context.Context, analysis types.JobAnalysis) ([]types.QuizQuestion, *TokenUsage, error) {
	system, userTemplate := g.prompts("quiz")
	userPrompt := fmt.Sprintf(userTemplate, quizEmphasis(analysis.CompanyType), analysisBlock(analysis))

	output, tokenUsage, err := executeAIOperation[quizResponse](
		g,
		ctx,
		"quiz",
		genai.Text(userPrompt),
		system,
		g.buildQuizSchema(),
		attribute.String("input.company_type", string(analysis.CompanyType)),
		attribute.Int("input.skills_count", len(analysis.Skills)),
	)
	if err != nil {
		return nil, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("quiz.question_count", len(output.Questions)))
	}

	return output.Questions, tokenUsage, nil
}

// challengesResponse matches the challenge generation response schema
type challengesResponse struct {
	Challenges []types.CodeChallenge `json:"challenges"`
}

// GenerateCodeChallenges implements AIProvider interface for coding challenge generation
func (g *GeminiProvider) GenerateCodeChallenges(ctx context.Context, analysis types.JobAnalysis) ([]types.CodeChallenge, *TokenUsage, error) {
	system, userTemplate := g.prompts("challenges")
	userPrompt := fmt.Sprintf(userTemplate, analysisBlock(analysis))

	output, tokenUsage, err := executeAIOperation[challengesResponse](
		g,
		ctx,
		"code_challenges",
		genai.Text(userPrompt),
		system,
		g.buildChallengesSchema(),
		attribute.String("input.company_type", string(analysis.CompanyType)),
		attribute.Int("input.skills_count", len(analysis.Skills)),
	)
	if err != nil {
		return nil, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("challenges.count", len(output.Challenges)))
	}

	return output.Challenges, tokenUsage, nil
}

// ExecuteCode implements AIProvider interface for code execution.
// The run is simulated: the model traces the submission against test cases it
// designs, acting as compiler and judge. No candidate code runs locally.
func (g *GeminiProvider) ExecuteCode(ctx context.Context, input types.ExecuteCodeInput) (types.ExecutionResult, *TokenUsage, error) {
	system, userTemplate := g.prompts("execute")
	userPrompt := fmt.Sprintf(userTemplate, input.Language, input.ProblemDescription, input.Code)

	output, tokenUsage, err := executeAIOperation[types.ExecutionResult](
		g,
		ctx,
		"execute_code",
		genai.Text(userPrompt),
		system,
		g.buildExecuteSchema(),
		attribute.String("input.language", string(input.Language)),
		attribute.Int("input.code_length", len(input.Code)),
	)
	if err != nil {
		return types.ExecutionResult{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("execution.status", string(output.Status)),
			attribute.Int("execution.test_case_count", len(output.TestCases)),
		)
	}

	return output, tokenUsage, nil
}

// hintResponse matches the hint generation response schema
type hintResponse struct {
	Hint string `json:"hint"`
}

// GenerateHint implements AIProvider interface for tutoring hints
func (g *GeminiProvider) GenerateHint(ctx context.Context, input types.HintInput) (string, *TokenUsage, error) {
	system, userTemplate := g.prompts("hint")
	userPrompt := fmt.Sprintf(userTemplate, input.Language, input.ProblemDescription, input.Code)

	output, tokenUsage, err := executeAIOperation[hintResponse](
		g,
		ctx,
		"hint",
		genai.Text(userPrompt),
		system,
		g.buildHintSchema(),
		attribute.String("input.language", string(input.Language)),
		attribute.Int("input.code_length", len(input.Code)),
	)
	if err != nil {
		return "", nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("hint.length", len(output.Hint)))
	}

	return output.Hint, tokenUsage, nil
}

// executeAIOperation runs one structured-output generation: trace span,
// circuit breaker, retries, and JSON decoding into the schema type. Contents
// rather than a plain prompt string so operations can attach image parts.
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	contents []*genai.Content,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out

	tracer := otel.Tracer("prepforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, contents, genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, prepforgeErrors.NewAIError(prepforgeErrors.ErrCodeAIServiceFailed, "Failed to generate content for "+operationName, err)
	}

	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, prepforgeErrors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse AI response for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// executeWithRetry retries a generation on transient failures with
// exponential backoff. Non-retryable errors (auth, invalid input) stop the
// loop immediately.
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= *g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", *g.config.MaxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1,
					"total_attempts", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !g.isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", *g.config.MaxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, *g.config.MaxRetries, lastErr)
}

// retryBackoff doubles per attempt with 10% crypto-random jitter, capped at
// 30 seconds.
func retryBackoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitterMax := big.NewInt(int64(float64(base) * 0.1))
	jitterBig, _ := rand.Int(rand.Reader, jitterMax)
	return min(base+time.Duration(jitterBig.Int64()), 30*time.Second)
}

// isRetryableError reports whether an error is transient. Network failures
// and throttling or 5xx API responses qualify; anything else is permanent.
func (g *GeminiProvider) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// GetCircuitBreakerStats exposes both breakers for the stats endpoint.
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"ai_operations":    g.circuitBreaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
	}

	// Healthy only when neither breaker is open
	stats["overall_healthy"] = g.circuitBreaker.Healthy() && g.modelBreaker.Healthy()

	return stats
}

// Close satisfies AIProvider.
func (g *GeminiProvider) Close() error {
	// The genai client holds no connection state in single-shot use, so
	// there is nothing to release yet.
	return nil
}

// analysisBlock renders a job analysis for injection into prompt templates
func analysisBlock(analysis types.JobAnalysis) string {
	return fmt.Sprintf("Role: %s\nCompany: %s\nCompany Type: %s\nKey Skills: %s\nSummary: %s",
		analysis.Role,
		analysis.Company,
		analysis.CompanyType,
		strings.Join(analysis.Skills, ", "),
		analysis.Summary)
}

// quizEmphasis returns the category weighting directive for the company type.
// Counts always total 40.
func quizEmphasis(companyType types.CompanyType) string {
	switch companyType {
	case types.CompanyTypeProduct:
		return "Weight the mix toward data structures and algorithms: roughly 8 Aptitude, 12 Technical, 12 Core CS, and 8 Domain questions."
	case types.CompanyTypeService:
		return "Weight the mix toward screening-test staples: roughly 14 Aptitude, 10 Technical, 8 Core CS, and 8 Domain questions."
	case types.CompanyTypeStartup:
		return "Weight the mix toward hands-on practical skills: roughly 8 Aptitude, 14 Technical, 8 Core CS, and 10 Domain questions."
	default:
		return "Balance the mix evenly: roughly 10 questions per category."
	}
}

// prompts resolves the system prompt and the user prompt template for one
// operation. File-loaded content wins over inline config, which wins over
// the built-in defaults.
func (g *GeminiProvider) prompts(promptType string) (system, user string) {
	loaded := config.GetPromptsForOperation(promptType)
	inline := g.config.CustomPrompts

	switch promptType {
	case "analyze":
		system = resolvePrompt(loaded.SystemPrompts.AnalyzeJob, inline.SystemPrompts.AnalyzeJob, DefaultSystemPrompts.AnalyzeJob)
		user = resolvePrompt(loaded.UserPrompts.AnalyzeJob, inline.UserPrompts.AnalyzeJob, DefaultUserPrompts.AnalyzeJob)
	case "studyplan":
		system = resolvePrompt(loaded.SystemPrompts.StudyPlan, inline.SystemPrompts.StudyPlan, DefaultSystemPrompts.StudyPlan)
		user = resolvePrompt(loaded.UserPrompts.StudyPlan, inline.UserPrompts.StudyPlan, DefaultUserPrompts.StudyPlan)
	case "quiz":
		system = resolvePrompt(loaded.SystemPrompts.Quiz, inline.SystemPrompts.Quiz, DefaultSystemPrompts.Quiz)
		user = resolvePrompt(loaded.UserPrompts.Quiz, inline.UserPrompts.Quiz, DefaultUserPrompts.Quiz)
	case "challenges":
		system = resolvePrompt(loaded.SystemPrompts.CodeChallenges, inline.SystemPrompts.CodeChallenges, DefaultSystemPrompts.CodeChallenges)
		user = resolvePrompt(loaded.UserPrompts.CodeChallenges, inline.UserPrompts.CodeChallenges, DefaultUserPrompts.CodeChallenges)
	case "execute":
		system = resolvePrompt(loaded.SystemPrompts.ExecuteCode, inline.SystemPrompts.ExecuteCode, DefaultSystemPrompts.ExecuteCode)
		user = resolvePrompt(loaded.UserPrompts.ExecuteCode, inline.UserPrompts.ExecuteCode, DefaultUserPrompts.ExecuteCode)
	case "hint":
		system = resolvePrompt(loaded.SystemPrompts.Hint, inline.SystemPrompts.Hint, DefaultSystemPrompts.Hint)
		user = resolvePrompt(loaded.UserPrompts.Hint, inline.UserPrompts.Hint, DefaultUserPrompts.Hint)
	}

	return system, user
}

// resolvePrompt picks the first non-empty candidate.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// TokenUsage aggregates the token counts reported by the model.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractTokenUsage pulls the usage metadata off a generation response.
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
