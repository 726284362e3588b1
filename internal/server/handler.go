package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"prepforge/internal/observability"
	"prepforge/internal/types"
	"prepforge/internal/utils"

	prepforgeErrors "prepforge/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// statusForError maps pipeline errors onto HTTP status codes: invalid
// submissions are the client's fault, state conflicts (run in flight, no
// session to refresh) are 409, everything else is a server error.
func statusForError(err error) int {
	var appErr *prepforgeErrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case prepforgeErrors.ErrorTypeValidation:
			return http.StatusBadRequest
		case prepforgeErrors.ErrorTypeState:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// reject records err on the span, tags its class, and answers the client.
func reject(span trace.Span, w http.ResponseWriter, err error, class, title, detail string, status int) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", class))
	writeErrorResponse(w, title, detail, status)
}

// writeJSON answers with v rendered as JSON, recording an encoding failure
// on the span.
func writeJSON(w http.ResponseWriter, span trace.Span, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		span.RecordError(err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// createPrepareHandler wraps the full preparation run with observability
func (s *Server) createPrepareHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("prepforge.api")
		ctx, span := tracer.Start(ctx, "api.prepare")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req PrepareRequest
		if err := parseJSONRequest(r, &req); err != nil {
			reject(span, w, err, "validation", "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.CompanyName) == "" {
			reject(span, w, fmt.Errorf("missing company name"), "validation",
				"Missing company name", "companyName field is required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.JobDescription) == "" && len(req.ImageData) == 0 {
			reject(span, w, fmt.Errorf("missing job source"), "validation",
				"Missing job source", "either jobDescription or imageData is required", http.StatusBadRequest)
			return
		}

		if len(req.JobDescription) > int(s.MaxRequestSize/2) {
			reject(span, w, fmt.Errorf("job description too large: %d chars", len(req.JobDescription)),
				"validation", "Job description too large",
				fmt.Sprintf("jobDescription exceeds recommended size limit of %d characters", s.MaxRequestSize/2),
				http.StatusBadRequest)
			return
		}
		if int64(len(req.ImageData)) > s.MaxRequestSize {
			reject(span, w, fmt.Errorf("screenshot too large: %d bytes", len(req.ImageData)),
				"validation", "Screenshot too large",
				fmt.Sprintf("imageData exceeds size limit of %s", utils.FormatFileSize(s.MaxRequestSize)),
				http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.Int("request.image_bytes", len(req.ImageData)),
			attribute.String("operation", "prepare"),
		)

		input := types.AnalyzeJobInput{
			JobDescription: req.JobDescription,
			ImageData:      req.ImageData,
			ImageMIMEType:  req.ImageMIMEType,
			CompanyName:    req.CompanyName,
		}

		// Track the whole run: one blocking analysis plus the parallel
		// generation fan-out, with aggregated token usage
		metrics := om.GetMetrics()
		err := metrics.TrackAIOperationWithTokens(ctx, "prepare", func(ctx context.Context) *observability.AIOperationResult {
			usage, runErr := s.Pipeline.Run(ctx, input)
			return &observability.AIOperationResult{
				Error:      runErr,
				TokenUsage: (*observability.TokenUsage)(usage),
			}
		}, om)

		if err != nil {
			status := statusForError(err)
			switch status {
			case http.StatusConflict:
				reject(span, w, err, "state", "Preparation already in flight", err.Error(), status)
			case http.StatusBadRequest:
				reject(span, w, err, "validation", "Invalid preparation request", err.Error(), status)
			default:
				metrics.RecordBusinessMetric(ctx, "job_analyzed", false, om,
					attribute.String("error", err.Error()))
				reject(span, w, err, "ai_processing", "Failed to prepare session", err.Error(), status)
			}
			return
		}

		session := s.Pipeline.Snapshot()

		// Record success metrics for each produced artifact
		metrics.RecordBusinessMetric(ctx, "job_analyzed", true, om)
		metrics.RecordBusinessMetric(ctx, "study_plan_generated", true, om,
			attribute.Int("modules", len(session.StudyPlan)))
		metrics.RecordBusinessMetric(ctx, "quiz_generated", true, om,
			attribute.Int("questions", len(session.Quiz)))
		metrics.RecordBusinessMetric(ctx, "challenge_set_generated", true, om,
			attribute.Int("challenges", len(session.Challenges)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("session.state", string(session.State)),
			attribute.Int("response.modules", len(session.StudyPlan)),
			attribute.Int("response.questions", len(session.Quiz)),
			attribute.Int("response.challenges", len(session.Challenges)),
		)

		writeJSON(w, span, session)
	}
}

// createQuizRefreshHandler wraps quiz regeneration with observability
func (s *Server) createQuizRefreshHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("prepforge.api")
		ctx, span := tracer.Start(ctx, "api.quiz.refresh")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		span.SetAttributes(attribute.String("operation", "quiz_refresh"))

		metrics := om.GetMetrics()
		var applied bool
		err := metrics.TrackAIOperationWithTokens(ctx, "quiz", func(ctx context.Context) *observability.AIOperationResult {
			ok, usage, refreshErr := s.Pipeline.RefreshQuiz(ctx)
			applied = ok
			return &observability.AIOperationResult{
				Error:      refreshErr,
				TokenUsage: (*observability.TokenUsage)(usage),
			}
		}, om)

		if err != nil {
			reject(span, w, err, "state", "No session to refresh", err.Error(), statusForError(err))
			return
		}

		session := s.Pipeline.Snapshot()
		metrics.RecordBusinessMetric(ctx, "quiz_generated", true, om,
			attribute.Bool("applied", applied),
			attribute.Int("questions", len(session.Quiz)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Bool("refresh.applied", applied),
			attribute.Int("response.questions", len(session.Quiz)),
		)

		writeJSON(w, span, QuizRefreshResponse{
			Applied: applied,
			Quiz:    session.Quiz,
		})
	}
}

// createChallengesRefreshHandler wraps challenge regeneration with observability
func (s *Server) createChallengesRefreshHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("prepforge.api")
		ctx, span := tracer.Start(ctx, "api.challenges.refresh")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		span.SetAttributes(attribute.String("operation", "challenges_refresh"))

		metrics := om.GetMetrics()
		var applied bool
		err := metrics.TrackAIOperationWithTokens(ctx, "challenges", func(ctx context.Context) *observability.AIOperationResult {
			ok, usage, refreshErr := s.Pipeline.RefreshChallenges(ctx)
			applied = ok
			return &observability.AIOperationResult{
				Error:      refreshErr,
				TokenUsage: (*observability.TokenUsage)(usage),
			}
		}, om)

		if err != nil {
			reject(span, w, err, "state", "No session to refresh", err.Error(), statusForError(err))
			return
		}

		session := s.Pipeline.Snapshot()
		metrics.RecordBusinessMetric(ctx, "challenge_set_generated", true, om,
			attribute.Bool("applied", applied),
			attribute.Int("challenges", len(session.Challenges)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Bool("refresh.applied", applied),
			attribute.Int("response.challenges", len(session.Challenges)),
		)

		writeJSON(w, span, ChallengesRefreshResponse{
			Applied:    applied,
			Challenges: session.Challenges,
		})
	}
}

// createExecuteHandler wraps simulated code execution with observability.
// Execution is best-effort: a model failure degrades to the fallback result
// inside the AI client, so the handler answers 200 whenever the request
// itself is valid.
func (s *Server) createExecuteHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("prepforge.api")
		ctx, span := tracer.Start(ctx, "api.execute")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req ExecuteRequest
		if err := parseJSONRequest(r, &req); err != nil {
			reject(span, w, err, "validation", "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Code) == "" {
			reject(span, w, fmt.Errorf("missing code"), "validation",
				"Missing code", "code field is required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.ProblemDescription) == "" {
			reject(span, w, fmt.Errorf("missing problem description"), "validation",
				"Missing problem description", "problemDescription field is required", http.StatusBadRequest)
			return
		}
		language := types.Language(req.Language)
		if !language.Valid() {
			reject(span, w, fmt.Errorf("unsupported language: %q", req.Language), "validation",
				"Unsupported language", "language must be one of: python, javascript, java", http.StatusBadRequest)
			return
		}
		if len(req.Code) > int(s.MaxRequestSize/2) {
			reject(span, w, fmt.Errorf("code too large: %d chars", len(req.Code)), "validation",
				"Code too large",
				fmt.Sprintf("code exceeds recommended size limit of %d characters", s.MaxRequestSize/2),
				http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.code_length", len(req.Code)),
			attribute.String("request.language", string(language)),
			attribute.String("operation", "execute"),
		)

		input := types.ExecuteCodeInput{
			Code:               req.Code,
			Language:           language,
			ProblemDescription: req.ProblemDescription,
		}

		metrics := om.GetMetrics()
		var result types.ExecutionResult
		err := metrics.TrackAIOperationWithTokens(ctx, "execute", func(ctx context.Context) *observability.AIOperationResult {
			output, tokenUsage, aiErr := s.Pipeline.ExecuteCode(ctx, input)
			result = output
			return &observability.AIOperationResult{
				Error:      aiErr,
				TokenUsage: (*observability.TokenUsage)(tokenUsage),
			}
		}, om)

		// A tracked error means the fallback result was served, not that
		// the request failed
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("fallback", true))
		}
		metrics.RecordBusinessMetric(ctx, "execution_simulated", err == nil, om,
			attribute.String("status", string(result.Status)),
			attribute.String("language", string(language)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("execution.status", string(result.Status)),
			attribute.Int("execution.test_cases", len(result.TestCases)),
		)

		writeJSON(w, span, result)
	}
}

// createHintHandler wraps hint generation with observability. Like execution,
// hints degrade to a canned nudge rather than failing the request.
func (s *Server) createHintHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("prepforge.api")
		ctx, span := tracer.Start(ctx, "api.hint")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req HintRequest
		if err := parseJSONRequest(r, &req); err != nil {
			reject(span, w, err, "validation", "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Code) == "" {
			reject(span, w, fmt.Errorf("missing code"), "validation",
				"Missing code", "code field is required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.ProblemDescription) == "" {
			reject(span, w, fmt.Errorf("missing problem description"), "validation",
				"Missing problem description", "problemDescription field is required", http.StatusBadRequest)
			return
		}
		language := types.Language(req.Language)
		if !language.Valid() {
			reject(span, w, fmt.Errorf("unsupported language: %q", req.Language), "validation",
				"Unsupported language", "language must be one of: python, javascript, java", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.code_length", len(req.Code)),
			attribute.String("request.language", string(language)),
			attribute.String("operation", "hint"),
		)

		input := types.HintInput{
			Code:               req.Code,
			Language:           language,
			ProblemDescription: req.ProblemDescription,
		}

		metrics := om.GetMetrics()
		var hint string
		err := metrics.TrackAIOperationWithTokens(ctx, "hint", func(ctx context.Context) *observability.AIOperationResult {
			output, tokenUsage, aiErr := s.Pipeline.GenerateHint(ctx, input)
			hint = output
			return &observability.AIOperationResult{
				Error:      aiErr,
				TokenUsage: (*observability.TokenUsage)(tokenUsage),
			}
		}, om)

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("fallback", true))
		}
		metrics.RecordBusinessMetric(ctx, "hint_generated", err == nil, om,
			attribute.String("language", string(language)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.hint_length", len(hint)),
		)

		writeJSON(w, span, HintResponse{Hint: hint})
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	limit := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := limit(next)

		return func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter so a 429 written by the limiter is visible
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			limited(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		}
	}
}

// responseWrapper captures the status code written by the wrapped handler.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
