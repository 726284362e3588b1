package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prepforge/internal/ai"
	prepforgeErrors "prepforge/internal/errors"
	"prepforge/internal/observability"
	"prepforge/internal/pipeline"
	"prepforge/internal/types"
)

// cannedGenerator satisfies pipeline.Generator with fixed content so handlers
// can be exercised without a provider. AnalyzeJob optionally blocks to pin
// down in-flight behavior.
type cannedGenerator struct {
	analyzeStarted chan struct{}
	analyzeRelease chan struct{}
}

func (g *cannedGenerator) AnalyzeJob(ctx context.Context, input types.AnalyzeJobInput) (types.JobAnalysis, *ai.TokenUsage, error) {
	if g.analyzeStarted != nil {
		g.analyzeStarted <- struct{}{}
	}
	if g.analyzeRelease != nil {
		<-g.analyzeRelease
	}
	return types.JobAnalysis{
		Role:        "Backend Engineer",
		Company:     input.CompanyName,
		CompanyType: types.CompanyTypeProduct,
		Skills:      []string{"Go"},
		Summary:     "Backend role.",
	}, &ai.TokenUsage{TotalTokens: 10}, nil
}

func (g *cannedGenerator) GenerateStudyPlan(ctx context.Context, analysis types.JobAnalysis) (types.TrainingPlan, *ai.TokenUsage, error) {
	return types.TrainingPlan{StudyPlan: []types.StudyModule{
		{Week: "Week 1", Topic: "Data Structures", Description: "Arrays and maps", Resources: []string{"course"}},
	}}, nil, nil
}

func (g *cannedGenerator) GenerateQuiz(ctx context.Context, analysis types.JobAnalysis) ([]types.QuizQuestion, *ai.TokenUsage, error) {
	return []types.QuizQuestion{
		{ID: "q1", Category: types.QuizCategoryTechnical, Question: "What is a goroutine?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0, Explanation: "x"},
	}, nil, nil
}

func (g *cannedGenerator) GenerateCodeChallenges(ctx context.Context, analysis types.JobAnalysis) ([]types.CodeChallenge, *ai.TokenUsage, error) {
	starter := types.StarterCode{Python: "p", JavaScript: "j", Java: "v"}
	return []types.CodeChallenge{
		{Title: "A", Difficulty: types.DifficultyEasy, Description: "a", StarterCode: starter},
		{Title: "B", Difficulty: types.DifficultyMedium, Description: "b", StarterCode: starter},
		{Title: "C", Difficulty: types.DifficultyHard, Description: "c", StarterCode: starter},
	}, nil, nil
}

func (g *cannedGenerator) ExecuteCode(ctx context.Context, input types.ExecuteCodeInput) (types.ExecutionResult, *ai.TokenUsage, error) {
	return types.ExecutionResult{
		Status:    types.ExecutionSuccess,
		Summary:   "All test cases passed.",
		TestCases: []types.TestCaseResult{{Input: "1", ExpectedOutput: "1", ActualOutput: "1", Passed: true}},
	}, nil, nil
}

func (g *cannedGenerator) GenerateHint(ctx context.Context, input types.HintInput) (string, *ai.TokenUsage, error) {
	return "Check the loop bounds.", nil, nil
}

// newTestServer builds a server around a canned pipeline and a disabled
// observability manager (noop tracer and meter).
func newTestServer(t *testing.T, gen pipeline.Generator) (*Server, *observability.ObservabilityManager) {
	t.Helper()

	logger := prepforgeErrors.NewLogger(slog.LevelError)
	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("failed to create observability manager: %v", err)
	}

	return &Server{
		Version:        "test",
		Pipeline:       pipeline.New(gen, logger),
		MaxRequestSize: 1 << 20,
		Logger:         logger,
	}, om
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation error maps to 400",
			err:        prepforgeErrors.NewValidationError(prepforgeErrors.ErrCodeMissingCompany, "Company name is required", nil),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "state error maps to 409",
			err:        pipeline.ErrRunInFlight,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "wrapped state error maps to 409",
			err:        fmt.Errorf("refresh rejected: %w", pipeline.ErrNotReady),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "ai error maps to 500",
			err:        prepforgeErrors.NewAIError(prepforgeErrors.ErrCodeAIServiceFailed, "boom", nil),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "plain error maps to 500",
			err:        fmt.Errorf("something broke"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, got)
			}
		})
	}
}

func TestPrepareHandlerValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      PrepareRequest
		wantError string
	}{
		{
			name:      "missing company name",
			body:      PrepareRequest{JobDescription: "We are hiring."},
			wantError: "Missing company name",
		},
		{
			name:      "whitespace company name",
			body:      PrepareRequest{JobDescription: "We are hiring.", CompanyName: "   "},
			wantError: "Missing company name",
		},
		{
			name:      "missing job source",
			body:      PrepareRequest{CompanyName: "Initech"},
			wantError: "Missing job source",
		},
		{
			name:      "whitespace job description only",
			body:      PrepareRequest{JobDescription: " \n ", CompanyName: "Initech"},
			wantError: "Missing job source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, om := newTestServer(t, &cannedGenerator{})
			rec := postJSON(t, s.createPrepareHandler(om), "/prepare", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, resp.Error)
			}
			if state := s.Pipeline.Snapshot().State; state != pipeline.StateIdle {
				t.Errorf("rejected request must not touch the session, state is %s", state)
			}
		})
	}
}

func TestPrepareHandlerRejectsOversizedPayloads(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})
	s.MaxRequestSize = 64

	longText := make([]byte, 64)
	for i := range longText {
		longText[i] = 'x'
	}

	rec := postJSON(t, s.createPrepareHandler(om), "/prepare", PrepareRequest{
		JobDescription: string(longText),
		CompanyName:    "Initech",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Job description too large" {
		t.Errorf("expected size error, got %q", resp.Error)
	}

	rec = postJSON(t, s.createPrepareHandler(om), "/prepare", PrepareRequest{
		ImageData:   longText,
		CompanyName: "Initech",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Screenshot too large" {
		t.Errorf("expected size error, got %q", resp.Error)
	}
}

func TestPrepareHandlerRequiresPostAndJSON(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})
	handler := s.createPrepareHandler(om)

	req := httptest.NewRequest(http.MethodGet, "/prepare", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for GET, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/prepare", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for wrong content type, got %d", rec.Code)
	}
}

func TestPrepareHandlerReturnsReadySession(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})

	rec := postJSON(t, s.createPrepareHandler(om), "/prepare", PrepareRequest{
		JobDescription: "We are hiring a backend engineer.",
		CompanyName:    "Initech",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var session pipeline.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if session.State != pipeline.StateReady {
		t.Errorf("expected state Ready, got %s", session.State)
	}
	if session.Analysis == nil || session.Analysis.Company != "Initech" {
		t.Errorf("expected analysis for Initech, got %+v", session.Analysis)
	}
	if len(session.StudyPlan) != 1 || len(session.Quiz) != 1 || len(session.Challenges) != 3 {
		t.Errorf("unexpected artifact counts: plan=%d quiz=%d challenges=%d",
			len(session.StudyPlan), len(session.Quiz), len(session.Challenges))
	}
}

func TestPrepareHandlerReportsInFlightConflict(t *testing.T) {
	gen := &cannedGenerator{
		analyzeStarted: make(chan struct{}, 1),
		analyzeRelease: make(chan struct{}),
	}
	s, om := newTestServer(t, gen)
	handler := s.createPrepareHandler(om)

	firstDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		firstDone <- postJSON(t, handler, "/prepare", PrepareRequest{
			JobDescription: "We are hiring.",
			CompanyName:    "Initech",
		})
	}()

	select {
	case <-gen.analyzeStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first run to start")
	}

	rec := postJSON(t, handler, "/prepare", PrepareRequest{
		JobDescription: "We are hiring.",
		CompanyName:    "Initech",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409 for concurrent submission, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "Preparation already in flight" {
		t.Errorf("expected in-flight error, got %q", resp.Error)
	}

	close(gen.analyzeRelease)
	if first := <-firstDone; first.Code != http.StatusOK {
		t.Fatalf("expected first run to succeed, got %d", first.Code)
	}
}

func TestRefreshHandlersRequireReadySession(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
	}{
		{"quiz refresh", s.createQuizRefreshHandler(om), "/quiz/refresh"},
		{"challenges refresh", s.createChallengesRefreshHandler(om), "/challenges/refresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, tt.handler, tt.target, struct{}{})
			if rec.Code != http.StatusConflict {
				t.Fatalf("expected status 409 before any run, got %d", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Error != "No session to refresh" {
				t.Errorf("expected refresh error, got %q", resp.Error)
			}
		})
	}
}

func TestQuizRefreshHandlerReportsAppliedResult(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})
	if rec := postJSON(t, s.createPrepareHandler(om), "/prepare", PrepareRequest{
		JobDescription: "We are hiring.",
		CompanyName:    "Initech",
	}); rec.Code != http.StatusOK {
		t.Fatalf("prepare failed with status %d", rec.Code)
	}

	rec := postJSON(t, s.createQuizRefreshHandler(om), "/quiz/refresh", struct{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp QuizRefreshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode refresh response: %v", err)
	}
	if !resp.Applied {
		t.Error("expected refresh to be applied")
	}
	if len(resp.Quiz) != 1 {
		t.Errorf("expected refreshed quiz in response, got %d questions", len(resp.Quiz))
	}
}

func TestChallengesRefreshHandlerReportsAppliedResult(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})
	if rec := postJSON(t, s.createPrepareHandler(om), "/prepare", PrepareRequest{
		JobDescription: "We are hiring.",
		CompanyName:    "Initech",
	}); rec.Code != http.StatusOK {
		t.Fatalf("prepare failed with status %d", rec.Code)
	}

	rec := postJSON(t, s.createChallengesRefreshHandler(om), "/challenges/refresh", struct{}{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ChallengesRefreshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode refresh response: %v", err)
	}
	if !resp.Applied {
		t.Error("expected refresh to be applied")
	}
	if len(resp.Challenges) != 3 {
		t.Errorf("expected refreshed challenge set in response, got %d", len(resp.Challenges))
	}
}

func TestExecuteHandlerValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      ExecuteRequest
		wantError string
	}{
		{
			name:      "missing code",
			body:      ExecuteRequest{Language: "python", ProblemDescription: "p"},
			wantError: "Missing code",
		},
		{
			name:      "missing problem description",
			body:      ExecuteRequest{Code: "print(1)", Language: "python"},
			wantError: "Missing problem description",
		},
		{
			name:      "unsupported language",
			body:      ExecuteRequest{Code: "puts 1", Language: "ruby", ProblemDescription: "p"},
			wantError: "Unsupported language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, om := newTestServer(t, &cannedGenerator{})
			rec := postJSON(t, s.createExecuteHandler(om), "/execute", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if resp := decodeError(t, rec); resp.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, resp.Error)
			}
		})
	}
}

func TestExecuteHandlerReturnsSimulatedResult(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})

	rec := postJSON(t, s.createExecuteHandler(om), "/execute", ExecuteRequest{
		Code:               "print(1)",
		Language:           "python",
		ProblemDescription: "print a number",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result types.ExecutionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode execution result: %v", err)
	}
	if result.Status != types.ExecutionSuccess {
		t.Errorf("expected Success status, got %s", result.Status)
	}
	if len(result.TestCases) != 1 {
		t.Errorf("expected one test case, got %d", len(result.TestCases))
	}
}

func TestHintHandlerReturnsHint(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})

	rec := postJSON(t, s.createHintHandler(om), "/hint", HintRequest{
		Code:               "print(1)",
		Language:           "python",
		ProblemDescription: "print a number",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp HintResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode hint response: %v", err)
	}
	if resp.Hint != "Check the loop bounds." {
		t.Errorf("unexpected hint %q", resp.Hint)
	}
}

func TestSessionAndResetHandlers(t *testing.T) {
	s, om := newTestServer(t, &cannedGenerator{})

	// Fresh server reports an idle session.
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	s.sessionHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var session pipeline.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if session.State != pipeline.StateIdle {
		t.Errorf("expected state Idle, got %s", session.State)
	}

	if rec := postJSON(t, s.createPrepareHandler(om), "/prepare", PrepareRequest{
		JobDescription: "We are hiring.",
		CompanyName:    "Initech",
	}); rec.Code != http.StatusOK {
		t.Fatalf("prepare failed with status %d", rec.Code)
	}

	// Reset returns the cleared snapshot.
	rec = httptest.NewRecorder()
	s.resetHandler(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode reset response: %v", err)
	}
	if session.State != pipeline.StateIdle {
		t.Errorf("expected state Idle after reset, got %s", session.State)
	}
	if len(session.Quiz) != 0 || len(session.Challenges) != 0 {
		t.Error("expected artifacts cleared after reset")
	}

	// Method checks.
	rec = httptest.NewRecorder()
	s.sessionHandler(rec, httptest.NewRequest(http.MethodPost, "/session", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for POST /session, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	s.resetHandler(rec, httptest.NewRequest(http.MethodGet, "/reset", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for GET /reset, got %d", rec.Code)
	}
}
