package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"prepforge/internal/ai"
	apperrors "prepforge/internal/errors"
	"prepforge/internal/types"
)

var testLogger = apperrors.NewLogger(slog.LevelError)

// fakeGenerator is a controllable Generator double. It records the order of
// calls and can block individual operations on channels to pin down
// interleavings.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []string

	analysis   types.JobAnalysis
	plan       types.TrainingPlan
	quiz       []types.QuizQuestion
	challenges []types.CodeChallenge

	analysisErr   error
	planErr       error
	quizErr       error
	challengesErr error

	panicOn string // operation that panics: "plan", "quiz", "challenges"

	analyzeStarted    chan struct{} // signaled when AnalyzeJob begins
	analyzeRelease    chan struct{} // AnalyzeJob blocks until closed
	quizStarted       chan struct{} // signaled when GenerateQuiz begins
	quizRelease       chan struct{} // GenerateQuiz blocks until closed
	challengesStarted chan struct{} // signaled when GenerateCodeChallenges begins
	challengesRelease chan struct{} // GenerateCodeChallenges blocks until closed
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		analysis: types.JobAnalysis{
			Role:        "Backend Engineer",
			Company:     "Initech",
			CompanyType: types.CompanyTypeProduct,
			Skills:      []string{"Go", "SQL"},
			Summary:     "Backend role focused on services.",
		},
		plan: types.TrainingPlan{StudyPlan: []types.StudyModule{
			{Week: "Week 1", Topic: "Data Structures", Description: "Arrays and maps", Resources: []string{"course"}},
		}},
		quiz: []types.QuizQuestion{
			{ID: "q1", Category: types.QuizCategoryTechnical, Question: "What is a goroutine?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0, Explanation: "x"},
		},
		challenges: []types.CodeChallenge{
			{Title: "A", Difficulty: types.DifficultyEasy, Description: "a", StarterCode: types.StarterCode{Python: "p", JavaScript: "j", Java: "v"}},
			{Title: "B", Difficulty: types.DifficultyMedium, Description: "b", StarterCode: types.StarterCode{Python: "p", JavaScript: "j", Java: "v"}},
			{Title: "C", Difficulty: types.DifficultyHard, Description: "c", StarterCode: types.StarterCode{Python: "p", JavaScript: "j", Java: "v"}},
		},
	}
}

func (f *fakeGenerator) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGenerator) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeGenerator) AnalyzeJob(ctx context.Context, input types.AnalyzeJobInput) (types.JobAnalysis, *ai.TokenUsage, error) {
	f.record("analyze.start")
	if f.analyzeStarted != nil {
		f.analyzeStarted <- struct{}{}
	}
	if f.analyzeRelease != nil {
		<-f.analyzeRelease
	}
	f.record("analyze.done")
	return f.analysis, &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, f.analysisErr
}

func (f *fakeGenerator) GenerateStudyPlan(ctx context.Context, analysis types.JobAnalysis) (types.TrainingPlan, *ai.TokenUsage, error) {
	f.record("plan.start")
	if f.panicOn == "plan" {
		panic("plan generator exploded")
	}
	return f.plan, &ai.TokenUsage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2}, f.planErr
}

func (f *fakeGenerator) GenerateQuiz(ctx context.Context, analysis types.JobAnalysis) ([]types.QuizQuestion, *ai.TokenUsage, error) {
	f.record("quiz.start")
	if f.quizStarted != nil {
		f.quizStarted <- struct{}{}
	}
	if f.quizRelease != nil {
		<-f.quizRelease
	}
	if f.panicOn == "quiz" {
		panic("quiz generator exploded")
	}
	return f.quiz, &ai.TokenUsage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2}, f.quizErr
}

func (f *fakeGenerator) GenerateCodeChallenges(ctx context.Context, analysis types.JobAnalysis) ([]types.CodeChallenge, *ai.TokenUsage, error) {
	f.record("challenges.start")
	if f.challengesStarted != nil {
		f.challengesStarted <- struct{}{}
	}
	if f.challengesRelease != nil {
		<-f.challengesRelease
	}
	if f.panicOn == "challenges" {
		panic("challenge generator exploded")
	}
	return f.challenges, &ai.TokenUsage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2}, f.challengesErr
}

func (f *fakeGenerator) ExecuteCode(ctx context.Context, input types.ExecuteCodeInput) (types.ExecutionResult, *ai.TokenUsage, error) {
	f.record("execute")
	return types.ExecutionResult{Status: types.ExecutionSuccess, Summary: "ok", TestCases: []types.TestCaseResult{}}, nil, nil
}

func (f *fakeGenerator) GenerateHint(ctx context.Context, input types.HintInput) (string, *ai.TokenUsage, error) {
	f.record("hint")
	return "Check the loop bounds.", nil, nil
}

func textInput() types.AnalyzeJobInput {
	return types.AnalyzeJobInput{
		JobDescription: "We are hiring a backend engineer.",
		CompanyName:    "Initech",
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestRunProducesReadySession(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)

	usage, err := p.Run(context.Background(), textInput())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if usage == nil || usage.TotalTokens != 15+2+2+2 {
		t.Errorf("expected aggregated token usage 21, got %+v", usage)
	}

	s := p.Snapshot()
	if s.State != StateReady {
		t.Fatalf("expected state Ready, got %s", s.State)
	}
	if s.Error != "" {
		t.Errorf("expected empty error message, got %q", s.Error)
	}
	if s.Analysis == nil || s.Analysis.Role != "Backend Engineer" {
		t.Errorf("expected stored analysis, got %+v", s.Analysis)
	}
	if len(s.StudyPlan) != 1 || len(s.Quiz) != 1 || len(s.Challenges) != 3 {
		t.Errorf("unexpected artifact counts: plan=%d quiz=%d challenges=%d",
			len(s.StudyPlan), len(s.Quiz), len(s.Challenges))
	}
}

func TestRunValidatesInputBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name     string
		input    types.AnalyzeJobInput
		wantCode string
	}{
		{
			name:     "blank company name",
			input:    types.AnalyzeJobInput{JobDescription: "text", CompanyName: "   "},
			wantCode: apperrors.ErrCodeMissingCompany,
		},
		{
			name:     "missing job source",
			input:    types.AnalyzeJobInput{CompanyName: "Initech"},
			wantCode: apperrors.ErrCodeMissingJobSource,
		},
		{
			name:     "whitespace job description only",
			input:    types.AnalyzeJobInput{JobDescription: "  \n ", CompanyName: "Initech"},
			wantCode: apperrors.ErrCodeMissingJobSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newFakeGenerator()
			p := New(gen, testLogger)

			_, err := p.Run(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %T", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, appErr.Code)
			}
			if calls := gen.recorded(); len(calls) != 0 {
				t.Errorf("expected no generator calls, got %v", calls)
			}
			if s := p.Snapshot(); s.State != StateIdle {
				t.Errorf("expected pipeline to stay Idle, got %s", s.State)
			}
		})
	}
}

func TestRunScreenshotInputIsAccepted(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)

	input := types.AnalyzeJobInput{
		ImageData:     []byte{0x89, 0x50, 0x4e, 0x47},
		ImageMIMEType: "image/png",
		CompanyName:   "Initech",
	}
	if _, err := p.Run(context.Background(), input); err != nil {
		t.Fatalf("Run with screenshot input failed: %v", err)
	}
	if s := p.Snapshot(); s.State != StateReady {
		t.Errorf("expected state Ready, got %s", s.State)
	}
}

func TestGeneratorsStartOnlyAfterAnalysisCompletes(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)

	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := gen.recorded()
	analyzeDone := -1
	for i, call := range calls {
		if call == "analyze.done" {
			analyzeDone = i
			break
		}
	}
	if analyzeDone < 0 {
		t.Fatalf("analyze.done not recorded, calls: %v", calls)
	}
	for i, call := range calls {
		if strings.HasSuffix(call, ".start") && call != "analyze.start" && i < analyzeDone {
			t.Errorf("generator %s started before analysis completed, calls: %v", call, calls)
		}
	}
}

func TestRunRejectsConcurrentSubmission(t *testing.T) {
	gen := newFakeGenerator()
	gen.analyzeStarted = make(chan struct{}, 1)
	gen.analyzeRelease = make(chan struct{})
	p := New(gen, testLogger)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), textInput())
		done <- err
	}()

	waitSignal(t, gen.analyzeStarted, "analysis to start")

	if s := p.Snapshot(); s.State != StateAnalyzing {
		t.Errorf("expected state Analyzing, got %s", s.State)
	}
	if _, err := p.Run(context.Background(), textInput()); !errors.Is(err, ErrRunInFlight) {
		t.Errorf("expected ErrRunInFlight, got %v", err)
	}

	close(gen.analyzeRelease)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Ready accepts a replacement submission.
	gen.analyzeStarted = nil
	gen.analyzeRelease = nil
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Errorf("run from Ready should be accepted, got %v", err)
	}
}

func TestRunRevertsToIdleWhenGeneratorPanics(t *testing.T) {
	for _, op := range []string{"plan", "quiz", "challenges"} {
		t.Run(op, func(t *testing.T) {
			gen := newFakeGenerator()
			gen.panicOn = op
			p := New(gen, testLogger)

			_, err := p.Run(context.Background(), textInput())
			if err == nil {
				t.Fatal("expected run to fail on generator panic")
			}
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeGenerationPanic {
				t.Errorf("expected GENERATION_PANIC error, got %v", err)
			}

			s := p.Snapshot()
			if s.State != StateIdle {
				t.Errorf("expected state Idle after panic, got %s", s.State)
			}
			if s.Error == "" {
				t.Error("expected a visible error message after panic")
			}
			if s.Analysis != nil {
				t.Error("aborted run must not leave its analysis behind")
			}

			// The pipeline stays usable for the next submission.
			gen.panicOn = ""
			if _, err := p.Run(context.Background(), textInput()); err != nil {
				t.Errorf("run after recovery failed: %v", err)
			}
		})
	}
}

func TestRunTreatsGeneratorErrorsAsDegradedContent(t *testing.T) {
	gen := newFakeGenerator()
	gen.analysisErr = errors.New("model unavailable")
	gen.planErr = errors.New("model unavailable")
	gen.quizErr = errors.New("model unavailable")
	gen.challengesErr = errors.New("model unavailable")
	// What a degraded AI client would hand back.
	gen.analysis = types.JobAnalysis{
		Role:        "Software Engineer",
		Company:     "Initech",
		CompanyType: types.CompanyTypeUnknown,
		Skills:      []string{"Problem Solving"},
		Summary:     "unavailable",
	}
	gen.plan = types.TrainingPlan{StudyPlan: []types.StudyModule{}}
	gen.quiz = []types.QuizQuestion{}
	gen.challenges = []types.CodeChallenge{{
		Title:       "Two Sum",
		Description: "classic",
		Difficulty:  types.DifficultyEasy,
		StarterCode: types.StarterCode{Python: "p", JavaScript: "j", Java: "v"},
	}}
	p := New(gen, testLogger)

	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("degraded generation must not fail the run, got %v", err)
	}

	s := p.Snapshot()
	if s.State != StateReady {
		t.Fatalf("expected state Ready with fallback content, got %s", s.State)
	}
	if len(s.Challenges) != 1 || s.Challenges[0].Title != "Two Sum" {
		t.Errorf("expected the Two Sum fallback challenge, got %+v", s.Challenges)
	}
	if len(s.StudyPlan) != 0 || len(s.Quiz) != 0 {
		t.Errorf("expected empty fallback plan and quiz, got plan=%d quiz=%d",
			len(s.StudyPlan), len(s.Quiz))
	}
}

func TestRefreshRequiresReadySession(t *testing.T) {
	p := New(newFakeGenerator(), testLogger)

	if _, _, err := p.RefreshQuiz(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady for quiz refresh, got %v", err)
	}
	if _, _, err := p.RefreshChallenges(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady for challenge refresh, got %v", err)
	}
}

func TestRefreshQuizAppliesNewQuestions(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	gen.quiz = []types.QuizQuestion{
		{ID: "q1", Category: types.QuizCategoryAptitude, Question: "fresh?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1, Explanation: "x"},
		{ID: "q2", Category: types.QuizCategoryDomain, Question: "newer?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2, Explanation: "y"},
	}

	applied, _, err := p.RefreshQuiz(context.Background())
	if err != nil {
		t.Fatalf("RefreshQuiz failed: %v", err)
	}
	if !applied {
		t.Fatal("expected refresh result to be applied")
	}
	if s := p.Snapshot(); len(s.Quiz) != 2 || s.Quiz[0].Question != "fresh?" {
		t.Errorf("expected refreshed quiz, got %+v", s.Quiz)
	}
}

func TestRefreshChallengesAppliesNewSet(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	gen.challenges = []types.CodeChallenge{
		{Title: "X", Difficulty: types.DifficultyEasy, Description: "x", StarterCode: types.StarterCode{Python: "p", JavaScript: "j", Java: "v"}},
		{Title: "Y", Difficulty: types.DifficultyMedium, Description: "y", StarterCode: types.StarterCode{Python: "p", JavaScript: "j", Java: "v"}},
		{Title: "Z", Difficulty: types.DifficultyHard, Description: "z", StarterCode: types.StarterCode{Python: "p", JavaScript: "j", Java: "v"}},
	}

	applied, _, err := p.RefreshChallenges(context.Background())
	if err != nil {
		t.Fatalf("RefreshChallenges failed: %v", err)
	}
	if !applied {
		t.Fatal("expected refresh result to be applied")
	}
	if s := p.Snapshot(); s.Challenges[0].Title != "X" {
		t.Errorf("expected refreshed challenges, got %+v", s.Challenges)
	}
}

func TestStaleQuizRefreshIsDropped(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	gen.quizStarted = make(chan struct{}, 1)
	gen.quizRelease = make(chan struct{})

	type refreshResult struct {
		applied bool
		err     error
	}
	done := make(chan refreshResult, 1)
	go func() {
		applied, _, err := p.RefreshQuiz(context.Background())
		done <- refreshResult{applied, err}
	}()

	waitSignal(t, gen.quizStarted, "quiz refresh to start generating")

	// Supersede the session while the refresh is still generating.
	p.Reset()
	close(gen.quizRelease)

	res := <-done
	if res.err != nil {
		t.Fatalf("RefreshQuiz failed: %v", res.err)
	}
	if res.applied {
		t.Error("expected stale refresh to be dropped")
	}

	// The cleared session must not be resurrected by the stale result.
	s := p.Snapshot()
	if s.State != StateIdle {
		t.Errorf("expected state Idle after reset, got %s", s.State)
	}
	if len(s.Quiz) != 0 {
		t.Errorf("expected empty quiz after reset, got %d questions", len(s.Quiz))
	}
}

func TestNewRunSupersedesInFlightQuizRefresh(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	gen.quizStarted = make(chan struct{}, 1)
	gen.quizRelease = make(chan struct{})

	type refreshResult struct {
		applied bool
		err     error
	}
	refreshDone := make(chan refreshResult, 1)
	go func() {
		applied, _, err := p.RefreshQuiz(context.Background())
		refreshDone <- refreshResult{applied, err}
	}()
	waitSignal(t, gen.quizStarted, "quiz refresh to start generating")

	// A replacement submission is accepted from Ready while the refresh is
	// still generating. Its own quiz generation blocks on the same gate, so
	// both finish once it opens.
	runDone := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), textInput())
		runDone <- err
	}()
	waitSignal(t, gen.quizStarted, "replacement run to start generating")

	close(gen.quizRelease)

	res := <-refreshDone
	if res.err != nil {
		t.Fatalf("RefreshQuiz failed: %v", res.err)
	}
	if res.applied {
		t.Error("expected refresh superseded by the new run to be dropped")
	}
	if err := <-runDone; err != nil {
		t.Fatalf("replacement run failed: %v", err)
	}

	s := p.Snapshot()
	if s.State != StateReady {
		t.Errorf("expected state Ready after replacement run, got %s", s.State)
	}
	if len(s.Quiz) != 1 {
		t.Errorf("expected the replacement run's quiz, got %d questions", len(s.Quiz))
	}
}

func TestNewRunSupersedesInFlightChallengeRefresh(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	gen.challengesStarted = make(chan struct{}, 1)
	gen.challengesRelease = make(chan struct{})

	type refreshResult struct {
		applied bool
		err     error
	}
	refreshDone := make(chan refreshResult, 1)
	go func() {
		applied, _, err := p.RefreshChallenges(context.Background())
		refreshDone <- refreshResult{applied, err}
	}()
	waitSignal(t, gen.challengesStarted, "challenge refresh to start generating")

	runDone := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), textInput())
		runDone <- err
	}()
	waitSignal(t, gen.challengesStarted, "replacement run to start generating")

	close(gen.challengesRelease)

	res := <-refreshDone
	if res.err != nil {
		t.Fatalf("RefreshChallenges failed: %v", res.err)
	}
	if res.applied {
		t.Error("expected refresh superseded by the new run to be dropped")
	}
	if err := <-runDone; err != nil {
		t.Fatalf("replacement run failed: %v", err)
	}

	s := p.Snapshot()
	if s.State != StateReady {
		t.Errorf("expected state Ready after replacement run, got %s", s.State)
	}
	if len(s.Challenges) != 3 {
		t.Errorf("expected the replacement run's challenge set, got %d", len(s.Challenges))
	}
}

func TestResetClearsSession(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	p.Reset()

	s := p.Snapshot()
	if s.State != StateIdle {
		t.Errorf("expected state Idle, got %s", s.State)
	}
	if s.Analysis != nil {
		t.Error("expected analysis to be cleared")
	}
	if len(s.StudyPlan) != 0 || len(s.Quiz) != 0 || len(s.Challenges) != 0 {
		t.Error("expected all artifacts to be cleared")
	}
}

func TestSnapshotIsIsolatedCopy(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s := p.Snapshot()
	s.Quiz[0].Question = "tampered"
	s.Challenges[0].Title = "tampered"
	s.StudyPlan[0].Topic = "tampered"
	s.Analysis.Role = "tampered"

	fresh := p.Snapshot()
	if fresh.Quiz[0].Question == "tampered" ||
		fresh.Challenges[0].Title == "tampered" ||
		fresh.StudyPlan[0].Topic == "tampered" ||
		fresh.Analysis.Role == "tampered" {
		t.Error("mutating a snapshot must not affect pipeline state")
	}
}

func TestSnapshotArtifactSlicesAreNeverNil(t *testing.T) {
	p := New(newFakeGenerator(), testLogger)

	s := p.Snapshot()
	if s.State != StateIdle {
		t.Fatalf("expected initial state Idle, got %s", s.State)
	}
	if s.StudyPlan == nil || s.Quiz == nil || s.Challenges == nil {
		t.Error("artifact slices must be non-nil so they serialize as []")
	}
}

func TestExecuteAndHintBypassSessionState(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)

	// Both work while Idle.
	result, _, err := p.ExecuteCode(context.Background(), types.ExecuteCodeInput{
		Code:               "print(1)",
		Language:           types.LanguagePython,
		ProblemDescription: "print a number",
	})
	if err != nil {
		t.Fatalf("ExecuteCode failed: %v", err)
	}
	if result.Status != types.ExecutionSuccess {
		t.Errorf("expected Success status, got %s", result.Status)
	}

	hint, _, err := p.GenerateHint(context.Background(), types.HintInput{
		Code:               "print(1)",
		Language:           types.LanguagePython,
		ProblemDescription: "print a number",
	})
	if err != nil {
		t.Fatalf("GenerateHint failed: %v", err)
	}
	if hint == "" {
		t.Error("expected a non-empty hint")
	}

	if s := p.Snapshot(); s.State != StateIdle {
		t.Errorf("execute/hint must not change state, got %s", s.State)
	}
}

func TestNewRunReplacesPreviousSession(t *testing.T) {
	gen := newFakeGenerator()
	p := New(gen, testLogger)
	if _, err := p.Run(context.Background(), textInput()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	gen.analysis.Role = "Data Engineer"
	gen.analysis.Company = "Globex"

	input := textInput()
	input.CompanyName = "Globex"
	if _, err := p.Run(context.Background(), input); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	s := p.Snapshot()
	if s.Analysis == nil || s.Analysis.Role != "Data Engineer" {
		t.Errorf("expected replaced analysis, got %+v", s.Analysis)
	}
}
