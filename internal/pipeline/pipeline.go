// Package pipeline coordinates a preparation session: one blocking job
// analysis followed by parallel generation of the study plan, quiz, and
// challenge set, plus independent regeneration of the quiz and challenges.
// A single session is held in memory; a new submission replaces it.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"prepforge/internal/ai"
	"prepforge/internal/errors"
	"prepforge/internal/types"
)

// State identifies where a preparation session is in its lifecycle
type State string

const (
	StateIdle       State = "Idle"
	StateAnalyzing  State = "Analyzing"
	StateGenerating State = "Generating"
	StateReady      State = "Ready"
)

var (
	// ErrRunInFlight is returned when a submission arrives while another
	// run is still analyzing or generating.
	ErrRunInFlight = errors.NewStateError(errors.ErrCodeRunInFlight,
		"A preparation run is already in flight", nil)

	// ErrNotReady is returned when a refresh is requested before a run
	// has completed.
	ErrNotReady = errors.NewStateError(errors.ErrCodeNotReady,
		"No completed session is available to refresh", nil)
)

// Generator is the slice of the AI client the pipeline drives.
// Implementations must always return a usable value: the error return is
// informational (the value is then fallback content), never a signal to
// abort the run.
type Generator interface {
	AnalyzeJob(ctx context.Context, input types.AnalyzeJobInput) (types.JobAnalysis, *ai.TokenUsage, error)
	GenerateStudyPlan(ctx context.Context, analysis types.JobAnalysis) (types.TrainingPlan, *ai.TokenUsage, error)
	GenerateQuiz(ctx context.Context, analysis types.JobAnalysis) ([]types.QuizQuestion, *ai.TokenUsage, error)
	GenerateCodeChallenges(ctx context.Context, analysis types.JobAnalysis) ([]types.CodeChallenge, *ai.TokenUsage, error)
	ExecuteCode(ctx context.Context, input types.ExecuteCodeInput) (types.ExecutionResult, *ai.TokenUsage, error)
	GenerateHint(ctx context.Context, input types.HintInput) (string, *ai.TokenUsage, error)
}

// Session is a point-in-time copy of the pipeline's session, safe for the
// caller to hold after the pipeline moves on. Artifact slices are never nil.
type Session struct {
	State      State                 `json:"state"`
	Error      string                `json:"error,omitempty"`
	Analysis   *types.JobAnalysis    `json:"analysis,omitempty"`
	StudyPlan  []types.StudyModule   `json:"studyPlan"`
	Quiz       []types.QuizQuestion  `json:"quiz"`
	Challenges []types.CodeChallenge `json:"challenges"`
}

// Pipeline owns one preparation session. All session state lives behind the
// mutex; nothing is package-global. Generation runs outside the lock so
// Snapshot and concurrent submissions stay responsive.
type Pipeline struct {
	generator Generator
	logger    *errors.Logger

	mu         sync.Mutex
	state      State
	errMsg     string
	analysis   *types.JobAnalysis
	plan       types.TrainingPlan
	quiz       []types.QuizQuestion
	challenges []types.CodeChallenge

	// Monotonic sequence numbers guarding quiz and challenge refreshes.
	// Every event that replaces the session (a new run, a reset) and every
	// accepted refresh bumps the relevant counter; a refresh result is
	// applied only while its captured sequence is still current.
	quizSeq       uint64
	challengesSeq uint64
}

// New creates an idle pipeline driving the given generator
func New(generator Generator, logger *errors.Logger) *Pipeline {
	return &Pipeline{
		generator: generator,
		logger:    logger,
		state:     StateIdle,
	}
}

// validateInput enforces the submission contract before any model call:
// a company name is mandatory and either job text or screenshot bytes must
// be present.
func validateInput(input types.AnalyzeJobInput) error {
	if strings.TrimSpace(input.CompanyName) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingCompany,
			"Company name is required", nil)
	}
	if strings.TrimSpace(input.JobDescription) == "" && len(input.ImageData) == 0 {
		return errors.NewValidationError(errors.ErrCodeMissingJobSource,
			"A job description or a screenshot of one is required", nil)
	}
	return nil
}

// Run executes a full preparation for one job posting. The analysis step
// blocks; the three generators then run in parallel and never start before
// the analysis has completed. A run is accepted from Idle or Ready (replacing
// the previous session) and rejected with ErrRunInFlight otherwise.
//
// Generation failures degrade to fallback content inside the AI client, so
// Run itself fails only on invalid input, a concurrent run, or a panicking
// generator. The returned token usage is the total across the analysis and
// all generators.
func (p *Pipeline) Run(ctx context.Context, input types.AnalyzeJobInput) (*ai.TokenUsage, error) {
	p.mu.Lock()
	if p.state == StateAnalyzing || p.state == StateGenerating {
		p.mu.Unlock()
		return nil, ErrRunInFlight
	}
	if err := validateInput(input); err != nil {
		p.mu.Unlock()
		return nil, err
	}

	// Accepting the submission supersedes the previous session: bumping
	// both sequence numbers drops any refresh still in flight for it.
	p.quizSeq++
	p.challengesSeq++
	p.state = StateAnalyzing
	p.errMsg = ""
	p.analysis = nil
	p.plan = types.TrainingPlan{}
	p.quiz = nil
	p.challenges = nil
	p.mu.Unlock()

	p.logger.Info("Starting preparation run",
		"company", input.CompanyName,
		"source", jobSource(input))

	analysis, analyzeUsage, err := p.generator.AnalyzeJob(ctx, input)
	if err != nil {
		p.logger.Warn("Job analysis degraded to fallback content", "error", err.Error())
	}

	p.mu.Lock()
	stored := analysis
	p.analysis = &stored
	p.state = StateGenerating
	p.mu.Unlock()

	var (
		plan       types.TrainingPlan
		quiz       []types.QuizQuestion
		challenges []types.CodeChallenge
		usages     [3]*ai.TokenUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("study plan", func() {
		plan, usages[0], _ = p.generator.GenerateStudyPlan(gctx, analysis)
	}))
	g.Go(guard("quiz", func() {
		quiz, usages[1], _ = p.generator.GenerateQuiz(gctx, analysis)
	}))
	g.Go(guard("challenges", func() {
		challenges, usages[2], _ = p.generator.GenerateCodeChallenges(gctx, analysis)
	}))

	fanoutErr := g.Wait()
	usage := sumUsage(analyzeUsage, usages[0], usages[1], usages[2])

	if fanoutErr != nil {
		p.mu.Lock()
		p.state = StateIdle
		p.errMsg = fanoutErr.Error()
		p.analysis = nil
		p.mu.Unlock()
		p.logger.LogError(fanoutErr, "Preparation run aborted")
		return usage, fanoutErr
	}

	p.mu.Lock()
	p.plan = plan
	p.quiz = quiz
	p.challenges = challenges
	p.state = StateReady
	p.mu.Unlock()

	p.logger.Info("Preparation run complete",
		"role", analysis.Role,
		"modules", len(plan.StudyPlan),
		"questions", len(quiz),
		"challenges", len(challenges))

	return usage, nil
}

// RefreshQuiz regenerates the quiz from the stored analysis. Generation runs
// without the lock; the result is applied only when no newer run, reset, or
// refresh superseded it in the meantime. The boolean reports whether the new
// quiz was applied or dropped as stale.
func (p *Pipeline) RefreshQuiz(ctx context.Context) (bool, *ai.TokenUsage, error) {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return false, nil, ErrNotReady
	}
	analysis := *p.analysis
	p.quizSeq++
	seq := p.quizSeq
	p.mu.Unlock()

	quiz, usage, err := p.generator.GenerateQuiz(ctx, analysis)
	if err != nil {
		p.logger.Warn("Quiz refresh degraded to fallback content", "error", err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quizSeq != seq {
		p.logger.Info("Dropping stale quiz refresh", "sequence", seq, "current", p.quizSeq)
		return false, usage, nil
	}
	p.quiz = quiz
	return true, usage, nil
}

// RefreshChallenges regenerates the challenge set from the stored analysis,
// with the same staleness guard as RefreshQuiz.
func (p *Pipeline) RefreshChallenges(ctx context.Context) (bool, *ai.TokenUsage, error) {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return false, nil, ErrNotReady
	}
	analysis := *p.analysis
	p.challengesSeq++
	seq := p.challengesSeq
	p.mu.Unlock()

	challenges, usage, err := p.generator.GenerateCodeChallenges(ctx, analysis)
	if err != nil {
		p.logger.Warn("Challenge refresh degraded to fallback content", "error", err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.challengesSeq != seq {
		p.logger.Info("Dropping stale challenge refresh", "sequence", seq, "current", p.challengesSeq)
		return false, usage, nil
	}
	p.challenges = challenges
	return true, usage, nil
}

// ExecuteCode simulates running a challenge attempt. It never touches session
// state, so it is valid in every pipeline state.
func (p *Pipeline) ExecuteCode(ctx context.Context, input types.ExecuteCodeInput) (types.ExecutionResult, *ai.TokenUsage, error) {
	return p.generator.ExecuteCode(ctx, input)
}

// GenerateHint produces a hint for a challenge attempt in progress. Like
// ExecuteCode it bypasses session state entirely.
func (p *Pipeline) GenerateHint(ctx context.Context, input types.HintInput) (string, *ai.TokenUsage, error) {
	return p.generator.GenerateHint(ctx, input)
}

// Snapshot returns a copy of the session. Slices are cloned so the caller
// cannot mutate pipeline state through the snapshot, and artifact slices are
// always non-nil so they serialize as [] rather than null.
func (p *Pipeline) Snapshot() Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Session{
		State:      p.state,
		Error:      p.errMsg,
		StudyPlan:  cloneOrEmpty(p.plan.StudyPlan),
		Quiz:       cloneOrEmpty(p.quiz),
		Challenges: cloneOrEmpty(p.challenges),
	}
	if p.analysis != nil {
		analysis := *p.analysis
		analysis.Skills = slices.Clone(analysis.Skills)
		s.Analysis = &analysis
	}
	return s
}

// Reset clears the session and returns the pipeline to Idle. Sequence numbers
// advance so a refresh still in flight cannot resurrect the cleared session.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.quizSeq++
	p.challengesSeq++
	p.state = StateIdle
	p.errMsg = ""
	p.analysis = nil
	p.plan = types.TrainingPlan{}
	p.quiz = nil
	p.challenges = nil
}

// guard converts a generator panic into an error so one misbehaving goroutine
// aborts the run instead of the process.
func guard(name string, fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.NewInternalError(errors.ErrCodeGenerationPanic,
					fmt.Sprintf("%s generation panicked: %v", name, r), nil)
			}
		}()
		fn()
		return nil
	}
}

func sumUsage(parts ...*ai.TokenUsage) *ai.TokenUsage {
	var total *ai.TokenUsage
	for _, part := range parts {
		if part == nil {
			continue
		}
		if total == nil {
			total = &ai.TokenUsage{}
		}
		total.InputTokens += part.InputTokens
		total.OutputTokens += part.OutputTokens
		total.TotalTokens += part.TotalTokens
	}
	return total
}

func cloneOrEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return []T{}
	}
	return slices.Clone(s)
}

func jobSource(input types.AnalyzeJobInput) string {
	if len(input.ImageData) > 0 {
		return "screenshot"
	}
	return "text"
}
