package ai

import (
	"fmt"
	"strings"

	"prepforge/internal/types"
)

// Generated content is sanitized before it reaches callers: the response
// schema constrains shape, but enum strings, index bounds, and counts still
// need enforcement on our side.

// normalizeAnalysis pins the company to the caller-supplied name and clamps
// the company type to the closed enum
func normalizeAnalysis(analysis types.JobAnalysis, companyName string) types.JobAnalysis {
	if name := strings.TrimSpace(companyName); name != "" {
		analysis.Company = name
	}
	if !analysis.CompanyType.Valid() {
		analysis.CompanyType = types.CompanyTypeUnknown
	}
	if analysis.Skills == nil {
		analysis.Skills = []string{}
	}
	return analysis
}

// normalizePlan guarantees non-nil slices for JSON rendering
func normalizePlan(plan types.TrainingPlan) types.TrainingPlan {
	if plan.StudyPlan == nil {
		plan.StudyPlan = []types.StudyModule{}
	}
	for i := range plan.StudyPlan {
		if plan.StudyPlan[i].Resources == nil {
			plan.StudyPlan[i].Resources = []string{}
		}
	}
	return plan
}

// sanitizeQuiz drops malformed questions and assigns sequential IDs to the
// survivors. A question survives when its category is a known value, it has
// exactly four options, and correctAnswer indexes into them.
func sanitizeQuiz(questions []types.QuizQuestion) []types.QuizQuestion {
	clean := make([]types.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if !q.Category.Valid() {
			continue
		}
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		if len(q.Options) != 4 {
			continue
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			continue
		}
		q.ID = fmt.Sprintf("q%d", len(clean)+1)
		clean = append(clean, q)
	}
	return clean
}

// sanitizeChallenges trims oversized sets to three and reports whether the
// result is servable. Anything other than exactly three well-formed
// challenges is unservable and the caller falls back.
func sanitizeChallenges(challenges []types.CodeChallenge) ([]types.CodeChallenge, bool) {
	if len(challenges) > 3 {
		challenges = challenges[:3]
	}
	if len(challenges) != 3 {
		return nil, false
	}
	for i := range challenges {
		c := &challenges[i]
		if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Description) == "" {
			return nil, false
		}
		if !c.Difficulty.Valid() {
			return nil, false
		}
		if c.StarterCode.Python == "" || c.StarterCode.JavaScript == "" || c.StarterCode.Java == "" {
			return nil, false
		}
	}
	return challenges, true
}

// normalizeExecution clamps the status enum and guarantees a non-nil test
// case slice
func normalizeExecution(result types.ExecutionResult) types.ExecutionResult {
	if !result.Status.Valid() {
		result.Status = types.ExecutionError
	}
	if result.TestCases == nil {
		result.TestCases = []types.TestCaseResult{}
	}
	return result
}
