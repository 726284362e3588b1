package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"prepforge/internal/pipeline"
	"prepforge/internal/types"
)

func sampleAnalysis() types.JobAnalysis {
	return types.JobAnalysis{
		Role:        "Backend Engineer",
		Company:     "Initech",
		CompanyType: types.CompanyTypeProduct,
		Skills:      []string{"Go", "SQL"},
		Summary:     "Backend role focused on services.",
	}
}

func sampleSession() pipeline.Session {
	analysis := sampleAnalysis()
	return pipeline.Session{
		State:    pipeline.StateReady,
		Analysis: &analysis,
		StudyPlan: []types.StudyModule{
			{Week: "Week 1", Topic: "Data Structures", Description: "Arrays and maps", Resources: []string{"CS50"}},
		},
		Quiz: []types.QuizQuestion{
			{
				ID:            "q1",
				Category:      types.QuizCategoryTechnical,
				Question:      "What is a goroutine?",
				Options:       []string{"a thread", "a lightweight routine", "a process", "a channel"},
				CorrectAnswer: 1,
				Explanation:   "Goroutines are scheduled by the runtime.",
			},
		},
		Challenges: []types.CodeChallenge{
			{
				Title:       "Two Sum",
				Description: "Find two numbers that add up to target.",
				Difficulty:  types.DifficultyEasy,
				StarterCode: types.StarterCode{Python: "def two_sum(nums, target):\n    pass", JavaScript: "j", Java: "v"},
			},
		},
	}
}

func TestRegistryPicksFormatterByType(t *testing.T) {
	registry := NewFormatterRegistry()

	tests := []struct {
		name     string
		data     any
		format   string
		contains []string
	}{
		{
			name:     "analysis as text",
			data:     sampleAnalysis(),
			format:   "text",
			contains: []string{"=== JOB ANALYSIS ===", "Role: Backend Engineer", "Company: Initech", "- Go"},
		},
		{
			name:     "analysis as markdown",
			data:     sampleAnalysis(),
			format:   "markdown",
			contains: []string{"# Job Analysis", "**Role:** Backend Engineer", "**Company:** Initech (Product Company)"},
		},
		{
			name:   "session as text",
			data:   sampleSession(),
			format: "text",
			contains: []string{
				"=== JOB ANALYSIS ===",
				"=== STUDY PLAN ===",
				"Week 1: Data Structures",
				"=== SCREENING QUIZ ===",
				"=== CODE CHALLENGES ===",
				"1. Two Sum (Easy)",
			},
		},
		{
			name:   "session as markdown",
			data:   sampleSession(),
			format: "markdown",
			contains: []string{
				"# Preparation Kit",
				"## Study Plan",
				"## Screening Quiz",
				"## Code Challenges",
				"```python",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := registry.Format(tt.data, tt.format)
			if err != nil {
				t.Fatalf("Format failed: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, output)
				}
			}
		})
	}
}

func TestRegistryFallsBackToJSONForUnknownTypes(t *testing.T) {
	registry := NewFormatterRegistry()

	output, err := registry.Format(map[string]string{"key": "value"}, "json")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %q: %v", output, err)
	}
	if decoded["key"] != "value" {
		t.Errorf("unexpected decoded value %+v", decoded)
	}
}

func TestRegistryRejectsUnknownFormat(t *testing.T) {
	registry := NewFormatterRegistry()

	if _, err := registry.Format(sampleAnalysis(), "yaml"); err == nil {
		t.Error("expected an error for an unregistered format")
	}
}

func TestFormattersRenderDisplayLabels(t *testing.T) {
	session := sampleSession()
	session.Quiz[0].Category = types.QuizCategoryAptitude
	session.Challenges[0].Difficulty = types.DifficultyMedium

	text, err := (&SessionTextFormatter{}).Format(session)
	if err != nil {
		t.Fatalf("text Format failed: %v", err)
	}
	for _, want := range []string{
		"Company Type: Product Company",
		"1. [Aptitude & Reasoning] What is a goroutine?",
		"1. Two Sum (Medium)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text output to contain %q, got:\n%s", want, text)
		}
	}

	md, err := (&SessionMarkdownFormatter{}).Format(session)
	if err != nil {
		t.Fatalf("markdown Format failed: %v", err)
	}
	for _, want := range []string{
		"**Company:** Initech (Product Company)",
		"*Category: Aptitude & Reasoning*",
		"*Difficulty: Medium*",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown output to contain %q, got:\n%s", want, md)
		}
	}
}

func TestSessionTextFormatterRendersQuizAnswers(t *testing.T) {
	formatter := &SessionTextFormatter{}

	output, err := formatter.Format(sampleSession())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	for _, want := range []string{
		"1. [Technical] What is a goroutine?",
		"A. a thread",
		"B. a lightweight routine",
		"Answer: B",
		"Explanation: Goroutines are scheduled by the runtime.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestSessionTextFormatterSkipsAnswerWhenIndexOutOfRange(t *testing.T) {
	session := sampleSession()
	session.Quiz[0].CorrectAnswer = 9

	output, err := (&SessionTextFormatter{}).Format(session)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if strings.Contains(output, "Answer:") {
		t.Errorf("expected no answer line for an out-of-range index, got:\n%s", output)
	}
}

func TestSessionTextFormatterShowsErrorBanner(t *testing.T) {
	session := pipeline.Session{
		State: pipeline.StateIdle,
		Error: "Generation was interrupted",
	}

	output, err := (&SessionTextFormatter{}).Format(session)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(output, "=== SESSION ERROR ===") || !strings.Contains(output, "Generation was interrupted") {
		t.Errorf("expected error banner, got:\n%s", output)
	}
}

func TestFormattersRejectWrongTypes(t *testing.T) {
	tests := []struct {
		name      string
		formatter Formatter
	}{
		{"analysis text", &AnalysisTextFormatter{}},
		{"analysis markdown", &AnalysisMarkdownFormatter{}},
		{"session text", &SessionTextFormatter{}},
		{"session markdown", &SessionMarkdownFormatter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.formatter.Format(42); err == nil {
				t.Error("expected a type error")
			}
		})
	}
}

func TestOptionLabel(t *testing.T) {
	for i, want := range []string{"A", "B", "C", "D"} {
		if got := optionLabel(i); got != want {
			t.Errorf("optionLabel(%d): expected %s, got %s", i, want, got)
		}
	}
}
