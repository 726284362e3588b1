package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"prepforge/internal/pipeline"
	"prepforge/internal/types"
)

// Formatter renders one data type in one output format.
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry resolves a formatter from an output format and the
// concrete data type, falling back to the format's generic entry.
type FormatterRegistry struct {
	formatters map[string]Formatter // keyed by format + "/" + data type
}

// NewFormatterRegistry builds a registry preloaded with the built-in
// formatters. JSON handles every type; text and markdown have dedicated
// renderers for analyses and full sessions.
func NewFormatterRegistry() *FormatterRegistry {
	reg := &FormatterRegistry{formatters: make(map[string]Formatter)}

	reg.RegisterFormatter("json", "any", &JSONFormatter{})
	reg.RegisterFormatter("text", "JobAnalysis", &AnalysisTextFormatter{})
	reg.RegisterFormatter("markdown", "JobAnalysis", &AnalysisMarkdownFormatter{})
	reg.RegisterFormatter("text", "Session", &SessionTextFormatter{})
	reg.RegisterFormatter("markdown", "Session", &SessionMarkdownFormatter{})

	return reg
}

// RegisterFormatter binds a formatter to a format/type pair. The type "any"
// marks the format's fallback formatter.
func (r *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	r.formatters[format+"/"+dataType] = formatter
}

// Format renders data in the requested format.
func (r *FormatterRegistry) Format(data any, format string) (string, error) {
	if formatter, ok := r.formatters[format+"/"+dataTypeOf(data)]; ok {
		return formatter.Format(data)
	}
	if formatter, ok := r.formatters[format+"/any"]; ok {
		return formatter.Format(data)
	}
	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataTypeOf(data))
}

// GetSupportedFormats lists the registered format names, sorted.
func (r *FormatterRegistry) GetSupportedFormats() []string {
	seen := make(map[string]bool)
	var formats []string
	for key := range r.formatters {
		format, _, _ := strings.Cut(key, "/")
		if !seen[format] {
			seen[format] = true
			formats = append(formats, format)
		}
	}
	sort.Strings(formats)
	return formats
}

func dataTypeOf(data any) string {
	switch data.(type) {
	case types.JobAnalysis:
		return "JobAnalysis"
	case pipeline.Session:
		return "Session"
	default:
		return "any"
	}
}

// optionLabel renders a quiz option index as its display letter
func optionLabel(index int) string {
	return string(rune('A' + index))
}

// JSONFormatter renders any value as indented JSON
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (f *JSONFormatter) SupportedType() string { return "any" }

// AnalysisTextFormatter renders a job analysis as plain text
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	analysis, ok := data.(types.JobAnalysis)
	if !ok {
		return "", fmt.Errorf("expected JobAnalysis, got %T", data)
	}

	var b strings.Builder
	b.WriteString("=== JOB ANALYSIS ===\n\n")
	fmt.Fprintf(&b, "Role: %s\n", analysis.Role)
	fmt.Fprintf(&b, "Company: %s\n", analysis.Company)
	fmt.Fprintf(&b, "Company Type: %s\n\n", analysis.CompanyType.Display().Label)
	fmt.Fprintf(&b, "Summary:\n%s\n\n", analysis.Summary)

	if len(analysis.Skills) > 0 {
		b.WriteString("Key Skills:\n")
		for _, skill := range analysis.Skills {
			fmt.Fprintf(&b, "- %s\n", skill)
		}
	}

	return b.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string { return "JobAnalysis" }

// AnalysisMarkdownFormatter renders a job analysis as markdown
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	analysis, ok := data.(types.JobAnalysis)
	if !ok {
		return "", fmt.Errorf("expected JobAnalysis, got %T", data)
	}

	var b strings.Builder
	b.WriteString("# Job Analysis\n\n")
	fmt.Fprintf(&b, "**Role:** %s\n\n", analysis.Role)
	fmt.Fprintf(&b, "**Company:** %s (%s)\n\n", analysis.Company, analysis.CompanyType.Display().Label)
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", analysis.Summary)

	if len(analysis.Skills) > 0 {
		b.WriteString("## Key Skills\n\n")
		for _, skill := range analysis.Skills {
			fmt.Fprintf(&b, "- %s\n", skill)
		}
	}

	return b.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string { return "JobAnalysis" }

// SessionTextFormatter renders a full preparation session as plain text
type SessionTextFormatter struct{}

func (f *SessionTextFormatter) Format(data any) (string, error) {
	session, ok := data.(pipeline.Session)
	if !ok {
		return "", fmt.Errorf("expected Session, got %T", data)
	}

	var b strings.Builder

	if session.Error != "" {
		fmt.Fprintf(&b, "=== SESSION ERROR ===\n%s\n\n", session.Error)
	}

	if session.Analysis != nil {
		section, err := (&AnalysisTextFormatter{}).Format(*session.Analysis)
		if err != nil {
			return "", err
		}
		b.WriteString(section)
		b.WriteString("\n")
	}

	if len(session.StudyPlan) > 0 {
		b.WriteString("=== STUDY PLAN ===\n\n")
		for _, module := range session.StudyPlan {
			fmt.Fprintf(&b, "%s: %s\n%s\n", module.Week, module.Topic, module.Description)
			if len(module.Resources) > 0 {
				b.WriteString("Resources:\n")
				for _, resource := range module.Resources {
					fmt.Fprintf(&b, "- %s\n", resource)
				}
			}
			b.WriteString("\n")
		}
	}

	if len(session.Quiz) > 0 {
		b.WriteString("=== SCREENING QUIZ ===\n\n")
		for i, question := range session.Quiz {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, question.Category.Display().Label, question.Question)
			for j, option := range question.Options {
				fmt.Fprintf(&b, "   %s. %s\n", optionLabel(j), option)
			}
			if question.CorrectAnswer >= 0 && question.CorrectAnswer < len(question.Options) {
				fmt.Fprintf(&b, "   Answer: %s\n", optionLabel(question.CorrectAnswer))
			}
			if question.Explanation != "" {
				fmt.Fprintf(&b, "   Explanation: %s\n", question.Explanation)
			}
			b.WriteString("\n")
		}
	}

	if len(session.Challenges) > 0 {
		b.WriteString("=== CODE CHALLENGES ===\n\n")
		for i, challenge := range session.Challenges {
			fmt.Fprintf(&b, "%d. %s (%s)\n%s\n\n", i+1, challenge.Title, challenge.Difficulty.Display().Label, challenge.Description)
		}
	}

	return b.String(), nil
}

func (f *SessionTextFormatter) SupportedType() string { return "Session" }

// SessionMarkdownFormatter renders a full preparation session as markdown
type SessionMarkdownFormatter struct{}

func (f *SessionMarkdownFormatter) Format(data any) (string, error) {
	session, ok := data.(pipeline.Session)
	if !ok {
		return "", fmt.Errorf("expected Session, got %T", data)
	}

	var b strings.Builder
	b.WriteString("# Preparation Kit\n\n")

	if session.Error != "" {
		fmt.Fprintf(&b, "## Session Error\n\n%s\n\n", session.Error)
	}

	if session.Analysis != nil {
		analysis := session.Analysis
		b.WriteString("## Job Analysis\n\n")
		fmt.Fprintf(&b, "**Role:** %s\n\n", analysis.Role)
		fmt.Fprintf(&b, "**Company:** %s (%s)\n\n", analysis.Company, analysis.CompanyType.Display().Label)
		fmt.Fprintf(&b, "%s\n\n", analysis.Summary)
		if len(analysis.Skills) > 0 {
			b.WriteString("### Key Skills\n\n")
			for _, skill := range analysis.Skills {
				fmt.Fprintf(&b, "- %s\n", skill)
			}
			b.WriteString("\n")
		}
	}

	if len(session.StudyPlan) > 0 {
		b.WriteString("## Study Plan\n\n")
		for _, module := range session.StudyPlan {
			fmt.Fprintf(&b, "### %s: %s\n\n%s\n\n", module.Week, module.Topic, module.Description)
			if len(module.Resources) > 0 {
				b.WriteString("**Resources:**\n")
				for _, resource := range module.Resources {
					fmt.Fprintf(&b, "- %s\n", resource)
				}
				b.WriteString("\n")
			}
		}
	}

	if len(session.Quiz) > 0 {
		b.WriteString("## Screening Quiz\n\n")
		for i, question := range session.Quiz {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, question.Question)
			fmt.Fprintf(&b, "*Category: %s*\n\n", question.Category.Display().Label)
			for j, option := range question.Options {
				fmt.Fprintf(&b, "- %s. %s\n", optionLabel(j), option)
			}
			b.WriteString("\n")
			if question.CorrectAnswer >= 0 && question.CorrectAnswer < len(question.Options) {
				fmt.Fprintf(&b, "**Answer:** %s\n\n", optionLabel(question.CorrectAnswer))
			}
			if question.Explanation != "" {
				fmt.Fprintf(&b, "**Explanation:** %s\n\n", question.Explanation)
			}
		}
	}

	if len(session.Challenges) > 0 {
		b.WriteString("## Code Challenges\n\n")
		for i, challenge := range session.Challenges {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, challenge.Title)
			fmt.Fprintf(&b, "*Difficulty: %s*\n\n", challenge.Difficulty.Display().Label)
			fmt.Fprintf(&b, "%s\n\n", challenge.Description)
			if python := challenge.StarterCode.ForLanguage(types.LanguagePython); python != "" {
				fmt.Fprintf(&b, "**Starter code (Python):**\n\n```python\n%s\n```\n\n", python)
			}
		}
	}

	return b.String(), nil
}

func (f *SessionMarkdownFormatter) SupportedType() string { return "Session" }

// GlobalRegistry is the process-wide registry the CLI output path renders
// through.
var GlobalRegistry = NewFormatterRegistry()
