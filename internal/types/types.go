package types

// CompanyType classifies the hiring company in a job analysis
type CompanyType string

const (
	CompanyTypeProduct CompanyType = "Product"
	CompanyTypeService CompanyType = "Service"
	CompanyTypeStartup CompanyType = "Startup"
	CompanyTypeUnknown CompanyType = "Unknown"
)

// Valid reports whether the company type is one of the known values
func (c CompanyType) Valid() bool {
	switch c {
	case CompanyTypeProduct, CompanyTypeService, CompanyTypeStartup, CompanyTypeUnknown:
		return true
	}
	return false
}

// QuizCategory identifies the section a quiz question belongs to
type QuizCategory string

const (
	QuizCategoryAptitude  QuizCategory = "Aptitude"
	QuizCategoryTechnical QuizCategory = "Technical"
	QuizCategoryCoreCS    QuizCategory = "Core CS"
	QuizCategoryDomain    QuizCategory = "Domain"
)

// Valid reports whether the category is one of the known values
func (q QuizCategory) Valid() bool {
	switch q {
	case QuizCategoryAptitude, QuizCategoryTechnical, QuizCategoryCoreCS, QuizCategoryDomain:
		return true
	}
	return false
}

// Difficulty grades a code challenge
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether the difficulty is one of the known values
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Language identifies a starter-code language for challenges and submissions
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
)

// Valid reports whether the language is one of the supported values
func (l Language) Valid() bool {
	switch l {
	case LanguagePython, LanguageJavaScript, LanguageJava:
		return true
	}
	return false
}

// ExecutionStatus reports the outcome of a simulated code run
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "Success"
	ExecutionError   ExecutionStatus = "Error"
)

// Valid reports whether the status is one of the known values
func (e ExecutionStatus) Valid() bool {
	switch e {
	case ExecutionSuccess, ExecutionError:
		return true
	}
	return false
}

// AnalyzeJobInput represents the input for analyzing a job posting.
// Exactly one of JobDescription or ImageData carries the posting;
// CompanyName is always required.
type AnalyzeJobInput struct {
	JobDescription string `json:"jobDescription,omitempty"`
	ImageData      []byte `json:"imageData,omitempty"`
	ImageMIMEType  string `json:"imageMimeType,omitempty"`
	CompanyName    string `json:"companyName"`
}

// JobAnalysis represents the structured result of analyzing a job posting
type JobAnalysis struct {
	Role        string      `json:"role"`
	Company     string      `json:"company"`
	CompanyType CompanyType `json:"companyType"`
	Skills      []string    `json:"skills"`
	Summary     string      `json:"summary"`
}

// StudyModule represents one week of a study plan
type StudyModule struct {
	Week        string   `json:"week"` // display label, e.g. "Week 1"
	Topic       string   `json:"topic"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
}

// TrainingPlan represents the generated study plan
type TrainingPlan struct {
	StudyPlan []StudyModule `json:"studyPlan"`
}

// QuizQuestion represents a single multiple-choice question.
// CorrectAnswer is an index into Options.
type QuizQuestion struct {
	ID            string       `json:"id"`
	Category      QuizCategory `json:"category"`
	Question      string       `json:"question"`
	Options       []string     `json:"options"`
	CorrectAnswer int          `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// StarterCode holds per-language scaffolding for a challenge.
// The language set is closed, so this is a struct rather than a map.
type StarterCode struct {
	Python     string `json:"python"`
	JavaScript string `json:"javascript"`
	Java       string `json:"java"`
}

// ForLanguage returns the starter code for the given language
func (s StarterCode) ForLanguage(lang Language) string {
	switch lang {
	case LanguagePython:
		return s.Python
	case LanguageJavaScript:
		return s.JavaScript
	case LanguageJava:
		return s.Java
	}
	return ""
}

// CodeChallenge represents a practice coding problem
type CodeChallenge struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Difficulty  Difficulty  `json:"difficulty"`
	StarterCode StarterCode `json:"starterCode"`
}

// ExecuteCodeInput represents a challenge attempt submitted for simulated execution
type ExecuteCodeInput struct {
	Code               string   `json:"code"`
	Language           Language `json:"language"`
	ProblemDescription string   `json:"problemDescription"`
}

// HintInput represents a request for a hint on a challenge in progress
type HintInput struct {
	Code               string   `json:"code"`
	Language           Language `json:"language"`
	ProblemDescription string   `json:"problemDescription"`
}

// TestCaseResult represents one simulated test case outcome
type TestCaseResult struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Passed         bool   `json:"passed"`
}

// ExecutionResult represents the outcome of a simulated code run.
// TestCases is never nil on the wire.
type ExecutionResult struct {
	Status       ExecutionStatus  `json:"status"`
	ErrorDetails string           `json:"errorDetails,omitempty"`
	Summary      string           `json:"summary"`
	TestCases    []TestCaseResult `json:"testCases"`
}
