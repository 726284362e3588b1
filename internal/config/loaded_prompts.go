package config

import (
	"sync"
)

// promptStore caches file-loaded prompt overrides for the lifetime of the
// process. loadPromptsFromFiles populates it exactly once.
var (
	promptStore     AllLoadedPrompts
	promptStoreOnce sync.Once
)

// LoadedPrompts pairs the system and user prompt overrides for one scope.
type LoadedPrompts struct {
	SystemPrompts LoadedSystemPrompts
	UserPrompts   LoadedUserPrompts
}

// LoadedSystemPrompts carries one system instruction per operation.
type LoadedSystemPrompts struct {
	AnalyzeJob     string
	StudyPlan      string
	Quiz           string
	CodeChallenges string
	ExecuteCode    string
	Hint           string
}

// LoadedUserPrompts carries one user prompt template per operation.
type LoadedUserPrompts struct {
	AnalyzeJob     string
	StudyPlan      string
	Quiz           string
	CodeChallenges string
	ExecuteCode    string
	Hint           string
}

// OperationLoadedPrompts is the per-operation view handed to providers.
type OperationLoadedPrompts struct {
	SystemPrompts LoadedSystemPrompts
	UserPrompts   LoadedUserPrompts
}

// AllLoadedPrompts holds the global prompt overrides plus one slot per
// operation.
type AllLoadedPrompts struct {
	Global     LoadedPrompts
	Analyze    OperationLoadedPrompts
	StudyPlan  OperationLoadedPrompts
	Quiz       OperationLoadedPrompts
	Challenges OperationLoadedPrompts
	Execute    OperationLoadedPrompts
	Hint       OperationLoadedPrompts
}

// GetPromptsForOperation returns a copy of the loaded prompts for the named
// operation. Unknown names fall back to the global overrides.
func GetPromptsForOperation(operation string) OperationLoadedPrompts {
	switch operation {
	case "analyze":
		return promptStore.Analyze
	case "studyplan":
		return promptStore.StudyPlan
	case "quiz":
		return promptStore.Quiz
	case "challenges":
		return promptStore.Challenges
	case "execute":
		return promptStore.Execute
	case "hint":
		return promptStore.Hint
	default:
		return OperationLoadedPrompts{
			SystemPrompts: promptStore.Global.SystemPrompts,
			UserPrompts:   promptStore.Global.UserPrompts,
		}
	}
}
