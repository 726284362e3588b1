package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFileBinding ties a configured prompt file path to the in-memory
// slot its content loads into
type promptFileBinding struct {
	filePath   string
	promptType string // "system" or "user"
	operation  string
	target     *string
}

// systemPromptBindings lists the file-backed slots of a system prompt set
func systemPromptBindings(prompts *SystemPrompts, target *LoadedSystemPrompts, scope string) []promptFileBinding {
	return []promptFileBinding{
		{prompts.AnalyzeJobFile, "system", scope + "analyzeJob", &target.AnalyzeJob},
		{prompts.StudyPlanFile, "system", scope + "studyPlan", &target.StudyPlan},
		{prompts.QuizFile, "system", scope + "quiz", &target.Quiz},
		{prompts.CodeChallengesFile, "system", scope + "codeChallenges", &target.CodeChallenges},
		{prompts.ExecuteCodeFile, "system", scope + "executeCode", &target.ExecuteCode},
		{prompts.HintFile, "system", scope + "hint", &target.Hint},
	}
}

// userPromptBindings lists the file-backed slots of a user prompt set
func userPromptBindings(prompts *UserPrompts, target *LoadedUserPrompts, scope string) []promptFileBinding {
	return []promptFileBinding{
		{prompts.AnalyzeJobFile, "user", scope + "analyzeJob", &target.AnalyzeJob},
		{prompts.StudyPlanFile, "user", scope + "studyPlan", &target.StudyPlan},
		{prompts.QuizFile, "user", scope + "quiz", &target.Quiz},
		{prompts.CodeChallengesFile, "user", scope + "codeChallenges", &target.CodeChallenges},
		{prompts.ExecuteCodeFile, "user", scope + "executeCode", &target.ExecuteCode},
		{prompts.HintFile, "user", scope + "hint", &target.Hint},
	}
}

// promptFileBindings collects every configured prompt file across the
// global prompt set and all operation-specific sets
func (c *Config) promptFileBindings() []promptFileBinding {
	var bindings []promptFileBinding

	bindings = append(bindings, systemPromptBindings(&c.AI.CustomPrompts.SystemPrompts, &promptStore.Global.SystemPrompts, "global ")...)
	bindings = append(bindings, userPromptBindings(&c.AI.CustomPrompts.UserPrompts, &promptStore.Global.UserPrompts, "global ")...)

	operations := []struct {
		name    string
		prompts *PromptConfig
		target  *OperationLoadedPrompts
	}{
		{"analyze ", &c.AI.Analyze.CustomPrompts, &promptStore.Analyze},
		{"studyPlan ", &c.AI.StudyPlan.CustomPrompts, &promptStore.StudyPlan},
		{"quiz ", &c.AI.Quiz.CustomPrompts, &promptStore.Quiz},
		{"challenges ", &c.AI.Challenges.CustomPrompts, &promptStore.Challenges},
		{"execute ", &c.AI.Execute.CustomPrompts, &promptStore.Execute},
		{"hint ", &c.AI.Hint.CustomPrompts, &promptStore.Hint},
	}
	for _, op := range operations {
		bindings = append(bindings, systemPromptBindings(&op.prompts.SystemPrompts, &op.target.SystemPrompts, op.name)...)
		bindings = append(bindings, userPromptBindings(&op.prompts.UserPrompts, &op.target.UserPrompts, op.name)...)
	}

	return bindings
}

// loadPromptsFromFiles reads every configured prompt file into its slot in
// the shared prompt store. Bindings without a path keep their defaults.
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	promptStoreOnce.Do(func() {
		promptStore = AllLoadedPrompts{}
	})

	for _, b := range c.promptFileBindings() {
		if b.filePath == "" {
			continue
		}
		content, err := c.loadPromptFromFile(b.filePath, b.promptType, b.operation)
		if err != nil {
			return fmt.Errorf("failed to load %s %s prompt: %w", b.promptType, b.operation, err)
		}
		*b.target = content
	}

	c.logPromptLoadingSummary()

	return nil
}

// loadPromptFromFile reads one prompt file. Empty or whitespace-only files
// are an error: a blank prompt would silently neuter an operation.
func (c *Config) loadPromptFromFile(path, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file %s: %w", promptType, operation, path, err)
	}

	content, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file does not exist: %s", promptType, operation, absPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file %s: %w", promptType, operation, absPath, err)
	}

	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("%s %s prompt file %s is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from %s (%d characters)",
		promptType, operation, absPath, len(prompt))

	return prompt, nil
}

// validatePromptFiles checks that every configured prompt file exists,
// collecting all problems into one error instead of stopping at the first.
func (c *Config) validatePromptFiles() error {
	var problems []string

	for _, b := range c.promptFileBindings() {
		if b.filePath == "" {
			continue
		}

		absPath, err := filepath.Abs(b.filePath)
		if err != nil {
			problems = append(problems,
				fmt.Sprintf("invalid path for %s %s prompt: %s", b.promptType, b.operation, b.filePath))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			problems = append(problems,
				fmt.Sprintf("%s %s prompt file does not exist: %s", b.promptType, b.operation, absPath))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// logPromptLoadingSummary reports which prompt slots carry custom content.
func (c *Config) logPromptLoadingSummary() {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")

	loaded := 0
	for _, b := range c.promptFileBindings() {
		if *b.target == "" {
			continue
		}
		log.Printf("[CONFIG] %s %s prompt: loaded from config/file", b.promptType, b.operation)
		loaded++
	}

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", loaded)
	}

	log.Println("[CONFIG] ==========================================")
}
