package config

// fallback fills dst from src when dst was left empty.
func fallback(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// fallbackPtr fills dst from src when dst was left unset.
func fallbackPtr[T any](dst **T, src *T) {
	if *dst == nil {
		*dst = src
	}
}

// applyOperationDefaults fills unset operation fields from the global AI block.
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	fallback(&opCfg.Provider, c.AI.Provider)
	fallback(&opCfg.Model, c.AI.Model)
	fallback(&opCfg.APIKey, c.AI.APIKey)
	fallbackPtr(&opCfg.Timeout, &c.AI.Timeout)
	fallbackPtr(&opCfg.MaxRetries, &c.AI.MaxRetries)
	fallbackPtr(&opCfg.Temperature, &c.AI.Temperature)
	fallbackPtr(&opCfg.UseSystemPrompts, &c.AI.UseSystemPrompts)
}

// GetAnalyzeConfig returns the job analysis settings with global fallbacks
// applied, including the analyze prompt overrides and their file paths.
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	cfg := c.AI.Analyze
	c.applyOperationDefaults(&cfg)

	fallback(&cfg.CustomPrompts.SystemPrompts.AnalyzeJob, c.AI.CustomPrompts.SystemPrompts.AnalyzeJob)
	fallback(&cfg.CustomPrompts.UserPrompts.AnalyzeJob, c.AI.CustomPrompts.UserPrompts.AnalyzeJob)
	fallback(&cfg.CustomPrompts.SystemPrompts.AnalyzeJobFile, c.AI.CustomPrompts.SystemPrompts.AnalyzeJobFile)
	fallback(&cfg.CustomPrompts.UserPrompts.AnalyzeJobFile, c.AI.CustomPrompts.UserPrompts.AnalyzeJobFile)

	return cfg
}

// GetStudyPlanConfig returns the study plan settings with global fallbacks
// applied.
func (c *Config) GetStudyPlanConfig() OperationAIConfig {
	cfg := c.AI.StudyPlan
	c.applyOperationDefaults(&cfg)

	fallback(&cfg.CustomPrompts.SystemPrompts.StudyPlan, c.AI.CustomPrompts.SystemPrompts.StudyPlan)
	fallback(&cfg.CustomPrompts.UserPrompts.StudyPlan, c.AI.CustomPrompts.UserPrompts.StudyPlan)
	fallback(&cfg.CustomPrompts.SystemPrompts.StudyPlanFile, c.AI.CustomPrompts.SystemPrompts.StudyPlanFile)
	fallback(&cfg.CustomPrompts.UserPrompts.StudyPlanFile, c.AI.CustomPrompts.UserPrompts.StudyPlanFile)

	return cfg
}

// GetQuizConfig returns the quiz generation settings with global fallbacks
// applied.
func (c *Config) GetQuizConfig() OperationAIConfig {
	cfg := c.AI.Quiz
	c.applyOperationDefaults(&cfg)

	fallback(&cfg.CustomPrompts.SystemPrompts.Quiz, c.AI.CustomPrompts.SystemPrompts.Quiz)
	fallback(&cfg.CustomPrompts.UserPrompts.Quiz, c.AI.CustomPrompts.UserPrompts.Quiz)
	fallback(&cfg.CustomPrompts.SystemPrompts.QuizFile, c.AI.CustomPrompts.SystemPrompts.QuizFile)
	fallback(&cfg.CustomPrompts.UserPrompts.QuizFile, c.AI.CustomPrompts.UserPrompts.QuizFile)

	return cfg
}

// GetChallengesConfig returns the code challenge settings with global
// fallbacks applied.
func (c *Config) GetChallengesConfig() OperationAIConfig {
	cfg := c.AI.Challenges
	c.applyOperationDefaults(&cfg)

	fallback(&cfg.CustomPrompts.SystemPrompts.CodeChallenges, c.AI.CustomPrompts.SystemPrompts.CodeChallenges)
	fallback(&cfg.CustomPrompts.UserPrompts.CodeChallenges, c.AI.CustomPrompts.UserPrompts.CodeChallenges)
	fallback(&cfg.CustomPrompts.SystemPrompts.CodeChallengesFile, c.AI.CustomPrompts.SystemPrompts.CodeChallengesFile)
	fallback(&cfg.CustomPrompts.UserPrompts.CodeChallengesFile, c.AI.CustomPrompts.UserPrompts.CodeChallengesFile)

	return cfg
}

// GetExecuteConfig returns the simulated execution settings with global
// fallbacks applied.
func (c *Config) GetExecuteConfig() OperationAIConfig {
	cfg := c.AI.Execute
	c.applyOperationDefaults(&cfg)

	fallback(&cfg.CustomPrompts.SystemPrompts.ExecuteCode, c.AI.CustomPrompts.SystemPrompts.ExecuteCode)
	fallback(&cfg.CustomPrompts.UserPrompts.ExecuteCode, c.AI.CustomPrompts.UserPrompts.ExecuteCode)
	fallback(&cfg.CustomPrompts.SystemPrompts.ExecuteCodeFile, c.AI.CustomPrompts.SystemPrompts.ExecuteCodeFile)
	fallback(&cfg.CustomPrompts.UserPrompts.ExecuteCodeFile, c.AI.CustomPrompts.UserPrompts.ExecuteCodeFile)

	return cfg
}

// GetHintConfig returns the hint generation settings with global fallbacks
// applied.
func (c *Config) GetHintConfig() OperationAIConfig {
	cfg := c.AI.Hint
	c.applyOperationDefaults(&cfg)

	fallback(&cfg.CustomPrompts.SystemPrompts.Hint, c.AI.CustomPrompts.SystemPrompts.Hint)
	fallback(&cfg.CustomPrompts.UserPrompts.Hint, c.AI.CustomPrompts.UserPrompts.Hint)
	fallback(&cfg.CustomPrompts.SystemPrompts.HintFile, c.AI.CustomPrompts.SystemPrompts.HintFile)
	fallback(&cfg.CustomPrompts.UserPrompts.HintFile, c.AI.CustomPrompts.UserPrompts.HintFile)

	return cfg
}
