package ai

import (
	"google.golang.org/genai"
)

// newJSONConfig wraps a response schema in a generation config with the
// operation's temperature applied
func (g *GeminiProvider) newJSONConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	// Apply temperature configuration if set
	if *g.config.Temperature > 0 {
		config.Temperature = g.config.Temperature
	}

	return config
}

// buildAnalyzeSchema creates the schema for job analysis requests
func (g *GeminiProvider) buildAnalyzeSchema() *genai.GenerateContentConfig {
	return g.newJSONConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"role":    {Type: genai.TypeString},
			"company": {Type: genai.TypeString},
			"companyType": {
				Type: genai.TypeString,
				Enum: []string{"Product", "Service", "Startup", "Unknown"},
			},
			"skills": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"summary": {Type: genai.TypeString},
		},
		Required: []string{"role", "company", "companyType", "skills", "summary"},
	})
}

// buildStudyPlanSchema creates the schema for study plan requests
func (g *GeminiProvider) buildStudyPlanSchema() *genai.GenerateContentConfig {
	return g.newJSONConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"studyPlan": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"week":        {Type: genai.TypeString},
						"topic":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"resources": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"week", "topic", "description", "resources"},
				},
			},
		},
		Required: []string{"studyPlan"},
	})
}

// buildQuizSchema creates the schema for quiz requests.
// Question IDs are assigned after generation, so the schema has no id field.
func (g *GeminiProvider) buildQuizSchema() *genai.GenerateContentConfig {
	return g.newJSONConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category": {
							Type: genai.TypeString,
							Enum: []string{"Aptitude", "Technical", "Core CS", "Domain"},
						},
						"question": {Type: genai.TypeString},
						"options": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
						"correctAnswer": {Type: genai.TypeInteger},
						"explanation":   {Type: genai.TypeString},
					},
					Required: []string{"category", "question", "options", "correctAnswer", "explanation"},
				},
			},
		},
		Required: []string{"questions"},
	})
}

// buildChallengesSchema creates the schema for coding challenge requests
func (g *GeminiProvider) buildChallengesSchema() *genai.GenerateContentConfig {
	return g.newJSONConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"challenges": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"difficulty": {
							Type: genai.TypeString,
							Enum: []string{"Easy", "Medium", "Hard"},
						},
						"starterCode": {
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"python":     {Type: genai.TypeString},
								"javascript": {Type: genai.TypeString},
								"java":       {Type: genai.TypeString},
							},
							Required: []string{"python", "javascript", "java"},
						},
					},
					Required: []string{"title", "description", "difficulty", "starterCode"},
				},
			},
		},
		Required: []string{"challenges"},
	})
}

// buildExecuteSchema creates the schema for simulated execution requests
func (g *GeminiProvider) buildExecuteSchema() *genai.GenerateContentConfig {
	return g.newJSONConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"status": {
				Type: genai.TypeString,
				Enum: []string{"Success", "Error"},
			},
			"errorDetails": {Type: genai.TypeString},
			"summary":      {Type: genai.TypeString},
			"testCases": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"input":          {Type: genai.TypeString},
						"expectedOutput": {Type: genai.TypeString},
						"actualOutput":   {Type: genai.TypeString},
						"passed":         {Type: genai.TypeBoolean},
					},
					Required: []string{"input", "expectedOutput", "actualOutput", "passed"},
				},
			},
		},
		Required: []string{"status", "summary", "testCases"},
	})
}

// buildHintSchema creates the schema for hint requests
func (g *GeminiProvider) buildHintSchema() *genai.GenerateContentConfig {
	return g.newJSONConfig(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"hint": {Type: genai.TypeString},
		},
		Required: []string{"hint"},
	})
}
