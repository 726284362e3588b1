package types

// DisplayAttributes carries fixed presentation hints for an enum value.
// UIs render from these instead of switching on raw strings.
type DisplayAttributes struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Display returns the presentation attributes for a company type
func (c CompanyType) Display() DisplayAttributes {
	switch c {
	case CompanyTypeProduct:
		return DisplayAttributes{Label: "Product Company", Color: "blue", Icon: "package"}
	case CompanyTypeService:
		return DisplayAttributes{Label: "Service Company", Color: "teal", Icon: "briefcase"}
	case CompanyTypeStartup:
		return DisplayAttributes{Label: "Startup", Color: "orange", Icon: "rocket"}
	default:
		return DisplayAttributes{Label: "Unknown", Color: "gray", Icon: "help-circle"}
	}
}

// Display returns the presentation attributes for a quiz category
func (q QuizCategory) Display() DisplayAttributes {
	switch q {
	case QuizCategoryAptitude:
		return DisplayAttributes{Label: "Aptitude & Reasoning", Color: "purple", Icon: "brain"}
	case QuizCategoryTechnical:
		return DisplayAttributes{Label: "Technical", Color: "blue", Icon: "code"}
	case QuizCategoryCoreCS:
		return DisplayAttributes{Label: "Core CS Fundamentals", Color: "green", Icon: "cpu"}
	case QuizCategoryDomain:
		return DisplayAttributes{Label: "Domain Knowledge", Color: "amber", Icon: "layers"}
	default:
		return DisplayAttributes{Label: string(q), Color: "gray", Icon: "help-circle"}
	}
}

// Display returns the presentation attributes for a difficulty grade
func (d Difficulty) Display() DisplayAttributes {
	switch d {
	case DifficultyEasy:
		return DisplayAttributes{Label: "Easy", Color: "green", Icon: "circle"}
	case DifficultyMedium:
		return DisplayAttributes{Label: "Medium", Color: "yellow", Icon: "triangle"}
	case DifficultyHard:
		return DisplayAttributes{Label: "Hard", Color: "red", Icon: "square"}
	default:
		return DisplayAttributes{Label: string(d), Color: "gray", Icon: "help-circle"}
	}
}

// Display returns the presentation attributes for an execution status
func (e ExecutionStatus) Display() DisplayAttributes {
	switch e {
	case ExecutionSuccess:
		return DisplayAttributes{Label: "Success", Color: "green", Icon: "check"}
	case ExecutionError:
		return DisplayAttributes{Label: "Error", Color: "red", Icon: "x"}
	default:
		return DisplayAttributes{Label: string(e), Color: "gray", Icon: "help-circle"}
	}
}
