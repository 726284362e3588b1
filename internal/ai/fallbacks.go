package ai

import (
	"strings"

	"prepforge/internal/types"
)

// Fallback content served when a generation operation cannot produce a valid
// result. Every value here satisfies the same shape guarantees as generated
// content, so callers never need a degraded-mode code path.

// FallbackAnalysis returns the generic analysis used when the posting could
// not be analyzed. The caller-supplied company name is preserved when present.
func FallbackAnalysis(companyName string) types.JobAnalysis {
	company := strings.TrimSpace(companyName)
	if company == "" {
		company = "Unknown Company"
	}
	return types.JobAnalysis{
		Role:        "Software Engineer",
		Company:     company,
		CompanyType: types.CompanyTypeUnknown,
		Skills:      []string{"Problem Solving"},
		Summary:     "The job description could not be analyzed, so the preparation content is generic. Submit the posting again for role-specific guidance.",
	}
}

// FallbackTrainingPlan returns an empty study plan
func FallbackTrainingPlan() types.TrainingPlan {
	return types.TrainingPlan{StudyPlan: []types.StudyModule{}}
}

// FallbackQuiz returns an empty question list
func FallbackQuiz() []types.QuizQuestion {
	return []types.QuizQuestion{}
}

// FallbackChallenges returns the single hard-coded practice problem served
// when challenge generation fails
func FallbackChallenges() []types.CodeChallenge {
	return []types.CodeChallenge{
		{
			Title: "Two Sum",
			Description: "Given an array of integers nums and an integer target, return the indices of the two numbers that add up to target.\n\n" +
				"You may assume that each input has exactly one solution, and you may not use the same element twice.\n\n" +
				"Example:\nInput: nums = [2, 7, 11, 15], target = 9\nOutput: [0, 1]\nExplanation: nums[0] + nums[1] == 9.\n\n" +
				"Constraints:\n- 2 <= nums.length <= 10^4\n- -10^9 <= nums[i] <= 10^9\n- exactly one valid answer exists",
			Difficulty: types.DifficultyEasy,
			StarterCode: types.StarterCode{
				Python:     "def two_sum(nums, target):\n    # Write your solution here\n    pass\n",
				JavaScript: "function twoSum(nums, target) {\n  // Write your solution here\n}\n",
				Java:       "class Solution {\n    public int[] twoSum(int[] nums, int target) {\n        // Write your solution here\n        return new int[] {};\n    }\n}\n",
			},
		},
	}
}

// FallbackExecution returns the result served when a run could not be simulated
func FallbackExecution() types.ExecutionResult {
	return types.ExecutionResult{
		Status:    types.ExecutionError,
		Summary:   "The execution service was unavailable, so this run could not be simulated. Try again in a moment.",
		TestCases: []types.TestCaseResult{},
	}
}

// FallbackHint returns the generic hint served when hint generation fails
func FallbackHint() string {
	return "Walk through your code line by line with the example input from the problem statement, and check how it behaves on the smallest valid input. Comparing what you expect at each step with what the code actually computes usually uncovers the gap."
}
