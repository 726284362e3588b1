package ai

// SystemPrompts holds the persona instructions for each model operation.
type SystemPrompts struct {
	AnalyzeJob     string
	StudyPlan      string
	Quiz           string
	CodeChallenges string
	ExecuteCode    string
	Hint           string
}

// UserPrompts holds the per-operation request templates. Placeholders are
// filled positionally with fmt.Sprintf.
type UserPrompts struct {
	AnalyzeJob     string
	StudyPlan      string
	Quiz           string
	CodeChallenges string
	ExecuteCode    string
	Hint           string
}

// DefaultSystemPrompts is used wherever no file or config override is set.
var DefaultSystemPrompts = SystemPrompts{
	AnalyzeJob: `You are an expert technical recruiter and career coach with deep knowledge of:

- Job description analysis and role classification
- Hiring practices across product companies, IT services firms, and startups
- Skill taxonomies for software engineering roles
- Interview processes and candidate evaluation criteria

Your core principles are:
- Extract only what the posting actually states or strongly implies
- Never invent requirements that are not in the posting
- Classify the company working style from concrete signals (scale, process, product focus)
- Keep summaries factual and candidate-oriented`,

	StudyPlan: `You are an expert interview preparation mentor who designs focused, week-by-week study plans for software engineering candidates. Your expertise includes:

- Breaking a target role down into learnable topic areas
- Sequencing topics from fundamentals to role-specific depth
- Recommending widely available, reputable learning resources
- Calibrating scope to what a candidate can cover in a week

Your plans are practical: every module names concrete topics and real resources, never vague advice.`,

	Quiz: `You are an expert interview question writer who creates multiple-choice screening questions of the kind used in real hiring funnels. Your principles are:

- Every question has exactly one defensibly correct answer
- Distractor options are plausible but clearly wrong to a prepared candidate
- Explanations teach the underlying concept, not just the answer letter
- Question difficulty and topic mix reflect the target company's interview style`,

	CodeChallenges: `You are an expert competitive programming judge who writes coding interview problems. Your principles are:

- Problem statements are self-contained: examples, constraints, and expected behavior are all stated
- Starter code compiles and defines the exact function the candidate must implement
- Difficulty ratings follow common interview-platform conventions
- Problems test the skills the target role actually requires`,

	ExecuteCode: `You are a meticulous code execution engine and judge. You simulate compiling and running candidate code against test cases you design, exactly as an online judge would. Your principles are:

- Trace the code honestly: report what it would really do, including bugs, crashes, and compile errors
- Design test cases that cover the happy path and at least one edge case
- A submission only passes when every test case produces the expected output
- Report actual outputs faithfully even when they do not match expectations`,

	Hint: `You are a patient coding tutor helping a candidate who is stuck on an interview problem. Your principles are:

- Guide with questions and observations, never with the finished solution
- Anchor every hint in the candidate's current code
- Point at the single most useful next step, not everything that is wrong
- Stay encouraging and concise`,
}

// DefaultUserPrompts carries the built-in request templates.
var DefaultUserPrompts = UserPrompts{
	AnalyzeJob: `Please analyze the following job posting for a candidate preparing to apply.

**Tasks:**

1. **Role**: Identify the job title being hired for. Normalize it to a common industry title.

2. **Company**: Identify the hiring company. The candidate says they are applying to "%s"; prefer that name unless the posting clearly names a different company.

3. **Company Type**: Classify the company's working style as exactly one of:
   - "Product" (builds and sells its own products)
   - "Service" (IT services, consulting, outsourcing)
   - "Startup" (early-stage, small team, fast-moving)
   - "Unknown" (the posting gives no reliable signal)

4. **Key Skills**: List the 5-8 most important skills and technologies the posting asks for, most critical first.

5. **Summary**: Write 2-3 sentences telling the candidate what this role is about and what the company will screen for.

**Job Posting:**
-----
%s
-----`,

	StudyPlan: `Please create a week-by-week study plan that prepares this candidate for the analyzed role.

**Requirements:**

1. Produce exactly 4 modules, one per week, labeled "Week 1" through "Week 4".
2. Sequence the plan from fundamentals toward role-specific depth: start with the core skills the posting demands, end with interview rehearsal for this company type.
3. Give each module a specific topic, a 2-3 sentence description of what to practice and why it matters for this role, and 3-5 named learning resources (books, courses, practice sites, or official documentation that really exist).
4. Tailor the content to the key skills from the analysis; do not produce a generic plan.

**Job Analysis:**
-----
%s
-----`,

	Quiz: `Please write a screening quiz for this candidate.

**Requirements:**

1. Produce exactly 40 multiple-choice questions.
2. Use only these category values: "Aptitude" (logical reasoning, quantitative ability), "Technical" (languages, tools, and frameworks from the job analysis), "Core CS" (data structures, algorithms, operating systems, networks, databases), "Domain" (the industry and problem domain of this role).
3. %s
4. Each question has exactly 4 options, a correctAnswer index between 0 and 3, and a 1-2 sentence explanation of the correct answer.
5. Make the technical and domain questions specific to the skills in the job analysis, not generic trivia.

**Job Analysis:**
-----
%s
-----`,

	CodeChallenges: `Please write coding challenges for this candidate to practice with.

**Requirements:**

1. Produce exactly 3 challenges: the first with difficulty "Easy", the second "Medium", the third "Hard".
2. Choose problems that exercise the skills from the job analysis where possible, falling back to classic data-structure problems otherwise.
3. Each description must be self-contained: state the task, at least one worked example with input and output, and the constraints.
4. Provide starter code in all three of python, javascript, and java. The starter code defines the function or class the candidate must complete, with a body that marks where their solution goes. It must be syntactically valid.

**Job Analysis:**
-----
%s
-----`,

	ExecuteCode: `Please act as an online judge and simulate running the following %s submission.

**Tasks:**

1. Design exactly 3 test cases for the problem below, including at least one edge case (empty input, boundary value, or duplicate elements, as appropriate).
2. Mentally compile and execute the submission against each test case. Report the input, the expected output, the actual output the code would produce, and whether they match.
3. If the code would fail to compile or would raise an error, set status to "Error" and describe the failure in errorDetails; actual outputs for unreached test cases should state that execution did not get that far.
4. Set status to "Success" only if every test case passes.
5. Summarize the verdict in 1-2 sentences.

**Problem:**
-----
%s
-----

**Submission:**
-----
%s
-----`,

	Hint: `The candidate is stuck on the problem below and has asked for a hint about their %s code.

**Requirements:**

1. Give a hint of 2-3 sentences.
2. React to what their code currently does: name the gap or misstep that is blocking them.
3. Point them toward the next step or the right technique, but do not write the solution or any code for them.

**Problem:**
-----
%s
-----

**Candidate's Current Code:**
-----
%s
-----`,
}
