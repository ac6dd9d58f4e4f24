package tool

import (
	"fmt"
	"strings"
)

// PromptInput carries the per-job fields interpolated into step prompts.
type PromptInput struct {
	JobID  string
	Dir    string
	Prompt string
}

const planTemplate = `# TaskArena Planning Request

## Job ID
%s

## Working Directory
%s

## Task Prompt
%s

## Combined Rules (Host takes precedence)
%s

Produce a concise plan with:
- Key constraints from the rules.
- 3-5 ordered steps that respect repo safety.
- Risks or blockers.
- Acceptance checks aligned with the host project.
`

const applyTemplate = `# TaskArena Apply Instructions

You are executing TaskArena job %s in repository %s.

## Combined Rules (Host precedence)
%s

## Approved Plan
%s

## Task Prompt
%s

Follow the approved plan. Explain the changes you make and ensure artifacts are generated.
`

// PlanPrompt renders the planning-step prompt.
func PlanPrompt(job PromptInput, rules string) string {
	return fmt.Sprintf(planTemplate, job.JobID, job.Dir, job.Prompt, rules)
}

// ApplyPrompt renders the apply-step prompt, embedding the plan output the
// planning step produced.
func ApplyPrompt(job PromptInput, rules, planOutput string) string {
	planOutput = strings.TrimSpace(planOutput)
	if planOutput == "" {
		planOutput = "Plan output missing."
	}
	return fmt.Sprintf(applyTemplate, job.JobID, job.Dir, rules, planOutput, job.Prompt)
}
