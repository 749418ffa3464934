package ai

import (
	"bytes"
	"fmt"
	"text/template"

	"careercoach/internal/errors"
	"careercoach/internal/types"
)

// FlowPrompts are the system instruction and user prompt template of one flow.
// User templates are text/template documents executed against the flow's
// input record, e.g. {{.JobTitle}}.
type FlowPrompts struct {
	System string
	User   string
}

const coachPersona = `You are an experienced career coach and technical recruiter. You give honest, specific advice grounded only in what the user tells you.

- NEVER invent employers, dates, degrees, metrics or achievements
- Prefer concrete, action-oriented wording over generic phrases
- Keep a professional, encouraging tone
- Answer only with JSON that matches the requested schema`

// DefaultPrompts holds the built-in prompts for every flow
var DefaultPrompts = map[types.FlowName]FlowPrompts{
	types.FlowImproveResume: {
		System: coachPersona,
		User: `Improve the following {{.Section}} section of a resume{{with .Industry}} for a professional in {{.}}{{end}}.

Make it more impactful: use strong action verbs, quantify results where the text already implies them, and align it with industry expectations. Keep every fact from the original.

**Current content:**
-----
{{.Content}}
-----

Return the rewritten section in "improvedContent" as a single block of text without commentary.`,
	},

	types.FlowCoverLetter: {
		System: coachPersona,
		User: `Write a professional cover letter for the {{.JobTitle}} position at {{.CompanyName}}.

**About the candidate:**
- Industry: {{or .Industry "not specified"}}
- Experience: {{or .Experience "not specified"}}
- Skills: {{or .Skills "not specified"}}
- Professional background: {{or .Bio "not specified"}}

**Job description:**
-----
{{.JobDescription}}
-----

Requirements:
1. Professional, enthusiastic tone
2. Highlight skills and experience that match the job
3. Show understanding of the company
4. Stay under 400 words
5. Use business letter formatting in markdown

Return the letter in "coverLetter".`,
	},

	types.FlowRoadmap: {
		System: coachPersona,
		User: `Create a career roadmap for someone moving from {{.CurrentRole}} to {{.TargetRole}}{{with .Timeframe}} within {{.}}{{end}}.
{{with .Skills}}
Current skills: {{.}}
{{end}}
Break the plan into stages with concrete learning goals, projects and milestones.

Return:
- "title": a short title for the roadmap
- "summary": one paragraph describing the plan
- "roadmap": the staged plan in markdown
- "mermaidDiagram": Mermaid flowchart source (starting with "flowchart TD") showing the stages`,
	},

	types.FlowChat: {
		System: coachPersona + `

You are chatting with a user about their career. Keep replies short enough to read in under a minute.`,
		User: `{{with .UserContext}}What we know about the user:
{{.}}

{{end}}{{with .History}}Conversation so far:
-----
{{.}}
-----

{{end}}User: {{.Message}}

Reply in "reply" using markdown. Set "followUpSuggested" to true if your reply ends with a question to the user.`,
	},

	types.FlowAgentDescription: {
		System: `You design conversational assistants. You write clear product copy and precise system prompts.`,
		User: `Describe an assistant named "{{.AgentName}}".

Purpose: {{.Purpose}}
{{with .Audience}}Audience: {{.}}
{{end}}
Return:
- "description": two or three sentences a user would read before starting a chat
- "systemPrompt": the system prompt that makes a language model act as this assistant`,
	},

	types.FlowJSONConvert: {
		System: `You convert unstructured text into JSON. You never invent values that are not in the text.`,
		User: `Convert the text below into a JSON document shaped like this target:
-----
{{.TargetShape}}
-----

Text:
-----
{{.Text}}
-----

Put the resulting JSON document, serialized as a string, in "json". Use null for values the text does not provide and set "complete" to false if any such value exists.`,
	},

	types.FlowAnalyzeResume: {
		System: coachPersona,
		User: `Review the resume below{{with .TargetRole}} for a {{.}} role{{end}}.

**Resume:**
-----
{{.Resume}}
-----

Return:
- "summary": an overall assessment
- "strengths": what the resume does well
- "improvements": concrete changes to make, as a markdown list
- "atsFriendly": true if an applicant tracking system is likely to parse it well`,
	},

	types.FlowInterviewQuestions: {
		System: coachPersona,
		User: `Generate 10 {{or .Difficulty "medium"}} difficulty interview questions for a {{.Role}} position in {{.Industry}}.
{{with .Skills}}
Focus on these skills: {{.}}
{{end}}
Mix technical and behavioral questions. Return them in "questions" as a numbered markdown list, and advice for answering them in "tips".`,
	},
}

// resolvePrompt returns the first non-empty prompt: an override from config
// or a prompt file, then the built-in default
func resolvePrompt(override, fromDefault string) string {
	if override != "" {
		return override
	}
	return fromDefault
}

// renderPrompt executes a user prompt template against the flow input.
// Unknown fields in a custom template are reported as config errors.
func renderPrompt(flow types.FlowName, tmpl string, input any) (string, error) {
	t, err := template.New(string(flow)).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid prompt template for %s", flow), err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, input); err != nil {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("prompt template for %s does not match its input", flow), err)
	}
	return buf.String(), nil
}
