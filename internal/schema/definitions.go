package schema

import "careercoach/internal/types"

// FlowSchemas pairs the request and response declarations of one flow.
type FlowSchemas struct {
	Input  *Schema
	Output *Schema
}

var (
	ImproveResumeInput = New("ImproveResumeInput", "A resume section to rewrite",
		RequiredString("content", "Current text of the resume section"),
		RequiredString("section", "Which section this is, e.g. summary, experience, skills"),
		OptionalString("industry", "Industry the candidate works in"),
	)
	ImproveResumeOutput = New("ImproveResumeOutput", "The rewritten resume section",
		RequiredString("improvedContent", "Improved section text with quantified, action-oriented wording"),
	)

	CoverLetterInput = New("CoverLetterInput", "Job and candidate details for a cover letter",
		RequiredString("jobTitle", "Title of the position applied for"),
		RequiredString("companyName", "Name of the hiring company"),
		RequiredString("jobDescription", "Full job description text"),
		OptionalString("industry", "Industry of the candidate"),
		OptionalString("experience", "Summary of the candidate's experience"),
		OptionalString("skills", "Comma-separated list of the candidate's skills"),
		OptionalString("bio", "Short professional bio of the candidate"),
	)
	CoverLetterOutput = New("CoverLetterOutput", "A generated cover letter",
		RequiredString("coverLetter", "Cover letter in markdown, under 400 words"),
	)

	RoadmapInput = New("RoadmapInput", "Where the candidate is and where they want to go",
		RequiredString("currentRole", "Candidate's current role"),
		RequiredString("targetRole", "Role the candidate is aiming for"),
		OptionalString("skills", "Skills the candidate already has"),
		OptionalString("timeframe", "Desired timeframe, e.g. 6 months"),
	)
	RoadmapOutput = New("RoadmapOutput", "A staged career roadmap",
		RequiredString("title", "Short title for the roadmap"),
		RequiredString("summary", "One paragraph overview of the plan"),
		RequiredString("roadmap", "Step-by-step plan in markdown"),
		RequiredString("mermaidDiagram", "Mermaid flowchart source visualising the stages"),
	)

	ChatInput = New("ChatInput", "One message to the career coach",
		RequiredString("message", "The user's latest message"),
		OptionalString("history", "Earlier conversation transcript"),
		OptionalString("userContext", "Known facts about the user such as industry and skills"),
	)
	ChatOutput = New("ChatOutput", "The coach's reply",
		RequiredString("reply", "Reply to the user's message in markdown"),
		RequiredBool("followUpSuggested", "Whether the coach asked a follow-up question"),
	)

	AgentDescriptionInput = New("AgentDescriptionInput", "An assistant persona to describe",
		RequiredString("agentName", "Display name of the assistant"),
		RequiredString("purpose", "What the assistant should help with"),
		OptionalString("audience", "Who will talk to the assistant"),
	)
	AgentDescriptionOutput = New("AgentDescriptionOutput", "A written-up assistant persona",
		RequiredString("description", "User-facing description of the assistant"),
		RequiredString("systemPrompt", "System prompt that makes a model behave as the assistant"),
	)

	JSONConvertInput = New("JSONConvertInput", "Free text to convert into structured JSON",
		RequiredString("text", "Unstructured source text"),
		RequiredString("targetShape", "Example or description of the JSON shape to produce"),
	)
	JSONConvertOutput = New("JSONConvertOutput", "The converted JSON document",
		RequiredString("json", "JSON document serialized as a string"),
		RequiredBool("complete", "Whether every field of the target shape was filled from the text"),
	)

	AnalyzeResumeInput = New("AnalyzeResumeInput", "A resume to review",
		RequiredString("resume", "Full resume text"),
		OptionalString("targetRole", "Role the resume is aimed at"),
	)
	AnalyzeResumeOutput = New("AnalyzeResumeOutput", "A resume review",
		RequiredString("summary", "Overall assessment of the resume"),
		RequiredString("strengths", "What the resume does well"),
		RequiredString("improvements", "Concrete suggested changes"),
		RequiredBool("atsFriendly", "Whether an applicant tracking system is likely to parse the resume well"),
	)

	InterviewQuestionsInput = New("InterviewQuestionsInput", "Interview preparation request",
		RequiredString("industry", "Industry of the position"),
		RequiredString("role", "Role being interviewed for"),
		OptionalString("skills", "Skills to focus the questions on"),
		OptionalString("difficulty", "easy, medium or hard"),
	)
	InterviewQuestionsOutput = New("InterviewQuestionsOutput", "Practice interview questions",
		RequiredString("questions", "Numbered list of questions in markdown"),
		RequiredString("tips", "Advice for answering the questions well"),
	)
)

var flows = map[types.FlowName]FlowSchemas{
	types.FlowImproveResume:      {ImproveResumeInput, ImproveResumeOutput},
	types.FlowCoverLetter:        {CoverLetterInput, CoverLetterOutput},
	types.FlowRoadmap:            {RoadmapInput, RoadmapOutput},
	types.FlowChat:               {ChatInput, ChatOutput},
	types.FlowAgentDescription:   {AgentDescriptionInput, AgentDescriptionOutput},
	types.FlowJSONConvert:        {JSONConvertInput, JSONConvertOutput},
	types.FlowAnalyzeResume:      {AnalyzeResumeInput, AnalyzeResumeOutput},
	types.FlowInterviewQuestions: {InterviewQuestionsInput, InterviewQuestionsOutput},
}

// ForFlow returns the schemas declared for a flow.
func ForFlow(flow types.FlowName) (FlowSchemas, bool) {
	s, ok := flows[flow]
	return s, ok
}
