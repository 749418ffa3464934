package types

import (
	"encoding/json"
	"time"
)

// FlowName identifies one AI-backed feature.
type FlowName string

const (
	FlowImproveResume      FlowName = "improve-resume"
	FlowCoverLetter        FlowName = "cover-letter"
	FlowRoadmap            FlowName = "roadmap"
	FlowChat               FlowName = "chat"
	FlowAgentDescription   FlowName = "agent-description"
	FlowJSONConvert        FlowName = "json-convert"
	FlowAnalyzeResume      FlowName = "analyze-resume"
	FlowInterviewQuestions FlowName = "interview-questions"
)

// AllFlows lists every flow in display order.
var AllFlows = []FlowName{
	FlowImproveResume,
	FlowCoverLetter,
	FlowRoadmap,
	FlowChat,
	FlowAgentDescription,
	FlowJSONConvert,
	FlowAnalyzeResume,
	FlowInterviewQuestions,
}

// ParseFlowName returns the flow with the given name.
func ParseFlowName(s string) (FlowName, bool) {
	for _, f := range AllFlows {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// ImproveResumeInput asks for one resume section to be rewritten
type ImproveResumeInput struct {
	Content  string `json:"content"`
	Section  string `json:"section"`
	Industry string `json:"industry"`
}

type ImproveResumeOutput struct {
	ImprovedContent string `json:"improvedContent"`
}

// CoverLetterInput represents the input for generating a cover letter
type CoverLetterInput struct {
	JobTitle       string `json:"jobTitle"`
	CompanyName    string `json:"companyName"`
	JobDescription string `json:"jobDescription"`
	Industry       string `json:"industry"`
	Experience     string `json:"experience"`
	Skills         string `json:"skills"`
	Bio            string `json:"bio"`
}

type CoverLetterOutput struct {
	CoverLetter string `json:"coverLetter"`
}

// RoadmapInput represents the input for a career roadmap
type RoadmapInput struct {
	CurrentRole string `json:"currentRole"`
	TargetRole  string `json:"targetRole"`
	Skills      string `json:"skills"`
	Timeframe   string `json:"timeframe"`
}

// RoadmapOutput carries the roadmap as markdown plus a Mermaid flowchart
type RoadmapOutput struct {
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	Roadmap        string `json:"roadmap"`
	MermaidDiagram string `json:"mermaidDiagram"`
}

// ChatInput is one turn of the career chat. History is a plain transcript.
type ChatInput struct {
	Message     string `json:"message"`
	History     string `json:"history"`
	UserContext string `json:"userContext"`
}

type ChatOutput struct {
	Reply             string `json:"reply"`
	FollowUpSuggested bool   `json:"followUpSuggested"`
}

// AgentDescriptionInput describes an assistant persona to be written up
type AgentDescriptionInput struct {
	AgentName string `json:"agentName"`
	Purpose   string `json:"purpose"`
	Audience  string `json:"audience"`
}

type AgentDescriptionOutput struct {
	Description  string `json:"description"`
	SystemPrompt string `json:"systemPrompt"`
}

// JSONConvertInput asks for free text to be converted to a JSON document
// shaped like TargetShape
type JSONConvertInput struct {
	Text        string `json:"text"`
	TargetShape string `json:"targetShape"`
}

// JSONConvertOutput holds the converted document as a JSON string.
// Complete is false when the text lacked data for some target fields.
type JSONConvertOutput struct {
	JSON     string `json:"json"`
	Complete bool   `json:"complete"`
}

// AnalyzeResumeInput represents the input for analyzing a resume
type AnalyzeResumeInput struct {
	Resume     string `json:"resume"`
	TargetRole string `json:"targetRole"`
}

// AnalyzeResumeOutput represents the output from analyzing a resume
type AnalyzeResumeOutput struct {
	Summary      string `json:"summary"`
	Strengths    string `json:"strengths"`
	Improvements string `json:"improvements"`
	ATSFriendly  bool   `json:"atsFriendly"`
}

// InterviewQuestionsInput represents the input for interview preparation
type InterviewQuestionsInput struct {
	Industry   string `json:"industry"`
	Role       string `json:"role"`
	Skills     string `json:"skills"`
	Difficulty string `json:"difficulty"`
}

type InterviewQuestionsOutput struct {
	Questions string `json:"questions"`
	Tips      string `json:"tips"`
}

// PublicUser is the only user shape that leaves the server
type PublicUser struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	ImageURL  string `json:"imageUrl"`
	CreatedAt string `json:"createdAt"`
}

// Generation is one stored flow result
type Generation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Flow      FlowName        `json:"flow"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"createdAt"`
}
