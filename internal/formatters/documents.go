package formatters

import (
	"fmt"
	"strings"

	"careercoach/internal/types"
)

// Section is one titled block of a rendered document
type Section struct {
	Title string
	Body  string
	Code  string // fence language in markdown; empty for prose
}

// Document is the format-neutral shape text and markdown render from
type Document struct {
	Title    string
	Sections []Section
}

// documents builds a Document for each renderable data type
var documents = map[string]func(any) Document{
	"ImproveResumeOutput": func(d any) Document {
		o := d.(types.ImproveResumeOutput)
		return Document{Title: "Improved Resume Section", Sections: []Section{
			{Title: "Improved Content", Body: o.ImprovedContent},
		}}
	},
	"CoverLetterOutput": func(d any) Document {
		o := d.(types.CoverLetterOutput)
		return Document{Title: "Cover Letter", Sections: []Section{
			{Title: "Letter", Body: o.CoverLetter},
		}}
	},
	"RoadmapOutput": func(d any) Document {
		o := d.(types.RoadmapOutput)
		return Document{Title: o.Title, Sections: []Section{
			{Title: "Summary", Body: o.Summary},
			{Title: "Roadmap", Body: o.Roadmap},
			{Title: "Diagram", Body: o.MermaidDiagram, Code: "mermaid"},
		}}
	},
	"ChatOutput": func(d any) Document {
		o := d.(types.ChatOutput)
		sections := []Section{{Title: "Reply", Body: o.Reply}}
		if o.FollowUpSuggested {
			sections = append(sections, Section{Title: "Next", Body: "The coach suggests a follow-up question."})
		}
		return Document{Title: "Career Coach", Sections: sections}
	},
	"AgentDescriptionOutput": func(d any) Document {
		o := d.(types.AgentDescriptionOutput)
		return Document{Title: "Agent Description", Sections: []Section{
			{Title: "Description", Body: o.Description},
			{Title: "System Prompt", Body: o.SystemPrompt, Code: "text"},
		}}
	},
	"JSONConvertOutput": func(d any) Document {
		o := d.(types.JSONConvertOutput)
		return Document{Title: "Converted JSON", Sections: []Section{
			{Title: "Document", Body: o.JSON, Code: "json"},
			{Title: "Complete", Body: yesNo(o.Complete)},
		}}
	},
	"AnalyzeResumeOutput": func(d any) Document {
		o := d.(types.AnalyzeResumeOutput)
		return Document{Title: "Resume Analysis", Sections: []Section{
			{Title: "Summary", Body: o.Summary},
			{Title: "Strengths", Body: o.Strengths},
			{Title: "Improvements", Body: o.Improvements},
			{Title: "ATS Friendly", Body: yesNo(o.ATSFriendly)},
		}}
	},
	"InterviewQuestionsOutput": func(d any) Document {
		o := d.(types.InterviewQuestionsOutput)
		return Document{Title: "Interview Questions", Sections: []Section{
			{Title: "Questions", Body: o.Questions},
			{Title: "Tips", Body: o.Tips},
		}}
	},
	"[]PublicUser": func(d any) Document {
		users := d.([]types.PublicUser)
		doc := Document{Title: fmt.Sprintf("Users (%d)", len(users))}
		for _, u := range users {
			name := strings.TrimSpace(u.FirstName + " " + u.LastName)
			if name == "" {
				name = u.ID
			}
			doc.Sections = append(doc.Sections, Section{
				Title: name,
				Body:  fmt.Sprintf("ID: %s\nEmail: %s\nCreated: %s", u.ID, u.Email, u.CreatedAt),
			})
		}
		return doc
	},
}

func documentFor(dataType string, data any) (Document, error) {
	build, ok := documents[dataType]
	if !ok || getDataType(data) != dataType {
		return Document{}, fmt.Errorf("expected %s, got %T", dataType, data)
	}
	return build(data), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
