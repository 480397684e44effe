// Package render turns resolution results into chat payloads.
//
// Rendering is a pure mapping. It never returns an error: input it cannot
// represent becomes a generic fallback payload.
package render

import (
	"fmt"
	"strings"

	"github.com/teranos/issuebot/resolve"
	"github.com/teranos/issuebot/source"
)

// DefaultColor is the attachment side bar color
const DefaultColor = "#5e60ba"

// Dash stands in for empty field values, e.g. an issue without labels
const Dash = "—"

// FallbackText is sent when a result cannot be rendered
const FallbackText = ":warning: Could not display this issue."

// Field is one title/value cell of an attachment
type Field struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Value string `json:"value" yaml:"value"`
	Short bool   `json:"short,omitempty" yaml:"short,omitempty"`
}

// Attachment is a Slack message attachment
type Attachment struct {
	Fallback  string  `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Color     string  `json:"color,omitempty" yaml:"color,omitempty"`
	Title     string  `json:"title,omitempty" yaml:"title,omitempty"`
	TitleLink string  `json:"title_link,omitempty" yaml:"title_link,omitempty"`
	Fields    []Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Payload is one reply: either plain text or a single attachment
type Payload struct {
	IssueID     int          `json:"issue_id" yaml:"issue_id"`
	Text        string       `json:"text,omitempty" yaml:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// IsWarning reports whether the payload is a failure or fallback notice
func (p Payload) IsWarning() bool {
	return len(p.Attachments) == 0
}

// Renderer holds presentation settings
type Renderer struct {
	Color string
	// SourceLabels maps source names to the names users know them by
	SourceLabels map[string]string
}

// DefaultSourceLabels names the two upstreams the way users see them
var DefaultSourceLabels = map[string]string{
	source.Tracker: "GitHub",
	source.Board:   "ZenHub",
}

// New returns a Renderer with the default color and source labels
func New() *Renderer {
	return &Renderer{Color: DefaultColor, SourceLabels: DefaultSourceLabels}
}

// Render renders result with default settings
func Render(result resolve.Result) Payload {
	return New().Render(result)
}

// Render maps a result to a payload
func (r *Renderer) Render(result resolve.Result) (p Payload) {
	defer func() {
		if recover() != nil {
			p = fallback(result.IssueID())
		}
	}()

	switch {
	case result.Summary != nil && result.Failure == nil:
		return r.summary(result.Summary)
	case result.Failure != nil && result.Summary == nil:
		return r.failure(result.Failure)
	}
	return fallback(result.IssueID())
}

func (r *Renderer) summary(s *resolve.Summary) Payload {
	if s.IssueID <= 0 || strings.TrimSpace(s.Title) == "" {
		return fallback(s.IssueID)
	}

	// Upstream text is untrusted mrkdwn
	title := fmt.Sprintf("%s #%d", Escape(s.Title), s.IssueID)
	color := r.Color
	if color == "" {
		color = DefaultColor
	}

	var fields []Field
	if s.BodyExcerpt != "" {
		fields = append(fields, Field{Value: Escape(s.BodyExcerpt)})
	}
	fields = append(fields,
		Field{Title: "Status", Value: orDash(s.Status), Short: true},
		Field{Title: "Type", Value: orDash(s.Type), Short: true},
		Field{Title: "Assignee", Value: orDash(s.Assignee), Short: true},
		Field{Title: "Labels", Value: labels(s.Labels)},
	)

	return Payload{
		IssueID: s.IssueID,
		Attachments: []Attachment{{
			Fallback:  title,
			Color:     color,
			Title:     title,
			TitleLink: s.URL,
			Fields:    fields,
		}},
	}
}

func (r *Renderer) failure(f *resolve.Failure) Payload {
	name := f.SourceName
	if label, ok := r.SourceLabels[name]; ok {
		name = label
	}
	if name == "" {
		name = "an upstream source"
	}
	message := f.ErrorMessage
	if message == "" {
		message = "no reason given"
	}
	return Payload{
		IssueID: f.IssueID,
		Text:    fmt.Sprintf(":warning: Failed to pull data from %s. They told me: %s", Escape(name), Codify(message)),
	}
}

func fallback(issueID int) Payload {
	text := FallbackText
	if issueID > 0 {
		text = fmt.Sprintf(":warning: Could not display issue #%d.", issueID)
	}
	return Payload{IssueID: issueID, Text: text}
}

func labels(names []string) string {
	var kept []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, Escape(n))
		}
	}
	if len(kept) == 0 {
		return Dash
	}
	return strings.Join(kept, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Dash
	}
	return Escape(s)
}
