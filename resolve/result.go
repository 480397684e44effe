package resolve

import "github.com/teranos/issuebot/source"

// Issue types derived from the board
const (
	TypeEpic = "Epic"
	TypeTask = "Task"
)

// Unassigned is shown when the tracker reports no assignee
const Unassigned = "Unassigned"

// Summary is the merged, renderable view of one issue. Built once, never mutated.
type Summary struct {
	IssueID     int
	Title       string
	URL         string
	Status      string
	Type        string // TypeEpic or TypeTask
	Assignee    string
	Labels      []string
	BodyExcerpt string // empty when the issue has no body or excerpts are disabled
}

// Failure explains why no summary could be built for an issue
type Failure struct {
	IssueID      int
	SourceName   string
	Kind         source.ErrorKind
	ErrorMessage string // upstream text, verbatim
}

// Result carries exactly one of Summary or Failure
type Result struct {
	Summary *Summary
	Failure *Failure
}

// OK reports whether the result is a summary
func (r Result) OK() bool {
	return r.Summary != nil && r.Failure == nil
}

// IssueID returns the identifier of whichever artifact is set
func (r Result) IssueID() int {
	switch {
	case r.Summary != nil:
		return r.Summary.IssueID
	case r.Failure != nil:
		return r.Failure.IssueID
	}
	return 0
}

func failed(issueID int, name string, out source.Outcome) Result {
	return Result{Failure: &Failure{
		IssueID:      issueID,
		SourceName:   name,
		Kind:         out.Kind,
		ErrorMessage: out.Message,
	}}
}
