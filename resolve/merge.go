package resolve

import (
	"fmt"
	"strings"

	"github.com/teranos/issuebot/source"
)

// DefaultExcerptLength is the body excerpt budget in runes
const DefaultExcerptLength = 160

// Aggregator merges tracker and board outcomes into one Result.
// The zero value uses tracker links and no excerpt; see NewAggregator.
type Aggregator struct {
	// ExcerptLength is the body excerpt budget, 0 disables excerpts
	ExcerptLength int
	// BoardLinkBase switches the summary link to the board web view:
	// "<BoardLinkBase>/issues/<id>". Empty keeps the tracker URL.
	BoardLinkBase string
}

// NewAggregator returns an Aggregator with the default excerpt budget
func NewAggregator() Aggregator {
	return Aggregator{ExcerptLength: DefaultExcerptLength}
}

// BoardLinkBase builds the board web URL prefix for one repository,
// e.g. https://app.zenhub.com/workspace/o/owner/repo
func BoardLinkBase(webURL, owner, repo string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(webURL, "/"), owner, repo)
}

// Merge builds the terminal artifact for one issue with default settings
func Merge(issueID int, tracker, board source.Outcome) Result {
	return NewAggregator().Merge(issueID, tracker, board)
}

// Merge builds the terminal artifact for one issue.
// Any failed outcome yields a Failure, tracker checked before board.
// Outcomes holding the wrong record type are treated as data failures.
func (a Aggregator) Merge(issueID int, tracker, board source.Outcome) Result {
	if !tracker.OK() {
		return failed(issueID, source.Tracker, normalizeFailure(tracker))
	}
	if !board.OK() {
		return failed(issueID, source.Board, normalizeFailure(board))
	}

	tr, ok := tracker.Record.(source.TrackerRecord)
	if !ok {
		return failed(issueID, source.Tracker, source.Failed(source.DataError, "unexpected tracker record"))
	}
	br, ok := board.Record.(source.BoardRecord)
	if !ok {
		return failed(issueID, source.Board, source.Failed(source.DataError, "unexpected board record"))
	}

	summary := &Summary{
		IssueID:     issueID,
		Title:       tr.Title,
		URL:         tr.URL,
		Status:      br.PipelineName,
		Type:        TypeTask,
		Assignee:    Unassigned,
		Labels:      append([]string(nil), tr.Labels...),
		BodyExcerpt: Excerpt(tr.Body, a.ExcerptLength),
	}
	if br.IsEpic {
		summary.Type = TypeEpic
	}
	if tr.Assignee != nil && *tr.Assignee != "" {
		summary.Assignee = *tr.Assignee
	}
	if a.BoardLinkBase != "" {
		summary.URL = fmt.Sprintf("%s/issues/%d", strings.TrimRight(a.BoardLinkBase, "/"), issueID)
	}

	return Result{Summary: summary}
}

// normalizeFailure gives zero outcomes a kind and message
func normalizeFailure(out source.Outcome) source.Outcome {
	if out.Kind == "" {
		return source.Failed(source.DataError, "source returned no result")
	}
	return out
}

// MergeOutcomes merges the tracker and board entries of an Outcomes set.
// Missing entries count as failures.
func (a Aggregator) MergeOutcomes(issueID int, outcomes Outcomes) Result {
	return a.Merge(issueID, outcomes[source.Tracker], outcomes[source.Board])
}
