// Package history records what the bot answered, one row per reference.
//
// History is write-only from the pipeline's point of view: nothing here is
// read back while resolving, so each message is still handled statelessly.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/reference"
	"github.com/teranos/issuebot/resolve"
)

// Outcome values stored in the outcome column
const (
	OutcomeSummary = "summary"
	OutcomeFailure = "failure"
)

// Entry is one recorded resolution
type Entry struct {
	ID           int64     `json:"id" yaml:"id"`
	RequestID    string    `json:"request_id" yaml:"request_id"`
	Channel      string    `json:"channel,omitempty" yaml:"channel,omitempty"`
	UserID       string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	IssueID      int       `json:"issue_id" yaml:"issue_id"`
	RawMatch     string    `json:"raw_match" yaml:"raw_match"`
	Outcome      string    `json:"outcome" yaml:"outcome"`
	FailedSource string    `json:"failed_source,omitempty" yaml:"failed_source,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	DurationMS   int64     `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// NewEntry describes the artifact produced for ref
func NewEntry(requestID, channel, userID string, ref reference.Reference, result resolve.Result, took time.Duration) Entry {
	e := Entry{
		RequestID:  requestID,
		Channel:    channel,
		UserID:     userID,
		IssueID:    ref.IssueID,
		RawMatch:   ref.RawMatch,
		Outcome:    OutcomeSummary,
		DurationMS: took.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if f := result.Failure; f != nil || !result.OK() {
		e.Outcome = OutcomeFailure
		if f != nil {
			e.FailedSource = f.SourceName
			e.ErrorKind = string(f.Kind)
			e.ErrorMessage = f.ErrorMessage
		}
	}
	return e
}

// Recorder persists entries
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries; used when storage.backend is "none"
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, Entry) error { return nil }

// Store keeps history in the resolutions table
type Store struct {
	db *sql.DB
}

// NewStore wraps an already migrated database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record implements Recorder
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO resolutions (
			request_id, channel, user_id, issue_id, raw_match, outcome,
			failed_source, error_kind, error_message, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		e.RequestID, e.Channel, e.UserID, e.IssueID, e.RawMatch, e.Outcome,
		e.FailedSource, e.ErrorKind, e.ErrorMessage, e.DurationMS, e.CreatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record resolution of #%d", e.IssueID)
	}
	return nil
}

// Recent returns the newest entries first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, request_id, channel, user_id, issue_id, raw_match, outcome,
			failed_source, error_kind, error_message, duration_ms, created_at
		FROM resolutions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query resolutions")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Channel, &e.UserID, &e.IssueID, &e.RawMatch,
			&e.Outcome, &e.FailedSource, &e.ErrorKind, &e.ErrorMessage, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan resolution")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read resolutions")
	}
	return entries, nil
}

// Stats summarizes resolutions since a point in time
type Stats struct {
	Total         int            `json:"total" yaml:"total"`
	Summaries     int            `json:"summaries" yaml:"summaries"`
	Failures      int            `json:"failures" yaml:"failures"`
	SuccessRate   float64        `json:"success_rate" yaml:"success_rate"`
	AvgDurationMS float64        `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	UniqueIssues  int            `json:"unique_issues" yaml:"unique_issues"`
	FailuresBySrc map[string]int `json:"failures_by_source" yaml:"failures_by_source"`
}

// Stats aggregates everything recorded at or after since
func (s *Store) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COUNT(CASE WHEN outcome = 'summary' THEN 1 END) as summaries,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			COUNT(DISTINCT issue_id) as unique_issues
		FROM resolutions
		WHERE created_at >= ?`

	var stats Stats
	err := s.db.QueryRowContext(ctx, query, since.UTC()).Scan(
		&stats.Total, &stats.Summaries, &stats.AvgDurationMS, &stats.UniqueIssues,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query resolution stats")
	}
	stats.Failures = stats.Total - stats.Summaries
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Summaries) / float64(stats.Total)
	}

	breakdown := `
		SELECT failed_source, COUNT(*)
		FROM resolutions
		WHERE created_at >= ? AND outcome = 'failure'
		GROUP BY failed_source
		ORDER BY failed_source`

	rows, err := s.db.QueryContext(ctx, breakdown, since.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query failure breakdown")
	}
	defer rows.Close()

	stats.FailuresBySrc = make(map[string]int)
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan failure breakdown")
		}
		stats.FailuresBySrc[src] = n
	}
	return &stats, rows.Err()
}
