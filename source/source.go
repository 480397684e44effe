// Package source defines the uniform upstream client contract.
//
// A Client fetches one issue from one upstream and always returns an Outcome.
// Failures are values: clients never panic, never return a Go error, never
// log and never retry. That keeps the orchestrator's both-complete join
// trivial and guarantees one reply per reference.
package source

import (
	"context"
	"net"
	"net/url"

	"github.com/teranos/issuebot/errors"
)

// Names of the sources the pipeline knows about
const (
	Tracker = "tracker"
	Board   = "board"
)

// ErrorKind classifies a failed fetch
type ErrorKind string

const (
	// TransportError means the upstream could not be reached (timeout, refused, DNS)
	TransportError ErrorKind = "UpstreamTransportError"
	// DataError means the upstream answered with an error payload or an unparseable body
	DataError ErrorKind = "UpstreamDataError"
)

// Record is the normalized payload of a successful fetch
type Record interface {
	isRecord()
}

// TrackerRecord is what the issue tracker knows about an issue
type TrackerRecord struct {
	Number   int
	Title    string
	Body     string
	URL      string
	Labels   []string
	Assignee *string // nil when nobody is assigned
}

// BoardRecord is what the workflow board knows about an issue
type BoardRecord struct {
	PipelineName string
	IsEpic       bool
}

func (TrackerRecord) isRecord() {}
func (BoardRecord) isRecord()   {}

// Outcome is either Ok(Record) or Failed(Kind, Message)
type Outcome struct {
	Record  Record
	Kind    ErrorKind
	Message string
}

// Ok wraps a successful record
func Ok(r Record) Outcome {
	return Outcome{Record: r}
}

// Failed builds a failed outcome carrying the upstream message verbatim
func Failed(kind ErrorKind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}

// OK reports whether the fetch produced a record
func (o Outcome) OK() bool {
	return o.Kind == "" && o.Record != nil
}

// Err converts a failed outcome into an error wrapping the matching sentinel.
// Returns nil for successful outcomes.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	switch o.Kind {
	case TransportError:
		return errors.Wrap(errors.ErrUpstreamTransport, o.Message)
	case DataError:
		return errors.Wrap(errors.ErrUpstreamData, o.Message)
	default:
		return errors.Wrap(errors.ErrUpstreamData, "empty outcome")
	}
}

// Client fetches one issue from one upstream
type Client interface {
	// Name identifies the source in failure descriptors and logs
	Name() string
	// Fetch issues exactly one request and classifies the result
	Fetch(ctx context.Context, issueID int) Outcome
}

// FromTransportError classifies an error returned by an HTTP round trip.
// Context expiry is reported as a timeout so callers see why a deadline fired.
func FromTransportError(ctx context.Context, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Failed(TransportError, "request timed out")
		}
		return Failed(TransportError, "request cancelled")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Failed(TransportError, "request timed out")
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return Failed(TransportError, urlErr.Err.Error())
	}
	return Failed(TransportError, err.Error())
}
