package resolve

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/issuebot/errors"
	"github.com/teranos/issuebot/source"
)

// Outcomes holds one outcome per source, keyed by source name
type Outcomes map[string]source.Outcome

// Orchestrator fans one issue out to a fixed set of named sources and joins
// on all of them. It imposes no deadline of its own: a deadline on ctx
// reaches the clients, which report it as a transport failure.
type Orchestrator struct {
	sources []source.Client
}

// NewOrchestrator requires at least one source and unique source names
func NewOrchestrator(sources ...source.Client) (*Orchestrator, error) {
	if len(sources) == 0 {
		return nil, errors.New("orchestrator needs at least one source")
	}
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if s == nil {
			return nil, errors.New("nil source client")
		}
		if seen[s.Name()] {
			return nil, errors.Newf("duplicate source %q", s.Name())
		}
		seen[s.Name()] = true
	}
	return &Orchestrator{sources: sources}, nil
}

// Sources lists the configured source names in order
func (o *Orchestrator) Sources() []string {
	names := make([]string, len(o.sources))
	for i, s := range o.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve fetches issueID from every source concurrently and waits for all.
// A failing source never cancels the others, and every source gets an entry.
func (o *Orchestrator) Resolve(ctx context.Context, issueID int) Outcomes {
	results := make([]source.Outcome, len(o.sources))

	// Plain Group: WithContext would cancel siblings on the first error
	var g errgroup.Group
	for i, s := range o.sources {
		g.Go(func() error {
			results[i] = fetch(ctx, s, issueID)
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make(Outcomes, len(o.sources))
	for i, s := range o.sources {
		outcomes[s.Name()] = results[i]
	}
	return outcomes
}

// fetch shields the join from a misbehaving client
func fetch(ctx context.Context, s source.Client, issueID int) (out source.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = source.Failed(source.DataError, fmt.Sprintf("%s client panicked: %v", s.Name(), r))
		}
	}()
	out = s.Fetch(ctx, issueID)
	if !out.OK() && out.Kind == "" {
		out = source.Failed(source.DataError, "source returned no result")
	}
	return out
}
