// Package reference finds issue references in free-form chat text.
//
// Extraction is pure: no I/O, deterministic, and safe to call concurrently.
// Every textual mention becomes its own Reference, so "issues/7 and issue-7"
// yields two references to issue 7 and therefore two replies.
package reference

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/teranos/issuebot/errors"
)

// Reference is one mention of an issue inside a message
type Reference struct {
	RawMatch string // text exactly as it appeared, e.g. "issue-42"
	IssueID  int    // always > 0
}

// Extractor applies a fixed set of compiled patterns
type Extractor struct {
	patterns []*regexp.Regexp
}

var trailingDigits = regexp.MustCompile(`[0-9]+$`)

// NewExtractor compiles patterns once. Each pattern must end its matches with
// the issue number; matches without a trailing number are ignored.
func NewExtractor(patterns []string) (*Extractor, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid reference pattern %q", p)
		}
		compiled = append(compiled, re)
	}
	return &Extractor{patterns: compiled}, nil
}

// MustExtractor is NewExtractor for patterns known to be valid
func MustExtractor(patterns []string) *Extractor {
	e, err := NewExtractor(patterns)
	if err != nil {
		panic(err)
	}
	return e
}

type span struct {
	start, end int
}

// Extract returns every reference in text, ordered by position.
// Overlapping matches from different patterns count as one mention: the
// earliest start wins, then the longest match.
func (e *Extractor) Extract(text string) []Reference {
	if text == "" || len(e.patterns) == 0 {
		return nil
	}

	var spans []span
	for _, re := range e.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if loc[1] > loc[0] {
				spans = append(spans, span{loc[0], loc[1]})
			}
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var refs []Reference
	covered := -1
	for _, s := range spans {
		if s.start < covered {
			continue
		}
		raw := text[s.start:s.end]
		id, ok := parseTrailingID(raw)
		if !ok {
			continue
		}
		refs = append(refs, Reference{RawMatch: raw, IssueID: id})
		covered = s.end
	}
	return refs
}

// Extract is a convenience for one-off extraction with uncompiled patterns.
// Invalid patterns yield an error and no references.
func Extract(text string, patterns []string) ([]Reference, error) {
	e, err := NewExtractor(patterns)
	if err != nil {
		return nil, err
	}
	return e.Extract(text), nil
}

// parseTrailingID reads the numeric run at the end of a match
func parseTrailingID(raw string) (int, bool) {
	digits := trailingDigits.FindString(raw)
	if digits == "" {
		return 0, false
	}
	id, err := strconv.Atoi(digits)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
