package reference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultPatterns = []string{`#[0-9]+`, `issue-[0-9]+`, `issues/[0-9]+`}

func TestExtract(t *testing.T) {
	e := MustExtractor(defaultPatterns)

	tests := []struct {
		name string
		text string
		want []Reference
	}{
		{
			name: "single hash reference",
			text: "see #42 for details",
			want: []Reference{{RawMatch: "#42", IssueID: 42}},
		},
		{
			name: "same issue mentioned twice is replied twice",
			text: "issues/7 and issue-7 are dupes",
			want: []Reference{
				{RawMatch: "issues/7", IssueID: 7},
				{RawMatch: "issue-7", IssueID: 7},
			},
		},
		{
			name: "hash without digits",
			text: "# title",
		},
		{
			name: "empty text",
			text: "",
		},
		{
			name: "no references",
			text: "deploy went fine today",
		},
		{
			name: "ordered by position across patterns",
			text: "issue-3 blocks #1, see github.com/o/r/issues/2",
			want: []Reference{
				{RawMatch: "issue-3", IssueID: 3},
				{RawMatch: "#1", IssueID: 1},
				{RawMatch: "issues/2", IssueID: 2},
			},
		},
		{
			name: "zero is not an issue",
			text: "#0 and #00",
		},
		{
			name: "leading zeros parse",
			text: "#007",
			want: []Reference{{RawMatch: "#007", IssueID: 7}},
		},
		{
			name: "overflowing number is dropped",
			text: "#" + strings.Repeat("9", 40),
		},
		{
			name: "adjacent mentions",
			text: "#1#2",
			want: []Reference{
				{RawMatch: "#1", IssueID: 1},
				{RawMatch: "#2", IssueID: 2},
			},
		},
		{
			name: "repeated hash mention",
			text: "#5 then #5 again",
			want: []Reference{
				{RawMatch: "#5", IssueID: 5},
				{RawMatch: "#5", IssueID: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text))
		})
	}
}

func TestExtract_OverlappingPatterns(t *testing.T) {
	// "issues/12" also contains a match for the looser pattern "s/[0-9]+"
	e := MustExtractor([]string{`s/[0-9]+`, `issues/[0-9]+`})

	refs := e.Extract("look at issues/12")
	require.Len(t, refs, 1)
	assert.Equal(t, Reference{RawMatch: "issues/12", IssueID: 12}, refs[0])
}

func TestExtract_PatternWithoutTrailingNumber(t *testing.T) {
	e := MustExtractor([]string{`#[0-9]+!`, `ticket [0-9]+`})

	refs := e.Extract("#12! and ticket 34")
	assert.Equal(t, []Reference{{RawMatch: "ticket 34", IssueID: 34}}, refs)
}

func TestExtract_Idempotent(t *testing.T) {
	e := MustExtractor(defaultPatterns)
	text := "#9 issue-8 issues/7 #9 and #x"

	first := e.Extract(text)
	second := e.Extract(text)
	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	for _, ref := range first {
		assert.Positive(t, ref.IssueID)
		assert.Contains(t, text, ref.RawMatch)
	}
}

func TestExtract_NoPatterns(t *testing.T) {
	e := MustExtractor(nil)
	assert.Empty(t, e.Extract("#42"))
}

func TestNewExtractor_InvalidPattern(t *testing.T) {
	_, err := NewExtractor([]string{`#[0-9`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reference pattern")

	assert.Panics(t, func() { MustExtractor([]string{`(`}) })
}

func TestExtractFunc(t *testing.T) {
	refs, err := Extract("fixed in #3", defaultPatterns)
	require.NoError(t, err)
	assert.Equal(t, []Reference{{RawMatch: "#3", IssueID: 3}}, refs)

	_, err = Extract("#3", []string{"["})
	assert.Error(t, err)
}
