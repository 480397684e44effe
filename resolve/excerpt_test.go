package resolve

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt_TruncationBoundary(t *testing.T) {
	exact := strings.Repeat("x", DefaultExcerptLength)
	assert.Equal(t, exact, Excerpt(exact, DefaultExcerptLength))

	over := strings.Repeat("x", DefaultExcerptLength+1)
	got := Excerpt(over, DefaultExcerptLength)
	assert.Equal(t, strings.Repeat("x", DefaultExcerptLength)+Ellipsis, got)
}

func TestExcerpt_CountsRunesNotBytes(t *testing.T) {
	body := strings.Repeat("é", DefaultExcerptLength)
	assert.Equal(t, body, Excerpt(body, DefaultExcerptLength))
}

func TestExcerpt_StripsMarkup(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"emphasis", "This is **bold** and _italic_", "This is bold and italic"},
		{"heading and paragraphs", "## Steps\n\nOpen the app.\nClick save.", "Steps Open the app. Click save."},
		{"link keeps text", "See [the docs](https://example.com/docs) first", "See the docs first"},
		{"inline code", "Run `make test` now", "Run make test now"},
		{"list", "- one\n- two\n", "one two"},
		{"fenced code", "Before\n\n```go\nfmt.Println(1)\n```\n", "Before fmt.Println(1)"},
		{"html dropped", "<details>hidden</details>\n\nShown", "Shown"},
		{"escapes", `2 \* 3`, "2 * 3"},
		{"entities", "a &amp; b", "a & b"},
		{"autolink", "<https://example.com>", "https://example.com"},
		{"task list", "- [x] done\n- [ ] todo", "done todo"},
		{"whitespace only", "   \n\n\t", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Excerpt(tt.body, DefaultExcerptLength))
		})
	}
}

func TestExcerpt_Disabled(t *testing.T) {
	assert.Empty(t, Excerpt("some body", 0))
	assert.Empty(t, Excerpt("some body", -1))
	assert.Empty(t, Excerpt("", DefaultExcerptLength))
}

func TestExcerpt_NoDanglingSpaceBeforeEllipsis(t *testing.T) {
	body := strings.Repeat("a", 9) + " bcd"
	assert.Equal(t, strings.Repeat("a", 9)+Ellipsis, Excerpt(body, 10))
}
