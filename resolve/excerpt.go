package resolve

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	mdutil "github.com/yuin/goldmark/util"

	"github.com/teranos/issuebot/internal/util"
)

// Ellipsis marks a truncated excerpt
const Ellipsis = "..."

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Excerpt renders body as plain text limited to budget runes.
// Markup is dropped, whitespace collapsed, and Ellipsis appended only when
// something was cut. A budget of zero or less disables excerpts.
func Excerpt(body string, budget int) string {
	if budget <= 0 {
		return ""
	}
	plain := util.CollapseSpace(PlainText(body))
	if plain == "" {
		return ""
	}
	cut, truncated := util.TruncateRunes(plain, budget)
	if !truncated {
		return cut
	}
	return util.CollapseSpace(cut) + Ellipsis
}

// PlainText strips markdown from src, keeping the readable text
func PlainText(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(inline(node.Segment.Value(source)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				buf.Write(line.Value(source))
				buf.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// inline resolves escapes and entity references the way an HTML renderer would
func inline(b []byte) []byte {
	b = mdutil.UnescapePunctuations(b)
	b = mdutil.ResolveNumericReferences(b)
	return mdutil.ResolveEntityNames(b)
}
