package render

import "strings"

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape neutralizes Slack control characters so text displays literally
func Escape(s string) string {
	return slackEscaper.Replace(s)
}

// Codify wraps s in an inline code span. Backticks inside s would close the
// span early, so they are swapped for a look-alike quote.
func Codify(s string) string {
	s = strings.ReplaceAll(Escape(s), "`", "ˋ")
	s = strings.ReplaceAll(s, "\n", " ")
	return "`" + s + "`"
}
