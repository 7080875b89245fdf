package outline

import (
	"strings"
)

// Markdown renders the outline as a Markdown document. Headings map by rank
// (Title to "#", H1 to "##", and so on); Body nodes become paragraphs.
func Markdown(roots []*Node) string {
	var b strings.Builder
	Walk(roots, func(n *Node, _ int) {
		if n.Level.IsHeading() {
			depth := n.Level.Rank() + 1
			if depth > 6 {
				depth = 6
			}
			b.WriteString(strings.Repeat("#", depth))
			b.WriteByte(' ')
			b.WriteString(n.Text)
			b.WriteString("\n\n")
			return
		}
		b.WriteString(n.Text)
		b.WriteString("\n\n")
	})
	return strings.TrimRight(b.String(), "\n") + "\n"
}
