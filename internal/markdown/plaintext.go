package markdown

import (
	"strings"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

// PlainText extracts the text content of an ADF tree with all formatting
// stripped. Used for index summaries and log lines where markdown markup
// would get in the way.
func PlainText(node *jira.ADFNode) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	collectText(node, &b)
	return strings.TrimSpace(b.String())
}

func collectText(node *jira.ADFNode, b *strings.Builder) {
	switch node.Type {
	case "text":
		b.WriteString(node.Text)
	case "hardBreak":
		b.WriteString("\n")
	case "mention":
		name := node.StringAttr("text")
		if name == "" {
			name = node.StringAttr("id")
		}
		b.WriteString(name)
	case "emoji":
		if short := node.StringAttr("shortName"); short != "" {
			b.WriteString(short)
		}
	default:
		for i := range node.Content {
			collectText(&node.Content[i], b)
			if isBlockNode(node.Content[i].Type) && i < len(node.Content)-1 {
				b.WriteString("\n")
			}
		}
	}
}

func isBlockNode(nodeType string) bool {
	switch nodeType {
	case "paragraph", "heading", "bulletList", "orderedList", "listItem",
		"codeBlock", "blockquote", "panel", "table", "tableRow", "rule":
		return true
	}
	return false
}
