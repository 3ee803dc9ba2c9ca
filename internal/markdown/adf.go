package markdown

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

// RenderADF converts an ADF node tree to markdown. atts may be nil when no
// attachment resolution is wanted (media nodes then render placeholders).
// Rendering is purely structural: same tree in, same string out.
func RenderADF(node *jira.ADFNode, atts *AttachmentContext) string {
	if node == nil {
		return ""
	}
	return renderNode(node, atts)
}

func renderNode(node *jira.ADFNode, atts *AttachmentContext) string {
	switch node.Type {
	case "doc":
		return joinChildren(node, atts, "\n\n")

	case "paragraph":
		return joinChildren(node, atts, "")

	case "text":
		return applyMarks(node.Text, node.Marks)

	case "heading":
		level := node.IntAttr("level", 1)
		if level < 1 {
			level = 1
		}
		return strings.Repeat("#", level) + " " + joinChildren(node, atts, "")

	case "bulletList":
		var items []string
		for i := range node.Content {
			item := renderNode(&node.Content[i], atts)
			for _, line := range strings.Split(item, "\n") {
				if line != "" {
					items = append(items, "- "+line)
				}
			}
		}
		return strings.Join(items, "\n")

	case "orderedList":
		var items []string
		for i := range node.Content {
			item := renderNode(&node.Content[i], atts)
			for j, line := range strings.Split(item, "\n") {
				if line == "" {
					continue
				}
				if j == 0 {
					items = append(items, fmt.Sprintf("%d. %s", i+1, line))
				} else {
					items = append(items, "   "+line)
				}
			}
		}
		return strings.Join(items, "\n")

	case "listItem":
		return joinChildren(node, atts, "\n")

	case "codeBlock":
		lang := node.StringAttr("language")
		code := joinChildren(node, atts, "\n")
		return "```" + lang + "\n" + code + "\n```"

	case "blockquote":
		return prefixLines(joinChildren(node, atts, "\n"), "> ")

	case "panel":
		label := panelLabel(node.StringAttr("panelType"))
		body := joinChildren(node, atts, "\n")
		return "> " + label + "\n" + prefixLines(body, "> ")

	case "expand":
		title := node.StringAttr("title")
		if title == "" {
			title = "Details"
		}
		body := joinChildren(node, atts, "\n")
		return "**" + title + "**\n" + prefixLines(body, "  ")

	case "rule":
		return "---"

	case "table":
		return renderTable(node, atts)

	case "mediaSingle":
		if len(node.Content) > 0 {
			return joinChildren(node, atts, "\n")
		}
		return renderMedia(node, atts)

	case "media":
		return renderMedia(node, atts)

	case "mediaGroup":
		return joinChildren(node, atts, "\n")

	case "mention":
		name := node.StringAttr("text")
		if name == "" {
			name = node.StringAttr("id")
		}
		if name == "" {
			name = "user"
		}
		return "@" + strings.TrimPrefix(name, "@")

	case "emoji":
		if short := node.StringAttr("shortName"); short != "" {
			return short
		}
		return node.StringAttr("text")

	case "status":
		text := node.StringAttr("text")
		if text == "" {
			return ""
		}
		return "**" + text + "**"

	case "date":
		return renderDate(node.StringAttr("timestamp"))

	case "inlineCard":
		u := node.StringAttr("url")
		if u == "" {
			return ""
		}
		return fmt.Sprintf("[%s](%s)", u, u)

	case "taskList":
		return joinChildren(node, atts, "\n")

	case "taskItem":
		box := "- [ ] "
		if node.StringAttr("state") == "DONE" {
			box = "- [x] "
		}
		return box + joinChildren(node, atts, "")

	case "decisionList":
		return joinChildren(node, atts, "\n")

	case "decisionItem":
		return "> **Decision:** " + joinChildren(node, atts, "")

	case "hardBreak":
		return "\n"

	default:
		// The ADF grammar grows over time; render whatever content an
		// unknown node carries instead of failing.
		if len(node.Content) > 0 {
			return joinChildren(node, atts, "\n")
		}
		return ""
	}
}

func joinChildren(node *jira.ADFNode, atts *AttachmentContext, sep string) string {
	if len(node.Content) == 0 {
		return ""
	}
	parts := make([]string, 0, len(node.Content))
	for i := range node.Content {
		parts = append(parts, renderNode(&node.Content[i], atts))
	}
	return strings.Join(parts, sep)
}

// applyMarks wraps text in markdown formatting, composing marks left to
// right in the order JIRA lists them.
func applyMarks(text string, marks []jira.ADFMark) string {
	for _, mark := range marks {
		switch mark.Type {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "*" + text + "*"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		case "link":
			href, _ := mark.Attrs["href"].(string)
			text = fmt.Sprintf("[%s](%s)", text, href)
		}
	}
	return text
}

func prefixLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func panelLabel(panelType string) string {
	if panelType == "" {
		return "**Note:**"
	}
	return "**" + strings.ToUpper(panelType[:1]) + panelType[1:] + ":**"
}

func renderTable(node *jira.ADFNode, atts *AttachmentContext) string {
	if len(node.Content) == 0 {
		return ""
	}

	var rows []string
	cols := 0
	for i := range node.Content {
		row := &node.Content[i]
		if row.Type != "tableRow" {
			continue
		}
		cells := make([]string, 0, len(row.Content))
		for j := range row.Content {
			cell := strings.TrimSpace(joinChildren(&row.Content[j], atts, " "))
			cells = append(cells, cell)
		}
		if len(cells) > cols {
			cols = len(cells)
		}
		rows = append(rows, "| "+strings.Join(cells, " | ")+" |")
	}
	if len(rows) == 0 {
		return ""
	}

	sep := make([]string, cols)
	for i := range sep {
		sep[i] = "---"
	}
	out := []string{rows[0], "| " + strings.Join(sep, " | ") + " |"}
	out = append(out, rows[1:]...)
	return strings.Join(out, "\n")
}

// renderMedia resolves a media node against the downloaded attachments.
// External media link out directly; everything else resolves by attachment
// id first, then by filename hint. Unresolved references degrade to a
// visible placeholder rather than failing the document.
func renderMedia(node *jira.ADFNode, atts *AttachmentContext) string {
	if node.StringAttr("type") == "external" {
		u := node.StringAttr("url")
		alt := firstNonEmpty(node.StringAttr("alt"), node.StringAttr("title"), node.StringAttr("fileName"), u)
		return fmt.Sprintf("![%s](%s)", alt, u)
	}

	hint := firstNonEmpty(node.StringAttr("alt"), node.StringAttr("title"), node.StringAttr("fileName"))
	att, ok := atts.Resolve(node.StringAttr("id"), hint)
	if !ok {
		if hint == "" {
			hint = "attachment"
		}
		return fmt.Sprintf("![%s](attachment)", hint)
	}

	alt := firstNonEmpty(hint, att.OriginalFilename, att.Filename)
	return fmt.Sprintf("![%s](%s)", alt, escapeFilename(att.Filename))
}

// renderDate converts a milliseconds-since-epoch string to YYYY-MM-DD (UTC).
// Non-numeric input is passed through untouched.
func renderDate(timestamp string) string {
	if timestamp == "" {
		return ""
	}
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return timestamp
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
