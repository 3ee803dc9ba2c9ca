package markdown

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	htmlconv "github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

// FieldResolver maps custom field ids to display names and schemas. The
// zero resolution (empty name, empty schema) is valid; rendering then falls
// back to the raw field id and shape-based formatting.
type FieldResolver interface {
	FieldName(id string) string
	FieldSchema(id string) jira.FieldSchema
}

// FieldFilter selects which custom fields appear in the output. A nil
// Include set means all fields; Exclude always wins over Include. Entries
// match either the field id or its display name.
type FieldFilter struct {
	Include map[string]bool
	Exclude map[string]bool
}

// ShouldInclude reports whether a field passes the filter.
func (f FieldFilter) ShouldInclude(id, name string) bool {
	if f.Exclude[id] || f.Exclude[name] {
		return false
	}
	if f.Include == nil {
		return true
	}
	return f.Include[id] || f.Include[name]
}

// ComposeOptions carries the per-export inputs for document composition.
type ComposeOptions struct {
	Fields      FieldResolver
	Filter      FieldFilter
	Attachments []Attachment
}

// Converter builds markdown documents for exported issues. One converter
// serves a single JIRA site; it is safe for concurrent use.
type Converter struct {
	baseURL string
	domain  string
	html    *htmlconv.Converter
	log     *slog.Logger
}

// NewConverter creates a converter for the given site base URL, e.g.
// "https://example.atlassian.net".
func NewConverter(baseURL string, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.Default()
	}
	domain := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	domain = strings.TrimSuffix(domain, "/")
	return &Converter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		domain:  domain,
		html:    newHTMLConverter(),
		log:     log,
	}
}

// Compose renders the full markdown document for an issue: frontmatter,
// title, description, environment, links, subtasks, worklogs, comments,
// custom fields and attachments. Sections that always apply (environment, links,
// subtasks, worklogs) render "None" when empty; comments and attachments
// are omitted entirely when there are none.
func (c *Converter) Compose(issue *jira.Issue, opts ComposeOptions) (string, error) {
	atts := NewAttachmentContext(opts.Attachments)

	front, err := Frontmatter(ExtractMetadata(issue))
	if err != nil {
		return "", fmt.Errorf("compose %s: %w", issue.Key, err)
	}

	lines := []string{front}
	lines = append(lines, c.titleLine(issue), "")
	lines = append(lines, c.descriptionSection(issue, atts)...)
	lines = append(lines, c.environmentSection(issue, atts)...)
	lines = append(lines, c.linkedIssuesSection(issue)...)
	lines = append(lines, c.subtasksSection(issue)...)
	lines = append(lines, c.worklogSection(issue, atts)...)
	lines = append(lines, c.commentsSection(issue, atts)...)
	lines = append(lines, c.customFieldSection(issue, opts, atts)...)
	lines = append(lines, c.attachmentsSection(opts.Attachments)...)

	doc := strings.Join(lines, "\n")
	doc = c.ReplaceAttachmentLinks(doc, opts.Attachments)
	return strings.TrimRight(doc, "\n") + "\n", nil
}

func (c *Converter) titleLine(issue *jira.Issue) string {
	summary := issue.Fields.Summary
	if summary == "" {
		summary = "No Summary"
	}
	return fmt.Sprintf("# [%s](%s/browse/%s): %s", issue.Key, c.baseURL, issue.Key, summary)
}

func (c *Converter) descriptionSection(issue *jira.Issue, atts *AttachmentContext) []string {
	body := c.renderBody(issue.Key, issue.Fields.Description, issue.RenderedFields.Description, atts)
	if body == "" {
		body = "*No description provided*"
	}
	return []string{"## Description", "", body, ""}
}

func (c *Converter) environmentSection(issue *jira.Issue, atts *AttachmentContext) []string {
	body := c.renderBody(issue.Key, issue.Fields.Environment, issue.RenderedFields.Environment, atts)
	if body == "" {
		body = "None"
	}
	return []string{"## Environment", "", body, ""}
}

// renderBody converts one rich-text field. The server-rendered HTML is the
// primary source when present since it already has user mentions and macros
// resolved; the raw ADF document, then the plain string, are the fallbacks.
func (c *Converter) renderBody(key string, body *jira.Body, renderedHTML string, atts *AttachmentContext) string {
	if strings.TrimSpace(renderedHTML) != "" {
		md, err := c.ConvertHTML(renderedHTML)
		if err != nil {
			c.log.Warn("html conversion failed", "issue", key, "error", err)
		} else if md != "" {
			return md
		}
	}
	if body.IsZero() {
		return ""
	}
	if body.Doc != nil {
		return strings.TrimSpace(RenderADF(body.Doc, atts))
	}
	return strings.TrimSpace(body.Text)
}

func (c *Converter) customFieldSection(issue *jira.Issue, opts ComposeOptions, atts *AttachmentContext) []string {
	type rendered struct {
		name  string
		value string
	}
	var fields []rendered
	for id, raw := range issue.Fields.Custom {
		name := id
		var schema jira.FieldSchema
		if opts.Fields != nil {
			if n := opts.Fields.FieldName(id); n != "" {
				name = n
			}
			schema = opts.Fields.FieldSchema(id)
		}
		if !opts.Filter.ShouldInclude(id, name) {
			continue
		}
		value, ok := RenderFieldValue(raw, schema, atts)
		if !ok {
			continue
		}
		fields = append(fields, rendered{name: name, value: value})
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })

	lines := []string{"## Custom Fields", ""}
	for _, f := range fields {
		if strings.Contains(f.value, "\n") {
			lines = append(lines, "### "+f.name, "", f.value, "")
		} else {
			lines = append(lines, fmt.Sprintf("**%s:** %s", f.name, f.value), "")
		}
	}
	return lines
}

func (c *Converter) linkedIssuesSection(issue *jira.Issue) []string {
	lines := []string{"## Linked Issues", ""}

	var order []string
	groups := make(map[string][]string)
	for _, link := range issue.Fields.IssueLinks {
		phrase := link.Type.Outward
		other := link.OutwardIssue
		if link.InwardIssue != nil {
			phrase = link.Type.Inward
			other = link.InwardIssue
		}
		if other == nil {
			continue
		}
		heading := titleCase(phrase)
		if heading == "" {
			heading = "Related"
		}
		status := ""
		if other.Fields.Status != nil {
			status = other.Fields.Status.Name
		}
		entry := fmt.Sprintf("- [%s](%s/browse/%s): %s (%s)",
			other.Key, c.baseURL, other.Key, other.Fields.Summary, status)
		if _, seen := groups[heading]; !seen {
			order = append(order, heading)
		}
		groups[heading] = append(groups[heading], entry)
	}

	if len(order) == 0 {
		return append(lines, "None", "")
	}
	for _, heading := range order {
		lines = append(lines, "### "+heading, "")
		lines = append(lines, groups[heading]...)
		lines = append(lines, "")
	}
	return lines
}

func (c *Converter) subtasksSection(issue *jira.Issue) []string {
	lines := []string{"## Subtasks", ""}
	if len(issue.Fields.Subtasks) == 0 {
		return append(lines, "None", "")
	}
	for _, sub := range issue.Fields.Subtasks {
		status, itype := "", ""
		if sub.Fields.Status != nil {
			status = sub.Fields.Status.Name
		}
		if sub.Fields.IssueType != nil {
			itype = sub.Fields.IssueType.Name
		}
		lines = append(lines, fmt.Sprintf("- [%s](%s/browse/%s): %s (%s) — %s",
			sub.Key, c.baseURL, sub.Key, sub.Fields.Summary, status, itype))
	}
	return append(lines, "")
}

func (c *Converter) worklogSection(issue *jira.Issue, atts *AttachmentContext) []string {
	lines := []string{"## Worklogs", ""}
	wl := issue.Fields.Worklog
	if wl == nil || len(wl.Worklogs) == 0 {
		return append(lines, "None", "")
	}

	lines = append(lines,
		"| Author | Time Spent | Date | Comment |",
		"| --- | --- | --- | --- |")
	total := 0
	for _, entry := range wl.Worklogs {
		author := ""
		if entry.Author != nil {
			author = entry.Author.DisplayName
		}
		comment := ""
		if entry.Comment != nil {
			if entry.Comment.Doc != nil {
				comment = PlainText(entry.Comment.Doc)
			} else {
				comment = entry.Comment.Text
			}
		}
		comment = tableCell(comment)
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
			author, entry.TimeSpent, formatDate(entry.Started), comment))
		total += entry.TimeSpentSeconds
	}
	lines = append(lines, "", "**Total Time Logged:** "+formatDuration(total))
	if wl.Total > len(wl.Worklogs) {
		lines = append(lines, "",
			fmt.Sprintf("> **Note:** Showing %d of %d worklogs", len(wl.Worklogs), wl.Total))
	}
	return append(lines, "")
}

func (c *Converter) commentsSection(issue *jira.Issue, atts *AttachmentContext) []string {
	comments := issue.Fields.Comment
	if comments == nil || len(comments.Comments) == 0 {
		return nil
	}
	var renderedBodies []jira.RenderedComment
	if issue.RenderedFields.Comment != nil {
		renderedBodies = issue.RenderedFields.Comment.Comments
	}

	lines := []string{"## Comments", ""}
	for i, comment := range comments.Comments {
		author := "Unknown"
		if comment.Author != nil && comment.Author.DisplayName != "" {
			author = comment.Author.DisplayName
		}
		renderedHTML := ""
		if i < len(renderedBodies) {
			renderedHTML = renderedBodies[i].Body
		}
		body := c.renderBody(issue.Key, comment.Body, renderedHTML, atts)
		if body == "" {
			body = "*No comment body*"
		}

		if i > 0 {
			lines = append(lines, "---", "")
		}
		lines = append(lines, fmt.Sprintf("**%s** - _%s_", author, formatDateTime(comment.Created)), "")
		lines = append(lines, body, "")
	}
	return lines
}

func (c *Converter) attachmentsSection(atts []Attachment) []string {
	if len(atts) == 0 {
		return nil
	}
	lines := []string{"## Attachments", ""}
	for _, att := range atts {
		label := att.OriginalFilename
		if label == "" {
			label = att.Filename
		}
		local := escapeFilename(att.Filename)
		if att.IsImage() {
			lines = append(lines, fmt.Sprintf("- ![%s](%s)", label, local))
		} else {
			lines = append(lines, fmt.Sprintf("- [%s](%s)", label, local))
		}
	}
	return append(lines, "")
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z0700",
	time.RFC3339,
	"2006-01-02",
}

func parseDate(isoDate string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, isoDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatDate renders a JIRA timestamp as YYYY-MM-DD, passing unparseable
// input through unchanged.
func formatDate(isoDate string) string {
	if t, ok := parseDate(isoDate); ok {
		return t.Format("2006-01-02")
	}
	return isoDate
}

// formatDateTime renders a JIRA timestamp for comment headers.
func formatDateTime(isoDate string) string {
	if t, ok := parseDate(isoDate); ok {
		return t.Format("2006-01-02 03:04 PM")
	}
	return isoDate
}

// formatDuration renders a second count as "Nh Mm".
func formatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// tableCell makes arbitrary text safe inside a markdown table row.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}

// titleCase capitalizes each word of a link phrase, e.g. "is blocked by"
// becomes "Is Blocked By".
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
