package markdown

import (
	"strings"
	"testing"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

type stubResolver map[string]jira.Field

func (r stubResolver) FieldName(id string) string {
	if f, ok := r[id]; ok {
		return f.Name
	}
	return id
}

func (r stubResolver) FieldSchema(id string) jira.FieldSchema {
	return r[id].Schema
}

func composeIssue() *jira.Issue {
	issue := fullIssue()
	issue.Fields.Description = &jira.Body{Doc: adfDoc(adfPara(adfText("The login flow times out.")))}
	issue.Fields.IssueLinks = []jira.IssueLink{
		{
			Type:        jira.LinkType{Name: "Blocks", Inward: "is blocked by", Outward: "blocks"},
			InwardIssue: newLinkedIssue("PROJ-10", "Upstream migration", "In Progress"),
		},
		{
			Type:         jira.LinkType{Name: "Blocks", Inward: "is blocked by", Outward: "blocks"},
			OutwardIssue: newLinkedIssue("PROJ-50", "Dependent cleanup", "To Do"),
		},
	}
	issue.Fields.Subtasks = []jira.Subtask{newSubtask("PROJ-43", "Add retry", "Done", "Sub-task")}
	issue.Fields.Worklog = &jira.Worklog{
		Total:      3,
		MaxResults: 2,
		Worklogs: []jira.WorklogEntry{
			{
				Author:           &jira.User{DisplayName: "Jane Doe"},
				Started:          "2024-01-12T10:00:00.000+0000",
				TimeSpent:        "2h",
				TimeSpentSeconds: 7200,
				Comment:          &jira.Body{Doc: adfDoc(adfPara(adfText("traced the timeout")))},
			},
			{
				Author:           &jira.User{DisplayName: "Bob Smith"},
				Started:          "2024-01-13T10:00:00.000+0000",
				TimeSpent:        "30m",
				TimeSpentSeconds: 1800,
			},
		},
	}
	issue.Fields.Comment = &jira.Comments{
		Comments: []jira.Comment{
			{
				Author:  &jira.User{DisplayName: "Jane Doe"},
				Created: "2024-01-10T09:00:00.000+0000",
				Body:    &jira.Body{Doc: adfDoc(adfPara(adfText("Reproduced on staging.")))},
			},
			{
				Author:  &jira.User{DisplayName: "Bob Smith"},
				Created: "2024-01-11T16:45:00.000+0000",
				Body:    &jira.Body{Text: "Plain text comment."},
			},
		},
	}
	issue.Fields.Custom = map[string]any{
		"customfield_10010": "Sprint 14",
		"customfield_10020": map[string]any{"value": "Platform"},
		"customfield_10030": nil,
	}
	return issue
}

func newLinkedIssue(key, summary, status string) *jira.LinkedIssue {
	li := &jira.LinkedIssue{Key: key}
	li.Fields.Summary = summary
	li.Fields.Status = &jira.Status{Name: status}
	return li
}

func newSubtask(key, summary, status, issueType string) jira.Subtask {
	st := jira.Subtask{Key: key}
	st.Fields.Summary = summary
	st.Fields.Status = &jira.Status{Name: status}
	st.Fields.IssueType = &jira.Named{Name: issueType}
	return st
}

func composeOptions() ComposeOptions {
	return ComposeOptions{
		Fields: stubResolver{
			"customfield_10010": {Name: "Sprint", Schema: jira.FieldSchema{Type: "string"}},
			"customfield_10020": {Name: "Team", Schema: jira.FieldSchema{Type: "option"}},
		},
	}
}

func TestComposeFullDocument(t *testing.T) {
	t.Parallel()

	doc, err := testConverter().Compose(composeIssue(), composeOptions())
	if err != nil {
		t.Fatal(err)
	}

	for _, piece := range []string{
		"# [PROJ-42](https://example.atlassian.net/browse/PROJ-42): Fix login timeout",
		"## Description\n\nThe login flow times out.",
		"## Environment\n\nNone",
		"**Sprint:** Sprint 14",
		"**Team:** Platform",
		"## Linked Issues",
		"### Is Blocked By",
		"- [PROJ-10](https://example.atlassian.net/browse/PROJ-10): Upstream migration (In Progress)",
		"### Blocks",
		"- [PROJ-50](https://example.atlassian.net/browse/PROJ-50): Dependent cleanup (To Do)",
		"## Subtasks",
		"- [PROJ-43](https://example.atlassian.net/browse/PROJ-43): Add retry (Done) — Sub-task",
		"## Worklogs",
		"| Author | Time Spent | Date | Comment |",
		"| Jane Doe | 2h | 2024-01-12 | traced the timeout |",
		"**Total Time Logged:** 2h 30m",
		"> **Note:** Showing 2 of 3 worklogs",
		"## Comments",
		"**Jane Doe** - _2024-01-10 09:00 AM_",
		"Reproduced on staging.",
		"**Bob Smith** - _2024-01-11 04:45 PM_",
		"Plain text comment.",
	} {
		if !strings.Contains(doc, piece) {
			t.Errorf("document missing %q\n%s", piece, doc)
		}
	}

	if !strings.HasPrefix(doc, "---\n") {
		t.Error("document does not start with frontmatter")
	}
	if strings.Contains(doc, "customfield_10030") {
		t.Error("null custom field rendered")
	}

	sections := []string{
		"## Description",
		"## Environment",
		"## Linked Issues",
		"## Subtasks",
		"## Worklogs",
		"## Comments",
		"## Custom Fields",
	}
	last := -1
	for _, heading := range sections {
		idx := strings.Index(doc, heading)
		if idx < 0 {
			t.Fatalf("document missing section %q", heading)
		}
		if idx < last {
			t.Errorf("section %q out of order", heading)
		}
		last = idx
	}
}

func TestComposePrefersRenderedHTML(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-9"}
	issue.Fields.Summary = "Issue"
	issue.Fields.Description = &jira.Body{Text: "raw plain body"}
	issue.RenderedFields.Description = "<p>Hello <strong>World</strong></p>"
	issue.Fields.Comment = &jira.Comments{Comments: []jira.Comment{
		{
			Author:  &jira.User{DisplayName: "Jane Doe"},
			Created: "2024-01-10T09:00:00.000+0000",
			Body:    &jira.Body{Text: "raw comment"},
		},
	}}
	issue.RenderedFields.Comment = &jira.RenderedComments{Comments: []jira.RenderedComment{
		{Body: "<p>rendered <em>comment</em></p>"},
	}}

	doc, err := testConverter().Compose(issue, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(doc, "Hello **World**") {
		t.Errorf("rendered description not used:\n%s", doc)
	}
	if strings.Contains(doc, "raw plain body") {
		t.Error("raw body used despite rendered HTML being present")
	}
	if !strings.Contains(doc, "rendered *comment*") {
		t.Errorf("rendered comment not used:\n%s", doc)
	}
	if strings.Contains(doc, "raw comment") {
		t.Error("raw comment body used despite rendered HTML being present")
	}
}

func TestComposeFallsBackToBodyWithoutRenderedHTML(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-10"}
	issue.Fields.Summary = "Issue"
	issue.Fields.Description = &jira.Body{Doc: adfDoc(adfPara(adfText("adf body")))}

	doc, err := testConverter().Compose(issue, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "## Description\n\nadf body") {
		t.Errorf("adf fallback missing:\n%s", doc)
	}
}

func TestComposeEmptyCommentBody(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-11"}
	issue.Fields.Summary = "Issue"
	issue.Fields.Comment = &jira.Comments{Comments: []jira.Comment{
		{Author: &jira.User{DisplayName: "Jane Doe"}, Created: "2024-01-10T09:00:00.000+0000"},
	}}

	doc, err := testConverter().Compose(issue, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "**Jane Doe** - _2024-01-10 09:00 AM_\n\n*No comment body*") {
		t.Errorf("empty comment placeholder missing:\n%s", doc)
	}
}

func TestComposeEmptySections(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-1"}
	issue.Fields.Summary = "Bare issue"

	doc, err := testConverter().Compose(issue, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	// These sections always appear, with None bodies.
	for _, piece := range []string{
		"## Description\n\n*No description provided*",
		"## Environment\n\nNone",
		"## Linked Issues\n\nNone",
		"## Subtasks\n\nNone",
		"## Worklogs\n\nNone",
	} {
		if !strings.Contains(doc, piece) {
			t.Errorf("document missing %q\n%s", piece, doc)
		}
	}

	// These are omitted entirely when empty.
	for _, absent := range []string{"## Comments", "## Attachments", "## Custom Fields"} {
		if strings.Contains(doc, absent) {
			t.Errorf("document contains %q for an empty issue", absent)
		}
	}
}

func TestComposeMultilineCustomField(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-2"}
	issue.Fields.Summary = "Issue"
	issue.Fields.Custom = map[string]any{
		"customfield_10040": map[string]any{
			"type":    "doc",
			"version": float64(1),
			"content": []any{
				map[string]any{"type": "paragraph", "content": []any{
					map[string]any{"type": "text", "text": "first"},
				}},
				map[string]any{"type": "paragraph", "content": []any{
					map[string]any{"type": "text", "text": "second"},
				}},
			},
		},
	}

	opts := ComposeOptions{Fields: stubResolver{
		"customfield_10040": {Name: "Release Notes", Schema: jira.FieldSchema{Type: "string"}},
	}}
	doc, err := testConverter().Compose(issue, opts)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(doc, "### Release Notes\n\nfirst\n\nsecond") {
		t.Errorf("multiline field not promoted to heading:\n%s", doc)
	}
}

func TestComposeCustomFieldsSorted(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-3"}
	issue.Fields.Summary = "Issue"
	issue.Fields.Custom = map[string]any{
		"customfield_1": "one",
		"customfield_2": "two",
	}
	opts := ComposeOptions{Fields: stubResolver{
		"customfield_1": {Name: "Zebra"},
		"customfield_2": {Name: "Alpha"},
	}}

	doc, err := testConverter().Compose(issue, opts)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Index(doc, "**Alpha:**") > strings.Index(doc, "**Zebra:**") {
		t.Errorf("custom fields not sorted by name:\n%s", doc)
	}
}

func TestComposeFieldFilter(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-4"}
	issue.Fields.Summary = "Issue"
	issue.Fields.Custom = map[string]any{
		"customfield_1": "keep",
		"customfield_2": "drop",
	}
	opts := ComposeOptions{
		Fields: stubResolver{
			"customfield_1": {Name: "Keep Me"},
			"customfield_2": {Name: "Drop Me"},
		},
		Filter: FieldFilter{Exclude: map[string]bool{"Drop Me": true}},
	}

	doc, err := testConverter().Compose(issue, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "**Keep Me:** keep") {
		t.Error("included field missing")
	}
	if strings.Contains(doc, "Drop Me") {
		t.Error("excluded field rendered")
	}
}

func TestComposeAttachmentsSection(t *testing.T) {
	t.Parallel()

	issue := &jira.Issue{Key: "PROJ-5"}
	issue.Fields.Summary = "Issue"

	doc, err := testConverter().Compose(issue, ComposeOptions{Attachments: sampleAttachments()})
	if err != nil {
		t.Fatal(err)
	}
	for _, piece := range []string{
		"## Attachments",
		"- ![screenshot.png](screenshot.png)",
		"- [report final.pdf](report%20final_1.pdf)",
	} {
		if !strings.Contains(doc, piece) {
			t.Errorf("document missing %q\n%s", piece, doc)
		}
	}
}

func TestShouldInclude(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name   string
		filter FieldFilter
		id     string
		field  string
		want   bool
	}{
		{"no filter includes all", FieldFilter{}, "customfield_1", "Sprint", true},
		{
			"exclude by name",
			FieldFilter{Exclude: map[string]bool{"Sprint": true}},
			"customfield_1", "Sprint", false,
		},
		{
			"exclude by id",
			FieldFilter{Exclude: map[string]bool{"customfield_1": true}},
			"customfield_1", "Sprint", false,
		},
		{
			"include list restricts",
			FieldFilter{Include: map[string]bool{"Sprint": true}},
			"customfield_2", "Epic Link", false,
		},
		{
			"exclude wins over include",
			FieldFilter{
				Include: map[string]bool{"Sprint": true},
				Exclude: map[string]bool{"Sprint": true},
			},
			"customfield_1", "Sprint", false,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.filter.ShouldInclude(tc.id, tc.field); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		seconds int
		want    string
	}{
		{0, "0h 0m"},
		{1800, "0h 30m"},
		{7200, "2h 0m"},
		{9000, "2h 30m"},
	}
	for _, tc := range tcs {
		if got := formatDuration(tc.seconds); got != tc.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
