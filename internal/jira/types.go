package jira

import (
	"encoding/json"
	"strings"
)

// Issue represents a JIRA issue from the REST API v3, fetched with
// fields=*all and expand=renderedFields.
type Issue struct {
	Key            string         `json:"key"`
	Fields         Fields         `json:"fields"`
	RenderedFields RenderedFields `json:"renderedFields"`
}

// Fields contains the standard issue fields plus any customfield_* values.
type Fields struct {
	Summary           string           `json:"summary"`
	IssueType         *Named           `json:"issuetype"`
	Status            *Status          `json:"status"`
	Priority          *Named           `json:"priority"`
	Resolution        *Named           `json:"resolution"`
	Project           *Project         `json:"project"`
	Assignee          *User            `json:"assignee"`
	Reporter          *User            `json:"reporter"`
	Creator           *User            `json:"creator"`
	Labels            []string         `json:"labels"`
	Components        []Named          `json:"components"`
	Parent            *Parent          `json:"parent"`
	Versions          []Named          `json:"versions"`
	FixVersions       []Named          `json:"fixVersions"`
	Created           string           `json:"created"`
	Updated           string           `json:"updated"`
	ResolutionDate    string           `json:"resolutiondate"`
	DueDate           string           `json:"duedate"`
	TimeTracking      *TimeTracking    `json:"timetracking"`
	Votes             *Votes           `json:"votes"`
	Watches           *Watches         `json:"watches"`
	Progress          *Progress        `json:"progress"`
	AggregateProgress *Progress        `json:"aggregateprogress"`
	IssueLinks        []IssueLink      `json:"issuelinks"`
	Subtasks          []Subtask        `json:"subtasks"`
	Worklog           *Worklog         `json:"worklog"`
	Comment           *Comments        `json:"comment"`
	Attachment        []AttachmentMeta `json:"attachment"`
	Environment       *Body            `json:"environment"`
	Description       *Body            `json:"description"`

	// Custom holds raw customfield_* values keyed by field id.
	Custom map[string]any `json:"-"`
}

// fieldsAlias avoids UnmarshalJSON recursion.
type fieldsAlias Fields

// UnmarshalJSON decodes the known fields and captures customfield_* keys
// into Custom. Null custom values are kept so the renderer can skip them.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var alias fieldsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if strings.HasPrefix(key, "customfield_") {
			if alias.Custom == nil {
				alias.Custom = make(map[string]any)
			}
			alias.Custom[key] = value
		}
	}

	*f = Fields(alias)
	return nil
}

// RenderedFields holds the server-rendered HTML variants of rich-text fields.
type RenderedFields struct {
	Description string            `json:"description"`
	Environment string            `json:"environment"`
	Comment     *RenderedComments `json:"comment"`
}

// RenderedComments wraps the rendered comment bodies array.
type RenderedComments struct {
	Comments []RenderedComment `json:"comments"`
}

// RenderedComment carries the HTML body for one comment, index-aligned with
// the corresponding Fields.Comment entry.
type RenderedComment struct {
	Body string `json:"body"`
}

// Named is any Jira entity referenced only by display name.
type Named struct {
	Name string `json:"name"`
}

// Status represents a JIRA status with its high-level category.
type Status struct {
	Name           string `json:"name"`
	StatusCategory *Named `json:"statusCategory"`
}

// Project identifies the issue's project.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// User represents a JIRA user.
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	AccountID    string `json:"accountId"`
}

// Parent references the parent issue of a sub-task.
type Parent struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

// TimeTracking holds the human-readable time tracking estimates.
type TimeTracking struct {
	OriginalEstimate  string `json:"originalEstimate"`
	TimeSpent         string `json:"timeSpent"`
	RemainingEstimate string `json:"remainingEstimate"`
}

// Votes wraps the vote counter.
type Votes struct {
	Votes int `json:"votes"`
}

// Watches wraps the watcher counter.
type Watches struct {
	WatchCount int `json:"watchCount"`
}

// Progress reports percentage completion.
type Progress struct {
	Percent int `json:"percent"`
}

// IssueLink is one directional link to another issue. Exactly one of
// InwardIssue/OutwardIssue is set.
type IssueLink struct {
	Type         LinkType     `json:"type"`
	InwardIssue  *LinkedIssue `json:"inwardIssue"`
	OutwardIssue *LinkedIssue `json:"outwardIssue"`
}

// LinkType carries the directional phrases for an issue link.
type LinkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

// LinkedIssue is the light-weight summary of the other end of a link.
type LinkedIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string  `json:"summary"`
		Status  *Status `json:"status"`
	} `json:"fields"`
}

// Subtask is the light-weight summary of a child issue.
type Subtask struct {
	Key    string `json:"key"`
	Fields struct {
		Summary   string  `json:"summary"`
		Status    *Status `json:"status"`
		IssueType *Named  `json:"issuetype"`
	} `json:"fields"`
}

// Worklog wraps the embedded worklog page of an issue.
type Worklog struct {
	Worklogs   []WorklogEntry `json:"worklogs"`
	Total      int            `json:"total"`
	MaxResults int            `json:"maxResults"`
}

// WorklogEntry is a single logged work record.
type WorklogEntry struct {
	Author           *User  `json:"author"`
	Started          string `json:"started"`
	TimeSpent        string `json:"timeSpent"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	Comment          *Body  `json:"comment"`
}

// Comments wraps the comments array from the JIRA API.
type Comments struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
}

// Comment represents a single JIRA comment.
type Comment struct {
	Author  *User  `json:"author"`
	Body    *Body  `json:"body"`
	Created string `json:"created"`
}

// AttachmentMeta is the attachment descriptor embedded in an issue.
type AttachmentMeta struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
}

// Body is a rich-text field value that may arrive either as an ADF document
// (API v3) or as a plain string (older instances). At most one of Doc/Text
// is set.
type Body struct {
	Doc  *ADFNode
	Text string
}

// UnmarshalJSON accepts a JSON string, an ADF object, or null.
func (b *Body) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		return json.Unmarshal(data, &b.Text)
	}
	var node ADFNode
	if err := json.Unmarshal(data, &node); err != nil {
		return err
	}
	b.Doc = &node
	return nil
}

// IsZero reports whether the body carries no content at all.
func (b *Body) IsZero() bool {
	return b == nil || (b.Doc == nil && b.Text == "")
}

// ADFNode represents a node in the Atlassian Document Format. The grammar is
// open-ended: unknown types must still recurse into Content.
type ADFNode struct {
	Type    string         `json:"type"`
	Content []ADFNode      `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []ADFMark      `json:"marks,omitempty"`
}

// ADFMark represents an inline formatting mark in ADF.
type ADFMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// StringAttr returns a string attribute, or "" when absent or not a string.
func (n *ADFNode) StringAttr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	s, _ := n.Attrs[key].(string)
	return s
}

// IntAttr returns a numeric attribute as int, or def when absent.
func (n *ADFNode) IntAttr(key string, def int) int {
	if n == nil || n.Attrs == nil {
		return def
	}
	if f, ok := n.Attrs[key].(float64); ok {
		return int(f)
	}
	return def
}

// ADFFromValue converts a decoded JSON value (map[string]any shape) into an
// ADFNode when it looks like an ADF document. Custom field values arrive
// untyped, so this bridges them into the typed renderer.
func ADFFromValue(v any) (*ADFNode, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if t, _ := m["type"].(string); t != "doc" {
		return nil, false
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, false
	}
	var node ADFNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, false
	}
	return &node, true
}

// Field is one entry from GET /rest/api/3/field, used for custom field
// name and schema resolution.
type Field struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Custom bool        `json:"custom"`
	Schema FieldSchema `json:"schema"`
}

// FieldSchema describes the value type of a field.
type FieldSchema struct {
	Type  string `json:"type"`
	Items string `json:"items,omitempty"`
}

// SearchResult is one page of a JQL search response.
type SearchResult struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken"`
}
