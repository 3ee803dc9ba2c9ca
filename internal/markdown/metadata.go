package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

// MetadataField is one frontmatter entry. Order is significant: the
// frontmatter always lists the same keys in the same position so exported
// files diff cleanly across runs.
type MetadataField struct {
	Name  string
	Value any
}

// ExtractMetadata flattens issue fields into the fixed frontmatter key set.
// Missing scalars become nil (YAML null), missing counters become 0, and
// missing lists become empty lists.
func ExtractMetadata(issue *jira.Issue) []MetadataField {
	f := issue.Fields

	key := issue.Key
	if key == "" {
		key = "UNKNOWN"
	}
	summary := f.Summary
	if summary == "" {
		summary = "No Summary"
	}

	var statusCategory any
	if f.Status != nil && f.Status.StatusCategory != nil {
		statusCategory = f.Status.StatusCategory.Name
	}

	var parentKey, parentSummary any
	if f.Parent != nil {
		parentKey = f.Parent.Key
		parentSummary = f.Parent.Fields.Summary
	}

	var originalEstimate, timeSpent, remainingEstimate any
	if tt := f.TimeTracking; tt != nil {
		originalEstimate = nonEmptyOrNil(tt.OriginalEstimate)
		timeSpent = nonEmptyOrNil(tt.TimeSpent)
		remainingEstimate = nonEmptyOrNil(tt.RemainingEstimate)
	}

	return []MetadataField{
		{"key", key},
		{"summary", summary},
		{"type", namedOrNil(f.IssueType)},
		{"status", statusNameOrNil(f.Status)},
		{"status_category", statusCategory},
		{"priority", namedOrNil(f.Priority)},
		{"resolution", namedOrNil(f.Resolution)},
		{"project", projectName(f.Project)},
		{"project_key", projectKey(f.Project)},
		{"assignee", userOrNil(f.Assignee)},
		{"reporter", userOrNil(f.Reporter)},
		{"creator", userOrNil(f.Creator)},
		{"labels", labelList(f.Labels)},
		{"components", nameList(f.Components)},
		{"parent_key", parentKey},
		{"parent_summary", parentSummary},
		{"affects_versions", nameList(f.Versions)},
		{"fix_versions", nameList(f.FixVersions)},
		{"created_at", nonEmptyOrNil(f.Created)},
		{"updated_at", nonEmptyOrNil(f.Updated)},
		{"resolved_at", nonEmptyOrNil(f.ResolutionDate)},
		{"duedate", nonEmptyOrNil(f.DueDate)},
		{"original_estimate", originalEstimate},
		{"time_spent", timeSpent},
		{"remaining_estimate", remainingEstimate},
		{"progress", progressPercent(f.Progress)},
		{"aggregate_progress", progressPercent(f.AggregateProgress)},
		{"votes", votesCount(f.Votes)},
		{"watches", watchCount(f.Watches)},
	}
}

// Frontmatter serializes metadata fields as a YAML frontmatter block,
// preserving field order. yaml.Marshal on a map would sort keys, so the
// document is built as an explicit mapping node.
func Frontmatter(fields []MetadataField) (string, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, field := range fields {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: field.Name}
		valueNode, err := yamlValueNode(field.Value)
		if err != nil {
			return "", fmt.Errorf("frontmatter field %s: %w", field.Name, err)
		}
		mapping.Content = append(mapping.Content, keyNode, valueNode)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return "---\n" + buf.String() + "---\n", nil
}

func yamlValueNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case []string:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		if len(v) == 0 {
			node.Style = yaml.FlowStyle
			return node, nil
		}
		for _, elem := range v {
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: elem})
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(value); err != nil {
			return nil, err
		}
		return node, nil
	}
}

func nonEmptyOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func namedOrNil(n *jira.Named) any {
	if n == nil || n.Name == "" {
		return nil
	}
	return n.Name
}

func statusNameOrNil(s *jira.Status) any {
	if s == nil || s.Name == "" {
		return nil
	}
	return s.Name
}

func userOrNil(u *jira.User) any {
	if u == nil || u.DisplayName == "" {
		return nil
	}
	return u.DisplayName
}

func projectName(p *jira.Project) any {
	if p == nil || p.Name == "" {
		return nil
	}
	return p.Name
}

func projectKey(p *jira.Project) any {
	if p == nil || p.Key == "" {
		return nil
	}
	return p.Key
}

func labelList(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func nameList(items []jira.Named) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Name != "" {
			out = append(out, item.Name)
		}
	}
	return out
}

func progressPercent(p *jira.Progress) int {
	if p == nil {
		return 0
	}
	return p.Percent
}

func votesCount(v *jira.Votes) int {
	if v == nil {
		return 0
	}
	return v.Votes
}

func watchCount(w *jira.Watches) int {
	if w == nil {
		return 0
	}
	return w.WatchCount
}
