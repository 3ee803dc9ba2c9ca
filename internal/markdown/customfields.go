package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

// RenderFieldValue turns a raw custom field value into display text. The
// field schema steers the interpretation when one is known; without a schema
// the value's JSON shape decides. The second return is false when the field
// has nothing worth printing.
func RenderFieldValue(value any, schema jira.FieldSchema, atts *AttachmentContext) (string, bool) {
	if value == nil {
		return "", false
	}

	switch schema.Type {
	case "string":
		if doc, ok := jira.ADFFromValue(value); ok {
			return renderDocValue(doc, atts)
		}
		if s, ok := value.(string); ok {
			return trimNonEmpty(s)
		}
	case "number":
		if f, ok := value.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	case "date":
		if s, ok := value.(string); ok {
			return trimNonEmpty(s)
		}
	case "datetime":
		if s, ok := value.(string); ok {
			if len(s) > 19 {
				s = s[:19]
			}
			return trimNonEmpty(strings.Replace(s, "T", " ", 1))
		}
	case "option", "priority", "resolution", "status", "version":
		if m, ok := value.(map[string]any); ok {
			return mapField(m, "value", "name")
		}
	case "user":
		if m, ok := value.(map[string]any); ok {
			return mapField(m, "displayName", "name")
		}
	case "array":
		if list, ok := value.([]any); ok {
			return renderArrayValue(list, jira.FieldSchema{Type: schema.Items}, atts)
		}
	}

	return renderValueByShape(value, atts)
}

// renderValueByShape handles values for fields with no schema, or whose
// schema did not match the actual JSON shape.
func renderValueByShape(value any, atts *AttachmentContext) (string, bool) {
	switch v := value.(type) {
	case string:
		return trimNonEmpty(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case map[string]any:
		if doc, ok := jira.ADFFromValue(v); ok {
			return renderDocValue(doc, atts)
		}
		if s, ok := mapField(v, "value", "displayName", "name"); ok {
			return s, true
		}
		return fmt.Sprintf("%v", v), true
	case []any:
		return renderArrayValue(v, jira.FieldSchema{}, atts)
	}
	return fmt.Sprintf("%v", value), true
}

func renderArrayValue(list []any, item jira.FieldSchema, atts *AttachmentContext) (string, bool) {
	if len(list) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(list))
	for _, elem := range list {
		if s, ok := RenderFieldValue(elem, item, atts); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ", "), true
}

func renderDocValue(doc *jira.ADFNode, atts *AttachmentContext) (string, bool) {
	s := strings.TrimSpace(RenderADF(doc, atts))
	return s, s != ""
}

func mapField(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func trimNonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
