package markdown

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ReplaceAttachmentLinks rewrites JIRA-hosted attachment URLs inside already
// rendered markdown to point at the locally downloaded files. Both the
// /secure/attachment/<id>/<name> form and the REST content/thumbnail form
// are handled. The pass is idempotent: rewritten local links never match
// the server URL patterns again.
func (c *Converter) ReplaceAttachmentLinks(content string, atts []Attachment) string {
	if content == "" {
		return content
	}
	ctx := NewAttachmentContext(atts)

	for _, att := range atts {
		name := att.OriginalFilename
		if name == "" {
			name = att.Filename
		}
		if name == "" {
			continue
		}
		local := escapeFilename(att.Filename)

		// Match the filename both raw and percent-encoded; JIRA emits
		// either form depending on which surface produced the link.
		names := regexp.QuoteMeta(name)
		if enc := url.PathEscape(name); enc != name {
			names += "|" + regexp.QuoteMeta(enc)
		}
		secure := fmt.Sprintf(`(?:https?://%s)?/secure/(?:attachment|thumbnail)/[0-9]+/(?:%s)`,
			regexp.QuoteMeta(c.domain), names)

		content = regexp.MustCompile(`(!\[[^\]]*\])\(`+secure+`\)`).
			ReplaceAllString(content, `${1}(`+local+`)`)
		content = regexp.MustCompile(`(\[[^\]]+\])\(`+secure+`\)`).
			ReplaceAllString(content, `${1}(`+local+`)`)

		if att.ID != "" {
			rest := fmt.Sprintf(`(?:https?://%s)?(?:/jira)?/rest/api/[0-9]+/attachment/(?:content|thumbnail)/%s(?:\?[^)\s]*)?`,
				regexp.QuoteMeta(c.domain), regexp.QuoteMeta(att.ID))
			content = regexp.MustCompile(`(!?\[[^\]]*\])\(`+rest+`\)`).
				ReplaceAllString(content, `${1}(`+local+`)`)
		}
	}

	// Fallback for attachment URLs whose filename segment did not match any
	// known attachment directly (odd encodings, renamed files). Try the URL
	// segment first, then the link text.
	generic := regexp.MustCompile(
		fmt.Sprintf(`(!?)\[([^\]]*)\]\((?:https?://%s)?/secure/(?:attachment|thumbnail)/[0-9]+/([^)\s]+)\)`,
			regexp.QuoteMeta(c.domain)))
	content = generic.ReplaceAllStringFunc(content, func(match string) string {
		parts := generic.FindStringSubmatch(match)
		bang, text, segment := parts[1], parts[2], parts[3]
		if decoded, err := url.PathUnescape(segment); err == nil {
			segment = decoded
		}
		att, ok := ctx.Resolve("", segment)
		if !ok {
			att, ok = ctx.Resolve("", strings.TrimSpace(text))
		}
		if !ok {
			return match
		}
		return fmt.Sprintf("%s[%s](%s)", bang, text, escapeFilename(att.Filename))
	})

	// REST content/thumbnail URLs always point at an attachment the issue
	// once had, so a non-empty alt or link text is used as the local
	// filename even when the id is not in the downloaded set.
	restGeneric := regexp.MustCompile(
		fmt.Sprintf(`(!?)\[([^\]]+)\]\((?:https?://%s)?(?:/jira)?/rest/api/[0-9]+/attachment/(?:content|thumbnail)/[0-9]+(?:\?[^)\s]*)?\)`,
			regexp.QuoteMeta(c.domain)))
	content = restGeneric.ReplaceAllStringFunc(content, func(match string) string {
		parts := restGeneric.FindStringSubmatch(match)
		bang, text := parts[1], parts[2]
		name := strings.TrimSpace(text)
		if name == "" {
			return match
		}
		if att, ok := ctx.Resolve("", name); ok {
			name = att.Filename
		}
		return fmt.Sprintf("%s[%s](%s)", bang, text, escapeFilename(name))
	})

	return content
}
