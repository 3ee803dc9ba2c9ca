package markdown

import "strings"

// Attachment describes a locally downloaded issue attachment.
type Attachment struct {
	ID               string // JIRA attachment id, may be empty
	Filename         string // local filename, conflict-resolved
	OriginalFilename string // filename as declared by JIRA
	MimeType         string
	Path             string // absolute or output-relative path on disk
}

// IsImage reports whether the attachment should be embedded as an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// AttachmentContext holds the per-document lookup tables used to resolve
// ADF media references to downloaded files. Build one per composed document;
// it is never shared across exports.
type AttachmentContext struct {
	byID   map[string]Attachment
	byName map[string]Attachment
}

// NewAttachmentContext builds the id and lowercase-filename lookup tables.
// Filenames are keyed by both the original and the local name; on collision
// the last attachment wins.
func NewAttachmentContext(atts []Attachment) *AttachmentContext {
	ctx := &AttachmentContext{
		byID:   make(map[string]Attachment, len(atts)),
		byName: make(map[string]Attachment, len(atts)*2),
	}
	for _, att := range atts {
		if att.ID != "" {
			ctx.byID[att.ID] = att
		}
		if att.OriginalFilename != "" {
			ctx.byName[strings.ToLower(att.OriginalFilename)] = att
		}
		if att.Filename != "" {
			ctx.byName[strings.ToLower(att.Filename)] = att
		}
	}
	return ctx
}

// Resolve finds the downloaded attachment for a media reference. An exact id
// match wins over a case-insensitive filename match.
func (ctx *AttachmentContext) Resolve(id, filenameHint string) (Attachment, bool) {
	if ctx == nil {
		return Attachment{}, false
	}
	if id != "" {
		if att, ok := ctx.byID[id]; ok {
			return att, true
		}
	}
	if filenameHint != "" {
		if att, ok := ctx.byName[strings.ToLower(filenameHint)]; ok {
			return att, true
		}
	}
	return Attachment{}, false
}

const upperhex = "0123456789ABCDEF"

// escapeFilename percent-encodes everything except unreserved characters,
// so local filenames are safe inside Markdown link targets. Equivalent
// encoding is applied during URL rewriting, which keeps the rewrite pass
// idempotent.
func escapeFilename(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}
