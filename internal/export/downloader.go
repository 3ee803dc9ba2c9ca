package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dt-pm-tools/jira-export/internal/jira"
	"github.com/dt-pm-tools/jira-export/internal/markdown"
)

// Downloader fetches issue attachments into a local directory.
type Downloader struct {
	client *jira.Client
	log    *slog.Logger
}

// NewDownloader returns a downloader using the given API client.
func NewDownloader(client *jira.Client, log *slog.Logger) *Downloader {
	if log == nil {
		log = slog.Default()
	}
	return &Downloader{client: client, log: log}
}

// DownloadAll fetches every attachment into dir and returns the records for
// those that were actually written. Filename collisions are resolved with a
// numeric suffix; a failed download is logged and skipped so one broken
// attachment never fails the whole export.
func (d *Downloader) DownloadAll(ctx context.Context, metas []jira.AttachmentMeta, dir string) []markdown.Attachment {
	taken := make(map[string]bool, len(metas))
	out := make([]markdown.Attachment, 0, len(metas))

	for _, meta := range metas {
		original := sanitizeFilename(meta.Filename)
		if original == "" {
			original = "attachment-" + meta.ID
		}
		local := uniqueFilename(original, taken)
		path := filepath.Join(dir, local)

		if err := d.downloadOne(ctx, meta.Content, path); err != nil {
			d.log.Warn("attachment download failed",
				"id", meta.ID, "filename", meta.Filename, "error", err)
			continue
		}
		taken[strings.ToLower(local)] = true
		out = append(out, markdown.Attachment{
			ID:               meta.ID,
			Filename:         local,
			OriginalFilename: meta.Filename,
			MimeType:         meta.MimeType,
			Path:             path,
		})
	}
	return out
}

func (d *Downloader) downloadOne(ctx context.Context, contentURL, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.client.DownloadAttachment(ctx, contentURL, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// sanitizeFilename strips path components and characters that are unsafe in
// local filenames.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// uniqueFilename appends _1, _2, ... before the extension until the name is
// free. Comparison is case-insensitive for the sake of case-folding
// filesystems.
func uniqueFilename(name string, taken map[string]bool) string {
	if !taken[strings.ToLower(name)] {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}
