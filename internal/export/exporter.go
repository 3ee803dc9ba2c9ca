// Package export drives the issue export workflow: fetch, download
// attachments, compose markdown, write the per-issue directory.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dt-pm-tools/jira-export/internal/jira"
	"github.com/dt-pm-tools/jira-export/internal/markdown"
)

// Exporter exports issues from one JIRA site into a local directory tree.
// Safe for concurrent use; the bulk runner shares one exporter across
// workers.
type Exporter struct {
	Client    *jira.Client
	Converter *markdown.Converter
	Fields    markdown.FieldResolver
	Filter    markdown.FieldFilter
	SaveJSON  bool
	Log       *slog.Logger
}

// Result describes one exported issue.
type Result struct {
	Key         string
	Summary     string
	Dir         string
	Attachments int
	Err         error
}

// Export fetches one issue and writes <outDir>/<KEY>/<KEY>.md plus its
// attachments. With SaveJSON set it also writes the raw API response next
// to the markdown file.
func (e *Exporter) Export(ctx context.Context, key, outDir string) (Result, error) {
	log := e.logger().With("issue", key)

	issue, raw, err := e.Client.GetIssue(ctx, key)
	if err != nil {
		return Result{Key: key, Err: err}, err
	}

	dir := filepath.Join(outDir, issue.Key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		err = fmt.Errorf("export %s: %w", issue.Key, err)
		return Result{Key: issue.Key, Err: err}, err
	}

	downloader := NewDownloader(e.Client, log)
	atts := downloader.DownloadAll(ctx, issue.Fields.Attachment, dir)
	log.Info("attachments downloaded", "count", len(atts), "declared", len(issue.Fields.Attachment))

	doc, err := e.Converter.Compose(issue, markdown.ComposeOptions{
		Fields:      e.Fields,
		Filter:      e.Filter,
		Attachments: atts,
	})
	if err != nil {
		return Result{Key: issue.Key, Err: err}, err
	}

	mdPath := filepath.Join(dir, issue.Key+".md")
	if err := os.WriteFile(mdPath, []byte(doc), 0o644); err != nil {
		err = fmt.Errorf("export %s: %w", issue.Key, err)
		return Result{Key: issue.Key, Err: err}, err
	}

	if e.SaveJSON {
		jsonPath := filepath.Join(dir, issue.Key+".json")
		if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
			log.Warn("cannot write raw json sidecar", "path", jsonPath, "error", err)
		}
	}

	log.Info("exported", "path", mdPath)
	return Result{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Dir:         dir,
		Attachments: len(atts),
	}, nil
}

func (e *Exporter) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
