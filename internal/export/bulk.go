package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many issues a bulk export processes at once.
const DefaultConcurrency = 4

// BulkOptions tunes a bulk export run.
type BulkOptions struct {
	Concurrency int    // parallel issue exports, DefaultConcurrency when <= 0
	MaxResults  int    // cap on matched issues, no cap when <= 0
	BatchName   string // subdirectory under the output dir, none when empty
}

// ExportAll exports every issue matched by the JQL query, running exports in
// parallel, and writes an index.md summarizing the run. Individual issue
// failures are recorded in the results and the index; only search and
// filesystem errors abort the run.
func (e *Exporter) ExportAll(ctx context.Context, jql, outDir string, opts BulkOptions) ([]Result, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if opts.BatchName != "" {
		outDir = filepath.Join(outDir, opts.BatchName)
	}
	log := e.logger()

	issues, err := e.Client.SearchJQL(ctx, jql, opts.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("bulk export: %w", err)
	}
	log.Info("search complete", "jql", jql, "matches", len(issues))
	if len(issues) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("bulk export: %w", err)
	}

	results := make([]Result, len(issues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, issue := range issues {
		g.Go(func() error {
			res, err := e.Export(gctx, issue.Key, outDir)
			if err != nil {
				log.Error("issue export failed", "issue", issue.Key, "error", err)
				res = Result{Key: issue.Key, Summary: issue.Fields.Summary, Err: err}
			}
			results[i] = res
			// Keep going; the index reports per-issue failures.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	if err := writeIndex(filepath.Join(outDir, "index.md"), jql, results); err != nil {
		return results, err
	}
	return results, nil
}

// writeIndex renders the run summary table, sorted by issue key.
func writeIndex(path, jql string, results []Result) error {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	exported := 0
	var b strings.Builder
	b.WriteString("# Export Index\n\n")
	fmt.Fprintf(&b, "**Query:** `%s`\n\n", jql)
	b.WriteString("| Issue | Summary | Attachments | Status |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, r := range sorted {
		if r.Err != nil {
			fmt.Fprintf(&b, "| %s | %s | - | ✗ %s |\n",
				r.Key, tableCell(r.Summary), tableCell(r.Err.Error()))
			continue
		}
		exported++
		fmt.Fprintf(&b, "| [%s](%s/%s.md) | %s | %d | ✓ |\n",
			r.Key, r.Key, r.Key, tableCell(r.Summary), r.Attachments)
	}
	fmt.Fprintf(&b, "\n**Exported:** %d of %d\n", exported, len(sorted))

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
