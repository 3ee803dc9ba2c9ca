package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/jira-export/internal/export"
	"github.com/dt-pm-tools/jira-export/internal/fieldcache"
	"github.com/dt-pm-tools/jira-export/internal/jira"
	"github.com/dt-pm-tools/jira-export/internal/markdown"
)

var (
	outputDir     string
	saveJSON      bool
	refreshFields bool
	includeFields []string
	excludeFields []string
)

var exportCmd = &cobra.Command{
	Use:   "export <issue-key> [issue-key...]",
	Short: "Export JIRA issues to markdown directories",
	Long:  `Fetches each issue and writes <output>/<KEY>/<KEY>.md together with the issue's attachments. Attachment links inside the document are rewritten to the downloaded files.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		ctx := cmd.Context()

		exporter, err := newExporter(ctx)
		if err != nil {
			return err
		}

		failed := 0
		for _, arg := range args {
			key := strings.ToUpper(arg)
			res, err := exporter.Export(ctx, key, outputDir)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "export %s: %v\n", key, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "Exported %s (%d attachments) to %s\n",
				res.Key, res.Attachments, res.Dir)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d issues failed", failed, len(args))
		}
		return nil
	},
}

// newExporter builds the shared export pipeline from the loaded config:
// API client, field name cache, converter and filter. Command-line field
// filters are merged on top of the config file's lists.
func newExporter(ctx context.Context) (*export.Exporter, error) {
	client := jira.NewClient(appConfig.Domain(), appConfig.Email, appConfig.Token)

	cache, err := fieldcache.New(appConfig.Domain(), logger)
	if err != nil {
		return nil, err
	}
	if err := cache.Load(ctx, client, refreshFields); err != nil {
		return nil, err
	}

	include, exclude := appConfig.FilterSets()
	include = mergeFilter(include, includeFields)
	exclude = mergeFilter(exclude, excludeFields)

	return &export.Exporter{
		Client:    client,
		Converter: markdown.NewConverter(client.BaseURL(), logger),
		Fields:    cache,
		Filter:    markdown.FieldFilter{Include: include, Exclude: exclude},
		SaveJSON:  saveJSON,
		Log:       logger,
	}, nil
}

func mergeFilter(set map[string]bool, extra []string) map[string]bool {
	for _, item := range extra {
		if s := strings.TrimSpace(item); s != "" {
			if set == nil {
				set = make(map[string]bool)
			}
			set[s] = true
		}
	}
	return set
}

// addExportFlags registers the flags shared by the export and bulk commands.
func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&saveJSON, "include-json", false, "also save the raw API response next to the markdown")
	cmd.Flags().BoolVar(&refreshFields, "refresh-fields", false, "refetch field metadata even if the cache is fresh")
	cmd.Flags().StringSliceVar(&includeFields, "include-fields", nil, "custom fields to include (id or name, repeatable)")
	cmd.Flags().StringSliceVar(&excludeFields, "exclude-fields", nil, "custom fields to exclude (id or name, repeatable)")
}

func init() {
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory to create per-issue export directories in")
	addExportFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
