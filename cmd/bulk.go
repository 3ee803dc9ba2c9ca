package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/jira-export/internal/export"
)

var (
	bulkOutputDir   string
	bulkConcurrency int
	bulkMaxResults  int
	bulkBatchName   string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk <jql>",
	Short: "Export every issue matching a JQL query",
	Long:  `Runs a JQL search and exports each matching issue in parallel, then writes an index.md summarizing the run.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		ctx := cmd.Context()

		exporter, err := newExporter(ctx)
		if err != nil {
			return err
		}

		results, err := exporter.ExportAll(ctx, args[0], bulkOutputDir, export.BulkOptions{
			Concurrency: bulkConcurrency,
			MaxResults:  bulkMaxResults,
			BatchName:   bulkBatchName,
		})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No issues matched the query")
			return nil
		}

		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
			}
		}
		fmt.Fprintf(os.Stderr, "Exported %d of %d issues to %s\n",
			len(results)-failed, len(results), bulkOutputDir)
		if failed > 0 {
			return fmt.Errorf("%d issues failed; see index.md", failed)
		}
		return nil
	},
}

func init() {
	bulkCmd.Flags().StringVarP(&bulkOutputDir, "output", "o", ".", "directory to export into")
	bulkCmd.Flags().IntVarP(&bulkConcurrency, "concurrency", "c", export.DefaultConcurrency, "parallel issue exports")
	bulkCmd.Flags().IntVar(&bulkMaxResults, "max-results", 0, "maximum issues to export (0 = all)")
	bulkCmd.Flags().StringVar(&bulkBatchName, "batch-name", "", "subdirectory under the output dir for this run")
	addExportFlags(bulkCmd)
	rootCmd.AddCommand(bulkCmd)
}
