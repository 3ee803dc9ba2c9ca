package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/jira-export/internal/jira"
)

var queryMax int

var queryCmd = &cobra.Command{
	Use:   "query <jql>",
	Short: "List issues matching a JQL query",
	Long:  `Runs a JQL search and prints the matching issue keys, statuses and summaries without exporting anything. Useful for checking a query before a bulk export.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		client := jira.NewClient(appConfig.Domain(), appConfig.Email, appConfig.Token)
		issues, err := client.SearchJQL(cmd.Context(), args[0], queryMax)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if len(issues) == 0 {
			fmt.Fprintln(os.Stderr, "No issues matched the query")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSTATUS\tSUMMARY")
		for _, issue := range issues {
			status := ""
			if issue.Fields.Status != nil {
				status = issue.Fields.Status.Name
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", issue.Key, status, issue.Fields.Summary)
		}
		return w.Flush()
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryMax, "max", "m", 0, "maximum issues to list (0 = all)")
	rootCmd.AddCommand(queryCmd)
}
