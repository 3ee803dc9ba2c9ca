package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dt-pm-tools/jira-export/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	verbose   bool
	appConfig config.Config
	logger    *slog.Logger
	version   = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:     "jira-export",
	Short:   "Export JIRA issues to markdown",
	Long:    `Exports JIRA issues as self-contained markdown documents with YAML frontmatter, downloaded attachments and locally rewritten attachment links.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.jira-export.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig loads and validates configuration. Commands that need JIRA access call this.
func loadConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'jira-export config' to set up credentials", err)
	}
	appConfig = cfg
	return nil
}
