package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/buildinfo"
	"github.com/cleared-dev/tally/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Import bank statement CSVs and report on spending",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "path to tally.yaml")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(&configPath),
		newServeCommand(&configPath),
		newReportCommand(&configPath),
	)

	return rootCmd
}
