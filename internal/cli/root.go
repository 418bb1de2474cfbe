// Package cli provides the command-line interface for the importer.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sayamjn/enterpret-gladly/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	// Global flags
	configPath string
	verbose    bool

	// Resolved per invocation in PersistentPreRunE.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "enterpret-gladly",
	Short: "Import Gladly conversations into Enterpret",
	Long: `enterpret-gladly moves customer-service conversations from Gladly into
Enterpret as feedback records.

Runs are incremental by default: each successful run records its end time
and the next run picks up from there. Use --full to re-import all history.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Resolve(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
