package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayamjn/enterpret-gladly/internal/config"
	"github.com/sayamjn/enterpret-gladly/internal/state"
)

var resetCmd = &cobra.Command{
	Use:   "reset-state",
	Short: "Delete the persisted import state",
	Long: `Delete the state file so the next incremental run starts from the
default lookback window. Removing absent state is a no-op.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	log, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = cleanup() }()

	store := state.NewStore(cfg.StateFilePath, log)
	if !store.Reset() {
		return fmt.Errorf("reset state at %s failed", cfg.StateFilePath)
	}
	fmt.Printf("Import state reset (%s)\n", cfg.StateFilePath)
	return nil
}
