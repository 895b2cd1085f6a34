package commands

import (
	"os"

	"github.com/spf13/cobra"
	"ptrun/internal/config"
	"ptrun/internal/storage"
	"ptrun/internal/ui"
)

// HistoryCommand handles the history command
type HistoryCommand struct {
	config *config.Config
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand(cfg *config.Config) *HistoryCommand {
	return &HistoryCommand{config: cfg}
}

// Execute runs the command
func (hc *HistoryCommand) Execute(cmd *cobra.Command, args []string) error {
	st, err := storage.New(hc.config)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(hc.config.Flags.Limit)
	if err != nil {
		return err
	}
	ui.NewFormatter(hc.config, os.Stdout).PrintHistory(runs)
	return nil
}
