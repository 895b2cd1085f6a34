package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"ptrun/internal/config"
	"ptrun/internal/storage"
	"ptrun/internal/ui"
)

// ResultsCommand handles the results command
type ResultsCommand struct {
	config *config.Config
	viewer ui.Viewer
}

// NewResultsCommand creates a new ResultsCommand
func NewResultsCommand(cfg *config.Config) *ResultsCommand {
	return &ResultsCommand{
		config: cfg,
		viewer: ui.NewResultViewer(),
	}
}

// Execute runs the command
func (rc *ResultsCommand) Execute(cmd *cobra.Command, args []string) error {
	st, err := storage.New(rc.config)
	if err != nil {
		return err
	}
	defer st.Close()

	var record *storage.RunRecord
	if len(args) == 1 {
		record, err = findRun(st, args[0])
	} else {
		record, err = st.Latest()
	}
	if errors.Is(err, storage.ErrNoRuns) {
		color.Yellow("No recorded test runs")
		return nil
	}
	if err != nil {
		return err
	}

	if rc.config.Flags.Plain {
		ui.NewFormatter(rc.config, os.Stdout).PrintSummary(record.Snapshot, record.Duration())
		return nil
	}
	return rc.viewer.View(record)
}

// findRun resolves a run id prefix against the kept history
func findRun(st storage.Storage, prefix string) (*storage.RunRecord, error) {
	runs, err := st.List(0)
	if err != nil {
		return nil, err
	}

	prefix = strings.ToLower(prefix)
	var found *storage.RunRecord
	for i := range runs {
		if !strings.HasPrefix(runs[i].ID.String(), prefix) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("run id %q is ambiguous", prefix)
		}
		found = &runs[i]
	}
	if found == nil {
		return nil, fmt.Errorf("run %q not found", prefix)
	}
	return found, nil
}
