package commands

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"ptrun/internal/config"
	"ptrun/internal/discovery"
	"ptrun/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config *config.Config
	filter *discovery.Filter
	parser *discovery.Parser
}

// NewListCommand creates a new ListCommand
func NewListCommand(cfg *config.Config) *ListCommand {
	return &ListCommand{
		config: cfg,
		filter: discovery.NewFilter(),
		parser: discovery.NewParser(),
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner(lc.config.PathsToIgnore, lc.config.SourceExtensions)
	files, err := scanner.Scan(lc.config.ProjectPath)
	if err != nil {
		return err
	}

	catalog, err := lc.parser.Catalog(files)
	if err != nil {
		return err
	}
	catalog = lc.filter.FilterDeclarations(catalog, lc.config.Flags.NameFilter)

	if len(catalog) == 0 {
		color.Yellow("No functions found")
		return nil
	}

	ui.NewFormatter(lc.config, os.Stdout).PrintCatalog(catalog)
	return nil
}
