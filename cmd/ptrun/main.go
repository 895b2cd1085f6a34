package main

import (
	"errors"
	"fmt"
	"os"

	"ptrun/internal/cli"
	"ptrun/internal/cli/commands"
	"ptrun/internal/config"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ptrun",
		Short: "Prompt test runner",
		Long: `Run prompt function tests through a local runner process or a remote run endpoint,
follow their results live and keep a history of finished runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Defaults until the project config is loaded for the chosen command
	cfg := config.New()

	// Populated by command flags
	var flags cli.Flags

	cmds := commands.NewCommands(cfg)
	cmds.Register(rootCmd, &flags, cfg)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
