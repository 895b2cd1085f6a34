package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"ptrun/internal/cli"
	"ptrun/internal/config"
	"ptrun/internal/discovery"
	"ptrun/internal/execution"
	"ptrun/internal/logging"
	"ptrun/internal/runstate"
	"ptrun/internal/storage"
	"ptrun/internal/transport"

	"github.com/spf13/cobra"
)

// Commands holds all CLI commands
type Commands struct {
	Run     *RunCommand
	List    *ListCommand
	Serve   *ServeCommand
	Results *ResultsCommand
	History *HistoryCommand
}

// NewCommands creates all commands. Their dependencies are built when a
// command executes, once the project config and flags are known.
func NewCommands(cfg *config.Config) *Commands {
	return &Commands{
		Run:     NewRunCommand(cfg),
		List:    NewListCommand(cfg),
		Serve:   NewServeCommand(cfg),
		Results: NewResultsCommand(cfg),
		History: NewHistoryCommand(cfg),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	rootCmd.PersistentFlags().StringVarP(&flags.Project, "project", "C", "", "Project directory (defaults to the current directory)")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flags.Project)
		if err != nil {
			return err
		}
		*cfg = *loaded
		if flags.LogLevel != "" {
			cfg.LogLevel = flags.LogLevel
		}
		cfg.ApplyFlags(flags.ToConfigFlags())
		return nil
	}

	// Run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run prompt tests",
		Long:  "Run a selection of function tests through the configured runner and report live results",
		Example: `  ptrun run -i ExtractResume:gpt4:senior -i ExtractResume:claude:senior
  ptrun run --function ExtractResume
  ptrun run --all --filter 'Extract*'
  ptrun run --request selection.json --transport stream --endpoint http://localhost:4000/run`,
		RunE: c.Run.Execute,
	}
	runCmd.Flags().StringArrayVarP(&flags.Tests, "test", "i", nil, "Test to run as function:impl:test (repeatable)")
	runCmd.Flags().StringArrayVar(&flags.Functions, "function", nil, "Run every available test of a function (repeatable)")
	runCmd.Flags().StringVarP(&flags.RequestFile, "request", "r", "", "Read the test selection from a JSON file")
	runCmd.Flags().BoolVarP(&flags.All, "all", "a", false, "Run every test declared in the project")
	runCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter functions by name pattern (supports wildcards, e.g., 'Extract*' or '*Resume*')")
	runCmd.Flags().BoolVar(&flags.NoProgress, "no-progress", false, "Do not show the progress bar")
	addTransportFlags(runCmd, flags)
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List declared functions and tests",
		Long:  "Scan the project sources and list every function with the tests that target it",
		RunE:  c.List.Execute,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "filter", "f", "", "Filter functions by name pattern (supports wildcards, e.g., 'Extract*' or '*Resume*')")
	rootCmd.AddCommand(listCmd)

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API for editor webviews",
		Long:  "Start an HTTP and websocket bridge that runs tests on request and streams their state",
		RunE:  c.Serve.Execute,
	}
	serveCmd.Flags().StringVar(&flags.ServeAddr, "addr", "", "Address to listen on (default "+config.DefaultServeAddr+")")
	addTransportFlags(serveCmd, flags)
	rootCmd.AddCommand(serveCmd)

	// Results command
	resultsCmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "View the results of a recorded run",
		Long:  "Display the latest recorded run, or the run with the given id prefix, in an interactive viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.Results.Execute,
	}
	resultsCmd.Flags().BoolVar(&flags.Plain, "plain", false, "Print a results table instead of opening the viewer")
	rootCmd.AddCommand(resultsCmd)

	// History command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE:  c.History.Execute,
	}
	historyCmd.Flags().IntVarP(&flags.Limit, "limit", "n", 0, "Number of runs to show (default: all kept runs)")
	rootCmd.AddCommand(historyCmd)
}

func addTransportFlags(cmd *cobra.Command, flags *cli.Flags) {
	cmd.Flags().StringVarP(&flags.Transport, "transport", "t", "", "Transport to the runner: process or stream")
	cmd.Flags().StringVar(&flags.Endpoint, "endpoint", "", "Run endpoint for the stream transport")
	cmd.Flags().StringVar(&flags.RunnerPath, "runner", "", "Runner executable for the process transport")
}

// runtime holds what a test run needs, built from the final config
type runtime struct {
	config    *config.Config
	logger    *slog.Logger
	storage   storage.Storage
	transport transport.Transport
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	st, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	tr, err := newTransport(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &runtime{config: cfg, logger: logger, storage: st, transport: tr}, nil
}

func (rt *runtime) controller(notifier execution.Notifier) *execution.Controller {
	return execution.NewController(runstate.New(), rt.transport,
		execution.WithNotifier(notifier),
		execution.WithLogger(rt.logger),
		execution.WithDelimiter(rt.config.Delimiter),
		execution.WithCancelTimeout(rt.config.CancelTimeout, rt.config.CancelPollInterval),
	)
}

func (rt *runtime) Close() error {
	return rt.storage.Close()
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return logger, nil
}

func newTransport(cfg *config.Config, logger *slog.Logger) (transport.Transport, error) {
	switch cfg.Transport {
	case config.TransportProcess:
		return transport.NewProcessTransport(cfg, logger), nil
	case config.TransportStream:
		scanner := discovery.NewScanner(cfg.PathsToIgnore, cfg.SourceExtensions)
		files := discovery.NewProjectSource(scanner, cfg.ProjectPath)
		return transport.NewStreamTransport(cfg.Endpoint, files, &http.Client{}, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownTransport, cfg.Transport)
	}
}
