package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ptrun/internal/cli"
	"ptrun/internal/config"
	"ptrun/internal/discovery"
	"ptrun/internal/domain"
	"ptrun/internal/execution"
	"ptrun/internal/runstate"
	"ptrun/internal/storage"
	"ptrun/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RunCommand handles the run command
type RunCommand struct {
	config *config.Config
	filter *discovery.Filter
	parser *discovery.Parser
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		config: cfg,
		filter: discovery.NewFilter(),
		parser: discovery.NewParser(),
	}
}

// Execute runs the command. The process exits with the run's status.
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	req, err := rc.buildRequest()
	if err != nil {
		return err
	}
	if req.IsEmpty() {
		color.Yellow("No tests to execute")
		return nil
	}

	rt, err := newRuntime(rc.config)
	if err != nil {
		return err
	}
	defer rt.Close()

	formatter := ui.NewFormatter(rc.config, cmd.OutOrStdout())
	recorder := storage.NewRecorder(rt.storage, rt.transport.Name(), rt.logger)
	notifiers := execution.Notifiers{recorder, stdoutEcho{formatter}}

	var progress *ui.ProgressBar
	if count := len(req.Expand()); count > 0 && !rc.config.Flags.NoProgress {
		progress = ui.NewProgressBar(count, cmd.ErrOrStderr())
		notifiers = append(notifiers, progress)
	}
	controller := rt.controller(notifiers)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := controller.RunTest(ctx, req); err != nil {
		rt.logger.Debug("run did not start", "error", err)
	} else if _, err := controller.Wait(ctx); err != nil && ctx.Err() != nil {
		fmt.Fprintln(cmd.ErrOrStderr())
		color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "Cancelling test run...")
		if err := controller.CancelExistingTestRun(context.Background()); err != nil {
			rt.logger.Warn("cancel did not complete", "error", err)
		}
	}
	if progress != nil {
		progress.Finish()
	}

	snap := controller.Snapshot()
	formatter.PrintSummary(snap, time.Since(start))
	if rec, ok := recorder.Last(); ok && snap.RunStatus != domain.RunStatusNotStarted {
		color.New(color.Faint).Fprintf(cmd.OutOrStdout(), "Recorded run %s\n", rec.ID)
	}
	return exitError(snap)
}

// buildRequest resolves the selection from a request file, the whole
// project or the test and function flags, then applies the name filter.
func (rc *RunCommand) buildRequest() (domain.TestRunRequest, error) {
	flags := rc.config.Flags

	var (
		req domain.TestRunRequest
		err error
	)
	switch {
	case flags.RequestFile != "":
		req, err = cli.LoadRequestFile(flags.RequestFile)
	case flags.All:
		req, err = rc.projectRequest()
	case len(flags.Tests) == 0 && len(flags.Functions) == 0:
		return req, fmt.Errorf("%w: use --test, --function, --request or --all", cli.ErrEmptyRequest)
	default:
		req, err = cli.BuildRequest(flags.Tests, flags.Functions)
	}
	if err != nil {
		return req, err
	}
	return rc.filter.FilterFunctions(req, flags.NameFilter), nil
}

func (rc *RunCommand) projectRequest() (domain.TestRunRequest, error) {
	scanner := discovery.NewScanner(rc.config.PathsToIgnore, rc.config.SourceExtensions)
	files, err := scanner.Scan(rc.config.ProjectPath)
	if err != nil {
		return domain.TestRunRequest{}, err
	}
	catalog, err := rc.parser.Catalog(files)
	if err != nil {
		return domain.TestRunRequest{}, err
	}
	return discovery.AllTestsRequest(catalog), nil
}

// stdoutEcho prints raw runner output as it arrives
type stdoutEcho struct {
	formatter *ui.Formatter
}

func (e stdoutEcho) TestResults(runstate.Snapshot) {}

func (e stdoutEcho) TestStdout(text string) {
	e.formatter.PrintStdout(text)
}
