package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ptrun/internal/config"
	"ptrun/internal/execution"
	"ptrun/internal/server"
	"ptrun/internal/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ServeCommand handles the serve command
type ServeCommand struct {
	config *config.Config
}

// NewServeCommand creates a new ServeCommand
func NewServeCommand(cfg *config.Config) *ServeCommand {
	return &ServeCommand{config: cfg}
}

// Execute serves until interrupted, then cancels any active run
func (sc *ServeCommand) Execute(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(sc.config)
	if err != nil {
		return err
	}
	defer rt.Close()

	hub := server.NewHub(rt.logger)
	recorder := storage.NewRecorder(rt.storage, rt.transport.Name(), rt.logger)
	controller := rt.controller(execution.Notifiers{hub, recorder})
	srv := server.NewServer(sc.config, controller, rt.storage, hub, rt.logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("Serving test runs on http://%s (transport: %s)", sc.config.ServeAddr, rt.transport.Name())
	err = srv.ListenAndServe(ctx)

	if cancelErr := controller.CancelExistingTestRun(context.Background()); cancelErr != nil {
		rt.logger.Warn("failed to cancel active run", "error", cancelErr)
	}
	return err
}
