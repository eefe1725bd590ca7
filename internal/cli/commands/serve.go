package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/config"
	"github.com/matthewbaird/oql/internal/eventbus"
	"github.com/matthewbaird/oql/internal/repl/session"
	"github.com/matthewbaird/oql/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the HTTP API and the WebSocket REPL",
		Example: `  oql serve --port 9000 --history oql-history.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := cmdCtx.Cfg
			logger := cmdCtx.Logger

			bus := eventbus.New(256, logger)
			bus.Subscribe("history", eventbus.NewHistoryConsumer(cmdCtx.Store))
			bus.Subscribe("log", eventbus.NewLogConsumer(logger))
			bus.Start(ctx)
			defer bus.Stop()

			sessions := session.NewManager(
				config.Duration(cfg.Server.SessionMaxAge, 24*time.Hour),
				config.Duration(cfg.Server.SessionIdle, 30*time.Minute),
			)

			return server.Run(ctx, server.Config{
				Port:           cfg.Server.Port,
				RequestTimeout: config.Duration(cfg.Server.RequestTimeout, 5*time.Second),
				Registry:       cmdCtx.Registry,
				Analyzer:       analysis.New(cmdCtx.Registry, cfg.Parser.MaxDepth, bus, logger),
				Sessions:       sessions,
				Store:          cmdCtx.Store,
				Logger:         logger,
			})
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on (default from server.port)")
	return cmd
}
