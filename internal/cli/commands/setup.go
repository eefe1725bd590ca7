// Package commands implements the oql subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/config"
	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/schema"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Registry *schema.Registry
	Store    history.Store
	Analyzer *analysis.Analyzer
}

// NewCommandContext loads the metadata registry and opens the history
// store. The returned cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	reg, err := schema.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := history.Open(cmd.Context(), cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}

	record := analysis.PublisherFunc(func(ctx context.Context, e history.Entry) {
		if err := store.Write(ctx, e); err != nil {
			logger.Warn("recording parse history failed", "error", err)
		}
	})

	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing history store failed", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Registry: reg,
		Store:    store,
		Analyzer: analysis.New(reg, cfg.Parser.MaxDepth, record, logger),
	}, cleanup, nil
}

// getConfig returns the config loaded by the root command, or the
// defaults when a command runs on its own.
func getConfig(ctx context.Context) (*config.Config, error) {
	if cfg := config.FromContext(ctx); cfg != nil {
		return cfg, nil
	}
	return config.Load("", nil)
}
