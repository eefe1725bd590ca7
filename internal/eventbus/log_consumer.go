package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/oql/internal/history"
)

// LogConsumer logs every parse at debug level, failures at info.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer { return &LogConsumer{logger: logger} }

func (c *LogConsumer) HandleEvent(ctx context.Context, evt history.Entry) error {
	level := slog.LevelDebug
	if evt.Status != history.StatusOK {
		level = slog.LevelInfo
	}
	c.logger.Log(ctx, level, "parse",
		"source", evt.Source,
		"session", evt.SessionID,
		"status", evt.Status,
		"kind", evt.Kind,
		"duration", evt.Duration,
		"error", evt.Error,
	)
	return nil
}
