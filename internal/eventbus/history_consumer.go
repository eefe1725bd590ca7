package eventbus

import (
	"context"

	"github.com/matthewbaird/oql/internal/history"
)

// HistoryConsumer writes parse events to a history store.
type HistoryConsumer struct {
	store history.Store
}

func NewHistoryConsumer(store history.Store) *HistoryConsumer {
	return &HistoryConsumer{store: store}
}

func (c *HistoryConsumer) HandleEvent(ctx context.Context, evt history.Entry) error {
	return c.store.Write(ctx, evt)
}
