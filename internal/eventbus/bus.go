// Package eventbus provides an in-process pub/sub bus for parse events.
// The server and REPL publish one event per parse; subscribers record and
// log them asynchronously so request handling never waits on storage.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matthewbaird/oql/internal/history"
)

// Handler processes a parse event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt history.Entry) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt history.Entry) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt history.Entry) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine,
// which keeps writes to a sqlite history store serial.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	stopped     bool
	events      chan history.Entry
	done        chan struct{}
	logger      *slog.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int, logger *slog.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		events: make(chan history.Entry, bufSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full,
// or the bus has stopped, the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt history.Entry) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.logger.Warn("eventbus: stopped, dropping event", "id", evt.ID)
		return
	}
	select {
	case b.events <- evt:
	default:
		b.logger.Warn("eventbus: buffer full, dropping event", "id", evt.ID, "status", evt.Status)
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled or Stop is called; either way buffered events are
// drained first.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				for {
					select {
					case evt, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(context.WithoutCancel(ctx), evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to finish.
// It is safe to call more than once.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.events)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt history.Entry) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.logger.Error("eventbus: handler failed", "handler", s.name, "id", evt.ID, "error", err)
		}
	}
}
