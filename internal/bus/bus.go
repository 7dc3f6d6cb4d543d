package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

// CommandHandler handles exactly one command type within a unit of work
type CommandHandler func(ctx context.Context, uow domain.UnitOfWork, cmd domain.Command) error

// EventHandler reacts to an event within the same unit of work that
// produced it
type EventHandler func(ctx context.Context, uow domain.UnitOfWork, event domain.Event) error

// MessageBus dispatches commands to their single handler and events to their
// ordered handler list. Processing is single-threaded cooperative inside one
// unit of work: one message at a time, events drained in order after each.
type MessageBus struct {
	factory         domain.UnitOfWorkFactory
	commandHandlers map[string]CommandHandler
	eventHandlers   map[string][]EventHandler
	log             zerolog.Logger
}

// New creates a message bus with empty dispatch tables
func New(factory domain.UnitOfWorkFactory, log zerolog.Logger) *MessageBus {
	return &MessageBus{
		factory:         factory,
		commandHandlers: make(map[string]CommandHandler),
		eventHandlers:   make(map[string][]EventHandler),
		log:             log.With().Str("component", "bus").Logger(),
	}
}

// RegisterCommand binds a command type to its single handler.
// Registration happens at wiring time; a duplicate registration is a
// programming error.
func (b *MessageBus) RegisterCommand(name string, handler CommandHandler) {
	if _, exists := b.commandHandlers[name]; exists {
		panic(fmt.Sprintf("command %s already has a handler", name))
	}
	b.commandHandlers[name] = handler
}

// RegisterEvent appends a handler to the event type's ordered list
func (b *MessageBus) RegisterEvent(name string, handler EventHandler) {
	b.eventHandlers[name] = append(b.eventHandlers[name], handler)
}

// Handle runs a command batch inside a fresh unit of work scoped to the
// command's user. On an optimistic conflict the whole unit of work is retried
// once before the error surfaces.
func (b *MessageBus) Handle(ctx context.Context, cmd domain.Command) error {
	err := b.handleOnce(ctx, cmd)
	if errors.Is(err, domain.ErrConcurrency) {
		b.log.Warn().Str("command", cmd.CommandName()).Msg("concurrency conflict, retrying once")
		err = b.handleOnce(ctx, cmd)
	}
	return err
}

func (b *MessageBus) handleOnce(ctx context.Context, cmd domain.Command) (err error) {
	handler, ok := b.commandHandlers[cmd.CommandName()]
	if !ok {
		return fmt.Errorf("no handler registered for command %s", cmd.CommandName())
	}

	uow, err := b.factory.New(ctx, cmd.CommandUserID())
	if err != nil {
		return fmt.Errorf("failed to acquire unit of work: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := uow.Rollback(ctx); rbErr != nil {
				b.log.Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err = handler(ctx, uow, cmd); err != nil {
		return err
	}

	// Drain events produced by the command, then events produced by event
	// handlers, until the queue is empty. A failing event handler is logged
	// but does not abort the queue.
	queue := uow.CollectNewEvents()
	for len(queue) > 0 {
		event := queue[0]
		queue = queue[1:]

		for _, eventHandler := range b.eventHandlers[event.EventName()] {
			if handlerErr := eventHandler(ctx, uow, event); handlerErr != nil {
				b.log.Error().
					Err(handlerErr).
					Str("event", event.EventName()).
					Msg("event handler failed")
			}
		}

		queue = append(queue, uow.CollectNewEvents()...)
	}

	return uow.Commit(ctx)
}
