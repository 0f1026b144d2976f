package events

import (
	"context"
	"sync"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeHistoryAppended     EventType = "history_appended"
	EventTypeTokenBalanceChanged EventType = "token_balance_changed"
	EventTypeLevelUp             EventType = "level_up"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// HistoryAppendedEvent carries one committed history entry to the audit sink
type HistoryAppendedEvent struct {
	Entry *entities.HistoryEvent
}

func (e HistoryAppendedEvent) Type() EventType {
	return EventTypeHistoryAppended
}

// TokenBalanceChangedEvent represents a change of an account's double tokens
type TokenBalanceChangedEvent struct {
	Identity     string
	OldBalance   int64
	NewBalance   int64
	ChangeAmount int64
	Reason       string
}

func (e TokenBalanceChangedEvent) Type() EventType {
	return EventTypeTokenBalanceChanged
}

// LevelUpEvent represents an experience grant that crossed a level boundary
type LevelUpEvent struct {
	Identity string
	OldLevel int
	NewLevel int
	Reason   string
}

func (e LevelUpEvent) Type() EventType {
	return EventTypeLevelUp
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus dispatches events to in-process subscribers
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on event bus")
}

// Emit hands the event to every handler registered for its type.
// Handlers run on their own goroutines; a panicking handler is logged and dropped.
func (b *Bus) Emit(ctx context.Context, event Event) {
	handlers := b.handlersFor(event.Type())

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on event bus")

	for i, handler := range handlers {
		go dispatch(ctx, handler, i, event)
	}
}

// Publish lets the bus act as an audit sink. Handlers run on the caller's
// goroutine in subscription order, so a subscriber sees events in the order
// they were published. Events get a background context because they outlive
// the operation that produced them.
func (b *Bus) Publish(event Event) error {
	for i, handler := range b.handlersFor(event.Type()) {
		dispatch(context.Background(), handler, i, event)
	}
	return nil
}

func (b *Bus) handlersFor(eventType EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlers := make([]Handler, len(b.handlers[eventType]))
	copy(handlers, b.handlers[eventType])
	return handlers
}

func dispatch(ctx context.Context, h Handler, handlerIndex int, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": handlerIndex,
				"panic":        r,
			}).Error("Event handler panicked")
		}
	}()
	h(ctx, event)
}
