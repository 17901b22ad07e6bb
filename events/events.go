package events

import (
	"context"
	"sync"

	"seatduel/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeDuelUpdated  EventType = "duel_updated"
	EventTypeSeatsChanged EventType = "seats_changed"
	EventTypeSeatsReset   EventType = "seats_reset"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// DuelUpdatedEvent carries a duel state transition together with every
// seat mutated by that transition
type DuelUpdatedEvent struct {
	Duel  *models.Duel
	Seats []*models.Seat
}

func (e DuelUpdatedEvent) Type() EventType {
	return EventTypeDuelUpdated
}

// SeatsChangedEvent carries seats whose occupancy changed outside a duel
// (a take-seat action)
type SeatsChangedEvent struct {
	Seats []*models.Seat
}

func (e SeatsChangedEvent) Type() EventType {
	return EventTypeSeatsChanged
}

// SeatsResetEvent signals a bulk reset of the whole seat pool
type SeatsResetEvent struct {
	Seats []*models.Seat
}

func (e SeatsResetEvent) Type() EventType {
	return EventTypeSeatsReset
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
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
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
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
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after the transaction commits,
// so listeners never observe uncommitted state.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events are processed independently of the transaction lifecycle, so
	// emit with a background context rather than the request context.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback to drop pending events
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
