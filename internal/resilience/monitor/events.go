package monitor

import (
	"sync"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// Event identifies a link state change subscribers can react to.
type Event string

const (
	EventOnline  Event = "online"
	EventOffline Event = "offline"
	EventRisk    Event = "risk" // risk score crossed the proactive threshold
)

// Payload carries the link state at the moment the event fired.
type Payload struct {
	Event Event
	State domain.LinkState
}

// Handler receives link events.
type Handler func(Payload)

// Bus is a small publish/subscribe fanout. Handlers run on their own
// goroutine so a slow subscriber never delays the probe timer.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Event][]Handler)}
}

// On registers a handler for an event.
func (b *Bus) On(event Event, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit dispatches the payload to every handler asynchronously.
func (b *Bus) Emit(event Event, state domain.LinkState) {
	b.mu.RLock()
	handlers := append([]Handler{}, b.handlers[event]...)
	b.mu.RUnlock()

	payload := Payload{Event: event, State: state}
	for _, h := range handlers {
		go h(payload)
	}
}
