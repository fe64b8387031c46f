package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a match event.
type EventType string

const (
	// Phase/turn events
	EventPhaseEnding         EventType = "PHASE_ENDING"
	EventPhaseChanged        EventType = "PHASE_CHANGED"
	EventTurnChanged         EventType = "TURN_CHANGED"
	EventActivePlayerChanged EventType = "ACTIVE_PLAYER_CHANGED"
	EventMovementPhaseStart  EventType = "MOVEMENT_PHASE_START"
	EventMovementPhaseEnd    EventType = "MOVEMENT_PHASE_END"
	EventTurnResolutionEnd   EventType = "TURN_RESOLUTION_END"

	// Movement events
	EventMoveQueued    EventType = "MOVE_QUEUED"
	EventMoveCommitted EventType = "MOVE_COMMITTED"
	EventMoveCancelled EventType = "MOVE_CANCELLED"

	// Aura events
	EventAuraChanged   EventType = "AURA_CHANGED"
	EventAuraActivated EventType = "AURA_ACTIVATED"

	// Unit events
	EventUnitDamaged EventType = "UNIT_DAMAGED"
	EventUnitHealed  EventType = "UNIT_HEALED"
	EventUnitDied    EventType = "UNIT_DIED"
	EventZoneCreated EventType = "ZONE_CREATED"
	EventZoneExpired EventType = "ZONE_EXPIRED"

	// Match events
	EventMatchFinished EventType = "MATCH_FINISHED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type      EventType
	Phase     Phase
	Player    int
	UnitID    int
	Amount    int
	OldValue  int
	NewValue  int
	X, Y      int
	Reason    string
	Timestamp time.Time
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with
// type filtering. Delivery happens on the caller's goroutine, so handlers
// observe state exactly as it was at publish time.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.RLock()
	all := make([]Listener, 0, len(bus.listeners))
	for _, listener := range bus.listeners {
		all = append(all, listener)
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	// Listeners run outside the bus lock so they may subscribe/unsubscribe
	// or publish follow-up events.
	for _, listener := range all {
		listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}
