package resource

// EventType identifies a slot lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a slot lifecycle event.
type Event struct {
	Value any
	Index int
	Type  EventType
}

// Observer receives notifications about slot lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnResourceEvent calls f.
func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by stored values that need cleanup
// when their slot is dropped or cleared.
type Dropper interface {
	Drop()
}
