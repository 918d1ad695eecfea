package resource

// Slots is an index-stable growable container. The zero value is ready to use.
type Slots[T any] struct {
	entries   []entry[T]
	observers []Observer
	live      int
}

type entry[T any] struct {
	value T
	valid bool
}

// NewSlots creates an empty container.
func NewSlots[T any]() *Slots[T] {
	return &Slots[T]{
		entries: make([]entry[T], 0, 64),
	}
}

// Len returns the number of addressable indices, filled or not.
func (s *Slots[T]) Len() int {
	return len(s.entries)
}

// Live returns the number of filled slots.
func (s *Slots[T]) Live() int {
	return s.live
}

// Grow extends the container so that indices below n are addressable.
// It never shrinks.
func (s *Slots[T]) Grow(n int) {
	if n <= len(s.entries) {
		return
	}
	if n <= cap(s.entries) {
		s.entries = s.entries[:n]
		return
	}
	grown := make([]entry[T], n, max(n, 2*cap(s.entries)))
	copy(grown, s.entries)
	s.entries = grown
}

// Get retrieves the value at index.
func (s *Slots[T]) Get(index int) (T, bool) {
	if index < 0 || index >= len(s.entries) {
		var zero T
		return zero, false
	}
	e := s.entries[index]
	return e.value, e.valid
}

// Set stores value at index, growing the container to cover it.
// A value already stored at index is replaced without a drop event.
func (s *Slots[T]) Set(index int, value T) {
	if index < 0 {
		return
	}
	s.Grow(index + 1)

	e := &s.entries[index]
	if !e.valid {
		s.live++
	}
	e.value = value
	e.valid = true

	s.notify(Event{
		Type:  EventCreated,
		Index: index,
		Value: value,
	})
}

// Drop empties the slot at index and returns (value, true) if it was filled.
func (s *Slots[T]) Drop(index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(s.entries) {
		return zero, false
	}

	e := &s.entries[index]
	if !e.valid {
		return zero, false
	}

	value := e.value
	e.value = zero
	e.valid = false
	s.live--

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}

	s.notify(Event{
		Type:  EventDropped,
		Index: index,
		Value: value,
	})

	return value, true
}

// Each calls fn for every filled slot in index order until fn returns false.
// Slots added by fn itself are visited as well.
func (s *Slots[T]) Each(fn func(index int, value T) bool) {
	for i := 0; i < len(s.entries); i++ {
		e := s.entries[i]
		if !e.valid {
			continue
		}
		if !fn(i, e.value) {
			return
		}
	}
}

// Clear drops every filled slot and releases the backing array.
func (s *Slots[T]) Clear() {
	for i := range s.entries {
		s.Drop(i)
	}
	s.entries = nil
	s.live = 0
}

// AddObserver registers an observer for lifecycle events.
func (s *Slots[T]) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// RemoveObserver unregisters an observer. Observers must be comparable;
// an ObserverFunc cannot be removed.
func (s *Slots[T]) RemoveObserver(o Observer) {
	for i, obs := range s.observers {
		if obs == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Slots[T]) notify(e Event) {
	for _, o := range s.observers {
		o.OnResourceEvent(e)
	}
}
