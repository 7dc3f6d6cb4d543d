package domain

// aggregateRoot buffers domain events raised by an aggregate until the unit
// of work harvests them. Embedded by every aggregate root entity.
type aggregateRoot struct {
	events []Event
}

// AddEvent buffers a domain event on the aggregate
func (a *aggregateRoot) AddEvent(event Event) {
	a.events = append(a.events, event)
}

// PopEvents returns the buffered events in insertion order and clears the buffer
func (a *aggregateRoot) PopEvents() []Event {
	events := a.events
	a.events = nil
	return events
}

// ResetEvents drops any buffered events. Used when cloning an aggregate into
// a store row, which must never carry an event buffer.
func (a *aggregateRoot) ResetEvents() {
	a.events = nil
}

// EventSource is anything that buffers domain events. The unit of work
// harvests events from the aggregates its repositories have seen.
type EventSource interface {
	PopEvents() []Event
}
