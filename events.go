package playback

// EventSink receives loop and finish notifications from a generator.
// Both methods are invoked from the audio goroutine, strictly after the
// block's audio has been produced, and must not block. Implementations
// that need to do real work should enqueue and return; EventQueue does
// exactly that.
type EventSink interface {
	// Looped fires once per loop boundary crossed, even when a single
	// block crosses several.
	Looped(g *Generator)

	// Finished fires exactly once when playback reaches end-of-data.
	// It does not repeat on subsequent blocks; a seek or buffer swap
	// rearms it.
	Finished(g *Generator)
}

// EventKind discriminates queued events.
type EventKind int

const (
	EventLooped EventKind = iota
	EventFinished
)

// Event is one queued notification.
type Event struct {
	Kind      EventKind
	Generator *Generator
}

// EventQueue is a bounded, non-blocking EventSink. Events beyond the
// backlog are dropped rather than stalling the audio goroutine; loop
// and finish events are advisory, not load-bearing.
type EventQueue struct {
	ch chan Event
}

// NewEventQueue creates a queue holding up to backlog events.
func NewEventQueue(backlog int) *EventQueue {
	return &EventQueue{ch: make(chan Event, backlog)}
}

func (q *EventQueue) Looped(g *Generator)   { q.push(Event{Kind: EventLooped, Generator: g}) }
func (q *EventQueue) Finished(g *Generator) { q.push(Event{Kind: EventFinished, Generator: g}) }

func (q *EventQueue) push(e Event) {
	select {
	case q.ch <- e:
	default:
	}
}

// Events returns the receive side of the queue for host consumption.
func (q *EventQueue) Events() <-chan Event { return q.ch }

// Drain returns all currently queued events without blocking.
func (q *EventQueue) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-q.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
