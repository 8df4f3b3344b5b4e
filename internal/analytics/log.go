package analytics

// Log is the session's append-only event log, with an optional one-way
// outbound channel toward external consumers (persistence, UI). The
// outbound send never blocks: when the consumer falls behind, the
// oldest buffered event is dropped so the simulation loop can never be
// stalled or reordered by the observer side.
type Log struct {
	events   []Event
	outbound chan Event
}

// NewLog creates a log. buffer sizes the outbound channel; a buffer of
// zero disables outbound delivery entirely.
func NewLog(buffer int) *Log {
	l := &Log{}
	if buffer > 0 {
		l.outbound = make(chan Event, buffer)
	}
	return l
}

// Append records an event and forwards it outbound without blocking.
func (l *Log) Append(ev Event) {
	l.events = append(l.events, ev)
	if l.outbound == nil {
		return
	}
	for {
		select {
		case l.outbound <- ev:
			return
		default:
			// Consumer is behind: drop the oldest and retry.
			select {
			case <-l.outbound:
			default:
			}
		}
	}
}

// Outbound returns the one-way event channel, or nil when disabled.
func (l *Log) Outbound() <-chan Event {
	return l.outbound
}

// Close closes the outbound channel. Call only after the last Append.
func (l *Log) Close() {
	if l.outbound != nil {
		close(l.outbound)
	}
}

// Events returns the full in-order event history.
func (l *Log) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of logged events.
func (l *Log) Len() int {
	return len(l.events)
}
