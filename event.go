package attpc

import "time"

// TraceLength is the fixed number of time buckets in every trace.
const TraceLength = 512

// Trace is one channel's fixed-length digitized waveform.
type Trace [TraceLength]int16

// Event is the collection of traces sharing one GET event ID, plus the GET
// timestamp from the ordinary CoBos (Timestamp) and the auxiliary timestamp
// carried by the designated CoBo (TimestampOther).
type Event struct {
	EventID         uint32
	Timestamp       uint64
	TimestampOther  uint64
	Traces          map[HardwareAddress]*Trace
}

// NewEvent allocates an Event ready to accumulate traces.
func NewEvent(eventID uint32) *Event {
	return &Event{
		EventID: eventID,
		Traces:  make(map[HardwareAddress]*Trace),
	}
}

// TraceFor returns the trace for addr, allocating it on first touch.
func (e *Event) TraceFor(addr HardwareAddress) *Trace {
	t, ok := e.Traces[addr]
	if !ok {
		t = &Trace{}
		e.Traces[addr] = t
	}
	return t
}

// RunExtent bundles the min/max GET event IDs and timestamps the writer
// tracks across all events in a run for its close-time attributes, modeled
// on the teacher's SwathBathySummary start/end extent tracking (summary.go)
// generalized from geographic extent to event/timestamp extent.
type RunExtent struct {
	MinEvent uint32
	MaxEvent uint32
	MinTS    uint64
	MaxTS    uint64
	seen     bool
}

// Observe folds ev's event ID and timestamp into the running extent.
func (r *RunExtent) Observe(ev *Event) {
	if !r.seen {
		r.MinEvent, r.MaxEvent = ev.EventID, ev.EventID
		r.MinTS, r.MaxTS = ev.Timestamp, ev.Timestamp
		r.seen = true
		return
	}
	if ev.EventID < r.MinEvent {
		r.MinEvent = ev.EventID
	}
	if ev.EventID > r.MaxEvent {
		r.MaxEvent = ev.EventID
	}
	if ev.Timestamp < r.MinTS {
		r.MinTS = ev.Timestamp
	}
	if ev.Timestamp > r.MaxTS {
		r.MaxTS = ev.Timestamp
	}
}

// unixFromGetTimestamp converts a 48-bit GET event_time to a UTC time for
// display/logging purposes only; the wire value is kept as the raw uint64
// everywhere else.
func unixFromGetTimestamp(ts uint64) time.Time {
	return time.Unix(0, int64(ts)).UTC()
}
