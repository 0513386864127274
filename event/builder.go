// Package event implements the event builder: it accumulates GRAW frames
// while their event_id is stable and flushes a completed Event once the
// id changes, mirroring the teacher's ping-group accumulation
// (PingGroup/appendPingData in ping.go) generalized from "accumulate pings
// sharing a ping number" to "accumulate frames sharing an event_id".
package event

import (
	"errors"

	"github.com/nscl-frib/attpc-merger"
	"github.com/nscl-frib/attpc-merger/graw"
)

// designatedTimestampCobo is the CoBo whose frames carry the FRIB-side
// auxiliary timestamp (Event.TimestampOther); every other CoBo's frames
// contribute the ordinary GET Event.Timestamp.
const designatedTimestampCobo = 10

// fpnChannels are the fixed-pattern-noise channels present on every AGET;
// samples targeting them are discarded before writing.
var fpnChannels = map[uint8]bool{11: true, 22: true, 45: true, 56: true}

// Builder accumulates frames sharing one event_id and flushes an Event
// when the id advances.
type Builder struct {
	channelMap *attpc.ChannelMap

	currentEventID *uint32
	frameStack     []*graw.GrawFrame
}

func NewBuilder(cm *attpc.ChannelMap) *Builder {
	return &Builder{channelMap: cm}
}

// AppendFrame folds frame into the builder's running event. It returns a
// completed Event when frame belongs to a new event_id (nil otherwise), or
// an EventOutOfOrder error if frame's event_id regresses.
func (b *Builder) AppendFrame(frame *graw.GrawFrame) (*attpc.Event, error) {
	if b.currentEventID == nil {
		id := frame.EventID
		b.currentEventID = &id
		b.frameStack = append(b.frameStack, frame)
		return nil, nil
	}

	switch {
	case frame.EventID < *b.currentEventID:
		return nil, &attpc.EventOutOfOrder{Got: frame.EventID, Current: *b.currentEventID}

	case frame.EventID > *b.currentEventID:
		ev, err := b.buildEvent(b.frameStack)
		if err != nil {
			return nil, err
		}
		b.frameStack = b.frameStack[:0]
		id := frame.EventID
		b.currentEventID = &id
		b.frameStack = append(b.frameStack, frame)
		return ev, nil

	default:
		b.frameStack = append(b.frameStack, frame)
		return nil, nil
	}
}

// FlushFinalEvent builds and returns the last partial event, or nil if
// nothing has accumulated.
func (b *Builder) FlushFinalEvent() (*attpc.Event, error) {
	if len(b.frameStack) == 0 {
		return nil, nil
	}
	ev, err := b.buildEvent(b.frameStack)
	if err != nil {
		return nil, err
	}
	b.frameStack = nil
	return ev, nil
}

// buildEvent implements Event::from(frames): every frame must share one
// event_id; each sample is routed through the channel map, with unknown
// addresses and FPN channels silently dropped, and the designated CoBo's
// frames set TimestampOther while every other CoBo sets Timestamp.
func (b *Builder) buildEvent(frames []*graw.GrawFrame) (*attpc.Event, error) {
	if len(frames) == 0 {
		return nil, errors.Join(attpc.ErrEvent, errors.New("cannot build an event from zero frames"))
	}

	eventID := frames[0].EventID
	ev := attpc.NewEvent(eventID)

	for _, frame := range frames {
		if frame.EventID != eventID {
			return nil, errors.Join(attpc.ErrEvent, &attpc.EventOutOfOrder{Got: frame.EventID, Current: eventID})
		}

		if frame.CoboID == designatedTimestampCobo {
			ev.TimestampOther = frame.EventTime
		} else {
			ev.Timestamp = frame.EventTime
		}

		for _, sample := range frame.Samples {
			if fpnChannels[sample.Channel] {
				continue
			}

			addr := attpc.HardwareAddress{
				Cobo:    frame.CoboID,
				Asad:    frame.AsadID,
				Aget:    sample.AgetID,
				Channel: sample.Channel,
			}

			if _, ok := b.channelMap.Lookup(addr.ID()); !ok {
				continue
			}

			trace := ev.TraceFor(addr)
			if int(sample.TimeBucket) < len(trace) {
				trace[sample.TimeBucket] = sample.Amplitude
			}
		}
	}

	return ev, nil
}
