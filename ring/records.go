package ring

import (
	"errors"

	"github.com/nscl-frib/attpc-merger"
)

// BeginRunItem decodes a BeginRun payload: run:u32, _:u32, start:u32,
// _:u32, title:NUL-string.
type BeginRunItem struct {
	Run       uint32
	StartTime uint32
	Title     string
}

func DecodeBeginRun(payload []byte) (*BeginRunItem, error) {
	c := newCursor(payload)
	run := c.u32le()
	c.skip(4)
	start := c.u32le()
	c.skip(4)
	title := c.cstring()
	if c.err != nil {
		return nil, wrapEvtItem(c.err)
	}
	return &BeginRunItem{Run: run, StartTime: start, Title: title}, nil
}

// EndRunItem decodes an EndRun payload: stop:u32, time:u32.
type EndRunItem struct {
	StopTime    uint32
	ElapsedTime uint32
}

func DecodeEndRun(payload []byte) (*EndRunItem, error) {
	c := newCursor(payload)
	stop := c.u32le()
	elapsed := c.u32le()
	if c.err != nil {
		return nil, wrapEvtItem(c.err)
	}
	return &EndRunItem{StopTime: stop, ElapsedTime: elapsed}, nil
}

// ScalersItem decodes a Scalers payload: start_offset:u32, stop_offset:u32,
// timestamp:u32, _:u32, count:u32, incremental:u32, data:[u32;count].
type ScalersItem struct {
	StartOffset uint32
	StopOffset  uint32
	Timestamp   uint32
	Incremental bool
	Data        []uint32
}

func DecodeScalers(payload []byte) (*ScalersItem, error) {
	c := newCursor(payload)
	start := c.u32le()
	stop := c.u32le()
	ts := c.u32le()
	c.skip(4)
	count := c.u32le()
	incremental := c.u32le()
	if c.err != nil {
		return nil, wrapEvtItem(c.err)
	}

	data := make([]uint32, count)
	for i := range data {
		data[i] = c.u32le()
	}
	if c.err != nil {
		return nil, wrapEvtItem(c.err)
	}

	return &ScalersItem{
		StartOffset: start,
		StopOffset:  stop,
		Timestamp:   ts,
		Incremental: incremental != 0,
		Data:        data,
	}, nil
}

// CounterItem decodes a Counter payload: an u64 count at offset 12.
type CounterItem struct {
	Count uint64
}

func DecodeCounter(payload []byte) (*CounterItem, error) {
	c := newCursor(payload)
	c.skip(12)
	count := c.u64le()
	if c.err != nil {
		return nil, wrapEvtItem(c.err)
	}
	return &CounterItem{Count: count}, nil
}

func wrapEvtItem(err error) error {
	return errors.Join(attpc.ErrEvtItem, err)
}
