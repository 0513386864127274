package ring

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nscl-frib/attpc-merger"
)

// RingType enumerates the FRIB ring-item variants this pipeline dispatches
// on (spec.md §3/§4.4). Values follow the NSCLDAQ ring-item type codes the
// .evt format is built on.
type RingType uint32

const (
	RingBeginRun RingType = 1
	RingEndRun   RingType = 2
	RingDummy    RingType = 12
	RingScalers  RingType = 20
	RingPhysics  RingType = 30
	RingCounter  RingType = 31
	RingInvalid  RingType = 0
)

func (t RingType) String() string {
	switch t {
	case RingBeginRun:
		return "BeginRun"
	case RingEndRun:
		return "EndRun"
	case RingDummy:
		return "Dummy"
	case RingScalers:
		return "Scalers"
	case RingPhysics:
		return "Physics"
	case RingCounter:
		return "Counter"
	default:
		return "Invalid"
	}
}

// bodyHeaderMarker is the body-header-size sentinel at offset 8: when the
// byte there equals this value, the item carries a 20-byte body header and
// the payload starts after a 28-byte prefix; otherwise it starts after a
// plain 12-byte item header.
const (
	bodyHeaderMarker    = 20
	prefixWithBodyHdr   = 28
	prefixWithoutBodyHdr = 12
)

// RingItem is one raw, framed FRIB record: its type tag and trimmed
// payload bytes, with the length prefix, type word, and optional body
// header already stripped.
type RingItem struct {
	Type    RingType
	Payload []byte
}

// ReadRingItem parses one ring item starting at the beginning of buf. It
// returns the item and the number of bytes the item occupied in buf (its
// length-prefix value), so a caller streaming a file can advance past it.
func ReadRingItem(buf []byte) (*RingItem, int, error) {
	if len(buf) < 12 {
		return nil, 0, fmt.Errorf("%w: ring item shorter than fixed header", attpc.ErrEvtItem)
	}

	length := binary.LittleEndian.Uint32(buf[0:4])
	if int(length) > len(buf) {
		return nil, 0, fmt.Errorf("%w: ring item claims %d bytes, only %d available", attpc.ErrEvtItem, length, len(buf))
	}
	typeTag := RingType(binary.LittleEndian.Uint32(buf[4:8]))

	prefix := prefixWithoutBodyHdr
	if buf[8] == bodyHeaderMarker {
		prefix = prefixWithBodyHdr
	}
	if int(length) < prefix {
		return nil, 0, fmt.Errorf("%w: ring item length %d shorter than its own prefix %d", attpc.ErrEvtItem, length, prefix)
	}

	payload := make([]byte, int(length)-prefix)
	copy(payload, buf[prefix:length])

	return &RingItem{Type: typeTag, Payload: payload}, int(length), nil
}

// RemoveBoundaries strips VME-USB buffer-boundary length tags from a
// physics payload, returning the logical sample stream with the tag bytes
// removed as a new slice (payload itself is not modified). At each
// position p it reads a little-endian u16, masks the top nibble off
// (wlen = tag & 0xFFF), drops the 2 tag bytes,
// and advances by wlen*2 bytes of real payload; it repeats until the
// cursor reaches the end. A payload with no real boundaries (one tag
// covering the whole remainder) is therefore a no-op on the logical sample
// sequence (spec.md §8 invariant 5).
func RemoveBoundaries(payload []byte) ([]byte, error) {
	var out []byte
	p := 0
	for p < len(payload) {
		if p+2 > len(payload) {
			return nil, errors.Join(attpc.ErrEvtItem, errors.New("truncated VME boundary tag"))
		}
		wlen := int(binary.LittleEndian.Uint16(payload[p:p+2])) & 0xFFF
		p += 2
		chunkBytes := wlen * 2
		if p+chunkBytes > len(payload) {
			return nil, errors.Join(attpc.ErrEvtItem, errors.New("VME boundary chunk runs past payload end"))
		}
		out = append(out, payload[p:p+chunkBytes]...)
		p += chunkBytes
	}
	return out, nil
}
