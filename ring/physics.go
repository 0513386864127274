package ring

import (
	"encoding/binary"
	"log"
)

// Physics sub-payload tags (spec.md §4.4): the 2-byte little-endian word
// read at the start of each physics sub-record selects which VME module
// decoder runs next.
const (
	tagSIS3300Group1 uint16 = 0x1903
	tagSIS3300Group2 uint16 = 0x1904
	tagSIS3300Group3 uint16 = 0x1905
	tagSIS3316       uint16 = 0x1906
	tagV977          uint16 = 0x0977

	sis3300HeaderWord  uint16 = 0xFADC
	sis3300TrailerWord uint16 = 0xFFFF
	sis3316Terminator  uint16 = 0xFFFF

	sis3300Groups = 4
)

// SIS3300Payload is one SIS3300 flash-ADC module's decoded groups: 4
// groups of 2 channels each (8 traces total). A disabled group is
// zero-filled at the sample length of the most recently decoded enabled
// group (0 if none yet), so every trace in the payload has a consistent
// length for the writer.
type SIS3300Payload struct {
	HasData  bool
	Channels [8][]int16
}

// SIS3316Record is one channel's record from the SIS3316 payload, whose
// samples are stored in order (no circular-buffer unwrapping).
type SIS3316Record struct {
	Channel uint8
	Samples []int16
}

// SIS3316Payload is the full sequence of channel records read until the
// 0xFFFF terminator.
type SIS3316Payload struct {
	HasData bool
	Records []SIS3316Record
}

// V977Payload is a single VME coincidence-register mask.
type V977Payload struct {
	Mask uint16
}

// PhysicsItem decodes a Physics ring item's payload (event:u32,
// timestamp:u32, then a tag-dispatched loop over VME module sub-payloads).
type PhysicsItem struct {
	Event     uint32
	Timestamp uint32
	Fadc1     *SIS3300Payload
	Fadc2     *SIS3300Payload
	Fadc3     *SIS3300Payload
	Fadc4     *SIS3316Payload
	Coinc     *V977Payload
}

func DecodePhysics(payload []byte) (*PhysicsItem, error) {
	c := newCursor(payload)
	event := c.u32le()
	timestamp := c.u32le()
	if c.err != nil {
		return nil, wrapEvtItem(c.err)
	}

	item := &PhysicsItem{Event: event, Timestamp: timestamp}

	for c.remaining() >= 2 {
		tag := c.peekU16le()
		switch tag {
		case tagSIS3300Group1:
			c.skip(2)
			item.Fadc1 = decodeSIS3300(c)
		case tagSIS3300Group2:
			c.skip(2)
			item.Fadc2 = decodeSIS3300(c)
		case tagSIS3300Group3:
			c.skip(2)
			item.Fadc3 = decodeSIS3300(c)
		case tagSIS3316:
			c.skip(2)
			item.Fadc4 = decodeSIS3316(c)
		case tagV977:
			c.skip(2)
			item.Coinc = decodeV977(c)
		default:
			// unknown tag: leave the cursor where it was (only peeked) and stop.
			if c.err != nil {
				return nil, wrapEvtItem(c.err)
			}
			return item, nil
		}
		if c.err != nil {
			return nil, wrapEvtItem(c.err)
		}
	}

	return item, nil
}

func decodeSIS3300(c *cursor) *SIS3300Payload {
	p := &SIS3300Payload{}

	groupEnable := c.u16le()
	c.u32le() // daq_register, unused beyond dispatch

	lastSamples := 0

	for g := 0; g < sis3300Groups; g++ {
		if groupEnable&(1<<uint(g)) == 0 {
			p.Channels[2*g] = make([]int16, lastSamples)
			p.Channels[2*g+1] = make([]int16, lastSamples)
			continue
		}

		header := c.u16le()
		if header != sis3300HeaderWord {
			log.Printf("attpc: sis3300 group %d: bad header word %#x, stopping module", g, header)
			break
		}
		groupTrigger := c.u32le()
		samples := int(c.u32le())
		if c.err != nil {
			break
		}
		lastSamples = samples

		region := c.bytes(samples * 4)
		if c.err != nil {
			break
		}

		even := make([]int16, samples)
		odd := make([]int16, samples)

		writePtr := int(groupTrigger & 0x1FFFF)
		wrapped := groupTrigger&0x80000 != 0

		if wrapped && writePtr < samples-1 {
			tailCount := samples - writePtr - 1
			readPairs(region[(writePtr+1)*4:], tailCount, odd, even)
			headCount := samples - tailCount
			readPairs(region, headCount, odd[tailCount:], even[tailCount:])
		} else {
			readPairs(region, samples, odd, even)
		}

		p.Channels[2*g] = even
		p.Channels[2*g+1] = odd

		trailer := c.u16le()
		if trailer != sis3300TrailerWord {
			log.Printf("attpc: sis3300 group %d: bad trailer word %#x, stopping module", g, trailer)
			break
		}

		p.HasData = true
	}

	return p
}

// readPairs reads count (odd, even) sample pairs from region into dst
// slices, 4 bytes per pair: the first u16 is the odd channel's raw sample,
// the second is the even channel's, both masked to the module's 12-bit
// ADC range.
func readPairs(region []byte, count int, odd, even []int16) {
	for i := 0; i < count; i++ {
		if i*4+4 > len(region) {
			return
		}
		oddRaw := binary.LittleEndian.Uint16(region[i*4:]) & 0xFFF
		evenRaw := binary.LittleEndian.Uint16(region[i*4+2:]) & 0xFFF
		odd[i] = int16(oddRaw)
		even[i] = int16(evenRaw)
	}
}

func decodeSIS3316(c *cursor) *SIS3316Payload {
	p := &SIS3316Payload{}

	for {
		if c.remaining() < 2 {
			break
		}
		if c.peekU16le() == sis3316Terminator {
			c.skip(2)
			break
		}

		chanHdr := c.u16le()
		channel := uint8((chanHdr >> 4) & 0xF)
		c.u32le()  // stamp1
		c.u16le()  // stamp2
		rawSamples := int(c.u16le())
		c.u16le() // status
		if c.err != nil {
			break
		}

		nSamples := rawSamples * 2
		samples := make([]int16, nSamples)
		for i := range samples {
			samples[i] = int16(c.u16le())
		}
		if c.err != nil {
			break
		}

		p.Records = append(p.Records, SIS3316Record{Channel: channel, Samples: samples})
	}

	p.HasData = len(p.Records) > 0
	return p
}

func decodeV977(c *cursor) *V977Payload {
	return &V977Payload{Mask: c.u16le()}
}
