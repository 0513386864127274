package ring

import (
	"encoding/binary"
	"testing"
)

func appendU16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return append(buf, b...)
}

func appendU32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return append(buf, b...)
}

// TestDecodePhysicsV977 is grounded in the S5 scenario from spec.md §8:
// events/event_0/frib_physics/977 == [0xBEEF].
func TestDecodePhysicsV977(t *testing.T) {
	var buf []byte
	buf = appendU32(buf, 9)    // event
	buf = appendU32(buf, 123) // timestamp
	buf = appendU16(buf, tagV977)
	buf = appendU16(buf, 0xBEEF)

	item, err := DecodePhysics(buf)
	if err != nil {
		t.Fatalf("DecodePhysics: %v", err)
	}
	if item.Event != 9 || item.Timestamp != 123 {
		t.Errorf("got Event=%d Timestamp=%d, want 9/123", item.Event, item.Timestamp)
	}
	if item.Coinc == nil || item.Coinc.Mask != 0xBEEF {
		t.Fatalf("Coinc = %+v, want Mask=0xBEEF", item.Coinc)
	}
}

func TestDecodePhysicsUnknownTagStops(t *testing.T) {
	var buf []byte
	buf = appendU32(buf, 1)
	buf = appendU32(buf, 2)
	buf = appendU16(buf, 0xDEAD) // not a recognized module tag

	item, err := DecodePhysics(buf)
	if err != nil {
		t.Fatalf("DecodePhysics: %v", err)
	}
	if item.Fadc1 != nil || item.Fadc2 != nil || item.Fadc3 != nil || item.Fadc4 != nil || item.Coinc != nil {
		t.Errorf("expected no sub-payloads decoded for unknown tag, got %+v", item)
	}
}

func TestDecodeSIS3300OneGroupEnabled(t *testing.T) {
	var buf []byte
	buf = appendU16(buf, 0x0001) // group 0 enabled only
	buf = appendU32(buf, 0)      // daq_register

	buf = appendU16(buf, sis3300HeaderWord)
	buf = appendU32(buf, 0) // group_trigger: writePtr=0, not wrapped
	buf = appendU32(buf, 1) // 1 sample
	// one (odd, even) pair, 4 bytes
	buf = appendU16(buf, 0x0AB)
	buf = appendU16(buf, 0x0CD)
	buf = appendU16(buf, sis3300TrailerWord)

	c := newCursor(buf)
	p := decodeSIS3300(c)
	if c.err != nil {
		t.Fatalf("decodeSIS3300: %v", c.err)
	}
	if !p.HasData {
		t.Error("HasData = false, want true")
	}
	if len(p.Channels[0]) != 1 || p.Channels[0][0] != 0x0CD {
		t.Errorf("Channels[0] (even) = %v, want [0xCD]", p.Channels[0])
	}
	if len(p.Channels[1]) != 1 || p.Channels[1][0] != 0x0AB {
		t.Errorf("Channels[1] (odd) = %v, want [0xAB]", p.Channels[1])
	}
	// group 1 disabled: zero-filled at the same sample length as group 0.
	if len(p.Channels[2]) != 1 || len(p.Channels[3]) != 1 {
		t.Errorf("disabled group channels not zero-filled to lastSamples: %v %v", p.Channels[2], p.Channels[3])
	}
}

func TestDecodeSIS3300BadHeaderStopsModule(t *testing.T) {
	var buf []byte
	buf = appendU16(buf, 0x0001)
	buf = appendU32(buf, 0)
	buf = appendU16(buf, 0x0000) // wrong header word

	c := newCursor(buf)
	p := decodeSIS3300(c)
	if p.Channels[0] != nil {
		t.Errorf("expected no samples decoded after bad header, got %v", p.Channels[0])
	}
	if p.HasData {
		t.Errorf("expected HasData false when the only enabled group fails to decode, got true")
	}
}

func TestDecodeSIS3316RecordsUntilTerminator(t *testing.T) {
	var buf []byte
	chanHdr := uint16(3) << 4 // channel 3
	buf = appendU16(buf, chanHdr)
	buf = appendU32(buf, 0)      // stamp1
	buf = appendU16(buf, 0)      // stamp2
	buf = appendU16(buf, 1)      // rawSamples -> nSamples = 2
	buf = appendU16(buf, 0)      // status
	buf = appendU16(buf, 0x1111) // sample 0
	buf = appendU16(buf, 0x2222) // sample 1
	buf = appendU16(buf, sis3316Terminator)

	c := newCursor(buf)
	p := decodeSIS3316(c)
	if c.err != nil {
		t.Fatalf("decodeSIS3316: %v", c.err)
	}
	if !p.HasData || len(p.Records) != 1 {
		t.Fatalf("got %+v, want one record", p)
	}
	rec := p.Records[0]
	if rec.Channel != 3 {
		t.Errorf("Channel = %d, want 3", rec.Channel)
	}
	if len(rec.Samples) != 2 || rec.Samples[0] != 0x1111 || rec.Samples[1] != 0x2222 {
		t.Errorf("Samples = %v, want [0x1111 0x2222]", rec.Samples)
	}
}

func TestDecodeSIS3316EmptyIsNoData(t *testing.T) {
	var buf []byte
	buf = appendU16(buf, sis3316Terminator)

	c := newCursor(buf)
	p := decodeSIS3316(c)
	if p.HasData {
		t.Error("HasData = true, want false for an immediately-terminated payload")
	}
}
