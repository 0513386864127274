// Package graw implements the GET DAQ side of the pipeline: the binary
// .graw frame decoder, the per-(CoBo,AsAd) file stack, and the
// chronological k-way merger across stacks.
//
// The cursor-based header/body decode here follows the same manual
// big-endian bit-math idiom the teacher uses in decode/ping.go's
// SubRecHdr/scale_factors_rec (shift-and-mask a header word, then walk a
// byte cursor across a run of fixed-size sub-records) and the generic
// encoding/binary-only cursor decoder seen in aclements-go-perf's
// perffile/bufdecoder.go.
package graw

import (
	"encoding/binary"
	"fmt"

	"github.com/nscl-frib/attpc-merger"
)

// Frame header layout constants. The header occupies exactly one 256-bit
// (32 byte) unit; headerSizeUnits validates against that.
const (
	metaTypeExpected  = 6
	headerSizeUnits   = 1
	frameHeaderBytes  = 32

	FrameTypeFull    uint16 = 1
	FrameTypePartial uint16 = 2

	itemSizeFull    uint16 = 4
	itemSizePartial uint16 = 2

	maxAget       = 4
	maxChannel    = 68
	maxTimeBucket = 512
)

// Sample is one (aget, channel, time_bucket, amplitude) datum decoded from
// a frame body.
type Sample struct {
	AgetID     uint8
	Channel    uint8
	TimeBucket uint16
	Amplitude  int16
}

// GrawFrame is one validated, fully decoded GET frame.
type GrawFrame struct {
	FrameSize uint32 // 256-bit units, as stored on disk
	EventID   uint32
	EventTime uint64 // low 48 bits used
	CoboID    uint8
	AsadID    uint8
	Samples   []Sample
}

// ByteSize is the on-disk size of the frame in bytes: frame_size × 256 / 8.
func (f GrawFrame) ByteSize() int64 {
	return int64(f.FrameSize) * 32
}

type header struct {
	metaType   uint8
	frameSize  uint32
	frameType  uint16
	headerSize uint16
	itemSize   uint16
	nItems     uint32
	eventID    uint32
	eventTime  uint64
	coboID     uint8
	asadID     uint8
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < frameHeaderBytes {
		return header{}, fmt.Errorf("%w: short header (%d bytes)", attpc.ErrGrawFrame, len(buf))
	}

	var h header
	h.metaType = buf[0]
	h.frameSize = u24be(buf[1:4])
	h.frameType = binary.BigEndian.Uint16(buf[4:6])
	h.headerSize = binary.BigEndian.Uint16(buf[6:8])
	h.itemSize = binary.BigEndian.Uint16(buf[8:10])
	h.nItems = binary.BigEndian.Uint32(buf[10:14])
	h.eventID = binary.BigEndian.Uint32(buf[14:18])
	h.eventTime = u48be(buf[18:24])
	h.coboID = buf[24]
	h.asadID = buf[25]

	if h.metaType != metaTypeExpected {
		return h, &attpc.FrameHeaderError{Kind: attpc.IncorrectMetaType, Got: uint32(h.metaType), Expected: metaTypeExpected}
	}
	if h.headerSize != headerSizeUnits {
		return h, &attpc.FrameHeaderError{Kind: attpc.IncorrectHeaderSize, Got: uint32(h.headerSize), Expected: headerSizeUnits}
	}
	switch h.frameType {
	case FrameTypeFull:
		if h.itemSize != itemSizeFull {
			return h, &attpc.FrameHeaderError{Kind: attpc.IncorrectItemSize, Got: uint32(h.itemSize), Expected: uint32(itemSizeFull)}
		}
	case FrameTypePartial:
		if h.itemSize != itemSizePartial {
			return h, &attpc.FrameHeaderError{Kind: attpc.IncorrectItemSize, Got: uint32(h.itemSize), Expected: uint32(itemSizePartial)}
		}
	default:
		return h, &attpc.FrameHeaderError{Kind: attpc.IncorrectFrameType, Got: uint32(h.frameType)}
	}

	bodyBytes := int64(h.frameSize)*32 - frameHeaderBytes
	expectItems := bodyBytes / int64(h.itemSize)
	// nItems counts items of itemSize bytes for both frame types (for
	// partial frames, 2-byte half-words).
	wantItems := int64(h.nItems)
	if wantItems > expectItems {
		return h, &attpc.FrameHeaderError{Kind: attpc.IncorrectFrameSize, Got: uint32(bodyBytes), Expected: uint32(wantItems * int64(h.itemSize))}
	}

	return h, nil
}

func u24be(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func u48be(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// DecodeFrame decodes and validates one complete on-disk frame buffer
// (header plus body) into a GrawFrame, or returns a typed error.
func DecodeFrame(buf []byte) (*GrawFrame, error) {
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	body := buf[frameHeaderBytes:]
	var samples []Sample

	switch h.frameType {
	case FrameTypeFull:
		samples, err = decodeFullBody(body, int(h.nItems))
	case FrameTypePartial:
		if h.nItems%2 != 0 {
			return nil, fmt.Errorf("%w: partial frame has an odd item count (%d)", attpc.ErrGrawFrame, h.nItems)
		}
		samples, err = decodePartialBody(body, int(h.nItems)/2)
	}
	if err != nil {
		return nil, err
	}

	for _, s := range samples {
		if err := validateSample(s); err != nil {
			return nil, err
		}
	}

	return &GrawFrame{
		FrameSize: h.frameSize,
		EventID:   h.eventID,
		EventTime: h.eventTime & 0xFFFFFFFFFFFF,
		CoboID:    h.coboID,
		AsadID:    h.asadID,
		Samples:   samples,
	}, nil
}

// unpackSample splits the 32-bit big-endian word
// (aget_id:2)|(channel:7)|(time_bucket:9)|(amplitude:12), with the top two
// bits reserved, into its fields and widens the 12-bit amplitude to signed
// 16-bit.
func unpackSample(word uint32) Sample {
	agetID := uint8((word >> 28) & 0x3)
	channel := uint8((word >> 21) & 0x7F)
	timeBucket := uint16((word >> 12) & 0x1FF)
	raw := uint16(word & 0xFFF)

	return Sample{
		AgetID:     agetID,
		Channel:    channel,
		TimeBucket: timeBucket,
		Amplitude:  widen12(raw),
	}
}

// widen12 sign-extends a 12-bit two's-complement value to int16.
func widen12(v uint16) int16 {
	if v&0x800 != 0 {
		return int16(v) - 0x1000
	}
	return int16(v)
}

func decodeFullBody(body []byte, nItems int) ([]Sample, error) {
	need := nItems * 4
	if len(body) < need {
		return nil, fmt.Errorf("%w: full frame body too short", attpc.ErrGrawFrame)
	}
	samples := make([]Sample, nItems)
	for i := 0; i < nItems; i++ {
		word := binary.BigEndian.Uint32(body[i*4 : i*4+4])
		samples[i] = unpackSample(word)
	}
	return samples, nil
}

// decodePartialBody reassembles pairs of 2-byte items into the same 32-bit
// layout the full frame uses.
func decodePartialBody(body []byte, nSamples int) ([]Sample, error) {
	need := nSamples * 4
	if len(body) < need {
		return nil, fmt.Errorf("%w: partial frame body too short", attpc.ErrGrawFrame)
	}
	samples := make([]Sample, nSamples)
	for i := 0; i < nSamples; i++ {
		word := binary.BigEndian.Uint32(body[i*4 : i*4+4])
		samples[i] = unpackSample(word)
	}
	return samples, nil
}

func validateSample(s Sample) error {
	if s.AgetID >= maxAget {
		return &attpc.BadDatum{Kind: attpc.BadDatumAget, Value: int(s.AgetID)}
	}
	if s.Channel >= maxChannel {
		return &attpc.BadDatum{Kind: attpc.BadDatumChannel, Value: int(s.Channel)}
	}
	if s.TimeBucket >= maxTimeBucket {
		return &attpc.BadDatum{Kind: attpc.BadDatumTimeBucket, Value: int(s.TimeBucket)}
	}
	return nil
}
