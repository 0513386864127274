package attpc

import "fmt"

// HardwareAddress is the quadruple (CoBo, AsAd, AGET, channel) that uniquely
// identifies one electronics channel on the pad plane or auxiliary silicon
// detectors.
type HardwareAddress struct {
	Cobo    uint8
	Asad    uint8
	Aget    uint8
	Channel uint8
}

// ID derives the stable 64-bit key used to index the ChannelMap. The
// encoding packs the quadruple into decimal digit groups so that the key
// remains human-readable when printed or logged.
func (h HardwareAddress) ID() uint64 {
	return uint64(h.Channel) + uint64(h.Aget)*100 + uint64(h.Asad)*10_000 + uint64(h.Cobo)*1_000_000
}

func (h HardwareAddress) String() string {
	return fmt.Sprintf("cobo=%d asad=%d aget=%d channel=%d", h.Cobo, h.Asad, h.Aget, h.Channel)
}

// DetectorKind tags the variant held by a DetectorElement.
type DetectorKind uint8

const (
	DetectorPad DetectorKind = iota
	DetectorSiliconUpstreamFront
	DetectorSiliconUpstreamBack
	DetectorSiliconDownstreamFront
	DetectorSiliconDownstreamBack
)

// detectorKindNames mirrors the channel map CSV's detector_keyword column.
// Its inverse, detectorKindKeywords, backs Keyword(), which the writer uses
// to name its per-detector-group datasets.
var detectorKindNames = map[string]DetectorKind{
	"pad":                    DetectorPad,
	"si_upstream_front":      DetectorSiliconUpstreamFront,
	"si_upstream_back":       DetectorSiliconUpstreamBack,
	"si_downstream_front":    DetectorSiliconDownstreamFront,
	"si_downstream_back":     DetectorSiliconDownstreamBack,
}

var detectorKindKeywords = map[DetectorKind]string{
	DetectorPad:                    "pad",
	DetectorSiliconUpstreamFront:   "si_upstream_front",
	DetectorSiliconUpstreamBack:    "si_upstream_back",
	DetectorSiliconDownstreamFront: "si_downstream_front",
	DetectorSiliconDownstreamBack:  "si_downstream_back",
}

// AllDetectorKinds is the fixed, closed set of detector groups spec.md §4.7
// requires one dataset per event for, whether or not that event hit any
// channel in the group.
var AllDetectorKinds = []DetectorKind{
	DetectorPad,
	DetectorSiliconUpstreamFront,
	DetectorSiliconUpstreamBack,
	DetectorSiliconDownstreamFront,
	DetectorSiliconDownstreamBack,
}

// Keyword returns the CSV detector_keyword string for the kind.
func (k DetectorKind) Keyword() string {
	return detectorKindKeywords[k]
}

// IsSilicon reports whether the kind is one of the four silicon variants.
func (k DetectorKind) IsSilicon() bool {
	return k != DetectorPad
}

// DetectorElement is the tagged variant describing which physical sensor
// element a hardware address has been wired to. Kind selects which of the
// two fields (ID for pads, Channel for silicon) is meaningful.
type DetectorElement struct {
	Kind    DetectorKind
	ID      int    // populated when Kind == DetectorPad
	Channel int    // populated for silicon kinds
}

func (d DetectorElement) String() string {
	if d.Kind == DetectorPad {
		return fmt.Sprintf("Pad(%d)", d.ID)
	}
	return fmt.Sprintf("%s(%d)", d.Kind.Keyword(), d.Channel)
}
