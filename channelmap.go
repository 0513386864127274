package attpc

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// defaultChannelMapCSV is the bundled channel map used when
// Config.ChannelMapPath is empty (spec.md §6: "Null -> bundled default").
//
//go:embed default_channel_map.csv
var defaultChannelMapCSV string

// ChannelMapEntry pairs a decoded HardwareAddress with the detector element
// it has been wired to.
type ChannelMapEntry struct {
	Address  HardwareAddress
	Detector DetectorElement
}

// ChannelMap is the immutable, per-worker mapping from a hardware ID
// (HardwareAddress.ID()) to its wiring. It is built once per worker and
// shared read-only for the lifetime of the run.
type ChannelMap struct {
	entries map[uint64]ChannelMapEntry
}

// Lookup returns the wiring for a hardware ID, or ok=false on a miss. A
// miss is not an error: the caller silently drops the sample.
func (m *ChannelMap) Lookup(id uint64) (ChannelMapEntry, bool) {
	e, ok := m.entries[id]
	return e, ok
}

// Len reports the number of populated hardware addresses.
func (m *ChannelMap) Len() int { return len(m.entries) }

// perKeywordCounters tracks the running per-detector-keyword row ordinal
// used to assign silicon/pad channel numbers under the 5-column legacy CSV
// schema, where no explicit detector_channel column is present.
type perKeywordCounters map[string]int

// LoadChannelMap reads a channel map CSV with a header row followed by rows
// of either the 5-column legacy schema (cobo,asad,aget,channel,
// detector_keyword) or the 7-column schema (cobo,asad,aget,channel,
// detector_keyword,detector_channel,extra). Any other row width fails with
// BadFileFormat.
func LoadChannelMap(path string) (*ChannelMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrGetChannelMap, err)
	}
	defer f.Close()

	return parseChannelMap(f)
}

// LoadChannelMapOrDefault loads the CSV at path, or the bundled default
// channel map when path is empty (spec.md §6).
func LoadChannelMapOrDefault(path string) (*ChannelMap, error) {
	if path == "" {
		return DefaultChannelMap()
	}
	return LoadChannelMap(path)
}

// DefaultChannelMap parses the bundled default channel map.
func DefaultChannelMap() (*ChannelMap, error) {
	return parseChannelMap(strings.NewReader(defaultChannelMapCSV))
}

func parseChannelMap(r io.Reader) (*ChannelMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows vary between 5 and 7 columns
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Join(ErrGetChannelMap, err)
	}
	if len(rows) < 1 {
		return nil, errors.Join(ErrGetChannelMap, errors.New("channel map is empty"))
	}

	cm := &ChannelMap{entries: make(map[uint64]ChannelMapEntry, len(rows)-1)}
	counters := make(perKeywordCounters)

	for _, row := range rows[1:] { // skip header
		if len(row) != 5 && len(row) != 7 {
			return nil, errors.Join(ErrGetChannelMap, &BadFileFormat{Columns: len(row)})
		}

		addr, err := parseHardwareAddress(row)
		if err != nil {
			return nil, errors.Join(ErrGetChannelMap, err)
		}

		keyword := row[4]
		kind, ok := detectorKindNames[keyword]
		if !ok {
			return nil, errors.Join(ErrGetChannelMap, fmt.Errorf("unknown detector keyword %q", keyword))
		}

		var det DetectorElement
		det.Kind = kind

		switch len(row) {
		case 7:
			detChannel, err := strconv.Atoi(row[5])
			if err != nil {
				return nil, errors.Join(ErrGetChannelMap, err)
			}
			if kind == DetectorPad {
				det.ID = detChannel
			} else {
				det.Channel = detChannel
			}
		case 5:
			// legacy schema: implicit per-keyword channel numbering.
			n := counters[keyword]
			if kind == DetectorPad {
				det.ID = n
			} else {
				det.Channel = n
			}
			counters[keyword] = n + 1
		}

		cm.entries[addr.ID()] = ChannelMapEntry{Address: addr, Detector: det}
	}

	return cm, nil
}

func parseHardwareAddress(row []string) (HardwareAddress, error) {
	var vals [4]uint8
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseUint(row[i], 10, 8)
		if err != nil {
			return HardwareAddress{}, fmt.Errorf("column %d: %w", i, err)
		}
		vals[i] = uint8(v)
	}
	return HardwareAddress{Cobo: vals[0], Asad: vals[1], Aget: vals[2], Channel: vals[3]}, nil
}
