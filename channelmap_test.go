package attpc

import (
	"errors"
	"strings"
	"testing"
)

func TestParseChannelMapLegacyFiveColumn(t *testing.T) {
	csv := "cobo,asad,aget,channel,detector_keyword\n" +
		"0,0,0,0,pad\n" +
		"0,0,0,1,pad\n" +
		"10,0,0,0,si_upstream_front\n"

	cm, err := parseChannelMap(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parseChannelMap: %v", err)
	}
	if cm.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", cm.Len())
	}

	addr := HardwareAddress{Cobo: 0, Asad: 0, Aget: 0, Channel: 1}
	entry, ok := cm.Lookup(addr.ID())
	if !ok {
		t.Fatalf("lookup miss for %+v", addr)
	}
	if entry.Detector.Kind != DetectorPad || entry.Detector.ID != 1 {
		t.Errorf("entry.Detector = %+v, want pad id 1 (implicit ordinal)", entry.Detector)
	}
}

func TestParseChannelMapSevenColumn(t *testing.T) {
	csv := "cobo,asad,aget,channel,detector_keyword,detector_channel,extra\n" +
		"1,2,3,4,si_downstream_back,7,legacy\n"

	cm, err := parseChannelMap(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parseChannelMap: %v", err)
	}

	addr := HardwareAddress{Cobo: 1, Asad: 2, Aget: 3, Channel: 4}
	entry, ok := cm.Lookup(addr.ID())
	if !ok {
		t.Fatalf("lookup miss for %+v", addr)
	}
	if entry.Detector.Kind != DetectorSiliconDownstreamBack || entry.Detector.Channel != 7 {
		t.Errorf("entry.Detector = %+v, want si_downstream_back channel 7", entry.Detector)
	}
	if entry.Address != addr {
		t.Errorf("entry.Address = %+v, want %+v", entry.Address, addr)
	}
}

func TestParseChannelMapBadColumnCount(t *testing.T) {
	csv := "cobo,asad,aget,channel,detector_keyword,detector_channel\n" +
		"0,0,0,0,pad,0\n" // 6 values: neither the 5- nor the 7-column schema

	_, err := parseChannelMap(strings.NewReader(csv))
	if err == nil {
		t.Fatal("expected BadFileFormat, got nil")
	}
	var bad *BadFileFormat
	if !errors.As(err, &bad) {
		t.Fatalf("error %v is not a BadFileFormat", err)
	}
	if bad.Columns != 6 {
		t.Errorf("bad.Columns = %d, want 6", bad.Columns)
	}
}

func TestParseChannelMapRoundTrip(t *testing.T) {
	// spec.md §8 invariant 3: every CSV row round-trips through
	// HardwareAddress.ID() to an entry whose detector matches the row.
	csv := "cobo,asad,aget,channel,detector_keyword,detector_channel,extra\n" +
		"2,1,0,5,pad,99,\n" +
		"2,1,1,6,si_upstream_back,3,\n"

	cm, err := parseChannelMap(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parseChannelMap: %v", err)
	}

	want := []struct {
		addr HardwareAddress
		kind DetectorKind
		id   int
	}{
		{HardwareAddress{Cobo: 2, Asad: 1, Aget: 0, Channel: 5}, DetectorPad, 99},
		{HardwareAddress{Cobo: 2, Asad: 1, Aget: 1, Channel: 6}, DetectorSiliconUpstreamBack, 3},
	}

	for _, w := range want {
		entry, ok := cm.Lookup(w.addr.ID())
		if !ok {
			t.Fatalf("lookup miss for %+v", w.addr)
		}
		if entry.Detector.Kind != w.kind {
			t.Errorf("Kind = %v, want %v", entry.Detector.Kind, w.kind)
		}
		gotID := entry.Detector.ID
		if w.kind != DetectorPad {
			gotID = entry.Detector.Channel
		}
		if gotID != w.id {
			t.Errorf("id = %d, want %d", gotID, w.id)
		}
	}
}

func TestDefaultChannelMapParses(t *testing.T) {
	cm, err := DefaultChannelMap()
	if err != nil {
		t.Fatalf("DefaultChannelMap: %v", err)
	}
	if cm.Len() == 0 {
		t.Error("bundled default channel map is empty")
	}
}
