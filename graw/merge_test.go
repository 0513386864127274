package graw

import (
	"os"
	"path/filepath"
	"testing"
)

// writeFrameFile concatenates a run of single-sample frames (one per
// event id) into one file and returns its path.
func writeFrameFile(t *testing.T, dir, name string, cobo, asad uint8, eventIDs []uint32) string {
	t.Helper()
	var buf []byte
	for i, id := range eventIDs {
		word := packSample(0, uint8(i%64), uint16(i), 0)
		buf = append(buf, buildFrame(id, cobo, asad, []uint32{word})...)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestMergerNonDecreasing is scenario S3 from spec.md §8: stream A carries
// event ids [1,2,4], stream B carries [1,3,3,5]; the merged sequence must
// be non-decreasing and a permutation of all seven ids.
func TestMergerNonDecreasing(t *testing.T) {
	dir := t.TempDir()
	pathA := writeFrameFile(t, dir, "a.graw", 0, 0, []uint32{1, 2, 4})
	pathB := writeFrameFile(t, dir, "b.graw", 1, 0, []uint32{1, 3, 3, 5})

	stackA, err := NewAsadStackFiles(0, 0, []string{pathA})
	if err != nil {
		t.Fatalf("stack A: %v", err)
	}
	stackB, err := NewAsadStackFiles(1, 0, []string{pathB})
	if err != nil {
		t.Fatalf("stack B: %v", err)
	}

	merger, err := NewMerger([]*AsadStack{stackA, stackB})
	if err != nil {
		t.Fatalf("NewMerger: %v", err)
	}

	var got []uint32
	for {
		frame, err := merger.GetNextFrame()
		if err != nil {
			t.Fatalf("GetNextFrame: %v", err)
		}
		if frame == nil {
			break
		}
		got = append(got, frame.EventID)
	}

	want := []uint32{1, 1, 2, 3, 3, 4, 5} // both streams' ids sorted, regardless of interleaving
	sortedGot := append([]uint32(nil), got...)
	for i := 0; i < len(sortedGot); i++ {
		for j := i + 1; j < len(sortedGot); j++ {
			if sortedGot[j] < sortedGot[i] {
				sortedGot[i], sortedGot[j] = sortedGot[j], sortedGot[i]
			}
		}
	}
	if len(sortedGot) != len(want) {
		t.Fatalf("got %d frames, want %d", len(sortedGot), len(want))
	}
	for i := range want {
		if sortedGot[i] != want[i] {
			t.Fatalf("sorted output = %v, want %v", sortedGot, want)
		}
	}

	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("merger output not non-decreasing at index %d: %v", i, got)
		}
	}
}

func TestMergerEmpty(t *testing.T) {
	merger, err := NewMerger(nil)
	if err != nil {
		t.Fatalf("NewMerger(nil): %v", err)
	}
	frame, err := merger.GetNextFrame()
	if err != nil || frame != nil {
		t.Fatalf("GetNextFrame on empty merger = (%v, %v), want (nil, nil)", frame, err)
	}
}
