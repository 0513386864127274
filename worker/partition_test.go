package worker

import "testing"

// TestPartitionRunsScenario is S6 from spec.md §8: n_threads=3, first=0,
// last=6 partitions into {[0,3,6],[1,4],[2,5]}.
func TestPartitionRunsScenario(t *testing.T) {
	got := PartitionRuns(0, 6, 3)
	want := [][]int32{{0, 3, 6}, {1, 4}, {2, 5}}

	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("partition %d = %v, want %v", i, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("partition %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

func TestPartitionRunsEmptyRange(t *testing.T) {
	got := PartitionRuns(10, 9, 3)
	for i, p := range got {
		if len(p) != 0 {
			t.Errorf("partition %d = %v, want empty", i, p)
		}
	}
}

// TestPartitionRunsInvariants is invariant 6 from spec.md §8: the union of
// all partitions is the whole range, partitions are disjoint, and no two
// partition sizes differ by more than one.
func TestPartitionRunsInvariants(t *testing.T) {
	const first, last, nThreads = 5, 23, 4
	got := PartitionRuns(first, last, nThreads)

	seen := make(map[int32]bool)
	minLen, maxLen := -1, -1
	for _, p := range got {
		if minLen == -1 || len(p) < minLen {
			minLen = len(p)
		}
		if len(p) > maxLen {
			maxLen = len(p)
		}
		for _, run := range p {
			if seen[run] {
				t.Fatalf("run %d assigned to more than one partition", run)
			}
			seen[run] = true
		}
	}
	if maxLen-minLen > 1 {
		t.Errorf("partition sizes differ by more than 1: min=%d max=%d", minLen, maxLen)
	}
	for run := int32(first); run <= last; run++ {
		if !seen[run] {
			t.Errorf("run %d missing from any partition", run)
		}
	}
	if len(seen) != int(last-first+1) {
		t.Errorf("total assigned runs = %d, want %d", len(seen), last-first+1)
	}
}

func TestPartitionRunsSingleThread(t *testing.T) {
	got := PartitionRuns(0, 4, 1)
	if len(got) != 1 || len(got[0]) != 5 {
		t.Fatalf("got %v, want one partition of 5 runs", got)
	}
}
