// Package worker implements the concurrency and progress-reporting model:
// round-robin partitioning of the configured run range across n_threads
// workers, a pond-backed worker pool (grounded on the teacher's
// cmd/main.go convert_gsf_list), and the WorkerStatus progress channel
// spec.md §5 requires.
package worker

import (
	"github.com/samber/lo"
)

// PartitionRuns splits [first, last] (inclusive) into nThreads disjoint,
// round-robin subsets: run i goes to worker i mod nThreads. The result
// satisfies spec.md §8 invariant 6: the union is the whole range, subsets
// are disjoint, and no two subset sizes differ by more than one.
func PartitionRuns(first, last, nThreads int32) [][]int32 {
	partitions := make([][]int32, nThreads)
	if last < first {
		return partitions
	}

	runs := lo.RangeFrom(first, int(last-first+1))
	for i, run := range runs {
		idx := i % int(nThreads)
		partitions[idx] = append(partitions[idx], run)
	}
	return partitions
}
