package worker

import "fmt"

// Phase names the activity a WorkerStatus message reports progress for.
type Phase uint8

const (
	PhaseCopying Phase = iota
	PhaseMerging
)

func (p Phase) String() string {
	switch p {
	case PhaseCopying:
		return "copying"
	case PhaseMerging:
		return "merging"
	default:
		return "unknown"
	}
}

// WorkerStatus is one progress message sent from a worker to the
// non-blocking UI/CLI consumer (spec.md §5). Progress is in [0,1]; a
// message is emitted at the start of each phase (0.0), each time consumed
// bytes cross a 1% boundary of the run's total, and once more at
// completion (1.0).
type WorkerStatus struct {
	Progress  float32
	RunNumber int32
	WorkerID  int
	Phase     Phase
}

func (s WorkerStatus) String() string {
	return fmt.Sprintf("worker %d run %d %s %.0f%%", s.WorkerID, s.RunNumber, s.Phase, s.Progress*100)
}

// progressTracker emits status messages only when consumed bytes cross a
// new 1% boundary of total, so a fast merge doesn't flood the channel.
type progressTracker struct {
	total     int64
	lastBucket int64
}

func newProgressTracker(total int64) *progressTracker {
	return &progressTracker{total: total}
}

// step reports the fraction complete and whether it crossed a new 1%
// boundary since the last call; a final call always reports, with
// fraction 1.0.
func (t *progressTracker) step(consumed int64, final bool) (float32, bool) {
	if t.total <= 0 {
		if final {
			return 1.0, true
		}
		return 0, false
	}

	bucket := (consumed * 100) / t.total
	crossed := bucket > t.lastBucket
	if crossed {
		t.lastBucket = bucket
	}
	frac := float32(consumed) / float32(t.total)
	if final {
		frac = 1.0
		crossed = true
	}
	return frac, crossed
}
