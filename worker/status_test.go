package worker

import "testing"

func TestProgressTrackerCrossesOnePercentBoundaries(t *testing.T) {
	tr := newProgressTracker(100)

	if _, crossed := tr.step(0, false); crossed {
		t.Error("consuming 0 bytes should not cross a boundary")
	}

	_, crossed := tr.step(1, false)
	if !crossed {
		t.Error("consuming 1/100 should cross the 1% boundary")
	}

	_, crossed = tr.step(1, false)
	if crossed {
		t.Error("repeating the same consumed total should not re-cross a boundary")
	}

	frac, crossed := tr.step(50, false)
	if !crossed {
		t.Error("consuming 50/100 should cross a new boundary")
	}
	if frac != 0.5 {
		t.Errorf("frac = %v, want 0.5", frac)
	}
}

func TestProgressTrackerFinalAlwaysReports(t *testing.T) {
	tr := newProgressTracker(100)
	tr.step(100, false)

	frac, crossed := tr.step(100, true)
	if !crossed || frac != 1.0 {
		t.Errorf("final step = (%v, %v), want (1.0, true)", frac, crossed)
	}
}

func TestProgressTrackerZeroTotal(t *testing.T) {
	tr := newProgressTracker(0)

	if _, crossed := tr.step(0, false); crossed {
		t.Error("zero-total tracker should not cross boundaries on non-final steps")
	}
	frac, crossed := tr.step(0, true)
	if !crossed || frac != 1.0 {
		t.Errorf("final step on zero-total tracker = (%v, %v), want (1.0, true)", frac, crossed)
	}
}
