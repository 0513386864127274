package attpc

import "testing"

func TestRunExtentObserve(t *testing.T) {
	var extent RunExtent

	e1 := NewEvent(5)
	e1.Timestamp = 100
	extent.Observe(e1)

	e2 := NewEvent(2)
	e2.Timestamp = 50
	extent.Observe(e2)

	e3 := NewEvent(9)
	e3.Timestamp = 200
	extent.Observe(e3)

	if extent.MinEvent != 2 || extent.MaxEvent != 9 {
		t.Errorf("event extent = [%d,%d], want [2,9]", extent.MinEvent, extent.MaxEvent)
	}
	if extent.MinTS != 50 || extent.MaxTS != 200 {
		t.Errorf("ts extent = [%d,%d], want [50,200]", extent.MinTS, extent.MaxTS)
	}
}

func TestEventTraceForAllocatesOnce(t *testing.T) {
	ev := NewEvent(1)
	addr := HardwareAddress{Cobo: 0, Asad: 0, Aget: 0, Channel: 1}

	t1 := ev.TraceFor(addr)
	t1[0] = 42

	t2 := ev.TraceFor(addr)
	if t2[0] != 42 {
		t.Error("TraceFor allocated a second trace for the same address")
	}
	if len(ev.Traces) != 1 {
		t.Errorf("len(Traces) = %d, want 1", len(ev.Traces))
	}
}
