package graw

import (
	"container/heap"
	"errors"

	"github.com/nscl-frib/attpc-merger"
)

// lookaheadEntry is one heap node: the event_id of a stack's next frame and
// the stack's index, mirroring the teacher's "peek, compare, pop" cursor
// discipline (decode/ping.go) but generalized to N independent sources
// ordered by a priority queue instead of one linear cursor.
type lookaheadEntry struct {
	eventID    uint32
	stackIndex int
}

type lookaheadHeap []lookaheadEntry

func (h lookaheadHeap) Len() int            { return len(h) }
func (h lookaheadHeap) Less(i, j int) bool  { return h[i].eventID < h[j].eventID }
func (h lookaheadHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *lookaheadHeap) Push(x interface{}) { *h = append(*h, x.(lookaheadEntry)) }
func (h *lookaheadHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merger presents frames from N AsadStacks in globally non-decreasing
// event_id order via a min-heap over each stack's lookahead event_id
// (spec.md §4.3's k-way merge, no analog anywhere in the retrieval pack —
// built directly on standard library container/heap; see DESIGN.md).
type Merger struct {
	stacks []*AsadStack
	heap   lookaheadHeap

	totalBytes    int64
	consumedBytes int64
}

// NewMerger builds a merger over stacks, priming the heap with one
// lookahead per non-empty stack.
func NewMerger(stacks []*AsadStack) (*Merger, error) {
	m := &Merger{stacks: stacks}
	h := make(lookaheadHeap, 0, len(stacks))

	for i, s := range stacks {
		m.totalBytes += s.TotalBytes()
		frame, err := s.PeekNextFrame()
		if err != nil {
			return nil, err
		}
		if frame != nil {
			h = append(h, lookaheadEntry{eventID: frame.EventID, stackIndex: i})
		}
	}

	heap.Init(&h)
	m.heap = h
	return m, nil
}

// GetNextFrame pops the stack with the smallest lookahead event_id, pops a
// full frame from it, and re-primes the heap with that stack's new
// lookahead (or drops it if the stack is now exhausted). Returns (nil, nil)
// once every stack is drained.
func (m *Merger) GetNextFrame() (*GrawFrame, error) {
	if m.heap.Len() == 0 {
		return nil, nil
	}

	entry := heap.Pop(&m.heap).(lookaheadEntry)
	s := m.stacks[entry.stackIndex]

	frame, err := s.PopNextFrame()
	if err != nil {
		return nil, errors.Join(attpc.ErrMerger, err)
	}
	if frame == nil {
		return nil, errors.Join(attpc.ErrMerger, errors.New("stack reported a lookahead frame but popped nothing"))
	}
	m.consumedBytes = 0
	for _, st := range m.stacks {
		m.consumedBytes += st.BytesConsumed()
	}

	next, err := s.PeekNextFrame()
	if err != nil {
		return nil, err
	}
	if next != nil {
		heap.Push(&m.heap, lookaheadEntry{eventID: next.EventID, stackIndex: entry.stackIndex})
	}

	return frame, nil
}

// TotalDataSizeBytes is the sum of every stack's on-disk byte total, for
// progress accounting.
func (m *Merger) TotalDataSizeBytes() int64 { return m.totalBytes }

// ConsumedBytes is the cumulative bytes consumed across all stacks so far.
func (m *Merger) ConsumedBytes() int64 { return m.consumedBytes }
