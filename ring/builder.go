package ring

import (
	"errors"
	"log"

	"github.com/nscl-frib/attpc-merger"
)

// RunInfo bundles the begin/end-of-run records a Builder accumulates while
// it drains an EvtFileStack.
type RunInfo struct {
	Begin *BeginRunItem
	End   *EndRunItem
}

// FribWriter is the narrow surface the FRIB builder needs from the
// hierarchical writer. It is declared here, not in the writer package, so
// that writer can depend on ring's decoded types without ring needing to
// import writer back.
type FribWriter interface {
	WriteScalers(item *ScalersItem, counter int) error
	WritePhysics(item *PhysicsItem, counter int) error
	WriteRunInfo(info RunInfo) error
}

// Builder dispatches ring items popped from an EvtFileStack to a
// FribWriter, tracking RunInfo and the scaler/event counters (spec.md
// §4.5), mirroring the teacher's GsfFile.Info() dispatch-by-record-type
// switch in file.go.
type Builder struct {
	stack  *EvtFileStack
	writer FribWriter

	RunInfo RunInfo

	scalerCounter int
	eventCounter  int
}

func NewBuilder(stack *EvtFileStack, writer FribWriter) *Builder {
	return &Builder{stack: stack, writer: writer}
}

// Run drains the stack, dispatching each ring item, until an EndRun item
// terminates the run or the stack is exhausted.
func (b *Builder) Run() error {
	for {
		item, err := b.stack.PopNextItem()
		if err != nil {
			return errors.Join(attpc.ErrFribBuilder, err)
		}
		if item == nil {
			return nil
		}

		switch item.Type {
		case RingBeginRun:
			begin, err := DecodeBeginRun(item.Payload)
			if err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			b.RunInfo.Begin = begin

		case RingEndRun:
			end, err := DecodeEndRun(item.Payload)
			if err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			b.RunInfo.End = end
			if err := b.writer.WriteRunInfo(b.RunInfo); err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			return nil

		case RingScalers:
			scalers, err := DecodeScalers(item.Payload)
			if err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			if err := b.writer.WriteScalers(scalers, b.scalerCounter); err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			b.scalerCounter++

		case RingPhysics:
			cleaned, err := RemoveBoundaries(item.Payload)
			if err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			physics, err := DecodePhysics(cleaned)
			if err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			if err := b.writer.WritePhysics(physics, b.eventCounter); err != nil {
				return errors.Join(attpc.ErrFribBuilder, err)
			}
			b.eventCounter++

		case RingDummy, RingCounter:
			// ignored by design

		default:
			log.Printf("attpc: unrecognized ring item type %d, skipping", item.Type)
		}
	}
}
