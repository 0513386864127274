package worker

import (
	"context"
	"errors"
	"log"

	"github.com/alitto/pond"

	"github.com/nscl-frib/attpc-merger"
	"github.com/nscl-frib/attpc-merger/event"
	"github.com/nscl-frib/attpc-merger/ring"
	"github.com/nscl-frib/attpc-merger/search"
	"github.com/nscl-frib/attpc-merger/writer"
)

// NewWriter is overridable so tests can substitute an in-memory Writer
// without pulling in a real TileDB backend.
var NewWriter = func(hdfPath string, run int32) (writer.Writer, error) {
	return writer.NewTileDBWriter(hdfPath, run)
}

// Run partitions cfg's run range across cfg.NThreads workers and merges
// each run sequentially within its owning worker, exactly as spec.md §5
// describes: workers don't share mutable state, each loads its own
// ChannelMap, and every worker pushes WorkerStatus messages onto statusCh
// as it progresses. statusCh is closed once every worker has finished.
//
// Grounded on the teacher's convert_gsf_list: a pond pool sized to the
// configured worker count, submitting one task per partition, driven by a
// cancellable context exactly like cmd/main.go's
// signal.NotifyContext(context.Background(), os.Interrupt).
func Run(ctx context.Context, cfg *attpc.Config, statusCh chan<- WorkerStatus) {
	partitions := PartitionRuns(cfg.FirstRunNumber, cfg.LastRunNumber, cfg.NThreads)

	n := int(cfg.NThreads)
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))

	for i, runs := range partitions {
		workerID := i
		assigned := runs
		pool.Submit(func() {
			runWorker(ctx, cfg, workerID, assigned, statusCh)
		})
	}

	pool.StopAndWait()
	close(statusCh)
}

// runWorker loads one channel map and processes every run in assigned
// sequentially, continuing past a failed run (spec.md §7: "Worker
// failures surface to the driver ... and continues other workers" —
// generalized here to one run not stopping the rest of a worker's own
// queue, since a fatal per-run error shouldn't abandon the other runs
// this worker alone is responsible for).
func runWorker(ctx context.Context, cfg *attpc.Config, workerID int, assigned []int32, statusCh chan<- WorkerStatus) {
	cm, err := attpc.LoadChannelMapOrDefault(cfg.ChannelMapPath)
	if err != nil {
		log.Printf("worker %d: cannot load channel map: %v", workerID, err)
		return
	}

	for _, run := range assigned {
		select {
		case <-ctx.Done():
			log.Printf("worker %d: cancelled before run %d", workerID, run)
			return
		default:
		}

		if err := processRun(ctx, cfg, cm, workerID, run, statusCh); err != nil {
			log.Printf("worker %d: run %d failed: %v", workerID, run, err)
		}
	}
}

// processRun merges one run's GET and FRIB streams into a single
// hierarchical output file, reporting progress through statusCh.
func processRun(ctx context.Context, cfg *attpc.Config, cm *attpc.ChannelMap, workerID int, run int32, statusCh chan<- WorkerStatus) error {
	merger, manifest, err := search.BuildMerger(cfg, run)
	if errors.Is(err, search.ErrNoGrawData) {
		log.Printf("worker %d: run %d: no GET data, skipping run", workerID, run)
		return nil
	}
	if err != nil {
		return err
	}

	var stagedPaths []string
	if cfg.CopyPath != "" {
		sources := make([]string, 0, len(manifest))
		for _, m := range manifest {
			sources = append(sources, m.Path)
		}
		statusCh <- WorkerStatus{RunNumber: run, WorkerID: workerID, Phase: PhaseCopying, Progress: 0}
		staged, err := search.StageRun(cfg, run, sources)
		if err != nil {
			return err
		}
		stagedPaths = staged
		statusCh <- WorkerStatus{RunNumber: run, WorkerID: workerID, Phase: PhaseCopying, Progress: 1}
	}

	w, err := NewWriter(cfg.HdfPath, run)
	if err != nil {
		return err
	}
	for _, m := range manifest {
		w.RecordManifestEntry(m.Name, m.Size)
	}

	statusCh <- WorkerStatus{RunNumber: run, WorkerID: workerID, Phase: PhaseMerging, Progress: 0}

	builder := event.NewBuilder(cm)
	tracker := newProgressTracker(merger.TotalDataSizeBytes())

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return ctx.Err()
		default:
		}

		frame, err := merger.GetNextFrame()
		if err != nil {
			w.Close()
			return err
		}
		if frame == nil {
			break
		}

		ev, err := builder.AppendFrame(frame)
		if err != nil {
			w.Close()
			return err
		}
		if ev != nil {
			if err := w.WriteGetEvent(ev, cm); err != nil {
				w.Close()
				return err
			}
		}

		if frac, crossed := tracker.step(merger.ConsumedBytes(), false); crossed {
			statusCh <- WorkerStatus{RunNumber: run, WorkerID: workerID, Phase: PhaseMerging, Progress: frac}
		}
	}

	final, err := builder.FlushFinalEvent()
	if err != nil {
		w.Close()
		return err
	}
	if final != nil {
		if err := w.WriteGetEvent(final, cm); err != nil {
			w.Close()
			return err
		}
	}

	if search.HasEvtData(cfg, run) {
		stack, err := ring.NewEvtFileStack(search.EvtDir(cfg, run))
		if err != nil {
			log.Printf("worker %d: run %d: cannot open FRIB stream: %v", workerID, run, err)
		} else {
			fribBuilder := ring.NewBuilder(stack, w)
			if err := fribBuilder.Run(); err != nil {
				log.Printf("worker %d: run %d: FRIB builder error: %v", workerID, run, err)
			}
		}
	} else if cfg.EvtPath != "" {
		log.Printf("worker %d: run %d: no FRIB directory, writing GET-only output", workerID, run)
	}

	statusCh <- WorkerStatus{RunNumber: run, WorkerID: workerID, Phase: PhaseMerging, Progress: 1}

	if err := w.Close(); err != nil {
		return err
	}

	if cfg.DeleteCopied && len(stagedPaths) > 0 {
		if err := search.CleanStaged(stagedPaths); err != nil {
			log.Printf("worker %d: run %d: failed to clean staged files: %v", workerID, run, err)
		}
	}

	return nil
}
