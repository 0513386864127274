package writer

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/nscl-frib/attpc-merger"
	"github.com/nscl-frib/attpc-merger/ring"
)

// outputVersion is written verbatim as the "version" attribute on both
// top-level groups.
const outputVersion = "attpc_merger:2.0"

// Writer is the pluggable hierarchical-output interface: the one
// concrete implementation shipped is TileDBWriter, but callers (the
// worker pool, tests) depend on this interface, following the design
// note that the output store should stay swappable.
type Writer interface {
	WriteGetEvent(ev *attpc.Event, cm *attpc.ChannelMap) error
	ring.FribWriter
	RecordManifestEntry(name string, sizeBytes int64)
	Close() error
}

// TileDBWriter is the default Writer, backed by the "events" and "scalers"
// TileDB groups of one run (see package doc for why TileDB stands in for
// an HDF5-style store).
type TileDBWriter struct {
	ctx *tiledb.Context

	runURI    string
	eventsURI string
	scalersURI string

	eventsGroup  *tiledb.Group
	scalersGroup *tiledb.Group

	getEventCounter  int
	fribEventCounter int
	scalerCounter    int

	extent  attpc.RunExtent
	runInfo ring.RunInfo

	manifestPath    string
	manifestEntries []ManifestEntry
}

// NewTileDBWriter creates the "events" and "scalers" groups under the run
// directory {hdfPath}/run_{run:04}.tiledb, following the teacher's
// NewGroup/Create/Open(WRITE) sequence in cmd/main.go's convert_gsf.
func NewTileDBWriter(hdfPath string, run int32) (*TileDBWriter, error) {
	cfg, err := tiledb.NewConfig()
	if err != nil {
		return nil, errors.Join(attpc.ErrHDF5Writer, err)
	}
	defer cfg.Free()

	ctx, err := tiledb.NewContext(cfg)
	if err != nil {
		return nil, errors.Join(attpc.ErrHDF5Writer, err)
	}

	runURI := filepath.Join(hdfPath, fmt.Sprintf("run_%04d.tiledb", run))
	if err := os.MkdirAll(hdfPath, 0o755); err != nil {
		return nil, errors.Join(attpc.ErrHDF5Writer, err)
	}

	eventsURI := filepath.Join(runURI, "events")
	scalersURI := filepath.Join(runURI, "scalers")

	eventsGroup, err := createGroup(ctx, eventsURI)
	if err != nil {
		return nil, errors.Join(attpc.ErrHDF5Writer, err)
	}
	scalersGroup, err := createGroup(ctx, scalersURI)
	if err != nil {
		return nil, errors.Join(attpc.ErrHDF5Writer, err)
	}

	return &TileDBWriter{
		ctx:          ctx,
		runURI:       runURI,
		eventsURI:    eventsURI,
		scalersURI:   scalersURI,
		eventsGroup:  eventsGroup,
		scalersGroup: scalersGroup,
		manifestPath: runURI + ".yml",
	}, nil
}

func createGroup(ctx *tiledb.Context, uri string) (*tiledb.Group, error) {
	grp, err := tiledb.NewGroup(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := grp.Create(); err != nil {
		grp.Free()
		return nil, err
	}
	if err := grp.Open(tiledb.TILEDB_WRITE); err != nil {
		grp.Free()
		return nil, err
	}
	return grp, nil
}

// detectorGroupRow is one hit channel's row within a detector group's
// matrix: the hardware/detector identification columns followed by the
// 512 amplitude columns (spec.md §4.7).
type detectorGroupRow struct {
	cobo, asad, aget, channel int32
	id                        int32 // pad_id, or silicon detector_channel
	amplitudes                *attpc.Trace
}

// WriteGetEvent writes one GET event's per-detector-group trace matrices
// under events/event_{counter}/get/{keyword}.
func (w *TileDBWriter) WriteGetEvent(ev *attpc.Event, cm *attpc.ChannelMap) error {
	w.extent.Observe(ev)

	byKind := make(map[attpc.DetectorKind][]detectorGroupRow)
	for addr, trace := range ev.Traces {
		entry, ok := cm.Lookup(addr.ID())
		if !ok {
			continue
		}
		id := int32(entry.Detector.ID)
		if entry.Detector.Kind != attpc.DetectorPad {
			id = int32(entry.Detector.Channel)
		}
		byKind[entry.Detector.Kind] = append(byKind[entry.Detector.Kind], detectorGroupRow{
			cobo: int32(addr.Cobo), asad: int32(addr.Asad), aget: int32(addr.Aget), channel: int32(addr.Channel),
			id: id, amplitudes: trace,
		})
	}

	counter := w.getEventCounter
	w.getEventCounter++

	for _, kind := range attpc.AllDetectorKinds {
		rows := byKind[kind]
		uri := filepath.Join(w.eventsURI, fmt.Sprintf("event_%d", counter), "get", kind.Keyword()+".tiledb")
		if err := os.MkdirAll(filepath.Dir(uri), 0o755); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}

		cols := 5 + attpc.TraceLength
		flat := make([]int32, len(rows)*cols)
		for r, row := range rows {
			base := r * cols
			flat[base+0] = row.cobo
			flat[base+1] = row.asad
			flat[base+2] = row.aget
			flat[base+3] = row.channel
			flat[base+4] = row.id
			for c := 0; c < attpc.TraceLength; c++ {
				flat[base+5+c] = int32(row.amplitudes[c])
			}
		}

		if err := createDenseMatrix(w.ctx, uri, len(rows), cols); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}
		if err := writeDenseMatrix(w.ctx, uri, len(rows), cols, flat); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}
		if err := w.putGetEventAttrs(uri, ev); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}

		name := fmt.Sprintf("event_%d/get/%s", counter, kind.Keyword())
		if err := w.eventsGroup.AddMember(uri, name, true); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}
	}

	return nil
}

// putGetEventAttrs records the id/timestamp/timestamp_other attributes
// spec.md §4.7 requires on every detector-group dataset.
func (w *TileDBWriter) putGetEventAttrs(uri string, ev *attpc.Event) error {
	array, err := ArrayOpen(w.ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return err
	}
	defer array.Free()
	defer array.Close()

	if err := array.PutMetadata("id", int32(ev.EventID)); err != nil {
		return err
	}
	if err := array.PutMetadata("timestamp", int64(ev.Timestamp)); err != nil {
		return err
	}
	return array.PutMetadata("timestamp_other", int64(ev.TimestampOther))
}

// WriteScalers writes a 1-D dataset under scalers/event_{counter}
// (spec.md §4.7).
func (w *TileDBWriter) WriteScalers(item *ring.ScalersItem, counter int) error {
	uri := filepath.Join(w.scalersURI, fmt.Sprintf("event_%d.tiledb", counter))

	data := make([]int32, len(item.Data))
	for i, v := range item.Data {
		data[i] = int32(v)
	}

	if err := create1D(w.ctx, uri, len(data)); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := write1D(w.ctx, uri, data); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := w.putScalerAttrs(uri, item); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}

	name := fmt.Sprintf("event_%d", counter)
	if err := w.scalersGroup.AddMember(uri, name, true); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if counter >= w.scalerCounter {
		w.scalerCounter = counter + 1
	}
	return nil
}

// WritePhysics writes a FRIB physics event's VME payloads under
// events/event_{counter}/frib_physics (spec.md §4.7).
func (w *TileDBWriter) WritePhysics(item *ring.PhysicsItem, counter int) error {
	baseDir := filepath.Join(w.eventsURI, fmt.Sprintf("event_%d", counter), "frib_physics")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}

	writeSIS := func(tag string, p *ring.SIS3300Payload) error {
		if p == nil || !p.HasData {
			return nil
		}
		return w.writeSIS3300(baseDir, counter, tag, p)
	}

	if err := writeSIS("1903", item.Fadc1); err != nil {
		return err
	}
	if err := writeSIS("1904", item.Fadc2); err != nil {
		return err
	}
	if err := writeSIS("1905", item.Fadc3); err != nil {
		return err
	}
	if item.Fadc4 != nil && item.Fadc4.HasData {
		if err := w.writeSIS3316(baseDir, counter, item.Fadc4); err != nil {
			return err
		}
	}
	if item.Coinc != nil {
		if err := w.writeV977(baseDir, counter, item.Coinc); err != nil {
			return err
		}
	}
	w.fribEventCounter++
	return nil
}

func (w *TileDBWriter) writeSIS3300(baseDir string, counter int, tag string, p *ring.SIS3300Payload) error {
	nChan := len(p.Channels)
	rows := 0
	for _, ch := range p.Channels {
		if len(ch) > rows {
			rows = len(ch)
		}
	}

	flat := make([]int32, rows*nChan)
	for c, ch := range p.Channels {
		for r, v := range ch {
			flat[r*nChan+c] = int32(v)
		}
	}

	uri := filepath.Join(baseDir, tag+".tiledb")
	if err := createDenseMatrix(w.ctx, uri, rows, nChan); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := writeDenseMatrix(w.ctx, uri, rows, nChan, flat); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	name := fmt.Sprintf("event_%d/frib_physics/%s", counter, tag)
	return w.wrapGroupErr(w.eventsGroup.AddMember(uri, name, true))
}

func (w *TileDBWriter) writeSIS3316(baseDir string, counter int, p *ring.SIS3316Payload) error {
	cols := len(p.Records)
	rows := 0
	for _, rec := range p.Records {
		if len(rec.Samples)+1 > rows {
			rows = len(rec.Samples) + 1
		}
	}

	flat := make([]int32, rows*cols)
	for c, rec := range p.Records {
		flat[0*cols+c] = int32(rec.Channel)
		for r, v := range rec.Samples {
			flat[(r+1)*cols+c] = int32(v)
		}
	}

	uri := filepath.Join(baseDir, "1906.tiledb")
	if err := createDenseMatrix(w.ctx, uri, rows, cols); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := writeDenseMatrix(w.ctx, uri, rows, cols, flat); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	name := fmt.Sprintf("event_%d/frib_physics/1906", counter)
	return w.wrapGroupErr(w.eventsGroup.AddMember(uri, name, true))
}

func (w *TileDBWriter) writeV977(baseDir string, counter int, p *ring.V977Payload) error {
	uri := filepath.Join(baseDir, "977.tiledb")
	data := []int32{int32(p.Mask)}

	if err := create1D(w.ctx, uri, 1); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := write1D(w.ctx, uri, data); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	name := fmt.Sprintf("event_%d/frib_physics/977", counter)
	return w.wrapGroupErr(w.eventsGroup.AddMember(uri, name, true))
}

// putScalerAttrs records the scaler record's offset/timestamp/incremental
// attributes on the array itself, reopened briefly in write mode, the same
// way the teacher's attitude.go/svp.go reopen an array after writing its
// buffers to attach array.PutMetadata key/value pairs.
func (w *TileDBWriter) putScalerAttrs(uri string, item *ring.ScalersItem) error {
	array, err := ArrayOpen(w.ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return err
	}
	defer array.Free()
	defer array.Close()

	incremental := int32(0)
	if item.Incremental {
		incremental = 1
	}

	if err := array.PutMetadata("start_offset", int32(item.StartOffset)); err != nil {
		return err
	}
	if err := array.PutMetadata("stop_offset", int32(item.StopOffset)); err != nil {
		return err
	}
	if err := array.PutMetadata("timestamp", int32(item.Timestamp)); err != nil {
		return err
	}
	return array.PutMetadata("incremental", incremental)
}

func (w *TileDBWriter) wrapGroupErr(err error) error {
	if err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	return nil
}

// WriteRunInfo stores the BeginRun/EndRun info; Close writes it as the
// frib_* attributes on the events group (spec.md §4.5, §4.7).
func (w *TileDBWriter) WriteRunInfo(info ring.RunInfo) error {
	w.runInfo = info
	return nil
}

// RecordManifestEntry appends one discovered input file's name and byte
// size to the companion manifest, written out at Close.
func (w *TileDBWriter) RecordManifestEntry(name string, sizeBytes int64) {
	w.manifestEntries = append(w.manifestEntries, ManifestEntry{Name: name, SizeBytes: sizeBytes})
}

// Close writes the final attributes to both groups, the companion YAML
// manifest, and releases TileDB resources. If the GET and FRIB builders
// disagreed on event count, Close logs the mismatch and the GET count
// (recorded as max_event) wins.
func (w *TileDBWriter) Close() error {
	if w.fribEventCounter != w.getEventCounter {
		log.Printf("attpc: run %s: get event count %d differs from frib event count %d, using get count",
			w.runURI, w.getEventCounter, w.fribEventCounter)
	}

	if err := w.eventsGroup.PutMetadata("version", outputVersion); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := w.eventsGroup.PutMetadata("min_event", int32(0)); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := w.eventsGroup.PutMetadata("max_event", int32(w.getEventCounter)); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := w.eventsGroup.PutMetadata("min_get_ts", int64(w.extent.MinTS)); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := w.eventsGroup.PutMetadata("max_get_ts", int64(w.extent.MaxTS)); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if w.runInfo.Begin != nil {
		if err := w.eventsGroup.PutMetadata("frib_run", int32(w.runInfo.Begin.Run)); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}
		if err := w.eventsGroup.PutMetadata("frib_start", int32(w.runInfo.Begin.StartTime)); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}
	}
	if w.runInfo.End != nil {
		if err := w.eventsGroup.PutMetadata("frib_stop", int32(w.runInfo.End.StopTime)); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}
		if err := w.eventsGroup.PutMetadata("frib_time", int32(w.runInfo.End.ElapsedTime)); err != nil {
			return errors.Join(attpc.ErrHDF5Writer, err)
		}
	}

	if err := w.scalersGroup.PutMetadata("version", outputVersion); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := w.scalersGroup.PutMetadata("min_event", int32(0)); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}
	if err := w.scalersGroup.PutMetadata("max_event", int32(w.scalerCounter)); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}

	if err := writeManifest(w.manifestPath, w.manifestEntries); err != nil {
		return errors.Join(attpc.ErrHDF5Writer, err)
	}

	w.eventsGroup.Close()
	w.eventsGroup.Free()
	w.scalersGroup.Close()
	w.scalersGroup.Free()
	w.ctx.Free()

	return nil
}
