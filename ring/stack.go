package ring

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/nscl-frib/attpc-merger"
)

// EvtFileStack is the FIFO sequence of .evt files for one run, yielding
// ring items in file order. Grounded on the same AsadStack shape (itself
// grounded on the teacher's GsfFile) generalized from fixed-size frames to
// length-prefixed ring items.
type EvtFileStack struct {
	remainingFiles []string
	activeReader   *bufio.Reader
	activeFile     *os.File

	bytesConsumed int64
	totalBytes    int64
}

// NewEvtFileStack globs dir for run-*-*.evt files, sorted lexicographically.
func NewEvtFileStack(dir string) (*EvtFileStack, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "run-*-*.evt"))
	if err != nil {
		return nil, errors.Join(attpc.ErrEvtStack, err)
	}
	sort.Strings(matches)

	s := &EvtFileStack{remainingFiles: matches}
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Join(attpc.ErrEvtStack, err)
		}
		s.totalBytes += info.Size()
	}

	if err := s.openNext(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return s, nil
}

func (s *EvtFileStack) openNext() error {
	if s.activeFile != nil {
		s.activeFile.Close()
		s.activeFile = nil
		s.activeReader = nil
	}
	if len(s.remainingFiles) == 0 {
		return io.EOF
	}
	path := s.remainingFiles[0]
	s.remainingFiles = s.remainingFiles[1:]

	f, err := os.Open(path)
	if err != nil {
		return errors.Join(attpc.ErrEvtStack, err)
	}
	s.activeFile = f
	s.activeReader = bufio.NewReaderSize(f, 1<<16)
	return nil
}

// PopNextItem reads and returns the next ring item, or (nil, nil) at EOF
// across all files in the stack.
func (s *EvtFileStack) PopNextItem() (*RingItem, error) {
	for {
		if s.activeReader == nil {
			return nil, nil
		}

		lenBuf, err := s.activeReader.Peek(4)
		if err != nil {
			if err == io.EOF {
				if openErr := s.openNext(); openErr != nil {
					return nil, nil
				}
				continue
			}
			return nil, errors.Join(attpc.ErrEvtFile, err)
		}

		length := int(binary.LittleEndian.Uint32(lenBuf))
		buf := make([]byte, length)
		n, err := io.ReadFull(s.activeReader, buf)
		if err != nil {
			return nil, errors.Join(attpc.ErrEvtFile, err)
		}
		s.bytesConsumed += int64(n)

		item, _, err := ReadRingItem(buf)
		if err != nil {
			return nil, err
		}
		return item, nil
	}
}

// BytesConsumed reports cumulative bytes read for progress accounting.
func (s *EvtFileStack) BytesConsumed() int64 { return s.bytesConsumed }

// TotalBytes reports the sum of sizes of all files discovered for this run.
func (s *EvtFileStack) TotalBytes() int64 { return s.totalBytes }
