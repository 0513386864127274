package graw

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/nscl-frib/attpc-merger"
)

// AsadStack is the FIFO sequence of .graw files belonging to one (CoBo,
// AsAd) electronics pair. Grounded on the teacher's GsfFile, which wraps a
// single os.File behind the Stream interface and tracks a read cursor; here
// that is generalized to a queue of files so a stack transparently rolls
// over to the next file on EOF.
type AsadStack struct {
	Cobo uint8
	Asad uint8

	activeFile    *os.File
	activeReader  *bufio.Reader
	remainingFiles []string

	bytesConsumed int64
	totalBytes    int64

	peeked *GrawFrame
}

// NewAsadStack globs dir for *.graw files, sorts them lexicographically
// (file names encode a monotonic sequence number), and opens the first one.
func NewAsadStack(cobo, asad uint8, dir string) (*AsadStack, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.graw"))
	if err != nil {
		return nil, errors.Join(attpc.ErrAsadStack, err)
	}
	sort.Strings(matches)
	return NewAsadStackFiles(cobo, asad, matches)
}

// NewAsadStackFiles builds a stack from an already-resolved, FIFO-ordered
// file list, for callers (attpc/search) that need to group files belonging
// to one (CoBo, AsAd) pair out of a directory shared by several AsAds.
func NewAsadStackFiles(cobo, asad uint8, files []string) (*AsadStack, error) {
	s := &AsadStack{Cobo: cobo, Asad: asad, remainingFiles: files}
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Join(attpc.ErrAsadStack, err)
		}
		s.totalBytes += info.Size()
	}

	if err := s.openNext(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return s, nil
}

func (s *AsadStack) openNext() error {
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
		return errors.Join(attpc.ErrAsadStack, err)
	}
	s.activeFile = f
	s.activeReader = bufio.NewReaderSize(f, 1<<16)
	return nil
}

// Exhausted reports whether the stack has no more frames to yield.
func (s *AsadStack) Exhausted() bool {
	return s.peeked == nil && s.activeFile == nil
}

// PeekNextFrame returns the next decoded frame without consuming it, or
// (nil, nil) at EOF. The result is cached until PopNextFrame consumes it.
func (s *AsadStack) PeekNextFrame() (*GrawFrame, error) {
	if s.peeked != nil {
		return s.peeked, nil
	}

	frame, err := s.readOneFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	s.peeked = frame
	return frame, nil
}

// PopNextFrame returns the next frame, consuming it, or (nil, nil) at EOF.
func (s *AsadStack) PopNextFrame() (*GrawFrame, error) {
	if s.peeked != nil {
		f := s.peeked
		s.peeked = nil
		return f, nil
	}
	frame, err := s.readOneFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return frame, nil
}

// readOneFrame reads exactly one frame's header to discover its on-disk
// size, then reads the remaining bytes reserved for the body before
// decoding the whole buffer — the same "reserve exactly frame_size bytes"
// discipline the AsAd stack requires.
func (s *AsadStack) readOneFrame() (*GrawFrame, error) {
	for {
		if s.activeReader == nil {
			return nil, io.EOF
		}

		head := make([]byte, frameHeaderBytes)
		n, err := io.ReadFull(s.activeReader, head)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if openErr := s.openNext(); openErr != nil {
				return nil, io.EOF
			}
			continue
		}
		if err != nil {
			return nil, errors.Join(attpc.ErrGrawFile, err)
		}
		s.bytesConsumed += int64(n)

		h, err := decodeHeader(head)
		if err != nil {
			return nil, err
		}

		bodyLen := h.frameSize*32 - frameHeaderBytes
		buf := make([]byte, frameHeaderBytes+int(bodyLen))
		copy(buf, head)
		if _, err := io.ReadFull(s.activeReader, buf[frameHeaderBytes:]); err != nil {
			return nil, fmt.Errorf("%w: short frame body: %v", attpc.ErrGrawFile, err)
		}
		s.bytesConsumed += int64(bodyLen)

		return DecodeFrame(buf)
	}
}

// BytesConsumed reports cumulative bytes read so far, for progress
// accounting.
func (s *AsadStack) BytesConsumed() int64 { return s.bytesConsumed }

// TotalBytes reports the sum of sizes of all files discovered for this
// stack.
func (s *AsadStack) TotalBytes() int64 { return s.totalBytes }
