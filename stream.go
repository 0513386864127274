package attpc

// Stream is a generic Read+Seek reader type, modeled on the teacher's
// gsf.Stream, which caters for either a tiledb.VFSfh or a bytes.Reader.
// Both *os.File and *bytes.Reader satisfy it. The graw and ring decoders do
// not use it: they decode byte slices read through a bufio.Reader.
type Stream interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
}

// Tell reports the current position within a Stream, mirroring the
// teacher's file.Tell helper.
func Tell(stream Stream) (int64, error) {
	return stream.Seek(0, 1)
}

// Padding advances the stream to the next 4-byte boundary. GRAW records
// (like the GSF records the teacher decodes) must have a total length that
// is a multiple of 4; on read we only need to skip any trailing pad bytes
// before the next record header.
func Padding(stream Stream) error {
	pos, err := Tell(stream)
	if err != nil {
		return err
	}
	pad := (4 - pos%4) % 4
	if pad == 0 {
		return nil
	}
	_, err = stream.Seek(pad, 1)
	return err
}
