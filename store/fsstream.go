package store

import (
	"io"
	"os"
)

// fsSource adapts an *os.File plus a byte-range window to byteSource, so
// a compound-file sub-stream (store/compound.go) and a plain top-level
// file share the identical codec. off/limit bound the visible range;
// pos is relative to off.
type fsSource struct {
	f     *os.File
	off   int64
	limit int64
	pos   *int64
}

func (s fsSource) readByte() (byte, error) {
	b, err := s.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s fsSource) readBytes(n int) ([]byte, error) {
	if *s.pos+int64(n) > s.limit {
		return nil, New(Runtime, "short read: wanted %d bytes at offset %d, sub-file has %d", n, *s.pos, s.limit)
	}
	buf := make([]byte, n)
	read, err := s.f.ReadAt(buf, s.off+*s.pos)
	if err != nil && err != io.EOF {
		return nil, Wrap(err, Runtime, "read")
	}
	if read != n {
		return nil, New(Runtime, "short read: wanted %d bytes, got %d", n, read)
	}
	*s.pos += int64(n)
	return buf, nil
}

// fsReader is the FSDirectory Reader implementation, bounded to [off,
// off+limit) so it can also serve as a compound-file sub-stream.
type fsReader struct {
	*codec
	f     *os.File
	off   int64
	limit int64
	pos   int64
	owned bool // whether Close() should close the underlying *os.File
}

func newFSReader(f *os.File, off, limit int64, owned bool) *fsReader {
	r := &fsReader{f: f, off: off, limit: limit, owned: owned}
	r.codec = &codec{src: fsSource{f: f, off: off, limit: limit, pos: &r.pos}}
	return r
}

func (r *fsReader) Seek(offset int64, whence Whence) error {
	switch whence {
	case SeekSet:
		r.pos = offset
	case SeekCur:
		r.pos += offset
	case SeekEnd:
		r.pos = r.limit + offset
	}
	if r.pos < 0 {
		return New(InvalidArgument, "seek before start of file")
	}
	return nil
}

func (r *fsReader) Tell() (int64, error) { return r.pos, nil }
func (r *fsReader) Size() (int64, error) { return r.limit, nil }

func (r *fsReader) Close() error {
	if r.owned {
		return r.f.Close()
	}
	return nil
}

// fsWriter is the FSDirectory Writer implementation: a fresh, truncated
// file opened for sequential append, matching Directory.create's
// contract that a newly created file starts empty.
type fsWriter struct {
	*codec
	f    *os.File
	pos  int64
	lock bool
}

func newFSWriter(f *os.File) *fsWriter {
	w := &fsWriter{f: f}
	w.codec = &codec{dst: w}
	return w
}

func (w *fsWriter) Tell() (int64, error) { return w.pos, nil }

func (w *fsWriter) writeByte(b byte) error {
	n, err := w.f.WriteAt([]byte{b}, w.pos)
	w.pos += int64(n)
	if err != nil {
		return Wrap(err, Runtime, "write")
	}
	return nil
}

func (w *fsWriter) writeBytes(b []byte) error {
	n, err := w.f.WriteAt(b, w.pos)
	w.pos += int64(n)
	if err != nil {
		return Wrap(err, Runtime, "write")
	}
	return nil
}

func (w *fsWriter) Flush() error { return w.f.Sync() }

// Lock/Unlock only set and clear a flag on this writer: no operating-
// system file lock is taken, and nothing in this module calls them.
// Cross-process exclusion comes from the directory-level LockManager.
func (w *fsWriter) Lock() error {
	w.lock = true
	return nil
}

func (w *fsWriter) Unlock() error {
	w.lock = false
	return nil
}

func (w *fsWriter) Close() error {
	if err := w.f.Sync(); err != nil {
		return Wrap(err, Runtime, "fsync on close")
	}
	return w.f.Close()
}
