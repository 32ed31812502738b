package store

import "sync"

// memFile is the shared backing buffer for a named file inside a
// RAMDirectory. A single memFile may have one writer (append-only,
// matching Directory.create's contract) and many independent readers,
// each with its own cursor — this is what lets concurrent phrase and
// positional decoding open the same compound-file sub-range twice
// without interfering.
type memFile struct {
	mu   sync.RWMutex
	data []byte
}

func (f *memFile) size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.data))
}

func (f *memFile) writeByte(b byte) error {
	f.mu.Lock()
	f.data = append(f.data, b)
	f.mu.Unlock()
	return nil
}

func (f *memFile) writeBytes(b []byte) error {
	f.mu.Lock()
	f.data = append(f.data, b...)
	f.mu.Unlock()
	return nil
}

func (f *memFile) readAt(pos int64, n int) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pos < 0 || pos+int64(n) > int64(len(f.data)) {
		return nil, New(Runtime, "short read: wanted %d bytes at offset %d, file has %d", n, pos, len(f.data))
	}
	out := make([]byte, n)
	copy(out, f.data[pos:pos+int64(n)])
	return out, nil
}

// memSource adapts a memFile+cursor to byteSource so *codec can be
// embedded without duplicating the VInt/string logic.
type memSource struct {
	file *memFile
	pos  *int64
}

func (s memSource) readByte() (byte, error) {
	b, err := s.file.readAt(*s.pos, 1)
	if err != nil {
		return 0, err
	}
	*s.pos++
	return b[0], nil
}

func (s memSource) readBytes(n int) ([]byte, error) {
	b, err := s.file.readAt(*s.pos, n)
	if err != nil {
		return nil, err
	}
	*s.pos += int64(n)
	return b, nil
}

// boundedMemSource adapts a memFile plus a fixed [off, off+limit) byte
// window to byteSource, the way fsSource bounds an *os.File — this is
// what lets a compound-file sub-stream over a RAMDirectory .cfs get its
// own independent cursor.
type boundedMemSource struct {
	file  *memFile
	off   int64
	limit int64
	pos   *int64
}

func (s boundedMemSource) readByte() (byte, error) {
	b, err := s.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s boundedMemSource) readBytes(n int) ([]byte, error) {
	if *s.pos+int64(n) > s.limit {
		return nil, New(Runtime, "short read: wanted %d bytes at offset %d, sub-file has %d", n, *s.pos, s.limit)
	}
	b, err := s.file.readAt(s.off+*s.pos, n)
	if err != nil {
		return nil, err
	}
	*s.pos += int64(n)
	return b, nil
}

// memReader is the RAMDirectory Reader implementation, also reused
// (via newBoundedMemReader) as a compound-file sub-stream bounded to a
// byte range smaller than the whole backing file.
type memReader struct {
	*codec
	file  *memFile
	pos   int64
	limit int64 // 0 means "whole file"; set by newBoundedMemReader
}

func newMemReader(f *memFile) *memReader {
	r := &memReader{file: f}
	r.codec = &codec{src: memSource{file: f, pos: &r.pos}}
	return r
}

// newBoundedMemReader returns a Reader over [off, off+length) of f,
// with its own independent cursor.
func newBoundedMemReader(f *memFile, off, length int64) *memReader {
	r := &memReader{file: f, limit: length}
	r.codec = &codec{src: boundedMemSource{file: f, off: off, limit: length, pos: &r.pos}}
	return r
}

func (r *memReader) Seek(offset int64, whence Whence) error {
	sz, _ := r.Size()
	switch whence {
	case SeekSet:
		r.pos = offset
	case SeekCur:
		r.pos += offset
	case SeekEnd:
		r.pos = sz + offset
	}
	if r.pos < 0 {
		return New(InvalidArgument, "seek before start of file")
	}
	return nil
}

func (r *memReader) Tell() (int64, error) { return r.pos, nil }
func (r *memReader) Size() (int64, error) {
	if r.limit > 0 {
		return r.limit, nil
	}
	return r.file.size(), nil
}
func (r *memReader) Close() error { return nil }

// memWriter is the RAMDirectory Writer implementation: append-only,
// matching the Directory.create contract. Lock/Unlock are no-ops per
// in-memory variant requirement.
type memWriter struct {
	*codec
	file   *memFile
	closed bool
}

func newMemWriter(f *memFile) *memWriter {
	w := &memWriter{file: f}
	w.codec = &codec{dst: f}
	return w
}

func (w *memWriter) Tell() (int64, error) { return w.file.size(), nil }
func (w *memWriter) Flush() error         { return nil }
func (w *memWriter) Lock() error          { return nil }
func (w *memWriter) Unlock() error        { return nil }
func (w *memWriter) Close() error {
	w.closed = true
	return nil
}
