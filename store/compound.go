package store

import "sort"

// FileEntry records where a sub-file's body begins within a .cfs
// container and how many bytes it spans.
type FileEntry struct {
	Offset int64
	Length int64
}

// CompoundFileWriter packs a list of SubFile (name, body) pairs into a
// single .cfs file: a VInt file count, then that many {long dataOffset,
// string subName} header records in write order, then the concatenated
// bodies. Reworked around the Writer interface instead of a
// closure-based virtual Directory.
type CompoundFileWriter struct {
	dir  Directory
	name string
}

func NewCompoundFileWriter(dir Directory, name string) *CompoundFileWriter {
	return &CompoundFileWriter{dir: dir, name: name}
}

// SubFile is one logical sub-file to pack: its name and the bytes to
// write as its body.
type SubFile struct {
	Name string
	Body []byte
}

// Write packs files into the compound container in alphabetical-of-name
// order and returns the
// offset table a reader would reconstruct independently by re-scanning
// the header, for callers that want it without a second open.
func (w *CompoundFileWriter) Write(files []SubFile) (map[string]FileEntry, error) {
	sorted := make([]SubFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out, err := w.dir.Create(w.name)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	if err := out.WriteVInt(int32(len(sorted))); err != nil {
		return nil, err
	}

	// Each header record is long(8) + vint(len(name)) + name bytes; every
	// record's dataOffset must be exact before any record is written, so
	// compute the header size first and lay out body offsets after it.
	// headerBytes starts past the file-count VInt already written above.
	headerBytes := int64(vintLen(int32(len(sorted))))
	for _, f := range sorted {
		nameLen := len(encodeModifiedUTF8(f.Name))
		headerBytes += 8 + int64(vintLen(int32(nameLen))) + int64(nameLen)
	}
	offsets := make([]int64, len(sorted))
	pos := headerBytes
	for i, f := range sorted {
		offsets[i] = pos
		pos += int64(len(f.Body))
	}
	for i, f := range sorted {
		if err := out.WriteLong(offsets[i]); err != nil {
			return nil, err
		}
		if err := out.WriteString(f.Name); err != nil {
			return nil, err
		}
	}
	entries := make(map[string]FileEntry, len(sorted))
	for i, f := range sorted {
		if err := out.WriteBytes(f.Body); err != nil {
			return nil, err
		}
		entries[f.Name] = FileEntry{Offset: offsets[i], Length: int64(len(f.Body))}
	}
	return entries, nil
}

func vintLen(n int32) int {
	u := uint32(n)
	l := 1
	for u&^0x7F != 0 {
		l++
		u >>= 7
	}
	return l
}

// CompoundFileReader opens a .cfs container and exposes each packed
// sub-file as an independently-seekable Reader bounded to its byte
// range.
type CompoundFileReader struct {
	dir     Directory
	name    string
	entries map[string]FileEntry
	size    int64
}

func OpenCompoundFileReader(dir Directory, name string) (*CompoundFileReader, error) {
	size, err := dir.Length(name)
	if err != nil {
		return nil, err
	}
	r, err := dir.Open(name, false)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	count, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	type header struct {
		name   string
		offset int64
	}
	headers := make([]header, count)
	for i := range headers {
		off, err := r.ReadLong()
		if err != nil {
			return nil, err
		}
		nm, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		headers[i] = header{name: nm, offset: off}
	}
	entries := make(map[string]FileEntry, len(headers))
	for i, h := range headers {
		length := size - h.offset
		if i+1 < len(headers) {
			length = headers[i+1].offset - h.offset
		}
		entries[h.name] = FileEntry{Offset: h.offset, Length: length}
	}
	return &CompoundFileReader{dir: dir, name: name, entries: entries, size: size}, nil
}

// OpenSubFile returns a fresh, independently-cursored Reader bounded to
// subName's byte range within the container.
func (c *CompoundFileReader) OpenSubFile(subName string) (Reader, error) {
	entry, ok := c.entries[subName]
	if !ok {
		names := make([]string, 0, len(c.entries))
		for n := range c.entries {
			names = append(names, n)
		}
		return nil, New(Runtime, "no sub-file %s in compound file %s (have %v)", subName, c.name, names)
	}
	full, err := c.dir.Open(c.name, false)
	if err != nil {
		return nil, err
	}
	fr, ok := full.(*fsReader)
	if ok {
		return newFSReader(fr.f, fr.off+entry.Offset, entry.Length, true), nil
	}
	// RAMDirectory: wrap the in-memory reader's backing file directly
	// so the sub-range has its own cursor.
	mr, ok := full.(*memReader)
	if !ok {
		return nil, New(Runtime, "unsupported directory implementation for compound file")
	}
	return newBoundedMemReader(mr.file, entry.Offset, entry.Length), nil
}

func (c *CompoundFileReader) Files() map[string]FileEntry { return c.entries }
