package index

import (
	"github.com/gosegment/lucene2x/document"
	"github.com/gosegment/lucene2x/store"
)

// segmentStore adapts a segment's real directory plus its optional
// compound file into one store.Directory, so every reader in this
// package (term dictionary, postings, norms, stored fields) can Open
// a logical file name without knowing whether that segment was
// written compound or exploded. Open/Exists/Length check the compound
// file first when one is present; everything else delegates to the
// backing directory unchanged.
type segmentStore struct {
	store.Directory
	cfs *store.CompoundFileReader
}

func newSegmentStore(dir store.Directory, cfs *store.CompoundFileReader) *segmentStore {
	return &segmentStore{Directory: dir, cfs: cfs}
}

func (s *segmentStore) Open(name string, shared bool) (store.Reader, error) {
	if s.cfs != nil {
		if _, ok := s.cfs.Files()[name]; ok {
			return s.cfs.OpenSubFile(name)
		}
	}
	return s.Directory.Open(name, shared)
}

func (s *segmentStore) Exists(name string) bool {
	if s.cfs != nil {
		if _, ok := s.cfs.Files()[name]; ok {
			return true
		}
	}
	return s.Directory.Exists(name)
}

func (s *segmentStore) Length(name string) (int64, error) {
	if s.cfs != nil {
		if e, ok := s.cfs.Files()[name]; ok {
			return e.Length, nil
		}
	}
	return s.Directory.Length(name)
}

// SegmentReader binds one segment's field schema, term dictionary,
// postings, norms, stored fields, and deletions into the single
// read-side surface the index orchestrator and query executor call
// through. A SegmentReader is immutable except for its deletions,
// which delete(localID) mutates in place and commit later persists.
type SegmentReader struct {
	info   *SegmentInfo
	dir    store.Directory // the real directory, for writing a fresh .del<gen>
	store  *segmentStore   // compound-transparent read surface
	fields *FieldInfos

	tisName, tiiName string
	dict             *TermDict
	postings         *PostingsReader
	stored           *StoredFieldsReader

	norms    map[int32][]byte
	deleted  *BitVector
}

// OpenSegmentReader opens every file a segment needs for reading,
// transparently unpacking a .cfs container when info.IsCompound says
// one was written.
func OpenSegmentReader(dir store.Directory, info *SegmentInfo) (*SegmentReader, error) {
	var cfs *store.CompoundFileReader
	if info.IsCompound == CompoundYes {
		var err error
		cfs, err = store.OpenCompoundFileReader(dir, info.Name+".cfs")
		if err != nil {
			return nil, err
		}
	}
	ss := newSegmentStore(dir, cfs)

	fields, err := ReadFieldInfos(ss, info.Name+".fnm")
	if err != nil {
		return nil, err
	}

	tisName, tiiName := info.Name+".tis", info.Name+".tii"
	dict, err := OpenTermDict(ss, tisName, tiiName, fields)
	if err != nil {
		return nil, err
	}

	sr := &SegmentReader{
		info:     info,
		dir:      dir,
		store:    ss,
		fields:   fields,
		tisName:  tisName,
		tiiName:  tiiName,
		dict:     dict,
		postings: NewPostingsReader(ss, info.Name+".frq", info.Name+".prx"),
		stored:   NewStoredFieldsReader(ss, info.Name+".fdx", info.Name+".fdt", fields),
		norms:    make(map[int32][]byte),
	}

	if info.HasDeletions() {
		sr.deleted, err = ReadBitVector(ss, info.DelFileName())
		if err != nil {
			return nil, err
		}
	}
	return sr, nil
}

func (sr *SegmentReader) DocCount() int32 { return sr.info.DocCount }

// NumDocs is DocCount minus deleted documents.
func (sr *SegmentReader) NumDocs() int32 {
	if sr.deleted == nil {
		return sr.info.DocCount
	}
	return sr.info.DocCount - sr.deleted.Count()
}

func (sr *SegmentReader) IsDeleted(localID int32) bool {
	return sr.deleted != nil && sr.deleted.Get(localID)
}

// Delete marks localID deleted, lazily allocating the bitvector on
// first use. Returns false if it was already deleted.
func (sr *SegmentReader) Delete(localID int32) bool {
	if sr.deleted == nil {
		sr.deleted = NewBitVector(sr.info.DocCount)
	}
	return sr.deleted.Set(localID)
}

func (sr *SegmentReader) HasDeletions() bool { return sr.deleted != nil && sr.deleted.Count() > 0 }

func (sr *SegmentReader) GetField(number int32) (*FieldInfo, bool) { return sr.fields.ByNumber(number) }

func (sr *SegmentReader) GetFieldByName(name string) (*FieldInfo, bool) { return sr.fields.ByName(name) }

// GetFields returns every field name, optionally restricted to indexed
// fields only.
func (sr *SegmentReader) GetFields(indexedOnly bool) []string {
	var out []string
	for _, name := range sr.fields.Names() {
		fi, _ := sr.fields.ByName(name)
		if !indexedOnly || fi.Indexed {
			out = append(out, name)
		}
	}
	return out
}

// Norm returns the decoded length-normalization factor for localID in
// field, loading and caching that field's norm byte array on first
// use. Fields with StoreNorms false (omitNorms) always read as 1.0.
func (sr *SegmentReader) Norm(localID int32, field string) (float32, error) {
	fi, ok := sr.fields.ByName(field)
	if !ok || !fi.StoreNorms {
		return 1.0, nil
	}
	bytes, ok := sr.norms[fi.Number]
	if !ok {
		var err error
		bytes, err = ReadFieldNorms(sr.store, NormFileName(sr.info.Name, fi.Number), sr.info.DocCount)
		if err != nil {
			return 0, err
		}
		sr.norms[fi.Number] = bytes
	}
	return DecodeNorm(bytes[localID]), nil
}

// RawNormByte returns the undecoded norm byte for localID in field, or
// ok=false when the field carries no norms (omitNorms). A merge copies
// this byte directly rather than decoding and re-encoding it.
func (sr *SegmentReader) RawNormByte(localID int32, field string) (b byte, ok bool, err error) {
	fi, found := sr.fields.ByName(field)
	if !found || !fi.StoreNorms {
		return 0, false, nil
	}
	bytes, cached := sr.norms[fi.Number]
	if !cached {
		bytes, err = ReadFieldNorms(sr.store, NormFileName(sr.info.Name, fi.Number), sr.info.DocCount)
		if err != nil {
			return 0, false, err
		}
		sr.norms[fi.Number] = bytes
	}
	return bytes[localID], true, nil
}

func (sr *SegmentReader) GetTermInfo(t Term) (TermInfo, bool, error) {
	return sr.dict.LookupTermInfo(t)
}

// TermDocs returns the (localID, freq) postings for t, or ok=false if
// t is absent from this segment.
func (sr *SegmentReader) TermDocs(t Term) (entries []DocFreqEntry, ok bool, err error) {
	info, ok, err := sr.dict.LookupTermInfo(t)
	if err != nil || !ok {
		return nil, ok, err
	}
	enum, err := sr.postings.OpenDocs(info)
	if err != nil {
		return nil, false, err
	}
	defer enum.Close()
	for {
		docID, freq, more, err := enum.Next()
		if err != nil {
			return nil, false, err
		}
		if !more {
			break
		}
		entries = append(entries, DocFreqEntry{LocalID: docID, Freq: freq})
	}
	return entries, true, nil
}

// TermPositions returns the (localID, positions) postings for t, or
// ok=false if t is absent from this segment.
func (sr *SegmentReader) TermPositions(t Term) (entries []DocPositionsEntry, ok bool, err error) {
	info, ok, err := sr.dict.LookupTermInfo(t)
	if err != nil || !ok {
		return nil, ok, err
	}
	enum, err := sr.postings.OpenPositions(info)
	if err != nil {
		return nil, false, err
	}
	defer enum.Close()
	for {
		docID, positions, more, err := enum.Next()
		if err != nil {
			return nil, false, err
		}
		if !more {
			break
		}
		entries = append(entries, DocPositionsEntry{LocalID: docID, Positions: positions})
	}
	return entries, true, nil
}

// DocFreqEntry is one document's frequency for a looked-up term.
type DocFreqEntry struct {
	LocalID int32
	Freq    int32
}

// DocPositionsEntry is one document's occurrence positions for a
// looked-up term.
type DocPositionsEntry struct {
	LocalID   int32
	Positions []int32
}

func (sr *SegmentReader) Document(localID int32) (*document.Document, error) {
	return sr.stored.Document(localID)
}

// NewTermsCursor opens a fresh terms-stream cursor positioned before
// the first term, for callers that enumerate the whole dictionary
// (the merger, wildcard/range query expansion).
func (sr *SegmentReader) NewTermsCursor() (*Cursor, error) {
	return sr.dict.NewCursor()
}

// CommitDeletions persists this segment's deletion bitvector under a new
// generation and returns the new generation number, or (−1, nil) if
// there is nothing to persist.
func (sr *SegmentReader) CommitDeletions() (int64, error) {
	if sr.deleted == nil || sr.deleted.Count() == 0 {
		return -1, nil
	}
	prevGen := sr.info.DelGen
	gen := prevGen + 1
	name := sr.info.Name + ".del" + store.ToBase36(gen)
	if err := WriteBitVector(sr.dir, name, sr.deleted); err != nil {
		return -1, err
	}
	sr.info.DelGen = gen
	if prevGen >= 0 {
		prevName := sr.info.Name + ".del" + store.ToBase36(prevGen)
		if err := sr.dir.Delete(prevName); err != nil {
			writerLog.Warningf("deleting superseded %s: %v", prevName, err)
		}
	}
	return gen, nil
}

func (sr *SegmentReader) Close() error {
	return nil
}
