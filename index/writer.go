package index

import (
	"math"
	"sort"
	"strings"

	"github.com/op/go-logging"

	"github.com/gosegment/lucene2x/analysis"
	"github.com/gosegment/lucene2x/document"
	"github.com/gosegment/lucene2x/store"
)

var writerLog = logging.MustGetLogger("index")

// WriterConfig tunes the buffering and merge policy a Writer runs.
type WriterConfig struct {
	MaxBufferedDocs int32 // flush to a new segment once the buffer reaches this many documents
	MaxMergeDocs    int32 // merges that would exceed this combined doc count are skipped (0 = unbounded)
	MergeFactor     int32 // number of same-level segments that triggers a merge
	UseCompoundFile bool  // pack each flushed/merged segment's sub-files into a .cfs
}

// DefaultWriterConfig matches the classic Lucene writer defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{MaxBufferedDocs: 10, MaxMergeDocs: 0, MergeFactor: 10, UseCompoundFile: true}
}

// postingEntry is one document's in-memory accumulation for a
// buffered term, built up across repeated occurrences in the same
// document before the term is flushed.
type postingEntry struct {
	docID     int32
	freq      int32
	positions []int32
}

// segmentBuffer accumulates AddDocument calls until flushed into a
// new segment: the field schema discovered so far, each term's
// postings (ascending docID, since documents arrive in id order), the
// stored documents themselves, and a running per-field norm byte
// array.
type segmentBuffer struct {
	fields   *FieldInfos
	docs     []*document.Document
	terms    map[Term]*postingEntryList
	norms    map[int32][]byte
	docCount int32
}

type postingEntryList struct {
	entries []postingEntry
}

func newSegmentBuffer() *segmentBuffer {
	return &segmentBuffer{
		fields: NewFieldInfos(),
		terms:  make(map[Term]*postingEntryList),
		norms:  make(map[int32][]byte),
	}
}

func (b *segmentBuffer) addDocument(doc *document.Document, a analysis.Analyzer) {
	docID := b.docCount
	b.docs = append(b.docs, doc)

	tokenCount := make(map[int32]int)
	boost := make(map[int32]float32)
	for _, f := range doc.Fields() {
		fi := b.fields.Add(f.Name, f.Kind.Indexed(), f.Kind.Tokenized(), f.Kind.Indexed())
		if !f.Kind.Indexed() {
			continue
		}
		var toks []analysis.Token
		if f.Kind.Tokenized() {
			toks = a.Analyze(f.Name, f.Value)
		} else if f.Value != "" {
			toks = []analysis.Token{{Text: f.Value, PositionIncrement: 1}}
		}
		pos := int32(-1)
		for _, t := range toks {
			pos += int32(t.PositionIncrement)
			term := Term{Field: f.Name, Text: t.Text}
			pl := b.terms[term]
			if pl == nil {
				pl = &postingEntryList{}
				b.terms[term] = pl
			}
			if n := len(pl.entries); n > 0 && pl.entries[n-1].docID == docID {
				pl.entries[n-1].freq++
				pl.entries[n-1].positions = append(pl.entries[n-1].positions, pos)
			} else {
				pl.entries = append(pl.entries, postingEntry{docID: docID, freq: 1, positions: []int32{pos}})
			}
		}
		tokenCount[fi.Number] += len(toks)
		if f.Boost != 0 {
			boost[fi.Number] = f.Boost
		}
	}

	for _, name := range b.fields.Names() {
		fi, _ := b.fields.ByName(name)
		if !fi.Indexed {
			continue
		}
		arr := b.norms[fi.Number]
		for int32(len(arr)) < docID {
			arr = append(arr, EncodeNorm(0))
		}
		var normVal float32
		if count := tokenCount[fi.Number]; count > 0 {
			normVal = float32(1.0 / math.Sqrt(float64(count)))
			if fb := boost[fi.Number]; fb != 0 {
				normVal *= fb
			}
		}
		arr = append(arr, EncodeNorm(normVal))
		b.norms[fi.Number] = arr
	}
	b.docCount++
}

// Writer buffers documents in memory, flushes them into new segments,
// merges flushed segments per the configured log-size policy, and
// commits a new segments_N generation.
type Writer struct {
	dir      store.Directory
	analyzer analysis.Analyzer
	cfg      WriterConfig
	sis      *SegmentInfos
	buf      *segmentBuffer
}

// NewWriter acquires the directory's shared read lock (released by
// Close) and opens the latest committed generation, or starts an
// empty generation 0 if the directory holds no index yet.
func NewWriter(dir store.Directory, analyzer analysis.Analyzer, cfg WriterConfig) (*Writer, error) {
	if err := dir.Lock().AcquireRead(); err != nil {
		return nil, err
	}
	gen, err := store.ReadGeneration(dir)
	if err != nil {
		dir.Lock().ReleaseRead()
		return nil, err
	}
	var sis *SegmentInfos
	if gen < 0 {
		sis = &SegmentInfos{}
	} else {
		sis, err = ReadSegmentInfos(dir, store.SegmentsFileName(gen))
		if err != nil {
			dir.Lock().ReleaseRead()
			return nil, err
		}
		sis.Generation = gen
	}
	return &Writer{dir: dir, analyzer: analyzer, cfg: cfg, sis: sis, buf: newSegmentBuffer()}, nil
}

func (w *Writer) Close() error { return w.dir.Lock().ReleaseRead() }

// AddDocument buffers doc, flushing to a new segment once the buffer
// reaches MaxBufferedDocs.
func (w *Writer) AddDocument(doc *document.Document) error {
	w.buf.addDocument(doc, w.analyzer)
	if w.buf.docCount >= w.cfg.MaxBufferedDocs {
		return w.flush()
	}
	return nil
}

// flush writes the current buffer out as a new segment and runs the
// merge policy over the updated segment list.
func (w *Writer) flush() error {
	if w.buf.docCount == 0 {
		return nil
	}
	b := w.buf
	w.buf = newSegmentBuffer()
	name := w.sis.NextSegmentName()
	writerLog.Debugf("flushing %d buffered docs to segment %s", b.docCount, name)

	if err := WriteFieldInfos(w.dir, name+".fnm", b.fields); err != nil {
		return err
	}

	terms := make([]Term, 0, len(b.terms))
	for t := range b.terms {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Less(terms[j]) })

	if err := w.writeTermsAndPostings(name, b, terms); err != nil {
		return err
	}
	if err := w.writeStoredFields(name, b); err != nil {
		return err
	}
	for _, fname := range b.fields.Names() {
		fi, _ := b.fields.ByName(fname)
		if !fi.StoreNorms {
			continue
		}
		if err := WriteFieldNorms(w.dir, NormFileName(name, fi.Number), b.norms[fi.Number]); err != nil {
			return err
		}
	}

	si := &SegmentInfo{Name: name, DocCount: b.docCount, DelGen: -1, DocStoreOffset: noDocStoreOffset, IsCompound: CompoundNo}
	if w.cfg.UseCompoundFile {
		subs := w.segmentSubFileNames(name, b.fields)
		if err := packCompound(w.dir, name, subs); err != nil {
			return err
		}
		si.IsCompound = CompoundYes
	}
	w.sis.Segments = append(w.sis.Segments, si)

	return w.maybeMerge()
}

func (w *Writer) writeTermsAndPostings(name string, b *segmentBuffer, terms []Term) error {
	tis, err := w.dir.Create(name + ".tis")
	if err != nil {
		return err
	}
	defer tis.Close()
	tii, err := w.dir.Create(name + ".tii")
	if err != nil {
		return err
	}
	defer tii.Close()
	frq, err := w.dir.Create(name + ".frq")
	if err != nil {
		return err
	}
	defer frq.Close()
	prx, err := w.dir.Create(name + ".prx")
	if err != nil {
		return err
	}
	defer prx.Close()

	td, err := NewTermDictWriter(tis, tii, DefaultTermIndexInterval)
	if err != nil {
		return err
	}
	pw := NewPostingsWriter(frq, prx)

	for _, t := range terms {
		pl := b.terms[t]
		fi, _ := b.fields.ByName(t.Field)
		freqPointer, proxPointer, err := pw.StartTerm()
		if err != nil {
			return err
		}
		for _, e := range pl.entries {
			if err := pw.AddDoc(e.docID, e.freq, e.positions); err != nil {
				return err
			}
		}
		info := TermInfo{DocFreq: int32(len(pl.entries)), FreqPointer: freqPointer, ProxPointer: proxPointer}
		if err := td.Add(t, fi.Number, info); err != nil {
			return err
		}
	}
	return td.Finish()
}

func (w *Writer) writeStoredFields(name string, b *segmentBuffer) error {
	fdx, err := w.dir.Create(name + ".fdx")
	if err != nil {
		return err
	}
	defer fdx.Close()
	fdt, err := w.dir.Create(name + ".fdt")
	if err != nil {
		return err
	}
	defer fdt.Close()

	sfw := NewStoredFieldsWriter(fdx, fdt, b.fields)
	for _, doc := range b.docs {
		if err := sfw.AddDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) segmentSubFileNames(name string, fields *FieldInfos) []string {
	subs := []string{name + ".fnm", name + ".tis", name + ".tii", name + ".frq", name + ".prx", name + ".fdx", name + ".fdt"}
	for _, fname := range fields.Names() {
		fi, _ := fields.ByName(fname)
		if fi.StoreNorms {
			subs = append(subs, NormFileName(name, fi.Number))
		}
	}
	return subs
}

// packCompound reads subNames fully into memory, packs them into
// name+".cfs", and deletes the plain sub-files once the container is
// written.
func packCompound(dir store.Directory, name string, subNames []string) error {
	files := make([]store.SubFile, 0, len(subNames))
	for _, sub := range subNames {
		r, err := dir.Open(sub, false)
		if err != nil {
			return err
		}
		size, err := dir.Length(sub)
		if err != nil {
			r.Close()
			return err
		}
		body, err := r.ReadBytes(int(size))
		r.Close()
		if err != nil {
			return err
		}
		files = append(files, store.SubFile{Name: sub, Body: body})
	}
	cw := store.NewCompoundFileWriter(dir, name+".cfs")
	if _, err := cw.Write(files); err != nil {
		return err
	}
	for _, sub := range subNames {
		if err := dir.Delete(sub); err != nil {
			return err
		}
	}
	return nil
}

// levelOf buckets docCount into the log-size merge level it falls in:
// level k covers [mergeFactor^k, mergeFactor^(k+1)).
func (w *Writer) levelOf(docCount int32) int {
	if docCount <= 0 || w.cfg.MergeFactor <= 1 {
		return 0
	}
	level := 0
	d := int64(docCount)
	mf := int64(w.cfg.MergeFactor)
	for d >= mf {
		d /= mf
		level++
	}
	return level
}

// findMergeCandidate scans the tail of the segment list for the
// trailing run of segments sharing the same size level, and returns
// the oldest MergeFactor of them — the group positioned where the run
// started — when the run is long enough and small enough to merge.
func (w *Writer) findMergeCandidate() (start, end int, ok bool) {
	if w.cfg.MergeFactor <= 1 {
		// A merge factor this small can never make forward progress: every
		// segment buckets into the same level (levelOf's own guard) and a
		// group of fewer than 2 segments is not a merge.
		return 0, 0, false
	}
	segs := w.sis.Segments
	n := len(segs)
	if n < int(w.cfg.MergeFactor) {
		return 0, 0, false
	}
	level := w.levelOf(segs[n-1].DocCount)
	runStart := n - 1
	for runStart > 0 && w.levelOf(segs[runStart-1].DocCount) == level {
		runStart--
	}
	if n-runStart < int(w.cfg.MergeFactor) {
		return 0, 0, false
	}
	groupStart := runStart
	groupEnd := groupStart + int(w.cfg.MergeFactor)
	var total int32
	for _, si := range segs[groupStart:groupEnd] {
		total += si.DocCount
	}
	if w.cfg.MaxMergeDocs > 0 && total > w.cfg.MaxMergeDocs {
		return 0, 0, false
	}
	return groupStart, groupEnd, true
}

func (w *Writer) maybeMerge() error {
	for {
		start, end, ok := w.findMergeCandidate()
		if !ok {
			return nil
		}
		if err := w.mergeRange(start, end); err != nil {
			return err
		}
	}
}

// Optimize flushes any buffered documents, then repeatedly merges the
// entire segment list — ignoring MaxMergeDocs — until exactly one
// segment remains.
func (w *Writer) Optimize() error {
	if w.buf.docCount > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}
	for len(w.sis.Segments) > 1 {
		if err := w.mergeRange(0, len(w.sis.Segments)); err != nil {
			return err
		}
	}
	return nil
}

// mergeRange merges segments [start,end) into a single new segment
// positioned in their place, dropping deleted documents entirely. If
// every document in the range is deleted, the range is simply
// removed with no replacement.
func (w *Writer) mergeRange(start, end int) error {
	segs := w.sis.Segments[start:end]
	readers := make([]*SegmentReader, len(segs))
	for i, si := range segs {
		r, err := OpenSegmentReader(w.dir, si)
		if err != nil {
			return err
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	base := make([]int32, len(readers))
	var total int32
	for i, r := range readers {
		base[i] = total
		total += r.NumDocs()
	}
	writerLog.Debugf("merging %d segments (%d live docs)", len(segs), total)

	if total == 0 {
		return w.spliceSegments(start, end, nil, segs)
	}

	name := w.sis.NextSegmentName()
	newFields := NewFieldInfos()
	for _, r := range readers {
		for _, fname := range r.GetFields(false) {
			fi, _ := r.GetFieldByName(fname)
			newFields.Add(fname, fi.Indexed, fi.Tokenized, fi.StoreNorms)
		}
	}
	if err := WriteFieldInfos(w.dir, name+".fnm", newFields); err != nil {
		return err
	}
	if err := w.mergeTermsAndPostings(name, newFields, readers, base); err != nil {
		return err
	}
	if err := w.mergeStoredFieldsAndNorms(name, newFields, readers); err != nil {
		return err
	}

	si := &SegmentInfo{Name: name, DocCount: total, DelGen: -1, DocStoreOffset: noDocStoreOffset, IsCompound: CompoundNo}
	if w.cfg.UseCompoundFile {
		subs := w.segmentSubFileNames(name, newFields)
		if err := packCompound(w.dir, name, subs); err != nil {
			return err
		}
		si.IsCompound = CompoundYes
	}

	return w.spliceSegments(start, end, si, segs)
}

func (w *Writer) mergeTermsAndPostings(name string, fields *FieldInfos, readers []*SegmentReader, base []int32) error {
	tis, err := w.dir.Create(name + ".tis")
	if err != nil {
		return err
	}
	defer tis.Close()
	tii, err := w.dir.Create(name + ".tii")
	if err != nil {
		return err
	}
	defer tii.Close()
	frq, err := w.dir.Create(name + ".frq")
	if err != nil {
		return err
	}
	defer frq.Close()
	prx, err := w.dir.Create(name + ".prx")
	if err != nil {
		return err
	}
	defer prx.Close()

	td, err := NewTermDictWriter(tis, tii, DefaultTermIndexInterval)
	if err != nil {
		return err
	}
	pw := NewPostingsWriter(frq, prx)

	tm, err := NewTermMerger(readers, base, true)
	if err != nil {
		return err
	}
	for {
		term, postings, ok, err := tm.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fi, ok := fields.ByName(term.Field)
		if !ok {
			continue
		}
		freqPointer, proxPointer, err := pw.StartTerm()
		if err != nil {
			return err
		}
		for _, p := range postings {
			if err := pw.AddDoc(p.GlobalID, p.Freq, p.Positions); err != nil {
				return err
			}
		}
		info := TermInfo{DocFreq: int32(len(postings)), FreqPointer: freqPointer, ProxPointer: proxPointer}
		if err := td.Add(term, fi.Number, info); err != nil {
			return err
		}
	}
	return td.Finish()
}

func (w *Writer) mergeStoredFieldsAndNorms(name string, fields *FieldInfos, readers []*SegmentReader) error {
	fdx, err := w.dir.Create(name + ".fdx")
	if err != nil {
		return err
	}
	defer fdx.Close()
	fdt, err := w.dir.Create(name + ".fdt")
	if err != nil {
		return err
	}
	defer fdt.Close()
	sfw := NewStoredFieldsWriter(fdx, fdt, fields)

	norms := make(map[int32][]byte)
	for _, r := range readers {
		for old := int32(0); old < r.DocCount(); old++ {
			if r.IsDeleted(old) {
				continue
			}
			doc, err := r.Document(old)
			if err != nil {
				return err
			}
			if err := sfw.AddDocument(doc); err != nil {
				return err
			}
			for _, fname := range fields.Names() {
				fi, _ := fields.ByName(fname)
				if !fi.StoreNorms {
					continue
				}
				b, ok, err := r.RawNormByte(old, fname)
				if err != nil {
					return err
				}
				if !ok {
					b = EncodeNorm(0)
				}
				norms[fi.Number] = append(norms[fi.Number], b)
			}
		}
	}
	for num, bytes := range norms {
		if err := WriteFieldNorms(w.dir, NormFileName(name, num), bytes); err != nil {
			return err
		}
	}
	return nil
}

// spliceSegments replaces segs[start:end] with replacement (or
// nothing, when replacement is nil) and deletes every file the
// replaced segments owned.
func (w *Writer) spliceSegments(start, end int, replacement *SegmentInfo, removed []*SegmentInfo) error {
	next := append([]*SegmentInfo{}, w.sis.Segments[:start]...)
	if replacement != nil {
		next = append(next, replacement)
	}
	next = append(next, w.sis.Segments[end:]...)
	w.sis.Segments = next

	names, err := w.dir.List()
	if err != nil {
		return err
	}
	for _, si := range removed {
		prefix := si.Name + "."
		for _, n := range names {
			if strings.HasPrefix(n, prefix) {
				if err := w.dir.Delete(n); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Commit flushes any buffered documents, then writes a new segments_N
// generation while holding the directory's exclusive write lock.
func (w *Writer) Commit() error {
	if w.buf.docCount > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}
	return w.dir.Lock().WithWriteLock(func() error {
		w.sis.Version++
		gen := w.sis.Generation + 1
		if err := WriteSegmentInfos(w.dir, store.SegmentsFileName(gen), w.sis); err != nil {
			return err
		}
		if err := store.WriteGeneration(w.dir, gen); err != nil {
			return err
		}
		w.sis.Generation = gen
		writerLog.Infof("committed generation %d (%d segments)", gen, len(w.sis.Segments))
		return nil
	})
}
