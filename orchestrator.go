// Package lucene2x binds the on-disk segmented storage model, the
// query language, and the document model into one read/write handle:
// open a directory, run queries against it, add and delete documents,
// commit. Grounded on the per-segment facades in package index and the
// query pipeline in package search; the teacher carries no equivalent
// top-level binder (its demo mains wire stores/readers/searchers
// together ad hoc per program), so this orchestration is built fresh
// in the teacher's receiver-method style rather than adapted from a
// specific file.
package lucene2x

import (
	"container/heap"
	"sort"

	"github.com/gosegment/lucene2x/analysis"
	"github.com/gosegment/lucene2x/document"
	"github.com/gosegment/lucene2x/index"
	"github.com/gosegment/lucene2x/search"
	"github.com/gosegment/lucene2x/store"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("lucene2x")

// Config bundles everything an IndexOrchestrator needs beyond the
// directory itself: the analyzer used for both indexing and the query
// parser's rewrite-time tokenization, the writer's buffering/merge
// tuning, and the query language's parser/scoring tuning. A single
// value constructed by the caller and passed at Open, never a
// package-level singleton.
type Config struct {
	Analyzer analysis.Analyzer
	Writer   index.WriterConfig
	Search   search.Config
}

// DefaultConfig returns the classic defaults: a stop-word-filtering
// analyzer, the writer's classic buffering/merge numbers, and an
// OR-combining, suppress-mode-on query parser.
func DefaultConfig() Config {
	return Config{
		Analyzer: analysis.DefaultAnalyzer,
		Writer:   index.DefaultWriterConfig(),
		Search:   search.DefaultConfig(),
	}
}

// IndexOrchestrator is the single read/write handle onto one Lucene
// directory: find/getDocument/termDocs and friends read the
// currently-open generation's segment readers; buffered addDocument
// calls and optimize go through an index.Writer opened for the
// operation, while delete marks documents in the open segment readers
// and commit persists those marks as a new generation. The reader set
// is reloaded after optimize and after a commit that flushed documents.
type IndexOrchestrator struct {
	dir  store.Directory
	owns bool
	cfg  Config

	sis     *index.SegmentInfos
	readers []*index.SegmentReader
	bases   []int32 // bases[i] = global id of readers[i]'s first document

	pendingDocs []*document.Document
	dirty       map[int]bool // segment indices with an uncommitted Delete
}

// Open acquires dir's shared read lock, reads the latest committed
// generation (or starts an empty one if dir holds no index yet), and
// materializes a SegmentReader per listed segment in list order. owns
// controls whether Close also closes dir.
func Open(dir store.Directory, cfg Config, owns bool) (*IndexOrchestrator, error) {
	if err := dir.Lock().AcquireRead(); err != nil {
		return nil, err
	}
	o := &IndexOrchestrator{dir: dir, owns: owns, cfg: cfg, dirty: make(map[int]bool)}
	if err := o.reload(); err != nil {
		dir.Lock().ReleaseRead()
		return nil, err
	}
	return o, nil
}

// reload (re)reads the current generation's segment list and opens a
// fresh SegmentReader per segment, closing whatever readers were open
// before. Called at Open, after Optimize, and after a Commit that
// flushed buffered documents; a Commit of deletions alone does not
// reload.
func (o *IndexOrchestrator) reload() error {
	gen, err := store.ReadGeneration(o.dir)
	if err != nil {
		return err
	}
	var sis *index.SegmentInfos
	if gen < 0 {
		sis = &index.SegmentInfos{Generation: -1}
	} else {
		sis, err = index.ReadSegmentInfos(o.dir, store.SegmentsFileName(gen))
		if err != nil {
			return err
		}
		sis.Generation = gen
	}

	readers := make([]*index.SegmentReader, len(sis.Segments))
	bases := make([]int32, len(sis.Segments))
	base := int32(0)
	for i, si := range sis.Segments {
		sr, err := index.OpenSegmentReader(o.dir, si)
		if err != nil {
			for _, opened := range readers[:i] {
				opened.Close()
			}
			return err
		}
		readers[i] = sr
		bases[i] = base
		base += si.DocCount
	}

	for _, old := range o.readers {
		old.Close()
	}
	o.sis, o.readers, o.bases = sis, readers, bases
	o.dirty = make(map[int]bool)
	return nil
}

// localOf translates a global document id into its owning segment's
// index and local id, or ok=false when globalID is out of range.
func (o *IndexOrchestrator) localOf(globalID int32) (segIdx int, localID int32, ok bool) {
	for i, b := range o.bases {
		end := b + o.readers[i].DocCount()
		if globalID >= b && globalID < end {
			return i, globalID - b, true
		}
	}
	return 0, 0, false
}

// MaxDoc is the exclusive upper bound of the global id space: the sum
// of every live segment's DocCount, deleted documents included.
func (o *IndexOrchestrator) MaxDoc() int32 {
	var n int32
	for _, sr := range o.readers {
		n += sr.DocCount()
	}
	return n
}

// NumDocs is the live (non-deleted) document count.
func (o *IndexOrchestrator) NumDocs() int32 {
	var n int32
	for _, sr := range o.readers {
		n += sr.NumDocs()
	}
	return n
}

// Count is an alias for NumDocs, matching the orchestrator's documented
// count() operation.
func (o *IndexOrchestrator) Count() int32 { return o.NumDocs() }

func (o *IndexOrchestrator) HasDeletions() bool {
	for _, sr := range o.readers {
		if sr.HasDeletions() {
			return true
		}
	}
	return false
}

func (o *IndexOrchestrator) GetGeneration() int64 { return o.sis.Generation }

// GetFieldNames lists every indexed field across every open segment,
// in first-seen order.
func (o *IndexOrchestrator) GetFieldNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, sr := range o.readers {
		for _, name := range sr.GetFields(true) {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// FieldNames satisfies search.Index; it is just GetFieldNames under the
// name the query pipeline's Index interface expects.
func (o *IndexOrchestrator) FieldNames() []string { return o.GetFieldNames() }

// GetDocument returns the stored fields of globalID.
func (o *IndexOrchestrator) GetDocument(globalID int32) (*document.Document, error) {
	segIdx, localID, ok := o.localOf(globalID)
	if !ok {
		return nil, store.New(store.OutOfRange, "document id %d is out of range (maxDoc %d)", globalID, o.MaxDoc())
	}
	return o.readers[segIdx].Document(localID)
}

// IsDeleted reports whether globalID is currently marked deleted.
func (o *IndexOrchestrator) IsDeleted(globalID int32) (bool, error) {
	segIdx, localID, ok := o.localOf(globalID)
	if !ok {
		return false, store.New(store.OutOfRange, "document id %d is out of range (maxDoc %d)", globalID, o.MaxDoc())
	}
	return o.readers[segIdx].IsDeleted(localID), nil
}

// HasTerm reports whether (field, text) appears verbatim in the term
// dictionary of any open segment; documents marked deleted still count.
func (o *IndexOrchestrator) HasTerm(field, text string) (bool, error) {
	t := index.Term{Field: field, Text: text}
	for _, sr := range o.readers {
		if _, ok, err := sr.GetTermInfo(t); err != nil {
			return false, err
		} else if ok {
			return true, nil
		}
	}
	return false, nil
}

// DocFreq is the live document count (field, text) appears in, summed
// across every open segment.
func (o *IndexOrchestrator) DocFreq(field, text string) (int32, error) {
	t := index.Term{Field: field, Text: text}
	var df int32
	for _, sr := range o.readers {
		entries, ok, err := sr.TermDocs(t)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		for _, e := range entries {
			if !sr.IsDeleted(e.LocalID) {
				df++
			}
		}
	}
	return df, nil
}

// Postings returns every live document's (globalID, freq[, positions])
// for (field, text), ascending by globalID. Global ids follow the
// orchestrator's fixed per-generation numbering (segment base + local
// id); deleted documents are simply omitted, not renumbered — only a
// merge renumbers.
func (o *IndexOrchestrator) Postings(field, text string, withPositions bool) ([]search.Posting, error) {
	t := index.Term{Field: field, Text: text}
	var out []search.Posting
	for i, sr := range o.readers {
		base := o.bases[i]
		if withPositions {
			entries, ok, err := sr.TermPositions(t)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			for _, e := range entries {
				if sr.IsDeleted(e.LocalID) {
					continue
				}
				out = append(out, search.Posting{
					DocID:     base + e.LocalID,
					Freq:      int32(len(e.Positions)),
					Positions: e.Positions,
				})
			}
			continue
		}
		entries, ok, err := sr.TermDocs(t)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, e := range entries {
			if sr.IsDeleted(e.LocalID) {
				continue
			}
			out = append(out, search.Posting{DocID: base + e.LocalID, Freq: e.Freq})
		}
	}
	return out, nil
}

// Norm returns the decoded length-normalization factor for globalID in
// field.
func (o *IndexOrchestrator) Norm(globalID int32, field string) (float32, error) {
	segIdx, localID, ok := o.localOf(globalID)
	if !ok {
		return 0, store.New(store.OutOfRange, "document id %d is out of range (maxDoc %d)", globalID, o.MaxDoc())
	}
	return o.readers[segIdx].Norm(localID, field)
}

// Analyze tokenizes text the way field is analyzed at index time,
// returning just the token text (the search package's rewrite pass has
// no use for position increments).
func (o *IndexOrchestrator) Analyze(field, text string) []string {
	toks := o.cfg.Analyzer.Analyze(field, text)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

// Terms opens a cursor over the union of every open segment's term
// dictionary, in ascending (field, text) order with no duplicates.
func (o *IndexOrchestrator) Terms() (search.TermCursor, error) {
	return newUnionCursor(o.readers)
}

// termSource is one segment's term-dictionary cursor, parked on its
// current term, feeding a termUnionHeap the same way mergeSource feeds
// index.TermMerger's heap — this cursor only needs field/text, not
// TermInfo, since postings are looked up per-term elsewhere.
type termSource struct {
	cur       *index.Cursor
	field     string
	text      string
	exhausted bool
}

func newTermSource(sr *index.SegmentReader) (*termSource, error) {
	cur, err := sr.NewTermsCursor()
	if err != nil {
		return nil, err
	}
	ts := &termSource{cur: cur}
	if err := ts.advance(); err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *termSource) advance() error {
	t, _, ok, err := ts.cur.Next()
	if err != nil {
		return err
	}
	ts.exhausted = !ok
	ts.field, ts.text = t.Field, t.Text
	return nil
}

func (ts *termSource) skipTo(field, text string) error {
	t, _, ok, err := ts.cur.SkipTo(index.Term{Field: field, Text: text})
	if err != nil {
		return err
	}
	ts.exhausted = !ok
	ts.field, ts.text = t.Field, t.Text
	return nil
}

type termUnionHeap []*termSource

func (h termUnionHeap) Len() int { return len(h) }
func (h termUnionHeap) Less(i, j int) bool {
	if h[i].field != h[j].field {
		return h[i].field < h[j].field
	}
	return h[i].text < h[j].text
}
func (h termUnionHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *termUnionHeap) Push(x interface{}) { *h = append(*h, x.(*termSource)) }
func (h *termUnionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// unionCursor implements search.TermCursor over the live heap of
// per-segment termSources, draining the least current (field, text)
// each step and advancing — and discarding — every source currently
// sitting on it, so a term present in several segments surfaces once.
type unionCursor struct {
	h termUnionHeap
}

func newUnionCursor(readers []*index.SegmentReader) (*unionCursor, error) {
	uc := &unionCursor{}
	for _, sr := range readers {
		ts, err := newTermSource(sr)
		if err != nil {
			return nil, err
		}
		if !ts.exhausted {
			uc.h = append(uc.h, ts)
		}
	}
	heap.Init(&uc.h)
	return uc, nil
}

func (uc *unionCursor) Next() (field, text string, ok bool, err error) {
	if uc.h.Len() == 0 {
		return "", "", false, nil
	}
	field, text = uc.h[0].field, uc.h[0].text
	var matched []*termSource
	for uc.h.Len() > 0 && uc.h[0].field == field && uc.h[0].text == text {
		matched = append(matched, uc.h[0])
		heap.Pop(&uc.h)
	}
	for _, ts := range matched {
		if err := ts.advance(); err != nil {
			return "", "", false, err
		}
		if !ts.exhausted {
			heap.Push(&uc.h, ts)
		}
	}
	return field, text, true, nil
}

func (uc *unionCursor) SkipTo(field, text string) (rfield, rtext string, ok bool, err error) {
	// Rebuild the heap from every source skipped to >= (field, text);
	// simpler than trying to skip in place mid-heap, and SkipTo is only
	// used to seed a wildcard/range/fuzzy scan, not hot per-document path.
	var fresh termUnionHeap
	for _, ts := range uc.h {
		if err := ts.skipTo(field, text); err != nil {
			return "", "", false, err
		}
		if !ts.exhausted {
			fresh = append(fresh, ts)
		}
	}
	uc.h = fresh
	heap.Init(&uc.h)
	return uc.Next()
}

// AddDocument buffers doc; it is analyzed and written to a segment at
// the next Commit.
func (o *IndexOrchestrator) AddDocument(doc *document.Document) {
	o.pendingDocs = append(o.pendingDocs, doc)
}

// Delete marks globalID deleted. The deletion is only durable after
// Commit. Returns false if globalID was already deleted.
func (o *IndexOrchestrator) Delete(globalID int32) (bool, error) {
	segIdx, localID, ok := o.localOf(globalID)
	if !ok {
		return false, store.New(store.OutOfRange, "document id %d is out of range (maxDoc %d)", globalID, o.MaxDoc())
	}
	newlyDeleted := o.readers[segIdx].Delete(localID)
	if newlyDeleted {
		o.dirty[segIdx] = true
	}
	return newlyDeleted, nil
}

// Commit persists pending deletions (if any) as their own generation,
// then flushes and commits any buffered AddDocument calls through a
// fresh index.Writer opened only once deletions have already landed —
// the writer always reads the current generation off disk, so it never
// works from a stale, pre-deletion segment-info snapshot. Either half
// is a no-op if there is nothing pending on that side.
func (o *IndexOrchestrator) Commit() error {
	if len(o.dirty) > 0 {
		for segIdx := range o.dirty {
			if _, err := o.readers[segIdx].CommitDeletions(); err != nil {
				return err
			}
		}
		prevGen := o.sis.Generation
		if err := o.dir.Lock().WithWriteLock(func() error {
			o.sis.Version++
			gen := o.sis.Generation + 1
			if err := index.WriteSegmentInfos(o.dir, store.SegmentsFileName(gen), o.sis); err != nil {
				return err
			}
			if err := store.WriteGeneration(o.dir, gen); err != nil {
				return err
			}
			o.sis.Generation = gen
			return nil
		}); err != nil {
			return err
		}
		// The new generation's segments_N is now the witnessed commit
		// point; the superseded one is no longer reachable from
		// segments.gen, so it is safe to remove.
		if prevName := store.SegmentsFileName(prevGen); o.dir.Exists(prevName) {
			if err := o.dir.Delete(prevName); err != nil {
				log.Warningf("deleting superseded %s: %v", prevName, err)
			}
		}
		log.Infof("committed %d segment deletion(s) at generation %d", len(o.dirty), o.sis.Generation)
		o.dirty = make(map[int]bool)
	}

	if len(o.pendingDocs) > 0 {
		w, err := index.NewWriter(o.dir, o.cfg.Analyzer, o.cfg.Writer)
		if err != nil {
			return err
		}
		for _, doc := range o.pendingDocs {
			if err := w.AddDocument(doc); err != nil {
				w.Close()
				return err
			}
		}
		if err := w.Commit(); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		log.Infof("committed %d buffered document(s)", len(o.pendingDocs))
		o.pendingDocs = nil
	} else if len(o.dirty) == 0 {
		return nil
	}

	return o.reload()
}

// Optimize commits any pending mutations, then merges every segment
// into one.
func (o *IndexOrchestrator) Optimize() error {
	if err := o.Commit(); err != nil {
		return err
	}
	w, err := index.NewWriter(o.dir, o.cfg.Analyzer, o.cfg.Writer)
	if err != nil {
		return err
	}
	if err := w.Optimize(); err != nil {
		w.Close()
		return err
	}
	if err := w.Commit(); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return o.reload()
}

// SortField is one user-supplied tiebreak key for Find's result
// ordering: ascending unless Desc is set.
type SortField struct {
	Name string
	Desc bool
}

// Hit is one scored, ordered result from Find.
type Hit struct {
	DocID int32
	Score float64
}

// Find runs raw through the parser, rewrite, optimize and execute
// passes against this orchestrator's current generation, keeps only
// positive-scoring hits, truncates to Search.ResultLimit when it is
// nonzero, and only then orders them by score descending then id
// ascending (or by the caller's sortFields, id-ascending tiebreak).
func (o *IndexOrchestrator) Find(raw string, sortFields ...SortField) ([]Hit, error) {
	q, err := search.Parse(raw, o.cfg.Search)
	if err != nil {
		return nil, err
	}
	q, err = search.Rewrite(q, o, o.cfg.Search)
	if err != nil {
		return nil, err
	}
	q = search.Optimize(q)
	rv, err := search.Execute(q, o)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(rv.Docs))
	maxScore := 0.0
	for _, d := range rv.Docs {
		s := rv.Scores[d]
		if s <= 0 {
			continue
		}
		if s > maxScore {
			maxScore = s
		}
		hits = append(hits, Hit{DocID: d, Score: s})
	}
	if maxScore > 1 {
		for i := range hits {
			hits[i].Score /= maxScore
		}
	}

	if limit := o.cfg.Search.ResultLimit; limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	if len(sortFields) == 0 {
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].Score != hits[j].Score {
				return hits[i].Score > hits[j].Score
			}
			return hits[i].DocID < hits[j].DocID
		})
		return hits, nil
	}

	less, err := o.sortFieldsLess(hits, sortFields)
	if err != nil {
		return nil, err
	}
	sort.Slice(hits, less)
	return hits, nil
}

// sortFieldsLess builds a sort.Slice comparator over hits' stored field
// values for the requested sort fields, falling back to ascending id on
// a full tie. An unknown field name is a Runtime error, matching the
// documented "Wrong field name." behavior.
func (o *IndexOrchestrator) sortFieldsLess(hits []Hit, sortFields []SortField) (func(i, j int) bool, error) {
	known := make(map[string]bool)
	for _, name := range o.GetFieldNames() {
		known[name] = true
	}
	for _, sf := range sortFields {
		if !known[sf.Name] {
			return nil, store.New(store.Runtime, "Wrong field name.")
		}
	}
	values := make([]map[string]string, len(hits))
	for i, h := range hits {
		doc, err := o.GetDocument(h.DocID)
		if err != nil {
			return nil, err
		}
		v := make(map[string]string, len(sortFields))
		for _, sf := range sortFields {
			v[sf.Name] = doc.Get(sf.Name)
		}
		values[i] = v
	}
	return func(i, j int) bool {
		for _, sf := range sortFields {
			vi, vj := values[i][sf.Name], values[j][sf.Name]
			if vi != vj {
				if sf.Desc {
					return vi > vj
				}
				return vi < vj
			}
		}
		return hits[i].DocID < hits[j].DocID
	}, nil
}

// Close commits any pending mutations, releases the shared read lock,
// and — if this orchestrator owns dir — closes it.
func (o *IndexOrchestrator) Close() error {
	commitErr := o.Commit()
	for _, sr := range o.readers {
		sr.Close()
	}
	releaseErr := o.dir.Lock().ReleaseRead()
	if commitErr != nil {
		return commitErr
	}
	if releaseErr != nil {
		return releaseErr
	}
	if o.owns {
		return o.dir.Close()
	}
	return nil
}
