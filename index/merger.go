package index

import (
	"container/heap"
	"sort"
)

// mergeSource is one input segment's term stream plus the dense
// old-local-id -> new-local-id remap a merge compacts it through:
// deleted documents are dropped entirely rather than carried as gaps,
// so surviving documents from every input segment end up packed into
// a contiguous id range in the merged segment.
type mergeSource struct {
	cursor   *Cursor
	remap    []int32 // remap[oldLocalID] = newLocalID, or -1 if deleted
	postings *PostingsReader

	cur       Term
	curInfo   TermInfo
	exhausted bool
}

// newMergeSource builds sr's remap starting at base (the count of live
// documents contributed by every earlier source in this merge) and
// opens its term cursor.
func newMergeSource(sr *SegmentReader, base int32) (*mergeSource, error) {
	remap := make([]int32, sr.DocCount())
	next := base
	for i := int32(0); i < sr.DocCount(); i++ {
		if sr.IsDeleted(i) {
			remap[i] = -1
			continue
		}
		remap[i] = next
		next++
	}
	cur, err := sr.NewTermsCursor()
	if err != nil {
		return nil, err
	}
	ms := &mergeSource{cursor: cur, remap: remap, postings: sr.postings}
	if err := ms.advance(); err != nil {
		return nil, err
	}
	return ms, nil
}

func (ms *mergeSource) advance() error {
	t, info, ok, err := ms.cursor.Next()
	if err != nil {
		return err
	}
	ms.exhausted = !ok
	ms.cur, ms.curInfo = t, info
	return nil
}

// termHeap is a min-heap of mergeSources ordered by each source's
// current term, the classic Lucene SegmentMergeQueue design: rather
// than sorting the union of every segment's terms up front, pop the
// least current term, merge every source currently positioned on it,
// then advance just those sources and re-heapify.
type termHeap []*mergeSource

func (h termHeap) Len() int            { return len(h) }
func (h termHeap) Less(i, j int) bool  { return h[i].cur.Less(h[j].cur) }
func (h termHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *termHeap) Push(x interface{}) { *h = append(*h, x.(*mergeSource)) }
func (h *termHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergedPosting is one document's postings for the term currently
// being merged, with its local id already translated to the new
// segment's global id space.
type MergedPosting struct {
	GlobalID  int32
	Freq      int32
	Positions []int32
}

// TermMerger walks the union of every input segment reader's term
// dictionary in ascending (field, text) order, yielding one merged
// posting list per distinct term with deleted documents dropped and
// local ids translated into the new segment's id space.
type TermMerger struct {
	h            termHeap
	withPositions bool
}

// NewTermMerger opens a term cursor per reader. base[i] must be the
// sum of every earlier reader's live (non-deleted) document count —
// reader i's first surviving document's id in the merged segment.
// withPositions controls whether positions are decoded alongside
// frequencies.
func NewTermMerger(readers []*SegmentReader, base []int32, withPositions bool) (*TermMerger, error) {
	tm := &TermMerger{withPositions: withPositions}
	for i, sr := range readers {
		ms, err := newMergeSource(sr, base[i])
		if err != nil {
			return nil, err
		}
		if !ms.exhausted {
			tm.h = append(tm.h, ms)
		}
	}
	heap.Init(&tm.h)
	return tm, nil
}

// Next returns the next distinct term across every input segment,
// along with its merged, deletion-filtered, globally-numbered posting
// list, in ascending global-id order. ok is false once every input
// segment is exhausted.
func (tm *TermMerger) Next() (term Term, postings []MergedPosting, ok bool, err error) {
	if tm.h.Len() == 0 {
		return Term{}, nil, false, nil
	}
	term = tm.h[0].cur

	var matched []*mergeSource
	for tm.h.Len() > 0 && tm.h[0].cur == term {
		matched = append(matched, tm.h[0])
		heap.Pop(&tm.h)
	}

	for _, ms := range matched {
		p, err := tm.readPostings(ms)
		if err != nil {
			return Term{}, nil, false, err
		}
		postings = append(postings, p...)

		if err := ms.advance(); err != nil {
			return Term{}, nil, false, err
		}
		if !ms.exhausted {
			heap.Push(&tm.h, ms)
		}
	}

	// Merged-postings order must stay ascending by global id: sources
	// were drained in heap order (ascending current term), not
	// ascending base, so sort explicitly when more than one matched.
	if len(matched) > 1 {
		sortMergedPostings(postings)
	}
	return term, postings, true, nil
}

func (tm *TermMerger) readPostings(ms *mergeSource) ([]MergedPosting, error) {
	var out []MergedPosting
	if tm.withPositions {
		enum, err := ms.postings.OpenPositions(ms.curInfo)
		if err != nil {
			return nil, err
		}
		defer enum.Close()
		for {
			docID, positions, more, err := enum.Next()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
			newID := ms.remap[docID]
			if newID < 0 {
				continue
			}
			out = append(out, MergedPosting{GlobalID: newID, Positions: positions, Freq: int32(len(positions))})
		}
		return out, nil
	}
	enum, err := ms.postings.OpenDocs(ms.curInfo)
	if err != nil {
		return nil, err
	}
	defer enum.Close()
	for {
		docID, freq, more, err := enum.Next()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		newID := ms.remap[docID]
		if newID < 0 {
			continue
		}
		out = append(out, MergedPosting{GlobalID: newID, Freq: freq})
	}
	return out, nil
}

func sortMergedPostings(p []MergedPosting) {
	sort.Slice(p, func(i, j int) bool { return p[i].GlobalID < p[j].GlobalID })
}
