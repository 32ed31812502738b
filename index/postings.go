package index

import "github.com/gosegment/lucene2x/store"

// PostingsWriter appends one term's posting list to .frq (and,
// optionally, its positions to .prx) in ascending local-doc-id order.
// Each stream is delta-encoded against the previous entry written for
// the current term: docDelta since the last doc, and, per position,
// the gap since the previous position in that doc.
//
// In-postings skip lists are not produced; the skipOffset field
// TermInfo carries is always written as 0 (see DESIGN.md) — the only
// skip structure this format defines is the .tii-over-.tis index
// itself (index/termdict.go).
type PostingsWriter struct {
	frq, prx store.Writer
	lastDoc  int32
}

func NewPostingsWriter(frq, prx store.Writer) *PostingsWriter {
	return &PostingsWriter{frq: frq, prx: prx}
}

// StartTerm resets the per-term doc delta base and returns the current
// .frq/.prx stream positions, to be recorded as TermInfo.FreqPointer /
// TermInfo.ProxPointer. Call once before writing a new term's postings.
func (w *PostingsWriter) StartTerm() (freqPointer, proxPointer int64, err error) {
	w.lastDoc = 0
	freqPointer, err = w.frq.Tell()
	if err != nil {
		return 0, 0, err
	}
	if w.prx != nil {
		proxPointer, err = w.prx.Tell()
		if err != nil {
			return 0, 0, err
		}
	}
	return freqPointer, proxPointer, nil
}

// AddDoc appends one document's posting for the current term: its
// local id (ascending, greater than every previously added doc for
// this term), its frequency, and — when positions is non-nil — the
// positions it occurred at, ascending.
func (w *PostingsWriter) AddDoc(docID, freq int32, positions []int32) error {
	if err := w.frq.WriteVInt(docID - w.lastDoc); err != nil {
		return err
	}
	w.lastDoc = docID
	if err := w.frq.WriteVInt(freq); err != nil {
		return err
	}
	if w.prx == nil {
		return nil
	}
	lastPos := int32(0)
	for _, p := range positions {
		if err := w.prx.WriteVInt(p - lastPos); err != nil {
			return err
		}
		lastPos = p
	}
	return nil
}

// PostingsReader opens a fresh, independently-cursored stream over a
// segment's .frq/.prx for each lookup, the same "non-shared reader
// gets its own cursor" contract the storage model gives every other
// reader, so concurrent decodes for different terms never interfere.
type PostingsReader struct {
	dir              store.Directory
	frqName, prxName string
}

func NewPostingsReader(dir store.Directory, frqName, prxName string) *PostingsReader {
	return &PostingsReader{dir: dir, frqName: frqName, prxName: prxName}
}

// DocsEnum iterates (docID, freq) pairs for one term, consuming .frq
// only — the cursor backing termDocs/termFreqs.
type DocsEnum struct {
	r         store.Reader
	lastDoc   int32
	remaining int32
}

// OpenDocs starts a DocsEnum over info's posting list.
func (pr *PostingsReader) OpenDocs(info TermInfo) (*DocsEnum, error) {
	r, err := pr.dir.Open(pr.frqName, false)
	if err != nil {
		return nil, err
	}
	if err := r.Seek(info.FreqPointer, store.SeekSet); err != nil {
		r.Close()
		return nil, err
	}
	return &DocsEnum{r: r, remaining: info.DocFreq}, nil
}

func (e *DocsEnum) Close() error { return e.r.Close() }

// Next decodes the next (docID, freq) pair, reporting ok=false once
// every posting for this term has been consumed.
func (e *DocsEnum) Next() (docID, freq int32, ok bool, err error) {
	if e.remaining <= 0 {
		return 0, 0, false, nil
	}
	delta, err := e.r.ReadVInt()
	if err != nil {
		return 0, 0, false, err
	}
	e.lastDoc += delta
	freq, err = e.r.ReadVInt()
	if err != nil {
		return 0, 0, false, err
	}
	e.remaining--
	return e.lastDoc, freq, true, nil
}

// PositionsEnum iterates (docID, positions) pairs for one term,
// consuming .frq and .prx in lockstep — the cursor backing
// termPositions and phrase-query matching.
type PositionsEnum struct {
	frq, prx  store.Reader
	lastDoc   int32
	remaining int32
}

// OpenPositions starts a PositionsEnum over info's posting list.
func (pr *PostingsReader) OpenPositions(info TermInfo) (*PositionsEnum, error) {
	frq, err := pr.dir.Open(pr.frqName, false)
	if err != nil {
		return nil, err
	}
	if err := frq.Seek(info.FreqPointer, store.SeekSet); err != nil {
		frq.Close()
		return nil, err
	}
	prx, err := pr.dir.Open(pr.prxName, false)
	if err != nil {
		frq.Close()
		return nil, err
	}
	if err := prx.Seek(info.ProxPointer, store.SeekSet); err != nil {
		frq.Close()
		prx.Close()
		return nil, err
	}
	return &PositionsEnum{frq: frq, prx: prx, remaining: info.DocFreq}, nil
}

func (e *PositionsEnum) Close() error {
	err1 := e.frq.Close()
	err2 := e.prx.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Next decodes the next (docID, positions) pair.
func (e *PositionsEnum) Next() (docID int32, positions []int32, ok bool, err error) {
	if e.remaining <= 0 {
		return 0, nil, false, nil
	}
	delta, err := e.frq.ReadVInt()
	if err != nil {
		return 0, nil, false, err
	}
	e.lastDoc += delta
	freq, err := e.frq.ReadVInt()
	if err != nil {
		return 0, nil, false, err
	}
	positions = make([]int32, freq)
	pos := int32(0)
	for i := int32(0); i < freq; i++ {
		d, err := e.prx.ReadVInt()
		if err != nil {
			return 0, nil, false, err
		}
		pos += d
		positions[i] = pos
	}
	e.remaining--
	return e.lastDoc, positions, true, nil
}
