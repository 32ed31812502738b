package index

import (
	"sort"

	"github.com/gosegment/lucene2x/store"
)

// DefaultTermIndexInterval is the default skip interval between .tii
// index entries.
const DefaultTermIndexInterval = 128

// TermDictWriter writes the .tis detail file and its .tii skip index in
// lockstep as terms arrive in ascending (field, text) order. Every
// interval'th term is written to .tis as a full term, with no prefix
// sharing against its predecessor, so a reader can seek .tii, jump
// straight into .tis at the recorded pointer, and decode forward
// without needing the term that came before the jump target.
type TermDictWriter struct {
	tis, tii store.Writer
	interval int
	count    int

	lastTis     Term
	lastTisInfo TermInfo
	haveLastTis bool

	lastTii     Term
	lastTiiInfo TermInfo
	haveLastTii bool
}

// NewTermDictWriter writes a one-VInt header (the skip interval) to
// each of tis and tii, then prepares to accept terms in ascending
// order. Both headers let a reader recover the interval without a
// side channel, and mark where the first real term entry begins.
func NewTermDictWriter(tis, tii store.Writer, interval int) (*TermDictWriter, error) {
	if interval <= 0 {
		interval = DefaultTermIndexInterval
	}
	if err := tis.WriteVInt(int32(interval)); err != nil {
		return nil, err
	}
	if err := tii.WriteVInt(int32(interval)); err != nil {
		return nil, err
	}
	return &TermDictWriter{tis: tis, tii: tii, interval: interval}, nil
}

// Add appends one term; fieldNum must be its FieldInfo.Number. Terms
// must arrive in ascending (field, text) order.
func (w *TermDictWriter) Add(term Term, fieldNum int32, info TermInfo) error {
	isIndexed := w.count%w.interval == 0

	if isIndexed {
		tisPointer, err := w.tis.Tell()
		if err != nil {
			return err
		}
		if err := writeTermEntry(w.tii, term, fieldNum, info, w.lastTii, w.lastTiiInfo, w.haveLastTii, true); err != nil {
			return err
		}
		if err := w.tii.WriteVLong(tisPointer); err != nil {
			return err
		}
		w.lastTii, w.lastTiiInfo, w.haveLastTii = term, info, true

		// Full term in .tis at this boundary (no prefix sharing), so a
		// reader that seeks straight here needs no earlier context.
		if err := writeTermEntry(w.tis, term, fieldNum, info, Term{}, TermInfo{}, false, false); err != nil {
			return err
		}
	} else {
		if err := writeTermEntry(w.tis, term, fieldNum, info, w.lastTis, w.lastTisInfo, w.haveLastTis, true); err != nil {
			return err
		}
	}
	w.lastTis, w.lastTisInfo, w.haveLastTis = term, info, true
	w.count++
	return nil
}

// Count returns the number of terms written so far.
func (w *TermDictWriter) Count() int { return w.count }

// sharedPrefixLen returns the number of leading bytes a and b share.
func sharedPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// writeTermEntry encodes one {VInt prefixShared, String suffix, VInt
// fieldNum, VInt docFreq, VInt freqPointerDelta, VInt proxPointerDelta,
// VInt skipOffset} record. The .tii entry's absolute .tis pointer is
// appended by the caller since only .tii carries it. When havePrev is false the
// term is written in full (prefixShared=0).
func writeTermEntry(w store.Writer, term Term, fieldNum int32, info TermInfo, prev Term, prevInfo TermInfo, havePrev, deltaPointers bool) error {
	prefixShared := 0
	if havePrev {
		prefixShared = sharedPrefixLen(prev.Text, term.Text)
	}
	if err := w.WriteVInt(int32(prefixShared)); err != nil {
		return err
	}
	if err := w.WriteString(term.Text[prefixShared:]); err != nil {
		return err
	}
	if err := w.WriteVInt(fieldNum); err != nil {
		return err
	}
	if err := w.WriteVInt(info.DocFreq); err != nil {
		return err
	}
	freqDelta := info.FreqPointer
	proxDelta := info.ProxPointer
	if deltaPointers && havePrev {
		freqDelta = info.FreqPointer - prevInfo.FreqPointer
		proxDelta = info.ProxPointer - prevInfo.ProxPointer
	}
	if err := w.WriteVLong(freqDelta); err != nil {
		return err
	}
	if err := w.WriteVLong(proxDelta); err != nil {
		return err
	}
	if err := w.WriteVInt(info.SkipOffset); err != nil {
		return err
	}
	return nil
}

// termStreamEnd is a sentinel written in place of a real prefixShared
// VInt to mark the end of a .tis or .tii term stream, letting readers
// distinguish a clean end of terms from truncation without needing an
// upfront term count.
const termStreamEnd = int32(-1)

func writeTermStreamEnd(w store.Writer) error {
	return w.WriteVInt(termStreamEnd)
}

// Finish writes the end-of-stream sentinel to both the .tis and .tii
// streams. The underlying store.Writer values are left open; the
// caller closes them.
func (w *TermDictWriter) Finish() error {
	if err := writeTermStreamEnd(w.tis); err != nil {
		return err
	}
	return writeTermStreamEnd(w.tii)
}

// readTermEntry is writeTermEntry's inverse; it needs prev/prevInfo
// only when the caller tracks delta-encoded frq/prx pointers (.tis
// non-boundary entries).
func readTermEntry(r store.Reader, prevFieldText string, prev TermInfo, havePrev, deltaPointers bool) (text string, fieldNum int32, info TermInfo, end bool, err error) {
	prefixShared, err := r.ReadVInt()
	if err != nil {
		return "", 0, TermInfo{}, false, err
	}
	if prefixShared == termStreamEnd {
		return "", 0, TermInfo{}, true, nil
	}
	suffix, err := r.ReadString()
	if err != nil {
		return "", 0, TermInfo{}, false, err
	}
	text = prevFieldText[:prefixShared] + suffix
	fieldNum, err = r.ReadVInt()
	if err != nil {
		return "", 0, TermInfo{}, false, err
	}
	info.DocFreq, err = r.ReadVInt()
	if err != nil {
		return "", 0, TermInfo{}, false, err
	}
	freqDelta, err := r.ReadVLong()
	if err != nil {
		return "", 0, TermInfo{}, false, err
	}
	proxDelta, err := r.ReadVLong()
	if err != nil {
		return "", 0, TermInfo{}, false, err
	}
	info.SkipOffset, err = r.ReadVInt()
	if err != nil {
		return "", 0, TermInfo{}, false, err
	}
	info.FreqPointer = freqDelta
	info.ProxPointer = proxDelta
	if deltaPointers && havePrev {
		info.FreqPointer = prev.FreqPointer + freqDelta
		info.ProxPointer = prev.ProxPointer + proxDelta
	}
	return text, fieldNum, info, false, nil
}

// TermDict is an opened term dictionary: the .tii index fully resident
// in memory plus a fresh .tis reader for seeking and forward scanning.
type TermDict struct {
	fields   *FieldInfos
	tisName  string
	dir      store.Directory
	interval int

	index []tiiEntry // ascending by (field, text)
}

type tiiEntry struct {
	Term       Term
	FieldNum   int32
	Info       TermInfo
	TisPointer int64
}

// OpenTermDict reads name+".tii" fully into memory and prepares to open
// fresh readers of name+".tis" for lookups and iteration.
func OpenTermDict(dir store.Directory, tisName, tiiName string, fields *FieldInfos) (*TermDict, error) {
	r, err := dir.Open(tiiName, false)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	interval, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}

	td := &TermDict{fields: fields, tisName: tisName, dir: dir, interval: int(interval)}

	var last Term
	var lastInfo TermInfo
	have := false
	for {
		prevText := ""
		if have {
			prevText = last.Text
		}
		text, fieldNum, info, end, err := readTermEntry(r, prevText, lastInfo, have, true)
		if err != nil {
			return nil, err
		}
		if end {
			break
		}
		fi, _ := fields.ByNumber(fieldNum)
		fieldName := ""
		if fi != nil {
			fieldName = fi.Name
		}
		tisPointer, err := r.ReadVLong()
		if err != nil {
			return nil, err
		}
		term := Term{Field: fieldName, Text: text}
		td.index = append(td.index, tiiEntry{Term: term, FieldNum: fieldNum, Info: info, TisPointer: tisPointer})
		last, lastInfo, have = term, info, true
	}
	return td, nil
}

// LookupTermInfo binary-searches the in-memory .tii index for the
// greatest indexed term <= t, seeks .tis to the corresponding pointer,
// and scans forward decoding terms until a match or an overshoot.
// Returns ok=false, not an error, when t is absent.
func (td *TermDict) LookupTermInfo(t Term) (info TermInfo, ok bool, err error) {
	if len(td.index) == 0 {
		return TermInfo{}, false, nil
	}
	// i is the first index whose term is >= t.
	i := sort.Search(len(td.index), func(i int) bool {
		return !td.index[i].Term.Less(t)
	})
	if i < len(td.index) && td.index[i].Term == t {
		return td.index[i].Info, true, nil
	}
	var start int
	if i == 0 {
		start = 0
	} else {
		start = i - 1
	}

	r, err := td.dir.Open(td.tisName, false)
	if err != nil {
		return TermInfo{}, false, err
	}
	defer r.Close()

	entry := td.index[start]
	if err := r.Seek(entry.TisPointer, store.SeekSet); err != nil {
		return TermInfo{}, false, err
	}

	cur := entry.Term
	curInfo := entry.Info
	first := true
	for {
		var text string
		var fieldNum int32
		var ti TermInfo
		var end bool
		if first {
			// The boundary term itself was written in full in .tis;
			// re-decode it at this exact pointer so cur/curInfo track
			// the stream precisely (rather than trusting the in-memory
			// .tii copy, which is logically identical but keeps the
			// decode loop uniform).
			text, fieldNum, ti, end, err = readTermEntry(r, "", TermInfo{}, false, false)
			first = false
		} else {
			text, fieldNum, ti, end, err = readTermEntry(r, cur.Text, curInfo, true, true)
		}
		if err != nil || end {
			return TermInfo{}, false, nil
		}
		fi, _ := td.fields.ByNumber(fieldNum)
		fieldName := ""
		if fi != nil {
			fieldName = fi.Name
		}
		cur = Term{Field: fieldName, Text: text}
		curInfo = ti
		if cur == t {
			return curInfo, true, nil
		}
		if t.Less(cur) {
			return TermInfo{}, false, nil
		}
	}
}

// Cursor is a resettable forward-iteration handle over the full term
// stream, ascending (field, text) order with no duplicates.
type Cursor struct {
	td      *TermDict
	r       store.Reader
	cur     Term
	curInfo TermInfo
	idx     int // position within td.index of the most recent boundary passed
	first   bool
	done    bool
}

// NewCursor opens a fresh term stream cursor positioned before the
// first term.
func (td *TermDict) NewCursor() (*Cursor, error) {
	r, err := td.dir.Open(td.tisName, false)
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadVInt(); err != nil { // skip the interval header
		r.Close()
		return nil, err
	}
	return &Cursor{td: td, r: r, first: true}, nil
}

func (c *Cursor) Close() error { return c.r.Close() }

// Next advances to the next term, returning ok=false at end of stream.
func (c *Cursor) Next() (term Term, info TermInfo, ok bool, err error) {
	if c.done {
		return Term{}, TermInfo{}, false, nil
	}
	isIndexed := c.idx%c.td.interval == 0
	var text string
	var fieldNum int32
	var ti TermInfo
	var end bool
	if isIndexed {
		text, fieldNum, ti, end, err = readTermEntry(c.r, "", TermInfo{}, false, false)
	} else {
		havePrev := !c.first
		text, fieldNum, ti, end, err = readTermEntry(c.r, c.cur.Text, c.curInfo, havePrev, true)
	}
	if err != nil || end {
		c.done = true
		return Term{}, TermInfo{}, false, nil
	}
	fi, _ := c.td.fields.ByNumber(fieldNum)
	fieldName := ""
	if fi != nil {
		fieldName = fi.Name
	}
	c.cur = Term{Field: fieldName, Text: text}
	c.curInfo = ti
	c.first = false
	c.idx++
	return c.cur, c.curInfo, true, nil
}

// SkipTo advances the cursor to the least term >= target, re-seeking
// via the .tii index when target is far ahead.
func (c *Cursor) SkipTo(target Term) (term Term, info TermInfo, ok bool, err error) {
	if len(c.td.index) == 0 {
		return Term{}, TermInfo{}, false, nil
	}
	i := sort.Search(len(c.td.index), func(i int) bool {
		return !c.td.index[i].Term.Less(target)
	})
	start := 0
	if i > 0 {
		start = i - 1
	}
	entry := c.td.index[start]
	if err := c.r.Seek(entry.TisPointer, store.SeekSet); err != nil {
		return Term{}, TermInfo{}, false, err
	}
	c.idx = start * c.td.interval
	c.first = true
	c.cur = Term{}
	c.curInfo = TermInfo{}
	c.done = false

	for {
		t, ti, ok, err := c.Next()
		if err != nil || !ok {
			return Term{}, TermInfo{}, false, err
		}
		if !t.Less(target) {
			return t, ti, true, nil
		}
	}
}
