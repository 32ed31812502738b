package search

// Posting is one matching document's frequency and, when positions were
// requested, its occurrence positions. DocID is a global id, already
// translated from whatever segment it physically lives in and already
// stripped of deleted documents — the query engine never sees segment
// boundaries or local ids.
type Posting struct {
	DocID     int32
	Freq      int32
	Positions []int32 // nil unless withPositions was requested
}

// TermCursor enumerates the whole-index term dictionary in ascending
// (field, text) order, used by wildcard/range/fuzzy expansion. Grounded
// on the per-segment Cursor in the index package's term dictionary;
// Index implementations fan it out across every current segment with
// the same SegmentMergeQueue union technique the segment merger uses.
type TermCursor interface {
	// Next advances to the next term, returning ok=false once the
	// dictionary is exhausted.
	Next() (field, text string, ok bool, err error)
	// SkipTo advances to the least term >= (field, text).
	SkipTo(field, text string) (rfield, rtext string, ok bool, err error)
}

// Index is everything the rewrite/execute passes need from a live
// index. Grounded on the spec's boundary between the executable query
// tree and the index it runs against (see design note on acyclic
// references): an Index is passed explicitly into Rewrite/Execute
// rather than retained inside an AST node past the call that used it.
type Index interface {
	// HasTerm reports whether (field, text) appears verbatim in the
	// term dictionary; documents marked deleted are not excluded.
	HasTerm(field, text string) (bool, error)
	// DocFreq is the number of live documents (field, text) appears in.
	DocFreq(field, text string) (int32, error)
	// Postings returns every live document containing (field, text),
	// ascending by DocID. withPositions requests occurrence positions.
	Postings(field, text string, withPositions bool) ([]Posting, error)
	// Terms opens a cursor over the whole term dictionary.
	Terms() (TermCursor, error)
	// FieldNames lists every indexed field, for field-null term/phrase
	// expansion.
	FieldNames() []string
	// Analyze tokenizes text the way field was analyzed at index time.
	Analyze(field, text string) []string
	// Norm returns the decoded length-normalization factor for doc in
	// field.
	Norm(doc int32, field string) (float32, error)
	// NumDocs is the live document count, the IDF denominator.
	NumDocs() int32
}
