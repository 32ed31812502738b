package search

import (
	"math"
	"sort"
	"strings"
	"testing"
)

// fakeIndex is a small in-memory Index fixture for exercising the
// parser/rewrite/optimize/execute pipeline without a real segment
// reader. Every field is a stand-in for a SimpleAnalyzer tokenization:
// terms are stored exactly as given, one posting list per (field, term).
type fakeIndex struct {
	fields   []string
	postings map[string]map[string][]Posting
	norms    map[string]map[int32]float32
	numDocs  int32
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		postings: make(map[string]map[string][]Posting),
		norms:    make(map[string]map[int32]float32),
	}
}

func (f *fakeIndex) addField(name string) {
	for _, n := range f.fields {
		if n == name {
			return
		}
	}
	f.fields = append(f.fields, name)
}

func (f *fakeIndex) index(field, term string, doc, freq int32, positions ...int32) {
	f.addField(field)
	if f.postings[field] == nil {
		f.postings[field] = make(map[string][]Posting)
	}
	f.postings[field][term] = append(f.postings[field][term], Posting{DocID: doc, Freq: freq, Positions: positions})
	if f.norms[field] == nil {
		f.norms[field] = make(map[int32]float32)
	}
	f.norms[field][doc] = 1.0
	if doc+1 > f.numDocs {
		f.numDocs = doc + 1
	}
}

func (f *fakeIndex) HasTerm(field, text string) (bool, error) {
	_, ok := f.postings[field][text]
	return ok, nil
}

func (f *fakeIndex) DocFreq(field, text string) (int32, error) {
	return int32(len(f.postings[field][text])), nil
}

func (f *fakeIndex) Postings(field, text string, withPositions bool) ([]Posting, error) {
	pl := f.postings[field][text]
	out := make([]Posting, len(pl))
	copy(out, pl)
	if !withPositions {
		for i := range out {
			out[i].Positions = nil
		}
	}
	return out, nil
}

func (f *fakeIndex) FieldNames() []string {
	out := make([]string, len(f.fields))
	copy(out, f.fields)
	sort.Strings(out)
	return out
}

func (f *fakeIndex) Analyze(field, text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func (f *fakeIndex) Norm(doc int32, field string) (float32, error) {
	return f.norms[field][doc], nil
}

func (f *fakeIndex) NumDocs() int32 { return f.numDocs }

// fakeTermCursor is a slice-backed TermCursor for fakeIndex.Terms.
type fakeTermCursor struct {
	terms []fakeTerm
	i     int
}

type fakeTerm struct{ field, text string }

func (c *fakeTermCursor) Next() (string, string, bool, error) {
	if c.i >= len(c.terms) {
		return "", "", false, nil
	}
	t := c.terms[c.i]
	c.i++
	return t.field, t.text, true, nil
}

func (c *fakeTermCursor) SkipTo(field, text string) (string, string, bool, error) {
	for c.i < len(c.terms) {
		t := c.terms[c.i]
		if t.field > field || (t.field == field && t.text >= text) {
			return c.Next()
		}
		c.i++
	}
	return "", "", false, nil
}

func (f *fakeIndex) Terms() (TermCursor, error) {
	var all []fakeTerm
	for _, field := range f.FieldNames() {
		var texts []string
		for t := range f.postings[field] {
			texts = append(texts, t)
		}
		sort.Strings(texts)
		for _, t := range texts {
			all = append(all, fakeTerm{field: field, text: t})
		}
	}
	return &fakeTermCursor{terms: all}, nil
}

func sampleIndex() *fakeIndex {
	idx := newFakeIndex()
	idx.index("contents", "business", 0, 1, 0)
	idx.index("contents", "home", 1, 1, 0)
	idx.index("contents", "home", 2, 2, 0, 5)
	idx.index("contents", "by", 2, 1, 3)
	return idx
}

func TestSyntaxErrorAtMismatchedRangeBracket(t *testing.T) {
	_, err := parseStrict(`contents:[business TO by}`, DefaultConfig())
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	pe, ok := err.(*QueryParserError)
	if !ok {
		t.Fatalf("expected *QueryParserError, got %T: %v", err, err)
	}
	if pe.Pos != 25 {
		t.Fatalf("expected error at char position 25, got %d: %s", pe.Pos, pe.Error())
	}
}

func TestSuppressFallbackPreservesStopwords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Suppress = true
	cfg.DefaultField = "contents"
	q, err := Parse(`contents:[business TO by}`, cfg)
	if err != nil {
		t.Fatalf("suppress mode should not propagate a syntax error: %v", err)
	}
	bq, ok := q.(*BooleanQuery)
	if !ok {
		t.Fatalf("expected *BooleanQuery fallback, got %T", q)
	}
	var words []string
	for _, c := range bq.Clauses {
		tq, ok := c.Query.(*TermQuery)
		if !ok {
			t.Fatalf("expected TermQuery clause, got %T", c.Query)
		}
		words = append(words, tq.Text)
	}
	got := strings.Join(words, " ")
	want := "contents business to by"
	if got != want {
		t.Fatalf("fallback tokens = %q, want %q", got, want)
	}
}

func TestRewriteEmptyPhraseCollapsesToEmptyResult(t *testing.T) {
	idx := sampleIndex()
	q, err := parseStrict(`"Non-existing phrase" AND Home`, DefaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.DefaultField = "contents"
	rw, err := Rewrite(withDefaultField(q, "contents"), idx, cfg)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	opt := Optimize(rw)
	if opt.String() != "<EmptyQuery>" {
		t.Fatalf("expected <EmptyQuery>, got %q", opt.String())
	}
}

func TestBoostedQueryString(t *testing.T) {
	q := &BoostedQuery{Inner: &TermQuery{Field: "contents", Text: "home"}, Boost: 2}
	if got, want := q.String(), "(contents:home)^2"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestBooleanQueryStringWrapsEveryClause(t *testing.T) {
	bq := &BooleanQuery{Clauses: []BooleanClause{
		{Query: &TermQuery{Field: "contents", Text: "home"}, Sign: SignMust},
		{Query: &TermQuery{Field: "contents", Text: "business"}, Sign: SignShould},
	}}
	got := bq.String()
	want := "+(contents:home) (contents:business)"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestExecuteTermScoresEveryMatchingDoc(t *testing.T) {
	idx := sampleIndex()
	rv, err := Execute(&TermQuery{Field: "contents", Text: "home"}, idx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rv.Docs) != 2 {
		t.Fatalf("expected 2 matching docs, got %d (%v)", len(rv.Docs), rv.Docs)
	}
	if rv.Docs[0] != 1 || rv.Docs[1] != 2 {
		t.Fatalf("expected docs [1 2] ascending, got %v", rv.Docs)
	}
	// doc 2 has freq 2 vs doc 1's freq 1, so it must score higher.
	if rv.Scores[2] <= rv.Scores[1] {
		t.Fatalf("doc with higher term frequency should score higher: %v", rv.Scores)
	}
}

func TestExecuteConjunctionRequiresAllClauses(t *testing.T) {
	idx := sampleIndex()
	bq := &BooleanQuery{Clauses: []BooleanClause{
		{Query: &TermQuery{Field: "contents", Text: "home"}, Sign: SignMust},
		{Query: &TermQuery{Field: "contents", Text: "by"}, Sign: SignMust},
	}}
	rv, err := Execute(bq, idx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rv.Docs) != 1 || rv.Docs[0] != 2 {
		t.Fatalf("expected only doc 2 to satisfy both required clauses, got %v", rv.Docs)
	}
}

// TestExecuteTermScoreMatchesTFIDFFormula asserts exact scores, not just
// relative ordering: with docFreq("home") == 2 and numDocs == 3, idf
// collapses to exactly 1.0 (1 + ln(3/3)), so each document's score
// reduces to tf(freq) alone.
func TestExecuteTermScoreMatchesTFIDFFormula(t *testing.T) {
	idx := sampleIndex()
	rv, err := Execute(&TermQuery{Field: "contents", Text: "home"}, idx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	docFreq, err := idx.DocFreq("contents", "home")
	if err != nil {
		t.Fatalf("docFreq: %v", err)
	}
	if got, want := idf(docFreq, idx.NumDocs()), 1.0; got != want {
		t.Fatalf("idf(2, 3) = %v, want %v", got, want)
	}
	if got, want := rv.Scores[1], 1.0; got != want {
		t.Fatalf("doc 1 score = %v, want exactly %v (tf(1)*idf^2*norm)", got, want)
	}
	if got, want := rv.Scores[2], math.Sqrt2; got != want {
		t.Fatalf("doc 2 score = %v, want exactly %v (tf(2)*idf^2*norm)", got, want)
	}
}

// TestExecutePhraseScoreMatchesWeightFormula hand-derives the expected
// phrase score from the same tf/idf primitives Execute uses internally,
// then checks Execute reproduces it exactly: phrase weight sums each
// term's idf and squares the sum, mirroring how a single term's weight
// squares its own idf.
func TestExecutePhraseScoreMatchesWeightFormula(t *testing.T) {
	idx := newFakeIndex()
	idx.index("contents", "quick", 0, 1, 0)
	idx.index("contents", "fox", 0, 1, 1)
	idx.index("contents", "quick", 1, 2, 0, 2)
	idx.index("contents", "fox", 1, 2, 1, 3)

	rv, err := Execute(&PhraseQuery{Field: "contents", Terms: []string{"quick", "fox"}}, idx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	sumIDF := idf(2, idx.NumDocs()) + idf(2, idx.NumDocs())
	weight := sumIDF * sumIDF
	wantDoc0 := tf(1) * weight * 1.0
	wantDoc1 := tf(2) * weight * 1.0

	if got := rv.Scores[0]; got != wantDoc0 {
		t.Fatalf("doc 0 phrase score = %v, want exactly %v", got, wantDoc0)
	}
	if got := rv.Scores[1]; got != wantDoc1 {
		t.Fatalf("doc 1 phrase score = %v, want exactly %v", got, wantDoc1)
	}
	if rv.Scores[1] <= rv.Scores[0] {
		t.Fatalf("doc with higher phrase frequency should score higher: %v", rv.Scores)
	}
}

// withDefaultField is a test helper standing in for what Parse does
// after a successful parse when cfg.DefaultField is set (parseStrict
// skips it): assign the default field to every clause the parser left
// field-less.
func withDefaultField(q Query, field string) Query {
	applyFieldScope(q, field)
	return q
}
