package index

import (
	"testing"

	"github.com/gosegment/lucene2x/analysis"
	"github.com/gosegment/lucene2x/document"
	"github.com/gosegment/lucene2x/store"
)

func newDoc(title, contents string) *document.Document {
	d := document.NewDocument()
	d.Add(document.NewTextField("title", title))
	d.Add(document.NewTextField("contents", contents))
	return d
}

func openLatest(t *testing.T, dir store.Directory) *SegmentReader {
	t.Helper()
	gen, err := store.ReadGeneration(dir)
	if err != nil {
		t.Fatalf("ReadGeneration: %v", err)
	}
	sis, err := ReadSegmentInfos(dir, store.SegmentsFileName(gen))
	if err != nil {
		t.Fatalf("ReadSegmentInfos: %v", err)
	}
	if len(sis.Segments) != 1 {
		t.Fatalf("expected exactly one segment, got %d", len(sis.Segments))
	}
	sr, err := OpenSegmentReader(dir, sis.Segments[0])
	if err != nil {
		t.Fatalf("OpenSegmentReader: %v", err)
	}
	return sr
}

func TestWriteFlushCommitAndReadBack(t *testing.T) {
	dir := store.NewRAMDirectory()
	cfg := DefaultWriterConfig()
	cfg.MaxBufferedDocs = 100 // keep everything in one segment

	w, err := NewWriter(dir, analysis.DefaultAnalyzer, cfg)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	docs := []*document.Document{
		newDoc("Home page", "welcome home visitor"),
		newDoc("Business", "submitting your business plan"),
		newDoc("Another home", "home sweet home"),
	}
	for _, d := range docs {
		if err := w.AddDocument(d); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sr := openLatest(t, dir)
	defer sr.Close()

	if got, want := sr.DocCount(), int32(3); got != want {
		t.Fatalf("DocCount() = %d, want %d", got, want)
	}
	if got, want := sr.NumDocs(), int32(3); got != want {
		t.Fatalf("NumDocs() = %d, want %d", got, want)
	}

	ti, ok, err := sr.GetTermInfo(Term{Field: "contents", Text: "home"})
	if err != nil {
		t.Fatalf("GetTermInfo: %v", err)
	}
	if !ok {
		t.Fatal("expected term contents:home to exist")
	}
	if ti.DocFreq != 2 {
		t.Fatalf("DocFreq = %d, want 2 (docs 0 and 2 contain 'home')", ti.DocFreq)
	}

	entries, ok, err := sr.TermDocs(Term{Field: "contents", Text: "home"})
	if err != nil {
		t.Fatalf("TermDocs: %v", err)
	}
	if !ok || len(entries) != 2 {
		t.Fatalf("expected 2 postings for contents:home, got %v", entries)
	}
	if entries[0].LocalID != 0 || entries[1].LocalID != 2 {
		t.Fatalf("expected postings for docs [0 2], got %v", entries)
	}
	// doc 2 ("home sweet home") mentions "home" twice.
	if entries[1].Freq != 2 {
		t.Fatalf("doc 2 freq = %d, want 2", entries[1].Freq)
	}

	doc, err := sr.Document(1)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got := doc.Get("title"); got != "Business" {
		t.Fatalf("doc 1 title = %q, want Business", got)
	}
}

func TestDeleteCommitAndReopenPersistsDeletion(t *testing.T) {
	dir := store.NewRAMDirectory()
	cfg := DefaultWriterConfig()
	cfg.MaxBufferedDocs = 100

	w, err := NewWriter(dir, analysis.DefaultAnalyzer, cfg)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, d := range []*document.Document{
		newDoc("a", "alpha"),
		newDoc("b", "beta"),
	} {
		if err := w.AddDocument(d); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sr := openLatest(t, dir)
	if !sr.Delete(0) {
		t.Fatal("expected Delete(0) to report a new deletion")
	}
	delGen, err := sr.CommitDeletions()
	if err != nil {
		t.Fatalf("CommitDeletions: %v", err)
	}
	// CommitDeletions writes only the .del file; publish the new DelGen
	// in a fresh segments_N, as the orchestrator's Commit does.
	gen, err := store.ReadGeneration(dir)
	if err != nil {
		t.Fatalf("ReadGeneration: %v", err)
	}
	sis, err := ReadSegmentInfos(dir, store.SegmentsFileName(gen))
	if err != nil {
		t.Fatalf("ReadSegmentInfos: %v", err)
	}
	sis.Segments[0].DelGen = delGen
	if err := WriteSegmentInfos(dir, store.SegmentsFileName(gen+1), sis); err != nil {
		t.Fatalf("WriteSegmentInfos: %v", err)
	}
	if err := store.WriteGeneration(dir, gen+1); err != nil {
		t.Fatalf("WriteGeneration: %v", err)
	}
	if err := sr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openLatest(t, dir)
	defer reopened.Close()
	if !reopened.IsDeleted(0) {
		t.Fatal("expected document 0 to be deleted after reopen")
	}
	if got, want := reopened.NumDocs(), int32(1); got != want {
		t.Fatalf("NumDocs() after delete = %d, want %d", got, want)
	}
	if !reopened.HasDeletions() {
		t.Fatal("expected HasDeletions() to be true")
	}
}

func TestOptimizeMergesSegmentsAndPreservesPostings(t *testing.T) {
	dir := store.NewRAMDirectory()
	cfg := DefaultWriterConfig()
	cfg.MaxBufferedDocs = 1 // flush every document into its own segment

	w, err := NewWriter(dir, analysis.DefaultAnalyzer, cfg)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, d := range []*document.Document{
		newDoc("Home page", "welcome home visitor"),
		newDoc("Business", "submitting your business plan"),
		newDoc("Another home", "home sweet home"),
	} {
		if err := w.AddDocument(d); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}
	if err := w.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sr := openLatest(t, dir)
	defer sr.Close()
	if got, want := sr.DocCount(), int32(3); got != want {
		t.Fatalf("merged DocCount() = %d, want %d", got, want)
	}
	ti, ok, err := sr.GetTermInfo(Term{Field: "contents", Text: "home"})
	if err != nil {
		t.Fatalf("GetTermInfo: %v", err)
	}
	if !ok || ti.DocFreq != 2 {
		t.Fatalf("expected merged contents:home docFreq 2, got ok=%v df=%d", ok, ti.DocFreq)
	}
}
