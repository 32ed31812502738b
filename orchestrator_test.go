package lucene2x

import (
	"testing"

	"github.com/gosegment/lucene2x/document"
	"github.com/gosegment/lucene2x/store"
)

func newTestDoc(title, contents string) *document.Document {
	d := document.NewDocument()
	d.Add(document.NewTextField("title", title))
	d.Add(document.NewTextField("contents", contents))
	return d
}

func TestAddDocumentCommitAndFind(t *testing.T) {
	dir := store.NewRAMDirectory()
	o, err := Open(dir, DefaultConfig(), true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	o.AddDocument(newTestDoc("Home page", "welcome home visitor"))
	o.AddDocument(newTestDoc("Business", "submitting your business plan"))
	if err := o.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if got, want := o.NumDocs(), int32(2); got != want {
		t.Fatalf("NumDocs() = %d, want %d", got, want)
	}

	hits, err := o.Find("contents:home")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != 0 {
		t.Fatalf("expected exactly doc 0 to match, got %v", hits)
	}

	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDeletePersistsAcrossReopen(t *testing.T) {
	dir := store.NewRAMDirectory()
	o, err := Open(dir, DefaultConfig(), false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	o.AddDocument(newTestDoc("a", "alpha"))
	o.AddDocument(newTestDoc("b", "beta"))
	if err := o.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	deleted, err := o.Delete(0)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected Delete(0) to report a new deletion")
	}
	if err := o.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, DefaultConfig(), false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	isDeleted, err := reopened.IsDeleted(0)
	if err != nil {
		t.Fatalf("IsDeleted: %v", err)
	}
	if !isDeleted {
		t.Fatal("expected document 0 to be deleted after reopen")
	}
	if got, want := reopened.NumDocs(), int32(1); got != want {
		t.Fatalf("NumDocs() after delete = %d, want %d", got, want)
	}
}
