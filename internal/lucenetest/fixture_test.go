package lucenetest

import (
	"testing"

	lucene2x "github.com/gosegment/lucene2x"
)

func TestBuildSampleIndexIsSearchable(t *testing.T) {
	o, err := BuildSampleIndex(lucene2x.DefaultConfig())
	if err != nil {
		t.Fatalf("BuildSampleIndex: %v", err)
	}
	defer o.Close()

	if got, want := o.NumDocs(), int32(len(SampleDocuments())); got != want {
		t.Fatalf("NumDocs() = %d, want %d", got, want)
	}

	hits, err := o.Find("contents:downtown")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one downtown listing to match")
	}
}

func TestDocumentFixtureToDocumentPreservesFieldOrder(t *testing.T) {
	fx := DocumentFixture{Fields: []FieldFixture{
		{Name: "title", Value: "Downtown loft"},
		{Name: "contents", Value: "business owners welcome this bright downtown loft"},
	}}
	doc := fx.ToDocument()
	if got := doc.Get("title"); got != "Downtown loft" {
		t.Fatalf("title = %q, want %q", got, "Downtown loft")
	}
	fields := doc.Fields()
	if len(fields) != 2 || fields[0].Name != "title" || fields[1].Name != "contents" {
		t.Fatalf("fields = %v, want title then contents", fields)
	}
}
