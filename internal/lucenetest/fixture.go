// Package lucenetest provides a small in-memory directory fixture and a
// canonical sample index for exercising the orchestrator and query
// pipeline in tests, grounded on the shape of the teacher's
// test_framework/mockDirectoryWrapper.go (an in-memory directory
// standing in for a real one) and test_framework/util/testcase.go
// (a canonical fixture document set shared across test files). Fixture
// documents load from a JSON file via json-iterator, in place of
// encoding/json, matching this module's document-serialization choice
// elsewhere.
package lucenetest

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	lucene2x "github.com/gosegment/lucene2x"
	"github.com/gosegment/lucene2x/document"
	"github.com/gosegment/lucene2x/store"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// FieldFixture is one named, valued field in a DocumentFixture's JSON
// encoding — a flattened stand-in for document.Field, since Kind and
// Boost rarely vary across fixture documents.
type FieldFixture struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DocumentFixture is one document entry in a JSON fixture file: every
// field is added as a tokenized text field, the common case for a
// sample index.
type DocumentFixture struct {
	Fields []FieldFixture `json:"fields"`
}

// LoadDocumentFixtures reads a JSON array of DocumentFixture from path.
func LoadDocumentFixtures(path string) ([]DocumentFixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []DocumentFixture
	if err := api.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToDocument converts a DocumentFixture into a document.Document with
// every field added as tokenized text.
func (f DocumentFixture) ToDocument() *document.Document {
	d := document.NewDocument()
	for _, field := range f.Fields {
		d.Add(document.NewTextField(field.Name, field.Value))
	}
	return d
}

// OpenRAMIndex opens a fresh in-memory orchestrator over a new
// RAMDirectory with the given config, owning the directory it creates.
func OpenRAMIndex(cfg lucene2x.Config) (*lucene2x.IndexOrchestrator, error) {
	return lucene2x.Open(store.NewRAMDirectory(), cfg, true)
}

// SampleDocuments is the canonical 10-document sample index used across
// this module's scoring and query-language tests: a small corpus of
// real-estate listing blurbs, chosen so that term frequency, document
// frequency, and phrase proximity all vary across documents.
func SampleDocuments() []DocumentFixture {
	mk := func(title, contents string) DocumentFixture {
		return DocumentFixture{Fields: []FieldFixture{
			{Name: "title", Value: title},
			{Name: "contents", Value: contents},
		}}
	}
	return []DocumentFixture{
		mk("Downtown loft", "business owners welcome this bright downtown loft"),
		mk("Suburban home", "a quiet suburban home perfect for a growing family"),
		mk("Business park office", "business park office space near the highway"),
		mk("Home by the lake", "a peaceful home by the lake with private dock access"),
		mk("City apartment", "small city apartment close to downtown business district"),
		mk("Family home", "spacious family home with a large backyard and garage"),
		mk("Retail storefront", "retail storefront available for a new business"),
		mk("Lakeside cabin", "rustic lakeside cabin by the water, a true home away from home"),
		mk("Corporate office", "corporate office building downtown with business amenities"),
		mk("Country house", "country house far from downtown, a quiet family retreat"),
	}
}

// BuildSampleIndex opens a fresh RAM-backed orchestrator, adds every
// SampleDocuments entry, and commits once.
func BuildSampleIndex(cfg lucene2x.Config) (*lucene2x.IndexOrchestrator, error) {
	o, err := OpenRAMIndex(cfg)
	if err != nil {
		return nil, err
	}
	for _, fx := range SampleDocuments() {
		o.AddDocument(fx.ToDocument())
	}
	if err := o.Commit(); err != nil {
		o.Close()
		return nil, err
	}
	return o, nil
}
