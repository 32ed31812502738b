// Package lucenedebug renders stored documents as JSON for inspection
// tooling — grounded on pikaia79-baud's pervasive use of
// github.com/json-iterator/go in place of encoding/json for wire and
// document serialization.
package lucenedebug

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/gosegment/lucene2x/document"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// DocumentJSON is the debug-dump shape of one stored document: field
// name to every value recorded under it, in add order. Binary fields
// are omitted — nothing downstream of this package consumes raw bytes.
type DocumentJSON struct {
	Fields map[string][]string `json:"fields"`
}

// NewDocumentJSON flattens doc's stored text/keyword/stored fields into
// a DocumentJSON, folding repeated field names into one slice.
func NewDocumentJSON(doc *document.Document) *DocumentJSON {
	dj := &DocumentJSON{Fields: make(map[string][]string)}
	for _, f := range doc.Fields() {
		if f.Kind == document.KindBinary {
			continue
		}
		dj.Fields[f.Name] = append(dj.Fields[f.Name], f.Value)
	}
	return dj
}

// MarshalDocument renders doc as a single JSON object.
func MarshalDocument(doc *document.Document) ([]byte, error) {
	return api.Marshal(NewDocumentJSON(doc))
}

// MarshalDocuments renders a slice of documents as a JSON array, in the
// order given — the shape lucenecli or an HTTP debug endpoint would
// hand back for a result set.
func MarshalDocuments(docs []*document.Document) ([]byte, error) {
	out := make([]*DocumentJSON, len(docs))
	for i, d := range docs {
		out[i] = NewDocumentJSON(d)
	}
	return api.Marshal(out)
}
