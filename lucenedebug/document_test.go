package lucenedebug

import (
	"encoding/json"
	"testing"

	"github.com/gosegment/lucene2x/document"
)

func TestMarshalDocumentFoldsRepeatedFieldNames(t *testing.T) {
	d := document.NewDocument()
	d.Add(document.NewTextField("title", "Home page"))
	d.Add(document.NewKeywordField("tag", "a"))
	d.Add(document.NewKeywordField("tag", "b"))
	d.Add(document.NewBinaryField("thumbnail", []byte{0xff, 0x00}))

	raw, err := MarshalDocument(d)
	if err != nil {
		t.Fatalf("MarshalDocument: %v", err)
	}

	var got struct {
		Fields map[string][]string `json:"fields"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Fields["title"][0] != "Home page" {
		t.Fatalf("title = %v, want [Home page]", got.Fields["title"])
	}
	if len(got.Fields["tag"]) != 2 || got.Fields["tag"][0] != "a" || got.Fields["tag"][1] != "b" {
		t.Fatalf("tag = %v, want [a b]", got.Fields["tag"])
	}
	if _, ok := got.Fields["thumbnail"]; ok {
		t.Fatal("expected binary field to be omitted from the debug dump")
	}
}
