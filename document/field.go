// Package document is the peripheral field/document model the segmented
// index engine consumes: a Document is a set of named Fields of one of
// four configurable kinds. Tokenization is an external collaborator —
// this package only carries the data the core reads and writes.
package document

import "github.com/op/go-logging"

var log = logging.MustGetLogger("document")

// Kind is the field-kind axis: tokenized text runs
// through an Analyzer before indexing; Keyword is indexed verbatim as a
// single term; Stored carries no postings at all, only the
// stored-fields stream; Binary is an opaque byte blob, stored only.
type Kind int

const (
	KindText Kind = iota
	KindKeyword
	KindStored
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindKeyword:
		return "keyword"
	case KindStored:
		return "stored"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Indexed reports whether postings are produced for fields of this kind.
func (k Kind) Indexed() bool { return k == KindText || k == KindKeyword }

// Tokenized reports whether an Analyzer runs over the field value.
func (k Kind) Tokenized() bool { return k == KindText }

// Field is one named value within a Document.
type Field struct {
	Name  string
	Kind  Kind
	Value string // used by KindText/KindKeyword/KindStored
	Bytes []byte // used by KindBinary
	Boost float32
}

// NewTextField builds a tokenized, indexed, stored text field with the
// default boost of 1.0 — the common case for body content.
func NewTextField(name, value string) Field {
	return Field{Name: name, Kind: KindText, Value: value, Boost: 1.0}
}

// NewKeywordField builds an untokenized, indexed field — a single term
// equal to value, used for ids, paths, and other exact-match metadata.
func NewKeywordField(name, value string) Field {
	return Field{Name: name, Kind: KindKeyword, Value: value, Boost: 1.0}
}

// NewStoredField builds a field with no postings, retrievable only
// through the stored-fields stream.
func NewStoredField(name, value string) Field {
	return Field{Name: name, Kind: KindStored, Value: value, Boost: 1.0}
}

// NewBinaryField builds an opaque, stored-only byte blob field.
func NewBinaryField(name string, data []byte) Field {
	return Field{Name: name, Kind: KindBinary, Bytes: data, Boost: 1.0}
}

// Document is an open bag of fields: at write time it accumulates
// fields the caller Adds until the writer flushes it into a segment; at
// read time it is the bag of fields fetched from the stored-fields
// stream for one global document id.
type Document struct {
	fields []Field
}

func NewDocument() *Document { return &Document{} }

func (d *Document) Add(f Field) {
	if f.Name == "" {
		log.Warning("adding field with empty name")
	}
	d.fields = append(d.fields, f)
}

// Get returns the first field's string value for name, or "" if absent.
func (d *Document) Get(name string) string {
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// GetValues returns every field's string value for name, in add order —
// a document may repeat a field name.
func (d *Document) GetValues(name string) []string {
	var out []string
	for _, f := range d.fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

func (d *Document) Fields() []Field { return d.fields }
