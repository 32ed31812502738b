package index

import (
	"github.com/gosegment/lucene2x/document"
	"github.com/gosegment/lucene2x/store"
)

// Stored-field value type tags: binary fields are tagged storedBinary,
// every other document.Kind is tagged storedString (every kind is
// eligible for storage; KindText/KindKeyword additionally get postings).
const (
	storedString byte = iota
	storedBinary
)

// StoredFieldsWriter appends one document's field values to .fdt and
// records its starting offset in .fdx, the classic fixed-stride
// index-file/data-file split: .fdx lets random-access retrieval seek
// straight to a document's .fdt offset without scanning.
type StoredFieldsWriter struct {
	fdx, fdt store.Writer
	fields   *FieldInfos
}

func NewStoredFieldsWriter(fdx, fdt store.Writer, fields *FieldInfos) *StoredFieldsWriter {
	return &StoredFieldsWriter{fdx: fdx, fdt: fdt, fields: fields}
}

// AddDocument writes doc's stored fields to .fdt and appends its
// offset to .fdx. No field is filtered out: document.Kind doesn't gate
// storage, and every field added to a Document is stored, empty
// values included.
func (w *StoredFieldsWriter) AddDocument(doc *document.Document) error {
	offset, err := w.fdt.Tell()
	if err != nil {
		return err
	}
	if err := w.fdx.WriteLong(offset); err != nil {
		return err
	}

	fs := doc.Fields()
	if err := w.fdt.WriteVInt(int32(len(fs))); err != nil {
		return err
	}
	for _, f := range fs {
		fi := w.fields.Add(f.Name, f.Kind.Indexed(), f.Kind.Tokenized(), f.Kind.Indexed())
		if err := w.fdt.WriteVInt(fi.Number); err != nil {
			return err
		}
		if f.Kind == document.KindBinary {
			if err := w.fdt.WriteByte(storedBinary); err != nil {
				return err
			}
			if err := w.fdt.WriteBinary(f.Bytes); err != nil {
				return err
			}
			continue
		}
		if err := w.fdt.WriteByte(storedString); err != nil {
			return err
		}
		if err := w.fdt.WriteString(f.Value); err != nil {
			return err
		}
	}
	return nil
}

// StoredFieldsReader opens independent .fdx/.fdt readers per
// retrieval, the same per-call cursor contract every reader in this
// package follows.
type StoredFieldsReader struct {
	dir                store.Directory
	fdxName, fdtName   string
	fields             *FieldInfos
}

func NewStoredFieldsReader(dir store.Directory, fdxName, fdtName string, fields *FieldInfos) *StoredFieldsReader {
	return &StoredFieldsReader{dir: dir, fdxName: fdxName, fdtName: fdtName, fields: fields}
}

// Document retrieves local document localID's stored fields.
func (r *StoredFieldsReader) Document(localID int32) (*document.Document, error) {
	fdx, err := r.dir.Open(r.fdxName, false)
	if err != nil {
		return nil, err
	}
	defer fdx.Close()
	if err := fdx.Seek(int64(localID)*8, store.SeekSet); err != nil {
		return nil, err
	}
	offset, err := fdx.ReadLong()
	if err != nil {
		return nil, err
	}

	fdt, err := r.dir.Open(r.fdtName, false)
	if err != nil {
		return nil, err
	}
	defer fdt.Close()
	if err := fdt.Seek(offset, store.SeekSet); err != nil {
		return nil, err
	}

	count, err := fdt.ReadVInt()
	if err != nil {
		return nil, err
	}
	doc := document.NewDocument()
	for i := int32(0); i < count; i++ {
		number, err := fdt.ReadVInt()
		if err != nil {
			return nil, err
		}
		fi, ok := r.fields.ByNumber(number)
		if !ok {
			return nil, store.New(store.Runtime, "stored field references unknown field number %d", number)
		}
		tag, err := fdt.ReadByte()
		if err != nil {
			return nil, err
		}
		switch tag {
		case storedBinary:
			data, err := fdt.ReadBinary()
			if err != nil {
				return nil, err
			}
			doc.Add(document.NewBinaryField(fi.Name, data))
		default:
			value, err := fdt.ReadString()
			if err != nil {
				return nil, err
			}
			doc.Add(document.Field{Name: fi.Name, Kind: storedFieldKind(fi), Value: value, Boost: 1.0})
		}
	}
	return doc, nil
}

// storedFieldKind reconstructs the document.Kind a stored string field
// was originally added as, from its segment schema entry, so a document
// read back and re-added keeps indexing the fields it indexed before.
func storedFieldKind(fi *FieldInfo) document.Kind {
	switch {
	case fi.Indexed && fi.Tokenized:
		return document.KindText
	case fi.Indexed:
		return document.KindKeyword
	default:
		return document.KindStored
	}
}
