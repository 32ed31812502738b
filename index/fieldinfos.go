package index

import "github.com/gosegment/lucene2x/store"

// FieldInfo is one entry in a segment's field schema (.fnm), binding a
// field's name to the segment-local number the term dictionary and
// postings encode in its place, plus the indexed/tokenized/storeNorms
// flags read back at segment-open time.
type FieldInfo struct {
	Number        int32
	Name          string
	Indexed       bool
	Tokenized     bool
	StoreNorms    bool // false => omitNorms
	HasSingleNorm bool
}

// FieldInfos is a segment's field schema table, keyed both by name and
// by number.
type FieldInfos struct {
	byNumber []*FieldInfo
	byName   map[string]*FieldInfo
}

func NewFieldInfos() *FieldInfos {
	return &FieldInfos{byName: make(map[string]*FieldInfo)}
}

// Add registers name if unseen and returns its FieldInfo, assigning the
// next free field number.
func (fi *FieldInfos) Add(name string, indexed, tokenized, storeNorms bool) *FieldInfo {
	if f, ok := fi.byName[name]; ok {
		return f
	}
	f := &FieldInfo{
		Number:     int32(len(fi.byNumber)),
		Name:       name,
		Indexed:    indexed,
		Tokenized:  tokenized,
		StoreNorms: storeNorms,
	}
	fi.byNumber = append(fi.byNumber, f)
	fi.byName[name] = f
	return f
}

func (fi *FieldInfos) ByName(name string) (*FieldInfo, bool) {
	f, ok := fi.byName[name]
	return f, ok
}

func (fi *FieldInfos) ByNumber(n int32) (*FieldInfo, bool) {
	if n < 0 || int(n) >= len(fi.byNumber) {
		return nil, false
	}
	return fi.byNumber[n], true
}

func (fi *FieldInfos) Len() int { return len(fi.byNumber) }

// Names returns every registered field name in registration (number)
// order.
func (fi *FieldInfos) Names() []string {
	out := make([]string, len(fi.byNumber))
	for i, f := range fi.byNumber {
		out[i] = f.Name
	}
	return out
}

// fieldInfoFlags packs the three per-field booleans into one byte:
// bit0 indexed, bit1 tokenized, bit2 storeNorms.
func fieldInfoFlags(f *FieldInfo) byte {
	var b byte
	if f.Indexed {
		b |= 1
	}
	if f.Tokenized {
		b |= 2
	}
	if f.StoreNorms {
		b |= 4
	}
	return b
}

func fieldInfoFromFlags(number int32, name string, b byte) *FieldInfo {
	return &FieldInfo{
		Number:     number,
		Name:       name,
		Indexed:    b&1 != 0,
		Tokenized:  b&2 != 0,
		StoreNorms: b&4 != 0,
	}
}

// WriteFieldInfos writes the .fnm file: VInt field count, then per
// field a string name and a flags byte.
func WriteFieldInfos(dir store.Directory, name string, fi *FieldInfos) error {
	w, err := dir.Create(name)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.WriteVInt(int32(len(fi.byNumber))); err != nil {
		return err
	}
	for _, f := range fi.byNumber {
		if err := w.WriteString(f.Name); err != nil {
			return err
		}
		if err := w.WriteByte(fieldInfoFlags(f)); err != nil {
			return err
		}
	}
	return nil
}

func ReadFieldInfos(dir store.Directory, name string) (*FieldInfos, error) {
	r, err := dir.Open(name, false)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	count, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	fi := NewFieldInfos()
	for i := int32(0); i < count; i++ {
		fname, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		flags, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		f := fieldInfoFromFlags(i, fname, flags)
		fi.byNumber = append(fi.byNumber, f)
		fi.byName[fname] = f
	}
	return fi, nil
}
