package index

import "github.com/gosegment/lucene2x/store"

// Format markers for the segments_N file. This module
// always writes Format23; Format21 and FormatPre21 are accepted on read
// so an index produced by an older writer still opens.
const (
	FormatPre21 = int32(-1) // 0xFFFFFFFF
	Format21    = int32(-3) // 0xFFFFFFFD
	Format23    = int32(-4) // 0xFFFFFFFC

	noDocStoreOffset = int32(-1) // 0xFFFFFFFF
	noNumField       = int32(-1) // 0xFFFFFFFF, the only legal value
)

// Compound-status byte values.
const (
	CompoundNo      byte = 0xFF
	CompoundYes     byte = 0x01
	CompoundUnknown byte = 0x00
)

// SegmentInfo is the immutable bundle of inverted-index data produced
// by one flush or merge. DocCount is fixed at creation;
// DelGen is the only field commit mutates.
type SegmentInfo struct {
	Name     string
	DocCount int32
	DelGen   int64 // -1 means no deletions

	DocStoreOffset  int32 // noDocStoreOffset when this segment owns its own doc store
	DocStoreSegment string
	DocStoreCompound bool

	HasSingleNormFile bool
	IsCompound        byte // CompoundNo/Yes/Unknown
}

func (si *SegmentInfo) HasDeletions() bool { return si.DelGen != -1 }

// DelFileName returns the name of this segment's deletion bitvector
// file for its current DelGen, e.g. "_3.del2".
func (si *SegmentInfo) DelFileName() string {
	return si.Name + ".del" + store.ToBase36(si.DelGen)
}

// SegmentInfos is the insertion-ordered, live segment set for one
// generation. Iteration order defines global document-id
// assignment.
type SegmentInfos struct {
	Generation  int64
	Version     int64
	NameCounter int32
	Segments    []*SegmentInfo
}

// GlobalBase returns the global id of segment index i's first local
// document, i.e. the sum of every preceding segment's DocCount.
func (sis *SegmentInfos) GlobalBase(i int) int {
	base := 0
	for j := 0; j < i; j++ {
		base += int(sis.Segments[j].DocCount)
	}
	return base
}

// TotalMaxDoc is the sum of every live segment's DocCount — the global
// id space's exclusive upper bound.
func (sis *SegmentInfos) TotalMaxDoc() int {
	return sis.GlobalBase(len(sis.Segments))
}

// NextSegmentName allocates and returns the next segment name from the
// persisted monotone counter.
func (sis *SegmentInfos) NextSegmentName() string {
	name := "_" + store.ToBase36(int64(sis.NameCounter))
	sis.NameCounter++
	return name
}

// ReadSegmentInfos reads segments_N (or "segments" for generation 0),
// dispatching on the format marker.
func ReadSegmentInfos(dir store.Directory, fileName string) (*SegmentInfos, error) {
	r, err := dir.Open(fileName, false)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	marker, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	switch marker {
	case FormatPre21, Format21, Format23:
		// recognized
	default:
		return nil, store.New(store.InvalidFileFormat, "unrecognized segments file format marker 0x%X", uint32(marker))
	}

	version, err := r.ReadLong()
	if err != nil {
		return nil, err
	}
	counter, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	count, err := r.ReadInt()
	if err != nil {
		return nil, err
	}

	sis := &SegmentInfos{Version: version, NameCounter: counter}
	for i := int32(0); i < count; i++ {
		si := &SegmentInfo{DelGen: -1, DocStoreOffset: noDocStoreOffset, IsCompound: CompoundUnknown}
		si.Name, err = r.ReadString()
		if err != nil {
			return nil, err
		}
		docCount, err := r.ReadInt()
		if err != nil {
			return nil, err
		}
		si.DocCount = docCount

		if marker != FormatPre21 {
			si.DelGen, err = r.ReadLong()
			if err != nil {
				return nil, err
			}
		}
		if marker == Format23 {
			si.DocStoreOffset, err = r.ReadInt()
			if err != nil {
				return nil, err
			}
			if si.DocStoreOffset != noDocStoreOffset {
				si.DocStoreSegment, err = r.ReadString()
				if err != nil {
					return nil, err
				}
				compoundByte, err := r.ReadByte()
				if err != nil {
					return nil, err
				}
				si.DocStoreCompound = compoundByte != 0
			}
		}
		if marker != FormatPre21 {
			singleNorm, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			si.HasSingleNormFile = singleNorm != 0

			numField, err := r.ReadInt()
			if err != nil {
				return nil, err
			}
			if numField != noNumField {
				return nil, store.New(store.Runtime,
					"Separate norm files are not supported. Optimize index to use it with segment %s", si.Name)
			}
		}
		isCompound, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		si.IsCompound = isCompound

		sis.Segments = append(sis.Segments, si)
	}
	return sis, nil
}

// WriteSegmentInfos writes a new segments_{gen} file,
// always in Format23. The caller is responsible for the rest of the
// commit protocol: this only serializes the file.
func WriteSegmentInfos(dir store.Directory, fileName string, sis *SegmentInfos) error {
	w, err := dir.Create(fileName)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WriteInt(Format23); err != nil {
		return err
	}
	if err := w.WriteLong(sis.Version); err != nil {
		return err
	}
	if err := w.WriteInt(sis.NameCounter); err != nil {
		return err
	}
	if err := w.WriteInt(int32(len(sis.Segments))); err != nil {
		return err
	}
	for _, si := range sis.Segments {
		if err := w.WriteString(si.Name); err != nil {
			return err
		}
		if err := w.WriteInt(si.DocCount); err != nil {
			return err
		}
		if err := w.WriteLong(si.DelGen); err != nil {
			return err
		}
		if err := w.WriteInt(si.DocStoreOffset); err != nil {
			return err
		}
		if si.DocStoreOffset != noDocStoreOffset {
			if err := w.WriteString(si.DocStoreSegment); err != nil {
				return err
			}
			var b byte
			if si.DocStoreCompound {
				b = 1
			}
			if err := w.WriteByte(b); err != nil {
				return err
			}
		}
		var singleNorm byte
		if si.HasSingleNormFile {
			singleNorm = 1
		}
		if err := w.WriteByte(singleNorm); err != nil {
			return err
		}
		if err := w.WriteInt(noNumField); err != nil {
			return err
		}
		if err := w.WriteByte(si.IsCompound); err != nil {
			return err
		}
	}
	return nil
}
