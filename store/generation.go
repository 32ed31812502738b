package store

const (
	// segmentsGenFormatMarker is the fixed int32 magic that opens
	// segments.gen.
	segmentsGenFormatMarker = int32(-2) // 0xFFFFFFFE

	segmentsGenName = "segments.gen"
	segmentsName    = "segments"
)

// ReadGeneration implements the generation-witness protocol: read
// segments.gen's two recorded generation values, retrying on
// disagreement (store/lock.go's pollSegmentsGen) before falling back to
// probing "segments" (generation 0, pre-2.1) and finally -1 (no index).
// Distinct error kinds replace a "catch by substring" idiom for
// detecting an unreadable segments.gen.
func ReadGeneration(dir Directory) (int64, error) {
	if dir.Exists(segmentsGenName) {
		gen, err := pollSegmentsGen(func() (int64, int64, error) {
			return readSegmentsGenOnce(dir)
		})
		if err == nil {
			return gen, nil
		}
		// Not readable after exhausting retries; fall through to the
		// pre-2.1 probe rather than raising a hard error.
		dirLog.Warningf("segments.gen unreadable after retries: %v", err)
	}
	if dir.Exists(segmentsName) {
		return 0, nil
	}
	return -1, nil
}

func readSegmentsGenOnce(dir Directory) (gen, repeat int64, err error) {
	r, err := dir.Open(segmentsGenName, false)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()

	marker, err := r.ReadInt()
	if err != nil {
		return 0, 0, err
	}
	if marker != segmentsGenFormatMarker {
		return 0, 0, New(InvalidFileFormat, "invalid segments.gen marker 0x%X", uint32(marker))
	}
	gen, err = r.ReadLong()
	if err != nil {
		return 0, 0, err
	}
	repeat, err = r.ReadLong()
	if err != nil {
		return 0, 0, err
	}
	return gen, repeat, nil
}

// WriteGeneration atomically rewrites segments.gen with gen recorded
// twice, matching what a reader's agreement check expects. It writes
// to a temp name and renames it over segments.gen so a crash mid-write
// never leaves a torn file.
func WriteGeneration(dir Directory, gen int64) error {
	tmp := segmentsGenName + ".tmp"
	w, err := dir.Create(tmp)
	if err != nil {
		return err
	}
	if err := w.WriteInt(segmentsGenFormatMarker); err != nil {
		w.Close()
		return err
	}
	if err := w.WriteLong(gen); err != nil {
		w.Close()
		return err
	}
	if err := w.WriteLong(gen); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return dir.Rename(tmp, segmentsGenName)
}

// SegmentsFileName returns the name of the segments_N file for gen, or
// the bare "segments" name for generation 0 (pre-2.1 layout).
func SegmentsFileName(gen int64) string {
	if gen <= 0 {
		return segmentsName
	}
	return segmentsName + "_" + ToBase36(gen)
}

const base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// ToBase36 renders n in base 36 (lowercase digits), the alphabet used
// for generation-suffixed segments_N names and, in package index,
// segment and deletion-generation file-name suffixes.
func ToBase36(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{base36Digits[n%36]}, buf...)
		n /= 36
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}
