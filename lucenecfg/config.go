// Package lucenecfg loads an orchestrator Config from a TOML file,
// falling back to the classic defaults for anything the file omits.
// Grounded on the shape of pikaia79-baud's util/config (load a file,
// fall back to a default when a key is absent) but decodes directly
// onto a typed struct via BurntSushi/toml rather than that package's
// dynamic map-of-interface{} style, since every field this module needs
// is known ahead of time.
package lucenecfg

import (
	"github.com/BurntSushi/toml"

	lucene2x "github.com/gosegment/lucene2x"
	"github.com/gosegment/lucene2x/index"
	"github.com/gosegment/lucene2x/search"
)

// File is the on-disk TOML shape: every field optional, defaulting to
// the classic Lucene numbers when the key is absent from the file.
type File struct {
	Writer WriterFile `toml:"writer"`
	Parser ParserFile `toml:"parser"`
}

// WriterFile mirrors index.WriterConfig's tunables.
type WriterFile struct {
	MaxBufferedDocs *int32 `toml:"max_buffered_docs"`
	MaxMergeDocs    *int32 `toml:"max_merge_docs"`
	MergeFactor     *int32 `toml:"merge_factor"`
	UseCompoundFile *bool  `toml:"use_compound_file"`
}

// ParserFile mirrors search.Config's tunables. DefaultOperator is
// spelled "or"/"and" in the file rather than carrying the Go constant.
type ParserFile struct {
	DefaultOperator    *string  `toml:"default_operator"`
	DefaultField       *string  `toml:"default_field"`
	Suppress           *bool    `toml:"suppress"`
	ResultLimit        *int     `toml:"result_limit"`
	WildcardMinPrefix  *int     `toml:"wildcard_min_prefix"`
	FuzzyPrefixLength  *int     `toml:"fuzzy_prefix_length"`
	FuzzyMinSimilarity *float32 `toml:"fuzzy_min_similarity"`
}

// Load reads path as TOML and merges it over the classic defaults.
// A missing file is an error; a file present but empty yields the
// defaults unchanged.
func Load(path string) (lucene2x.Config, error) {
	cfg := lucene2x.DefaultConfig()

	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return cfg, err
	}
	applyWriter(&cfg.Writer, f.Writer)
	if err := applyParser(&cfg.Search, f.Parser); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyWriter(w *index.WriterConfig, f WriterFile) {
	if f.MaxBufferedDocs != nil {
		w.MaxBufferedDocs = *f.MaxBufferedDocs
	}
	if f.MaxMergeDocs != nil {
		w.MaxMergeDocs = *f.MaxMergeDocs
	}
	if f.MergeFactor != nil {
		w.MergeFactor = *f.MergeFactor
	}
	if f.UseCompoundFile != nil {
		w.UseCompoundFile = *f.UseCompoundFile
	}
}

func applyParser(s *search.Config, f ParserFile) error {
	if f.DefaultOperator != nil {
		switch *f.DefaultOperator {
		case "or", "OR", "":
			s.DefaultOperator = search.OpOR
		case "and", "AND":
			s.DefaultOperator = search.OpAND
		default:
			return &InvalidOperatorError{Value: *f.DefaultOperator}
		}
	}
	if f.DefaultField != nil {
		s.DefaultField = *f.DefaultField
	}
	if f.Suppress != nil {
		s.Suppress = *f.Suppress
	}
	if f.ResultLimit != nil {
		s.ResultLimit = *f.ResultLimit
	}
	if f.WildcardMinPrefix != nil {
		s.WildcardMinPrefix = *f.WildcardMinPrefix
	}
	if f.FuzzyPrefixLength != nil {
		s.FuzzyPrefixLength = *f.FuzzyPrefixLength
	}
	if f.FuzzyMinSimilarity != nil {
		s.FuzzyMinSimilarity = *f.FuzzyMinSimilarity
	}
	return nil
}

// InvalidOperatorError reports a default_operator value that is neither
// "or" nor "and".
type InvalidOperatorError struct {
	Value string
}

func (e *InvalidOperatorError) Error() string {
	return "lucenecfg: invalid default_operator " + e.Value + ` (want "or" or "and")`
}
