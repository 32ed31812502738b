package lucenecfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gosegment/lucene2x/search"
)

func writeTempToml(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lucene.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadMissingKeysKeepDefaults(t *testing.T) {
	path := writeTempToml(t, `
[writer]
merge_factor = 20
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Writer.MergeFactor != 20 {
		t.Fatalf("MergeFactor = %d, want 20", cfg.Writer.MergeFactor)
	}
	if cfg.Writer.MaxBufferedDocs != 10 {
		t.Fatalf("MaxBufferedDocs = %d, want default 10", cfg.Writer.MaxBufferedDocs)
	}
	if cfg.Search.DefaultOperator != search.OpOR {
		t.Fatalf("DefaultOperator = %v, want default OpOR", cfg.Search.DefaultOperator)
	}
}

func TestLoadParserOperator(t *testing.T) {
	path := writeTempToml(t, `
[parser]
default_operator = "and"
default_field = "contents"
result_limit = 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.DefaultOperator != search.OpAND {
		t.Fatalf("DefaultOperator = %v, want OpAND", cfg.Search.DefaultOperator)
	}
	if cfg.Search.DefaultField != "contents" {
		t.Fatalf("DefaultField = %q, want contents", cfg.Search.DefaultField)
	}
	if cfg.Search.ResultLimit != 50 {
		t.Fatalf("ResultLimit = %d, want 50", cfg.Search.ResultLimit)
	}
}

func TestLoadInvalidOperator(t *testing.T) {
	path := writeTempToml(t, `
[parser]
default_operator = "xor"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an invalid default_operator")
	}
}
