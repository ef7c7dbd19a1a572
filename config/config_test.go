package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != (File{}) {
		t.Errorf("expected zero File, got %+v", f)
	}
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sv2ipxact.toml")
	body := `
libs_dir = "./ipxact-libs"
cache_path = "./libcache.json"
threshold = 0.7
revision = "2014"
weights = "./weights.yaml"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.LibsDir != "./ipxact-libs" || f.Revision != "2014" {
		t.Errorf("unexpected parse result: %+v", f)
	}
	if f.Threshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", f.Threshold)
	}
}

func TestApplyFlagsOverrideFile(t *testing.T) {
	f := File{LibsDir: "./file-libs", Threshold: 0.6, Revision: "2009"}
	o := Overrides{
		Threshold:    0.8,
		ThresholdSet: true,
		Revision:     "2022",
		RevisionSet:  true,
	}

	r := Apply(f, o)
	if r.LibsDir != "./file-libs" {
		t.Errorf("expected unset flag to fall back to file value, got %q", r.LibsDir)
	}
	if r.Threshold != 0.8 || r.Revision != "2022" {
		t.Errorf("expected explicit flags to win, got %+v", r)
	}
}
