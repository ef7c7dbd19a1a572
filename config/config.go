// Package config loads the optional TOML project configuration file
// (§6) that carries the same knobs the CLI flags expose, so a project
// can commit a config file instead of repeating flags on every
// invocation. Parsing goes through the teacher's own TOML-to-JSON
// bridge (github.com/komkom/toml feeding encoding/json.Decoder),
// exactly as mra/mame2mra.go loads mame2mra.toml.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	toml "github.com/komkom/toml"
)

// File is the shape of an sv2ipxact.toml project config.
type File struct {
	LibsDir   string  `json:"libs_dir"`
	CachePath string  `json:"cache_path"`
	Threshold float64 `json:"threshold"`
	Revision  string  `json:"revision"`
	Weights   string  `json:"weights"` // path to a weights.yaml overlay; carried into Resolved.Weights, which the pipeline does not read (library.Load always uses <libs_dir>/weights.yaml)
}

// Load parses path as a TOML project config. A missing file is not an
// error — it returns a zero File so callers can layer CLI flags over
// it unconditionally.
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("config: reading %s: %w", path, err)
	}

	jsonEnc := toml.New(bytes.NewBuffer(data))
	dec := json.NewDecoder(jsonEnc)
	if err := dec.Decode(&f); err != nil {
		return f, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return f, nil
}

// Overrides carries CLI flag values, each paired with a ...Set flag
// recording whether it was passed explicitly. Apply layers them over the
// file's values: an explicit flag always wins, an unset flag falls back
// to whatever the project file declared.
type Overrides struct {
	LibsDir      string
	LibsDirSet   bool
	CachePath    string
	CachePathSet bool
	Threshold    float64
	ThresholdSet bool
	Revision     string
	RevisionSet  bool
	Weights      string
	WeightsSet   bool
}

// Resolved is the final, merged set of knobs the CLI acts on.
type Resolved struct {
	LibsDir   string
	CachePath string
	Threshold float64
	Revision  string
	Weights   string
}

// Apply merges o over f, CLI flags taking precedence per §6.
func Apply(f File, o Overrides) Resolved {
	r := Resolved{
		LibsDir:   f.LibsDir,
		CachePath: f.CachePath,
		Threshold: f.Threshold,
		Revision:  f.Revision,
		Weights:   f.Weights,
	}
	if o.LibsDirSet {
		r.LibsDir = o.LibsDir
	}
	if o.CachePathSet {
		r.CachePath = o.CachePath
	}
	if o.ThresholdSet {
		r.Threshold = o.Threshold
	}
	if o.RevisionSet {
		r.Revision = o.Revision
	}
	if o.WeightsSet {
		r.Weights = o.Weights
	}
	return r
}
