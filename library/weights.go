package library

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/jtbus/sv2ipxact/model"
	"github.com/jtbus/sv2ipxact/runreport"
)

// WeightOverride is a per-VLNV override of the matcher's tunables (§4.3).
// Each field is a pointer so an absent key in weights.yaml leaves the
// matcher's default untouched rather than zeroing it out.
type WeightOverride struct {
	Threshold       *float64 `yaml:"threshold"`
	WRequired       *float64 `yaml:"w_required"`
	WOptional       *float64 `yaml:"w_optional"`
	WPenalty        *float64 `yaml:"w_penalty"`
	AmbiguityMargin *float64 `yaml:"ambiguity_margin"`
}

// weightsYAML is the on-disk shape: a map from "vendor:library:name:version"
// to the override fields for that bus definition.
type weightsYAML map[string]WeightOverride

// loadWeightsOverlay reads <root>/weights.yaml if present, mirroring the
// teacher's mem.yaml loading in src/mem/mem.go. Absence is not an error.
func loadWeightsOverlay(root string, rep *runreport.Report) map[model.VLNV]WeightOverride {
	path := filepath.Join(root, "weights.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var raw weightsYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		rep.Add(runreport.LibraryParseWarning, 0, 0, "%s: %v", path, err)
		return nil
	}

	out := make(map[model.VLNV]WeightOverride, len(raw))
	for key, override := range raw {
		var v model.VLNV
		if err := v.UnmarshalText([]byte(strings.TrimSpace(key))); err != nil {
			rep.Add(runreport.LibraryParseWarning, 0, 0, "%s: bad VLNV key %q: %v", path, key, err)
			continue
		}
		out[v] = override
	}
	return out
}
