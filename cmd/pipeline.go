package cmd

import (
	"fmt"
	"os"

	"github.com/jtbus/sv2ipxact/config"
	"github.com/jtbus/sv2ipxact/ipxact"
	"github.com/jtbus/sv2ipxact/library"
	"github.com/jtbus/sv2ipxact/match"
	"github.com/jtbus/sv2ipxact/model"
	"github.com/jtbus/sv2ipxact/portgroup"
	"github.com/jtbus/sv2ipxact/preprocess"
	"github.com/jtbus/sv2ipxact/runreport"
	"github.com/jtbus/sv2ipxact/svparse"
)

// exitCodeFor maps a pipeline error to §6's exit-code contract: 0
// success (never reached here, Execute returns normally on nil error), 1
// parse/I/O failure, 3 usage error. Code 2 (validation failure) is
// reserved; no validator ships by default.
func exitCodeFor(err error) int {
	if _, ok := runreport.KindOf(err); ok {
		return 1
	}
	return 3
}

// sharedArgs is the flag surface common to convert and inspect.
type sharedArgs struct {
	Input       string
	LibsDir     string
	CachePath   string
	Rebuild     bool
	Threshold   float64
	ConfigPath  string
	Verbose     bool

	thresholdSet bool
	libsDirSet   bool
	cachePathSet bool
}

// pipelineResult holds everything downstream consumers (convert's
// serializer, inspect's summary printer) need.
type pipelineResult struct {
	mod      *model.Module
	groups   portgroup.Result
	matched  match.Result
	rep      *runreport.Report
	resolved config.Resolved
}

// runPipeline executes preprocess -> parse -> group -> library load ->
// match, common to both subcommands. It returns an error on the first
// unrecoverable failure (a config-file read/parse error, or one of §7's
// three fatal kinds); all other problems accumulate in the returned
// Report.
func runPipeline(a sharedArgs, overrides config.Overrides) (*pipelineResult, error) {
	rep := runreport.New()

	cfgFile, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	resolved := config.Apply(cfgFile, overrides)

	data, err := os.ReadFile(a.Input)
	if err != nil {
		return nil, runreport.Fatal(runreport.SourceIoError, "reading %s: %v", a.Input, err)
	}

	cleaned := preprocess.Process(string(data), rep)

	mod, err := svparse.Parse(cleaned, a.Input, rep)
	if err != nil {
		return nil, err
	}

	groups := portgroup.Infer(mod)

	var cat model.Catalog
	var overlays map[model.VLNV]library.WeightOverride
	if resolved.LibsDir != "" {
		cat, overlays, err = library.Load(resolved.LibsDir, resolved.CachePath, a.Rebuild, rep)
		if err != nil {
			return nil, err
		}
	}

	cfg := match.DefaultConfig()
	if resolved.Threshold > 0 {
		cfg.Threshold = resolved.Threshold
	}
	matched := match.Match(mod, groups, cat, cfg, overlays, rep)

	return &pipelineResult{mod: mod, groups: groups, matched: matched, rep: rep, resolved: resolved}, nil
}

func printReport(rep *runreport.Report, verbose bool) {
	if len(rep.Entries) == 0 {
		return
	}
	if verbose {
		for _, e := range rep.Entries {
			fmt.Fprintln(os.Stderr, e.String())
		}
		return
	}
	fmt.Fprintf(os.Stderr, "sv2ipxact: %d warning(s); rerun with -v for detail\n", len(rep.Entries))
}

func resolveRevision(s string) (ipxact.Revision, error) {
	if s == "" {
		return ipxact.Rev2014, nil
	}
	return ipxact.ParseRevision(s)
}
