package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jtbus/sv2ipxact/config"
	"github.com/jtbus/sv2ipxact/ipxact"
	"github.com/jtbus/sv2ipxact/runreport"
)

var convertArgs sharedArgs
var convertOutput string
var convertRevision string

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Parse a SystemVerilog module and emit an IP-XACT component",
	PreRun: func(cmd *cobra.Command, args []string) {
		convertArgs.libsDirSet = cmd.Flags().Changed("libs")
		convertArgs.cachePathSet = cmd.Flags().Changed("cache")
		convertArgs.thresholdSet = cmd.Flags().Changed("threshold")
	},
	Run: func(cmd *cobra.Command, args []string) {
		overrides := config.Overrides{
			LibsDir: convertArgs.LibsDir, LibsDirSet: convertArgs.libsDirSet,
			CachePath: convertArgs.CachePath, CachePathSet: convertArgs.cachePathSet,
			Threshold: convertArgs.Threshold, ThresholdSet: convertArgs.thresholdSet,
			Revision: convertRevision, RevisionSet: convertRevision != "",
		}

		res, err := runPipeline(convertArgs, overrides)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitCodeFor(err))
		}
		printReport(res.rep, convertArgs.Verbose)

		rev, err := resolveRevision(res.resolved.Revision)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(3)
		}

		doc := ipxact.Document{
			Module:     res.mod,
			Interfaces: res.matched.Interfaces,
			SourceFile: res.mod.SourceFile,
		}
		out := ipxact.Render(doc, rev)

		outPath := convertOutput
		if outPath == "" {
			outPath = defaultOutputPath(convertArgs.Input)
		}
		if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
			wrapped := runreport.Fatal(runreport.OutputIoError, "writing %s: %v", outPath, err)
			fmt.Fprintln(os.Stderr, wrapped)
			os.Exit(exitCodeFor(wrapped))
		}
	},
	Args: cobra.NoArgs,
}

func defaultOutputPath(input string) string {
	base := strings.TrimSuffix(input, ".sv")
	base = strings.TrimSuffix(base, ".v")
	return base + ".xml"
}

func init() {
	rootCmd.AddCommand(convertCmd)
	flag := convertCmd.Flags()

	flag.StringVarP(&convertArgs.Input, "input", "i", "", "Path to the SystemVerilog source file")
	flag.StringVarP(&convertOutput, "output", "o", "", "Path to write the IP-XACT component (default: input file with .xml extension)")
	flag.StringVar(&convertArgs.LibsDir, "libs", "", "Directory of IP-XACT bus/abstraction definition files")
	flag.StringVar(&convertArgs.CachePath, "cache", "", "Path to the library catalog cache file")
	flag.BoolVar(&convertArgs.Rebuild, "rebuild", false, "Ignore the library cache and rescan --libs")
	flag.Float64Var(&convertArgs.Threshold, "threshold", 0, "Override the matcher's acceptance threshold (0 keeps the default)")
	flag.StringVar(&convertRevision, "rev", "", "IP-XACT schema revision: 2009, 2014, or 2022 (default 2014)")
	flag.StringVar(&convertArgs.ConfigPath, "config", "./sv2ipxact.toml", "Path to an optional TOML project config")
	flag.BoolVarP(&convertArgs.Verbose, "verbose", "v", false, "Print the full run report")

	convertCmd.MarkFlagRequired("input")
}
