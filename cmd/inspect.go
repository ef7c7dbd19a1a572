package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jtbus/sv2ipxact/config"
)

var inspectArgs sharedArgs

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Parse and match a SystemVerilog module without writing IP-XACT output",
	Long: `Runs the same preprocess/parse/group/match pipeline as convert, then
prints a summary of the run report, the inferred port groups, and the
matched bus interfaces. Useful for tuning the matcher without touching
the serializer.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		inspectArgs.libsDirSet = cmd.Flags().Changed("libs")
		inspectArgs.cachePathSet = cmd.Flags().Changed("cache")
		inspectArgs.thresholdSet = cmd.Flags().Changed("threshold")
	},
	Run: func(cmd *cobra.Command, args []string) {
		overrides := config.Overrides{
			LibsDir: inspectArgs.LibsDir, LibsDirSet: inspectArgs.libsDirSet,
			CachePath: inspectArgs.CachePath, CachePathSet: inspectArgs.cachePathSet,
			Threshold: inspectArgs.Threshold, ThresholdSet: inspectArgs.thresholdSet,
		}

		res, err := runPipeline(inspectArgs, overrides)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitCodeFor(err))
		}
		printReport(res.rep, true)

		fmt.Printf("module %s: %d port(s), %d parameter(s)\n",
			res.mod.Name, len(res.mod.Ports), len(res.mod.Parameters))

		fmt.Printf("%d port group(s):\n", len(res.groups.Groups))
		for _, g := range res.groups.Groups {
			fmt.Printf("  %s (%d port(s), clock=%v reset=%v)\n", g.Name, len(g.Ports), g.IsClock, g.IsReset)
		}

		fmt.Printf("%d matched bus interface(s):\n", len(res.matched.Interfaces))
		for _, bi := range res.matched.Interfaces {
			fmt.Printf("  %s -> %s (%s), %d portMap(s)\n", bi.Name, bi.Bus.VLNV.String(), bi.Role, len(bi.PortMaps))
		}

		if len(res.matched.Residual) > 0 {
			fmt.Printf("%d residual port(s):\n", len(res.matched.Residual))
			for _, p := range res.matched.Residual {
				fmt.Printf("  %s\n", p.Name)
			}
		}
	},
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	flag := inspectCmd.Flags()

	flag.StringVarP(&inspectArgs.Input, "input", "i", "", "Path to the SystemVerilog source file")
	flag.StringVar(&inspectArgs.LibsDir, "libs", "", "Directory of IP-XACT bus/abstraction definition files")
	flag.StringVar(&inspectArgs.CachePath, "cache", "", "Path to the library catalog cache file")
	flag.BoolVar(&inspectArgs.Rebuild, "rebuild", false, "Ignore the library cache and rescan --libs")
	flag.Float64Var(&inspectArgs.Threshold, "threshold", 0, "Override the matcher's acceptance threshold (0 keeps the default)")
	flag.StringVar(&inspectArgs.ConfigPath, "config", "./sv2ipxact.toml", "Path to an optional TOML project config")

	inspectCmd.MarkFlagRequired("input")
}
