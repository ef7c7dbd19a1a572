// Package cmd wires the Cobra CLI: sv2ipxact convert and sv2ipxact
// inspect, both built on the same pipeline (preprocess -> svparse ->
// portgroup -> library -> match -> ipxact).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sv2ipxact",
	Short: "Convert a SystemVerilog module header into an IP-XACT component",
	Long: `sv2ipxact reads a SystemVerilog module's ports and parameters,
groups them into candidate bus interfaces, matches each group against a
directory of IP-XACT bus/abstraction definitions, and emits an IP-XACT
component describing the module.`,
}

// Execute runs the root command; it is the sole export used by
// cmd/sv2ipxact/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
