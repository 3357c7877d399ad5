// Command bsdebug is the composition root wiring configuration, logging,
// the Debugger Client and the DAP bridge behind two front-ends: an
// interactive REPL and a DAP server for editor integration, generalized
// from the teacher's app.go wiring (there: Wails runtime plus managers;
// here: cobra subcommands plus this module's own managers).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	targetHost string
	targetPort int
)

var rootCmd = &cobra.Command{
	Use:   "bsdebug",
	Short: "Client for the BrightScript remote debugging protocol",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (default: no file, built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&targetHost, "host", "", "target device host or IP, overrides config")
	rootCmd.PersistentFlags().IntVar(&targetPort, "port", 0, "target control port, overrides config (default 8081)")

	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(dapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
