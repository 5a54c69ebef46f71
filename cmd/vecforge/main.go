// Command vecforge builds CPU-resident, serializable vector indexes from
// raw vector files and pushes them to an object store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	jsonLog bool
)

var rootCmd = &cobra.Command{
	Use:   "vecforge",
	Short: "vecforge - build and ship CPU-serializable vector indexes",
	Long: `vecforge converts accelerator-built vector indexes into their
CPU-resident, disk-serializable form, verifies the produced files and
uploads them to an object store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "vecforge.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json", false, "log in JSON format")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
