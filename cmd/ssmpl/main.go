// Command ssmpl compiles or simulates ssmpl source files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skx/ssmpl/reporter"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "ssmpl",
	Short: "A compiler and simulator for the ssmpl stack language",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "Info", "minimum report level to print (Info, Warning, Error)")
	rootCmd.AddCommand(comCmd, simCmd)
}

func newReporter() *reporter.Reporter {
	level, err := reporter.ParseLevel(logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return reporter.New(level)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
