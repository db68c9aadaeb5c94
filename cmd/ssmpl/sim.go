package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/skx/ssmpl/parser"
	"github.com/skx/ssmpl/reporter"
	"github.com/skx/ssmpl/sim"
	"github.com/skx/ssmpl/typecheck"
)

var simCmd = &cobra.Command{
	Use:   "sim <file>",
	Short: "Run a program directly, without compiling it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rep := newReporter()

		prog, err := parser.New(rep).ParseFile(args[0])
		if err != nil {
			rep.Fatal("%s", err)
		}
		rep.Flush()

		typecheck.New(rep).Check(prog)
		rep.ExitIf(reporter.Error, 1).Flush()

		sim.New(prog, rep, os.Stdout).Run()
		rep.Flush()
	},
}
