package main

import (
	"github.com/spf13/cobra"

	"github.com/skx/ssmpl/codegen"
	"github.com/skx/ssmpl/driver"
	"github.com/skx/ssmpl/parser"
	"github.com/skx/ssmpl/reporter"
	"github.com/skx/ssmpl/typecheck"
)

var (
	comOutput   string
	comDebug    bool
	comRun      bool
	comRounding bool
)

var comCmd = &cobra.Command{
	Use:   "com <file>",
	Short: "Compile a program to a native ELF64 executable",
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

		emitter := codegen.New(prog, rep, codegen.Options{Rounding: comRounding})
		asm := emitter.Format(emitter.Emit())

		d := driver.New(rep, driver.Options{
			OutputPath: comOutput,
			Debug:      comDebug,
			Run:        comRun,
		})
		if err := d.Build(asm); err != nil {
			rep.Fatal("%s", err)
		}
		rep.Flush()
	},
}

func init() {
	comCmd.Flags().StringVarP(&comOutput, "output", "o", "a.out", "output executable path")
	comCmd.Flags().BoolVarP(&comDebug, "debug", "d", false, "keep intermediate .asm/.o files")
	comCmd.Flags().BoolVarP(&comRun, "run", "r", false, "run the produced binary")
	comCmd.Flags().BoolVar(&comRounding, "rounding", false, "round floats to the nearest integer when dumping")
}
