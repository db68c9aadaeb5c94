// Package driver orchestrates the compile backend: writing the emitted
// assembly and the auxiliary routines to a build directory, invoking nasm
// and ld, and optionally running the resulting binary.
package driver

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/skx/ssmpl/reporter"
)

// Options configures a single compile-and-link run.
type Options struct {
	// OutputPath is the final executable's path, e.g. "a.out" or
	// "build/prog".
	OutputPath string

	// Debug keeps the intermediate .asm/.o files instead of removing
	// them after a successful link.
	Debug bool

	// Run executes the produced binary immediately after a successful
	// link, propagating its exit code.
	Run bool
}

// Driver runs the external toolchain (nasm, ld) against emitted assembly.
type Driver struct {
	rep *reporter.Reporter
	opt Options
}

// New returns a Driver that reports through rep.
func New(rep *reporter.Reporter, opt Options) *Driver {
	return &Driver{rep: rep, opt: opt}
}

// Build writes asmSource to <base>.asm, assembles the embedded auxiliary
// routines to aux.o, assembles the program to <base>.o, links both into
// opt.OutputPath, and (unless Debug is set) removes the intermediates.
// If opt.Run is set, it then executes the binary and exits the process
// with its exit code.
func (d *Driver) Build(asmSource string) error {
	outPath := d.opt.OutputPath
	if outPath == "" {
		outPath = "a.out"
	}

	dir := filepath.Dir(outPath)
	if dir == "" {
		dir = "."
	}
	base := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))

	asmPath := filepath.Join(dir, base+".asm")
	auxAsmPath := filepath.Join(dir, "aux.asm")
	auxObjPath := filepath.Join(dir, "aux.o")
	objPath := filepath.Join(dir, base+".o")

	d.rep.AddInfo("writing %s", asmPath)
	if err := os.WriteFile(asmPath, []byte(asmSource), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", asmPath)
	}

	auxSrc, err := auxSource()
	if err != nil {
		return errors.Wrap(err, "reading embedded auxiliary source")
	}
	d.rep.AddInfo("writing %s", auxAsmPath)
	if err := os.WriteFile(auxAsmPath, auxSrc, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", auxAsmPath)
	}

	if err := d.nasm(auxAsmPath); err != nil {
		return err
	}
	if err := d.nasm(asmPath); err != nil {
		return err
	}
	if err := d.ld(objPath, auxObjPath, outPath); err != nil {
		return err
	}

	if !d.opt.Debug {
		for _, p := range []string{asmPath, auxAsmPath, objPath, auxObjPath} {
			if err := os.Remove(p); err != nil {
				d.rep.AddWarning("failed to remove intermediate file %s: %s", p, err)
			}
		}
	}

	if d.opt.Run {
		return d.run(outPath)
	}
	return nil
}

func (d *Driver) nasm(asmPath string) error {
	return d.spawn("nasm", "-felf64", asmPath)
}

func (d *Driver) ld(objPath, auxObjPath, outPath string) error {
	return d.spawn("ld", objPath, auxObjPath, "-o", outPath, "--no-warn-execstack")
}

func (d *Driver) spawn(name string, args ...string) error {
	d.rep.AddInfo("running `%s %s`", name, strings.Join(args, " "))

	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to spawn %s", name)
	}
	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(err, "failed to run %s", name)
	}
	return nil
}

// run execs the produced binary in-place via os.Exec semantics: it
// replaces nothing (Go can't exec(2) in place portably), instead running
// the child and exiting this process with its exit code.
func (d *Driver) run(outPath string) error {
	abs, err := filepath.Abs(outPath)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", outPath)
	}

	cmd := exec.Command(abs)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	err = cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		return errors.Wrapf(err, "running %s", abs)
	}
	return nil
}
