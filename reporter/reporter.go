// Package reporter collects leveled diagnostic messages during a compile
// or simulate run and flushes them, sorted by severity, at explicit phase
// boundaries.
package reporter

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Level is one of the three severities a Report can carry.
type Level int

// Levels are declared in ascending severity order: flushing sorts reports
// by Level ascending (Info first, Error last) and is stable within a
// level, matching insertion order.
const (
	Info Level = iota
	Warning
	Error
)

// String renders a Level the way flushed messages are prefixed.
func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warning:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "????"
	}
}

// ParseLevel resolves the `--log` flag's value (case-sensitive match on
// Info/Warning/Error) to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "Info":
		return Info, nil
	case "Warning":
		return Warning, nil
	case "Error":
		return Error, nil
	default:
		return Info, errors.Errorf("unknown log level %q (want Info, Warning or Error)", s)
	}
}

// Report is a single leveled message, plus the order it was added in (used
// to keep the flush stable within a level).
type Report struct {
	Level Level
	Msg   string
	seq   int
}

func newReport(level Level, msg string) Report {
	return Report{Level: level, Msg: msg}
}

// Reporter accumulates Reports across the lexer/parser/type-checker/
// simulator/emitter phases of a single run and flushes them to stdout on
// phase boundaries or on fatal exit. It is owned exclusively by the
// driver and threaded by pointer through each phase -- it is never made a
// package-level global.
type Reporter struct {
	out      io.Writer
	minLevel Level
	reports  []Report
	seq      int
}

// New returns a Reporter that suppresses messages below minLevel on
// flush.
func New(minLevel Level) *Reporter {
	return &Reporter{out: color.Output, minLevel: minLevel}
}

// Add appends a Report.
func (r *Reporter) Add(report Report) *Reporter {
	report.seq = r.seq
	r.seq++
	r.reports = append(r.reports, report)
	return r
}

// AddError appends an Error-level report.
func (r *Reporter) AddError(format string, args ...interface{}) *Reporter {
	return r.Add(newReport(Error, fmt.Sprintf(format, args...)))
}

// AddWarning appends a Warning-level report.
func (r *Reporter) AddWarning(format string, args ...interface{}) *Reporter {
	return r.Add(newReport(Warning, fmt.Sprintf(format, args...)))
}

// AddInfo appends an Info-level report.
func (r *Reporter) AddInfo(format string, args ...interface{}) *Reporter {
	return r.Add(newReport(Info, fmt.Sprintf(format, args...)))
}

// colorFor picks the color each Level prints with, mirroring the
// termcolor palette of the original implementation.
func colorFor(l Level) *color.Color {
	switch l {
	case Error:
		return color.New(color.FgRed)
	case Warning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

// Flush prints every accumulated report at or above minLevel, sorted by
// severity ascending and stable within a severity, then clears the
// buffer.
func (r *Reporter) Flush() *Reporter {
	visible := make([]Report, 0, len(r.reports))
	for _, rep := range r.reports {
		if rep.Level >= r.minLevel {
			visible = append(visible, rep)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Level != visible[j].Level {
			return visible[i].Level < visible[j].Level
		}
		return visible[i].seq < visible[j].seq
	})
	for _, rep := range visible {
		colorFor(rep.Level).Fprintf(r.out, "%s: %s\n", rep.Level, rep.Msg)
	}
	r.reports = nil
	return r
}

// Has reports whether any accumulated report is at or above level.
func (r *Reporter) Has(level Level) bool {
	for _, rep := range r.reports {
		if rep.Level >= level {
			return true
		}
	}
	return false
}

// Exit flushes and terminates the process with code. It never returns.
func (r *Reporter) Exit(code int) {
	r.Flush()
	os.Exit(code)
}

// ExitIf flushes and exits with code if any accumulated report is at or
// above level; otherwise it's a no-op.
func (r *Reporter) ExitIf(level Level, code int) *Reporter {
	if r.Has(level) {
		r.Exit(code)
	}
	return r
}

// Fatal is a convenience for "add an Error report and exit(1) now", used
// by the parser, type checker and simulator for unrecoverable conditions.
func (r *Reporter) Fatal(format string, args ...interface{}) {
	r.AddError(format, args...)
	r.Exit(1)
}
