package sim

import (
	"bytes"
	"strings"
	"testing"

	"github.com/skx/ssmpl/ops"
	"github.com/skx/ssmpl/reporter"
)

func runProgram(t *testing.T, prog *ops.Program) string {
	t.Helper()

	rep := reporter.New(reporter.Error)
	var out bytes.Buffer
	New(prog, rep, &out).Run()
	return out.String()
}

func TestArithmeticAndDump(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 3},
		{Kind: ops.PushI, IVal: 4},
		{Kind: ops.Add},
		{Kind: ops.Dump},
	}

	got := runProgram(t, prog)
	if got != "7\n" {
		t.Errorf("expected dump output %q, got %q", "7\n", got)
	}
}

func TestFloatPromotion(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 2},
		{Kind: ops.PushF, FVal: 0.5},
		{Kind: ops.Mul},
		{Kind: ops.Dump},
	}

	got := runProgram(t, prog)
	if got != "1.0\n" {
		t.Errorf("expected dump output %q, got %q", "1.0\n", got)
	}
}

// TestDupCascades exercises the cascading-index semantics: dup(2) with
// stack [1 2] must produce [1 2 1 2], not [1 2 1 1].
func TestDupCascades(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 1},
		{Kind: ops.PushI, IVal: 2},
		{Kind: ops.Dup, N: 2},
		{Kind: ops.Dump},
		{Kind: ops.Dump},
		{Kind: ops.Dump},
		{Kind: ops.Dump},
	}

	got := runProgram(t, prog)
	want := "2\n1\n2\n1\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestOverSingleIndex(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 10},
		{Kind: ops.PushI, IVal: 20},
		{Kind: ops.PushI, IVal: 30},
		{Kind: ops.Over, N: 2},
		{Kind: ops.Dump},
	}

	got := runProgram(t, prog)
	if got != "10\n" {
		t.Errorf("expected %q, got %q", "10\n", got)
	}
}

// TestIfElse builds: true if then 111 dump else 222 dump end
func TestIfElse(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushB, BVal: true},
		{Kind: ops.If, Label: 0},
		{Kind: ops.Then, Label: 0, HasElse: true},
		{Kind: ops.PushI, IVal: 111},
		{Kind: ops.Dump},
		{Kind: ops.Else, Label: 0},
		{Kind: ops.PushI, IVal: 222},
		{Kind: ops.Dump},
		{Kind: ops.End, Label: 0},
	}

	got := runProgram(t, prog)
	if got != "111\n" {
		t.Errorf("expected the then-branch to run, got %q", got)
	}
}

func TestIfElseFalseBranch(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushB, BVal: false},
		{Kind: ops.If, Label: 0},
		{Kind: ops.Then, Label: 0, HasElse: true},
		{Kind: ops.PushI, IVal: 111},
		{Kind: ops.Dump},
		{Kind: ops.Else, Label: 0},
		{Kind: ops.PushI, IVal: 222},
		{Kind: ops.Dump},
		{Kind: ops.End, Label: 0},
	}

	got := runProgram(t, prog)
	if got != "222\n" {
		t.Errorf("expected the else-branch to run, got %q", got)
	}
}

// TestWhileLoop counts 3 2 1 down to zero, dumping each iteration.
func TestWhileLoop(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 3}, // counter seed via mem? use stack directly instead
	}
	// Simplify: loop body decrements the top of stack while nonzero, dumping.
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 3},
		{Kind: ops.While, Label: 0},
		{Kind: ops.Dup, N: 1},
		{Kind: ops.PushI, IVal: 0},
		{Kind: ops.Ne},
		{Kind: ops.Do, Label: 0},
		{Kind: ops.Dup, N: 1},
		{Kind: ops.Dump},
		{Kind: ops.Decrement},
		{Kind: ops.End, Label: 0, IsWhile: true},
		{Kind: ops.Drop, N: 1},
	}

	got := runProgram(t, prog)
	want := "3\n2\n1\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.Mem, MemName: ""},
		{Kind: ops.PushI, IVal: 0xDEAD},
		{Kind: ops.Store, Width: 64},
		{Kind: ops.Mem, MemName: ""},
		{Kind: ops.Load, Width: 64},
		{Kind: ops.Dump},
	}

	got := runProgram(t, prog)
	if got != "57005\n" {
		t.Errorf("expected round-tripped value 57005, got %q", got)
	}
}

func TestSyscallStub(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.Syscall, SyscallCode: 1, SyscallArgc: 0},
		{Kind: ops.Dump},
	}

	got := runProgram(t, prog)
	if got != "42\n" {
		t.Errorf("expected the stubbed syscall to push 42, got %q", got)
	}
}

func TestStringLiteralOffsets(t *testing.T) {
	prog := ops.NewProgram()
	first := prog.InternString("hi")
	second := prog.InternString("there")
	dup := prog.InternString("hi")

	if first != dup {
		t.Errorf("expected re-interning \"hi\" to return the original index %d, got %d", first, dup)
	}
	if len(prog.Strings) != 2 {
		t.Errorf("expected the string table to hold 2 distinct entries, got %d", len(prog.Strings))
	}

	prog.Ops = []ops.Op{
		{Kind: ops.PushStr, StrIndex: second},
		{Kind: ops.Load, Width: 8},
		{Kind: ops.Dump},
	}

	got := runProgram(t, prog)
	// "there" is stored after "hi" (2 bytes), so its first byte is 't' == 116.
	want := strings.TrimSpace("116")
	if strings.TrimSpace(got) != want {
		t.Errorf("expected the first byte of \"there\" (116), got %q", got)
	}
}
