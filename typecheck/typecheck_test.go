package typecheck

import (
	"testing"

	"github.com/skx/ssmpl/ops"
	"github.com/skx/ssmpl/reporter"
)

func checkProgram(prog *ops.Program) *reporter.Reporter {
	rep := reporter.New(reporter.Info)
	New(rep).Check(prog)
	return rep
}

func TestLiteralPushesResolveTypes(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 1},
		{Kind: ops.PushF, FVal: 2.5},
		{Kind: ops.PushB, BVal: true},
		{Kind: ops.Drop, N: 3},
	}

	checkProgram(prog)

	want := []ops.Type{ops.I64, ops.F64, ops.Bool}
	for i, w := range want {
		if !prog.Ops[i].Annot.Resolved {
			t.Fatalf("op %d: expected a resolved annotation", i)
		}
		if prog.Ops[i].Annot.Type != w {
			t.Errorf("op %d: expected type %s, got %s", i, w, prog.Ops[i].Annot.Type)
		}
	}
}

func TestArithmeticPromotion(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 1},
		{Kind: ops.PushF, FVal: 2.5},
		{Kind: ops.Add},
		{Kind: ops.Drop, N: 1},
	}

	checkProgram(prog)

	add := prog.Ops[2]
	if add.Annot.Type != ops.F64 {
		t.Errorf("expected i64+f64 to resolve to f64, got %s", add.Annot.Type)
	}
	if add.Annot.Left != ops.I64 || add.Annot.Right != ops.F64 {
		t.Errorf("expected operand annotation left=i64 right=f64, got left=%s right=%s", add.Annot.Left, add.Annot.Right)
	}
}

func TestPointerArithmeticPreservesPtr(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.Mem, MemName: ""},
		{Kind: ops.PushI, IVal: 8},
		{Kind: ops.Add},
		{Kind: ops.Drop, N: 1},
	}

	checkProgram(prog)

	add := prog.Ops[2]
	if add.Annot.Type != ops.Ptr {
		t.Errorf("expected ptr+i64 to resolve to ptr, got %s", add.Annot.Type)
	}
}

func TestShiftPreservesLowerOperandType(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.Mem, MemName: ""},
		{Kind: ops.PushI, IVal: 1},
		{Kind: ops.ShiftR},
		{Kind: ops.Drop, N: 1},
	}

	checkProgram(prog)

	shift := prog.Ops[2]
	if shift.Annot.Type != ops.Ptr {
		t.Errorf("expected shift result to preserve the lower operand's ptr type, got %s", shift.Annot.Type)
	}
}

func TestDupCascadePassesDepthChecks(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.PushI, IVal: 1},
		{Kind: ops.PushB, BVal: true},
		{Kind: ops.Dup, N: 2},
		{Kind: ops.Drop, N: 4},
	}

	checkProgram(prog)
	// Should not have exited fatally; reaching here means the depth/shape
	// checks for a cascading dup(2) passed.
}

func TestIfThenElseLinksLabels(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.If},
		{Kind: ops.PushB, BVal: true},
		{Kind: ops.Then},
		{Kind: ops.PushI, IVal: 1},
		{Kind: ops.Else},
		{Kind: ops.PushI, IVal: 2},
		{Kind: ops.End},
		{Kind: ops.Drop, N: 1},
	}

	checkProgram(prog)

	ifOp, thenOp, elseOp, endOp := prog.Ops[0], prog.Ops[2], prog.Ops[4], prog.Ops[6]
	if ifOp.Label != thenOp.Label || thenOp.Label != elseOp.Label || elseOp.Label != endOp.Label {
		t.Errorf("expected if/then/else/end to share one label, got %d/%d/%d/%d",
			ifOp.Label, thenOp.Label, elseOp.Label, endOp.Label)
	}
	if !thenOp.HasElse {
		t.Errorf("expected Then.HasElse to be set")
	}
}

func TestWhileDoLinksLabelsSeparatelyFromIf(t *testing.T) {
	prog := ops.NewProgram()
	prog.Ops = []ops.Op{
		{Kind: ops.If},
		{Kind: ops.PushB, BVal: true},
		{Kind: ops.Then},
		{Kind: ops.End},

		{Kind: ops.While},
		{Kind: ops.PushB, BVal: false},
		{Kind: ops.Do},
		{Kind: ops.End, IsWhile: true},
	}

	checkProgram(prog)

	ifLabel := prog.Ops[0].Label
	whileLabel := prog.Ops[4].Label
	if ifLabel != whileLabel {
		t.Errorf("if/while label counters are independent by construction; this asserts they both start at 0: got if=%d while=%d", ifLabel, whileLabel)
	}
	if !prog.Ops[7].IsWhile {
		t.Errorf("expected the while-closing End to have IsWhile set")
	}
}
