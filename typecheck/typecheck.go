// Package typecheck implements the single forward pass that resolves
// every Op's Annotation, links control-flow labels, and enforces the
// stack-shape invariants: both branches of an if must leave the stack in
// the same shape, and a while body must not alter it.
package typecheck

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/skx/ssmpl/ops"
	"github.com/skx/ssmpl/reporter"
	"github.com/skx/ssmpl/stack"
)

// cfKind tags what kind of block a control-flow stack frame opened.
type cfKind int

const (
	cfIf cfKind = iota
	cfThen
	cfElse
	cfWhile
	cfDo
)

// frame is one entry on the control-flow stack: which Op in the program
// opened it, its assigned label, and the shadow-stack snapshot taken when
// it was pushed.
type frame struct {
	kind     cfKind
	opIndex  int
	label    int
	snapshot []ops.Annotation
}

// Checker walks a Program's Ops exactly once.
type Checker struct {
	rep *reporter.Reporter

	shadow *stack.Stack[ops.Annotation]
	cf     *stack.Stack[frame]

	ifElseCount  int
	whileDoCount int
}

// New returns a Checker that reports through rep.
func New(rep *reporter.Reporter) *Checker {
	return &Checker{
		rep:    rep,
		shadow: stack.New[ops.Annotation](),
		cf:     stack.New[frame](),
	}
}

// Check walks prog.Ops in place, resolving every Annotation and every
// control-flow label. On any violation it reports a fatal error (through
// the Reporter) and exits; a stack-shape mismatch is never recovered
// from.
func (c *Checker) Check(prog *ops.Program) {
	for i := range prog.Ops {
		c.checkOne(prog, i)
	}

	if !c.cf.Empty() {
		c.rep.Fatal("unexpected end of program: %d control-flow block(s) still open", c.cf.Len())
	}
	if !c.shadow.Empty() {
		c.rep.AddWarning("program leaves %d value(s) on the stack", c.shadow.Len())
	}
}

func (c *Checker) requireDepth(op *ops.Op, n int) {
	if c.shadow.Len() < n {
		c.rep.Fatal("%s: op requires %d value(s) on the stack, found %d\n%s",
			op.Pos, n, c.shadow.Len(), c.dump())
	}
}

func (c *Checker) dump() string {
	snap := c.shadow.Snapshot()
	var sb strings.Builder
	sb.WriteString("[\n")
	for i := len(snap) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "\t%s\n", snap[i])
	}
	sb.WriteString("]")
	return sb.String()
}

func (c *Checker) pop(op *ops.Op) ops.Annotation {
	a, err := c.shadow.Pop()
	if err != nil {
		c.rep.Fatal("%s: stack underflow\n%s", op.Pos, c.dump())
	}
	return a
}

func (c *Checker) push(t ops.Type, pos ops.Position) {
	c.shadow.Push(ops.Annotation{Pos: pos, Resolved: true, Type: t})
}

// checkImplicit validates an implicit conversion and records a warning
// when it's legal but non-trivial (from != to); every legal implicit
// conversion is surfaced. It is fatal when the conversion isn't in the
// allowed table.
func (c *Checker) checkImplicit(pos ops.Position, from, to ops.Type) {
	if from == to {
		return
	}
	if !ops.ImplicitlyConvertible(from, to) {
		c.rep.Fatal("%s: cannot implicitly convert %s to %s", pos, from, to)
	}
	c.rep.AddWarning("%s: implicit conversion from %s to %s", pos, from, to)
}

func (c *Checker) checkOne(prog *ops.Program, idx int) {
	op := &prog.Ops[idx]

	switch op.Kind {
	case ops.PushI:
		op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.I64}
		c.push(ops.I64, op.Pos)
	case ops.PushF:
		op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.F64}
		c.push(ops.F64, op.Pos)
	case ops.PushB:
		op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.Bool}
		c.push(ops.Bool, op.Pos)
	case ops.PushStr:
		op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.Ptr}
		c.push(ops.Ptr, op.Pos)

	case ops.Add, ops.Sub:
		c.checkArithAddSub(op)
	case ops.Mul, ops.Div:
		c.checkArithMulDiv(op)
	case ops.Mod:
		c.checkMod(op)

	case ops.Eq, ops.Ne, ops.Lt, ops.Gt, ops.Le, ops.Ge:
		c.checkComparison(op)

	case ops.ShiftL, ops.ShiftR:
		c.checkShift(op)
	case ops.BitAnd, ops.BitOr:
		c.checkBitwise(op)
	case ops.LogAnd, ops.LogOr:
		c.checkLogicalBinary(op)
	case ops.Not:
		c.checkNot(op)

	case ops.Increment, ops.Decrement:
		c.checkIncDec(op)

	case ops.Load:
		c.checkLoad(op)
	case ops.Store:
		c.checkStore(op)

	case ops.Swap:
		c.checkSwap(op)
	case ops.Drop:
		c.checkDrop(op)
	case ops.Over:
		c.checkOver(op)
	case ops.Dup:
		c.checkDup(op)
	case ops.Dump:
		c.checkDump(op)

	case ops.Cast:
		c.checkCast(op)
	case ops.Mem:
		op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.Ptr}
		c.push(ops.Ptr, op.Pos)
	case ops.Syscall:
		c.checkSyscall(op)
	case ops.Argc:
		op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.I64}
		c.push(ops.I64, op.Pos)
	case ops.Argv:
		op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.Ptr}
		c.push(ops.Ptr, op.Pos)

	case ops.If:
		c.checkIf(op)
	case ops.Then:
		c.checkThen(op, idx)
	case ops.Else:
		c.checkElse(prog, op)
	case ops.End:
		c.checkEnd(op)
	case ops.While:
		c.checkWhile(op)
	case ops.Do:
		c.checkDo(op)

	default:
		c.rep.Fatal("%s: internal error: unhandled op kind %v", op.Pos, op.Kind)
	}
}

// checkArithAddSub implements the `+ -` promotion rules: F64 dominates,
// then Ptr, then I64.
func (c *Checker) checkArithAddSub(op *ops.Op) {
	c.requireDepth(op, 2)
	right := c.pop(op) // popped first
	left := c.pop(op)

	var result ops.Type
	switch {
	case right.Type == ops.F64 || left.Type == ops.F64:
		c.checkImplicit(op.Pos, right.Type, ops.F64)
		c.checkImplicit(op.Pos, left.Type, ops.F64)
		result = ops.F64
	case left.Type == ops.Ptr:
		c.checkImplicit(op.Pos, right.Type, ops.I64)
		result = ops.Ptr
	case right.Type == ops.Ptr:
		c.checkImplicit(op.Pos, left.Type, ops.I64)
		result = ops.Ptr
	default:
		c.checkImplicit(op.Pos, right.Type, ops.I64)
		c.checkImplicit(op.Pos, left.Type, ops.I64)
		result = ops.I64
	}

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: result, Left: left.Type, Right: right.Type}
	c.push(result, op.Pos)
}

// checkArithMulDiv implements `* /`: F64 dominates, else I64 (no Ptr
// arithmetic for multiply/divide).
func (c *Checker) checkArithMulDiv(op *ops.Op) {
	c.requireDepth(op, 2)
	right := c.pop(op)
	left := c.pop(op)

	var result ops.Type
	if right.Type == ops.F64 || left.Type == ops.F64 {
		c.checkImplicit(op.Pos, right.Type, ops.F64)
		c.checkImplicit(op.Pos, left.Type, ops.F64)
		result = ops.F64
	} else {
		c.checkImplicit(op.Pos, right.Type, ops.I64)
		c.checkImplicit(op.Pos, left.Type, ops.I64)
		result = ops.I64
	}

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: result, Left: left.Type, Right: right.Type}
	c.push(result, op.Pos)
}

func (c *Checker) checkMod(op *ops.Op) {
	c.requireDepth(op, 2)
	right := c.pop(op)
	left := c.pop(op)
	c.checkImplicit(op.Pos, right.Type, ops.I64)
	c.checkImplicit(op.Pos, left.Type, ops.I64)

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.I64, Left: left.Type, Right: right.Type}
	c.push(ops.I64, op.Pos)
}

// checkComparison mirrors arithmetic promotion for operand typing, but
// always yields Bool.
func (c *Checker) checkComparison(op *ops.Op) {
	c.requireDepth(op, 2)
	right := c.pop(op)
	left := c.pop(op)

	switch {
	case left.Type == right.Type:
		// no conversion needed
	case left.Type == ops.F64 || right.Type == ops.F64:
		c.checkImplicit(op.Pos, left.Type, ops.F64)
		c.checkImplicit(op.Pos, right.Type, ops.F64)
	default:
		c.checkImplicit(op.Pos, left.Type, ops.I64)
		c.checkImplicit(op.Pos, right.Type, ops.I64)
	}

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.Bool, Left: left.Type, Right: right.Type}
	c.push(ops.Bool, op.Pos)
}

// checkShift: top must be I64-convertible (the shift amount); result type
// equals the lower (value) operand's type.
func (c *Checker) checkShift(op *ops.Op) {
	c.requireDepth(op, 2)
	amount := c.pop(op) // top
	value := c.pop(op)  // lower
	c.checkImplicit(op.Pos, amount.Type, ops.I64)

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: value.Type, Left: value.Type, Right: amount.Type}
	c.push(value.Type, op.Pos)
}

// checkBitwise: the lower operand must convert to the upper (top)
// operand's type; result is the upper's type.
func (c *Checker) checkBitwise(op *ops.Op) {
	c.requireDepth(op, 2)
	upper := c.pop(op) // top
	lower := c.pop(op) // below
	c.checkImplicit(op.Pos, lower.Type, upper.Type)

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: upper.Type, Left: lower.Type, Right: upper.Type}
	c.push(upper.Type, op.Pos)
}

func (c *Checker) checkLogicalBinary(op *ops.Op) {
	c.requireDepth(op, 2)
	right := c.pop(op)
	left := c.pop(op)
	c.checkImplicit(op.Pos, right.Type, ops.Bool)
	c.checkImplicit(op.Pos, left.Type, ops.Bool)

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.Bool, Left: left.Type, Right: right.Type}
	c.push(ops.Bool, op.Pos)
}

func (c *Checker) checkNot(op *ops.Op) {
	c.requireDepth(op, 1)
	a := c.pop(op)
	c.checkImplicit(op.Pos, a.Type, ops.Bool)

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.Bool}
	c.push(ops.Bool, op.Pos)
}

// checkIncDec: F64 and Ptr are preserved; everything else promotes to I64.
func (c *Checker) checkIncDec(op *ops.Op) {
	c.requireDepth(op, 1)
	a := c.pop(op)

	result := ops.I64
	if a.Type == ops.F64 || a.Type == ops.Ptr {
		result = a.Type
	} else {
		c.checkImplicit(op.Pos, a.Type, ops.I64)
	}

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: result, Left: a.Type}
	c.push(result, op.Pos)
}

func (c *Checker) checkLoad(op *ops.Op) {
	c.requireDepth(op, 1)
	ptr := c.pop(op)
	c.checkImplicit(op.Pos, ptr.Type, ops.Ptr)

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.I64, Left: ptr.Type}
	c.push(ops.I64, op.Pos)
}

func (c *Checker) checkStore(op *ops.Op) {
	c.requireDepth(op, 2)
	value := c.pop(op) // top
	ptr := c.pop(op)    // second from top
	c.checkImplicit(op.Pos, ptr.Type, ops.Ptr)

	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: value.Type, Left: ptr.Type, Right: value.Type}
}

func (c *Checker) checkSwap(op *ops.Op) {
	c.requireDepth(op, 2)
	a := c.pop(op)
	b := c.pop(op)
	c.shadow.Push(a)
	c.shadow.Push(b)
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
}

func (c *Checker) checkDrop(op *ops.Op) {
	c.requireDepth(op, op.N)
	for i := 0; i < op.N; i++ {
		c.pop(op)
	}
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
}

// checkOver requires n+1 values and pushes a copy of the one n+1-th from
// the top (0-indexed: PeekAt(n)).
func (c *Checker) checkOver(op *ops.Op) {
	c.requireDepth(op, op.N+1)
	t, err := c.shadow.PeekAt(op.N)
	if err != nil {
		c.rep.Fatal("%s: over(%d) requires %d value(s) on the stack\n%s", op.Pos, op.N, op.N+1, c.dump())
	}
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: t.Type}
	c.push(t.Type, op.Pos)
}

// checkDup requires n values and duplicates the (current) n-th from top,
// n times. Each of the n pushes re-reads the n-th-from-top position
// against the *current* (growing) stack -- matching the reference
// implementation's cascading behavior exactly (see DESIGN.md).
func (c *Checker) checkDup(op *ops.Op) {
	c.requireDepth(op, op.N)
	for i := 0; i < op.N; i++ {
		t, err := c.shadow.PeekAt(op.N - 1)
		if err != nil {
			c.rep.Fatal("%s: dup(%d) requires %d value(s) on the stack\n%s", op.Pos, op.N, op.N, c.dump())
		}
		c.push(t.Type, op.Pos)
	}
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
}

func (c *Checker) checkDump(op *ops.Op) {
	c.requireDepth(op, 1)
	a := c.pop(op)
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: a.Type}
}

// checkCast replaces the top of the shadow stack's type with op.CastType
// without consuming or producing a slot.
func (c *Checker) checkCast(op *ops.Op) {
	c.requireDepth(op, 1)
	a := c.pop(op)
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: op.CastType, Left: a.Type}
	c.push(op.CastType, op.Pos)
}

func (c *Checker) checkSyscall(op *ops.Op) {
	c.requireDepth(op, op.SyscallArgc)
	for i := 0; i < op.SyscallArgc; i++ {
		c.pop(op)
	}
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true, Type: ops.I64}
	c.push(ops.I64, op.Pos)
}

func (c *Checker) checkIf(op *ops.Op) {
	label := c.ifElseCount
	c.ifElseCount++
	op.Label = label
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
	c.cf.Push(frame{kind: cfIf, label: label, snapshot: c.shadow.Snapshot()})
}

func (c *Checker) checkThen(op *ops.Op, idx int) {
	top, err := c.cf.Pop()
	if err != nil || top.kind != cfIf {
		c.rep.Fatal("%s: `then` without a matching `if`", op.Pos)
	}
	cond := c.pop(op)
	c.checkImplicit(op.Pos, cond.Type, ops.Bool)
	if !annotationsEqual(c.shadow.Snapshot(), top.snapshot) {
		c.rep.Fatal("%s: the condition between `if` and `then` must add exactly one value to the stack", op.Pos)
	}
	op.Label = top.label
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
	c.cf.Push(frame{kind: cfThen, opIndex: idx, label: top.label, snapshot: top.snapshot})
}

func (c *Checker) checkElse(prog *ops.Program, op *ops.Op) {
	top, err := c.cf.Pop()
	if err != nil || top.kind != cfThen {
		c.rep.Fatal("%s: `else` without a matching `then`", op.Pos)
	}
	// Both halves of the pair need the flag: the Then jumps to ELSE_L
	// instead of END_L, the Else emits the label itself.
	prog.Ops[top.opIndex].HasElse = true
	op.Label = top.label
	op.HasElse = true
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}

	thenBranchStack := c.shadow.Snapshot()
	c.shadow.Restore(top.snapshot)
	c.cf.Push(frame{kind: cfElse, label: top.label, snapshot: thenBranchStack})
}

func (c *Checker) checkEnd(op *ops.Op) {
	top, err := c.cf.Pop()
	if err != nil {
		c.rep.Fatal("%s: `end` without a matching `then`, `else` or `do`", op.Pos)
	}

	switch top.kind {
	case cfThen, cfElse:
		if !annotationsEqual(c.shadow.Snapshot(), top.snapshot) {
			c.rep.Fatal("%s: both branches of an if/end block must leave the stack in the same shape\nBefore: %s\nAfter: %s",
				op.Pos, dumpAnnotations(top.snapshot), c.dump())
		}
	case cfDo:
		if !annotationsEqual(c.shadow.Snapshot(), top.snapshot) {
			c.rep.Fatal("%s: a while/do/end block must not alter the stack shape\nBefore: %s\nAfter: %s",
				op.Pos, dumpAnnotations(top.snapshot), c.dump())
		}
		op.IsWhile = true
	default:
		c.rep.Fatal("%s: `end` without a matching `then`, `else` or `do`", op.Pos)
	}

	op.Label = top.label
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
}

func (c *Checker) checkWhile(op *ops.Op) {
	label := c.whileDoCount
	c.whileDoCount++
	op.Label = label
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
	c.cf.Push(frame{kind: cfWhile, label: label, snapshot: c.shadow.Snapshot()})
}

func (c *Checker) checkDo(op *ops.Op) {
	top, err := c.cf.Pop()
	if err != nil || top.kind != cfWhile {
		c.rep.Fatal("%s: `do` without a matching `while`", op.Pos)
	}
	cond := c.pop(op)
	c.checkImplicit(op.Pos, cond.Type, ops.Bool)
	if !annotationsEqual(c.shadow.Snapshot(), top.snapshot) {
		c.rep.Fatal("%s: the condition between `while` and `do` must add exactly one value to the stack", op.Pos)
	}
	op.Label = top.label
	op.Annot = ops.Annotation{Pos: op.Pos, Resolved: true}
	c.cf.Push(frame{kind: cfDo, label: top.label, snapshot: top.snapshot})
}

func annotationsEqual(a, b []ops.Annotation) bool {
	if len(a) != len(b) {
		return false
	}
	aTypes := lo.Map(a, func(x ops.Annotation, _ int) ops.Type { return x.Type })
	bTypes := lo.Map(b, func(x ops.Annotation, _ int) ops.Type { return x.Type })
	pairs := lo.Zip2(aTypes, bTypes)
	return lo.EveryBy(pairs, func(p lo.Tuple2[ops.Type, ops.Type]) bool { return p.A == p.B })
}

func dumpAnnotations(a []ops.Annotation) string {
	var sb strings.Builder
	sb.WriteString("[\n")
	for i := len(a) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "\t%s\n", a[i])
	}
	sb.WriteString("]")
	return sb.String()
}
