// Package codegen renders a type-checked Program as NASM-syntax x86-64
// assembly. It never invokes nasm/ld itself -- that orchestration lives
// in the driver package.
package codegen

import (
	"fmt"
	"strings"

	"github.com/klauspost/asmfmt"
	"github.com/samber/lo"
	"github.com/skx/ssmpl/ops"
	"github.com/skx/ssmpl/reporter"
)

// Options configures aspects of emission that aren't derivable from the
// Program itself.
type Options struct {
	// Rounding selects dump_f_rounded over dump_f for F64 Dump ops.
	Rounding bool
}

// Emitter renders one Program to a single NASM source text.
type Emitter struct {
	prog *ops.Program
	rep  *reporter.Reporter
	opt  Options

	dupLoopLabel int
}

// New returns an Emitter for prog.
func New(prog *ops.Program, rep *reporter.Reporter, opt Options) *Emitter {
	return &Emitter{prog: prog, rep: rep, opt: opt}
}

// Emit renders the complete .asm text: header, one block per Op, the exit
// trailer, and the .bss/string-literal sections.
func (e *Emitter) Emit() string {
	var body strings.Builder
	body.WriteString(asmHeader)

	for i := range e.prog.Ops {
		body.WriteString(e.emitOp(&e.prog.Ops[i]))
	}

	body.WriteString(asmExitTrailer)

	body.WriteString("\nsection .bss\n")
	body.WriteString(fmt.Sprintf("MEM_BUILTIN_FREE_: resb %d\n", ops.BuiltinFreeRegionSize))
	bssLines := lo.Map(e.prog.MemoryRegions, func(r ops.MemRegion, _ int) string {
		return fmt.Sprintf("MEM_%s: resb %d\n", r.Name, r.Size)
	})
	body.WriteString(strings.Join(bssLines, ""))

	body.WriteString("\nsection .data\n")
	dataLines := lo.Map(e.prog.Strings, func(lit string, idx int) string {
		return fmt.Sprintf("STR_LIT_%d: db `%s`, 0\n", idx, escapeString(lit))
	})
	body.WriteString(strings.Join(dataLines, ""))

	return body.String()
}

// Format runs the emitted source through asmfmt as a best-effort style
// pass. Formatting failures are non-fatal: the unformatted (but
// functionally complete) source is still valid NASM input, so the Emitter
// reports an Info and returns the source unchanged rather than aborting
// the build over a cosmetic step.
func (e *Emitter) Format(src string) string {
	formatted, err := asmfmt.Format(strings.NewReader(src))
	if err != nil {
		e.rep.AddInfo("asmfmt: leaving generated assembly unformatted: %s", err)
		return src
	}
	return string(formatted)
}

func (e *Emitter) emitOp(op *ops.Op) string {
	switch op.Kind {
	case ops.PushI:
		return fmt.Sprintf(";PUSH %d\n\tpush\t%d\n", op.IVal, op.IVal)
	case ops.PushF:
		return fmt.Sprintf(";PUSH %v\n\tmov\trax, __float64__(%v)\n\tpush\trax\n", op.FVal, op.FVal)
	case ops.PushB:
		b := 0
		if op.BVal {
			b = 1
		}
		return fmt.Sprintf(";PUSH %t\n\tpush\t%d\n", op.BVal, b)
	case ops.PushStr:
		return fmt.Sprintf(";PUSH STR_LIT_%d\n\tmov\trax, STR_LIT_%d\n\tpush\trax\n", op.StrIndex, op.StrIndex)

	case ops.Add:
		return e.emitArith("ADD", op, "add\t[rsp], rdi", "addsd")
	case ops.Sub:
		return e.emitArith("SUB", op, "sub\t[rsp], rdi", "subsd")
	case ops.Mul:
		return e.emitMul(op)
	case ops.Div:
		return e.emitDiv(op)
	case ops.Mod:
		return ";MOD\n\tpop\trdi\n\tpop\trax\n\tcqo\n\tidiv\trdi\n\tpush\trdx\n"

	case ops.Increment:
		return e.emitIncDec("INC", op, "inc\tqword[rsp]\n", "addsd")
	case ops.Decrement:
		return e.emitIncDec("DEC", op, "dec\tqword[rsp]\n", "subsd")

	case ops.Eq:
		return e.emitCompare("eq", op)
	case ops.Ne:
		return e.emitCompare("ne", op)
	case ops.Lt:
		return e.emitCompare("lt", op)
	case ops.Gt:
		return e.emitCompare("gt", op)
	case ops.Le:
		return e.emitCompare("le", op)
	case ops.Ge:
		return e.emitCompare("ge", op)

	case ops.ShiftR:
		return ";SHR\n\tpop\trcx\n\tshr\tqword[rsp], cl\n"
	case ops.ShiftL:
		return ";SHL\n\tpop\trcx\n\tshl\tqword[rsp], cl\n"
	case ops.BitAnd:
		return ";BITAND\n\tpop\trax\n\tand\tqword[rsp], rax\n"
	case ops.BitOr:
		return ";BITOR\n\tpop\trax\n\tor\tqword[rsp], rax\n"
	case ops.LogAnd:
		return ";AND\n\tpop\trax\n\tand\tqword[rsp], rax\n\tcmp\tqword[rsp], 0\n\tsetne\t[rsp]\n"
	case ops.LogOr:
		return ";OR\n\tpop\trax\n\tor\tqword[rsp], rax\n\tcmp\tqword[rsp], 0\n\tsetne\t[rsp]\n"
	case ops.Not:
		return ";NOT\n\tnot\tqword[rsp]\n"

	case ops.Load:
		return e.emitLoad(op)
	case ops.Store:
		return e.emitStore(op)

	case ops.Swap:
		return ";SWAP\n\tpop\trax\n\tpop\trbx\n\tpush\trax\n\tpush\trbx\n"
	case ops.Drop:
		return fmt.Sprintf(";DROP%d\n\tadd\trsp, %d\n", op.N, op.N*8)
	case ops.Over:
		return fmt.Sprintf(";OVER%d\n\tpush\tqword[rsp+%d]\n", op.N, 8*op.N)
	case ops.Dup:
		return e.emitDup(op)
	case ops.Dump:
		return e.emitDump(op)

	case ops.Cast:
		if op.CastType == ops.Bool {
			return ";CAST bool\n\tcmp\tqword[rsp], 0\n\tsetne\t[rsp]\n"
		}
		return ";CAST\n"

	case ops.Mem:
		if op.MemName == "" {
			return ";MEM\n\tpush\tMEM_BUILTIN_FREE_\n"
		}
		return fmt.Sprintf(";MEM %s\n\tpush\tMEM_%s\n", op.MemName, op.MemName)

	case ops.Syscall:
		return e.emitSyscall(op)
	case ops.Argc:
		return ";ARGC\n\tpush\tqword[argc]\n"
	case ops.Argv:
		return ";ARGV\n\tpush\tqword[argv]\n"

	case ops.If:
		return ";IF\n"
	case ops.Then:
		target := fmt.Sprintf("END_%d", op.Label)
		if op.HasElse {
			target = fmt.Sprintf("ELSE_%d", op.Label)
		}
		return fmt.Sprintf(";THEN\n\tpop\trax\n\ttest\trax, rax\n\tjz\t%s\n", target)
	case ops.Else:
		return fmt.Sprintf(";ELSE\n\tjmp\tEND_%d\nELSE_%d:\n", op.Label, op.Label)
	case ops.End:
		if op.IsWhile {
			return fmt.Sprintf(";END\n\tjmp\tWHILE_%d\nEND_WHILE_%d:\n", op.Label, op.Label)
		}
		return fmt.Sprintf(";END\nEND_%d:\n", op.Label)
	case ops.While:
		return fmt.Sprintf("WHILE_%d:\n", op.Label)
	case ops.Do:
		return fmt.Sprintf(";DO\n\tpop\trax\n\ttest\trax, rax\n\tjz\tEND_WHILE_%d\n", op.Label)

	default:
		e.rep.Fatal("%s: internal error: unhandled op kind %v during codegen", op.Pos, op.Kind)
		return ""
	}
}

// emitArith covers Add/Sub, whose integer path is a single instruction;
// Mul/Div need an extra register shuffle so they have their own emitters.
func (e *Emitter) emitArith(name string, op *ops.Op, intInsn, sseOp string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ";%s\n", name)

	switch {
	case op.Annot.Left == ops.F64 && op.Annot.Right == ops.F64:
		fmt.Fprintf(&sb, "\tmovq\txmm0, [rsp+8]\n\t%s\txmm0, [rsp]\n\tmovq\t[rsp+8], xmm0\n\tadd\trsp, 8\n", sseOp)
	case op.Annot.Left == ops.F64:
		fmt.Fprintf(&sb, "\tpop\trdi\n\tcall\ti64tof64\n\tmovq\txmm1, [rsp]\n\t%s\txmm1, xmm0\n\tmovq\t[rsp], xmm1\n", sseOp)
	case op.Annot.Right == ops.F64:
		fmt.Fprintf(&sb, "\tmov\trdi, qword[rsp+8]\n\tcall\ti64tof64\n\t%s\txmm0, [rsp]\n\tmovq\t[rsp+8], xmm0\n\tadd\trsp, 8\n", sseOp)
	default:
		sb.WriteString("\tpop\trdi\n\t" + intInsn + "\n")
	}
	return sb.String()
}

func (e *Emitter) emitMul(op *ops.Op) string {
	var sb strings.Builder
	sb.WriteString(";MUL\n")
	switch {
	case op.Annot.Left == ops.F64 && op.Annot.Right == ops.F64:
		sb.WriteString("\tmovq\txmm0, [rsp+8]\n\tmulsd\txmm0, [rsp]\n\tmovq\t[rsp+8], xmm0\n\tadd\trsp, 8\n")
	case op.Annot.Left == ops.F64:
		sb.WriteString("\tpop\trdi\n\tcall\ti64tof64\n\tmovq\txmm1, [rsp]\n\tmulsd\txmm1, xmm0\n\tmovq\t[rsp], xmm1\n")
	case op.Annot.Right == ops.F64:
		sb.WriteString("\tmov\trdi, qword[rsp+8]\n\tcall\ti64tof64\n\tmulsd\txmm0, [rsp]\n\tmovq\t[rsp+8], xmm0\n\tadd\trsp, 8\n")
	default:
		sb.WriteString("\tpop\trdi\n\tpop\trax\n\timul\trax, rdi\n\tpush\trax\n")
	}
	return sb.String()
}

func (e *Emitter) emitDiv(op *ops.Op) string {
	var sb strings.Builder
	sb.WriteString(";DIV\n")
	switch {
	case op.Annot.Left == ops.F64 && op.Annot.Right == ops.F64:
		sb.WriteString("\tmovq\txmm0, [rsp+8]\n\tdivsd\txmm0, [rsp]\n\tmovq\t[rsp+8], xmm0\n\tadd\trsp, 8\n")
	case op.Annot.Left == ops.F64:
		sb.WriteString("\tpop\trdi\n\tcall\ti64tof64\n\tmovq\txmm1, [rsp]\n\tdivsd\txmm1, xmm0\n\tmovq\t[rsp], xmm1\n")
	case op.Annot.Right == ops.F64:
		sb.WriteString("\tmov\trdi, qword[rsp+8]\n\tcall\ti64tof64\n\tdivsd\txmm0, [rsp]\n\tmovq\t[rsp+8], xmm0\n\tadd\trsp, 8\n")
	default:
		sb.WriteString("\tpop\trdi\n\tpop\trax\n\tcqo\n\tidiv\trdi\n\tpush\trax\n")
	}
	return sb.String()
}

func (e *Emitter) emitIncDec(name string, op *ops.Op, intInsn, sseOp string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ";%s\n", name)
	if op.Annot.Type == ops.F64 {
		fmt.Fprintf(&sb, "\tmov\trax, __float64__(1.0)\n\tmovq\txmm0, rax\n\t%s\txmm0, [rsp]\n\tmovq\t[rsp], xmm0\n", sseOp)
	} else {
		sb.WriteString("\t" + intInsn)
	}
	return sb.String()
}

// emitCompare covers Eq/Ne/Lt/Gt/Le/Ge; op.Annot.Left/Right hold the
// popped operand types in the same "second/first popped" order the type
// checker recorded them.
func (e *Emitter) emitCompare(kind string, op *ops.Op) string {
	imm := cmpImm[kind]
	set := setcc[kind]

	var sb strings.Builder
	fmt.Fprintf(&sb, ";%s\n\t", strings.ToUpper(kind))

	switch {
	case op.Annot.Left == ops.F64 && op.Annot.Right == ops.F64:
		fmt.Fprintf(&sb, "movq\txmm1, qword[rsp]\n\tadd\trsp, 8\n\tmovq\txmm0, qword[rsp]\n\tcmppd\txmm0, xmm1, %s\n\tcall\ttest_xmm0\n", imm)
	case op.Annot.Right == ops.F64:
		sb.WriteString("movq\txmm1, qword[rsp]\n\tadd\trsp, 8\n\tmov\trdi, qword[rsp]\n\tcall\ti64tof64\n\t")
		fmt.Fprintf(&sb, "cmppd\txmm0, xmm1, %s\n\tcall\ttest_xmm0\n", imm)
	case op.Annot.Left == ops.F64:
		sb.WriteString("pop\trdi\n\tcall\ti64tof64\n\tmovq\txmm1, xmm0\n\tmovq\txmm0, qword[rsp]\n\t")
		fmt.Fprintf(&sb, "cmppd\txmm0, xmm1, %s\n\tcall\ttest_xmm0\n", imm)
	default:
		fmt.Fprintf(&sb, "pop\trbx\n\tmov\trax, qword[rsp]\n\tcmp\trax, rbx\n\tmov\tqword[rsp], 0\n\t%s\t[rsp]\n", set)
	}
	return sb.String()
}

func (e *Emitter) emitLoad(op *ops.Op) string {
	switch op.Width {
	case 8:
		return ";LOAD8\n\tpop\trax\n\tmovzx\trax, byte[rax]\n\tpush\trax\n"
	case 16:
		return ";LOAD16\n\tpop\trax\n\tmovzx\trax, word[rax]\n\tpush\trax\n"
	case 32:
		return ";LOAD32\n\tpop\trax\n\tmov\teax, dword[rax]\n\tpush\trax\n"
	default:
		return ";LOAD64\n\tpop\trax\n\tpush\tqword[rax]\n"
	}
}

func (e *Emitter) emitStore(op *ops.Op) string {
	switch op.Width {
	case 8:
		return ";STORE8\n\tpop\trbx\n\tpop\trax\n\tmov\tbyte[rax], bl\n"
	case 16:
		return ";STORE16\n\tpop\trbx\n\tpop\trax\n\tmov\tword[rax], bx\n"
	case 32:
		return ";STORE32\n\tpop\trbx\n\tpop\trax\n\tmov\tdword[rax], ebx\n"
	default:
		return ";STORE64\n\tpop\trbx\n\tpop\trax\n\tmov\tqword[rax], rbx\n"
	}
}

// emitDup unrolls for n <= 5 (matching the reference threshold); larger
// counts fall back to a counted loop with a unique DUMP_L<k> label so
// repeated dup(n>=6) sites in one program don't collide.
func (e *Emitter) emitDup(op *ops.Op) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ";DUP%d\n", op.N)

	if op.N <= 5 {
		for i := 0; i < op.N; i++ {
			fmt.Fprintf(&sb, "\tpush\tqword[rsp+%d]\n", 8*(op.N-1))
		}
		return sb.String()
	}

	label := e.dupLoopLabel
	e.dupLoopLabel++
	fmt.Fprintf(&sb, "\tmov\trcx, %d\nDUMP_L%d:\n\tpush\tqword[rsp+%d]\n\tdec\trcx\n\tjnz\tDUMP_L%d\n", op.N, label, 8*(op.N-1), label)
	return sb.String()
}

func (e *Emitter) emitDump(op *ops.Op) string {
	switch op.Annot.Type {
	case ops.F64:
		helper := "dump_f"
		if e.opt.Rounding {
			helper = "dump_f_rounded"
		}
		return fmt.Sprintf(";DUMP_F\n\tpop\trdi\n\tmovq\txmm0, rdi\n\tcall\t%s\n", helper)
	case ops.Bool:
		return ";DUMP_B\n\tpop\trdi\n\tcall\tdump_b\n"
	default:
		return ";DUMP_I\n\tpop\trdi\n\tcall\tdump_i\n"
	}
}

func (e *Emitter) emitSyscall(op *ops.Op) string {
	var sb strings.Builder
	sb.WriteString(";SYSCALL\n")
	for i := op.SyscallArgc - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "\tpop\t%s\n", syscallRegs[i])
	}
	fmt.Fprintf(&sb, "\tmov\trax, %d\n\tsyscall\n\tpush\trax\n", op.SyscallCode)
	return sb.String()
}
