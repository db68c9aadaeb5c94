package codegen

import "strings"

// asmHeader is emitted verbatim at the top of every generated file: extern
// declarations for the aux object, a `write` syscall wrapper, a `dump_b`
// helper, the `test_xmm0` float-comparison-to-integer helper, and the
// `_start` entry point that stashes argc/argv off the initial stack.
const asmHeader = `extern dump_i
extern dump_f
extern dump_f_rounded
extern i64tof64

global write
write:
	mov	rax, 1
	syscall
	ret

; dump_b(rdi = 0 or 1): print "false\n" or "true\n".
dump_b:
	mov	rsi, true_str
	mov	rdx, 5
	test	rdi, rdi
	jnz	dump_b_emit
	mov	rsi, false_str
	mov	rdx, 6
dump_b_emit:
	mov	rdi, 1
	call	write
	ret

; test_xmm0: reduce the comparison mask in xmm0 to 0/1 in the stack slot
; just above the return address (the surviving operand slot).
test_xmm0:
	movq	rax, xmm0
	test	rax, rax
	setnz	al
	movzx	rax, al
	mov	qword[rsp+8], rax
	ret

global _start
_start:
	pop	rax
	mov	qword[argc], rax
	mov	qword[argv], rsp

`

// asmExitTrailer terminates the program with an exit(0) syscall and opens
// the .data section shared by every program.
const asmExitTrailer = `
	mov	rax, 60
	mov	rdi, 0
	syscall

section .data
argc: dq 0
argv: dq 0
true_str: db 'true', 10
false_str: db 'false', 10
`

// syscallRegs is the SysV argument-register order a Syscall op's popped
// arguments are loaded into, first argument first.
var syscallRegs = [6]string{"rdi", "rsi", "rdx", "r10", "r8", "r9"}

// escapeString renders a string literal's bytes the way NASM's backtick
// string syntax expects, escaping backslash, newline, tab, carriage
// return, NUL and backtick.
func escapeString(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		"\n", "\\n",
		"\t", "\\t",
		"\r", "\\r",
		"\x00", "\\0",
		"`", "\\`",
	)
	return r.Replace(s)
}

// cmpImm is the cmppd predicate immediate for each float comparison.
var cmpImm = map[string]string{
	"eq": "0",
	"ne": "4",
	"lt": "1",
	"gt": "0Eh",
	"le": "2",
	"ge": "0Dh",
}

// setcc is the integer setCC mnemonic for each comparison.
var setcc = map[string]string{
	"eq": "sete",
	"ne": "setne",
	"lt": "setl",
	"gt": "setg",
	"le": "setle",
	"ge": "setge",
}
