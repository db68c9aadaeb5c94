package ops

import "github.com/skx/ssmpl/token"

// Kind tags the variant of an Op.
type Kind int

const (
	// Literal pushes.
	PushI Kind = iota
	PushF
	PushB
	PushStr

	// Arithmetic.
	Add
	Sub
	Mul
	Div
	Mod

	// Comparison.
	Eq
	Ne
	Lt
	Gt
	Le
	Ge

	// Bitwise / logical.
	ShiftL
	ShiftR
	BitAnd
	BitOr
	LogAnd
	LogOr
	Not

	// Load / store, Width holds 8/16/32/64.
	Load
	Store

	// Stack manipulation.
	Swap
	Drop
	Over
	Dup
	Dump

	// Misc value ops.
	Cast
	Mem
	Increment
	Decrement
	Syscall
	Argc
	Argv

	// Control flow.
	If
	Then
	Else
	End
	While
	Do
)

// Op is a single instruction in the flat intermediate representation.
// Not every field is meaningful for every Kind; the per-field comments
// note which Kind populates which field.
type Op struct {
	Kind Kind
	Pos  token.Position

	// Annot is untyped until the type checker visits this Op, after
	// which it records the resolved (and, for binary ops, operand)
	// type(s).
	Annot Annotation

	// Literal payload.
	IVal     int64
	FVal     float64
	BVal     bool
	StrIndex int // index into Program.Strings, for PushStr

	// N is the count for Drop/Dup and the depth below the top for Over
	// (default 1).
	N int

	// Width is 8, 16, 32 or 64 for Load/Store.
	Width int

	// CastType is the target type for Cast.
	CastType Type

	// MemName is "" for the builtin region, else the declared name.
	MemName string

	// SyscallCode/SyscallArgc describe a Syscall op.
	SyscallCode int
	SyscallArgc int

	// Label links paired control-flow ops; assigned by the type
	// checker, 0 until then.
	Label int
	// HasElse is set on Then when a matching Else exists.
	HasElse bool
	// IsWhile is set on End when it closes a While/Do block.
	IsWhile bool
}

// MemRegion describes a named .bss allocation declared by a `mem(name)`
// form.
type MemRegion struct {
	Name string
	Size int
}

// BuiltinFreeRegionSize is the size, in bytes, of the anonymous builtin
// memory region every program gets for free.
const BuiltinFreeRegionSize = 1024

// BuiltinFreeRegionName is the symbol/key used for the anonymous builtin
// region.
const BuiltinFreeRegionName = "MEM_BUILTIN_FREE_"

// Program is the parser's (and, after type checking, the checker's)
// output: a flat Op sequence plus the side-tables the backends need.
type Program struct {
	Ops []Op

	// Strings is the deduplicated, insertion-ordered string literal
	// table. Index i corresponds to label STR_LIT_i.
	Strings []string

	// stringIndex supports O(1) dedup lookups while parsing.
	stringIndex map[string]int

	// MemoryRegions is the ordered list of declared named regions (the
	// builtin region is tracked separately and is not part of this
	// slice).
	MemoryRegions []MemRegion

	// memoryIndex supports duplicate-declaration detection.
	memoryIndex map[string]int
}

// NewProgram returns an empty Program ready to be appended to by a Parser.
func NewProgram() *Program {
	return &Program{
		stringIndex: make(map[string]int),
		memoryIndex: make(map[string]int),
	}
}

// InternString appends s to the string table if it is not already present,
// and returns its (possibly pre-existing) index.
func (p *Program) InternString(s string) int {
	if idx, ok := p.stringIndex[s]; ok {
		return idx
	}
	idx := len(p.Strings)
	p.Strings = append(p.Strings, s)
	p.stringIndex[s] = idx
	return idx
}

// DeclareMemory records a named memory region of the given size. It
// returns an error if name was already declared with a different size;
// redeclaration with an identical size is tolerated, so a file included
// twice doesn't break (see DESIGN.md).
func (p *Program) DeclareMemory(name string, size int) error {
	if idx, ok := p.memoryIndex[name]; ok {
		existing := p.MemoryRegions[idx]
		if existing.Size != size {
			return &DuplicateMemoryError{Name: name, First: existing.Size, Second: size}
		}
		return nil
	}
	p.memoryIndex[name] = len(p.MemoryRegions)
	p.MemoryRegions = append(p.MemoryRegions, MemRegion{Name: name, Size: size})
	return nil
}

// LookupMemory reports whether name has been declared, and its size.
func (p *Program) LookupMemory(name string) (int, bool) {
	idx, ok := p.memoryIndex[name]
	if !ok {
		return 0, false
	}
	return p.MemoryRegions[idx].Size, true
}

// DuplicateMemoryError reports a `mem(name)` redeclaration with a
// conflicting size.
type DuplicateMemoryError struct {
	Name          string
	First, Second int
}

func (e *DuplicateMemoryError) Error() string {
	return "memory region " + e.Name + " redeclared with a different size"
}
