package ops

import (
	"fmt"

	"github.com/skx/ssmpl/token"
)

// Annotation is a position plus the type information the type checker
// discovers at a use site. It starts out untyped (Resolved == false) and
// is mutated in place by the checker.
type Annotation struct {
	Pos Position

	// Resolved is set once the type checker has visited the owning Op.
	Resolved bool

	// Type is the primary resolved type: the pushed/result type for most
	// ops, the popped type for Dump, the target type for Cast.
	Type Type

	// Left and Right record operand types for binary arithmetic,
	// comparison, bitwise and shift ops -- the backend dispatches on
	// these to select an instruction sequence.
	Left, Right Type
}

// Position is a re-export of token.Position so callers of ops don't need
// to import token just to read an Op's location.
type Position = token.Position

// String is used by type-checker diagnostics (stack dumps).
func (a Annotation) String() string {
	if !a.Resolved {
		return fmt.Sprintf("%s: <unresolved>", a.Pos)
	}
	return fmt.Sprintf("%s: %s", a.Pos, a.Type)
}
