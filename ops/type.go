// Package ops defines the typed, flat intermediate representation that the
// parser produces and the type checker, simulator and assembly emitter all
// walk.
package ops

// Type is one of the four primitive value types ssmpl programs operate on.
type Type int

// The four primitive types. All are 64 bits wide on the stack.
const (
	Unknown Type = iota
	I64
	F64
	Bool
	Ptr
)

// String renders a Type the way diagnostics expect to see it.
func (t Type) String() string {
	switch t {
	case I64:
		return "i64"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	case Ptr:
		return "ptr"
	default:
		return "<unresolved>"
	}
}

// implicitCasts is the exhaustive table of legal implicit conversions.
// Anything not in this set is a type error.
var implicitCasts = map[[2]Type]bool{
	{I64, F64}:  true,
	{I64, Bool}: true,
	{I64, Ptr}:  true,
	{Bool, I64}: true,
	{Bool, F64}: true,
	{Ptr, I64}:  true,
}

// ImplicitlyConvertible reports whether a value of type from may be
// implicitly converted to type to. A type converts to itself trivially.
func ImplicitlyConvertible(from, to Type) bool {
	if from == to {
		return true
	}
	return implicitCasts[[2]Type{from, to}]
}
