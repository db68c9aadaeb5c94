package sim

import (
	"github.com/skx/ssmpl/ops"
	"github.com/skx/ssmpl/reporter"
)

// memory is the simulator's flat address space: the string table laid out
// first, then every declared (and the anonymous builtin) region in
// declaration order.
type memory struct {
	bytes   []byte
	offsets map[string]int // string literal -> byte offset
	regions map[string]int // region name ("" == builtin) -> byte offset
}

// newMemory copies prog's string table contiguously starting at offset 0,
// then lays out the declared memory regions (and the anonymous builtin
// region) immediately after.
func newMemory(prog *ops.Program, rep *reporter.Reporter) *memory {
	m := &memory{
		offsets: make(map[string]int, len(prog.Strings)),
		regions: make(map[string]int, len(prog.MemoryRegions)+1),
	}

	size := 0
	for _, s := range prog.Strings {
		size += len(s)
	}
	for _, r := range prog.MemoryRegions {
		size += r.Size
	}
	size += ops.BuiltinFreeRegionSize

	m.bytes = make([]byte, size)

	offset := 0
	for _, s := range prog.Strings {
		m.offsets[s] = offset
		copy(m.bytes[offset:], s)
		offset += len(s)
	}
	for _, r := range prog.MemoryRegions {
		m.regions[r.Name] = offset
		offset += r.Size
	}
	m.regions[ops.BuiltinFreeRegionName] = offset

	return m
}

// stringOffset resolves a literal to its byte offset.
func (m *memory) stringOffset(s string) int {
	return m.offsets[s]
}

// builtinOffset resolves the anonymous builtin region's byte offset.
func (m *memory) builtinOffset() int {
	return m.regions[ops.BuiltinFreeRegionName]
}

// namedOffset resolves a declared region's byte offset.
func (m *memory) namedOffset(name string) int {
	return m.regions[name]
}

func (m *memory) checkBounds(rep *reporter.Reporter, pos ops.Position, ptr, width int) {
	if ptr < 0 || ptr+width > len(m.bytes) {
		rep.Fatal("%s: memory access out of range (address %d, width %d, size %d)", pos, ptr, width, len(m.bytes))
	}
}

// load reads width (1, 2, 4 or 8) little-endian bytes at ptr as an
// unsigned value, zero-extended into an int64.
func (m *memory) load(rep *reporter.Reporter, pos ops.Position, ptr, width int) int64 {
	m.checkBounds(rep, pos, ptr, width)

	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(m.bytes[ptr+i]) << (8 * uint(i))
	}
	return int64(v)
}

// store writes the low width bytes of val at ptr, little-endian.
func (m *memory) store(rep *reporter.Reporter, pos ops.Position, ptr, width int, val int64) {
	m.checkBounds(rep, pos, ptr, width)

	u := uint64(val)
	for i := 0; i < width; i++ {
		m.bytes[ptr+i] = byte(u >> (8 * uint(i)))
	}
}
