// Package decodectx implements the per-instruction decoder state
// (component B): accumulated prefix bytes, file offset, virtual
// address, and the operand/address-size and segment-override state
// that legacy prefixes toggle before the real opcode is reached.
package decodectx

// Segment names an x86 segment override prefix. SegDefault means no
// override was seen.
type Segment int

const (
	SegDefault Segment = iota
	SegCS
	SegDS
	SegES
	SegFS
	SegGS
	SegSS
)

// Rep names a repeat-prefix family (REP/REPE vs REPNE), relevant to
// string instructions.
type Rep int

const (
	RepNone Rep = iota
	RepEqual
	RepNotEqual
)

// PrefixEffect is what a decoded prefix-only instruction contributes
// to the Context. The decoder builds one of these per legacy prefix
// byte and hands it to ApplyPrefix; this keeps Context free of any
// dependency on the decoder's Instruction type.
type PrefixEffect struct {
	Segment                Segment
	OperandSizeOverr       bool // 0x66: toggle default operand size
	AddressSizeOverr       bool // 0x67: toggle default address size
	Lock                   bool // 0xF0
	Rep                    Rep  // 0xF2 / 0xF3
	REXPresent             bool
	REXW, REXR, REXX, REXB bool
}

// Context is the mutable per-decode state threaded through a single
// top-level decode. It is reset (not reallocated) before each one, so
// the engine can reuse a single Context across an entire trace.
type Context struct {
	// FileOffset is the cursor position where this instruction began.
	FileOffset int
	// VirtualAddress is the memory address of the first byte.
	VirtualAddress uint64
	// Mode is the processor mode in bits: 16, 32, or 64.
	Mode int

	// decodedPrefix is the trail of bytes consumed so far during the
	// current descent. The decoder pops it in step with each cursor
	// rewind on a miss, and reads its last byte for operands encoded
	// in the low bits of the opcode.
	decodedPrefix []byte

	// Accumulated legacy-prefix effects for the instruction under
	// construction.
	Segment     Segment
	OperandSize int // 16, 32, or 64, effective after overrides
	AddressSize int
	Lock        bool
	Rep         Rep
	REX         PrefixEffect
}

// New creates a Context in the given processor mode (16/32/64), reset
// to file offset 0 and virtual address 0.
func New(mode int) *Context {
	c := &Context{Mode: mode}
	c.Reset(0, 0)
	return c
}

// Reset clears all accumulated prefix state and seeds the offset and
// address for the next top-level decode. Decode does not call it: the
// trace engine and the one-shot decoder call it before each top-level
// instruction they decode.
func (c *Context) Reset(fileOffset int, virtualAddress uint64) {
	c.FileOffset = fileOffset
	c.VirtualAddress = virtualAddress
	c.decodedPrefix = c.decodedPrefix[:0]
	c.Segment = SegDefault
	c.OperandSize = c.Mode
	c.AddressSize = c.Mode
	c.Lock = false
	c.Rep = RepNone
	c.REX = PrefixEffect{}
}

// SetFileOffset repositions the context without touching accumulated
// prefix state, for callers that re-enter decode for the same
// in-flight instruction.
func (c *Context) SetFileOffset(offset int) {
	c.FileOffset = offset
}

// AddDecodedPrefix appends a byte to the descent trail. Called once
// per byte consumed while walking the decode tree.
func (c *Context) AddDecodedPrefix(b byte) {
	c.decodedPrefix = append(c.decodedPrefix, b)
}

// RemoveDecodedPrefixTop pops the most recently added trail byte,
// mirroring the rewind the cursor performs on a failed descent.
func (c *Context) RemoveDecodedPrefixTop() {
	if n := len(c.decodedPrefix); n > 0 {
		c.decodedPrefix = c.decodedPrefix[:n-1]
	}
}

// DecodedPrefix returns the bytes consumed so far in the current
// descent, in order.
func (c *Context) DecodedPrefix() []byte {
	return c.decodedPrefix
}

// ApplyPrefix merges a decoded legacy or REX prefix's effect into the
// context. Called by the decoder's top-level loop each time descent
// returns a prefix-only instruction.
func (c *Context) ApplyPrefix(eff PrefixEffect) {
	if eff.Segment != SegDefault {
		c.Segment = eff.Segment
	}
	if eff.OperandSizeOverr {
		if c.Mode == 32 {
			c.OperandSize = 16
		} else {
			c.OperandSize = 32
		}
	}
	if eff.AddressSizeOverr {
		if c.Mode == 32 {
			c.AddressSize = 16
		} else {
			c.AddressSize = 32
		}
	}
	if eff.Lock {
		c.Lock = true
	}
	if eff.Rep != RepNone {
		c.Rep = eff.Rep
	}
	if eff.REXPresent {
		c.REX = eff
		if eff.REXW {
			c.OperandSize = 64
		}
	}
}
