// Package cursor implements the position-tracked byte reader the
// instruction decoder consumes (component A of the disassembly
// engine). It is a value type: the decoder rewinds it on a failed trie
// descent rather than unwinding a stack of readers.
package cursor

import (
	"encoding/binary"

	"github.com/Urethramancer/x86dis/disasmerr"
)

// rewindBudget is the minimum number of bytes a Cursor guarantees it
// can rewind, to accommodate the ModR/M extension peek in the decoder.
const rewindBudget = 16

// Cursor reads little-endian x86 bytes from a fixed slice, tracking a
// position that can be skipped forward or rewound.
type Cursor struct {
	data []byte
	pos  int
}

// New returns a Cursor over data starting at position 0.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Position returns the current read offset into the underlying slice.
func (c *Cursor) Position() int {
	return c.pos
}

// Len returns the number of bytes remaining to be read.
func (c *Cursor) Len() int {
	return len(c.data) - c.pos
}

// Skip advances the position by n bytes. n may be negative to rewind,
// but the position never goes below zero. Rewinding at least
// rewindBudget bytes from any position reached by normal reads is
// always safe.
func (c *Cursor) Skip(n int) {
	c.pos += n
	if c.pos < 0 {
		c.pos = 0
	}
	if c.pos > len(c.data) {
		c.pos = len(c.data)
	}
}

// ReadU8 reads one byte and advances the position by one.
func (c *Cursor) ReadU8() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, disasmerr.EndOfImage
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// PeekU8 returns the next byte without advancing the position.
func (c *Cursor) PeekU8() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, disasmerr.EndOfImage
	}
	return c.data[c.pos], nil
}

// ReadU16 reads a little-endian 16-bit value and advances by two.
func (c *Cursor) ReadU16() (uint16, error) {
	if c.pos+2 > len(c.data) {
		return 0, disasmerr.EndOfImage
	}
	v := binary.LittleEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian 32-bit value and advances by four.
func (c *Cursor) ReadU32() (uint32, error) {
	if c.pos+4 > len(c.data) {
		return 0, disasmerr.EndOfImage
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadU64 reads a little-endian 64-bit value and advances by eight.
func (c *Cursor) ReadU64() (uint64, error) {
	if c.pos+8 > len(c.data) {
		return 0, disasmerr.EndOfImage
	}
	v := binary.LittleEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, nil
}

// Bytes returns a copy of the n bytes at offset start, without moving
// the position. Used to render the raw encoding of a decoded
// instruction.
func (c *Cursor) Bytes(start, n int) []byte {
	if start < 0 || start+n > len(c.data) || n < 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, c.data[start:start+n])
	return out
}
