// Package entity defines the data model stored by the disassembly
// data store: decoded instructions and data, functions, and the
// cross-reference edges between them.
package entity

import (
	"fmt"

	"github.com/Urethramancer/x86dis/decoder"
)

// Kind tags what a stored Entity actually is.
type Kind int

const (
	KindInstruction Kind = iota
	KindData
	KindUnknownOpcode
)

// DataType tags a decoded Data entry.
type DataType int

const (
	DataByte DataType = iota
	DataWord
	DataDword
	DataQword
	DataString
	DataUnknown
)

func (t DataType) String() string {
	switch t {
	case DataByte:
		return "byte"
	case DataWord:
		return "word"
	case DataDword:
		return "dword"
	case DataQword:
		return "qword"
	case DataString:
		return "string"
	default:
		return "unknown"
	}
}

// Data is a decoded datum at an address with a type tag and length.
type Data struct {
	Address uint64
	Type    DataType
	Length  int
}

// minStringLen is the shortest printable run that gets classified as a
// string rather than raw bytes.
const minStringLen = 4

func isPrintableASCII(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// ClassifyData inspects the bytes available at addr and picks a type
// tag and length for them. A NUL-terminated run of at
// least minStringLen printable ASCII bytes is classified as a string;
// otherwise the classification falls back to the widest machine-word
// alignment addr and the available byte count support, down to a
// single DataByte. An empty sequence yields DataUnknown with length 1.
func ClassifyData(addr uint64, seq []byte) *Data {
	if n, ok := printableStringRun(seq); ok {
		return &Data{Address: addr, Type: DataString, Length: n}
	}
	switch {
	case len(seq) >= 8 && addr%8 == 0:
		return &Data{Address: addr, Type: DataQword, Length: 8}
	case len(seq) >= 4 && addr%4 == 0:
		return &Data{Address: addr, Type: DataDword, Length: 4}
	case len(seq) >= 2 && addr%2 == 0:
		return &Data{Address: addr, Type: DataWord, Length: 2}
	case len(seq) >= 1:
		return &Data{Address: addr, Type: DataByte, Length: 1}
	default:
		return &Data{Address: addr, Type: DataUnknown, Length: 1}
	}
}

// printableStringRun reports whether seq begins with a NUL-terminated
// run of at least minStringLen printable ASCII bytes, and if so
// returns its length including the terminator.
func printableStringRun(seq []byte) (int, bool) {
	i := 0
	for i < len(seq) && isPrintableASCII(seq[i]) {
		i++
	}
	if i < minStringLen || i >= len(seq) || seq[i] != 0x00 {
		return 0, false
	}
	return i + 1, true
}

// Entity is one decoded thing stored in the entity map at a single
// address: an instruction, a data entry, or a synthetic "unknown
// opcode" placeholder. Exactly one Entity may occupy a given exact
// address.
type Entity struct {
	Address     uint64
	Size        int
	Kind        Kind
	Instruction *decoder.Instruction
	Data        *Data

	// References holds the addresses of entities that point at this
	// one.
	References []uint64
}

// NewInstructionEntity wraps a decoded instruction as an Entity.
func NewInstructionEntity(inst *decoder.Instruction) *Entity {
	return &Entity{Address: inst.Address, Size: inst.Size, Kind: KindInstruction, Instruction: inst}
}

// NewDataEntity wraps a decoded datum as an Entity.
func NewDataEntity(d *Data) *Entity {
	return &Entity{Address: d.Address, Size: d.Length, Kind: KindData, Data: d}
}

// NewUnknownOpcodeEntity builds the synthetic one-byte placeholder
// emitted when no opcode matches the byte stream.
func NewUnknownOpcodeEntity(addr uint64) *Entity {
	return &Entity{Address: addr, Size: 1, Kind: KindUnknownOpcode}
}

// End returns the address one past the end of this entity's range.
func (e *Entity) End() uint64 {
	return e.Address + uint64(e.Size)
}

// Covers reports whether addr falls within this entity's byte range.
func (e *Entity) Covers(addr uint64) bool {
	return addr >= e.Address && addr < e.End()
}

func (e *Entity) String() string {
	switch e.Kind {
	case KindInstruction:
		return e.Instruction.String()
	case KindData:
		return fmt.Sprintf("%s[%d]", e.Data.Type, e.Data.Length)
	default:
		return "unknown opcode"
	}
}
