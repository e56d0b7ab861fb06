// Package opcode implements opcode syntax records and the decode
// tree: a prefix trie over opcode bytes with ModR/M extension
// disambiguation. The opcode-table source itself (an XML reference of
// x86 encodings) lives outside this repository; Source is the opaque
// producer interface this package consumes, and BuiltinSyntaxes is a
// small in-process Source standing in for it.
package opcode

import "github.com/Urethramancer/x86dis/decodectx"

// OperandKind describes how the decoder consumes bytes for one operand
// of a Syntax, after the opcode bytes and any ModR/M byte are known.
type OperandKind int

const (
	// OperandNone marks an unused operand slot.
	OperandNone OperandKind = iota
	// OperandModRMRM is the r/m field of the ModR/M byte: a register
	// or a memory reference, decoded via SIB/displacement as needed.
	OperandModRMRM
	// OperandModRMReg is the reg field of the ModR/M byte: always a
	// register.
	OperandModRMReg
	// OperandRegInOpcode is a register encoded in the low 3 bits of
	// the final opcode byte (the "+rd"/"+rb" forms).
	OperandRegInOpcode
	// OperandImm8/16/32/64 are fixed-width immediates.
	OperandImm8
	OperandImm16
	OperandImm32
	OperandImm64
	// OperandImmZ is an immediate whose width tracks the effective
	// operand size (16 or 32 bits).
	OperandImmZ
	// OperandRel8/32 are signed branch displacements relative to the
	// address of the next instruction.
	OperandRel8
	OperandRel32
	// OperandImplicitReg is a register that is part of the mnemonic's
	// meaning and consumes no encoding bits (AL, EAX, ...).
	OperandImplicitReg
	// OperandMOffs is a direct absolute address operand (the MOV
	// A0-A3 forms), sized by the effective address size.
	OperandMOffs
)

// Operand describes one operand slot of a Syntax.
type Operand struct {
	Kind OperandKind
	// ImplicitReg names the register when Kind is OperandImplicitReg.
	ImplicitReg string
}

// Syntax is an opcode syntax record: one encodable instruction form.
type Syntax struct {
	// Prefix is the literal 1-3 byte path this syntax occupies in the
	// decode tree.
	Prefix []byte

	// HasExt and Ext describe an optional ModR/M group extension: Ext
	// in [0,7] is matched against bits 5-3 of the byte following
	// Prefix.
	HasExt bool
	Ext    uint8

	// RegInOpcode marks that the low 3 bits of the last prefix byte
	// encode a register, so this syntax occupies 8 adjacent leaf
	// slots differing only in those bits.
	RegInOpcode bool

	Mnemonic string
	Operands [4]Operand

	// Classification, consumed by the decoder to build Instruction
	// predicates.
	IsCall              bool
	IsUnconditionalJump bool
	IsConditionalJump   bool
	IsReturn            bool
	IsHalt              bool

	// IsPrefixOnly marks a legacy/REX prefix byte modeled as a
	// zero-operand syntax whose only effect is to mutate the Context;
	// the decoder's top-level loop applies PrefixEffect and restarts
	// descent from the root rather than returning this as a real
	// Instruction.
	IsPrefixOnly bool
	PrefixEffect decodectx.PrefixEffect
}

// Source yields the finite sequence of opcode-syntax records that
// describe an instruction set. The real implementation parses an
// external XML reference; that producer lives outside this
// repository.
type Source interface {
	Syntaxes() []Syntax
}

// sliceSource adapts a plain slice to Source.
type sliceSource []Syntax

func (s sliceSource) Syntaxes() []Syntax { return []Syntax(s) }

// NewSliceSource wraps a pre-built syntax list as a Source.
func NewSliceSource(syntaxes []Syntax) Source {
	return sliceSource(syntaxes)
}
