package opcode

import "github.com/Urethramancer/x86dis/decodectx"

// aluMnemonics is the eight-wide ALU group that repeats at 0x00, 0x08,
// 0x10, ... 0x38, and is also the Group 1 (0x80/0x81/0x83) extension
// selector, per the classic x86 encoding table.
var aluMnemonics = [8]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}

// ccNames are the 16 x86 condition codes, used by both Jcc and Scc
// forms.
var ccNames = [16]string{
	"o", "no", "b", "ae", "e", "ne", "be", "a",
	"s", "ns", "p", "np", "l", "ge", "le", "g",
}

// BuiltinSyntaxes returns a representative, hand-built opcode syntax
// table standing in for the XML-driven opcode source that lives
// outside this repository. It covers single-byte control flow, the
// Group 1 immediate-ALU extension, the Group 5 indirect call/jmp
// extension (including the import-stub jump form), the
// mandatory-prefix escape for MOVDQA vs MOVQ, and legacy/REX
// prefixes.
func BuiltinSyntaxes() []Syntax {
	var out []Syntax

	out = append(out, prefixSyntaxes()...)
	out = append(out, controlFlowSyntaxes()...)
	out = append(out, aluSyntaxes()...)
	out = append(out, group1Syntaxes()...)
	out = append(out, group5Syntaxes()...)
	out = append(out, moveSyntaxes()...)
	out = append(out, mandatoryPrefixSyntaxes()...)
	return out
}

func prefixSyntaxes() []Syntax {
	seg := func(b byte, s decodectx.Segment) Syntax {
		return Syntax{Prefix: []byte{b}, Mnemonic: "seg", IsPrefixOnly: true,
			PrefixEffect: decodectx.PrefixEffect{Segment: s}}
	}
	out := []Syntax{
		{Prefix: []byte{0x66}, Mnemonic: "opsize", IsPrefixOnly: true,
			PrefixEffect: decodectx.PrefixEffect{OperandSizeOverr: true}},
		{Prefix: []byte{0x67}, Mnemonic: "addrsize", IsPrefixOnly: true,
			PrefixEffect: decodectx.PrefixEffect{AddressSizeOverr: true}},
		{Prefix: []byte{0xF0}, Mnemonic: "lock", IsPrefixOnly: true,
			PrefixEffect: decodectx.PrefixEffect{Lock: true}},
		{Prefix: []byte{0xF2}, Mnemonic: "repne", IsPrefixOnly: true,
			PrefixEffect: decodectx.PrefixEffect{Rep: decodectx.RepNotEqual}},
		{Prefix: []byte{0xF3}, Mnemonic: "rep", IsPrefixOnly: true,
			PrefixEffect: decodectx.PrefixEffect{Rep: decodectx.RepEqual}},
		seg(0x2E, decodectx.SegCS),
		seg(0x36, decodectx.SegSS),
		seg(0x3E, decodectx.SegDS),
		seg(0x26, decodectx.SegES),
		seg(0x64, decodectx.SegFS),
		seg(0x65, decodectx.SegGS),
	}
	// REX prefixes 0x40-0x4F (64-bit mode only; harmless to register
	// unconditionally since a 32-bit-mode image will never route
	// through them in practice for this decoder's callers).
	for b := byte(0x40); b <= 0x4F; b++ {
		eff := decodectx.PrefixEffect{
			REXPresent: true,
			REXW:       b&0x08 != 0,
			REXR:       b&0x04 != 0,
			REXX:       b&0x02 != 0,
			REXB:       b&0x01 != 0,
		}
		out = append(out, Syntax{Prefix: []byte{b}, Mnemonic: "rex", IsPrefixOnly: true, PrefixEffect: eff})
	}
	return out
}

func controlFlowSyntaxes() []Syntax {
	out := []Syntax{
		{Prefix: []byte{0x90}, Mnemonic: "nop"},
		{Prefix: []byte{0xC3}, Mnemonic: "ret", IsReturn: true},
		{Prefix: []byte{0xC2}, Mnemonic: "ret", IsReturn: true,
			Operands: [4]Operand{{Kind: OperandImm16}}},
		{Prefix: []byte{0xCC}, Mnemonic: "int3"},
		{Prefix: []byte{0xF4}, Mnemonic: "hlt", IsHalt: true},
		{Prefix: []byte{0xE8}, Mnemonic: "call", IsCall: true,
			Operands: [4]Operand{{Kind: OperandRel32}}},
		{Prefix: []byte{0xE9}, Mnemonic: "jmp", IsUnconditionalJump: true,
			Operands: [4]Operand{{Kind: OperandRel32}}},
		{Prefix: []byte{0xEB}, Mnemonic: "jmp", IsUnconditionalJump: true,
			Operands: [4]Operand{{Kind: OperandRel8}}},
	}
	for cc := byte(0); cc < 16; cc++ {
		out = append(out, Syntax{
			Prefix: []byte{0x70 + cc}, Mnemonic: "j" + ccNames[cc],
			IsConditionalJump: true, Operands: [4]Operand{{Kind: OperandRel8}},
		})
		out = append(out, Syntax{
			Prefix: []byte{0x0F, 0x80 + cc}, Mnemonic: "j" + ccNames[cc],
			IsConditionalJump: true, Operands: [4]Operand{{Kind: OperandRel32}},
		})
	}
	return out
}

// aluSyntaxes builds the eight two-operand ALU groups (ADD/OR/ADC/SBB/
// AND/SUB/XOR/CMP), each at base 0x00+8*i with the usual six forms:
// r/m8,r8; r/m32,r32; r8,r/m8; r32,r/m32; AL,imm8; eAX,imm32.
func aluSyntaxes() []Syntax {
	var out []Syntax
	for i, mn := range aluMnemonics {
		base := byte(i * 8)
		out = append(out,
			Syntax{Prefix: []byte{base + 0x00}, Mnemonic: mn,
				Operands: [4]Operand{{Kind: OperandModRMRM}, {Kind: OperandModRMReg}}},
			Syntax{Prefix: []byte{base + 0x01}, Mnemonic: mn,
				Operands: [4]Operand{{Kind: OperandModRMRM}, {Kind: OperandModRMReg}}},
			Syntax{Prefix: []byte{base + 0x02}, Mnemonic: mn,
				Operands: [4]Operand{{Kind: OperandModRMReg}, {Kind: OperandModRMRM}}},
			Syntax{Prefix: []byte{base + 0x03}, Mnemonic: mn,
				Operands: [4]Operand{{Kind: OperandModRMReg}, {Kind: OperandModRMRM}}},
			Syntax{Prefix: []byte{base + 0x04}, Mnemonic: mn,
				Operands: [4]Operand{{Kind: OperandImplicitReg, ImplicitReg: "al"}, {Kind: OperandImm8}}},
			Syntax{Prefix: []byte{base + 0x05}, Mnemonic: mn,
				Operands: [4]Operand{{Kind: OperandImplicitReg, ImplicitReg: "eax"}, {Kind: OperandImmZ}}},
		)
	}
	return out
}

// group1Syntaxes builds the 0x80/0x81/0x83 immediate-to-r/m group,
// disambiguated by the ModR/M reg field: 83 /0 is ADD, 83 /7 is CMP.
func group1Syntaxes() []Syntax {
	var out []Syntax
	variants := []struct {
		op  byte
		imm OperandKind
	}{
		{0x80, OperandImm8},
		{0x81, OperandImmZ},
		{0x83, OperandImm8},
	}
	for _, v := range variants {
		for ext, mn := range aluMnemonics {
			out = append(out, Syntax{
				Prefix: []byte{v.op}, HasExt: true, Ext: uint8(ext), Mnemonic: mn,
				Operands: [4]Operand{{Kind: OperandModRMRM}, {Kind: v.imm}},
			})
		}
	}
	return out
}

// group5Syntaxes builds the 0xFF extension group: INC, DEC, CALL,
// JMP, PUSH r/m. The JMP r/m32 form (ext 4) is the encoding import
// jump stubs use, which the trampoline post-pass keys on.
func group5Syntaxes() []Syntax {
	return []Syntax{
		{Prefix: []byte{0xFF}, HasExt: true, Ext: 0, Mnemonic: "inc",
			Operands: [4]Operand{{Kind: OperandModRMRM}}},
		{Prefix: []byte{0xFF}, HasExt: true, Ext: 1, Mnemonic: "dec",
			Operands: [4]Operand{{Kind: OperandModRMRM}}},
		{Prefix: []byte{0xFF}, HasExt: true, Ext: 2, Mnemonic: "call", IsCall: true,
			Operands: [4]Operand{{Kind: OperandModRMRM}}},
		{Prefix: []byte{0xFF}, HasExt: true, Ext: 4, Mnemonic: "jmp", IsUnconditionalJump: true,
			Operands: [4]Operand{{Kind: OperandModRMRM}}},
		{Prefix: []byte{0xFF}, HasExt: true, Ext: 6, Mnemonic: "push",
			Operands: [4]Operand{{Kind: OperandModRMRM}}},
	}
}

func moveSyntaxes() []Syntax {
	var out []Syntax
	out = append(out,
		Syntax{Prefix: []byte{0x88}, Mnemonic: "mov",
			Operands: [4]Operand{{Kind: OperandModRMRM}, {Kind: OperandModRMReg}}},
		Syntax{Prefix: []byte{0x89}, Mnemonic: "mov",
			Operands: [4]Operand{{Kind: OperandModRMRM}, {Kind: OperandModRMReg}}},
		Syntax{Prefix: []byte{0x8A}, Mnemonic: "mov",
			Operands: [4]Operand{{Kind: OperandModRMReg}, {Kind: OperandModRMRM}}},
		Syntax{Prefix: []byte{0x8B}, Mnemonic: "mov",
			Operands: [4]Operand{{Kind: OperandModRMReg}, {Kind: OperandModRMRM}}},
		Syntax{Prefix: []byte{0x8D}, Mnemonic: "lea",
			Operands: [4]Operand{{Kind: OperandModRMReg}, {Kind: OperandModRMRM}}},
	)
	// Each of these is inserted once with RegInOpcode set; Build expands
	// it into the 8 adjacent leaf slots itself. Looping r here too
	// would double-expand: Build zeroes the low 3 bits of the last
	// prefix byte before re-deriving all 8, so every one of 8
	// hand-built copies would collapse back onto the same 8 slots,
	// leaving 8 duplicate (and spuriously "conflicting") leaves per byte
	// instead of one.
	out = append(out,
		Syntax{Prefix: []byte{0x50}, Mnemonic: "push", RegInOpcode: true,
			Operands: [4]Operand{{Kind: OperandRegInOpcode}}},
		Syntax{Prefix: []byte{0x58}, Mnemonic: "pop", RegInOpcode: true,
			Operands: [4]Operand{{Kind: OperandRegInOpcode}}},
		Syntax{Prefix: []byte{0xB8}, Mnemonic: "mov", RegInOpcode: true,
			Operands: [4]Operand{{Kind: OperandRegInOpcode}, {Kind: OperandImmZ}}},
	)
	return out
}

// mandatoryPrefixSyntaxes builds the 0F 6F / 66 0F 6F pair: MOVQ
// (MMX) has no mandatory prefix, MOVDQA (SSE2) requires the literal
// 0x66 byte as part of its own encoding path, not as a generic
// operand-size override.
func mandatoryPrefixSyntaxes() []Syntax {
	return []Syntax{
		{Prefix: []byte{0x0F, 0x6F}, Mnemonic: "movq",
			Operands: [4]Operand{{Kind: OperandModRMReg}, {Kind: OperandModRMRM}}},
		{Prefix: []byte{0x66, 0x0F, 0x6F}, Mnemonic: "movdqa",
			Operands: [4]Operand{{Kind: OperandModRMReg}, {Kind: OperandModRMRM}}},
		{Prefix: []byte{0x0F, 0x1F}, HasExt: true, Ext: 0, Mnemonic: "nop",
			Operands: [4]Operand{{Kind: OperandModRMRM}}},
	}
}
