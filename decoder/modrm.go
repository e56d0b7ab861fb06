package decoder

import (
	"github.com/Urethramancer/x86dis/cursor"
	"github.com/Urethramancer/x86dis/decodectx"
)

// modBits is the decoded ModR/M byte: mod (bits 7-6), reg (bits 5-3,
// the group extension or second operand register), rm (bits 2-0).
type modBits struct {
	mod, reg, rm uint8
}

func readModRM(cur *cursor.Cursor) (modBits, error) {
	b, err := cur.ReadU8()
	if err != nil {
		return modBits{}, err
	}
	return modBits{mod: b >> 6, reg: (b >> 3) & 0x7, rm: b & 0x7}, nil
}

// decodeRegOperand returns the register named by a 3-bit field (reg or
// rm-as-register), sized by the effective operand size.
func decodeRegOperand(ctx *decodectx.Context, field uint8, rexBit bool) Arg {
	return Reg{Name: regName(ctx.OperandSize, field, rexBit, ctx.REX.REXPresent)}
}

// decodeEA decodes the r/m field of a ModR/M byte into a register or
// memory operand, consuming SIB and displacement bytes as needed.
// Addressing follows 32-/64-bit protected/long mode rules; 16-bit
// legacy addressing is out of scope (see registers.go).
func decodeEA(cur *cursor.Cursor, ctx *decodectx.Context, m modBits, size int) (Arg, error) {
	if m.mod == 3 {
		return decodeRegOperand(ctx, m.rm, ctx.REX.REXB), nil
	}

	segPrefix := segmentName(ctx.Segment)

	if m.rm == 4 {
		return decodeSIB(cur, ctx, m, segPrefix)
	}

	if m.rm == 5 && m.mod == 0 {
		disp, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		if ctx.Mode == 64 {
			return Mem{Segment: segPrefix, RIPRelative: true, Disp: int64(int32(disp))}, nil
		}
		return Mem{Segment: segPrefix, Disp: int64(int32(disp))}, nil
	}

	base := regName(ctx.AddressSize, m.rm, ctx.REX.REXB, ctx.REX.REXPresent)
	mem := Mem{Segment: segPrefix, Base: base}
	switch m.mod {
	case 1:
		d, err := cur.ReadU8()
		if err != nil {
			return nil, err
		}
		mem.Disp = int64(int8(d))
	case 2:
		d, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		mem.Disp = int64(int32(d))
	}
	return mem, nil
}

func decodeSIB(cur *cursor.Cursor, ctx *decodectx.Context, m modBits, seg string) (Arg, error) {
	sib, err := cur.ReadU8()
	if err != nil {
		return nil, err
	}
	scale := uint8(1) << (sib >> 6)
	index := (sib >> 3) & 0x7
	base := sib & 0x7

	mem := Mem{Segment: seg}
	if !(index == 4 && !ctx.REX.REXX) {
		mem.Index = regName(ctx.AddressSize, index, ctx.REX.REXX, ctx.REX.REXPresent)
		mem.Scale = scale
	}

	if base == 5 && m.mod == 0 {
		d, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		mem.Disp = int64(int32(d))
		return mem, nil
	}

	mem.Base = regName(ctx.AddressSize, base, ctx.REX.REXB, ctx.REX.REXPresent)
	switch m.mod {
	case 1:
		d, err := cur.ReadU8()
		if err != nil {
			return nil, err
		}
		mem.Disp = int64(int8(d))
	case 2:
		d, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		mem.Disp = int64(int32(d))
	}
	return mem, nil
}

func segmentName(s decodectx.Segment) string {
	switch s {
	case decodectx.SegCS:
		return "cs"
	case decodectx.SegDS:
		return "ds"
	case decodectx.SegES:
		return "es"
	case decodectx.SegFS:
		return "fs"
	case decodectx.SegGS:
		return "gs"
	case decodectx.SegSS:
		return "ss"
	default:
		return ""
	}
}
