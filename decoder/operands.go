package decoder

import (
	"github.com/Urethramancer/x86dis/cursor"
	"github.com/Urethramancer/x86dis/decodectx"
	"github.com/Urethramancer/x86dis/opcode"
)

// decodeOperands consumes ModR/M, SIB, displacement, and immediate
// bytes per syn's operand descriptors, in order.
func decodeOperands(cur *cursor.Cursor, ctx *decodectx.Context, syn *opcode.Syntax) ([4]Arg, error) {
	var args [4]Arg
	var mrm modBits
	haveModRM := false

	ensureModRM := func() error {
		if haveModRM {
			return nil
		}
		m, err := readModRM(cur)
		if err != nil {
			return err
		}
		mrm = m
		haveModRM = true
		return nil
	}

	lastOpcodeByte := func() byte {
		trail := ctx.DecodedPrefix()
		if len(trail) == 0 {
			return 0
		}
		return trail[len(trail)-1]
	}

	for i, op := range syn.Operands {
		switch op.Kind {
		case opcode.OperandNone:
			continue

		case opcode.OperandModRMRM:
			if err := ensureModRM(); err != nil {
				return args, err
			}
			a, err := decodeEA(cur, ctx, mrm, ctx.OperandSize)
			if err != nil {
				return args, err
			}
			args[i] = a

		case opcode.OperandModRMReg:
			if err := ensureModRM(); err != nil {
				return args, err
			}
			args[i] = decodeRegOperand(ctx, mrm.reg, ctx.REX.REXR)

		case opcode.OperandRegInOpcode:
			reg := lastOpcodeByte() & 0x7
			args[i] = decodeRegOperand(ctx, reg, ctx.REX.REXB)

		case opcode.OperandImplicitReg:
			args[i] = Reg{Name: op.ImplicitReg}

		case opcode.OperandImm8:
			v, err := cur.ReadU8()
			if err != nil {
				return args, err
			}
			args[i] = Imm{Value: int64(int8(v))}

		case opcode.OperandImm16:
			v, err := cur.ReadU16()
			if err != nil {
				return args, err
			}
			args[i] = Imm{Value: int64(int16(v))}

		case opcode.OperandImm32:
			v, err := cur.ReadU32()
			if err != nil {
				return args, err
			}
			args[i] = Imm{Value: int64(int32(v))}

		case opcode.OperandImm64:
			v, err := cur.ReadU64()
			if err != nil {
				return args, err
			}
			args[i] = Imm{Value: int64(v)}

		case opcode.OperandImmZ:
			if ctx.OperandSize == 16 {
				v, err := cur.ReadU16()
				if err != nil {
					return args, err
				}
				args[i] = Imm{Value: int64(int16(v))}
			} else {
				v, err := cur.ReadU32()
				if err != nil {
					return args, err
				}
				args[i] = Imm{Value: int64(int32(v))}
			}

		case opcode.OperandRel8:
			v, err := cur.ReadU8()
			if err != nil {
				return args, err
			}
			args[i] = Rel{Value: int64(int8(v))}

		case opcode.OperandRel32:
			v, err := cur.ReadU32()
			if err != nil {
				return args, err
			}
			args[i] = Rel{Value: int64(int32(v))}

		case opcode.OperandMOffs:
			var v uint64
			switch ctx.AddressSize {
			case 16:
				w, err := cur.ReadU16()
				if err != nil {
					return args, err
				}
				v = uint64(w)
			case 64:
				q, err := cur.ReadU64()
				if err != nil {
					return args, err
				}
				v = q
			default:
				d, err := cur.ReadU32()
				if err != nil {
					return args, err
				}
				v = uint64(d)
			}
			args[i] = Mem{Disp: int64(v)}
		}
	}
	return args, nil
}
