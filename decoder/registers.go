package decoder

// Register name tables, indexed 0-7 for the encodings without REX and
// 0-15 when a REX prefix extends the field. 16-bit legacy addressing
// (BX+SI style) is not handled; this decoder targets 32- and 64-bit
// protected/long mode code, the common case for a PE image.

var reg8 = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
var reg8rex = [8]string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil"}
var reg16 = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
var reg32 = [8]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}
var reg64 = [8]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi"}
var regExt8 = [8]string{"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}
var regExt16 = [8]string{"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"}
var regExt32 = [8]string{"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
var regExt64 = [8]string{"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}

// regName returns the register name for a 3-bit field, extended to a
// 4-bit index when rexBit is set (the REX.R/X/B extension bit for
// this particular field), sized by size (8/16/32/64).
func regName(size int, field uint8, rexBit, rexPresent bool) string {
	idx := field & 0x7
	if rexBit {
		switch size {
		case 8:
			return regExt8[idx]
		case 16:
			return regExt16[idx]
		case 32:
			return regExt32[idx]
		default:
			return regExt64[idx]
		}
	}
	switch size {
	case 8:
		if rexPresent {
			return reg8rex[idx]
		}
		return reg8[idx]
	case 16:
		return reg16[idx]
	case 32:
		return reg32[idx]
	default:
		return reg64[idx]
	}
}
