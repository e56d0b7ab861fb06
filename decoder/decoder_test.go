package decoder_test

import (
	"testing"

	"github.com/Urethramancer/x86dis/cursor"
	"github.com/Urethramancer/x86dis/decodectx"
	"github.com/Urethramancer/x86dis/decoder"
	"github.com/Urethramancer/x86dis/disasmerr"
	"github.com/Urethramancer/x86dis/opcode"
)

func newTree() *opcode.Tree {
	return opcode.Build(opcode.NewSliceSource(opcode.BuiltinSyntaxes()), nil)
}

func decodeAt(t *testing.T, code []byte, addr uint64) (*decoder.Instruction, error) {
	t.Helper()
	cur := cursor.New(code)
	ctx := decodectx.New(32)
	ctx.Reset(0, addr)
	return decoder.Decode(cur, ctx, newTree())
}

func TestEntryPointNopRet(t *testing.T) {
	inst, err := decodeAt(t, []byte{0x90, 0xC3}, 0x1000)
	if err != nil || inst == nil {
		t.Fatalf("decode nop: %v, %v", inst, err)
	}
	if inst.Syntax.Mnemonic != "nop" || inst.Size != 1 {
		t.Fatalf("got %+v", inst)
	}

	cur := cursor.New([]byte{0x90, 0xC3})
	cur.Skip(1)
	ctx := decodectx.New(32)
	ctx.Reset(1, 0x1001)
	inst2, err := decoder.Decode(cur, ctx, newTree())
	if err != nil || inst2 == nil || inst2.Syntax.Mnemonic != "ret" {
		t.Fatalf("got %+v, %v", inst2, err)
	}
	if !inst2.StopsTrace() {
		t.Fatal("ret must stop trace")
	}
}

func TestGroupExtensionDisambiguation(t *testing.T) {
	// 83 C0 05 -> ADD EAX,5 ; 83 F8 05 -> CMP EAX,5
	addInst, err := decodeAt(t, []byte{0x83, 0xC0, 0x05}, 0x2000)
	if err != nil || addInst == nil || addInst.Syntax.Mnemonic != "add" {
		t.Fatalf("add: %+v, %v", addInst, err)
	}
	cmpInst, err := decodeAt(t, []byte{0x83, 0xF8, 0x05}, 0x2000)
	if err != nil || cmpInst == nil || cmpInst.Syntax.Mnemonic != "cmp" {
		t.Fatalf("cmp: %+v, %v", cmpInst, err)
	}
	if addInst.Size != 3 || cmpInst.Size != 3 {
		t.Fatalf("expected size 3, got %d and %d", addInst.Size, cmpInst.Size)
	}
}

func TestMandatoryPrefixEscape(t *testing.T) {
	// 66 0F 6F 00 -> movdqa xmm0,[rax]; must not be conflated with 0F 6F 00.
	inst, err := decodeAt(t, []byte{0x66, 0x0F, 0x6F, 0x00}, 0x3000)
	if err != nil || inst == nil {
		t.Fatalf("%v, %v", inst, err)
	}
	if inst.Syntax.Mnemonic != "movdqa" {
		t.Fatalf("got mnemonic %s, want movdqa", inst.Syntax.Mnemonic)
	}
	if inst.Size != 4 {
		t.Fatalf("size = %d, want 4", inst.Size)
	}

	inst2, err := decodeAt(t, []byte{0x0F, 0x6F, 0x00}, 0x3000)
	if err != nil || inst2 == nil || inst2.Syntax.Mnemonic != "movq" {
		t.Fatalf("%+v, %v", inst2, err)
	}
}

func TestLockPrefixAppliesToFollowingInstruction(t *testing.T) {
	// F0 03 C1 -> lock add eax,ecx; decodes as ONE instruction.
	inst, err := decodeAt(t, []byte{0xF0, 0x03, 0xC1}, 0x4000)
	if err != nil || inst == nil {
		t.Fatalf("%v, %v", inst, err)
	}
	if inst.Syntax.Mnemonic != "add" {
		t.Fatalf("got %s, want add", inst.Syntax.Mnemonic)
	}
	if inst.Size != 3 {
		t.Fatalf("size = %d, want 3 (lock byte included)", inst.Size)
	}
}

func TestLockAloneAtEndOfImageIsDecodeMiss(t *testing.T) {
	inst, err := decodeAt(t, []byte{0xF0}, 0x4000)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if inst != nil {
		t.Fatalf("expected miss, got %+v", inst)
	}
}

func TestUnknownOpcodeIsMiss(t *testing.T) {
	// 0xD6 (SALC) is not in the builtin table.
	inst, err := decodeAt(t, []byte{0xD6}, 0x5000)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if inst != nil {
		t.Fatalf("expected miss for unmapped opcode, got %+v", inst)
	}
}

func TestCallRelativeBranchTarget(t *testing.T) {
	code := []byte{0xE8, 0x04, 0x00, 0x00, 0x00}
	inst, err := decodeAt(t, code, 0x1000)
	if err != nil || inst == nil {
		t.Fatalf("%v, %v", inst, err)
	}
	if !inst.IsFunctionCall() {
		t.Fatal("expected call")
	}
	targets := inst.BranchTargets()
	if len(targets) != 1 || targets[0] != 0x1000+5+4 {
		t.Fatalf("targets = %v, want [%#x]", targets, 0x1000+5+4)
	}
}

func TestIndirectJumpTrampolineForm(t *testing.T) {
	// FF 25 00 20 00 00 -> jmp dword ptr [0x2000]
	inst, err := decodeAt(t, []byte{0xFF, 0x25, 0x00, 0x20, 0x00, 0x00}, 0x1000)
	if err != nil || inst == nil {
		t.Fatalf("%v, %v", inst, err)
	}
	if inst.Syntax.Mnemonic != "jmp" || !inst.IsUnconditionalBranch() {
		t.Fatalf("got %+v", inst)
	}
	data := inst.AssociatedData()
	if len(data) != 1 || data[0] != 0x2000 {
		t.Fatalf("associated data = %v, want [0x2000]", data)
	}
}

func TestTruncatedOperandIsDecodeException(t *testing.T) {
	// E8 with only 2 of 4 displacement bytes present.
	_, err := decodeAt(t, []byte{0xE8, 0x01, 0x02}, 0x1000)
	if err != disasmerr.DecodeException {
		t.Fatalf("got %v, want DecodeException", err)
	}
}
