package disasm_test

import (
	"testing"

	"github.com/Urethramancer/x86dis/decoder"
	"github.com/Urethramancer/x86dis/disasm"
	"github.com/Urethramancer/x86dis/entity"
)

func mkInst(addr uint64, size int) *decoder.Instruction {
	return &decoder.Instruction{Address: addr, Size: size}
}

func TestStoreInsertAndExactLookup(t *testing.T) {
	s := disasm.NewStore()
	s.InsertEntity(entity.NewInstructionEntity(mkInst(0x10, 2)))

	e, ok := s.EntityOnExactAddress(0x10)
	if !ok || e.Address != 0x10 {
		t.Fatalf("exact lookup failed: %v %v", e, ok)
	}
	if _, ok := s.EntityOnExactAddress(0x11); ok {
		t.Fatal("expected no entity at a covered, non-start address")
	}
}

func TestStoreInsertIgnoresDuplicateAddress(t *testing.T) {
	s := disasm.NewStore()
	first := entity.NewInstructionEntity(mkInst(0x10, 2))
	second := entity.NewInstructionEntity(mkInst(0x10, 4))
	s.InsertEntity(first)
	s.InsertEntity(second)

	e, _ := s.EntityOnExactAddress(0x10)
	if e != first {
		t.Fatal("expected the first insert to win at a given address")
	}
}

func TestStoreFindEntityOnAddressCovers(t *testing.T) {
	s := disasm.NewStore()
	s.InsertEntity(entity.NewInstructionEntity(mkInst(0x10, 4)))

	e, ok := s.FindEntityOnAddress(0x12)
	if !ok || e.Address != 0x10 {
		t.Fatalf("covering lookup failed: %v %v", e, ok)
	}
	if _, ok := s.FindEntityOnAddress(0x20); ok {
		t.Fatal("expected no covering entity at an address past everything")
	}
	if _, ok := s.FindEntityOnAddress(0x05); ok {
		t.Fatal("expected no covering entity at an address before everything")
	}
}

func TestStorePendingReferenceMergesOnInsert(t *testing.T) {
	s := disasm.NewStore()
	s.InsertReference(0x40, 0x100) // target not decoded yet
	s.InsertEntity(entity.NewInstructionEntity(mkInst(0x100, 1)))

	info, ok := s.InfoCoveringAddress(0x100)
	if !ok {
		t.Fatal("expected entity at 0x100")
	}
	if len(info.References) != 1 || info.References[0] != 0x40 {
		t.Fatalf("expected pending reference to merge in, got %v", info.References)
	}
}

func TestStoreReferenceAfterInsertAttachesDirectly(t *testing.T) {
	s := disasm.NewStore()
	s.InsertEntity(entity.NewInstructionEntity(mkInst(0x100, 1)))
	s.InsertReference(0x40, 0x100)

	info, _ := s.InfoCoveringAddress(0x100)
	if len(info.References) != 1 || info.References[0] != 0x40 {
		t.Fatalf("expected direct reference attach, got %v", info.References)
	}
}

func TestStoreClearDecodedEntity(t *testing.T) {
	s := disasm.NewStore()
	s.InsertEntity(entity.NewInstructionEntity(mkInst(0x10, 2)))
	s.ClearDecodedEntity(0x10)

	if _, ok := s.EntityOnExactAddress(0x10); ok {
		t.Fatal("expected entity to be gone after clear")
	}
	// Re-insert at the same address must succeed (not silently dropped
	// as a stale duplicate).
	s.InsertEntity(entity.NewInstructionEntity(mkInst(0x10, 3)))
	e, ok := s.EntityOnExactAddress(0x10)
	if !ok || e.Size != 3 {
		t.Fatalf("expected fresh insert after clear, got %v %v", e, ok)
	}
}

func TestStoreFunctionIndex(t *testing.T) {
	s := disasm.NewStore()
	f := entity.NewFunction(0x1000, "sub_1000", s)
	s.InsertFunction(f)

	got, ok := s.FunctionAtStart(0x1000)
	if !ok || got != f {
		t.Fatalf("expected to find the exact same *Function instance, got %v %v", got, ok)
	}

	s.UpdateFunctionEnd(f, 0x1010)
	if f.End != 0x1010 {
		t.Fatalf("end = %#x, want 0x1010", f.End)
	}
	// Growth is monotonic: a smaller end must not shrink it.
	s.UpdateFunctionEnd(f, 0x1005)
	if f.End != 0x1010 {
		t.Fatalf("end shrank to %#x, want it to stay at 0x1010", f.End)
	}

	cov, ok := s.FunctionCovering(0x1008)
	if !ok || cov != f {
		t.Fatalf("expected FunctionCovering to find f, got %v %v", cov, ok)
	}
}

// Registering an import or minting a function for a call target must
// notify listeners of the new name.
func TestStoreInsertFunctionTellsListeners(t *testing.T) {
	s := disasm.NewStore()
	rec := newRecorder()
	s.AddListener(rec)

	s.InsertFunction(entity.NewFunction(0x2000, "ExitProcess", s))

	select {
	case addr := <-rec.changed:
		if addr != 0x2000 {
			t.Fatalf("expected change notification for 0x2000, got %#x", addr)
		}
	default:
		t.Fatal("expected a change notification from InsertFunction")
	}
}

func TestStoreNotifyRenameTellsListeners(t *testing.T) {
	s := disasm.NewStore()
	rec := newRecorder()
	s.AddListener(rec)

	f := entity.NewFunction(0x1000, "sub_1000", s)
	f.Rename("!Exit")

	waitUntil(t, rec.changed, waitTimeout, func() bool { return f.Name == "!Exit" })
	select {
	case addr := <-rec.changed:
		if addr != 0x1000 {
			t.Fatalf("expected change notification for 0x1000, got %#x", addr)
		}
	default:
		t.Fatal("expected a change notification from the rename")
	}
}
