package disasm

import "github.com/Urethramancer/x86dis/entity"

// DetectTrampolines runs the post-pass: after analysis completes,
// any function whose single instruction is an unconditional branch
// through exactly one literal-address associated-data target that
// resolves to another known function is a trampoline (typically an
// import jump stub). Its name is prefixed with "!" so it reads
// distinctly from a real function in listings.
//
// The engine's worker runs this itself once the work queue drains
// naturally; a Stop that cancels analysis skips it. It reads and
// renames functions directly rather than going through the work
// queue, since no further decoding is implied by a rename.
func DetectTrampolines(store *Store) {
	for _, fn := range store.Functions() {
		target, ok := trampolineTarget(store, fn)
		if !ok {
			continue
		}
		fn.Rename("!" + target.Name)
		// The rename fans out a change notification for fn.Start via
		// NotifyRename; the target function's listing also depends on
		// this trampoline now pointing at it, so tell listeners about
		// the target address explicitly too.
		store.TellListeners(target.Start)
	}
}

func trampolineTarget(store *Store, fn *entity.Function) (*entity.Function, bool) {
	e, ok := store.EntityOnExactAddress(fn.Start)
	if !ok || e.Kind != entity.KindInstruction || e.Instruction == nil {
		return nil, false
	}
	inst := e.Instruction
	if !inst.IsUnconditionalBranch() {
		return nil, false
	}
	targets := inst.AssociatedData()
	if len(targets) != 1 {
		return nil, false
	}
	target, ok := store.FunctionAtStart(targets[0])
	if !ok || target == fn {
		return nil, false
	}
	return target, true
}
