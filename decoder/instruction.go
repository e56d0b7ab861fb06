package decoder

import (
	"strings"

	"github.com/Urethramancer/x86dis/opcode"
)

// Instruction is the result of a successful decode.
type Instruction struct {
	Syntax  *opcode.Syntax
	Address uint64
	Size    int
	Args    [4]Arg
	Raw     []byte
}

// IsPrefixOnly reports whether this decode was a legacy/REX prefix
// byte rather than a full instruction; the decoder's top-level loop
// applies it to the Context and keeps decoding instead of returning it
// to the caller.
func (i *Instruction) IsPrefixOnly() bool {
	return i.Syntax != nil && i.Syntax.IsPrefixOnly
}

// IsFunctionCall reports whether this instruction transfers control
// with an implied return (CALL).
func (i *Instruction) IsFunctionCall() bool {
	return i.Syntax != nil && i.Syntax.IsCall
}

// IsUnconditionalBranch reports whether this instruction always
// transfers control away from the fall-through address.
func (i *Instruction) IsUnconditionalBranch() bool {
	return i.Syntax != nil && i.Syntax.IsUnconditionalJump
}

// StopsTrace reports whether linear decoding must stop after this
// instruction: a return, an unconditional jump, or a halt.
func (i *Instruction) StopsTrace() bool {
	if i.Syntax == nil {
		return false
	}
	return i.Syntax.IsReturn || i.Syntax.IsUnconditionalJump || i.Syntax.IsHalt
}

// BranchTargets returns the set of memory addresses this instruction
// can transfer control to directly: relative branches (Rel resolved
// against Address+Size) and absolute/immediate direct targets. Memory
// and register indirect targets are not resolvable statically and are
// excluded.
func (i *Instruction) BranchTargets() []uint64 {
	if i.Syntax == nil || !(i.Syntax.IsCall || i.Syntax.IsUnconditionalJump || i.Syntax.IsConditionalJump) {
		return nil
	}
	var out []uint64
	next := i.Address + uint64(i.Size)
	for _, a := range i.Args {
		switch v := a.(type) {
		case Rel:
			out = append(out, uint64(int64(next)+v.Value))
		case Imm:
			out = append(out, uint64(v.Value))
		}
	}
	return out
}

// AssociatedData returns memory operands whose effective address is a
// literal (no base/index register): addresses known to hold data this
// instruction touches.
func (i *Instruction) AssociatedData() []uint64 {
	var out []uint64
	for _, a := range i.Args {
		if m, ok := a.(Mem); ok && m.IsLiteralAddress() {
			out = append(out, uint64(m.Disp))
		}
	}
	return out
}

// ProbableDataPointers returns immediate operand values that are not
// already classified as branch targets: candidates the trace engine
// heuristically promotes to references if they land inside the image.
func (i *Instruction) ProbableDataPointers() []uint64 {
	if i.Syntax != nil && (i.Syntax.IsCall || i.Syntax.IsUnconditionalJump || i.Syntax.IsConditionalJump) {
		return nil
	}
	var out []uint64
	for _, a := range i.Args {
		if imm, ok := a.(Imm); ok {
			out = append(out, uint64(imm.Value))
		}
	}
	return out
}

// String renders "mnemonic operand,operand" in conventional assembly
// output form, for log lines and the one-shot decoder path.
func (i *Instruction) String() string {
	if i.Syntax == nil {
		return "(nil)"
	}
	var parts []string
	for _, a := range i.Args {
		if a == nil {
			continue
		}
		parts = append(parts, a.String())
	}
	if len(parts) == 0 {
		return i.Syntax.Mnemonic
	}
	return i.Syntax.Mnemonic + " " + strings.Join(parts, ",")
}
