package disasm

import (
	"github.com/Urethramancer/x86dis/cursor"
	"github.com/Urethramancer/x86dis/decodectx"
	"github.com/Urethramancer/x86dis/decoder"
	"github.com/Urethramancer/x86dis/entity"
	"github.com/Urethramancer/x86dis/image"
	"github.com/Urethramancer/x86dis/opcode"
)

// OneShotDecode performs a single decode at addr against tree, with
// no data store and no trace discovery behind it, reporting the
// result through each listener's OnDecode the same way the trace
// engine does.
//
// Unlike the trace engine, which treats a decode miss as a reason to
// stop the trace and fire OnAnalyzeError, a one-shot caller has no
// trace to poison and nothing else to show at addr: a miss here is
// reported as a synthetic one-byte "unknown opcode" entity instead.
func OneShotDecode(img image.Image, tree *opcode.Tree, addr uint64, listeners ...Listener) (*entity.Entity, error) {
	seq, err := img.GetByteSequence(addr, true)
	if err != nil {
		return nil, err
	}
	cur := cursor.New(seq.Bytes())
	ctx := decodectx.New(img.CreateContext())
	ctx.Reset(0, addr)
	inst, err := decoder.Decode(cur, ctx, tree)
	seq.Release()
	if err != nil {
		return nil, err
	}

	var e *entity.Entity
	if inst == nil {
		e = entity.NewUnknownOpcodeEntity(addr)
	} else {
		e = entity.NewInstructionEntity(inst)
	}
	for _, l := range listeners {
		l.OnDecode(e.Address, e.Size, e)
	}
	return e, nil
}
