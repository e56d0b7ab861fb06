package disasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/retroenv/retrogolib/log"

	"github.com/Urethramancer/x86dis/cursor"
	"github.com/Urethramancer/x86dis/decodectx"
	"github.com/Urethramancer/x86dis/decoder"
	"github.com/Urethramancer/x86dis/disasmerr"
	"github.com/Urethramancer/x86dis/entity"
	"github.com/Urethramancer/x86dis/image"
	"github.com/Urethramancer/x86dis/opcode"
)

// Engine is the trace-driven disassembly engine: a single worker
// goroutine owns the work queue, the data store's
// address index, the function index, and the decode context, and
// drains a priority queue of code/data addresses until it runs empty
// or the worker is told to stop.
// Every field below except mu/running/cancel/done/inbox is touched
// only from the worker goroutine.
type Engine struct {
	store *Store
	tree  *opcode.Tree
	img   image.Image
	log   log.Logger

	queue *workQueue
	ctx   *decodectx.Context

	// branchFn associates a not-yet-decoded jump/conditional-jump
	// target with the function it continues: the target isn't a
	// function start, so a plain FunctionAtStart lookup when the
	// queued item is popped wouldn't find it on its own.
	branchFn map[uint64]*entity.Function

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	inbox   chan workItem
}

// NewEngine builds an Engine over store, decoding against tree, and
// reading bytes from img.
func NewEngine(store *Store, tree *opcode.Tree, img image.Image, logger log.Logger) *Engine {
	return &Engine{
		store:    store,
		tree:     tree,
		img:      img,
		log:      logger,
		queue:    newWorkQueue(),
		ctx:      decodectx.New(img.CreateContext()),
		branchFn: make(map[uint64]*entity.Function),
		inbox:    make(chan workItem, 64),
	}
}

// AddListener registers l with the underlying store.
func (e *Engine) AddListener(l Listener) { e.store.AddListener(l) }

// RemoveListener unregisters l from the underlying store.
func (e *Engine) RemoveListener(l Listener) { e.store.RemoveListener(l) }

// ResolveAddress returns the name of the function covering addr, if
// any.
func (e *Engine) ResolveAddress(addr uint64) (string, bool) {
	f, ok := e.store.FunctionCovering(addr)
	if !ok {
		return "", false
	}
	return f.Name, true
}

// Start begins analysis: it seeds the function index from the image's
// imports, enqueues the entry point, and launches the worker goroutine
// under parent. Start is idempotent-per-run: calling it again while a
// worker is still active returns disasmerr.AlreadyRunning. Once the
// worker has drained naturally or Stop has returned, Start may be
// called again.
func (e *Engine) Start(parent context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return disasmerr.AlreadyRunning
	}

	for addr, name := range e.img.GetImports() {
		f := entity.NewFunction(addr, name, e.store)
		e.store.InsertFunction(f)
	}

	// The entry point is itself a function start, registered the same
	// way a call target would be.
	entry := e.img.CodeEntryPointMem()
	if _, ok := e.store.FunctionAtStart(entry); !ok {
		e.store.InsertFunction(entity.NewFunction(entry, fmt.Sprintf("sub_%x", entry), e.store))
	}
	e.queue.pushCode(entry)

	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	go e.loop(ctx)
	return nil
}

// Stop cancels the worker and waits for it to exit. Returns
// disasmerr.NotRunning if no worker is active.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return disasmerr.NotRunning
	}
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	return nil
}

// Reanalyze asks the worker to drop the entity at addr, if any, and
// re-enqueue it for code analysis: the mechanism a script uses after
// patching bytes in-place. The entity is dropped on the worker, which
// owns the store. Returns disasmerr.NotRunning if the engine is not
// currently analyzing.
func (e *Engine) Reanalyze(addr uint64) error {
	e.mu.Lock()
	running := e.running
	inbox := e.inbox
	e.mu.Unlock()
	if !running {
		return disasmerr.NotRunning
	}
	inbox <- workItem{addr: addr, kind: workCode}
	return nil
}

// loop is the worker goroutine body: it drains the internal priority
// queue, folding in requests delivered on inbox (from Reanalyze: the
// entity at the request's address is dropped before the address is
// queued). Draining the
// queue naturally (queue.pop returns none and inbox is empty) runs
// the post-pass and transitions the engine to stopped on its own,
// with no Stop call required; an explicit cancellation via Stop exits
// immediately instead, leaving partial state as-is.
func (e *Engine) loop(ctx context.Context) {
	e.store.listeners.each(func(l Listener) { l.OnAnalyzeStart() })
	defer func() {
		e.store.listeners.each(func(l Listener) { l.OnAnalyzeStop() })
		close(e.done)
	}()

	if !e.drain(ctx) {
		return
	}

	DetectTrampolines(e.store)
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// drain runs the main loop until either ctx is cancelled (returns
// false) or both the queue and the inbox are empty (returns true, a
// natural completion).
func (e *Engine) drain(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case item := <-e.inbox:
			e.store.ClearDecodedEntity(item.addr)
			e.queue.push(item)
			continue
		default:
		}

		item, ok := e.queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return false
			case item := <-e.inbox:
				e.store.ClearDecodedEntity(item.addr)
				e.queue.push(item)
				continue
			default:
				return true
			}
		}
		e.handle(item)
	}
}

func (e *Engine) handle(item workItem) {
	switch item.kind {
	case workCode:
		fn, ok := e.store.FunctionAtStart(item.addr)
		if !ok {
			fn = e.branchFn[item.addr]
		}
		delete(e.branchFn, item.addr)
		e.disassembleTrace(item.addr, fn)
	case workData:
		e.analyzeData(item.addr)
	}
}

// disassembleTrace decodes instructions from addr forward until a
// trace-stopping instruction, a decode failure, or an already-claimed
// address is reached, then grows fn's end to the address of the last
// instruction decoded. fn may be nil (a trace that was never
// associated with a function, e.g. an orphan jump target).
func (e *Engine) disassembleTrace(addr uint64, fn *entity.Function) {
	lastAddr := addr
	for {
		if found, ok := e.store.FindEntityOnAddress(addr); ok {
			if found.Address == addr && found.Kind == entity.KindInstruction {
				break // already traced from another path
			}
			e.reportError(addr, disasmerr.Overlap)
			break
		}
		if !e.img.IsValidAddress(addr) {
			e.reportError(addr, disasmerr.InvalidAddress)
			break
		}

		seq, err := e.img.GetByteSequence(addr, false)
		if err != nil {
			e.reportError(addr, err)
			break
		}
		cur := cursor.New(seq.Bytes())
		e.ctx.Reset(0, addr)
		inst, err := decoder.Decode(cur, e.ctx, e.tree)
		seq.Release()

		if err != nil {
			// A malformed operand (DecodeException): no pseudo-entity
			// in trace mode, just an error event and a stopped trace.
			e.reportError(addr, err)
			break
		}
		if inst == nil {
			// DecodeMiss: same treatment, no pseudo-entity here either
			// (that's reserved for the one-shot decode path).
			e.reportError(addr, disasmerr.DecodeMiss)
			break
		}

		e.store.InsertEntity(entity.NewInstructionEntity(inst))
		e.examineInstruction(inst, fn)

		lastAddr = inst.Address
		if inst.StopsTrace() {
			break
		}

		addr = inst.Address + uint64(inst.Size)
		if f, ok := e.store.FunctionAtStart(addr); ok {
			fn = f // fall-through into an adjacent known function
		}
	}
	if fn != nil {
		e.store.UpdateFunctionEnd(fn, lastAddr)
	}
}

// examineInstruction enqueues the work this instruction's operands
// imply: the first branch target (calls mint a new function if the
// target isn't already known; other branches associate the target
// with the enclosing function), associated literal-address data, and
// probable data-pointer immediates promoted to code or data work
// depending on which kind of address they land in. Only the first
// branch target is enqueued per instruction; the rare multi-target
// forms carry their extra targets as separate queued operands.
func (e *Engine) examineInstruction(inst *decoder.Instruction, fn *entity.Function) {
	if targets := inst.BranchTargets(); len(targets) > 0 {
		b := targets[0]
		if !e.img.IsValidAddress(b) {
			e.reportError(b, disasmerr.InvalidAddress)
		} else {
			e.store.InsertReference(inst.Address, b)
			if inst.IsFunctionCall() {
				if _, known := e.store.FunctionAtStart(b); !known {
					g := entity.NewFunction(b, fmt.Sprintf("sub_%x", b), e.store)
					e.store.InsertFunction(g)
				}
			} else if fn != nil {
				e.branchFn[b] = fn
			}
			e.queue.pushCode(b)
		}
	}

	for _, p := range inst.AssociatedData() {
		e.store.InsertReference(inst.Address, p)
		e.queue.pushData(p)
	}

	for _, p := range inst.ProbableDataPointers() {
		if !e.img.IsValidAddress(p) {
			continue
		}
		if _, ok := e.store.FindEntityOnAddress(p); ok {
			continue
		}
		e.store.InsertReference(inst.Address, p)
		if e.img.IsCodeAddress(p) {
			e.queue.pushCode(p)
		} else {
			e.queue.pushData(p)
		}
	}
}

// maxDataScan bounds how many bytes analyzeData inspects when looking
// for a NUL-terminated printable run (entity.ClassifyData): enough to
// recognize any realistic inline string without scanning an entire
// unbounded byte sequence for every single data work item.
const maxDataScan = 256

// analyzeData registers a data entity at addr if the address is
// unclaimed, classifying it via entity.ClassifyData against the bytes
// available there.
func (e *Engine) analyzeData(addr uint64) {
	if !e.img.IsValidAddress(addr) {
		e.reportError(addr, disasmerr.InvalidAddress)
		return
	}
	if _, ok := e.store.FindEntityOnAddress(addr); ok {
		// An instruction covering addr means data must not overwrite
		// code; data already covering it means refinement, not yet
		// supported. Either way, nothing to do.
		return
	}
	seq, err := e.img.GetByteSequence(addr, false)
	if err != nil {
		e.reportError(addr, errors.Wrap(disasmerr.DataAnalyzeFailure, err.Error()))
		return
	}
	bytes := seq.Bytes()
	if len(bytes) > maxDataScan {
		bytes = bytes[:maxDataScan]
	}
	data := entity.ClassifyData(addr, bytes)
	seq.Release()

	e.store.InsertEntity(entity.NewDataEntity(data))
}

func (e *Engine) reportError(addr uint64, err error) {
	wrapped := errors.WithStack(err)
	e.log.Warn("analysis error",
		log.String("address", fmt.Sprintf("0x%x", addr)),
		log.String("error", fmt.Sprintf("%+v", wrapped)),
	)
	e.store.listeners.each(func(l Listener) { l.OnAnalyzeError(addr) })
}
