// Package disasm implements the disassembly data store, the
// trace-driven analysis engine with its priority work queue, the
// trampoline post-pass, and the control surface callers drive them
// through.
package disasm

import (
	"sort"

	"github.com/Urethramancer/x86dis/entity"
)

// Info bundles an entity with its incoming cross-reference edges, as
// returned by InfoCoveringAddress.
type Info struct {
	Entity     *entity.Entity
	References []uint64
}

// Store is the disassembly data store: an address-indexed map of
// decoded entities, an interval index for covering-address queries, a
// function index, reference edges, and the listener set.
//
// Store is owned exclusively by the trace engine's worker goroutine;
// the only exception is the listener set, which is safe for
// concurrent registration and dispatch.
type Store struct {
	entities map[uint64]*entity.Entity
	order    []uint64 // entity addresses, kept sorted ascending

	// functions is the single map backing both the function index and
	// the function's presence in the entity map: one *Function
	// pointer lives here and is shared by every lookup path, so a
	// rename through one path is visible through the other.
	functions map[uint64]*entity.Function

	// pending holds reference edges recorded before their target
	// entity existed; merged into the target's References on insert.
	pending map[uint64][]uint64

	listeners *listenerSet
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		entities:  make(map[uint64]*entity.Entity),
		functions: make(map[uint64]*entity.Function),
		pending:   make(map[uint64][]uint64),
		listeners: newListenerSet(),
	}
}

// AddListener registers a listener. Safe to call from any goroutine.
func (s *Store) AddListener(l Listener) { s.listeners.add(l) }

// RemoveListener unregisters a listener. Safe to call from any
// goroutine.
func (s *Store) RemoveListener(l Listener) { s.listeners.remove(l) }

// NotifyRename implements entity.NameResolver: a function rename
// fans out as a change notification for the function's start address.
func (s *Store) NotifyRename(f *entity.Function) {
	s.TellListeners(f.Start)
}

// InsertEntity stores e at e.Address. If no prior entity occupied
// that exact address, it is added to the interval index, any pending
// reference edges targeting it are merged in, and listeners are
// notified. The first entity at an address wins; later inserts are
// dropped.
func (s *Store) InsertEntity(e *entity.Entity) {
	if _, exists := s.entities[e.Address]; exists {
		return
	}
	if pend, ok := s.pending[e.Address]; ok {
		e.References = append(e.References, pend...)
		delete(s.pending, e.Address)
	}
	s.entities[e.Address] = e
	s.insertOrdered(e.Address)
	s.listeners.each(func(l Listener) { l.OnDecode(e.Address, e.Size, e) })
	s.TellListeners(e.Address)
}

func (s *Store) insertOrdered(addr uint64) {
	i := sort.Search(len(s.order), func(i int) bool { return s.order[i] >= addr })
	s.order = append(s.order, 0)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = addr
}

func (s *Store) removeOrdered(addr uint64) {
	i := sort.Search(len(s.order), func(i int) bool { return s.order[i] >= addr })
	if i < len(s.order) && s.order[i] == addr {
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

// EntityOnExactAddress returns the entity stored at exactly a, if any.
func (s *Store) EntityOnExactAddress(a uint64) (*entity.Entity, bool) {
	e, ok := s.entities[a]
	return e, ok
}

// FindEntityOnAddress returns the entity covering address a (the
// entity whose [Address, End) range contains a), if any.
func (s *Store) FindEntityOnAddress(a uint64) (*entity.Entity, bool) {
	i := sort.Search(len(s.order), func(i int) bool { return s.order[i] > a })
	if i == 0 {
		return nil, false
	}
	e := s.entities[s.order[i-1]]
	if e != nil && e.Covers(a) {
		return e, true
	}
	return nil, false
}

// InfoCoveringAddress returns the entity covering a, bundled with its
// incoming reference addresses.
func (s *Store) InfoCoveringAddress(a uint64) (*Info, bool) {
	e, ok := s.FindEntityOnAddress(a)
	if !ok {
		return nil, false
	}
	return &Info{Entity: e, References: e.References}, true
}

// ClearDecodedEntity drops the entity at a and detaches any reference
// edges recorded against it.
func (s *Store) ClearDecodedEntity(a uint64) {
	if _, ok := s.entities[a]; !ok {
		return
	}
	delete(s.entities, a)
	delete(s.pending, a)
	s.removeOrdered(a)
}

// InsertReference adds an edge from srcAddr to target: the edge is
// attached to the target entity's inbound set if it already exists,
// or held pending until the target is inserted. Callers insert the
// source entity before calling this, so listeners only ever see edges
// whose referencing entity already exists.
func (s *Store) InsertReference(srcAddr, target uint64) {
	if e, ok := s.entities[target]; ok {
		e.References = append(e.References, srcAddr)
	} else {
		s.pending[target] = append(s.pending[target], srcAddr)
	}
	s.TellListeners(target)
}

// InsertFunction registers f in the function index at f.Start and
// notifies listeners of the new name there.
func (s *Store) InsertFunction(f *entity.Function) {
	s.functions[f.Start] = f
	s.TellListeners(f.Start)
}

// UpdateFunctionEnd grows f's end address if end is further out.
func (s *Store) UpdateFunctionEnd(f *entity.Function, end uint64) {
	f.GrowEnd(end)
}

// FunctionAtStart returns the function whose start equals addr, if
// any.
func (s *Store) FunctionAtStart(addr uint64) (*entity.Function, bool) {
	f, ok := s.functions[addr]
	return f, ok
}

// FunctionCovering returns the function whose [Start, End] range
// contains addr, if any.
func (s *Store) FunctionCovering(addr uint64) (*entity.Function, bool) {
	for _, f := range s.functions {
		if f.Covers(addr) {
			return f, true
		}
	}
	return nil, false
}

// Functions returns every registered function, for the post-pass.
func (s *Store) Functions() []*entity.Function {
	out := make([]*entity.Function, 0, len(s.functions))
	for _, f := range s.functions {
		out = append(out, f)
	}
	return out
}

// TellListeners dispatches a change notification for addr. Delivery
// is unordered but each listener sees each change at least once.
func (s *Store) TellListeners(addr uint64) {
	s.listeners.each(func(l Listener) { l.OnChange(addr) })
}
