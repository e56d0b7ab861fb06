package disasm

import (
	"sync/atomic"

	"github.com/Urethramancer/x86dis/entity"
)

// Listener is the observer interface exposed by the core: a GUI,
// scripting host, or test harness registers one to see lifecycle
// events, the primary decode stream, and per-address change
// notifications from the data store. Callbacks run on the worker
// goroutine and must not block it; the exception is the change
// notifications Engine.Start issues while registering imports and the
// entry point, which run on Start's caller before the worker starts.
type Listener interface {
	OnAnalyzeStart()
	OnAnalyzeStop()
	OnAnalyzeError(addr uint64)
	OnDecode(addr uint64, length int, e *entity.Entity)
	OnChange(addr uint64)
}

// listenerSet holds a snapshot of registered listeners behind an
// atomic pointer: readers (dispatch) load the current slice
// lock-free, writers (AddListener/RemoveListener, called
// from any goroutine) install a new copy.
type listenerSet struct {
	snapshot atomic.Pointer[[]Listener]
}

func newListenerSet() *listenerSet {
	ls := &listenerSet{}
	empty := []Listener{}
	ls.snapshot.Store(&empty)
	return ls
}

func (ls *listenerSet) add(l Listener) {
	for {
		old := ls.snapshot.Load()
		next := make([]Listener, len(*old)+1)
		copy(next, *old)
		next[len(*old)] = l
		if ls.snapshot.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (ls *listenerSet) remove(l Listener) {
	for {
		old := ls.snapshot.Load()
		next := make([]Listener, 0, len(*old))
		for _, existing := range *old {
			if existing != l {
				next = append(next, existing)
			}
		}
		if ls.snapshot.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (ls *listenerSet) each(fn func(Listener)) {
	for _, l := range *ls.snapshot.Load() {
		fn(l)
	}
}
