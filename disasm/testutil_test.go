package disasm_test

import (
	"testing"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/Urethramancer/x86dis/entity"
)

// waitUntil blocks until cond reports true, waking on every value
// drained from changed, and fails the test if timeout elapses first.
func waitUntil(t *testing.T, changed <-chan uint64, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatal("timed out waiting for condition")
		}
	}
}

// nopLogger discards every log call; tests only care about listener
// notifications, not log output.
type nopLogger struct{}

func (nopLogger) Debug(string, ...log.Field) {}
func (nopLogger) Info(string, ...log.Field)  {}
func (nopLogger) Warn(string, ...log.Field)  {}
func (nopLogger) Error(string, ...log.Field) {}

// recorder is a Listener that records every callback and exposes a
// buffered channel of OnChange addresses, so tests can block on the
// engine's own notifications instead of sleeping. stopped closes when
// analysis ends, naturally or via Stop.
type recorder struct {
	changed chan uint64
	errors  chan uint64
	stopped chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		changed: make(chan uint64, 4096),
		errors:  make(chan uint64, 4096),
		stopped: make(chan struct{}),
	}
}

func (r *recorder) OnAnalyzeStart() {}
func (r *recorder) OnAnalyzeStop()  { close(r.stopped) }

// waitStopped blocks until analysis has ended, so assertions read the
// store only after the worker goroutine is done mutating it.
func (r *recorder) waitStopped(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.stopped:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for analysis to stop")
	}
}
func (r *recorder) OnAnalyzeError(addr uint64)                         { r.errors <- addr }
func (r *recorder) OnDecode(addr uint64, length int, e *entity.Entity) {}
func (r *recorder) OnChange(addr uint64) {
	select {
	case r.changed <- addr:
	default:
	}
}
