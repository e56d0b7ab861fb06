package disasm

import "testing"

func TestWorkQueueOrdersByAddressThenCodeBeforeData(t *testing.T) {
	q := newWorkQueue()
	q.pushData(10)
	q.pushCode(20)
	q.pushCode(10)
	q.pushData(5)

	want := []workItem{
		{addr: 5, kind: workData},
		{addr: 10, kind: workCode},
		{addr: 10, kind: workData},
		{addr: 20, kind: workCode},
	}
	for i, w := range want {
		got, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: queue emptied early", i)
		}
		if got != w {
			t.Fatalf("pop %d = %+v, want %+v", i, got, w)
		}
	}
	if !q.empty() {
		t.Fatal("expected queue to be drained")
	}
	if _, ok := q.pop(); ok {
		t.Fatal("expected pop on empty queue to report !ok")
	}
}

func TestWorkQueueDedupesSameAddressAndKind(t *testing.T) {
	q := newWorkQueue()
	q.pushCode(100)
	q.pushCode(100)
	q.pushData(100)
	q.pushData(100)

	count := 0
	for !q.empty() {
		q.pop()
		count++
	}
	if count != 2 {
		t.Fatalf("expected exactly 2 distinct items (one code, one data), got %d", count)
	}
}

func TestWorkQueueAllowsRequeueAfterPop(t *testing.T) {
	q := newWorkQueue()
	q.pushCode(1)
	q.pop()
	q.pushCode(1) // should not be treated as a dup: it already left the seen set
	if q.empty() {
		t.Fatal("expected the re-pushed item to be queued")
	}
}
