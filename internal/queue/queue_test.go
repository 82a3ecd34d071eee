package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int](4)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if v != i {
			t.Errorf("popped %d, want %d", v, i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned true")
	}
}

func TestQueue_GrowKeepsOrderAcrossWrap(t *testing.T) {
	q := New[int](8)

	// Move head off zero so the ring wraps before growing.
	for i := 0; i < 6; i++ {
		q.Push(i)
	}
	for i := 0; i < 6; i++ {
		q.TryPop()
	}

	for i := 0; i < 20; i++ {
		q.Push(100 + i)
	}

	stats := q.Stats()
	if stats.Grows == 0 {
		t.Errorf("Grows = 0, expected the ring to grow")
	}
	if stats.Capacity < 20 {
		t.Errorf("Capacity = %d, want >= 20", stats.Capacity)
	}

	for i := 0; i < 20; i++ {
		v, ok := q.TryPop()
		if !ok || v != 100+i {
			t.Fatalf("item %d = (%d, %v), want (%d, true)", i, v, ok, 100+i)
		}
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := New[string](0)

	got := make(chan string, 1)
	go func() {
		v, _ := q.Pop()
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("Pop returned %q before any Push", v)
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("hello")

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("Pop() = %q, want %q", v, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	q := New[int](0)
	q.Push(1)
	q.Push(2)
	q.Close()

	if q.Push(3) {
		t.Error("Push after Close returned true")
	}

	for _, want := range []int{1, 2} {
		v, ok := q.Pop()
		if !ok || v != want {
			t.Fatalf("Pop() = (%d, %v), want (%d, true)", v, ok, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop on closed empty queue returned true")
	}
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := New[int](0)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters not released by Close")
	}
}

func TestQueue_PopBatch(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 7; i++ {
		q.Push(i)
	}

	batch := q.PopBatch(5)
	if len(batch) != 5 {
		t.Fatalf("len(batch) = %d, want 5", len(batch))
	}
	for i, v := range batch {
		if v != i {
			t.Errorf("batch[%d] = %d, want %d", i, v, i)
		}
	}

	rest := q.PopBatch(0)
	if len(rest) != 2 || rest[0] != 5 || rest[1] != 6 {
		t.Errorf("rest = %v, want [5 6]", rest)
	}

	q.Close()
	if b := q.PopBatch(10); b != nil {
		t.Errorf("PopBatch on closed empty queue = %v, want nil", b)
	}
}
