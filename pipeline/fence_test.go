package pipeline

import (
	"testing"
	"time"
)

func TestFenceOrdering(t *testing.T) {
	f := NewFenceTracker()
	for want := uint64(1); want <= 3; want++ {
		if got := f.NextFence(); got != want {
			t.Fatalf("NextFence = %d, want %d", got, want)
		}
	}
	f.Signal(2)
	if got := f.Completed(); got != 2 {
		t.Fatalf("Completed = %d, want 2", got)
	}
	if got := f.Pending(); got != 1 {
		t.Fatalf("Pending = %d, want 1", got)
	}

	// Stale completion reports never move the counter backward.
	f.Signal(1)
	if got := f.Completed(); got != 2 {
		t.Fatalf("Completed after stale signal = %d, want 2", got)
	}

	f.Signal(3)
	if got := f.Pending(); got != 0 {
		t.Fatalf("Pending = %d, want 0", got)
	}
}

func TestFenceWaitBlocksUntilSignaled(t *testing.T) {
	f := NewFenceTracker()
	f.NextFence()
	f.NextFence()

	done := make(chan struct{})
	go func() {
		f.Wait(2)
		close(done)
	}()

	f.Signal(1)
	select {
	case <-done:
		t.Fatal("Wait(2) returned after Signal(1)")
	case <-time.After(10 * time.Millisecond):
	}

	f.Signal(2)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait(2) did not return after Signal(2)")
	}
}

func TestFenceWaitPastValueReturnsImmediately(t *testing.T) {
	f := NewFenceTracker()
	f.NextFence()
	f.Signal(1)
	f.Wait(1)
	f.Wait(0)
}
