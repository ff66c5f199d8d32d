package pipeline

import "sync"

// FenceTracker orders submissions against their completion. The device
// stamps each submission with a fresh fence value; the execution backend
// reports completion through Signal. Wait is the only blocking operation
// in the package.
type FenceTracker struct {
	mu        sync.Mutex
	cond      *sync.Cond
	submitted uint64
	completed uint64
}

// NewFenceTracker creates a tracker with no submissions outstanding.
func NewFenceTracker() *FenceTracker {
	t := &FenceTracker{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// NextFence reserves and returns the fence value for a new submission.
func (t *FenceTracker) NextFence() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitted++
	return t.submitted
}

// Signal marks every fence up to value as complete and wakes waiters.
// Values at or below the current completion point are ignored, so
// out-of-order completion reports are harmless.
func (t *FenceTracker) Signal(value uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if value > t.completed {
		t.completed = value
		t.cond.Broadcast()
	}
}

// Wait blocks until the given fence value has been signaled.
func (t *FenceTracker) Wait(value uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.completed < value {
		t.cond.Wait()
	}
}

// Completed returns the highest signaled fence value.
func (t *FenceTracker) Completed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Pending returns the number of submissions not yet signaled.
func (t *FenceTracker) Pending() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitted - t.completed
}
