// Package buffer holds the per-camera pre-detection frame window.
package buffer

import "vigil-worker-go/internal/models"

// Rolling is a fixed-capacity FIFO of frames backed by a ring. Pushing into a
// full buffer evicts the oldest frame. It is owned by a single camera worker
// and is not safe for concurrent use.
type Rolling struct {
	frames   []*models.Frame
	capacity int
	head     int // next write position
	count    int
}

// NewRolling creates a buffer that retains at most capacity frames. A
// capacity of zero keeps nothing.
func NewRolling(capacity int) *Rolling {
	if capacity < 0 {
		capacity = 0
	}
	return &Rolling{
		frames:   make([]*models.Frame, capacity),
		capacity: capacity,
	}
}

// Push appends a frame and reports whether the oldest frame was evicted.
func (b *Rolling) Push(frame *models.Frame) (evicted bool) {
	if b.capacity == 0 {
		return false
	}

	if b.count == b.capacity {
		evicted = true
	} else {
		b.count++
	}

	b.frames[b.head] = frame
	b.head = (b.head + 1) % b.capacity
	return evicted
}

// PushAll pushes every frame of seq in order.
func (b *Rolling) PushAll(seq models.FrameSequence) {
	for _, f := range seq {
		b.Push(f)
	}
}

// Snapshot returns the buffered frames oldest first in a fresh slice.
func (b *Rolling) Snapshot() []*models.Frame {
	out := make([]*models.Frame, 0, b.count)
	if b.count == 0 {
		return out
	}

	tail := (b.head - b.count + b.capacity) % b.capacity
	for i := 0; i < b.count; i++ {
		out = append(out, b.frames[(tail+i)%b.capacity])
	}
	return out
}

func (b *Rolling) Len() int { return b.count }
func (b *Rolling) Cap() int { return b.capacity }

// Clear drops every buffered frame.
func (b *Rolling) Clear() {
	for i := range b.frames {
		b.frames[i] = nil
	}
	b.head = 0
	b.count = 0
}
