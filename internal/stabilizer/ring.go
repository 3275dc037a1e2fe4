// Package stabilizer smooths anchor positions over a fixed window of frames
// and rejects occasional misdetections.
package stabilizer

// Ring is a fixed-capacity FIFO buffer. Pushing onto a full ring evicts the
// oldest element.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing creates a Ring holding at most capacity elements. A capacity below
// one is raised to one.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the ring is full.
// It reports whether an element was evicted.
func (r *Ring[T]) Push(v T) bool {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return false
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Full reports whether the ring holds Cap elements.
func (r *Ring[T]) Full() bool {
	return r.size == len(r.buf)
}

// Values returns the buffered elements from oldest to newest.
func (r *Ring[T]) Values() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start = 0
	r.size = 0
}
