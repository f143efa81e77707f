package actigraphy

// RingBuffer is a fixed-capacity circular buffer over a value type T.
// Index 0 addresses the front slot (the one created by the most recent
// Advance call); index capacity-1 addresses the oldest retained slot.
// Indices wrap modulo capacity, so out-of-range reads and writes alias
// retained slots rather than panicking. The buffer allocates once at
// construction and never again.
type RingBuffer[T any] struct {
	slots []T
	head  int // index of the front slot in slots
}

// NewRingBuffer creates a ring buffer with the given capacity. All slots
// start as the zero value of T. Capacities below 1 are clamped to 1.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{
		slots: make([]T, capacity),
	}
}

// Advance logically pushes a new front slot, discarding the oldest element.
// The new front retains whatever value the evicted slot held; callers are
// expected to overwrite it with Write(0, v).
func (b *RingBuffer[T]) Advance() {
	b.head--
	if b.head < 0 {
		b.head += len(b.slots)
	}
}

// Read returns the value i slots behind the front. Read(0) is the most
// recently advanced slot.
func (b *RingBuffer[T]) Read(i int) T {
	return b.slots[b.index(i)]
}

// Write stores v into the slot i positions behind the front.
func (b *RingBuffer[T]) Write(i int, v T) {
	b.slots[b.index(i)] = v
}

// Cap returns the fixed capacity of the buffer.
func (b *RingBuffer[T]) Cap() int {
	return len(b.slots)
}

func (b *RingBuffer[T]) index(i int) int {
	i %= len(b.slots)
	if i < 0 {
		i += len(b.slots)
	}
	return (b.head + i) % len(b.slots)
}
