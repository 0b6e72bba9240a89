package edge

import (
	"sync"

	"consentd/internal/eventbus"
)

// RingBuffer is a bounded, thread-safe queue of update requests waiting to
// be published. When full, the oldest request is dropped to make room.
type RingBuffer struct {
	mu       sync.Mutex
	events   []eventbus.Event
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &RingBuffer{
		events:   make([]eventbus.Event, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an event and reports whether the oldest one was dropped.
func (b *RingBuffer) Enqueue(event eventbus.Event) (droppedOldest bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.events[b.tail] = eventbus.Event{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		droppedOldest = true
	}

	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	b.count++
	return droppedOldest
}

// DequeueBatch removes up to n events in FIFO order.
func (b *RingBuffer) DequeueBatch(n int) []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]eventbus.Event, n)
	for i := 0; i < n; i++ {
		result[i] = b.events[b.tail]
		b.events[b.tail] = eventbus.Event{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// Len returns the current number of events in the buffer.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of dropped events.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
