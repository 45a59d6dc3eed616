package ringbuffer

import (
	"emperror.dev/errors"
)

const (
	// ErrEmpty is returned when reading the newest element of a buffer that has never been written.
	ErrEmpty = errors.Sentinel("ring buffer is empty")

	// ErrIndexOutOfRange is returned by Get when the logical index is outside [0, Count()).
	ErrIndexOutOfRange = errors.Sentinel("ring buffer index out of range")
)

// RingBuffer is a fixed-capacity circular buffer of float64 samples that
// overwrites its oldest element once full. It is not safe for concurrent use.
type RingBuffer struct {
	data []float64

	// written is the total number of pushes ever made (never wrapped).
	written uint64
}

// New creates a RingBuffer holding at most capacity samples. It panics if capacity is not positive.
func New(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	return &RingBuffer{
		data: make([]float64, capacity),
	}
}

// Capacity returns the fixed number of slots.
func (rb *RingBuffer) Capacity() int {
	return len(rb.data)
}

// Count returns the number of samples currently held, min(pushes, capacity).
func (rb *RingBuffer) Count() int {
	if rb.written < uint64(len(rb.data)) {
		return int(rb.written)
	}
	return len(rb.data)
}

// Position returns the slot the next push will write to. It is zero at the
// start of every cycle through the buffer.
func (rb *RingBuffer) Position() int {
	return int(rb.written % uint64(len(rb.data)))
}

// Push appends value, overwriting the oldest sample when the buffer is full.
func (rb *RingBuffer) Push(value float64) {
	rb.data[rb.Position()] = value
	rb.written++
}

// Last returns the most recently pushed sample.
func (rb *RingBuffer) Last() (float64, error) {
	slot, err := rb.lastSlot()
	if err != nil {
		return 0, err
	}
	return rb.data[slot], nil
}

// SetLast overwrites the most recently pushed sample in place.
func (rb *RingBuffer) SetLast(value float64) error {
	slot, err := rb.lastSlot()
	if err != nil {
		return err
	}
	rb.data[slot] = value
	return nil
}

// Get returns the i-th logical sample, where 0 is the oldest sample still held.
func (rb *RingBuffer) Get(i int) (float64, error) {
	count := rb.Count()
	if i < 0 || i >= count {
		return 0, errors.WithDetails(ErrIndexOutOfRange, "index", i, "count", count)
	}
	return rb.data[rb.slot(i)], nil
}

// Values returns a copy of all held samples, oldest first.
func (rb *RingBuffer) Values() []float64 {
	count := rb.Count()
	values := make([]float64, count)
	for i := 0; i < count; i++ {
		values[i] = rb.data[rb.slot(i)]
	}
	return values
}

func (rb *RingBuffer) slot(i int) int {
	start := rb.written - uint64(rb.Count())
	return int((start + uint64(i)) % uint64(len(rb.data)))
}

func (rb *RingBuffer) lastSlot() (int, error) {
	if rb.written == 0 {
		return 0, ErrEmpty
	}
	return int((rb.written - 1) % uint64(len(rb.data))), nil
}
