package statscollector

import (
	"github.com/voluzi/ecsadmin/pkg/ringbuffer"
)

// SeriesStore keeps a fixed-size history per key. A key's buffer is created
// the first time the key is recorded and is never removed.
type SeriesStore struct {
	capacity int
	series   map[uint64]*ringbuffer.RingBuffer
}

// NewSeriesStore creates a store whose per-key buffers hold capacity samples.
func NewSeriesStore(capacity int) *SeriesStore {
	return &SeriesStore{
		capacity: capacity,
		series:   make(map[uint64]*ringbuffer.RingBuffer),
	}
}

// Record appends value to the history of key.
func (s *SeriesStore) Record(key uint64, value float64) {
	rb, ok := s.series[key]
	if !ok {
		rb = ringbuffer.New(s.capacity)
		s.series[key] = rb
	}
	rb.Push(value)
}

// Values returns the history of key, oldest first, or nil if key was never recorded.
func (s *SeriesStore) Values(key uint64) []float64 {
	rb, ok := s.series[key]
	if !ok {
		return nil
	}
	return rb.Values()
}

// Len returns the number of tracked keys.
func (s *SeriesStore) Len() int {
	return len(s.series)
}
