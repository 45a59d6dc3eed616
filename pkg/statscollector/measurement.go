package statscollector

import (
	"math"

	"github.com/voluzi/ecsadmin/pkg/ringbuffer"
)

// Measurement tracks one metric at two resolutions: a raw short-term trace
// with one sample per tick, and mean/min/max aggregates with one entry per
// completed cycle of the short-term buffer.
type Measurement struct {
	current float64

	short *ringbuffer.RingBuffer
	mean  *ringbuffer.RingBuffer
	min   *ringbuffer.RingBuffer
	max   *ringbuffer.RingBuffer
}

// NewMeasurement creates a Measurement whose long-term buckets each summarize
// shortCapacity samples, retaining longCapacity buckets.
func NewMeasurement(shortCapacity, longCapacity int) *Measurement {
	return &Measurement{
		short: ringbuffer.New(shortCapacity),
		mean:  ringbuffer.New(longCapacity),
		min:   ringbuffer.New(longCapacity),
		max:   ringbuffer.New(longCapacity),
	}
}

// Record adds one sample.
func (m *Measurement) Record(value float64) {
	// Number of samples already folded into the current bucket. This relies on
	// the short buffer cycling exactly once per bucket, so a dropped or doubled
	// tick biases the mean of the bucket it lands in.
	pos := m.short.Position()

	if pos == 0 {
		m.mean.Push(0)
		m.min.Push(value)
		m.max.Push(value)
	}

	m.short.Push(value)
	m.current = value

	// The long buffers cannot be empty here: the first sample always starts a bucket.
	mean, _ := m.mean.Last()
	lo, _ := m.min.Last()
	hi, _ := m.max.Last()

	n := float64(pos)
	_ = m.mean.SetLast((mean*n + value) / (n + 1))
	_ = m.min.SetLast(math.Min(lo, value))
	_ = m.max.SetLast(math.Max(hi, value))
}

// Current returns the last recorded sample.
func (m *Measurement) Current() float64 {
	return m.current
}

// Short returns the short-term samples, oldest first.
func (m *Measurement) Short() []float64 {
	return m.short.Values()
}

// Mean returns the per-bucket running means, oldest first.
func (m *Measurement) Mean() []float64 {
	return m.mean.Values()
}

// Min returns the per-bucket minimums, oldest first.
func (m *Measurement) Min() []float64 {
	return m.min.Values()
}

// Max returns the per-bucket maximums, oldest first.
func (m *Measurement) Max() []float64 {
	return m.max.Values()
}
