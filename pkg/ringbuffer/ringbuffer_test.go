package ringbuffer

import (
	"testing"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_Overwrite(t *testing.T) {
	tests := []struct {
		capacity int
		pushes   int
	}{
		{capacity: 1, pushes: 5},
		{capacity: 3, pushes: 3},
		{capacity: 3, pushes: 7},
		{capacity: 60, pushes: 61},
		{capacity: 60, pushes: 185},
	}

	for _, test := range tests {
		rb := New(test.capacity)
		for i := 0; i < test.pushes; i++ {
			rb.Push(float64(i))
		}

		expected := make([]float64, 0, test.capacity)
		for i := test.pushes - test.capacity; i < test.pushes; i++ {
			expected = append(expected, float64(i))
		}

		assert.Equal(t, test.capacity, rb.Count())
		for i := 0; i < rb.Count(); i++ {
			v, err := rb.Get(i)
			require.NoError(t, err)
			assert.Equal(t, expected[i], v)
		}
		assert.Equal(t, expected, rb.Values())
	}
}

func TestRingBuffer_PartiallyFilled(t *testing.T) {
	rb := New(5)
	rb.Push(1)
	rb.Push(2)

	assert.Equal(t, 2, rb.Count())
	assert.Equal(t, 5, rb.Capacity())
	assert.Equal(t, 2, rb.Position())
	assert.Equal(t, []float64{1, 2}, rb.Values())

	last, err := rb.Last()
	require.NoError(t, err)
	assert.Equal(t, float64(2), last)
}

func TestRingBuffer_Position(t *testing.T) {
	rb := New(3)
	positions := make([]int, 0, 7)
	for i := 0; i < 7; i++ {
		positions = append(positions, rb.Position())
		rb.Push(float64(i))
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, positions)
}

func TestRingBuffer_Empty(t *testing.T) {
	rb := New(4)

	assert.Equal(t, 0, rb.Count())
	assert.Empty(t, rb.Values())

	_, err := rb.Last()
	assert.True(t, errors.Is(err, ErrEmpty))

	err = rb.SetLast(1)
	assert.True(t, errors.Is(err, ErrEmpty))

	_, err = rb.Get(0)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestRingBuffer_GetOutOfRange(t *testing.T) {
	rb := New(2)
	rb.Push(1)
	rb.Push(2)
	rb.Push(3)

	for _, i := range []int{-1, 2, 10} {
		_, err := rb.Get(i)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "index %d", i)
	}
}

func TestRingBuffer_SetLast(t *testing.T) {
	rb := New(2)
	rb.Push(1)
	rb.Push(2)
	rb.Push(3)

	require.NoError(t, rb.SetLast(42))
	assert.Equal(t, []float64{2, 42}, rb.Values())
}

func TestNew_InvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(-1) })
}
