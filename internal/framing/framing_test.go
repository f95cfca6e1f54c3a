package framing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame_InvalidLength(t *testing.T) {
	_, err := NewFrame(0)
	require.Error(t, err)

	_, err = NewAccumulator(-1)
	require.Error(t, err)
}

func TestFrame_PushSlides(t *testing.T) {
	f, err := NewFrame(4)
	require.NoError(t, err)

	f.Push([]float64{1, 2})
	assert.Equal(t, []float64{0, 0, 1, 2}, f.Samples())

	f.Push([]float64{3, 4})
	assert.Equal(t, []float64{1, 2, 3, 4}, f.Samples())

	f.Push([]float64{5})
	assert.Equal(t, []float64{2, 3, 4, 5}, f.Samples())
}

func TestFrame_PushLongerThanFrame(t *testing.T) {
	f, err := NewFrame(3)
	require.NoError(t, err)

	f.Push([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, []float64{3, 4, 5}, f.Samples())
}

func TestFrame_Clear(t *testing.T) {
	f, err := NewFrame(2)
	require.NoError(t, err)

	f.Push([]float64{7, 8})
	f.Clear()
	assert.Equal(t, []float64{0, 0}, f.Samples())
	assert.Equal(t, 2, f.Len())
}

func TestAccumulator_AddPop(t *testing.T) {
	a, err := NewAccumulator(4)
	require.NoError(t, err)

	require.NoError(t, a.Add([]float64{1, 1, 1, 1}))
	require.NoError(t, a.Add([]float64{1, 2, 3, 4}))

	out := make([]float64, 2)
	a.Pop(out)
	assert.Equal(t, []float64{2, 3}, out)

	// Remaining samples moved to the head, tail zeroed
	a.Pop(out)
	assert.Equal(t, []float64{4, 5}, out)

	a.Pop(out)
	assert.Equal(t, []float64{0, 0}, out)
}

func TestAccumulator_AddLengthMismatch(t *testing.T) {
	a, err := NewAccumulator(4)
	require.NoError(t, err)

	err = a.Add([]float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestAccumulator_Clear(t *testing.T) {
	a, err := NewAccumulator(3)
	require.NoError(t, err)

	require.NoError(t, a.Add([]float64{1, 2, 3}))
	a.Clear()

	out := make([]float64, 3)
	a.Pop(out)
	assert.Equal(t, []float64{0, 0, 0}, out)
	assert.Equal(t, 3, a.Len())
}
