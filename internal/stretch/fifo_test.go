package stretch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOWriteRead(t *testing.T) {
	f := newFIFO(2, 8)
	src := []int16{1, 2, 3, 4, 5, 6}

	f.Write(src, 3)
	assert.Equal(t, 3, f.Frames())

	dst := make([]int16, 6)
	n := f.Read(dst, 3)
	assert.Equal(t, 3, n)
	assert.Equal(t, src, dst)
	assert.Equal(t, 0, f.Frames())
}

func TestFIFOShortRead(t *testing.T) {
	f := newFIFO(1, 8)
	f.Write([]int16{1, 2}, 2)

	dst := make([]int16, 5)
	n := f.Read(dst, 5)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int16{1, 2}, dst[:n])
}

func TestFIFOWraparound(t *testing.T) {
	f := newFIFO(1, 8)
	dst := make([]int16, 8)

	// Push the positions around the ring several times.
	next := int16(0)
	for round := 0; round < 10; round++ {
		src := []int16{next, next + 1, next + 2}
		f.Write(src, 3)
		n := f.Read(dst, 3)
		require.Equal(t, 3, n)
		assert.Equal(t, src, dst[:3], "round %d", round)
		next += 3
	}
}

func TestFIFOGrow(t *testing.T) {
	f := newFIFO(1, 4)
	src := make([]int16, 100)
	for i := range src {
		src[i] = int16(i)
	}

	f.Write(src[:3], 3)
	f.Write(src[3:], 97)
	assert.Equal(t, 100, f.Frames())

	dst := make([]int16, 100)
	n := f.Read(dst, 100)
	require.Equal(t, 100, n)
	assert.Equal(t, src, dst)
}

func TestFIFOClear(t *testing.T) {
	f := newFIFO(2, 8)
	f.Write([]int16{1, 2, 3, 4}, 2)
	f.Clear()
	assert.Equal(t, 0, f.Frames())
}
