package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededIsDeterministic(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.IntN(10), b.IntN(10))
	}
}

func TestWeightedSkipsNonPositive(t *testing.T) {
	src := NewSeeded(7)
	for i := 0; i < 200; i++ {
		idx := Weighted(src, []float64{0, 3, -1, 1})
		assert.Contains(t, []int{1, 3}, idx)
	}
	assert.Equal(t, -1, Weighted(src, []float64{0, 0}))
}

func TestBetweenRange(t *testing.T) {
	src := NewSeeded(1)
	for i := 0; i < 500; i++ {
		v := Between(src, -7.5, 7.5)
		assert.GreaterOrEqual(t, v, -7.5)
		assert.Less(t, v, 7.5)
	}
}

func TestNewSeed(t *testing.T) {
	_, err := NewSeed()
	assert.NoError(t, err)
}
