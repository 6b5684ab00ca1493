package reindex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func magnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

func TestNormalizeVector_UnitLength(t *testing.T) {
	v := []float32{3, 4}
	normalized := NormalizeVector(v)

	assert.InDelta(t, 1.0, magnitude(normalized), 1e-6)
	assert.InDelta(t, 0.6, float64(normalized[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(normalized[1]), 1e-6)
}

func TestNormalizeVector_AlreadyNormalized(t *testing.T) {
	v := []float32{1, 0, 0}
	normalized := NormalizeVector(v)
	assert.InDelta(t, 1.0, magnitude(normalized), 1e-6)
}

func TestNormalizeVector_ZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	normalized := NormalizeVector(v)

	assert.Len(t, normalized, 3)
	for _, val := range normalized {
		assert.Zero(t, val)
	}
}

func TestNormalizeVector_Empty(t *testing.T) {
	assert.Empty(t, NormalizeVector(nil))
}

func TestNormalizeVector_DoesNotMutateInput(t *testing.T) {
	v := []float32{2, 0}
	_ = NormalizeVector(v)
	assert.Equal(t, float32(2), v[0])
}
