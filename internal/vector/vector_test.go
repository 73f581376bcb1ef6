package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerms(t *testing.T) {
	got := Terms("금연구역 지정 절차가 어떻게 되나요? a B2 (시행령)")
	assert.Equal(t, []string{"금연구역", "지정", "절차가", "어떻게", "되나요", "b2", "시행령"}, got)
}

func TestVectorize(t *testing.T) {
	v := Vectorize("금연 금연 구역")
	require.Len(t, v, Dim)

	var total float32
	for _, x := range v {
		total += x
	}
	assert.Equal(t, float32(3), total)
	assert.Equal(t, float32(2), v[bucket("금연")])
}

func TestVectorizeEmpty(t *testing.T) {
	v := Vectorize("  a . ")
	require.Len(t, v, Dim)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestCosine(t *testing.T) {
	a := Vectorize("금연구역 지정 절차")
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
	assert.InDelta(t, 1.0, Cosine(a, Vectorize("절차 지정 금연구역")), 1e-9)

	assert.Zero(t, Cosine(a, make([]float32, Dim)))
	assert.Zero(t, Cosine(a, []float32{1, 2}))

	partial := Cosine(a, Vectorize("금연구역 과태료 부과"))
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}
