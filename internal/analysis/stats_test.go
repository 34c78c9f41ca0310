package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPearson(t *testing.T) {
	r, ok := Pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, ok = Pearson([]float64{1, 2, 3}, []float64{3, 2, 1})
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)

	_, ok = Pearson([]float64{1}, []float64{1})
	assert.False(t, ok)
	_, ok = Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok, "zero variance")
	_, ok = Pearson([]float64{1, 2}, []float64{1})
	assert.False(t, ok)
}

func TestLinearFit(t *testing.T) {
	slope, intercept, ok := LinearFit([]float64{0, 1, 2}, []float64{1, 3, 5})
	require.True(t, ok)
	assert.InDelta(t, 2.0, slope, 1e-12)
	assert.InDelta(t, 1.0, intercept, 1e-12)

	_, _, ok = LinearFit([]float64{2, 2}, []float64{1, 3})
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{4, 1, 3, 2})
	assert.Equal(t, 4, d.Count)
	assert.Equal(t, 2.5, d.Mean)
	assert.InDelta(t, math.Sqrt(5.0/3.0), d.Std, 1e-12)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 1.75, d.Q1)
	assert.Equal(t, 2.5, d.Q2)
	assert.Equal(t, 3.25, d.Q3)
	assert.Equal(t, 4.0, d.Max)

	assert.Equal(t, Description{}, Describe(nil))
	assert.Zero(t, Describe([]float64{7}).Std)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30}
	assert.Equal(t, 10.0, Quantile(sorted, 0))
	assert.Equal(t, 15.0, Quantile(sorted, 0.25))
	assert.Equal(t, 30.0, Quantile(sorted, 1))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestMode(t *testing.T) {
	v, n := Mode([]string{"b", "a", "b", "a", "c"})
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, n)

	v, n = Mode(nil)
	assert.Equal(t, "", v)
	assert.Zero(t, n)
}
