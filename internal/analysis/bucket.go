package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// Bands partitions (Edges[0], Edges[len-1]] into left-exclusive,
// right-inclusive intervals. Labels[i] names (Edges[i], Edges[i+1]] and
// the label order is the display order.
type Bands struct {
	Edges  []float64
	Labels []string
}

// NewBands validates that edges strictly increase and that there is one
// label per interval.
func NewBands(edges []float64, labels []string) (Bands, error) {
	if len(edges) < 2 {
		return Bands{}, errors.New("bands need at least two edges")
	}
	if len(labels) != len(edges)-1 {
		return Bands{}, fmt.Errorf("bands need %d labels, got %d", len(edges)-1, len(labels))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return Bands{}, fmt.Errorf("band edges must strictly increase at index %d", i)
		}
	}
	return Bands{Edges: slices.Clone(edges), Labels: slices.Clone(labels)}, nil
}

// MustBands is NewBands for static definitions.
func MustBands(edges []float64, labels []string) Bands {
	b, err := NewBands(edges, labels)
	if err != nil {
		panic(err)
	}
	return b
}

// Index returns the interval holding v.
func (b Bands) Index(v float64) (int, bool) {
	n := len(b.Edges)
	if n < 2 || math.IsNaN(v) || v <= b.Edges[0] || v > b.Edges[n-1] {
		return 0, false
	}
	// First edge >= v closes the interval that contains v.
	i := sort.SearchFloat64s(b.Edges, v)
	return i - 1, true
}

// Assign returns the label of the interval holding v.
func (b Bands) Assign(v float64) (string, bool) {
	i, ok := b.Index(v)
	if !ok {
		return "", false
	}
	return b.Labels[i], true
}

// Order returns the labels in declared order.
func (b Bands) Order() []string { return slices.Clone(b.Labels) }

// Range renders the interval of band i as "(lo, hi]".
func (b Bands) Range(i int) string {
	return fmt.Sprintf("(%s, %s]", formatEdge(b.Edges[i]), formatEdge(b.Edges[i+1]))
}

func formatEdge(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// DiscountBuckets are the fixed discount-percentage bands.
var DiscountBuckets = MustBands(
	[]float64{-1, 5, 10, 15, 20, 25, 30, 50, 100},
	[]string{"0–5%", "5–10%", "10–15%", "15–20%", "20–25%", "25–30%", "30–50%", "50–100%"},
)

// Deciles builds n equal-frequency bands from sample quantiles with linear
// interpolation. The lowest edge sits just below the minimum so it falls in
// the first band; duplicate edges collapse, so fewer than n bands may
// result.
func Deciles(values []float64, n int) (Bands, error) {
	if n < 1 {
		return Bands{}, errors.New("decile count must be positive")
	}
	if len(values) == 0 {
		return Bands{}, errors.New("no values to bin")
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	edges := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		q := Quantile(sorted, float64(i)/float64(n))
		if len(edges) > 0 && !(q > edges[len(edges)-1]) {
			continue
		}
		edges = append(edges, q)
	}
	lowest := sorted[0] - math.Max(math.Abs(sorted[0])*1e-3, 1e-9)
	edges[0] = lowest
	if len(edges) == 1 {
		edges = append(edges, sorted[len(sorted)-1])
	}

	labels := make([]string, len(edges)-1)
	for i := range labels {
		labels[i] = fmt.Sprintf("Band %d", i+1)
	}
	return NewBands(edges, labels)
}

// Bucketize labels every row of col. Rows with a missing value or a value
// outside the bands get "".
func Bucketize(t *dataset.Table, col string, b Bands) []string {
	out := make([]string, t.Len())
	for row := range out {
		if v, ok := t.Float(row, col); ok {
			out[row], _ = b.Assign(v)
		}
	}
	return out
}

// BandKey adapts Bands into a KeyFunc over col.
func BandKey(col string, b Bands) KeyFunc {
	return func(t *dataset.Table, row int) (string, bool) {
		v, ok := t.Float(row, col)
		if !ok {
			return "", false
		}
		return b.Assign(v)
	}
}
