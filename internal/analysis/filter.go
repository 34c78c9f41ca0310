package analysis

import (
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// Sign selects the numeric condition a Constraint enforces.
type Sign int

const (
	Positive    Sign = iota + 1 // v > 0
	NonNegative                 // v >= 0
	Negative                    // v < 0
	Within                      // Min <= v <= Max
)

// Constraint restricts a numeric column. A missing value never satisfies a
// constraint.
type Constraint struct {
	Column string
	Sign   Sign
	Min    float64
	Max    float64
}

// Holds reports whether v satisfies the constraint.
func (c Constraint) Holds(v float64) bool {
	switch c.Sign {
	case Positive:
		return v > 0
	case NonNegative:
		return v >= 0
	case Negative:
		return v < 0
	case Within:
		return v >= c.Min && v <= c.Max
	}
	return true
}

// Gt0 is shorthand for a Positive constraint on col.
func Gt0(col string) Constraint { return Constraint{Column: col, Sign: Positive} }

// Gte0 is shorthand for a NonNegative constraint on col.
func Gte0(col string) Constraint { return Constraint{Column: col, Sign: NonNegative} }

// KeyFunc derives a grouping key from a row, for dimensions that are not a
// plain column (day of month, weekday, band label).
type KeyFunc func(t *dataset.Table, row int) (string, bool)

// FilterSpec describes which rows take part in an analysis and how their
// dimension key is formed.
type FilterSpec struct {
	// Dimension is the grouping column. When Key is set it still names the
	// source column whose presence is required.
	Dimension string
	Key       KeyFunc
	Metric    string
	// OptionalMetric keeps rows whose metric cell is missing; their value
	// is zero. The metric column itself must still exist.
	OptionalMetric bool

	// Placeholders defaults to DefaultPlaceholders when nil.
	Placeholders PlaceholderSet
	Normalize    Normalization

	Constraints []Constraint
	// AnyPositive keeps a row only if at least one listed column is > 0.
	AnyPositive []string
	Require     []string
	// Include restricts columns to the listed values, compared after
	// upper-case normalisation. Empty lists are ignored.
	Include map[string][]string
}

// View is the filtered, normalised row set an aggregation runs over.
type View struct {
	Table  *dataset.Table
	Metric string
	Rows   []int
	Keys   []string
	Values []float64
}

// Len returns the number of surviving rows.
func (v View) Len() int { return len(v.Rows) }

// Filter applies spec to t. It never fails: an absent or fully missing
// dimension yields an empty view.
func Filter(t *dataset.Table, spec FilterSpec) View {
	view := View{Table: t, Metric: spec.Metric}
	if t == nil || !t.Has(spec.Dimension) || !t.Has(spec.Metric) {
		return view
	}

	placeholders := spec.Placeholders
	if placeholders == nil {
		placeholders = DefaultPlaceholderSet()
	}
	include := normalizeInclude(t, spec.Include)
	numericDimension := spec.Dimension == spec.Metric && spec.Key == nil

	for row := 0; row < t.Len(); row++ {
		metric, ok := t.Float(row, spec.Metric)
		if !ok {
			if !spec.OptionalMetric {
				continue
			}
			metric = 0
		}

		var key string
		switch {
		case spec.Key != nil:
			if key, ok = spec.Key(t, row); !ok {
				continue
			}
		case numericDimension:
			key, _ = t.Raw(row, spec.Dimension)
		default:
			raw, _ := t.Raw(row, spec.Dimension)
			if placeholders.Contains(raw) {
				continue
			}
			key = spec.Normalize.Apply(raw)
			if placeholders.Contains(key) {
				continue
			}
		}

		if !rowPasses(t, row, spec, include) {
			continue
		}

		view.Rows = append(view.Rows, row)
		view.Keys = append(view.Keys, key)
		view.Values = append(view.Values, metric)
	}
	return view
}

func rowPasses(t *dataset.Table, row int, spec FilterSpec, include map[string]map[string]struct{}) bool {
	for _, c := range spec.Constraints {
		v, ok := t.Float(row, c.Column)
		if !ok || !c.Holds(v) {
			return false
		}
	}

	if len(spec.AnyPositive) > 0 {
		found := false
		for _, col := range spec.AnyPositive {
			if v, ok := t.Float(row, col); ok && v > 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, col := range spec.Require {
		if _, ok := t.Text(row, col); !ok {
			return false
		}
	}

	for col, allowed := range include {
		raw, _ := t.Raw(row, col)
		if _, ok := allowed[NormalizeUpper.Apply(raw)]; !ok {
			return false
		}
	}
	return true
}

// normalizeInclude drops empty lists and columns the table lacks. Filtering
// on an absent column would otherwise remove every row.
func normalizeInclude(t *dataset.Table, include map[string][]string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(include))
	for col, values := range include {
		if len(values) == 0 || !t.Has(col) {
			continue
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[NormalizeUpper.Apply(v)] = struct{}{}
		}
		out[col] = set
	}
	return out
}
