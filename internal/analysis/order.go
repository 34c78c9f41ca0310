package analysis

import (
	"cmp"
	"slices"
	"strconv"
)

// Stat is the group statistic Order sorts by.
type Stat int

const (
	StatMean Stat = iota
	StatSum
	StatCount
	StatRatio
	// StatKey sorts by key, numerically when both keys are numbers.
	StatKey
)

// Direction of an ordering.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// OrderSpec configures Order. The zero value sorts by mean, descending.
type OrderSpec struct {
	By        Stat
	Direction Direction
	// Explicit lists keys that come first, in list order. Keys absent from
	// the data are skipped; unlisted keys follow in sorted order.
	Explicit []string
	// TopN truncates the result when positive.
	TopN int
}

// Order sorts and selects groups. Ties keep first-appearance order.
func Order(summary GroupSummary, spec OrderSpec) []Group {
	groups := summary.Groups()

	slices.SortStableFunc(groups, func(a, b Group) int {
		c := compareStat(a, b, spec.By)
		if spec.Direction == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.FirstSeen, b.FirstSeen)
	})

	if len(spec.Explicit) > 0 {
		groups = applyExplicit(groups, spec.Explicit)
	}

	if spec.TopN > 0 && len(groups) > spec.TopN {
		groups = groups[:spec.TopN]
	}
	return groups
}

func compareStat(a, b Group, by Stat) int {
	switch by {
	case StatSum:
		return cmp.Compare(a.Sum, b.Sum)
	case StatCount:
		return cmp.Compare(a.Count, b.Count)
	case StatRatio:
		return cmp.Compare(a.Ratio, b.Ratio)
	case StatKey:
		return compareKeys(a.Key, b.Key)
	default:
		return cmp.Compare(a.Mean, b.Mean)
	}
}

func compareKeys(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(af, bf)
	}
	return cmp.Compare(a, b)
}

func applyExplicit(sorted []Group, explicit []string) []Group {
	pos := make(map[string]int, len(sorted))
	for i, g := range sorted {
		pos[g.Key] = i
	}

	out := make([]Group, 0, len(sorted))
	used := make(map[string]bool, len(explicit))
	for _, key := range explicit {
		i, ok := pos[key]
		if !ok || used[key] {
			continue
		}
		used[key] = true
		out = append(out, sorted[i])
	}
	for _, g := range sorted {
		if !used[g.Key] {
			out = append(out, g)
		}
	}
	return out
}

func sortByFirstSeen(groups []Group) {
	slices.SortFunc(groups, func(a, b Group) int {
		return cmp.Compare(a.FirstSeen, b.FirstSeen)
	})
}
