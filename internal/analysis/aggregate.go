package analysis

// RatioConvention selects how a per-group ratio metric/denominator is
// computed.
type RatioConvention int

const (
	// RatioMeanOfRows averages the per-row ratios.
	RatioMeanOfRows RatioConvention = iota + 1
	// RatioOfSums divides the summed metric by the summed denominator.
	RatioOfSums
)

// Ratio requests a ratio statistic alongside sum, count and mean. Rows
// whose denominator is zero or missing are excluded from the ratio only.
type Ratio struct {
	Denominator string
	Convention  RatioConvention
	// Scale multiplies the result, e.g. 100 for a percentage. Zero means 1.
	Scale float64
}

// AggregateSpec configures Aggregate.
type AggregateSpec struct {
	Ratio *Ratio
}

// Group holds the statistics of one dimension key.
type Group struct {
	Key        string  `json:"key"`
	Sum        float64 `json:"sum"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	Ratio      float64 `json:"ratio,omitempty"`
	RatioCount int     `json:"ratio_count,omitempty"`
	// FirstSeen is the smallest source row index carrying the key.
	FirstSeen int `json:"-"`
}

// GroupSummary is an insertion-ordered set of groups.
type GroupSummary struct {
	groups []Group
	index  map[string]int
}

// Len returns the number of groups.
func (s GroupSummary) Len() int { return len(s.groups) }

// Groups returns a copy of the groups in first-seen order.
func (s GroupSummary) Groups() []Group {
	out := make([]Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// Keys returns the group keys in first-seen order.
func (s GroupSummary) Keys() []string {
	keys := make([]string, len(s.groups))
	for i, g := range s.groups {
		keys[i] = g.Key
	}
	return keys
}

// Lookup returns the group for key, or a zero group with Count 0.
func (s GroupSummary) Lookup(key string) Group {
	if i, ok := s.index[key]; ok {
		return s.groups[i]
	}
	return Group{Key: key, FirstSeen: -1}
}

type accumulator struct {
	group    Group
	ratioNum float64
	ratioDen float64
}

// Aggregate groups the view by key. Group order follows the smallest source
// row index per key, so it does not depend on the order of view.Rows.
func Aggregate(view View, spec AggregateSpec) GroupSummary {
	accs := make(map[string]*accumulator)
	var order []string

	for i, row := range view.Rows {
		key := view.Keys[i]
		acc, ok := accs[key]
		if !ok {
			acc = &accumulator{group: Group{Key: key, FirstSeen: row}}
			accs[key] = acc
			order = append(order, key)
		}
		if row < acc.group.FirstSeen {
			acc.group.FirstSeen = row
		}
		v := view.Values[i]
		acc.group.Sum += v
		acc.group.Count++

		if spec.Ratio != nil {
			den, ok := view.Table.Float(row, spec.Ratio.Denominator)
			if !ok || den == 0 {
				continue
			}
			acc.group.RatioCount++
			switch spec.Ratio.Convention {
			case RatioOfSums:
				acc.ratioNum += v
				acc.ratioDen += den
			default:
				acc.ratioNum += v / den
			}
		}
	}

	summary := GroupSummary{
		groups: make([]Group, 0, len(order)),
		index:  make(map[string]int, len(order)),
	}
	for _, key := range order {
		acc := accs[key]
		g := acc.group
		if g.Count > 0 {
			g.Mean = g.Sum / float64(g.Count)
		}
		if spec.Ratio != nil && g.RatioCount > 0 {
			scale := spec.Ratio.Scale
			if scale == 0 {
				scale = 1
			}
			switch spec.Ratio.Convention {
			case RatioOfSums:
				if acc.ratioDen != 0 {
					g.Ratio = acc.ratioNum / acc.ratioDen * scale
				}
			default:
				g.Ratio = acc.ratioNum / float64(g.RatioCount) * scale
			}
		}
		summary.groups = append(summary.groups, g)
	}
	sortByFirstSeen(summary.groups)
	for i, g := range summary.groups {
		summary.index[g.Key] = i
	}
	return summary
}
