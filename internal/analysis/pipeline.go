package analysis

import (
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// Pipeline chains Filter, Aggregate and Order.
type Pipeline struct {
	Filter    FilterSpec
	Aggregate AggregateSpec
	Order     OrderSpec
}

// Result is the ordered output of a pipeline run.
type Result struct {
	Groups []Group `json:"groups"`
	// Total is the number of rows that survived filtering.
	Total int `json:"total"`
}

// Run executes the pipeline against t.
func (p Pipeline) Run(t *dataset.Table) Result {
	view := Filter(t, p.Filter)
	summary := Aggregate(view, p.Aggregate)
	return Result{
		Groups: Order(summary, p.Order),
		Total:  view.Len(),
	}
}

// Summarize runs only the filter and aggregate stages.
func (p Pipeline) Summarize(t *dataset.Table) GroupSummary {
	return Aggregate(Filter(t, p.Filter), p.Aggregate)
}
