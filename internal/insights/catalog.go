package insights

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed fixtures.yaml
var fixtures []byte

// SummaryTable is a pre-computed reference table. Cells are display strings.
type SummaryTable struct {
	Title   string     `yaml:"title" json:"title,omitempty"`
	Columns []string   `yaml:"columns" json:"columns"`
	Rows    [][]string `yaml:"rows" json:"rows"`
}

// Entry is the static content attached to one plot.
type Entry struct {
	Insights []string      `yaml:"insights" json:"insights"`
	Summary  *SummaryTable `yaml:"summary" json:"summary,omitempty"`
}

// Catalog maps plot identifiers to their static content.
type Catalog struct {
	entries map[string]Entry
}

// Load parses the embedded fixtures.
func Load() (*Catalog, error) {
	return Parse(fixtures)
}

// Parse builds a catalog from YAML keyed by plot identifier.
func Parse(data []byte) (*Catalog, error) {
	var entries map[string]Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse insights: %w", err)
	}
	for id, e := range entries {
		if e.Summary != nil && len(e.Summary.Columns) == 0 && len(e.Summary.Rows) > 0 {
			return nil, fmt.Errorf("parse insights: %s summary has rows but no columns", id)
		}
	}
	return &Catalog{entries: entries}, nil
}

// DefaultInsight is shown for plots without curated content.
func DefaultInsight(plot string) string {
	return fmt.Sprintf("No insights available for %s.", plot)
}

// Lookup returns a copy of the entry for plot. Unknown plots get the
// default insight and no summary.
func (c *Catalog) Lookup(plot string) Entry {
	e, ok := c.entries[plot]
	if !ok || len(e.Insights) == 0 {
		out := Entry{Insights: []string{DefaultInsight(plot)}}
		if ok {
			out.Summary = e.Summary.clone()
		}
		return out
	}
	return Entry{
		Insights: append([]string(nil), e.Insights...),
		Summary:  e.Summary.clone(),
	}
}

// Has reports whether plot has curated content.
func (c *Catalog) Has(plot string) bool {
	_, ok := c.entries[plot]
	return ok
}

// Len returns the number of curated plots.
func (c *Catalog) Len() int { return len(c.entries) }

func (t *SummaryTable) clone() *SummaryTable {
	if t == nil {
		return nil
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return &SummaryTable{
		Title:   t.Title,
		Columns: append([]string(nil), t.Columns...),
		Rows:    rows,
	}
}

// FormatSummary renders a table as bullet lines for a text prompt, one
// "• a — b — c" line per row.
func FormatSummary(t *SummaryTable) string {
	if t == nil {
		return "No summary data available."
	}
	if len(t.Rows) == 0 {
		return "Invalid summary format."
	}
	lines := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		lines = append(lines, "• "+strings.Join(row, " — "))
	}
	return strings.Join(lines, "\n")
}

// FormatInsights renders insight strings as bullet lines.
func FormatInsights(items []string) string {
	lines := make([]string, len(items))
	for i, s := range items {
		lines[i] = "- " + s
	}
	return strings.Join(lines, "\n")
}
