package plots

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
)

var printer = message.NewPrinter(language.English)

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatAmount groups thousands, e.g. 12345.6 -> "12,346".
func formatAmount(v float64) string {
	return printer.Sprintf("%.0f", v)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// correlationStrength describes r the way the insight tables do, e.g.
// "0.43 (Moderate Positive)".
func correlationStrength(r float64) string {
	a := math.Abs(r)
	var strength string
	switch {
	case a < 0.2:
		strength = "Very Weak"
	case a < 0.4:
		strength = "Weak"
	case a < 0.6:
		strength = "Moderate"
	case a < 0.8:
		strength = "Strong"
	default:
		strength = "Very Strong"
	}
	direction := "Positive"
	if r < 0 {
		direction = "Negative"
	}
	return fmt.Sprintf("%.2f (%s %s)", r, strength, direction)
}

func statValue(g analysis.Group, s analysis.Stat) float64 {
	switch s {
	case analysis.StatSum:
		return g.Sum
	case analysis.StatCount:
		return float64(g.Count)
	case analysis.StatRatio:
		return g.Ratio
	default:
		return g.Mean
	}
}
