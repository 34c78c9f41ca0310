package analysis

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalization canonicalises dimension keys before grouping.
type Normalization int

const (
	// NormalizeUpper trims and upper-cases. It is the default.
	NormalizeUpper Normalization = iota
	// NormalizeTitle trims and title-cases each word.
	NormalizeTitle
	// NormalizeNone only trims.
	NormalizeNone
)

// Apply returns the canonical form of s.
func (n Normalization) Apply(s string) string {
	s = strings.TrimSpace(s)
	switch n {
	case NormalizeTitle:
		return cases.Title(language.Und).String(strings.ToLower(s))
	case NormalizeNone:
		return s
	default:
		return strings.ToUpper(s)
	}
}

// DefaultPlaceholders are the tokens the source data uses for "no value".
var DefaultPlaceholders = []string{"NULL", "NA", "NIL", "", "[NULL]"}

// PlaceholderSet matches placeholder tokens case-insensitively after
// trimming, so "nil", " NIL " and "Nil" are all placeholders.
type PlaceholderSet map[string]struct{}

// NewPlaceholderSet builds a set from tokens.
func NewPlaceholderSet(tokens ...string) PlaceholderSet {
	set := make(PlaceholderSet, len(tokens))
	for _, tok := range tokens {
		set[strings.ToUpper(strings.TrimSpace(tok))] = struct{}{}
	}
	return set
}

// DefaultPlaceholderSet returns a fresh set of DefaultPlaceholders.
func DefaultPlaceholderSet() PlaceholderSet {
	return NewPlaceholderSet(DefaultPlaceholders...)
}

// With returns a copy extended by extra tokens.
func (p PlaceholderSet) With(extra ...string) PlaceholderSet {
	out := make(PlaceholderSet, len(p)+len(extra))
	for k := range p {
		out[k] = struct{}{}
	}
	for _, tok := range extra {
		out[strings.ToUpper(strings.TrimSpace(tok))] = struct{}{}
	}
	return out
}

// Contains reports whether s is a placeholder.
func (p PlaceholderSet) Contains(s string) bool {
	_, ok := p[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}
