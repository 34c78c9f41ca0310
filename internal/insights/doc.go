// Package insights serves the static, hand-written business insights and
// reference summary tables shown beside each chart. The content is embedded
// at build time and never changes at runtime.
package insights
