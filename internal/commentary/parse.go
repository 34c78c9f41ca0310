package commentary

import (
	"regexp"
	"strings"
)

var (
	actionPattern  = regexp.MustCompile(`(?i)Action:\s*(.+?)(?:\n|$)`)
	reasonPattern  = regexp.MustCompile(`(?i)Reason:\s*(.+?)(?:\n|$)`)
	urgencyPattern = regexp.MustCompile(`(?i)Urgency:\s*(.+?)(?:\n|$)`)
)

// Recommendation is a parsed action plan. When Structured is false none of
// the labelled fields were found and Raw should be displayed as is.
type Recommendation struct {
	Action     string `json:"action,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Urgency    string `json:"urgency,omitempty"`
	Raw        string `json:"raw"`
	Structured bool   `json:"structured"`
}

// ParseRecommendation extracts the Action, Reason and Urgency lines.
func ParseRecommendation(text string) Recommendation {
	rec := Recommendation{Raw: text}
	rec.Action = extract(actionPattern, text)
	rec.Reason = extract(reasonPattern, text)
	rec.Urgency = extract(urgencyPattern, text)
	rec.Structured = rec.Action != "" || rec.Reason != "" || rec.Urgency != ""
	return rec
}

func extract(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(m[1], "**", ""))
}

// FollowUpAnswer is a follow-up response split into an optional lead line
// and bullets.
type FollowUpAnswer struct {
	Lead    string   `json:"lead,omitempty"`
	Bullets []string `json:"bullets"`
	Raw     string   `json:"raw"`
}

// SplitBullets splits text on "•". The first segment becomes the lead unless
// it is empty or already a dash bullet.
func SplitBullets(text string) FollowUpAnswer {
	parts := strings.Split(text, "•")
	answer := FollowUpAnswer{Raw: text, Bullets: []string{}}

	first := strings.TrimSpace(parts[0])
	if first != "" && !strings.HasPrefix(first, "-") {
		answer.Lead = first
	}
	for _, p := range parts[1:] {
		if cleaned := strings.TrimSpace(p); cleaned != "" {
			answer.Bullets = append(answer.Bullets, cleaned)
		}
	}
	return answer
}
