package commentary

import (
	"fmt"
	"strings"
)

// RecommendationPrompt asks for a three-field action plan.
func RecommendationPrompt(insights []string, summaryText string) string {
	return fmt.Sprintf(`You are a senior business analyst AI.

Given these insights and summary:

INSIGHTS:
"""%s"""

SUMMARY:
"""%s"""

Respond with:
Action: <Clear action in 1–2 lines>
Reason: <Why it matters>
Urgency: <Low / Medium / High>
Only include those 3 labeled fields.`, strings.Join(insights, "\n"), summaryText)
}

// FollowUpPrompt asks for a short bullet answer to a user question.
func FollowUpPrompt(question string, insights []string, summaryText string) string {
	return fmt.Sprintf(`You are a senior business consultant.

User asked: "%s"

Context Insights:
"""%s"""

Summary Table:
"""%s"""

Give a concise, precise, very short, helpful and practical answer in simple business terms.
Structure your response as bullet points for clarity.`, question, strings.Join(insights, "\n"), summaryText)
}
