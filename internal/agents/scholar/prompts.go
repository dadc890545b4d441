package scholar

import (
	"fmt"
	"strings"

	"seo-agents/backend/pkg/models"
)

const prioritizeSystemPrompt = `You are an SEO strategist for local service businesses.
Rank keyword candidates by business value for the practice and propose content topics.
Respond with a single JSON object and nothing else:
{"keywords": [{"keyword": string, "volume": int, "difficulty": int, "source": "search_console"|"research"|"gap", "priority": int, "intent": string}],
 "topics": [{"keyword": string, "suggested_title": string, "angle": string, "estimated_volume": int}]}
Return at most 30 keywords ordered by priority (1 is highest) and at most 10 topics ordered by value.
Only use keywords from the candidate list.`

const prioritizeUserPrompt = `Practice:
%s

Candidates (JSON):
%s`

func describeClient(c models.Client) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", c.PracticeName)
	fmt.Fprintf(&b, "Vertical: %s\n", c.Vertical)
	fmt.Fprintf(&b, "Location: %s\n", c.Location)
	fmt.Fprintf(&b, "Services: %s\n", strings.Join(c.Services, ", "))
	if c.WebsiteDomain != "" {
		fmt.Fprintf(&b, "Website: %s\n", c.WebsiteDomain)
	}
	return b.String()
}
