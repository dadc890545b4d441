package ghostwriter

import (
	"fmt"
	"strings"

	"seo-agents/backend/pkg/models"
)

const briefSystemPrompt = `You plan SEO articles for local service businesses.
Respond with a single JSON object and nothing else:
{"title": string, "target_keyword": string, "sections": [string], "target_word_count": int, "internal_links": [string], "content_type": string}
Use 2 to 12 section headings, a word count between 300 and 4000 and at most 10 internal link suggestions.`

const briefUserPrompt = `Practice: %s (%s) in %s
Services: %s
Topic keyword: %s
Suggested title: %s
Angle: %s
Related competitor keywords: %s`

const writeSystemPrompt = `You write SEO articles for a %s practice.
Write in Markdown. Start with a single "# " title containing the target keyword, then the sections in order as "## " headings.
Use the target keyword in the first paragraph and naturally throughout.
Never diagnose readers, prescribe treatment or dosages, or promise outcomes.
Finish with two lines:
Meta Title: <at most 60 characters>
Meta Description: <at most 155 characters>`

const writeUserPrompt = `Brief:
Title: %s
Target keyword: %s
Sections:
%s
Target word count: %d
Internal links to suggest: %s`

const rewriteSystemPrompt = `You are revising an article that failed a compliance review for a %s practice.
Rewrite only the flagged passages so they no longer violate the stated reasons. Keep every other sentence, the headings and the Markdown structure unchanged.
Return the complete revised article in Markdown and nothing else.`

const rewriteUserPrompt = `Flagged passages:
%s

Article:
%s`

func briefPrompt(s State, related []string) (string, string) {
	c := s.Client
	return briefSystemPrompt, fmt.Sprintf(briefUserPrompt,
		c.PracticeName, c.Vertical, c.Location,
		strings.Join(c.Services, ", "),
		s.Topic.Keyword, s.Topic.SuggestedTitle, s.Topic.Angle,
		orNone(related))
}

func writePrompt(s State) (string, string) {
	b := s.Brief
	var sections strings.Builder
	for i, h := range b.Sections {
		fmt.Fprintf(&sections, "%d. %s\n", i+1, h)
	}
	return fmt.Sprintf(writeSystemPrompt, s.Client.Vertical),
		fmt.Sprintf(writeUserPrompt, b.Title, b.TargetKeyword, sections.String(), b.TargetWordCount, orNone(b.InternalLinks))
}

func rewritePrompt(s State, blocking []models.Finding) (string, string) {
	var flagged strings.Builder
	for _, f := range blocking {
		fmt.Fprintf(&flagged, "- %q: %s\n", f.Excerpt, f.Reason)
	}
	return fmt.Sprintf(rewriteSystemPrompt, s.Client.Vertical),
		fmt.Sprintf(rewriteUserPrompt, flagged.String(), s.Draft.Markdown)
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
