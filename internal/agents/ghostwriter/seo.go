package ghostwriter

import (
	"strings"
	"unicode"

	"seo-agents/backend/pkg/models"
)

const (
	minDensity = 0.5
	maxDensity = 2.5
)

// Score rates a draft against its brief from 0 to 100 in four equally
// weighted checks. Density is keyword occurrences per hundred words.
func Score(d models.ContentDraft, brief models.ContentBrief) (int, []models.SEOCheck) {
	keyword := words(brief.TargetKeyword)
	title := headingTitle(d.Markdown)
	if title == "" {
		title = d.MetaTitle
	}
	first, _ := plainText(firstParagraph(d.Markdown))

	body := words(d.PlainText)
	density := 0.0
	if len(body) > 0 {
		density = float64(occurrences(body, keyword)) * 100 / float64(len(body))
	}

	checks := []models.SEOCheck{
		{Name: "keyword_in_title", Passed: occurrences(words(title), keyword) > 0},
		{Name: "keyword_in_first_paragraph", Passed: occurrences(words(first), keyword) > 0},
		{Name: "keyword_density", Passed: density >= minDensity && density <= maxDensity},
		{Name: "word_count", Passed: d.WordCount >= brief.TargetWordCount},
	}
	score := 0
	for i := range checks {
		if checks[i].Passed {
			checks[i].Points = 25
			score += 25
		}
	}
	return score, checks
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func occurrences(haystack, needle []string) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return 0
	}
	n := 0
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		n++
	}
	return n
}
