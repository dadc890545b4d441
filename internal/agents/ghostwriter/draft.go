package ghostwriter

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"seo-agents/backend/internal/compliance"
	"seo-agents/backend/pkg/models"
)

const (
	metaTitleRunes       = 60
	metaDescriptionRunes = 155
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

	metaTitleLine       = regexp.MustCompile(`(?im)^\s*\**meta[ _-]?title\**\s*:\s*(.+?)\s*$`)
	metaDescriptionLine = regexp.MustCompile(`(?im)^\s*\**meta[ _-]?description\**\s*:\s*(.+?)\s*$`)
	fence               = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*)\\n```\\s*$")
)

// buildDraft turns model markdown into a draft: meta lines are lifted out,
// the body is rendered to HTML and the word count is taken from the plain
// text. Missing meta fields are derived from the title and first paragraph.
func buildDraft(id, source string) (models.ContentDraft, error) {
	source = strings.TrimSpace(source)
	if m := fence.FindStringSubmatch(source); m != nil {
		source = strings.TrimSpace(m[1])
	}

	var metaTitle, metaDescription string
	if m := metaTitleLine.FindStringSubmatch(source); m != nil {
		metaTitle = strings.Trim(m[1], `"*`)
		source = metaTitleLine.ReplaceAllString(source, "")
	}
	if m := metaDescriptionLine.FindStringSubmatch(source); m != nil {
		metaDescription = strings.Trim(m[1], `"*`)
		source = metaDescriptionLine.ReplaceAllString(source, "")
	}
	body := strings.TrimSpace(source)

	draft := models.ContentDraft{ID: id, Markdown: body}
	if err := render(&draft); err != nil {
		return models.ContentDraft{}, err
	}
	if metaTitle == "" {
		metaTitle = headingTitle(body)
	}
	if metaDescription == "" {
		first, err := plainText(firstParagraph(body))
		if err != nil {
			return models.ContentDraft{}, err
		}
		metaDescription = first
	}
	draft.MetaTitle = truncateWords(metaTitle, metaTitleRunes)
	draft.MetaDescription = truncateWords(metaDescription, metaDescriptionRunes)
	return draft, nil
}

// render recomputes HTML, plain text and word count from the markdown.
func render(d *models.ContentDraft) error {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(d.Markdown), &buf); err != nil {
		return err
	}
	text := compliance.PlainText(buf.String())
	d.HTML = buf.String()
	d.PlainText = text
	d.WordCount = len(strings.Fields(text))
	return nil
}

func plainText(md string) (string, error) {
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(compliance.PlainText(buf.String())), " "), nil
}

// appendDisclaimers adds one italic paragraph per sentence not already in
// the body and re-renders the draft. It returns the updated copy.
func appendDisclaimers(d models.ContentDraft, sentences []string) (models.ContentDraft, error) {
	var b strings.Builder
	b.WriteString(strings.TrimRight(d.Markdown, "\n"))
	added := false
	for _, s := range sentences {
		if s == "" || strings.Contains(d.Markdown, s) {
			continue
		}
		b.WriteString("\n\n*")
		b.WriteString(s)
		b.WriteString("*")
		added = true
	}
	if !added {
		return d, nil
	}
	d.Markdown = b.String() + "\n"
	if err := render(&d); err != nil {
		return models.ContentDraft{}, err
	}
	return d, nil
}

func headingTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// firstParagraph returns the first block of text lines that is not a
// heading, list or quote.
func firstParagraph(md string) string {
	var lines []string
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") ||
			strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, ">") {
			if len(lines) > 0 {
				break
			}
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, " ")
}

// truncateWords shortens s to at most n runes, cutting at a word boundary
// when one exists.
func truncateWords(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-")
}
