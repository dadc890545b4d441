// Package compliance reviews generated content for regulated-industry policy
// violations with a pattern pass and a semantic pass.
package compliance

import (
	"context"
	"fmt"
	"strings"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/llm"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/pkg/models"
)

const (
	defaultExcerptRunes = 6000
	defaultMaxTokens    = 800
)

const semanticSystemPrompt = `You review marketing copy for a %s practice before publication.
Flag any sentence that:
- diagnoses the reader with a specific condition,
- prescribes treatment, medication or dosage,
- guarantees an outcome,
- makes an unsubstantiated comparison with other providers.
Respond with a JSON array only. Each item is {"severity": "warn" | "block", "excerpt": "<exact sentence>", "reason": "<short reason>"}.
Respond with [] when nothing needs flagging.`

// Observer is called with every computed verdict.
type Observer func(ctx context.Context, vertical models.Vertical, verdict models.Verdict)

// Checker evaluates content and returns an authoritative verdict.
type Checker interface {
	Check(ctx context.Context, text string, vertical models.Vertical) models.Verdict
}

// Engine runs the pattern and semantic passes.
type Engine struct {
	rules        []Rule
	reviewer     llm.Completer
	excerptRunes int
	maxTokens    int
	observers    []Observer
	logger       *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithExcerptRunes bounds the text sent to the semantic reviewer.
func WithExcerptRunes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.excerptRunes = n
		}
	}
}

// WithSemanticMaxTokens sets the output budget of the semantic pass.
func WithSemanticMaxTokens(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithObserver registers a verdict observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// NewEngine creates an Engine using reviewer for the semantic pass.
func NewEngine(reviewer llm.Completer, logger *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		rules:        DefaultRules(),
		reviewer:     reviewer,
		excerptRunes: defaultExcerptRunes,
		maxTokens:    defaultMaxTokens,
		logger:       logger.With("component", "compliance"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check runs both passes over text, which may be HTML, and derives the
// verdict. Nothing is cached between calls.
func (e *Engine) Check(ctx context.Context, text string, vertical models.Vertical) models.Verdict {
	plain := PlainText(text)

	findings := e.patternPass(plain, vertical)
	semantic, err := e.semanticPass(ctx, plain, vertical)
	if err != nil {
		e.logger.Warn("Semantic compliance pass failed, continuing with pattern findings",
			"code", apperrors.CodeSemanticParse, "vertical", vertical, "error", err)
	}
	findings = append(findings, semantic...)

	verdict := models.Verdict{Status: Derive(findings), Findings: findings}
	for _, o := range e.observers {
		o(ctx, vertical, verdict)
	}
	return verdict
}

func (e *Engine) patternPass(plain string, vertical models.Vertical) []models.Finding {
	var findings []models.Finding
	for _, r := range e.rules {
		if !r.Applies(vertical) {
			continue
		}
		seen := make(map[string]struct{})
		for _, loc := range r.Pattern.FindAllStringIndex(plain, -1) {
			excerpt := sentenceAround(plain, loc[0], loc[1])
			if _, dup := seen[excerpt]; dup {
				continue
			}
			seen[excerpt] = struct{}{}
			findings = append(findings, models.Finding{
				RuleID:      r.ID,
				Source:      models.SourcePattern,
				Severity:    r.Severity,
				Excerpt:     excerpt,
				Reason:      r.Reason,
				Remediation: r.Remediation,
			})
		}
	}
	return findings
}

type semanticFinding struct {
	Severity models.Severity `json:"severity" validate:"required,oneof=warn block"`
	Excerpt  string          `json:"excerpt" validate:"required"`
	Reason   string          `json:"reason" validate:"required"`
}

// semanticPass never returns findings together with an error.
func (e *Engine) semanticPass(ctx context.Context, plain string, vertical models.Vertical) ([]models.Finding, error) {
	if e.reviewer == nil {
		return nil, apperrors.New(apperrors.CodeSemanticParse, "no semantic reviewer configured")
	}
	prompt := llm.Prompt{
		System: fmt.Sprintf(semanticSystemPrompt, vertical),
		User:   truncateRunes(plain, e.excerptRunes),
	}
	resp, err := e.reviewer.Complete(ctx, prompt, e.maxTokens)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSemanticParse, "semantic reviewer unavailable", err)
	}
	items, err := llm.DecodeStrict[[]semanticFinding]("compliance semantic pass", resp)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSemanticParse, "semantic reviewer returned malformed findings", err)
	}
	findings := make([]models.Finding, 0, len(items))
	for _, it := range items {
		f := models.Finding{
			Source:   models.SourceSemantic,
			Severity: it.Severity,
			Excerpt:  strings.TrimSpace(it.Excerpt),
			Reason:   it.Reason,
		}
		if f.Severity == models.SeverityWarn {
			f.Remediation = DefaultDisclaimer(vertical)
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// Derive computes the verdict status: block beats warn beats pass.
func Derive(findings []models.Finding) models.VerdictStatus {
	status := models.VerdictPass
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityBlock:
			return models.VerdictBlock
		case models.SeverityWarn:
			status = models.VerdictWarn
		}
	}
	return status
}

// Disclaimers returns the remediation sentences of warn findings, once each,
// in finding order.
func Disclaimers(verdict models.Verdict) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range verdict.Findings {
		if f.Severity != models.SeverityWarn || f.Remediation == "" {
			continue
		}
		if _, dup := seen[f.Remediation]; dup {
			continue
		}
		seen[f.Remediation] = struct{}{}
		out = append(out, f.Remediation)
	}
	return out
}

func sentenceAround(text string, start, end int) string {
	from := strings.LastIndexAny(text[:start], ".!?\n") + 1
	to := len(text)
	if i := strings.IndexAny(text[end:], ".!?\n"); i >= 0 {
		to = end + i + 1
	}
	return strings.TrimSpace(text[from:to])
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
