package compliance

import (
	"regexp"
	"slices"

	"seo-agents/backend/pkg/models"
)

// Rule is one entry of the pattern pass.
type Rule struct {
	ID          string
	Pattern     *regexp.Regexp
	Severity    models.Severity
	Reason      string
	Remediation string
	// Verticals limits the rule to the listed verticals. Empty means all.
	Verticals []models.Vertical
}

// Applies reports whether the rule is active for vertical.
func (r Rule) Applies(vertical models.Vertical) bool {
	return len(r.Verticals) == 0 || slices.Contains(r.Verticals, vertical)
}

var healthcare = []models.Vertical{
	models.VerticalDental,
	models.VerticalMedical,
	models.VerticalChiropractic,
}

const (
	healthcareDisclaimer = "This article is for general information only and is not a substitute for professional advice. Talk to a qualified provider about your situation."
	legalDisclaimer      = "This article is for general information only and is not legal advice. Talk to a licensed attorney about your situation."
	genericDisclaimer    = "This article is for general information only. Details vary, so contact us about your specific situation."
)

// DefaultDisclaimer is the remediation attached to warn findings that carry
// none of their own, such as those raised by the semantic reviewer.
func DefaultDisclaimer(vertical models.Vertical) string {
	switch {
	case slices.Contains(healthcare, vertical):
		return healthcareDisclaimer
	case vertical == models.VerticalLegal:
		return legalDisclaimer
	default:
		return genericDisclaimer
	}
}

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:        "HC-DIAG-001",
			Pattern:   regexp.MustCompile(`(?i)\byou (?:have|likely have|probably have|definitely have|are suffering from)\s+(?:an? )?(?:\w+ )?(?:disease|infection|disorder|syndrome|condition|cancer|diabetes|tmj|gingivitis|periodontitis|sciatica|herniated disc)\b`),
			Severity:  models.SeverityBlock,
			Reason:    "States a specific diagnosis for the reader",
			Verticals: healthcare,
		},
		{
			ID:       "GEN-GUAR-001",
			Pattern:  regexp.MustCompile(`(?i)\b(?:guarantee[sd]?|100%\s+(?:effective|successful|safe|painless)|risk[- ]free|(?:will|can) (?:permanently )?cure)\b`),
			Severity: models.SeverityBlock,
			Reason:   "Promises a guaranteed outcome",
		},
		{
			ID:        "HC-DOSE-001",
			Pattern:   regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:mg|mcg|ml|milligrams?|micrograms?|iu)\b`),
			Severity:  models.SeverityBlock,
			Reason:    "Gives an explicit medication dosage",
			Verticals: healthcare,
		},
		{
			ID:        "LEGAL-GUAR-001",
			Pattern:   regexp.MustCompile(`(?i)\b(?:we (?:will|always) win|you will (?:win|receive compensation)|certain to win)\b`),
			Severity:  models.SeverityBlock,
			Reason:    "Promises a legal outcome",
			Verticals: []models.Vertical{models.VerticalLegal},
		},
		{
			ID:          "GEN-PRICE-001",
			Pattern:     regexp.MustCompile(`(?i)(?:\$\s?\d[\d,]*(?:\.\d{2})?|\b(?:lowest|cheapest|best) prices?\b)`),
			Severity:    models.SeverityWarn,
			Reason:      "Makes a price claim without qualification",
			Remediation: "Prices are estimates. Your actual cost depends on your individual needs and coverage.",
		},
		{
			ID:          "HC-ADVICE-001",
			Pattern:     regexp.MustCompile(`(?i)\b(?:you should (?:take|stop taking|start taking|avoid)|we recommend (?:taking|that you take)|stop taking your)\b`),
			Severity:    models.SeverityWarn,
			Reason:      "Offers general health advice",
			Remediation: healthcareDisclaimer,
			Verticals:   healthcare,
		},
		{
			ID:          "HC-RESULT-001",
			Pattern:     regexp.MustCompile(`(?i)\b(?:before[- ]and[- ]after|instant results|results in (?:just )?\d+ (?:days?|weeks?))\b`),
			Severity:    models.SeverityWarn,
			Reason:      "Promises specific treatment results",
			Remediation: "Individual results vary.",
			Verticals:   healthcare,
		},
		{
			ID:          "GEN-SUPER-001",
			Pattern:     regexp.MustCompile(`(?i)(?:\bthe best|#1|\bnumber one|\btop-rated) (?:\w+ )?(?:dentists?|doctors?|lawyers?|attorneys?|chiropractors?|clinics?|practices?|plumbers?|contractors?|firms?)\b`),
			Severity:    models.SeverityWarn,
			Reason:      "Makes an unsubstantiated superlative claim",
			Remediation: "Quality claims reflect our own assessment and client feedback.",
		},
	}
}
