package models

// VerdictStatus is the classified outcome of a compliance review.
type VerdictStatus string

const (
	VerdictPass  VerdictStatus = "pass"
	VerdictWarn  VerdictStatus = "warn"
	VerdictBlock VerdictStatus = "block"
)

// Severity is the weight of a single compliance finding.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// FindingSource tells which pass produced a finding.
type FindingSource string

const (
	SourcePattern  FindingSource = "pattern"
	SourceSemantic FindingSource = "semantic"
)

// Finding is one flagged excerpt with an optional remediation hint.
type Finding struct {
	RuleID      string        `json:"rule_id,omitempty"`
	Source      FindingSource `json:"source"`
	Severity    Severity      `json:"severity"`
	Excerpt     string        `json:"excerpt"`
	Reason      string        `json:"reason"`
	Remediation string        `json:"remediation,omitempty"`
}

// Verdict is the authoritative result of a compliance check.
type Verdict struct {
	Status   VerdictStatus `json:"status"`
	Findings []Finding     `json:"findings"`
}

// Blocking returns the findings with block severity.
func (v Verdict) Blocking() []Finding {
	var out []Finding
	for _, f := range v.Findings {
		if f.Severity == SeverityBlock {
			out = append(out, f)
		}
	}
	return out
}
