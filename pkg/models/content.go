package models

import (
	"time"
)

// ContentBrief is the structural plan for one piece of content.
// It is produced once per Ghostwriter run and never mutated afterwards.
type ContentBrief struct {
	Title           string   `json:"title" validate:"required"`
	TargetKeyword   string   `json:"target_keyword" validate:"required"`
	Sections        []string `json:"sections" validate:"required,min=2,max=12,dive,required"`
	TargetWordCount int      `json:"target_word_count" validate:"required,min=300,max=4000"`
	InternalLinks   []string `json:"internal_links" validate:"max=10"`
	ContentType     string   `json:"content_type,omitempty"`
}

// SEOCheck is one line item of the deterministic SEO score.
type SEOCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Points int    `json:"points"`
}

// ContentDraft is the generated artifact. Its ID is stable across the
// remediation loop while the body and score may be regenerated.
type ContentDraft struct {
	ID              string     `json:"id"`
	Markdown        string     `json:"markdown"`
	HTML            string     `json:"html"`
	PlainText       string     `json:"plain_text"`
	WordCount       int        `json:"word_count"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	SEOScore        int        `json:"seo_score"`
	SEOChecks       []SEOCheck `json:"seo_checks,omitempty"`
}

// QueueSeverity is the urgency of a human review item.
type QueueSeverity string

const (
	QueueSeverityNormal   QueueSeverity = "normal"
	QueueSeverityElevated QueueSeverity = "elevated"
)

// ContentPiece is the persisted content artifact produced by a Ghostwriter run.
type ContentPiece struct {
	ID               string        `json:"id" db:"id"`
	ClientID         string        `json:"client_id" db:"client_id"`
	OrgID            string        `json:"org_id" db:"org_id"`
	RunID            string        `json:"run_id" db:"run_id"`
	TargetKeyword    string        `json:"target_keyword" db:"target_keyword"`
	Title            string        `json:"title" db:"title"`
	BodyMarkdown     string        `json:"body_markdown" db:"body_markdown"`
	BodyHTML         string        `json:"body_html" db:"body_html"`
	WordCount        int           `json:"word_count" db:"word_count"`
	MetaTitle        string        `json:"meta_title" db:"meta_title"`
	MetaDescription  string        `json:"meta_description" db:"meta_description"`
	SEOScore         int           `json:"seo_score" db:"seo_score"`
	ComplianceStatus VerdictStatus `json:"compliance_status" db:"compliance_status"`
	RewriteAttempts  int           `json:"rewrite_attempts" db:"rewrite_attempts"`
	Status           string        `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// QueueItem is the human-facing approval record created at the end of a
// successful Ghostwriter run. Everything after creation belongs to the
// approval subsystem.
type QueueItem struct {
	ID             string        `json:"id" db:"id"`
	ClientID       string        `json:"client_id" db:"client_id"`
	OrgID          string        `json:"org_id" db:"org_id"`
	ContentPieceID string        `json:"content_piece_id" db:"content_piece_id"`
	RunID          string        `json:"run_id" db:"run_id"`
	VerdictStatus  VerdictStatus `json:"verdict_status" db:"verdict_status"`
	Severity       QueueSeverity `json:"severity" db:"severity"`
	Findings       []Finding     `json:"findings,omitempty" db:"findings"`
	Status         string        `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// QueueStatusPending is the initial status of every queue item.
const QueueStatusPending = "pending"

// ContentStatusDraft is the initial status of every content piece.
const ContentStatusDraft = "draft"
