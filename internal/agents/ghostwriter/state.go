package ghostwriter

import (
	"seo-agents/backend/pkg/models"
)

// State is the Ghostwriter run state.
type State struct {
	RunID    string              `json:"run_id"`
	ClientID string              `json:"client_id"`
	OrgID    string              `json:"org_id"`
	Client   models.Client       `json:"client"`
	Topic    models.ContentTopic `json:"topic"`

	Brief   *models.ContentBrief `json:"brief,omitempty"`
	Draft   *models.ContentDraft `json:"draft,omitempty"`
	Verdict *models.Verdict      `json:"verdict,omitempty"`

	// ComplianceChecks and RewriteAttempts bound the remediation loop and
	// are checkpointed with the rest of the state.
	ComplianceChecks int                  `json:"compliance_checks"`
	RewriteAttempts  int                  `json:"rewrite_attempts"`
	Severity         models.QueueSeverity `json:"severity,omitempty"`

	ContentPieceID string           `json:"content_piece_id,omitempty"`
	QueueItemID    string           `json:"queue_item_id,omitempty"`
	FinalStatus    models.RunStatus `json:"final_status,omitempty"`

	Error     string `json:"error,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Patch is the set of fields a node may write. Nil fields are left as is.
type Patch struct {
	Brief            *models.ContentBrief
	Draft            *models.ContentDraft
	Verdict          *models.Verdict
	ComplianceChecks *int
	RewriteAttempts  *int
	Severity         *models.QueueSeverity
	ContentPieceID   *string
	QueueItemID      *string
	FinalStatus      *models.RunStatus
}

// NewState seeds a run for one topic.
func NewState(run *models.WorkflowRun, client models.Client, topic models.ContentTopic) State {
	return State{RunID: run.ID, ClientID: client.ID, OrgID: run.OrgID, Client: client, Topic: topic}
}

// Apply merges p into s. The draft and verdict are replaced whole.
func (s State) Apply(p Patch) State {
	if p.Brief != nil {
		s.Brief = p.Brief
	}
	if p.Draft != nil {
		s.Draft = p.Draft
	}
	if p.Verdict != nil {
		s.Verdict = p.Verdict
	}
	if p.ComplianceChecks != nil {
		s.ComplianceChecks = *p.ComplianceChecks
	}
	if p.RewriteAttempts != nil {
		s.RewriteAttempts = *p.RewriteAttempts
	}
	if p.Severity != nil {
		s.Severity = *p.Severity
	}
	if p.ContentPieceID != nil {
		s.ContentPieceID = *p.ContentPieceID
	}
	if p.QueueItemID != nil {
		s.QueueItemID = *p.QueueItemID
	}
	if p.FinalStatus != nil {
		s.FinalStatus = *p.FinalStatus
	}
	return s
}

// Fail sets the error tombstone.
func (s State) Fail(err error) State {
	if s.Error == "" {
		s.Error = err.Error()
	}
	return s
}

// Cancel marks the run cancelled.
func (s State) Cancel() State {
	s.Cancelled = true
	return s
}

// Halted reports whether the run must go straight to finalize.
func (s State) Halted() bool {
	return s.Error != "" || s.Cancelled
}

// Result is the payload written on the run record.
func (s State) Result() map[string]any {
	out := map[string]any{
		"topic":            s.Topic.Keyword,
		"complianceChecks": s.ComplianceChecks,
		"rewriteAttempts":  s.RewriteAttempts,
	}
	if s.ContentPieceID != "" {
		out["contentPieceId"] = s.ContentPieceID
	}
	if s.QueueItemID != "" {
		out["queueItemId"] = s.QueueItemID
		out["severity"] = string(s.Severity)
	}
	if s.Verdict != nil {
		out["verdict"] = string(s.Verdict.Status)
	}
	if s.Draft != nil {
		out["seoScore"] = s.Draft.SEOScore
		out["wordCount"] = s.Draft.WordCount
	}
	return out
}

// Summary reports the run to callers.
func (s State) Summary() models.RunSummary {
	pieces := 0
	if s.ContentPieceID != "" {
		pieces = 1
	}
	return models.RunSummary{
		RunID:  s.RunID,
		Agent:  models.AgentGhostwriter,
		Status: s.FinalStatus,
		Error:  s.Error,
		Counts: map[string]int{
			"contentPieces":    pieces,
			"complianceChecks": s.ComplianceChecks,
			"rewriteAttempts":  s.RewriteAttempts,
		},
		Result: s.Result(),
	}
}

func ptr[T any](v T) *T { return &v }
