package conductor

import (
	"seo-agents/backend/pkg/models"
)

// State is the Conductor run state.
type State struct {
	RunID    string         `json:"run_id"`
	ClientID string         `json:"client_id"`
	OrgID    string         `json:"org_id"`
	Client   *models.Client `json:"client,omitempty"`

	ScholarRunID      string                `json:"scholar_run_id,omitempty"`
	KeywordCount      int                   `json:"keyword_count"`
	Topics            []models.ContentTopic `json:"topics,omitempty"`
	GhostwriterRunIDs []string              `json:"ghostwriter_run_ids,omitempty"`
	ContentPieces     int                   `json:"content_pieces"`
	FailedTopics      []string              `json:"failed_topics,omitempty"`
	FinalStatus       models.RunStatus      `json:"final_status,omitempty"`

	Error     string `json:"error,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Patch is the set of fields a node may write. Nil fields are left as is.
type Patch struct {
	Client            *models.Client
	ScholarRunID      *string
	KeywordCount      *int
	Topics            *[]models.ContentTopic
	GhostwriterRunIDs *[]string
	ContentPieces     *int
	FailedTopics      *[]string
	FinalStatus       *models.RunStatus
}

// NewState seeds a run. The client is loaded by the health check.
func NewState(run *models.WorkflowRun) State {
	return State{RunID: run.ID, ClientID: run.ClientID, OrgID: run.OrgID}
}

// Apply merges p into s. Slices are replaced, never appended.
func (s State) Apply(p Patch) State {
	if p.Client != nil {
		s.Client = p.Client
	}
	if p.ScholarRunID != nil {
		s.ScholarRunID = *p.ScholarRunID
	}
	if p.KeywordCount != nil {
		s.KeywordCount = *p.KeywordCount
	}
	if p.Topics != nil {
		s.Topics = *p.Topics
	}
	if p.GhostwriterRunIDs != nil {
		s.GhostwriterRunIDs = *p.GhostwriterRunIDs
	}
	if p.ContentPieces != nil {
		s.ContentPieces = *p.ContentPieces
	}
	if p.FailedTopics != nil {
		s.FailedTopics = *p.FailedTopics
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
	runIDs := s.GhostwriterRunIDs
	if runIDs == nil {
		runIDs = []string{}
	}
	failed := s.FailedTopics
	if failed == nil {
		failed = []string{}
	}
	return map[string]any{
		"keywordCount":           s.KeywordCount,
		"contentPiecesGenerated": s.ContentPieces,
		"scholarRunId":           s.ScholarRunID,
		"ghostwriterRunIds":      runIDs,
		"failedTopics":           failed,
	}
}

// Summary reports the run to callers.
func (s State) Summary() models.RunSummary {
	return models.RunSummary{
		RunID:  s.RunID,
		Agent:  models.AgentConductor,
		Status: s.FinalStatus,
		Error:  s.Error,
		Counts: map[string]int{
			"keywordCount":           s.KeywordCount,
			"contentPiecesGenerated": s.ContentPieces,
			"failedTopics":           len(s.FailedTopics),
		},
		Result: s.Result(),
	}
}
