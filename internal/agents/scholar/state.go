package scholar

import (
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/pkg/models"
)

// State is the Scholar run state.
type State struct {
	RunID    string        `json:"run_id"`
	ClientID string        `json:"client_id"`
	OrgID    string        `json:"org_id"`
	Client   models.Client `json:"client"`

	Queries     []providers.QueryStat       `json:"queries,omitempty"`
	Researched  []providers.KeywordMetric   `json:"researched,omitempty"`
	Competitor  []providers.KeywordMetric   `json:"competitor,omitempty"`
	Gaps        []models.PrioritizedKeyword `json:"gaps,omitempty"`
	Keywords    []models.PrioritizedKeyword `json:"keywords,omitempty"`
	Topics      []models.ContentTopic       `json:"topics,omitempty"`
	Saved       bool                        `json:"saved,omitempty"`
	FinalStatus models.RunStatus            `json:"final_status,omitempty"`

	Error     string `json:"error,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Patch is the set of fields a node may write. Nil fields are left as is.
type Patch struct {
	Queries     *[]providers.QueryStat
	Researched  *[]providers.KeywordMetric
	Competitor  *[]providers.KeywordMetric
	Gaps        *[]models.PrioritizedKeyword
	Keywords    *[]models.PrioritizedKeyword
	Topics      *[]models.ContentTopic
	Saved       *bool
	FinalStatus *models.RunStatus
}

// NewState seeds a run.
func NewState(run *models.WorkflowRun, client models.Client) State {
	return State{RunID: run.ID, ClientID: client.ID, OrgID: run.OrgID, Client: client}
}

// Apply merges p into s. Slices are replaced, never appended.
func (s State) Apply(p Patch) State {
	if p.Queries != nil {
		s.Queries = *p.Queries
	}
	if p.Researched != nil {
		s.Researched = *p.Researched
	}
	if p.Competitor != nil {
		s.Competitor = *p.Competitor
	}
	if p.Gaps != nil {
		s.Gaps = *p.Gaps
	}
	if p.Keywords != nil {
		s.Keywords = *p.Keywords
	}
	if p.Topics != nil {
		s.Topics = *p.Topics
	}
	if p.Saved != nil {
		s.Saved = *p.Saved
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
	topics := make([]map[string]any, 0, len(s.Topics))
	for _, t := range s.Topics {
		topics = append(topics, map[string]any{
			"keyword":         t.Keyword,
			"suggestedTitle":  t.SuggestedTitle,
			"angle":           t.Angle,
			"estimatedVolume": t.EstimatedVolume,
		})
	}
	return map[string]any{
		"keywordCount": len(s.Keywords),
		"topicCount":   len(s.Topics),
		"topics":       topics,
	}
}

// Summary reports the run to callers.
func (s State) Summary() models.RunSummary {
	return models.RunSummary{
		RunID:  s.RunID,
		Agent:  models.AgentScholar,
		Status: s.FinalStatus,
		Error:  s.Error,
		Counts: map[string]int{"keywordCount": len(s.Keywords), "topicCount": len(s.Topics)},
		Result: s.Result(),
	}
}

func ptr[T any](v T) *T { return &v }
