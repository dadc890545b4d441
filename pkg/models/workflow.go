package models

import (
	"time"
)

// AgentName names one of the agent workflows.
type AgentName string

const (
	AgentScholar     AgentName = "scholar"
	AgentGhostwriter AgentName = "ghostwriter"
	AgentConductor   AgentName = "conductor"
)

// RunStatus is the lifecycle state of a WorkflowRun.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// Trigger records what started a run.
type Trigger string

const (
	TriggerManual     Trigger = "manual"
	TriggerScheduled  Trigger = "scheduled"
	TriggerOnboarding Trigger = "onboarding"
)

// WorkflowRun is one invocation of a named agent workflow for a client.
// It is mutated only by the workflow's finalize step and is immutable
// once Status leaves running.
type WorkflowRun struct {
	ID          string         `json:"id" db:"id"`
	ClientID    string         `json:"client_id" db:"client_id"`
	OrgID       string         `json:"org_id" db:"org_id"`
	Agent       AgentName      `json:"agent" db:"agent"`
	Status      RunStatus      `json:"status" db:"status"`
	Trigger     Trigger        `json:"trigger" db:"trigger"`
	ParentRunID *string        `json:"parent_run_id,omitempty" db:"parent_run_id"`
	Result      map[string]any `json:"result,omitempty" db:"result"`
	Error       *string        `json:"error,omitempty" db:"error"`
	Checkpoint  []byte         `json:"-" db:"checkpoint"`
	StartedAt   time.Time      `json:"started_at" db:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// RunPatch is the set of fields a finalize step may write.
type RunPatch struct {
	Status      *RunStatus
	Result      map[string]any
	Error       *string
	CompletedAt *time.Time
}

// RunSummary is returned to callers once a run reaches a terminal state.
type RunSummary struct {
	RunID  string         `json:"run_id"`
	Agent  AgentName      `json:"agent"`
	Status RunStatus      `json:"status"`
	Error  string         `json:"error,omitempty"`
	Counts map[string]int `json:"counts,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}
