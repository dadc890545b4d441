package services

import (
	"context"

	"seo-agents/backend/pkg/models"
)

// AgentRunner is the entry point for starting, resuming and cancelling
// workflow runs. Every method blocks until the run is terminal.
type AgentRunner interface {
	RunScholar(ctx context.Context, clientID, orgID string, trigger models.Trigger) (models.RunSummary, error)
	RunGhostwriter(ctx context.Context, clientID, orgID string, topic models.ContentTopic, trigger models.Trigger) (models.RunSummary, error)
	RunConductor(ctx context.Context, clientID, orgID string, trigger models.Trigger) (models.RunSummary, error)
	Resume(ctx context.Context, runID string) (models.RunSummary, error)
	Cancel(runID string) bool
}
