// Package repository persists workflow runs and the records agents produce.
// Every write is an idempotent upsert on a natural key so retried or resumed
// runs never duplicate rows.
package repository

import (
	"context"

	"seo-agents/backend/pkg/models"
)

// RunFilter narrows ListRuns. Zero fields are ignored.
type RunFilter struct {
	ClientID    string
	Agent       models.AgentName
	Status      models.RunStatus
	ParentRunID string
	Limit       uint64
}

// RunStore tracks workflow runs.
type RunStore interface {
	// CreateRun inserts a run in running status.
	CreateRun(ctx context.Context, run *models.WorkflowRun) error
	// GetRun returns a run by ID.
	GetRun(ctx context.Context, id string) (*models.WorkflowRun, error)
	// UpdateRun applies patch to a running run. Runs that left running
	// are immutable and return a RunFinalized error.
	UpdateRun(ctx context.Context, id string, patch models.RunPatch) error
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.WorkflowRun, error)
}

// ClientStore reads client accounts.
type ClientStore interface {
	UpsertOrganization(ctx context.Context, org *models.Organization) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	UpsertClient(ctx context.Context, client *models.Client) error
	ListActiveClients(ctx context.Context) ([]*models.Client, error)
}

// KeywordStore persists Scholar output.
type KeywordStore interface {
	// UpsertKeywords writes keywords keyed by client and keyword.
	UpsertKeywords(ctx context.Context, clientID, runID string, keywords []models.PrioritizedKeyword) error
	ListKeywords(ctx context.Context, clientID string) ([]models.KeywordRecord, error)
}

// ContentStore persists Ghostwriter output.
type ContentStore interface {
	// UpsertContentPiece writes the piece keyed by client and run and sets
	// its ID.
	UpsertContentPiece(ctx context.Context, piece *models.ContentPiece) error
	// UpsertQueueItem writes the review item keyed by content piece and
	// sets its ID.
	UpsertQueueItem(ctx context.Context, item *models.QueueItem) error
	ListQueueItems(ctx context.Context, clientID string) ([]*models.QueueItem, error)
}

// FinalCheckpointNode is the node whose checkpoint may be saved after the
// run turned terminal. Every other checkpoint requires a running run.
const FinalCheckpointNode = "finalize"

// CheckpointStore saves the last completed node and state of a run.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, runID, node string, state []byte) error
	LoadCheckpoint(ctx context.Context, runID string) (node string, state []byte, found bool, err error)
}

// Store is the full persistence surface used by the agents.
type Store interface {
	RunStore
	ClientStore
	KeywordStore
	ContentStore
	CheckpointStore
	Ping(ctx context.Context) error
}
