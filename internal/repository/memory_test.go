package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

func TestMemoryStore_RunsAreImmutableOnceFinal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	run := &models.WorkflowRun{ClientID: "c1", OrgID: "o1", Agent: models.AgentGhostwriter, Trigger: models.TriggerManual}
	require.NoError(t, s.CreateRun(ctx, run))
	require.NotEmpty(t, run.ID)

	failed := models.RunStatusFailed
	msg := "provider down"
	require.NoError(t, s.UpdateRun(ctx, run.ID, models.RunPatch{Status: &failed, Error: &msg}))

	completed := models.RunStatusCompleted
	err := s.UpdateRun(ctx, run.ID, models.RunPatch{Status: &completed})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRunFinalized))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	assert.Equal(t, "provider down", *got.Error)
}

func TestMemoryStore_KeywordUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	kws := []models.PrioritizedKeyword{{Keyword: "Teeth Whitening", Volume: 100}}

	require.NoError(t, s.UpsertKeywords(ctx, "c1", "r1", kws))
	kws[0].Volume = 150
	require.NoError(t, s.UpsertKeywords(ctx, "c1", "r2", kws))

	got, err := s.ListKeywords(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "teeth whitening", got[0].Keyword)
	assert.Equal(t, 150, got[0].Volume)
	assert.Equal(t, "r2", got[0].RunID)
}

func TestMemoryStore_ContentAndQueueKeepIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := &models.ContentPiece{ClientID: "c1", RunID: "r1", Title: "v1"}
	require.NoError(t, s.UpsertContentPiece(ctx, p))
	firstID := p.ID

	again := &models.ContentPiece{ClientID: "c1", RunID: "r1", Title: "v2"}
	require.NoError(t, s.UpsertContentPiece(ctx, again))
	assert.Equal(t, firstID, again.ID)
	assert.Len(t, s.ContentPieces("c1"), 1)

	q := &models.QueueItem{ClientID: "c1", ContentPieceID: firstID, Severity: models.QueueSeverityNormal}
	require.NoError(t, s.UpsertQueueItem(ctx, q))
	q2 := &models.QueueItem{ClientID: "c1", ContentPieceID: firstID, Severity: models.QueueSeverityElevated}
	require.NoError(t, s.UpsertQueueItem(ctx, q2))

	items, err := s.ListQueueItems(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, q.ID, items[0].ID)
	assert.Equal(t, models.QueueSeverityElevated, items[0].Severity)
	assert.Equal(t, models.QueueStatusPending, items[0].Status)
}

func TestMemoryStore_CheckpointRequiresRun(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.SaveCheckpoint(ctx, "ghost", "a", []byte(`{}`))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRunNotFound))

	run := &models.WorkflowRun{ClientID: "c1"}
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.SaveCheckpoint(ctx, run.ID, "a", []byte(`{"x":1}`)))

	node, state, found, err := s.LoadCheckpoint(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", node)
	assert.JSONEq(t, `{"x":1}`, string(state))
}

func TestMemoryStore_TerminalRunAcceptsOnlyFinalCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	run := &models.WorkflowRun{ClientID: "c1"}
	require.NoError(t, s.CreateRun(ctx, run))
	cancelled := models.RunStatusCancelled
	require.NoError(t, s.UpdateRun(ctx, run.ID, models.RunPatch{Status: &cancelled}))

	err := s.SaveCheckpoint(ctx, run.ID, "score_seo", []byte(`{}`))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRunFinalized))

	require.NoError(t, s.SaveCheckpoint(ctx, run.ID, FinalCheckpointNode, []byte(`{"done":true}`)))
	node, _, found, err := s.LoadCheckpoint(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, FinalCheckpointNode, node)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, got.Status)
}
