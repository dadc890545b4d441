package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

func TestPostgresStore_CreateRun(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	store := NewPostgresStore(mockPool)

	parent := "parent-1"
	run := &models.WorkflowRun{
		ID:          "run-1",
		ClientID:    "client-1",
		OrgID:       "org-1",
		Agent:       models.AgentScholar,
		Trigger:     models.TriggerManual,
		ParentRunID: &parent,
	}
	started := time.Now().UTC()
	mockPool.ExpectQuery("INSERT INTO workflow_runs").
		WithArgs("run-1", "client-1", "org-1", models.AgentScholar, models.RunStatusRunning, models.TriggerManual, &parent).
		WillReturnRows(mockPool.NewRows([]string{"started_at"}).AddRow(started))

	require.NoError(t, store.CreateRun(context.Background(), run))
	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.Equal(t, started, run.StartedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRun(t *testing.T) {
	completed := models.RunStatusCompleted

	t.Run("Should update a running run", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		store := NewPostgresStore(mockPool)

		mockPool.ExpectExec(`UPDATE workflow_runs SET status = \$1 WHERE \(?id = \$2 AND status = \$3\)?`).
			WithArgs(completed, "run-1", models.RunStatusRunning).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, store.UpdateRun(context.Background(), "run-1", models.RunPatch{Status: &completed}))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should refuse to touch a finalized run", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		store := NewPostgresStore(mockPool)

		mockPool.ExpectExec("UPDATE workflow_runs").
			WithArgs(completed, "run-1", models.RunStatusRunning).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery("SELECT status FROM workflow_runs").
			WithArgs("run-1").
			WillReturnRows(mockPool.NewRows([]string{"status"}).AddRow(models.RunStatusFailed))

		err = store.UpdateRun(context.Background(), "run-1", models.RunPatch{Status: &completed})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRunFinalized))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report a missing run", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		store := NewPostgresStore(mockPool)

		mockPool.ExpectExec("UPDATE workflow_runs").
			WithArgs(completed, "ghost", models.RunStatusRunning).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery("SELECT status FROM workflow_runs").
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		err = store.UpdateRun(context.Background(), "ghost", models.RunPatch{Status: &completed})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRunNotFound))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should skip an empty patch", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		require.NoError(t, NewPostgresStore(mockPool).UpdateRun(context.Background(), "run-1", models.RunPatch{}))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStore_UpsertKeywords(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	store := NewPostgresStore(mockPool)

	keywords := []models.PrioritizedKeyword{
		{Keyword: "Dental Implants", Volume: 800, Difficulty: 40, Source: models.KeywordSourceResearch, Priority: 2},
		{Keyword: "emergency dentist", Volume: 300, Difficulty: 20, Source: models.KeywordSourceGap, Priority: 1},
		{Keyword: "dental  implants ", Volume: 900, Difficulty: 42, Source: models.KeywordSourceResearch, Priority: 3},
	}
	mockPool.ExpectExec(`INSERT INTO keywords .+ ON CONFLICT \(client_id, keyword\) DO UPDATE`).
		WithArgs(
			"client-1", "dental implants", "run-1", 900, 42, models.KeywordSourceResearch, 3, "",
			"client-1", "emergency dentist", "run-1", 300, 20, models.KeywordSourceGap, 1, "",
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, store.UpsertKeywords(context.Background(), "client-1", "run-1", keywords))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_Checkpoints(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	store := NewPostgresStore(mockPool)
	ctx := context.Background()

	state := []byte(`{"run_id":"run-1"}`)
	mockPool.ExpectExec(`UPDATE workflow_runs SET checkpoint_node = \$2, checkpoint = \$3 WHERE id = \$1 AND status = \$4`).
		WithArgs("run-1", "write_content", state, models.RunStatusRunning).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.SaveCheckpoint(ctx, "run-1", "write_content", state))

	mockPool.ExpectQuery("SELECT checkpoint_node, checkpoint FROM workflow_runs").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, _, found, err := store.LoadCheckpoint(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_CheckpointOnTerminalRun(t *testing.T) {
	state := []byte(`{"run_id":"run-1"}`)

	t.Run("Should refuse a node checkpoint once the run is final", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectExec("UPDATE workflow_runs SET checkpoint_node").
			WithArgs("run-1", "score_seo", state, models.RunStatusRunning).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery("SELECT status FROM workflow_runs").
			WithArgs("run-1").
			WillReturnRows(mockPool.NewRows([]string{"status"}).AddRow(models.RunStatusCancelled))

		err = NewPostgresStore(mockPool).SaveCheckpoint(context.Background(), "run-1", "score_seo", state)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRunFinalized))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should accept the finalize checkpoint", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectExec(`UPDATE workflow_runs SET checkpoint_node = \$2, checkpoint = \$3 WHERE id = \$1$`).
			WithArgs("run-1", FinalCheckpointNode, state).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewPostgresStore(mockPool).SaveCheckpoint(context.Background(), "run-1", FinalCheckpointNode, state))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report a missing run", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectExec("UPDATE workflow_runs SET checkpoint_node").
			WithArgs("ghost", FinalCheckpointNode, state).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery("SELECT status FROM workflow_runs").
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		err = NewPostgresStore(mockPool).SaveCheckpoint(context.Background(), "ghost", FinalCheckpointNode, state)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRunNotFound))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStore_GetClientNotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresStore(mockPool).GetClient(context.Background(), "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
