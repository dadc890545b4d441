// Package agents holds what the Scholar, Ghostwriter and Conductor workflows
// share: terminal status derivation, the finalize write, and step logging.
package agents

import (
	"context"
	"time"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/graph"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

// Node names shared by every workflow.
const NodeFinalize = graph.Node(repository.FinalCheckpointNode)

// Status derives a terminal run status from a state's tombstones.
func Status(errMsg string, cancelled bool) models.RunStatus {
	switch {
	case cancelled:
		return models.RunStatusCancelled
	case errMsg != "":
		return models.RunStatusFailed
	default:
		return models.RunStatusCompleted
	}
}

// Finalize writes the terminal status and result of a run. A run that is
// already final is left alone so a resumed finalize stays idempotent.
func Finalize(ctx context.Context, runs repository.RunStore, runID string, status models.RunStatus, errMsg string, result map[string]any) error {
	now := time.Now().UTC()
	patch := models.RunPatch{
		Status:      &status,
		Result:      result,
		CompletedAt: &now,
	}
	if errMsg != "" {
		patch.Error = &errMsg
	}
	err := runs.UpdateRun(ctx, runID, patch)
	if apperrors.HasCode(err, apperrors.CodeRunFinalized) {
		return nil
	}
	return err
}

// StepLogger logs every node transition.
func StepLogger(logger *logging.Logger) graph.StepHook {
	return func(_ context.Context, s graph.Step) {
		if s.Err != nil {
			logger.Warn("Node failed",
				"workflow", s.Workflow, "run_id", s.RunID, "node", s.Node,
				"duration", s.Duration, "code", apperrors.Code(s.Err), "error", s.Err)
			return
		}
		logger.Debug("Node completed",
			"workflow", s.Workflow, "run_id", s.RunID, "node", s.Node, "duration", s.Duration)
	}
}
