package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"seo-agents/backend/pkg/models"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunScholar(ctx context.Context, clientID, orgID string, trigger models.Trigger) (models.RunSummary, error) {
	args := m.Called(ctx, clientID, orgID, trigger)
	return args.Get(0).(models.RunSummary), args.Error(1)
}

func (m *mockRunner) RunGhostwriter(ctx context.Context, clientID, orgID string, topic models.ContentTopic, trigger models.Trigger) (models.RunSummary, error) {
	args := m.Called(ctx, clientID, orgID, topic, trigger)
	return args.Get(0).(models.RunSummary), args.Error(1)
}

func (m *mockRunner) RunConductor(ctx context.Context, clientID, orgID string, trigger models.Trigger) (models.RunSummary, error) {
	args := m.Called(ctx, clientID, orgID, trigger)
	return args.Get(0).(models.RunSummary), args.Error(1)
}

func (m *mockRunner) Resume(ctx context.Context, runID string) (models.RunSummary, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(models.RunSummary), args.Error(1)
}

func (m *mockRunner) Cancel(runID string) bool {
	return m.Called(runID).Bool(0)
}

type fixedChecker struct {
	verdict models.Verdict
}

func (f fixedChecker) Check(context.Context, string, models.Vertical) models.Verdict {
	return f.verdict
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestRunGhostwriter_DefaultsTitleAndAngle(t *testing.T) {
	runner := &mockRunner{}
	topic := models.ContentTopic{Keyword: "teeth whitening", SuggestedTitle: "teeth whitening", Angle: "informational"}
	runner.On("RunGhostwriter", mock.Anything, "client-1", "", topic, models.TriggerManual).
		Return(models.RunSummary{RunID: "run-7", Status: models.RunStatusCompleted}, nil)
	s := NewServer(runner, fixedChecker{})

	res, err := s.handleRunGhostwriter(context.Background(), call(map[string]any{
		"client_id": "client-1",
		"keyword":   "teeth whitening",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var summary models.RunSummary
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &summary))
	assert.Equal(t, "run-7", summary.RunID)
	runner.AssertExpectations(t)
}

func TestRunScholar_MissingClient(t *testing.T) {
	runner := &mockRunner{}
	s := NewServer(runner, fixedChecker{})

	res, err := s.handleRunScholar(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	runner.AssertNotCalled(t, "RunScholar", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunConductor_ErrorIsToolError(t *testing.T) {
	runner := &mockRunner{}
	runner.On("RunConductor", mock.Anything, "client-1", "org-1", models.TriggerManual).
		Return(models.RunSummary{}, errors.New("client not found"))
	s := NewServer(runner, fixedChecker{})

	res, err := s.handleRunConductor(context.Background(), call(map[string]any{"client_id": "client-1", "org_id": "org-1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "client not found")
}

func TestCheckCompliance(t *testing.T) {
	want := models.Verdict{Status: models.VerdictBlock}
	s := NewServer(&mockRunner{}, fixedChecker{verdict: want})

	res, err := s.handleCheckCompliance(context.Background(), call(map[string]any{
		"text":     "We guarantee results.",
		"vertical": "dental",
	}))
	require.NoError(t, err)

	var got models.Verdict
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, models.VerdictBlock, got.Status)
}

func TestCancelRun(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Cancel", "live").Return(true)
	runner.On("Cancel", "idle").Return(false)
	s := NewServer(runner, fixedChecker{})

	res, err := s.handleCancelRun(context.Background(), call(map[string]any{"run_id": "live"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleCancelRun(context.Background(), call(map[string]any{"run_id": "idle"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
