package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-agents/backend/internal/agents/conductor"
	"seo-agents/backend/internal/agents/ghostwriter"
	"seo-agents/backend/internal/agents/scholar"
	"seo-agents/backend/internal/compliance"
	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/llm"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

type stubSearch struct {
	block chan struct{}
}

func (s stubSearch) TopQueries(ctx context.Context, _ models.Client, _ providers.DateRange) ([]providers.QueryStat, error) {
	if s.block != nil {
		close(s.block)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []providers.QueryStat{{Query: "dentist austin", Impressions: 300}}, nil
}

type stubResearch struct{}

func (stubResearch) BulkKeywordResearch(context.Context, []string) ([]providers.KeywordMetric, error) {
	return []providers.KeywordMetric{
		{Keyword: "dental implants austin", Volume: 900},
		{Keyword: "teeth whitening austin", Volume: 700},
	}, nil
}

func (stubResearch) CompetitorKeywords(context.Context, string) ([]providers.KeywordMetric, error) {
	return nil, nil
}

type okCredentials struct{}

func (okCredentials) Refresh(context.Context, models.Client) error { return nil }

const prioritized = `{"keywords": [
  {"keyword": "dental implants austin", "volume": 900, "difficulty": 30, "source": "research"},
  {"keyword": "teeth whitening austin", "volume": 700, "difficulty": 20, "source": "research"}
], "topics": [
  {"keyword": "dental implants austin", "suggested_title": "Dental Implants in Austin", "angle": "cost", "estimated_volume": 900},
  {"keyword": "teeth whitening austin", "suggested_title": "Teeth Whitening in Austin", "angle": "options", "estimated_volume": 700}
]}`

// model answers every workflow prompt with deterministic output.
var model = llm.CompleterFunc(func(_ context.Context, p llm.Prompt, _ int) (string, error) {
	switch {
	case strings.Contains(p.System, "SEO strategist"):
		return prioritized, nil
	case strings.Contains(p.System, "You plan SEO articles"):
		kw := "dental implants austin"
		if strings.Contains(p.User, "teeth whitening") {
			kw = "teeth whitening austin"
		}
		return `{"title": "Guide", "target_keyword": "` + kw + `", "sections": ["One", "Two"], "target_word_count": 300}`, nil
	default:
		return "# A Practical Guide\n\nOur team explains each step of the visit in plain language.\n", nil
	}
})

func newService(t *testing.T, search providers.SearchPerformance) (*AgentService, *repository.MemoryStore, *[]models.RunSummary) {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertOrganization(ctx, &models.Organization{ID: "org-1", Name: "Acme Dental Group"}))
	require.NoError(t, store.UpsertClient(ctx, &models.Client{
		ID: "client-1", OrgID: "org-1", PracticeName: "Bright Smile Dental",
		Vertical: models.VerticalDental, Services: []string{"implants"}, Location: "Austin, TX",
		AccountHealth: models.AccountHealthActive,
	}))

	logger := logging.NewForTest()
	var (
		mu       sync.Mutex
		finished []models.RunSummary
	)
	svc, err := NewAgentService(store, Deps{
		Search:      search,
		Research:    stubResearch{},
		Model:       model,
		Compliance:  compliance.NewEngine(nil, logger),
		Credentials: okCredentials{},
	}, Config{
		Scholar:     scholar.Config{LookbackDays: 90, MinVolume: 20, MaxDifficulty: 60, MaxOutputTokens: 1000},
		Ghostwriter: ghostwriter.Config{MaxRewriteAttempts: 2, MaxOutputTokens: 1000},
		Conductor:   conductor.Config{MaxTopics: 2},
		NodeTimeout: time.Minute,
		OnFinish: func(_ context.Context, s models.RunSummary) {
			mu.Lock()
			finished = append(finished, s)
			mu.Unlock()
		},
	}, logger)
	require.NoError(t, err)
	return svc, store, &finished
}

func TestRunConductor_EndToEnd(t *testing.T) {
	svc, store, finished := newService(t, stubSearch{})
	ctx := context.Background()

	summary, err := svc.RunConductor(ctx, "client-1", "", models.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, summary.Status)
	assert.Equal(t, 2, summary.Counts["contentPiecesGenerated"])
	assert.Len(t, store.ContentPieces("client-1"), 2)

	items, err := store.ListQueueItems(ctx, "client-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, models.VerdictPass, item.VerdictStatus)
	}

	nested, err := store.ListRuns(ctx, repository.RunFilter{ParentRunID: summary.RunID})
	require.NoError(t, err)
	require.Len(t, nested, 3)
	for _, run := range nested {
		assert.Equal(t, models.TriggerScheduled, run.Trigger)
		assert.Equal(t, models.RunStatusCompleted, run.Status)
	}
	assert.Len(t, *finished, 4)
}

func TestRunScholar_ClientOfAnotherOrg(t *testing.T) {
	svc, _, _ := newService(t, stubSearch{})
	_, err := svc.RunScholar(context.Background(), "client-1", "org-2", models.TriggerManual)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRunConductor_ClientOfAnotherOrg(t *testing.T) {
	svc, store, summaries := newService(t, stubSearch{})
	_, err := svc.RunConductor(context.Background(), "client-1", "org-2", models.TriggerManual)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	runs, err := store.ListRuns(context.Background(), repository.RunFilter{ClientID: "client-1"})
	require.NoError(t, err)
	assert.Empty(t, runs, "no run is recorded against a client of another organization")
	assert.Empty(t, *summaries)
}

func TestCancel_FinalizesRunAsCancelled(t *testing.T) {
	started := make(chan struct{})
	svc, store, _ := newService(t, stubSearch{block: started})

	type result struct {
		summary models.RunSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := svc.RunScholar(context.Background(), "client-1", "org-1", models.TriggerManual)
		done <- result{s, err}
	}()

	<-started
	runs, err := store.ListRuns(context.Background(), repository.RunFilter{Status: models.RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, svc.Cancel(runs[0].ID))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, models.RunStatusCancelled, r.summary.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	run, err := store.GetRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, run.Status)
	assert.False(t, svc.Cancel(runs[0].ID))
}

func TestResume(t *testing.T) {
	svc, store, _ := newService(t, stubSearch{})
	ctx := context.Background()

	summary, err := svc.RunScholar(ctx, "client-1", "org-1", models.TriggerManual)
	require.NoError(t, err)

	again, err := svc.Resume(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, again.Status)

	require.NoError(t, store.CreateRun(ctx, &models.WorkflowRun{
		ID: "orphan", ClientID: "client-1", OrgID: "org-1", Agent: models.AgentScholar,
		Status: models.RunStatusRunning, Trigger: models.TriggerManual, StartedAt: time.Now(),
	}))
	_, err = svc.Resume(ctx, "orphan")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoCheckpoint))

	_, err = svc.Resume(ctx, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRunNotFound))
}
