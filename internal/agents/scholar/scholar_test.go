package scholar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/llm"
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

type stubSearch struct {
	queries []providers.QueryStat
	err     error
}

func (s stubSearch) TopQueries(context.Context, models.Client, providers.DateRange) ([]providers.QueryStat, error) {
	return s.queries, s.err
}

type stubResearch struct {
	bulk       []providers.KeywordMetric
	competitor map[string][]providers.KeywordMetric
	seeds      []string
}

func (s *stubResearch) BulkKeywordResearch(_ context.Context, seeds []string) ([]providers.KeywordMetric, error) {
	s.seeds = seeds
	return s.bulk, nil
}

func (s *stubResearch) CompetitorKeywords(_ context.Context, domain string) ([]providers.KeywordMetric, error) {
	return s.competitor[domain], nil
}

func difficulty(v int) *int { return &v }

func testClient() models.Client {
	return models.Client{
		ID:            "client-1",
		OrgID:         "org-1",
		PracticeName:  "Bright Smile Dental",
		Vertical:      models.VerticalDental,
		Services:      []string{"Dental Implants", "Teeth Whitening"},
		Location:      "Austin, TX",
		WebsiteDomain: "brightsmile.example",
		Competitors:   []string{"rival.example"},
		AccountHealth: models.AccountHealthActive,
	}
}

func setup(t *testing.T, model llm.Completer, search providers.SearchPerformance, research providers.KeywordResearch) (*Agent, *repository.MemoryStore, State) {
	t.Helper()
	store := repository.NewMemoryStore()
	client := testClient()
	require.NoError(t, store.UpsertClient(context.Background(), &client))
	run := &models.WorkflowRun{
		ID:        "run-1",
		ClientID:  client.ID,
		OrgID:     client.OrgID,
		Agent:     models.AgentScholar,
		Status:    models.RunStatusRunning,
		Trigger:   models.TriggerManual,
		StartedAt: time.Now(),
	}
	require.NoError(t, store.CreateRun(context.Background(), run))

	agent, err := New(Deps{
		Search:   search,
		Research: research,
		Model:    model,
		Keywords: store,
		Runs:     store,
		Now:      func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	}, Config{LookbackDays: 90, MinVolume: 20, MaxDifficulty: 60, MaxOutputTokens: 2000})
	require.NoError(t, err)
	return agent, store, NewState(run, client)
}

func TestGapAnalysis(t *testing.T) {
	observed := []providers.QueryStat{{Query: "Dental Implants Austin", Impressions: 400}}
	researched := []providers.KeywordMetric{{Keyword: "teeth whitening", Volume: 900, Difficulty: difficulty(30)}}
	competitor := []providers.KeywordMetric{
		{Keyword: "dental implants  austin", Volume: 800, Difficulty: difficulty(20)}, // already ranked
		{Keyword: "Teeth Whitening", Volume: 900},                                    // already researched
		{Keyword: "invisalign cost", Volume: 500, Difficulty: difficulty(40)},
		{Keyword: "Invisalign Cost", Volume: 650, Difficulty: difficulty(40)},
		{Keyword: "emergency dentist", Volume: 1200},
		{Keyword: "veneers", Volume: 10, Difficulty: difficulty(5)},
		{Keyword: "root canal", Volume: 700, Difficulty: difficulty(85)},
		{Keyword: "dental bonding", Volume: 650, Difficulty: difficulty(10)},
	}

	gaps := GapAnalysis(observed, researched, competitor, GapFilter{MinVolume: 20, MaxDifficulty: 60})

	require.Len(t, gaps, 3)
	assert.Equal(t, "emergency dentist", gaps[0].Keyword)
	assert.Equal(t, 0, gaps[0].Difficulty)
	assert.Equal(t, "dental bonding", gaps[1].Keyword)
	assert.Equal(t, "invisalign cost", gaps[2].Keyword)
	assert.Equal(t, 650, gaps[2].Volume)
	for _, g := range gaps {
		assert.Equal(t, models.KeywordSourceGap, g.Source)
		assert.GreaterOrEqual(t, g.Volume, 20)
		assert.LessOrEqual(t, g.Difficulty, 60)
	}
}

func TestSeeds(t *testing.T) {
	seeds := Seeds(testClient(), []providers.QueryStat{
		{Query: "dental implants", Impressions: 10},
		{Query: "Best Dentist Austin", Impressions: 300},
	})
	assert.Equal(t, []string{
		"dental implants",
		"dental implants austin",
		"teeth whitening",
		"teeth whitening austin",
		"best dentist austin",
	}, seeds)
}

func TestRun_Completes(t *testing.T) {
	research := &stubResearch{
		bulk: []providers.KeywordMetric{{Keyword: "dental implants austin", Volume: 880, Difficulty: difficulty(35)}},
		competitor: map[string][]providers.KeywordMetric{
			"rival.example": {{Keyword: "emergency dentist austin", Volume: 600, Difficulty: difficulty(25)}},
		},
	}
	var prompts []llm.Prompt
	model := llm.CompleterFunc(func(_ context.Context, p llm.Prompt, budget int) (string, error) {
		prompts = append(prompts, p)
		assert.Equal(t, 2000, budget)
		return "Here you go:\n```json\n" + `{
  "keywords": [
    {"keyword": "Dental Implants Austin", "volume": 880, "difficulty": 35, "source": "research", "intent": "transactional"},
    {"keyword": "emergency dentist austin", "volume": 600, "difficulty": 25}
  ],
  "topics": [
    {"keyword": "dental implants austin", "suggested_title": "Dental Implants in Austin", "angle": "cost and process", "estimated_volume": 880}
  ]
}` + "\n```", nil
	})
	agent, store, state := setup(t, model, stubSearch{queries: []providers.QueryStat{{Query: "implant dentist", Impressions: 120}}}, research)

	out, err := agent.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, out.FinalStatus)
	require.Len(t, out.Keywords, 2)
	assert.Equal(t, "dental implants austin", out.Keywords[0].Keyword)
	assert.Equal(t, 1, out.Keywords[0].Priority)
	assert.Equal(t, 2, out.Keywords[1].Priority)
	assert.Equal(t, models.KeywordSourceGap, out.Keywords[1].Source)
	require.Len(t, out.Topics, 1)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].User, "emergency dentist austin")

	stored, err := store.ListKeywords(context.Background(), "client-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Result["keywordCount"])
	assert.Equal(t, 1, run.Result["topicCount"])
	assert.NotNil(t, run.CompletedAt)
}

func TestRun_DuplicateModelKeywordsAreCountedOnce(t *testing.T) {
	research := &stubResearch{
		bulk: []providers.KeywordMetric{{Keyword: "dental implants austin", Volume: 880, Difficulty: difficulty(35)}},
	}
	model := llm.CompleterFunc(func(context.Context, llm.Prompt, int) (string, error) {
		return `{
  "keywords": [
    {"keyword": "Dental Implants Austin", "volume": 880, "difficulty": 35},
    {"keyword": "teeth whitening austin", "volume": 300, "difficulty": 20},
    {"keyword": "dental  implants austin", "volume": 10, "difficulty": 90}
  ],
  "topics": []
}`, nil
	})
	agent, store, state := setup(t, model, stubSearch{}, research)

	out, err := agent.Run(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, out.Keywords, 2)
	assert.Equal(t, "dental implants austin", out.Keywords[0].Keyword)
	assert.Equal(t, 880, out.Keywords[0].Volume)
	assert.Equal(t, 2, out.Keywords[1].Priority)

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Result["keywordCount"])
}

func TestRun_InvalidModelOutputFailsRun(t *testing.T) {
	research := &stubResearch{bulk: []providers.KeywordMetric{{Keyword: "dental implants", Volume: 500}}}
	model := llm.CompleterFunc(func(context.Context, llm.Prompt, int) (string, error) {
		return `{"keywords": [{"keyword": "", "volume": -4}], "topics": []}`, nil
	})
	agent, store, state := setup(t, model, stubSearch{}, research)

	out, err := agent.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, out.FinalStatus)
	assert.Contains(t, out.Error, apperrors.CodeOutputValidation)
	assert.False(t, out.Saved)

	stored, err := store.ListKeywords(context.Background(), "client-1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	require.NotNil(t, run.Error)
}

func TestRun_ProviderErrorFailsRun(t *testing.T) {
	calls := 0
	model := llm.CompleterFunc(func(context.Context, llm.Prompt, int) (string, error) {
		calls++
		return "{}", nil
	})
	search := stubSearch{err: apperrors.ProviderUnavailable("search_console", "top_queries", errors.New("503"))}
	agent, _, state := setup(t, model, search, &stubResearch{})

	out, err := agent.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, out.FinalStatus)
	assert.Contains(t, out.Error, apperrors.CodeProviderUnavailable)
	assert.Zero(t, calls)
}

func TestRun_EmptyPoolSkipsModel(t *testing.T) {
	calls := 0
	model := llm.CompleterFunc(func(context.Context, llm.Prompt, int) (string, error) {
		calls++
		return "", nil
	})
	agent, _, state := setup(t, model, stubSearch{}, &stubResearch{})

	out, err := agent.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, out.FinalStatus)
	assert.Zero(t, calls)
	assert.Empty(t, out.Keywords)
	assert.Equal(t, 0, out.Result()["keywordCount"])
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	agent, store, state := setup(t, llm.CompleterFunc(func(context.Context, llm.Prompt, int) (string, error) {
		return "{}", nil
	}), stubSearch{}, &stubResearch{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := agent.Run(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, out.FinalStatus)

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, run.Status)
}
