// Package scholar implements the keyword research workflow: search data,
// keyword research and competitor keywords feed a gap analysis and a ranked
// keyword and topic list.
package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"seo-agents/backend/internal/agents"
	"seo-agents/backend/internal/graph"
	"seo-agents/backend/internal/llm"
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

// Node names.
const (
	NodeFetchSearchConsole graph.Node = "fetch_search_console_data"
	NodeResearchKeywords   graph.Node = "research_keywords"
	NodeAnalyzeCompetitors graph.Node = "analyze_competitors"
	NodeGapAnalysis        graph.Node = "gap_analysis"
	NodePrioritize         graph.Node = "prioritize"
	NodeSaveResults        graph.Node = "save_results"
)

const (
	maxKeywords  = 30
	maxTopics    = 10
	maxSeeds     = 50
	maxQuerySeed = 20
	maxPool      = 100
)

// Config tunes the workflow.
type Config struct {
	LookbackDays    int
	MinVolume       int
	MaxDifficulty   int
	MaxOutputTokens int
}

// Deps are the collaborators the nodes call.
type Deps struct {
	Search   providers.SearchPerformance
	Research providers.KeywordResearch
	Model    llm.Completer
	Keywords repository.KeywordStore
	Runs     repository.RunStore
	Now      func() time.Time
}

// Agent runs Scholar workflows.
type Agent struct {
	deps  Deps
	cfg   Config
	graph *graph.Graph[State, Patch]
}

// New compiles the Scholar graph.
func New(deps Deps, cfg Config, opts ...graph.Option) (*Agent, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	a := &Agent{deps: deps, cfg: cfg}
	g, err := graph.New[State, Patch]("scholar").
		AddNode(NodeFetchSearchConsole, a.fetchSearchConsole).
		AddNode(NodeResearchKeywords, a.researchKeywords).
		AddNode(NodeAnalyzeCompetitors, a.analyzeCompetitors).
		AddNode(NodeGapAnalysis, a.gapAnalysis).
		AddNode(NodePrioritize, a.prioritize).
		AddNode(NodeSaveResults, a.saveResults).
		AddNode(agents.NodeFinalize, a.finalize).
		AddEdge(NodeFetchSearchConsole, NodeResearchKeywords).
		AddEdge(NodeResearchKeywords, NodeAnalyzeCompetitors).
		AddEdge(NodeAnalyzeCompetitors, NodeGapAnalysis).
		AddEdge(NodeGapAnalysis, NodePrioritize).
		AddEdge(NodePrioritize, NodeSaveResults).
		AddEdge(NodeSaveResults, agents.NodeFinalize).
		AddEdge(agents.NodeFinalize, graph.End).
		SetStart(NodeFetchSearchConsole).
		SetFailureNode(agents.NodeFinalize).
		Compile(opts...)
	if err != nil {
		return nil, err
	}
	a.graph = g
	return a, nil
}

// Run executes a new run from its first node.
func (a *Agent) Run(ctx context.Context, state State) (State, error) {
	return a.graph.Run(ctx, state.RunID, state)
}

// Resume continues a run from its last checkpoint.
func (a *Agent) Resume(ctx context.Context, runID string) (State, error) {
	return a.graph.Resume(ctx, runID)
}

func (a *Agent) fetchSearchConsole(ctx context.Context, s State) (Patch, error) {
	queries, err := a.deps.Search.TopQueries(ctx, s.Client, providers.Trailing(a.deps.Now(), a.cfg.LookbackDays))
	if err != nil {
		return Patch{}, err
	}
	return Patch{Queries: &queries}, nil
}

func (a *Agent) researchKeywords(ctx context.Context, s State) (Patch, error) {
	metrics, err := a.deps.Research.BulkKeywordResearch(ctx, Seeds(s.Client, s.Queries))
	if err != nil {
		return Patch{}, err
	}
	return Patch{Researched: &metrics}, nil
}

func (a *Agent) analyzeCompetitors(ctx context.Context, s State) (Patch, error) {
	var all []providers.KeywordMetric
	for _, domain := range s.Client.Competitors {
		metrics, err := a.deps.Research.CompetitorKeywords(ctx, domain)
		if err != nil {
			return Patch{}, err
		}
		all = append(all, metrics...)
	}
	return Patch{Competitor: &all}, nil
}

func (a *Agent) gapAnalysis(_ context.Context, s State) (Patch, error) {
	gaps := GapAnalysis(s.Queries, s.Researched, s.Competitor, GapFilter{
		MinVolume:     a.cfg.MinVolume,
		MaxDifficulty: a.cfg.MaxDifficulty,
	})
	return Patch{Gaps: &gaps}, nil
}

type prioritizedOutput struct {
	Keywords []models.PrioritizedKeyword `json:"keywords" validate:"max=30,dive"`
	Topics   []models.ContentTopic       `json:"topics" validate:"max=10,dive"`
}

func (a *Agent) prioritize(ctx context.Context, s State) (Patch, error) {
	pool := a.candidatePool(s)
	if len(pool) == 0 {
		none := []models.PrioritizedKeyword{}
		noTopics := []models.ContentTopic{}
		return Patch{Keywords: &none, Topics: &noTopics}, nil
	}

	candidates, err := json.Marshal(pool)
	if err != nil {
		return Patch{}, err
	}
	resp, err := a.deps.Model.Complete(ctx, llm.Prompt{
		System: prioritizeSystemPrompt,
		User:   fmt.Sprintf(prioritizeUserPrompt, describeClient(s.Client), string(candidates)),
	}, a.cfg.MaxOutputTokens)
	if err != nil {
		return Patch{}, err
	}
	out, err := llm.DecodeStrict[prioritizedOutput]("prioritize", resp)
	if err != nil {
		return Patch{}, err
	}

	sources := make(map[string]models.KeywordSource, len(pool))
	for _, kw := range pool {
		sources[kw.Keyword] = kw.Source
	}
	// the model may repeat a keyword in another casing; its first rank wins
	seen := make(map[string]struct{}, len(out.Keywords))
	keywords := make([]models.PrioritizedKeyword, 0, len(out.Keywords))
	for _, kw := range out.Keywords {
		kw.Keyword = repository.NormalizeKeyword(kw.Keyword)
		if kw.Keyword == "" {
			continue
		}
		if _, dup := seen[kw.Keyword]; dup {
			continue
		}
		seen[kw.Keyword] = struct{}{}
		if kw.Priority == 0 {
			kw.Priority = len(keywords) + 1
		}
		if kw.Source == "" {
			kw.Source = sources[kw.Keyword]
		}
		keywords = append(keywords, kw)
	}
	topics := out.Topics
	if topics == nil {
		topics = []models.ContentTopic{}
	}
	return Patch{Keywords: &keywords, Topics: &topics}, nil
}

func (a *Agent) saveResults(ctx context.Context, s State) (Patch, error) {
	if err := a.deps.Keywords.UpsertKeywords(ctx, s.ClientID, s.RunID, s.Keywords); err != nil {
		return Patch{}, err
	}
	return Patch{Saved: ptr(true)}, nil
}

func (a *Agent) finalize(ctx context.Context, s State) (Patch, error) {
	status := agents.Status(s.Error, s.Cancelled)
	if err := agents.Finalize(ctx, a.deps.Runs, s.RunID, status, s.Error, s.Result()); err != nil {
		return Patch{}, err
	}
	return Patch{FinalStatus: &status}, nil
}

// candidatePool merges researched, gap and observed keywords for ranking,
// researched first, limited to the highest-volume candidates.
func (a *Agent) candidatePool(s State) []models.PrioritizedKeyword {
	seen := make(map[string]struct{})
	var pool []models.PrioritizedKeyword
	add := func(kw models.PrioritizedKeyword) {
		kw.Keyword = repository.NormalizeKeyword(kw.Keyword)
		if kw.Keyword == "" {
			return
		}
		if _, dup := seen[kw.Keyword]; dup {
			return
		}
		seen[kw.Keyword] = struct{}{}
		pool = append(pool, kw)
	}
	for _, r := range s.Researched {
		difficulty := 0
		if r.Difficulty != nil {
			difficulty = *r.Difficulty
		}
		if r.Volume < a.cfg.MinVolume || difficulty > a.cfg.MaxDifficulty {
			continue
		}
		add(models.PrioritizedKeyword{Keyword: r.Keyword, Volume: r.Volume, Difficulty: difficulty, Source: models.KeywordSourceResearch})
	}
	for _, g := range s.Gaps {
		add(g)
	}
	for _, q := range s.Queries {
		add(models.PrioritizedKeyword{Keyword: q.Query, Volume: q.Impressions, Source: models.KeywordSourceSearchConsole})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Volume > pool[j].Volume })
	if len(pool) > maxPool {
		pool = pool[:maxPool]
	}
	return pool
}

// Seeds builds research seed terms from the practice's services, its city
// and its best-performing search queries.
func Seeds(client models.Client, queries []providers.QueryStat) []string {
	city := strings.TrimSpace(strings.Split(client.Location, ",")[0])
	seen := make(map[string]struct{})
	var seeds []string
	add := func(s string) {
		s = repository.NormalizeKeyword(s)
		if s == "" || len(seeds) >= maxSeeds {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		seeds = append(seeds, s)
	}
	for _, svc := range client.Services {
		add(svc)
		if city != "" {
			add(svc + " " + city)
		}
	}
	top := append([]providers.QueryStat(nil), queries...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Impressions > top[j].Impressions })
	for i, q := range top {
		if i >= maxQuerySeed {
			break
		}
		add(q.Query)
	}
	return seeds
}
