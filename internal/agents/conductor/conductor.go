// Package conductor orchestrates a full content cycle for one client: a
// health gate, a Scholar run, then one isolated Ghostwriter run per top
// topic.
package conductor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"seo-agents/backend/internal/agents"
	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/graph"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

// Node names.
const (
	NodeCheckHealth    graph.Node = "check_health"
	NodeRunScholar     graph.Node = "run_scholar"
	NodeRunGhostwriter graph.Node = "run_ghostwriter"
)

// ScholarResult is what the Conductor needs from a nested Scholar run.
type ScholarResult struct {
	RunID        string
	Status       models.RunStatus
	Error        string
	KeywordCount int
	Topics       []models.ContentTopic
}

// GhostwriterResult is what the Conductor needs from a nested Ghostwriter run.
type GhostwriterResult struct {
	RunID          string
	Status         models.RunStatus
	Error          string
	ContentPieceID string
}

// Runner starts nested runs recorded under parentRunID.
type Runner interface {
	Scholar(ctx context.Context, client models.Client, parentRunID string) (ScholarResult, error)
	Ghostwriter(ctx context.Context, client models.Client, topic models.ContentTopic, parentRunID string) (GhostwriterResult, error)
}

// Config tunes the workflow.
type Config struct {
	MaxTopics int
}

// Deps are the collaborators the nodes call.
type Deps struct {
	Clients     repository.ClientStore
	Credentials providers.Credentials
	Runner      Runner
	Runs        repository.RunStore
	Logger      *logging.Logger
}

// Agent runs Conductor workflows.
type Agent struct {
	deps  Deps
	cfg   Config
	graph *graph.Graph[State, Patch]
}

// New compiles the Conductor graph.
func New(deps Deps, cfg Config, opts ...graph.Option) (*Agent, error) {
	if deps.Logger == nil {
		deps.Logger = logging.NewLogger()
	}
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = 2
	}
	a := &Agent{deps: deps, cfg: cfg}
	g, err := graph.New[State, Patch]("conductor").
		AddNode(NodeCheckHealth, a.checkHealth).
		AddNode(NodeRunScholar, a.runScholar).
		AddNode(NodeRunGhostwriter, a.runGhostwriter).
		AddNode(agents.NodeFinalize, a.finalize).
		AddConditionalEdge(NodeCheckHealth, afterHealth, NodeRunScholar, agents.NodeFinalize).
		AddConditionalEdge(NodeRunScholar, afterScholar, NodeRunGhostwriter, agents.NodeFinalize).
		AddEdge(NodeRunGhostwriter, agents.NodeFinalize).
		AddEdge(agents.NodeFinalize, graph.End).
		SetStart(NodeCheckHealth).
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

func afterHealth(s State) graph.Node {
	if s.Client == nil {
		return agents.NodeFinalize
	}
	return NodeRunScholar
}

func afterScholar(s State) graph.Node {
	if len(s.Topics) == 0 {
		return agents.NodeFinalize
	}
	return NodeRunGhostwriter
}

func (a *Agent) checkHealth(ctx context.Context, s State) (Patch, error) {
	client, err := a.deps.Clients.GetClient(ctx, s.ClientID)
	if err != nil {
		return Patch{}, apperrors.Wrapf(apperrors.CodeHealthCheck, err, "client %s could not be loaded", s.ClientID).
			WithDetail("client_id", s.ClientID)
	}
	if s.OrgID != "" && client.OrgID != s.OrgID {
		return Patch{}, apperrors.Newf(apperrors.CodeHealthCheck, "client %s does not belong to organization %s", client.ID, s.OrgID).
			WithDetail("client_id", client.ID).
			WithDetail("org_id", s.OrgID)
	}
	if !client.IsActive() {
		return Patch{}, apperrors.Newf(apperrors.CodeHealthCheck, "client %s account health is %s", client.ID, client.AccountHealth).
			WithDetail("client_id", client.ID).
			WithDetail("account_health", client.AccountHealth)
	}
	if err := a.deps.Credentials.Refresh(ctx, *client); err != nil {
		if apperrors.Code(err) == "" {
			err = apperrors.Wrapf(apperrors.CodeCredentials, err, "credentials for client %s could not be refreshed", client.ID)
		}
		return Patch{}, err
	}
	return Patch{Client: client}, nil
}

func (a *Agent) runScholar(ctx context.Context, s State) (Patch, error) {
	res, err := a.deps.Runner.Scholar(ctx, *s.Client, s.RunID)
	if err != nil {
		return Patch{}, apperrors.Wrap(apperrors.CodeSubRunFailed, "scholar run could not start", err)
	}
	if res.Status != models.RunStatusCompleted {
		return Patch{}, apperrors.Newf(apperrors.CodeSubRunFailed, "scholar run %s ended %s: %s", res.RunID, res.Status, res.Error).
			WithDetail("sub_run_id", res.RunID)
	}
	topics := res.Topics
	if topics == nil {
		topics = []models.ContentTopic{}
	}
	return Patch{ScholarRunID: &res.RunID, KeywordCount: &res.KeywordCount, Topics: &topics}, nil
}

type topicOutcome struct {
	result GhostwriterResult
	err    error
}

// runGhostwriter fans out one Ghostwriter run per selected topic. Each run
// owns its own state; a failed or panicking run only removes its topic.
func (a *Agent) runGhostwriter(ctx context.Context, s State) (Patch, error) {
	topics := s.Topics
	if len(topics) > a.cfg.MaxTopics {
		topics = topics[:a.cfg.MaxTopics]
	}
	client := *s.Client
	outcomes := make([]topicOutcome, len(topics))

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for i, topic := range topics {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					outcomes[i].err = fmt.Errorf("ghostwriter panicked: %v", r)
					mu.Unlock()
				}
			}()
			res, err := a.deps.Runner.Ghostwriter(ctx, client, topic, s.RunID)
			mu.Lock()
			outcomes[i] = topicOutcome{result: res, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	runIDs := []string{}
	failed := []string{}
	pieces := 0
	for i, o := range outcomes {
		if o.result.RunID != "" {
			runIDs = append(runIDs, o.result.RunID)
		}
		switch {
		case o.err != nil:
			a.deps.Logger.Warn("Ghostwriter run failed", "run_id", s.RunID, "topic", topics[i].Keyword, "error", o.err)
		case o.result.Status != models.RunStatusCompleted || o.result.ContentPieceID == "":
			a.deps.Logger.Warn("Ghostwriter run produced no content",
				"run_id", s.RunID, "sub_run_id", o.result.RunID, "topic", topics[i].Keyword,
				"status", o.result.Status, "error", o.result.Error)
		default:
			pieces++
			continue
		}
		failed = append(failed, topics[i].Keyword)
	}
	return Patch{GhostwriterRunIDs: &runIDs, FailedTopics: &failed, ContentPieces: &pieces}, nil
}

func (a *Agent) finalize(ctx context.Context, s State) (Patch, error) {
	status := agents.Status(s.Error, s.Cancelled)
	if err := agents.Finalize(ctx, a.deps.Runs, s.RunID, status, s.Error, s.Result()); err != nil {
		return Patch{}, err
	}
	return Patch{FinalStatus: &status}, nil
}
