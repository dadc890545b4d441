package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"seo-agents/backend/internal/agents"
	"seo-agents/backend/internal/agents/conductor"
	"seo-agents/backend/internal/agents/ghostwriter"
	"seo-agents/backend/internal/agents/scholar"
	"seo-agents/backend/internal/compliance"
	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/graph"
	"seo-agents/backend/internal/llm"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

// Deps are the providers shared by every workflow.
type Deps struct {
	Search      providers.SearchPerformance
	Research    providers.KeywordResearch
	Model       llm.Completer
	Compliance  compliance.Checker
	Credentials providers.Credentials
}

// Config carries the per-workflow settings.
type Config struct {
	Scholar     scholar.Config
	Ghostwriter ghostwriter.Config
	Conductor   conductor.Config
	NodeTimeout time.Duration
	Hooks       []graph.StepHook
	// OnFinish is called with the summary of every run, nested ones included.
	OnFinish func(ctx context.Context, summary models.RunSummary)
}

// AgentService runs workflows against a store that also holds checkpoints.
type AgentService struct {
	store       repository.Store
	scholar     *scholar.Agent
	ghostwriter *ghostwriter.Agent
	conductor   *conductor.Agent
	onFinish    func(ctx context.Context, summary models.RunSummary)
	logger      *logging.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

var _ AgentRunner = (*AgentService)(nil)

// NewAgentService compiles the three workflows.
func NewAgentService(store repository.Store, deps Deps, cfg Config, logger *logging.Logger) (*AgentService, error) {
	s := &AgentService{
		store:    store,
		onFinish: cfg.OnFinish,
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
	opts := []graph.Option{
		graph.WithCheckpointer(store),
		graph.WithNodeTimeout(cfg.NodeTimeout),
		graph.WithStepHook(agents.StepLogger(logger)),
	}
	for _, h := range cfg.Hooks {
		opts = append(opts, graph.WithStepHook(h))
	}

	var err error
	s.scholar, err = scholar.New(scholar.Deps{
		Search:   deps.Search,
		Research: deps.Research,
		Model:    deps.Model,
		Keywords: store,
		Runs:     store,
	}, cfg.Scholar, opts...)
	if err != nil {
		return nil, err
	}
	s.ghostwriter, err = ghostwriter.New(ghostwriter.Deps{
		Research:   deps.Research,
		Model:      deps.Model,
		Compliance: deps.Compliance,
		Content:    store,
		Runs:       store,
	}, cfg.Ghostwriter, opts...)
	if err != nil {
		return nil, err
	}
	s.conductor, err = conductor.New(conductor.Deps{
		Clients:     store,
		Credentials: deps.Credentials,
		Runner:      nestedRunner{s},
		Runs:        store,
		Logger:      logger.With("component", "conductor"),
	}, cfg.Conductor, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RunScholar runs keyword research for a client.
func (s *AgentService) RunScholar(ctx context.Context, clientID, orgID string, trigger models.Trigger) (models.RunSummary, error) {
	client, err := s.client(ctx, clientID, orgID)
	if err != nil {
		return models.RunSummary{}, err
	}
	out, err := s.runScholar(ctx, *client, trigger, nil)
	return s.finish(ctx, out.Summary(), err)
}

// RunGhostwriter writes one piece of content for a topic.
func (s *AgentService) RunGhostwriter(ctx context.Context, clientID, orgID string, topic models.ContentTopic, trigger models.Trigger) (models.RunSummary, error) {
	client, err := s.client(ctx, clientID, orgID)
	if err != nil {
		return models.RunSummary{}, err
	}
	out, err := s.runGhostwriter(ctx, *client, topic, trigger, nil)
	return s.finish(ctx, out.Summary(), err)
}

// RunConductor runs the full cycle for a client. The client is loaded by
// the workflow's health check so a missing or paused client produces a
// failed run rather than an error.
func (s *AgentService) RunConductor(ctx context.Context, clientID, orgID string, trigger models.Trigger) (models.RunSummary, error) {
	// a missing client still gets a run so the failed health check is on record
	if client, err := s.store.GetClient(ctx, clientID); err == nil {
		if orgID == "" {
			orgID = client.OrgID
		} else if client.OrgID != orgID {
			return models.RunSummary{}, apperrors.NotFound("client", clientID)
		}
	}
	run, err := s.createRun(ctx, models.AgentConductor, clientID, orgID, trigger, nil)
	if err != nil {
		return models.RunSummary{}, err
	}
	ctx, done := s.track(ctx, run.ID)
	defer done()
	out, err := s.conductor.Run(ctx, conductor.NewState(run))
	return s.finish(ctx, out.Summary(), err)
}

// Resume continues an interrupted run from its last checkpoint. A run that
// already reached a terminal status is reported as is.
func (s *AgentService) Resume(ctx context.Context, runID string) (models.RunSummary, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return models.RunSummary{}, err
	}
	if run.Status.Terminal() {
		return summaryOf(run), nil
	}

	ctx, done := s.track(ctx, runID)
	defer done()
	var summary models.RunSummary
	switch run.Agent {
	case models.AgentScholar:
		out, rerr := s.scholar.Resume(ctx, runID)
		summary, err = out.Summary(), rerr
	case models.AgentGhostwriter:
		out, rerr := s.ghostwriter.Resume(ctx, runID)
		summary, err = out.Summary(), rerr
	case models.AgentConductor:
		out, rerr := s.conductor.Resume(ctx, runID)
		summary, err = out.Summary(), rerr
	default:
		return models.RunSummary{}, apperrors.Newf(apperrors.CodeRunNotFound, "run %s has unknown agent %q", runID, run.Agent)
	}
	return s.finish(ctx, summary, err)
}

// Cancel stops an in-flight run at its next node boundary. It reports
// whether the run was running in this process.
func (s *AgentService) Cancel(runID string) bool {
	s.mu.Lock()
	cancel, ok := s.running[runID]
	s.mu.Unlock()
	if ok {
		cancel()
		s.logger.Info("Run cancellation requested", "run_id", runID)
	}
	return ok
}

func (s *AgentService) runScholar(ctx context.Context, client models.Client, trigger models.Trigger, parent *string) (scholar.State, error) {
	run, err := s.createRun(ctx, models.AgentScholar, client.ID, client.OrgID, trigger, parent)
	if err != nil {
		return scholar.State{}, err
	}
	ctx, done := s.track(ctx, run.ID)
	defer done()
	return s.scholar.Run(ctx, scholar.NewState(run, client))
}

func (s *AgentService) runGhostwriter(ctx context.Context, client models.Client, topic models.ContentTopic, trigger models.Trigger, parent *string) (ghostwriter.State, error) {
	run, err := s.createRun(ctx, models.AgentGhostwriter, client.ID, client.OrgID, trigger, parent)
	if err != nil {
		return ghostwriter.State{}, err
	}
	ctx, done := s.track(ctx, run.ID)
	defer done()
	return s.ghostwriter.Run(ctx, ghostwriter.NewState(run, client, topic))
}

func (s *AgentService) client(ctx context.Context, clientID, orgID string) (*models.Client, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if orgID != "" && client.OrgID != orgID {
		return nil, apperrors.NotFound("client", clientID)
	}
	return client, nil
}

func (s *AgentService) createRun(ctx context.Context, agent models.AgentName, clientID, orgID string, trigger models.Trigger, parent *string) (*models.WorkflowRun, error) {
	if trigger == "" {
		trigger = models.TriggerManual
	}
	run := &models.WorkflowRun{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		OrgID:       orgID,
		Agent:       agent,
		Status:      models.RunStatusRunning,
		Trigger:     trigger,
		ParentRunID: parent,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	s.logger.Info("Run started", "run_id", run.ID, "agent", agent, "client_id", clientID, "trigger", trigger)
	return run, nil
}

// track registers a cancel func for runID. The returned func must be
// called when the run returns.
func (s *AgentService) track(ctx context.Context, runID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[runID] = cancel
	s.mu.Unlock()
	return ctx, func() {
		s.mu.Lock()
		delete(s.running, runID)
		s.mu.Unlock()
		cancel()
	}
}

func (s *AgentService) finish(ctx context.Context, summary models.RunSummary, err error) (models.RunSummary, error) {
	if err != nil {
		s.logger.Error("Run aborted", "run_id", summary.RunID, "agent", summary.Agent, "code", apperrors.Code(err), "error", err)
		return summary, err
	}
	s.logger.Info("Run finished", "run_id", summary.RunID, "agent", summary.Agent, "status", summary.Status)
	if s.onFinish != nil {
		s.onFinish(context.WithoutCancel(ctx), summary)
	}
	return summary, nil
}

func summaryOf(run *models.WorkflowRun) models.RunSummary {
	summary := models.RunSummary{
		RunID:  run.ID,
		Agent:  run.Agent,
		Status: run.Status,
		Result: run.Result,
	}
	if run.Error != nil {
		summary.Error = *run.Error
	}
	return summary
}

// nestedRunner starts Scholar and Ghostwriter runs on behalf of a Conductor
// run, inheriting its trigger.
type nestedRunner struct {
	svc *AgentService
}

func (n nestedRunner) trigger(ctx context.Context, parentRunID string) models.Trigger {
	parent, err := n.svc.store.GetRun(ctx, parentRunID)
	if err != nil {
		return models.TriggerManual
	}
	return parent.Trigger
}

func (n nestedRunner) Scholar(ctx context.Context, client models.Client, parentRunID string) (conductor.ScholarResult, error) {
	out, err := n.svc.runScholar(ctx, client, n.trigger(ctx, parentRunID), &parentRunID)
	if err != nil {
		return conductor.ScholarResult{RunID: out.RunID}, err
	}
	n.svc.finish(ctx, out.Summary(), nil)
	return conductor.ScholarResult{
		RunID:        out.RunID,
		Status:       out.FinalStatus,
		Error:        out.Error,
		KeywordCount: len(out.Keywords),
		Topics:       out.Topics,
	}, nil
}

func (n nestedRunner) Ghostwriter(ctx context.Context, client models.Client, topic models.ContentTopic, parentRunID string) (conductor.GhostwriterResult, error) {
	out, err := n.svc.runGhostwriter(ctx, client, topic, n.trigger(ctx, parentRunID), &parentRunID)
	if err != nil {
		return conductor.GhostwriterResult{RunID: out.RunID}, err
	}
	n.svc.finish(ctx, out.Summary(), nil)
	return conductor.GhostwriterResult{
		RunID:          out.RunID,
		Status:         out.FinalStatus,
		Error:          out.Error,
		ContentPieceID: out.ContentPieceID,
	}, nil
}
