// Package ghostwriter implements the content workflow: brief, draft, SEO
// score, compliance review with bounded remediation, and hand-off to the
// human review queue.
package ghostwriter

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"seo-agents/backend/internal/agents"
	"seo-agents/backend/internal/compliance"
	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/graph"
	"seo-agents/backend/internal/llm"
	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

// Node names.
const (
	NodeGenerateBrief   graph.Node = "generate_brief"
	NodeWriteContent    graph.Node = "write_content"
	NodeScoreSEO        graph.Node = "score_seo"
	NodeCheckCompliance graph.Node = "check_compliance"
	NodeHandleVerdict   graph.Node = "handle_verdict"
	NodeQueueForReview  graph.Node = "queue_for_review"
)

const (
	maxCompetitors    = 3
	maxRelated        = 15
	defaultBriefLimit = 1200

	// MaxRewriteAttempts caps the compliance rewrite loop at three checks.
	MaxRewriteAttempts = 2
)

// Config tunes the workflow.
type Config struct {
	MaxRewriteAttempts int
	MaxOutputTokens    int
	BriefMaxTokens     int
}

// Deps are the collaborators the nodes call.
type Deps struct {
	Research   providers.KeywordResearch
	Model      llm.Completer
	Compliance compliance.Checker
	Content    repository.ContentStore
	Runs       repository.RunStore
	NewID      func() string
}

// Agent runs Ghostwriter workflows.
type Agent struct {
	deps  Deps
	cfg   Config
	graph *graph.Graph[State, Patch]
}

// New compiles the Ghostwriter graph.
func New(deps Deps, cfg Config, opts ...graph.Option) (*Agent, error) {
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if cfg.BriefMaxTokens <= 0 {
		cfg.BriefMaxTokens = defaultBriefLimit
	}
	cfg.MaxRewriteAttempts = min(max(cfg.MaxRewriteAttempts, 0), MaxRewriteAttempts)
	a := &Agent{deps: deps, cfg: cfg}
	g, err := graph.New[State, Patch]("ghostwriter").
		AddNode(NodeGenerateBrief, a.generateBrief).
		AddNode(NodeWriteContent, a.writeContent).
		AddNode(NodeScoreSEO, a.scoreSEO).
		AddNode(NodeCheckCompliance, a.checkCompliance).
		AddNode(NodeHandleVerdict, a.handleVerdict).
		AddNode(NodeQueueForReview, a.queueForReview).
		AddNode(agents.NodeFinalize, a.finalize).
		AddEdge(NodeGenerateBrief, NodeWriteContent).
		AddEdge(NodeWriteContent, NodeScoreSEO).
		AddEdge(NodeScoreSEO, NodeCheckCompliance).
		AddEdge(NodeCheckCompliance, NodeHandleVerdict).
		AddConditionalEdge(NodeHandleVerdict, afterVerdict, NodeCheckCompliance, NodeQueueForReview).
		AddEdge(NodeQueueForReview, agents.NodeFinalize).
		AddEdge(agents.NodeFinalize, graph.End).
		SetStart(NodeGenerateBrief).
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

// afterVerdict loops back for another review only when handle_verdict just
// rewrote a blocked draft, which it records by bringing the rewrite count
// level with the check count.
func afterVerdict(s State) graph.Node {
	if s.Verdict != nil && s.Verdict.Status == models.VerdictBlock && s.RewriteAttempts == s.ComplianceChecks {
		return NodeCheckCompliance
	}
	return NodeQueueForReview
}

func (a *Agent) generateBrief(ctx context.Context, s State) (Patch, error) {
	related, err := a.relatedKeywords(ctx, s.Client)
	if err != nil {
		return Patch{}, err
	}
	system, user := briefPrompt(s, related)
	resp, err := a.deps.Model.Complete(ctx, llm.Prompt{System: system, User: user}, a.cfg.BriefMaxTokens)
	if err != nil {
		return Patch{}, err
	}
	brief, err := llm.DecodeStrict[models.ContentBrief]("generate_brief", resp)
	if err != nil {
		return Patch{}, err
	}
	return Patch{Brief: &brief}, nil
}

// relatedKeywords reads competitor keywords for the brief. It never writes.
func (a *Agent) relatedKeywords(ctx context.Context, client models.Client) ([]string, error) {
	var all []providers.KeywordMetric
	for i, domain := range client.Competitors {
		if i >= maxCompetitors {
			break
		}
		metrics, err := a.deps.Research.CompetitorKeywords(ctx, domain)
		if err != nil {
			return nil, err
		}
		all = append(all, metrics...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Volume > all[j].Volume })
	seen := make(map[string]struct{})
	var out []string
	for _, m := range all {
		kw := repository.NormalizeKeyword(m.Keyword)
		if _, dup := seen[kw]; dup || kw == "" {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		if len(out) == maxRelated {
			break
		}
	}
	return out, nil
}

func (a *Agent) writeContent(ctx context.Context, s State) (Patch, error) {
	system, user := writePrompt(s)
	resp, err := a.deps.Model.Complete(ctx, llm.Prompt{System: system, User: user}, a.cfg.MaxOutputTokens)
	if err != nil {
		return Patch{}, err
	}
	id := a.deps.NewID()
	if s.Draft != nil {
		id = s.Draft.ID
	}
	draft, err := a.draftFrom(id, resp, "write_content")
	if err != nil {
		return Patch{}, err
	}
	return Patch{Draft: &draft}, nil
}

func (a *Agent) scoreSEO(_ context.Context, s State) (Patch, error) {
	draft := *s.Draft
	draft.SEOScore, draft.SEOChecks = Score(draft, *s.Brief)
	return Patch{Draft: &draft}, nil
}

func (a *Agent) checkCompliance(ctx context.Context, s State) (Patch, error) {
	verdict := a.deps.Compliance.Check(ctx, s.Draft.HTML, s.Client.Vertical)
	return Patch{Verdict: &verdict, ComplianceChecks: ptr(s.ComplianceChecks + 1)}, nil
}

func (a *Agent) handleVerdict(ctx context.Context, s State) (Patch, error) {
	switch s.Verdict.Status {
	case models.VerdictWarn:
		disclaimers := compliance.Disclaimers(*s.Verdict)
		if len(disclaimers) == 0 {
			disclaimers = []string{compliance.DefaultDisclaimer(s.Client.Vertical)}
		}
		draft, err := appendDisclaimers(*s.Draft, disclaimers)
		if err != nil {
			return Patch{}, err
		}
		return Patch{Draft: &draft, Severity: ptr(models.QueueSeverityNormal)}, nil
	case models.VerdictBlock:
		if s.RewriteAttempts >= a.cfg.MaxRewriteAttempts {
			return Patch{Severity: ptr(models.QueueSeverityElevated)}, nil
		}
		draft, err := a.rewrite(ctx, s)
		if err != nil {
			return Patch{}, err
		}
		return Patch{Draft: &draft, RewriteAttempts: ptr(s.RewriteAttempts + 1)}, nil
	default:
		return Patch{Severity: ptr(models.QueueSeverityNormal)}, nil
	}
}

// rewrite asks for a revision limited to the blocking excerpts. The SEO
// score of the previous draft is carried over.
func (a *Agent) rewrite(ctx context.Context, s State) (models.ContentDraft, error) {
	system, user := rewritePrompt(s, s.Verdict.Blocking())
	resp, err := a.deps.Model.Complete(ctx, llm.Prompt{System: system, User: user}, a.cfg.MaxOutputTokens)
	if err != nil {
		return models.ContentDraft{}, err
	}
	draft, err := a.draftFrom(s.Draft.ID, resp, "rewrite")
	if err != nil {
		return models.ContentDraft{}, err
	}
	draft.SEOScore = s.Draft.SEOScore
	draft.SEOChecks = s.Draft.SEOChecks
	if draft.MetaTitle == "" {
		draft.MetaTitle = s.Draft.MetaTitle
	}
	return draft, nil
}

func (a *Agent) draftFrom(id, resp, operation string) (models.ContentDraft, error) {
	if strings.TrimSpace(resp) == "" {
		return models.ContentDraft{}, apperrors.OutputValidation(operation, errors.New("empty article"))
	}
	draft, err := buildDraft(id, resp)
	if err != nil {
		return models.ContentDraft{}, apperrors.OutputValidation(operation, err)
	}
	if draft.WordCount == 0 {
		return models.ContentDraft{}, apperrors.OutputValidation(operation, errors.New("article has no text"))
	}
	return draft, nil
}

func (a *Agent) queueForReview(ctx context.Context, s State) (Patch, error) {
	title := headingTitle(s.Draft.Markdown)
	if title == "" {
		title = s.Brief.Title
	}
	piece := &models.ContentPiece{
		ID:               s.Draft.ID,
		ClientID:         s.ClientID,
		OrgID:            s.OrgID,
		RunID:            s.RunID,
		TargetKeyword:    s.Brief.TargetKeyword,
		Title:            title,
		BodyMarkdown:     s.Draft.Markdown,
		BodyHTML:         s.Draft.HTML,
		WordCount:        s.Draft.WordCount,
		MetaTitle:        s.Draft.MetaTitle,
		MetaDescription:  s.Draft.MetaDescription,
		SEOScore:         s.Draft.SEOScore,
		ComplianceStatus: s.Verdict.Status,
		RewriteAttempts:  s.RewriteAttempts,
		Status:           models.ContentStatusDraft,
	}
	if err := a.deps.Content.UpsertContentPiece(ctx, piece); err != nil {
		return Patch{}, err
	}

	severity := s.Severity
	if severity == "" {
		severity = models.QueueSeverityNormal
	}
	item := &models.QueueItem{
		ClientID:       s.ClientID,
		OrgID:          s.OrgID,
		ContentPieceID: piece.ID,
		RunID:          s.RunID,
		VerdictStatus:  s.Verdict.Status,
		Severity:       severity,
		Findings:       s.Verdict.Findings,
		Status:         models.QueueStatusPending,
	}
	if err := a.deps.Content.UpsertQueueItem(ctx, item); err != nil {
		return Patch{}, err
	}
	return Patch{ContentPieceID: &piece.ID, QueueItemID: &item.ID, Severity: &severity}, nil
}

func (a *Agent) finalize(ctx context.Context, s State) (Patch, error) {
	status := agents.Status(s.Error, s.Cancelled)
	if err := agents.Finalize(ctx, a.deps.Runs, s.RunID, status, s.Error, s.Result()); err != nil {
		return Patch{}, err
	}
	return Patch{FinalStatus: &status}, nil
}
