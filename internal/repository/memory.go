package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

type storedCheckpoint struct {
	node  string
	state []byte
}

// MemoryStore is an in-process Store for tests and local runs. It keeps the
// same natural keys and finalization rules as PostgresStore.
type MemoryStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	orgs        map[string]models.Organization
	clients     map[string]models.Client
	runs        map[string]models.WorkflowRun
	keywords    map[string]map[string]models.KeywordRecord
	pieces      map[string]models.ContentPiece // by client_id/run_id
	queue       map[string]models.QueueItem    // by content piece id
	checkpoints map[string]storedCheckpoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		orgs:        make(map[string]models.Organization),
		clients:     make(map[string]models.Client),
		runs:        make(map[string]models.WorkflowRun),
		keywords:    make(map[string]map[string]models.KeywordRecord),
		pieces:      make(map[string]models.ContentPiece),
		queue:       make(map[string]models.QueueItem),
		checkpoints: make(map[string]storedCheckpoint),
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) CreateRun(_ context.Context, run *models.WorkflowRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, dup := m.runs[run.ID]; dup {
		return apperrors.Newf(apperrors.CodePersistence, "run %s already exists", run.ID)
	}
	if run.Status == "" {
		run.Status = models.RunStatusRunning
	}
	run.StartedAt = m.now()
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id string) (*models.WorkflowRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, apperrors.RunNotFound(id)
	}
	return &run, nil
}

func (m *MemoryStore) UpdateRun(_ context.Context, id string, patch models.RunPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return apperrors.RunNotFound(id)
	}
	if run.Status != models.RunStatusRunning {
		return apperrors.RunFinalized(id).WithDetail("status", run.Status)
	}
	if patch.Status != nil {
		run.Status = *patch.Status
	}
	if patch.Result != nil {
		run.Result = patch.Result
	}
	if patch.Error != nil {
		msg := *patch.Error
		run.Error = &msg
	}
	if patch.CompletedAt != nil {
		at := *patch.CompletedAt
		run.CompletedAt = &at
	}
	m.runs[id] = run
	return nil
}

func (m *MemoryStore) ListRuns(_ context.Context, f RunFilter) ([]*models.WorkflowRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.WorkflowRun
	for _, r := range m.runs {
		if f.ClientID != "" && r.ClientID != f.ClientID ||
			f.Agent != "" && r.Agent != f.Agent ||
			f.Status != "" && r.Status != f.Status ||
			f.ParentRunID != "" && (r.ParentRunID == nil || *r.ParentRunID != f.ParentRunID) {
			continue
		}
		run := r
		out = append(out, &run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if f.Limit > 0 && uint64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) UpsertOrganization(_ context.Context, org *models.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := m.now()
	if prev, ok := m.orgs[org.ID]; ok {
		org.CreatedAt = prev.CreatedAt
	} else {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	m.orgs[org.ID] = *org
	return nil
}

func (m *MemoryStore) GetClient(_ context.Context, id string) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, apperrors.NotFound("client", id)
	}
	c.Services = slices.Clone(c.Services)
	c.Competitors = slices.Clone(c.Competitors)
	return &c, nil
}

func (m *MemoryStore) UpsertClient(_ context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.AccountHealth == "" {
		c.AccountHealth = models.AccountHealthActive
	}
	now := m.now()
	if prev, ok := m.clients[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	stored := *c
	stored.Services = slices.Clone(c.Services)
	stored.Competitors = slices.Clone(c.Competitors)
	m.clients[c.ID] = stored
	return nil
}

func (m *MemoryStore) ListActiveClients(_ context.Context) ([]*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Client
	for _, c := range m.clients {
		if c.AccountHealth == models.AccountHealthActive {
			cl := c
			out = append(out, &cl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpsertKeywords(_ context.Context, clientID, runID string, keywords []models.PrioritizedKeyword) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKeyword, ok := m.keywords[clientID]
	if !ok {
		byKeyword = make(map[string]models.KeywordRecord)
		m.keywords[clientID] = byKeyword
	}
	now := m.now()
	for _, kw := range dedupeKeywords(keywords) {
		byKeyword[kw.Keyword] = models.KeywordRecord{
			ClientID:           clientID,
			RunID:              runID,
			UpdatedAt:          now,
			PrioritizedKeyword: kw,
		}
	}
	return nil
}

func (m *MemoryStore) ListKeywords(_ context.Context, clientID string) ([]models.KeywordRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.KeywordRecord, 0, len(m.keywords[clientID]))
	for _, rec := range m.keywords[clientID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out, nil
}

func (m *MemoryStore) UpsertContentPiece(_ context.Context, p *models.ContentPiece) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := p.ClientID + "/" + p.RunID
	now := m.now()
	if prev, ok := m.pieces[key]; ok {
		p.ID = prev.ID
		p.CreatedAt = prev.CreatedAt
	} else {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = now
	}
	if p.Status == "" {
		p.Status = models.ContentStatusDraft
	}
	p.UpdatedAt = now
	m.pieces[key] = *p
	return nil
}

func (m *MemoryStore) UpsertQueueItem(_ context.Context, q *models.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.queue[q.ContentPieceID]; ok {
		q.ID = prev.ID
		q.CreatedAt = prev.CreatedAt
		q.Status = prev.Status
	} else {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.CreatedAt = m.now()
		if q.Status == "" {
			q.Status = models.QueueStatusPending
		}
	}
	stored := *q
	stored.Findings = slices.Clone(q.Findings)
	m.queue[q.ContentPieceID] = stored
	return nil
}

func (m *MemoryStore) ListQueueItems(_ context.Context, clientID string) ([]*models.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.QueueItem
	for _, q := range m.queue {
		if q.ClientID == clientID {
			item := q
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ContentPieces returns every stored content piece of a client.
func (m *MemoryStore) ContentPieces(clientID string) []models.ContentPiece {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ContentPiece
	for _, p := range m.pieces {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out
}

func (m *MemoryStore) SaveCheckpoint(_ context.Context, runID, node string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return apperrors.RunNotFound(runID)
	}
	if run.Status.Terminal() && node != FinalCheckpointNode {
		return apperrors.RunFinalized(runID).WithDetail("status", run.Status)
	}
	m.checkpoints[runID] = storedCheckpoint{node: node, state: slices.Clone(state)}
	return nil
}

func (m *MemoryStore) LoadCheckpoint(_ context.Context, runID string) (string, []byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[runID]
	if !ok {
		return "", nil, false, nil
	}
	return cp.node, slices.Clone(cp.state), true, nil
}
