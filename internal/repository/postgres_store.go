package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

const runColumns = "id, client_id, org_id, agent, status, trigger, parent_run_id, result, error, started_at, completed_at"

const clientColumns = "id, org_id, practice_name, vertical, services, location, website_domain, competitors, " +
	"account_health, search_console_site, credential_ref, created_at, updated_at"

// PostgresStore is the PostgreSQL implementation of Store.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func persistence(op string, err error) error {
	return apperrors.Wrap(apperrors.CodePersistence, op, err)
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// CreateRun inserts a run.
func (s *PostgresStore) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.RunStatusRunning
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO workflow_runs (id, client_id, org_id, agent, status, trigger, parent_run_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING started_at`,
		run.ID, run.ClientID, run.OrgID, run.Agent, run.Status, run.Trigger, run.ParentRunID,
	).Scan(&run.StartedAt)
	if err != nil {
		return persistence("create run", err)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun
	if err := pgxscan.Get(ctx, s.db, &run, "SELECT "+runColumns+" FROM workflow_runs WHERE id = $1", id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.RunNotFound(id)
		}
		return nil, persistence("get run", err)
	}
	return &run, nil
}

// UpdateRun applies patch while the run is still running.
func (s *PostgresStore) UpdateRun(ctx context.Context, id string, patch models.RunPatch) error {
	ub := psql().Update("workflow_runs").
		Where(squirrel.Eq{"id": id, "status": models.RunStatusRunning})
	sets := 0
	if patch.Status != nil {
		ub = ub.Set("status", *patch.Status)
		sets++
	}
	if patch.Result != nil {
		ub = ub.Set("result", patch.Result)
		sets++
	}
	if patch.Error != nil {
		ub = ub.Set("error", *patch.Error)
		sets++
	}
	if patch.CompletedAt != nil {
		ub = ub.Set("completed_at", *patch.CompletedAt)
		sets++
	}
	if sets == 0 {
		return nil
	}
	query, args, err := ub.ToSql()
	if err != nil {
		return persistence("build run update", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return persistence("update run", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return s.missedRun(ctx, id)
}

// missedRun explains an update that matched no running row.
func (s *PostgresStore) missedRun(ctx context.Context, id string) error {
	var status models.RunStatus
	if err := s.db.QueryRow(ctx, "SELECT status FROM workflow_runs WHERE id = $1", id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.RunNotFound(id)
		}
		return persistence("read run status", err)
	}
	return apperrors.RunFinalized(id).WithDetail("status", status)
}

// ListRuns returns runs newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*models.WorkflowRun, error) {
	sb := psql().Select(runColumns).From("workflow_runs").OrderBy("started_at DESC")
	if filter.ClientID != "" {
		sb = sb.Where(squirrel.Eq{"client_id": filter.ClientID})
	}
	if filter.Agent != "" {
		sb = sb.Where(squirrel.Eq{"agent": filter.Agent})
	}
	if filter.Status != "" {
		sb = sb.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ParentRunID != "" {
		sb = sb.Where(squirrel.Eq{"parent_run_id": filter.ParentRunID})
	}
	if filter.Limit > 0 {
		sb = sb.Limit(filter.Limit)
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, persistence("build run list", err)
	}
	var runs []*models.WorkflowRun
	if err := pgxscan.Select(ctx, s.db, &runs, query, args...); err != nil {
		return nil, persistence("list runs", err)
	}
	return runs, nil
}

// UpsertOrganization writes an organization keyed by ID.
func (s *PostgresStore) UpsertOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO organizations (id, name, domain) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, domain = EXCLUDED.domain, updated_at = now()
		 RETURNING created_at, updated_at`,
		org.ID, org.Name, org.Domain,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return persistence("upsert organization", err)
	}
	return nil
}

// GetClient returns a client by ID.
func (s *PostgresStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	if err := pgxscan.Get(ctx, s.db, &c, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("client", id)
		}
		return nil, persistence("get client", err)
	}
	return &c, nil
}

// UpsertClient writes a client keyed by ID.
func (s *PostgresStore) UpsertClient(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.AccountHealth == "" {
		c.AccountHealth = models.AccountHealthActive
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO clients (id, org_id, practice_name, vertical, services, location, website_domain,
		                      competitors, account_health, search_console_site, credential_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		     practice_name = EXCLUDED.practice_name, vertical = EXCLUDED.vertical,
		     services = EXCLUDED.services, location = EXCLUDED.location,
		     website_domain = EXCLUDED.website_domain, competitors = EXCLUDED.competitors,
		     account_health = EXCLUDED.account_health, search_console_site = EXCLUDED.search_console_site,
		     credential_ref = EXCLUDED.credential_ref, updated_at = now()
		 RETURNING created_at, updated_at`,
		c.ID, c.OrgID, c.PracticeName, c.Vertical, c.Services, c.Location, c.WebsiteDomain,
		c.Competitors, c.AccountHealth, c.SearchConsoleSite, c.CredentialRef,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return persistence("upsert client", err)
	}
	return nil
}

// ListActiveClients returns every client whose account is active.
func (s *PostgresStore) ListActiveClients(ctx context.Context) ([]*models.Client, error) {
	var clients []*models.Client
	err := pgxscan.Select(ctx, s.db, &clients,
		"SELECT "+clientColumns+" FROM clients WHERE account_health = $1 ORDER BY id", models.AccountHealthActive)
	if err != nil {
		return nil, persistence("list active clients", err)
	}
	return clients, nil
}

// UpsertKeywords writes keywords keyed by client and normalized keyword.
// Later duplicates in the same batch win.
func (s *PostgresStore) UpsertKeywords(ctx context.Context, clientID, runID string, keywords []models.PrioritizedKeyword) error {
	rows := dedupeKeywords(keywords)
	if len(rows) == 0 {
		return nil
	}
	ib := psql().Insert("keywords").
		Columns("client_id", "keyword", "run_id", "volume", "difficulty", "source", "priority", "intent")
	for _, kw := range rows {
		ib = ib.Values(clientID, kw.Keyword, runID, kw.Volume, kw.Difficulty, kw.Source, kw.Priority, kw.Intent)
	}
	ib = ib.Suffix(`ON CONFLICT (client_id, keyword) DO UPDATE SET
		run_id = EXCLUDED.run_id, volume = EXCLUDED.volume, difficulty = EXCLUDED.difficulty,
		source = EXCLUDED.source, priority = EXCLUDED.priority, intent = EXCLUDED.intent, updated_at = now()`)
	query, args, err := ib.ToSql()
	if err != nil {
		return persistence("build keyword upsert", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return persistence("upsert keywords", err)
	}
	return nil
}

// ListKeywords returns a client's keywords by priority.
func (s *PostgresStore) ListKeywords(ctx context.Context, clientID string) ([]models.KeywordRecord, error) {
	var out []models.KeywordRecord
	err := pgxscan.Select(ctx, s.db, &out,
		`SELECT client_id, run_id, updated_at, keyword, volume, difficulty, source, priority, intent
		 FROM keywords WHERE client_id = $1 ORDER BY priority, keyword`, clientID)
	if err != nil {
		return nil, persistence("list keywords", err)
	}
	return out, nil
}

// UpsertContentPiece writes the piece keyed by client and run.
func (s *PostgresStore) UpsertContentPiece(ctx context.Context, p *models.ContentPiece) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.ContentStatusDraft
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO content_pieces (id, client_id, org_id, run_id, target_keyword, title, body_markdown, body_html,
		                             word_count, meta_title, meta_description, seo_score, compliance_status,
		                             rewrite_attempts, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (client_id, run_id) DO UPDATE SET
		     target_keyword = EXCLUDED.target_keyword, title = EXCLUDED.title,
		     body_markdown = EXCLUDED.body_markdown, body_html = EXCLUDED.body_html,
		     word_count = EXCLUDED.word_count, meta_title = EXCLUDED.meta_title,
		     meta_description = EXCLUDED.meta_description, seo_score = EXCLUDED.seo_score,
		     compliance_status = EXCLUDED.compliance_status, rewrite_attempts = EXCLUDED.rewrite_attempts,
		     updated_at = now()
		 RETURNING id, created_at, updated_at`,
		p.ID, p.ClientID, p.OrgID, p.RunID, p.TargetKeyword, p.Title, p.BodyMarkdown, p.BodyHTML,
		p.WordCount, p.MetaTitle, p.MetaDescription, p.SEOScore, p.ComplianceStatus,
		p.RewriteAttempts, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return persistence("upsert content piece", err)
	}
	return nil
}

// UpsertQueueItem writes the review item keyed by content piece.
func (s *PostgresStore) UpsertQueueItem(ctx context.Context, q *models.QueueItem) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = models.QueueStatusPending
	}
	findings := q.Findings
	if findings == nil {
		findings = []models.Finding{}
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO review_queue (id, client_id, org_id, content_piece_id, run_id, verdict_status, severity, findings, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (content_piece_id) DO UPDATE SET
		     verdict_status = EXCLUDED.verdict_status, severity = EXCLUDED.severity, findings = EXCLUDED.findings
		 RETURNING id, created_at`,
		q.ID, q.ClientID, q.OrgID, q.ContentPieceID, q.RunID, q.VerdictStatus, q.Severity, findings, q.Status,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return persistence("upsert queue item", err)
	}
	return nil
}

// ListQueueItems returns a client's review items newest first.
func (s *PostgresStore) ListQueueItems(ctx context.Context, clientID string) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	err := pgxscan.Select(ctx, s.db, &items,
		`SELECT id, client_id, org_id, content_piece_id, run_id, verdict_status, severity, findings, status, created_at
		 FROM review_queue WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, persistence("list queue items", err)
	}
	return items, nil
}

// SaveCheckpoint stores the last completed node and state on the run row.
// Only a running row accepts checkpoints, except the one written after
// FinalCheckpointNode, which lands once the run is already terminal. It
// touches the checkpoint columns only.
func (s *PostgresStore) SaveCheckpoint(ctx context.Context, runID, node string, state []byte) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if node == FinalCheckpointNode {
		tag, err = s.db.Exec(ctx,
			"UPDATE workflow_runs SET checkpoint_node = $2, checkpoint = $3 WHERE id = $1",
			runID, node, state)
	} else {
		tag, err = s.db.Exec(ctx,
			"UPDATE workflow_runs SET checkpoint_node = $2, checkpoint = $3 WHERE id = $1 AND status = $4",
			runID, node, state, models.RunStatusRunning)
	}
	if err != nil {
		return persistence("save checkpoint", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missedRun(ctx, runID)
	}
	return nil
}

// LoadCheckpoint reads the checkpoint of a run.
func (s *PostgresStore) LoadCheckpoint(ctx context.Context, runID string) (string, []byte, bool, error) {
	var node *string
	var state []byte
	err := s.db.QueryRow(ctx,
		"SELECT checkpoint_node, checkpoint FROM workflow_runs WHERE id = $1", runID,
	).Scan(&node, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, false, nil
		}
		return "", nil, false, persistence("load checkpoint", err)
	}
	if node == nil || len(state) == 0 {
		return "", nil, false, nil
	}
	return *node, state, true, nil
}

func dedupeKeywords(in []models.PrioritizedKeyword) []models.PrioritizedKeyword {
	index := make(map[string]int, len(in))
	out := make([]models.PrioritizedKeyword, 0, len(in))
	for _, kw := range in {
		kw.Keyword = NormalizeKeyword(kw.Keyword)
		if kw.Keyword == "" {
			continue
		}
		if i, ok := index[kw.Keyword]; ok {
			out[i] = kw
			continue
		}
		index[kw.Keyword] = len(out)
		out = append(out, kw)
	}
	return out
}

// NormalizeKeyword is the natural-key form of a keyword.
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
