// Package scheduler starts Conductor runs for every active client on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"seo-agents/backend/internal/logging"
	"seo-agents/backend/pkg/models"
)

// ClientLister lists the clients eligible for scheduled runs.
type ClientLister interface {
	ListActiveClients(ctx context.Context) ([]*models.Client, error)
}

// ConductorRunner runs a full content cycle for one client.
type ConductorRunner interface {
	RunConductor(ctx context.Context, clientID, orgID string, trigger models.Trigger) (models.RunSummary, error)
}

// Scheduler fans scheduled Conductor runs out over active clients.
type Scheduler struct {
	cron          *cron.Cron
	spec          string
	clients       ClientLister
	runner        ConductorRunner
	maxConcurrent int
	logger        *logging.Logger

	mu      sync.Mutex
	ticking bool
}

// New validates spec, a standard five-field cron expression.
func New(spec string, clients ClientLister, runner ConductorRunner, maxConcurrent int, logger *logging.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Scheduler{
		cron:          cron.New(),
		spec:          spec,
		clients:       clients,
		runner:        runner,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}, nil
}

// Start registers the tick and starts the cron loop. Runs started by a
// tick use ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("Scheduled tick failed", "error", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "spec", s.spec, "max_concurrent", s.maxConcurrent)
	return nil
}

// Stop stops the cron loop and returns a context that is done once running
// ticks have returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Tick runs the Conductor for every active client, at most maxConcurrent
// at a time. A failed client is logged and does not affect the others. A
// tick that starts while the previous one is still running is skipped.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		s.logger.Warn("Previous scheduled tick still running, skipping")
		return 0, nil
	}
	s.ticking = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.ticking = false
		s.mu.Unlock()
	}()

	clients, err := s.clients.ListActiveClients(ctx)
	if err != nil {
		return 0, err
	}

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for _, c := range clients {
		g.Go(func() error {
			summary, err := s.runner.RunConductor(ctx, c.ID, c.OrgID, models.TriggerScheduled)
			if err != nil {
				s.logger.Error("Scheduled conductor run failed", "client_id", c.ID, "error", err)
				return nil
			}
			s.logger.Info("Scheduled conductor run finished",
				"client_id", c.ID, "run_id", summary.RunID, "status", summary.Status)
			return nil
		})
	}
	_ = g.Wait()
	return len(clients), nil
}
