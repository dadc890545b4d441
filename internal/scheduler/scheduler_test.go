package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-agents/backend/internal/logging"
	"seo-agents/backend/pkg/models"
)

type clientList []*models.Client

func (l clientList) ListActiveClients(context.Context) ([]*models.Client, error) {
	return l, nil
}

type countingRunner struct {
	mu       sync.Mutex
	clients  []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *countingRunner) RunConductor(_ context.Context, clientID, _ string, trigger models.Trigger) (models.RunSummary, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	r.mu.Lock()
	r.clients = append(r.clients, clientID)
	r.mu.Unlock()
	if trigger != models.TriggerScheduled {
		return models.RunSummary{}, errors.New("unexpected trigger")
	}
	if clientID == "c3" {
		return models.RunSummary{}, errors.New("boom")
	}
	return models.RunSummary{RunID: "run-" + clientID, Status: models.RunStatusCompleted}, nil
}

func TestTick_RunsEveryClientWithinLimit(t *testing.T) {
	clients := clientList{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}, {ID: "c4"}, {ID: "c5"}}
	runner := &countingRunner{}
	s, err := New("0 6 * * 1", clients, runner, 2, logging.NewForTest())
	require.NoError(t, err)

	n, err := s.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3", "c4", "c5"}, runner.clients)
	assert.LessOrEqual(t, runner.peak.Load(), int32(2))
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	_, err := New("every monday", clientList{}, &countingRunner{}, 1, logging.NewForTest())
	assert.Error(t, err)
}
