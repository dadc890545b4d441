package graph

import (
	"context"
	"sync"
)

// Checkpointer persists the last completed node and the serialized state of a
// run. A nil Checkpointer disables checkpointing.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, runID, node string, state []byte) error
	LoadCheckpoint(ctx context.Context, runID string) (node string, state []byte, found bool, err error)
}

type checkpoint struct {
	node  string
	state []byte
}

// MemoryCheckpointer keeps checkpoints in process memory. Every save is kept
// so a test can rewind a run to an earlier node.
type MemoryCheckpointer struct {
	mu      sync.Mutex
	history map[string][]checkpoint
	current map[string]checkpoint
}

// NewMemoryCheckpointer returns an empty in-memory checkpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{
		history: make(map[string][]checkpoint),
		current: make(map[string]checkpoint),
	}
}

// SaveCheckpoint overwrites the checkpoint for runID.
func (m *MemoryCheckpointer) SaveCheckpoint(_ context.Context, runID, node string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := checkpoint{node: node, state: append([]byte(nil), state...)}
	m.current[runID] = cp
	m.history[runID] = append(m.history[runID], cp)
	return nil
}

// LoadCheckpoint returns the latest checkpoint for runID.
func (m *MemoryCheckpointer) LoadCheckpoint(_ context.Context, runID string) (string, []byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.current[runID]
	if !ok {
		return "", nil, false, nil
	}
	return cp.node, append([]byte(nil), cp.state...), true, nil
}

// Nodes lists the checkpointed nodes of runID in save order.
func (m *MemoryCheckpointer) Nodes(runID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.history[runID]))
	for _, cp := range m.history[runID] {
		out = append(out, cp.node)
	}
	return out
}

// Rewind makes the first checkpoint saved after node the current one, as if
// the process died right after that node. It reports whether node was found.
func (m *MemoryCheckpointer) Rewind(runID, node string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cp := range m.history[runID] {
		if cp.node == node {
			m.current[runID] = cp
			m.history[runID] = nil
			return true
		}
	}
	return false
}
