package graph

import (
	"context"
	"encoding/json"
	"time"

	apperrors "seo-agents/backend/internal/errors"
)

// Graph is a compiled, runnable workflow.
type Graph[S Bag[S, P], P any] struct {
	name    string
	nodes   map[Node]Handler[S, P]
	edges   map[Node]edge[S]
	start   Node
	failure Node
	options options
}

// Name returns the workflow name.
func (g *Graph[S, P]) Name() string {
	return g.name
}

// Run executes the graph from its start node until End.
//
// A node error never escapes: the state is marked failed and execution moves
// to the failure node. Run only returns an error when the failure node itself
// fails, when a router returns an undeclared node, or when no failure node
// exists to absorb a node error.
func (g *Graph[S, P]) Run(ctx context.Context, runID string, state S) (S, error) {
	return g.execute(ctx, runID, g.start, state)
}

// Resume continues a run from the node after its last checkpoint. Completed
// nodes are not re-run.
func (g *Graph[S, P]) Resume(ctx context.Context, runID string) (S, error) {
	var state S
	if g.options.checkpointer == nil {
		return state, apperrors.New(apperrors.CodeNoCheckpoint, "graph has no checkpointer")
	}
	node, raw, found, err := g.options.checkpointer.LoadCheckpoint(ctx, runID)
	if err != nil {
		return state, err
	}
	if !found {
		return state, apperrors.Newf(apperrors.CodeNoCheckpoint, "no checkpoint for run %s", runID).
			WithDetail("run_id", runID)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, apperrors.Wrap(apperrors.CodeNoCheckpoint, "decode checkpoint state", err)
	}
	last := Node(node)
	if _, ok := g.nodes[last]; !ok {
		return state, apperrors.Newf(apperrors.CodeNoCheckpoint, "checkpoint names unknown node %s", last)
	}
	next, err := g.next(last, state)
	if err != nil {
		return state, err
	}
	return g.execute(ctx, runID, next, state)
}

func (g *Graph[S, P]) execute(ctx context.Context, runID string, from Node, state S) (S, error) {
	current := from
	for current != End {
		if ctx.Err() != nil {
			// cancellation is observed between nodes only, including the
			// boundary in front of the failure node
			if !state.Halted() {
				state = state.Cancel()
			}
			if g.failure == "" {
				return state, apperrors.Wrap(apperrors.CodeCancelled, "run cancelled", ctx.Err())
			}
			current = g.failure
			ctx = context.WithoutCancel(ctx)
		}

		var stepErr error
		state, stepErr = g.step(ctx, runID, current, state)
		if stepErr != nil {
			return state, stepErr
		}

		next, err := g.next(current, state)
		if err != nil {
			return state, err
		}
		if err := g.checkpoint(ctx, runID, current, state); err != nil {
			if current == g.failure || g.failure == "" {
				return state, err
			}
			state = state.Fail(err)
			next = g.failure
		}
		current = next
	}
	return state, nil
}

// step runs one node and merges its patch. The returned error is non-nil
// only when the node error cannot be absorbed by a failure node.
func (g *Graph[S, P]) step(ctx context.Context, runID string, node Node, state S) (S, error) {
	nodeCtx := ctx
	if g.options.nodeTimeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, g.options.nodeTimeout)
		defer cancel()
	}

	started := time.Now()
	patch, err := g.nodes[node](nodeCtx, state)
	g.observe(ctx, Step{
		Workflow: g.name,
		RunID:    runID,
		Node:     node,
		Duration: time.Since(started),
		Err:      err,
	})

	if err == nil {
		return state.Apply(patch), nil
	}
	if node == g.failure || g.failure == "" {
		return state.Fail(err), err
	}
	if ctx.Err() != nil {
		// the run was cancelled while the node was in flight
		return state.Cancel(), nil
	}
	return state.Fail(err), nil
}

func (g *Graph[S, P]) next(current Node, state S) (Node, error) {
	if state.Halted() && g.failure != "" && current != g.failure {
		return g.failure, nil
	}
	e := g.edges[current]
	if e.route == nil {
		return e.to, nil
	}
	target := e.route(state)
	if _, ok := e.targets[target]; !ok {
		return "", apperrors.Newf(apperrors.CodeGraphRoute, "router for %s returned undeclared node %q", current, target).
			WithDetail("workflow", g.name)
	}
	return target, nil
}

func (g *Graph[S, P]) checkpoint(ctx context.Context, runID string, node Node, state S) error {
	if g.options.checkpointer == nil || runID == "" {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return apperrors.Wrap(apperrors.CodePersistence, "encode checkpoint state", err)
	}
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if err := g.options.checkpointer.SaveCheckpoint(ctx, runID, string(node), raw); err != nil {
		return apperrors.Wrap(apperrors.CodePersistence, "save checkpoint", err)
	}
	return nil
}

func (g *Graph[S, P]) observe(ctx context.Context, step Step) {
	for _, h := range g.options.hooks {
		h(ctx, step)
	}
}
