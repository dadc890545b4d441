// Package graph implements the resumable state machine every agent workflow
// runs on: named nodes returning explicit state patches, fixed or routed edges,
// a failure node that absorbs errors, and a checkpoint after every transition.
package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "seo-agents/backend/internal/errors"
)

// Node names a node in a workflow graph.
type Node string

// End is the terminal marker. Reaching it stops execution.
const End Node = "__end__"

// Bag is the contract a workflow state type satisfies. Patches are merged
// explicitly through Apply; Fail and Cancel set the tombstone that forces the
// run to its failure node.
type Bag[S any, P any] interface {
	Apply(patch P) S
	Fail(err error) S
	Cancel() S
	Halted() bool
}

// Handler is a node body. It returns a patch for the running state.
type Handler[S any, P any] func(ctx context.Context, state S) (P, error)

// Router picks the next node from the current state.
type Router[S any] func(state S) Node

type edge[S any] struct {
	to      Node
	route   Router[S]
	targets map[Node]struct{}
}

// Builder collects nodes and edges before Compile validates them.
type Builder[S Bag[S, P], P any] struct {
	name    string
	nodes   map[Node]Handler[S, P]
	order   []Node
	edges   map[Node]edge[S]
	start   Node
	failure Node
	errs    []string
}

// New starts a graph definition.
func New[S Bag[S, P], P any](name string) *Builder[S, P] {
	return &Builder[S, P]{
		name:  name,
		nodes: make(map[Node]Handler[S, P]),
		edges: make(map[Node]edge[S]),
	}
}

// AddNode declares a node.
func (b *Builder[S, P]) AddNode(name Node, h Handler[S, P]) *Builder[S, P] {
	switch {
	case name == "" || name == End:
		b.errs = append(b.errs, fmt.Sprintf("invalid node name %q", name))
	case h == nil:
		b.errs = append(b.errs, fmt.Sprintf("node %s has no handler", name))
	default:
		if _, dup := b.nodes[name]; dup {
			b.errs = append(b.errs, fmt.Sprintf("node %s declared twice", name))
			return b
		}
		b.nodes[name] = h
		b.order = append(b.order, name)
	}
	return b
}

// AddEdge declares an unconditional edge.
func (b *Builder[S, P]) AddEdge(from, to Node) *Builder[S, P] {
	if _, dup := b.edges[from]; dup {
		b.errs = append(b.errs, fmt.Sprintf("node %s has more than one outgoing edge", from))
		return b
	}
	b.edges[from] = edge[S]{to: to, targets: map[Node]struct{}{to: {}}}
	return b
}

// AddConditionalEdge declares a routed edge. targets lists every node the
// router may return.
func (b *Builder[S, P]) AddConditionalEdge(from Node, route Router[S], targets ...Node) *Builder[S, P] {
	if _, dup := b.edges[from]; dup {
		b.errs = append(b.errs, fmt.Sprintf("node %s has more than one outgoing edge", from))
		return b
	}
	if route == nil || len(targets) == 0 {
		b.errs = append(b.errs, fmt.Sprintf("conditional edge from %s needs a router and targets", from))
		return b
	}
	set := make(map[Node]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	b.edges[from] = edge[S]{route: route, targets: set}
	return b
}

// SetStart sets the entry node.
func (b *Builder[S, P]) SetStart(name Node) *Builder[S, P] {
	b.start = name
	return b
}

// SetFailureNode sets the node every halted state is routed to.
func (b *Builder[S, P]) SetFailureNode(name Node) *Builder[S, P] {
	b.failure = name
	return b
}

// Compile validates the definition and returns a runnable graph.
func (b *Builder[S, P]) Compile(opts ...Option) (*Graph[S, P], error) {
	problems := append([]string(nil), b.errs...)

	if _, ok := b.nodes[b.start]; !ok {
		problems = append(problems, fmt.Sprintf("start node %q is not declared", b.start))
	}
	if b.failure != "" {
		if _, ok := b.nodes[b.failure]; !ok {
			problems = append(problems, fmt.Sprintf("failure node %q is not declared", b.failure))
		}
	}
	for _, n := range b.order {
		if _, ok := b.edges[n]; !ok {
			problems = append(problems, fmt.Sprintf("node %s has no outgoing edge", n))
		}
	}
	froms := make([]Node, 0, len(b.edges))
	for from := range b.edges {
		froms = append(froms, from)
	}
	sort.Slice(froms, func(i, j int) bool { return froms[i] < froms[j] })
	for _, from := range froms {
		if _, ok := b.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("edge source %s is not declared", from))
		}
		for _, t := range sortedTargets(b.edges[from].targets) {
			if _, ok := b.nodes[t]; !ok && t != End {
				problems = append(problems, fmt.Sprintf("edge %s -> %s targets an undeclared node", from, t))
			}
		}
	}

	if len(problems) == 0 {
		reached, endReached := b.reachable()
		for _, n := range b.order {
			if !reached[n] {
				problems = append(problems, fmt.Sprintf("node %s is unreachable from %s", n, b.start))
			}
		}
		if !endReached {
			problems = append(problems, "no path reaches the terminal marker")
		}
	}

	if len(problems) > 0 {
		return nil, apperrors.Newf(apperrors.CodeGraphInvalid, "graph %s is invalid", b.name).
			WithDetail("problems", problems)
	}

	g := &Graph[S, P]{
		name:    b.name,
		nodes:   b.nodes,
		edges:   b.edges,
		start:   b.start,
		failure: b.failure,
	}
	for _, opt := range opts {
		opt(&g.options)
	}
	return g, nil
}

func (b *Builder[S, P]) reachable() (map[Node]bool, bool) {
	seen := map[Node]bool{b.start: true}
	queue := []Node{b.start}
	if b.failure != "" && !seen[b.failure] {
		// the failure node is reachable from every node through the tombstone
		seen[b.failure] = true
		queue = append(queue, b.failure)
	}
	endReached := false
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for t := range b.edges[n].targets {
			if t == End {
				endReached = true
				continue
			}
			if !seen[t] {
				seen[t] = true
				queue = append(queue, t)
			}
		}
	}
	return seen, endReached
}

func sortedTargets(set map[Node]struct{}) []Node {
	out := make([]Node, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Step describes one executed node, passed to step hooks.
type Step struct {
	Workflow string
	RunID    string
	Node     Node
	Duration time.Duration
	Err      error
}

// StepHook observes node transitions.
type StepHook func(ctx context.Context, step Step)

type options struct {
	checkpointer Checkpointer
	hooks        []StepHook
	nodeTimeout  time.Duration
}

// Option configures a compiled graph.
type Option func(*options)

// WithCheckpointer saves state after every node transition.
func WithCheckpointer(c Checkpointer) Option {
	return func(o *options) { o.checkpointer = c }
}

// WithStepHook registers an observer called after every node.
func WithStepHook(h StepHook) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}

// WithNodeTimeout bounds each node invocation.
func WithNodeTimeout(d time.Duration) Option {
	return func(o *options) { o.nodeTimeout = d }
}
