package graph

import (
	"context"
	"fmt"
)

// DefaultStepLimit guards against misconfigured cycles. Any legitimate
// counseling run finishes in well under a thousand node visits.
const DefaultStepLimit = 1000

// Branch is the closed routing enumeration returned by conditional-edge
// predicates. Keeping it a dedicated type rather than a raw string prevents
// typo'd branch keys from silently dead-ending a run.
type Branch int

const (
	// BranchContinue loops back into the current stage.
	BranchContinue Branch = iota
	// BranchAdvance moves on to the next stage.
	BranchAdvance
)

func (b Branch) String() string {
	switch b {
	case BranchContinue:
		return "continue"
	case BranchAdvance:
		return "advance"
	default:
		return fmt.Sprintf("branch(%d)", int(b))
	}
}

// Handler is a node's computation step. It receives the current state and
// returns the (possibly mutated) state. Handlers may perform external calls
// and must honor ctx cancellation.
type Handler[S any] func(ctx context.Context, state S) (S, error)

// Predicate decides which branch a conditional edge takes.
type Predicate[S any] func(state S) Branch

// StepHook runs after every successful node execution, before the next edge
// is resolved. The controller uses it to persist session state per step. A
// hook error aborts the run.
type StepHook[S any] func(ctx context.Context, node string, state S) error

type conditionalEdge[S any] struct {
	predicate Predicate[S]
	branches  map[Branch]string
}

// Graph is a directed workflow of named nodes with static and conditional
// edges. Execution is an iterative trampoline: strictly sequential per run,
// while independent Run invocations may execute concurrently as long as they
// do not share state. Graphs are immutable after Compile.
type Graph[S any] struct {
	nodes       map[string]Handler[S]
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
	entry       string
	stepLimit   int
	stepHook    StepHook[S]
	compiled    bool
}

// Option configures a Graph at construction.
type Option[S any] func(*Graph[S])

// WithStepLimit overrides the default step ceiling.
func WithStepLimit[S any](limit int) Option[S] {
	return func(g *Graph[S]) {
		if limit > 0 {
			g.stepLimit = limit
		}
	}
}

// WithStepHook installs a hook invoked after every node execution.
func WithStepHook[S any](hook StepHook[S]) Option[S] {
	return func(g *Graph[S]) {
		g.stepHook = hook
	}
}

func New[S any](opts ...Option[S]) *Graph[S] {
	g := &Graph[S]{
		nodes:       make(map[string]Handler[S]),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge[S]),
		stepLimit:   DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode registers a handler under a unique id.
func (g *Graph[S]) AddNode(id string, handler Handler[S]) error {
	if id == "" {
		return &DefinitionError{Reason: "node id cannot be empty"}
	}
	if handler == nil {
		return &DefinitionError{Reason: fmt.Sprintf("node %q has a nil handler", id)}
	}
	if _, exists := g.nodes[id]; exists {
		return &DefinitionError{Reason: fmt.Sprintf("node %q already registered", id)}
	}
	g.nodes[id] = handler
	return nil
}

// AddEdge creates an unconditional transition. A node holds at most one
// outgoing edge, static or conditional.
func (g *Graph[S]) AddEdge(from, to string) error {
	if err := g.checkOutgoing(from); err != nil {
		return err
	}
	g.edges[from] = to
	return nil
}

// AddConditionalEdge routes through the predicate's Branch result. Every
// Branch value the predicate can return must have an entry in branches.
func (g *Graph[S]) AddConditionalEdge(from string, predicate Predicate[S], branches map[Branch]string) error {
	if err := g.checkOutgoing(from); err != nil {
		return err
	}
	if predicate == nil {
		return &DefinitionError{Reason: fmt.Sprintf("conditional edge from %q has a nil predicate", from)}
	}
	if len(branches) == 0 {
		return &DefinitionError{Reason: fmt.Sprintf("conditional edge from %q has no branches", from)}
	}
	copied := make(map[Branch]string, len(branches))
	for k, v := range branches {
		copied[k] = v
	}
	g.conditional[from] = conditionalEdge[S]{predicate: predicate, branches: copied}
	return nil
}

func (g *Graph[S]) checkOutgoing(from string) error {
	if _, ok := g.edges[from]; ok {
		return &DefinitionError{Reason: fmt.Sprintf("node %q already has an outgoing edge", from)}
	}
	if _, ok := g.conditional[from]; ok {
		return &DefinitionError{Reason: fmt.Sprintf("node %q already has a conditional edge", from)}
	}
	return nil
}

// SetEntry defines the starting node.
func (g *Graph[S]) SetEntry(id string) error {
	if g.entry != "" {
		return &DefinitionError{Reason: "entry point already set"}
	}
	g.entry = id
	return nil
}

// Compile validates the topology: the entry exists, every edge endpoint
// refers to a registered node, and at least one terminal node (no outgoing
// edge) is reachable from the entry.
func (g *Graph[S]) Compile() error {
	if g.entry == "" {
		return &DefinitionError{Reason: "no entry point set"}
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return &DefinitionError{Reason: fmt.Sprintf("entry node %q is not registered", g.entry)}
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return &DefinitionError{Reason: fmt.Sprintf("edge source %q is not registered", from)}
		}
		if _, ok := g.nodes[to]; !ok {
			return &DefinitionError{Reason: fmt.Sprintf("edge target %q is not registered", to)}
		}
	}
	for from, edge := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return &DefinitionError{Reason: fmt.Sprintf("conditional edge source %q is not registered", from)}
		}
		for branch, to := range edge.branches {
			if _, ok := g.nodes[to]; !ok {
				return &DefinitionError{Reason: fmt.Sprintf("branch %s from %q targets unregistered node %q", branch, from, to)}
			}
		}
	}
	if !g.terminalReachable() {
		return &DefinitionError{Reason: "no terminal node is reachable from the entry point"}
	}
	g.compiled = true
	return nil
}

func (g *Graph[S]) terminalReachable() bool {
	visited := map[string]bool{}
	queue := []string{g.entry}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if visited[node] {
			continue
		}
		visited[node] = true

		_, hasStatic := g.edges[node]
		cond, hasCond := g.conditional[node]
		if !hasStatic && !hasCond {
			return true
		}
		if hasStatic {
			queue = append(queue, g.edges[node])
		}
		if hasCond {
			for _, to := range cond.branches {
				queue = append(queue, to)
			}
		}
	}
	return false
}

// Run walks the graph from the entry node until a node with no outgoing edge
// completes. On any error the last successfully committed state is returned
// alongside it, so callers can inspect or persist partial progress.
func (g *Graph[S]) Run(ctx context.Context, initial S) (S, error) {
	state := initial
	if !g.compiled {
		return state, &DefinitionError{Reason: "graph has not been compiled"}
	}

	node := g.entry
	for step := 0; ; step++ {
		if step >= g.stepLimit {
			return state, &StepLimitError{Node: node, Limit: g.stepLimit}
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		next, err := g.nodes[node](ctx, state)
		if err != nil {
			return state, &NodeError{Node: node, Err: err}
		}
		state = next

		if g.stepHook != nil {
			if err := g.stepHook(ctx, node, state); err != nil {
				return state, &NodeError{Node: node, Err: err}
			}
		}

		if to, ok := g.edges[node]; ok {
			node = to
			continue
		}
		if cond, ok := g.conditional[node]; ok {
			branch := cond.predicate(state)
			to, ok := cond.branches[branch]
			if !ok {
				return state, &NodeError{Node: node, Err: fmt.Errorf("predicate returned unmapped branch %s", branch)}
			}
			node = to
			continue
		}
		// Terminal node: run complete.
		return state, nil
	}
}
