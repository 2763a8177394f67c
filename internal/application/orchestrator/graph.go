package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/aescanero/agentflow/internal/application/workers"
	"github.com/aescanero/agentflow/pkg/domain"
	"go.uber.org/zap"
)

// Node is a graph vertex bound to a unit. Role labels the records it
// produces and defaults to ID.
type Node struct {
	ID   string
	Role string
	Unit domain.Unit
}

// Graph is an immutable, validated workflow graph. Its execution order is
// resolved once at build time.
type Graph struct {
	nodes  []Node
	index  map[string]int
	edges  []domain.Edge
	entry  string
	order  []string
	levels [][]string
}

// Build validates nodes and edges and resolves the execution order of the
// subgraph reachable from entry.
//
// A node becomes ready once every reachable predecessor has been visited;
// ready nodes are visited in declaration order. Predecessors that are not
// reachable from entry never run and are ignored. A cycle in the reachable
// subgraph fails with domain.ErrCyclicGraph.
func Build(nodes []Node, edges []domain.Edge, entry string) (*Graph, error) {
	def := domain.GraphDefinition{Entry: entry, Edges: edges}
	for _, n := range nodes {
		def.Nodes = append(def.Nodes, domain.NodeDefinition{ID: n.ID, Role: n.Role})
		if n.ID != "" && n.Unit == nil {
			return nil, fmt.Errorf("%w: node %q has no unit", domain.ErrInvalidGraph, n.ID)
		}
	}
	if err := NewValidator().Validate(def); err != nil {
		return nil, err
	}

	g := &Graph{
		nodes: make([]Node, len(nodes)),
		index: make(map[string]int, len(nodes)),
		edges: dedupeEdges(edges),
		entry: entry,
	}
	copy(g.nodes, nodes)
	for i, n := range g.nodes {
		if n.Role == "" {
			g.nodes[i].Role = n.ID
		}
		g.index[n.ID] = i
	}

	if err := g.resolve(); err != nil {
		return nil, err
	}
	return g, nil
}

// Entry returns the entry node id.
func (g *Graph) Entry() string { return g.entry }

// Order returns the resolved visitation order.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// Levels groups the reachable nodes by dependency depth. Nodes within a
// level have no edges between them.
func (g *Graph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, level := range g.levels {
		out[i] = append([]string(nil), level...)
	}
	return out
}

// resolve computes order and levels using Kahn's algorithm restricted to
// the reachable subgraph.
func (g *Graph) resolve() error {
	successors := make(map[int][]int)
	for _, e := range g.edges {
		from, to := g.index[e.From], g.index[e.To]
		successors[from] = append(successors[from], to)
	}

	entry := g.index[g.entry]
	reachable := map[int]bool{entry: true}
	queue := []int{entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range successors[cur] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	inDegree := make(map[int]int, len(reachable))
	for id := range reachable {
		inDegree[id] = 0
	}
	for from := range reachable {
		for _, to := range successors[from] {
			inDegree[to]++
		}
	}

	// Sequential order: always take the earliest-declared ready node.
	remaining := make(map[int]int, len(inDegree))
	var ready []int
	for id, deg := range inDegree {
		remaining[id] = deg
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	for len(ready) > 0 {
		sort.Ints(ready)
		cur := ready[0]
		ready = ready[1:]
		g.order = append(g.order, g.nodes[cur].ID)
		for _, next := range successors[cur] {
			remaining[next]--
			if remaining[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(g.order) != len(reachable) {
		visited := make(map[string]bool, len(g.order))
		for _, id := range g.order {
			visited[id] = true
		}
		var stuck []int
		for id := range reachable {
			if !visited[g.nodes[id].ID] {
				stuck = append(stuck, id)
			}
		}
		sort.Ints(stuck)
		names := make([]string, len(stuck))
		for i, id := range stuck {
			names[i] = g.nodes[id].ID
		}
		g.order = nil
		return fmt.Errorf("%w: unresolved nodes %v", domain.ErrCyclicGraph, names)
	}

	// Levels: breadth-wise waves over the same in-degrees.
	var wave []int
	for id, deg := range inDegree {
		if deg == 0 {
			wave = append(wave, id)
		}
	}
	for len(wave) > 0 {
		sort.Ints(wave)
		level := make([]string, len(wave))
		var next []int
		for i, cur := range wave {
			level[i] = g.nodes[cur].ID
			for _, succ := range successors[cur] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		g.levels = append(g.levels, level)
		wave = next
	}

	return nil
}

func dedupeEdges(edges []domain.Edge) []domain.Edge {
	seen := make(map[domain.Edge]bool, len(edges))
	out := make([]domain.Edge, 0, len(edges))
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// GraphExecutor runs a built graph. It is sequential unless a worker pool
// is supplied with WithWorkerPool.
type GraphExecutor struct {
	runner *Runner
	pool   *workers.Pool
	logger *zap.Logger
}

// GraphOption configures a GraphExecutor.
type GraphOption func(*GraphExecutor)

// WithWorkerPool enables level-parallel execution on pool. Records and the
// returned order still follow the sequential visitation order.
func WithWorkerPool(pool *workers.Pool) GraphOption {
	return func(e *GraphExecutor) {
		e.pool = pool
	}
}

// NewGraphExecutor creates a graph executor.
func NewGraphExecutor(runner *Runner, logger *zap.Logger, opts ...GraphOption) *GraphExecutor {
	e := &GraphExecutor{runner: runner, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parallel reports whether the executor dispatches levels to a worker pool.
func (e *GraphExecutor) Parallel() bool {
	return e.pool != nil
}

// Execute runs every reachable node exactly once, passing input unchanged
// to each, and returns the visitation order with one record per node in
// that order.
func (e *GraphExecutor) Execute(ctx context.Context, g *Graph, input string, hooks ...RecordHook) ([]string, domain.Trace, error) {
	if g == nil {
		return nil, nil, fmt.Errorf("%w: graph is nil", domain.ErrInvalidGraph)
	}

	order := g.Order()
	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	records := make([]domain.ExecutionRecord, len(order))
	run := func(ctx context.Context, id string) {
		n := g.nodes[g.index[id]]
		records[position[id]] = e.runner.invoke(ctx, n.Role, n.ID, n.Unit, input)
	}

	if e.pool != nil && e.pool.Running() {
		for _, level := range g.levels {
			tasks := make([]workers.Task, len(level))
			for i, id := range level {
				id := id
				tasks[i] = workers.Task{ID: id, Run: func(ctx context.Context) { run(ctx, id) }}
			}
			if err := e.pool.RunAll(ctx, tasks); err != nil {
				e.logger.Warn("worker pool unavailable, running level inline",
					zap.Strings("nodes", level),
					zap.Error(err))
				for _, id := range level {
					run(ctx, id)
				}
			}
		}
		for i, rec := range records {
			for _, hook := range hooks {
				hook(ctx, i, rec)
			}
		}
	} else {
		if e.pool != nil {
			e.logger.Warn("worker pool not running, executing graph sequentially")
		}
		for i, id := range order {
			run(ctx, id)
			for _, hook := range hooks {
				hook(ctx, i, records[i])
			}
		}
	}

	return order, domain.Trace(records), nil
}
