// Package workflow is a small in-process DAG executor for short, bounded
// pipelines. Named nodes transform a shared state value; edges wire them
// sequentially, in parallel fan-out branches, or through a routing function.
// A graph is compiled once and reused for every run.
package workflow

import (
	"context"
	"fmt"
)

// End is the terminal marker. An edge pointing at End finishes the run.
const End = "__end__"

// NodeFunc is a unit of work: it receives the current state and returns the
// updated state. A returned error aborts the whole run.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouteFunc picks the label of the successor to follow, evaluated against
// the state right after the source node completes.
type RouteFunc[S any] func(state S) string

// MergeFunc folds the states produced by parallel fan-out branches back
// into one. base is the state as it was when the branches forked.
type MergeFunc[S any] func(base S, branches []S) S

type edgeKind int

const (
	edgeNone edgeKind = iota
	edgePlain
	edgeFanOut
	edgeConditional
)

type edge[S any] struct {
	kind    edgeKind
	to      string            // plain
	targets []string          // fan-out branch entry nodes
	join    string            // fan-out convergence node, resolved at compile
	route   RouteFunc[S]      // conditional
	routes  map[string]string // conditional label -> node
}

// Graph accumulates nodes and edges before compilation. Not safe for
// concurrent use; compile it and share the CompiledGraph instead.
type Graph[S any] struct {
	nodes map[string]NodeFunc[S]
	edges map[string]edge[S]
	entry string
	merge MergeFunc[S]
	errs  []error
}

// New returns an empty graph builder.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes: make(map[string]NodeFunc[S]),
		edges: make(map[string]edge[S]),
	}
}

// RegisterNode adds a named node implementation.
func (g *Graph[S]) RegisterNode(name string, fn NodeFunc[S]) {
	if name == "" || name == End {
		g.errs = append(g.errs, fmt.Errorf("invalid node name %q", name))
		return
	}
	if _, exists := g.nodes[name]; exists {
		g.errs = append(g.errs, fmt.Errorf("duplicate node %q", name))
		return
	}
	if fn == nil {
		g.errs = append(g.errs, fmt.Errorf("node %q has nil implementation", name))
		return
	}
	g.nodes[name] = fn
}

// AddEdge wires an unconditional successor.
func (g *Graph[S]) AddEdge(from, to string) {
	g.setEdge(from, edge[S]{kind: edgePlain, to: to})
}

// AddFanOut wires parallel successors. All branches run concurrently and
// must reconverge on a single join node before the run proceeds.
func (g *Graph[S]) AddFanOut(from string, to []string) {
	if len(to) < 2 {
		g.errs = append(g.errs, fmt.Errorf("fan-out from %q needs at least two branches", from))
		return
	}
	g.setEdge(from, edge[S]{kind: edgeFanOut, targets: append([]string(nil), to...)})
}

// AddConditionalEdge wires a routing function. route must return one of the
// declared labels; the label targets are validated at compile time.
func (g *Graph[S]) AddConditionalEdge(from string, route RouteFunc[S], routes map[string]string) {
	if route == nil {
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %q has nil route", from))
		return
	}
	if len(routes) == 0 {
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %q declares no labels", from))
		return
	}
	copied := make(map[string]string, len(routes))
	for label, to := range routes {
		copied[label] = to
	}
	g.setEdge(from, edge[S]{kind: edgeConditional, route: route, routes: copied})
}

// SetEntry designates the node a run starts at.
func (g *Graph[S]) SetEntry(name string) { g.entry = name }

// SetMerge installs the fan-in merge function. Required when the graph
// contains a fan-out edge.
func (g *Graph[S]) SetMerge(fn MergeFunc[S]) { g.merge = fn }

func (g *Graph[S]) setEdge(from string, e edge[S]) {
	if existing, ok := g.edges[from]; ok && existing.kind != edgeNone {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return
	}
	g.edges[from] = e
}

// Compile validates the graph and freezes it into an executable form.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	if len(g.errs) > 0 {
		return nil, fmt.Errorf("graph: %w", g.errs[0])
	}
	if g.entry == "" {
		return nil, fmt.Errorf("graph: no entry node set")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("graph: entry node %q not registered", g.entry)
	}

	known := func(name string) bool {
		if name == End {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	edges := make(map[string]edge[S], len(g.edges))
	for from, e := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("graph: edge from unknown node %q", from)
		}
		switch e.kind {
		case edgePlain:
			if !known(e.to) {
				return nil, fmt.Errorf("graph: edge %q -> %q targets unknown node", from, e.to)
			}
		case edgeFanOut:
			for _, t := range e.targets {
				if t == End {
					return nil, fmt.Errorf("graph: fan-out from %q cannot target the end marker", from)
				}
				if !known(t) {
					return nil, fmt.Errorf("graph: fan-out from %q targets unknown node %q", from, t)
				}
			}
			join, err := g.resolveJoin(from, e.targets)
			if err != nil {
				return nil, err
			}
			e.join = join
			if g.merge == nil {
				return nil, fmt.Errorf("graph: fan-out from %q requires a merge function", from)
			}
		case edgeConditional:
			for label, to := range e.routes {
				if !known(to) {
					return nil, fmt.Errorf("graph: conditional label %q from %q targets unknown node %q", label, from, to)
				}
			}
		}
		edges[from] = e
	}

	// Every node except terminal ones must lead somewhere.
	for name := range g.nodes {
		if _, ok := edges[name]; !ok {
			return nil, fmt.Errorf("graph: node %q has no outgoing edge (point it at workflow.End to terminate)", name)
		}
	}

	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for name, fn := range g.nodes {
		nodes[name] = fn
	}
	return &CompiledGraph[S]{entry: g.entry, nodes: nodes, edges: edges, merge: g.merge}, nil
}

// resolveJoin follows each branch's plain-edge chain until all branches
// meet at one node. Branch interiors may only use plain edges.
func (g *Graph[S]) resolveJoin(from string, targets []string) (string, error) {
	chains := make([][]string, len(targets))
	for i, start := range targets {
		seen := map[string]bool{}
		cur := start
		for {
			if seen[cur] {
				return "", fmt.Errorf("graph: fan-out branch from %q revisits node %q", from, cur)
			}
			seen[cur] = true
			chains[i] = append(chains[i], cur)
			e, ok := g.edges[cur]
			if !ok || e.kind != edgePlain || e.to == End {
				break
			}
			cur = e.to
		}
	}

	inAll := func(name string) bool {
		for _, chain := range chains {
			found := false
			for _, n := range chain {
				if n == name {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	for _, n := range chains[0] {
		if inAll(n) {
			return n, nil
		}
	}
	return "", fmt.Errorf("graph: fan-out branches from %q never reconverge", from)
}
