package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// CompiledGraph is an immutable, executable pipeline. It holds no run
// state and is safe to share across concurrent runs.
type CompiledGraph[S any] struct {
	entry string
	nodes map[string]NodeFunc[S]
	edges map[string]edge[S]
	merge MergeFunc[S]
}

// Entry returns the name of the node runs start at.
func (cg *CompiledGraph[S]) Entry() string { return cg.entry }

// Run executes the graph from the entry node against initial and returns
// the final state. Execution is fail-fast: the first node error aborts the
// run and is returned alongside the state accumulated so far.
func (cg *CompiledGraph[S]) Run(ctx context.Context, initial S) (S, error) {
	state := initial
	cur := cg.entry

	for cur != End {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		next, updated, err := cg.step(ctx, cur, state)
		if err != nil {
			return state, err
		}
		state = updated
		cur = next
	}
	return state, nil
}

// step runs one node and resolves its outgoing edge.
func (cg *CompiledGraph[S]) step(ctx context.Context, name string, state S) (string, S, error) {
	fn := cg.nodes[name]
	out, err := fn(ctx, state)
	if err != nil {
		return "", state, fmt.Errorf("node %s: %w", name, err)
	}

	e := cg.edges[name]
	switch e.kind {
	case edgePlain:
		return e.to, out, nil

	case edgeConditional:
		label := e.route(out)
		to, ok := e.routes[label]
		if !ok {
			return "", out, fmt.Errorf("node %s: route returned undeclared label %q", name, label)
		}
		return to, out, nil

	case edgeFanOut:
		merged, err := cg.runBranches(ctx, e, out)
		if err != nil {
			return "", out, err
		}
		return e.join, merged, nil

	default:
		return "", out, fmt.Errorf("node %s: no outgoing edge", name)
	}
}

// runBranches executes each fan-out branch chain concurrently up to the
// join node and merges the branch states. The join is a hard barrier: a
// failure in any branch aborts the run before the join node executes.
func (cg *CompiledGraph[S]) runBranches(ctx context.Context, e edge[S], base S) (S, error) {
	results := make([]S, len(e.targets))
	eg, gctx := errgroup.WithContext(ctx)
	for i, start := range e.targets {
		i, start := i, start
		eg.Go(func() error {
			branchState := base
			for cur := start; cur != e.join; {
				fn := cg.nodes[cur]
				next, err := fn(gctx, branchState)
				if err != nil {
					return fmt.Errorf("node %s: %w", cur, err)
				}
				branchState = next
				cur = cg.edges[cur].to
			}
			results[i] = branchState
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return base, err
	}
	return cg.merge(base, results), nil
}
