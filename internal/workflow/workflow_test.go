package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testState is a simple record for exercising the engine.
type testState struct {
	Log   []string
	A     string
	B     string
	Taken string
}

func appendLog(name string) NodeFunc[testState] {
	return func(_ context.Context, s testState) (testState, error) {
		s.Log = append(s.Log, name)
		return s, nil
	}
}

func mergeTest(base testState, branches []testState) testState {
	out := base
	for _, b := range branches {
		if b.A != "" {
			out.A = b.A
		}
		if b.B != "" {
			out.B = b.B
		}
	}
	return out
}

func TestRunSequential(t *testing.T) {
	g := New[testState]()
	g.RegisterNode("one", appendLog("one"))
	g.RegisterNode("two", appendLog("two"))
	g.RegisterNode("three", appendLog("three"))
	g.SetEntry("one")
	g.AddEdge("one", "two")
	g.AddEdge("two", "three")
	g.AddEdge("three", End)

	cg, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := cg.Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two", "three"}, got.Log); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFanOutMergesBothBranches(t *testing.T) {
	var mu sync.Mutex
	started := map[string]bool{}

	g := New[testState]()
	g.RegisterNode("start", appendLog("start"))
	g.RegisterNode("left", func(_ context.Context, s testState) (testState, error) {
		mu.Lock()
		started["left"] = true
		mu.Unlock()
		s.A = "from-left"
		return s, nil
	})
	g.RegisterNode("right", func(_ context.Context, s testState) (testState, error) {
		mu.Lock()
		started["right"] = true
		mu.Unlock()
		s.B = "from-right"
		return s, nil
	})
	g.RegisterNode("join", func(_ context.Context, s testState) (testState, error) {
		// The join is a barrier: both branch fields must be present.
		if s.A == "" || s.B == "" {
			t.Errorf("join ran before both branches merged: %+v", s)
		}
		s.Log = append(s.Log, "join")
		return s, nil
	})
	g.SetEntry("start")
	g.AddFanOut("start", []string{"left", "right"})
	g.AddEdge("left", "join")
	g.AddEdge("right", "join")
	g.AddEdge("join", End)
	g.SetMerge(mergeTest)

	cg, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := cg.Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.A != "from-left" || got.B != "from-right" {
		t.Errorf("merged state missing branch fields: %+v", got)
	}
	if !started["left"] || !started["right"] {
		t.Errorf("both branches should have run: %v", started)
	}
}

func TestRunFanOutBranchFailureAbortsBeforeJoin(t *testing.T) {
	joinRan := false
	boom := errors.New("boom")

	g := New[testState]()
	g.RegisterNode("start", appendLog("start"))
	g.RegisterNode("ok", func(_ context.Context, s testState) (testState, error) {
		s.A = "ok"
		return s, nil
	})
	g.RegisterNode("fail", func(_ context.Context, s testState) (testState, error) {
		return s, boom
	})
	g.RegisterNode("join", func(_ context.Context, s testState) (testState, error) {
		joinRan = true
		return s, nil
	})
	g.SetEntry("start")
	g.AddFanOut("start", []string{"ok", "fail"})
	g.AddEdge("ok", "join")
	g.AddEdge("fail", "join")
	g.AddEdge("join", End)
	g.SetMerge(mergeTest)

	cg, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = cg.Run(context.Background(), testState{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected branch error, got %v", err)
	}
	if joinRan {
		t.Error("join node must not execute after a branch failure")
	}
}

func TestRunConditionalTakesExactlyOneBranch(t *testing.T) {
	build := func(taken string) *CompiledGraph[testState] {
		g := New[testState]()
		g.RegisterNode("decide", func(_ context.Context, s testState) (testState, error) {
			s.Taken = taken
			return s, nil
		})
		g.RegisterNode("yes", appendLog("yes"))
		g.RegisterNode("no", appendLog("no"))
		g.SetEntry("decide")
		g.AddConditionalEdge("decide", func(s testState) string { return s.Taken },
			map[string]string{"yes": "yes", "no": "no"})
		g.AddEdge("yes", End)
		g.AddEdge("no", End)
		cg, err := g.Compile()
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		return cg
	}

	got, err := build("yes").Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"yes"}, got.Log); diff != "" {
		t.Errorf("taken branch mismatch (-want +got):\n%s", diff)
	}

	got, err = build("no").Run(context.Background(), testState{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"no"}, got.Log); diff != "" {
		t.Errorf("taken branch mismatch (-want +got):\n%s", diff)
	}
}

func TestRunUndeclaredRouteLabelFails(t *testing.T) {
	g := New[testState]()
	g.RegisterNode("decide", appendLog("decide"))
	g.RegisterNode("yes", appendLog("yes"))
	g.SetEntry("decide")
	g.AddConditionalEdge("decide", func(testState) string { return "maybe" },
		map[string]string{"yes": "yes"})
	g.AddEdge("yes", End)

	cg, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = cg.Run(context.Background(), testState{})
	if err == nil || !strings.Contains(err.Error(), "undeclared label") {
		t.Fatalf("expected undeclared-label error, got %v", err)
	}
}

func TestRunNodeErrorIsFailFast(t *testing.T) {
	boom := errors.New("boom")
	afterRan := false

	g := New[testState]()
	g.RegisterNode("first", func(_ context.Context, s testState) (testState, error) {
		return s, boom
	})
	g.RegisterNode("after", func(_ context.Context, s testState) (testState, error) {
		afterRan = true
		return s, nil
	})
	g.SetEntry("first")
	g.AddEdge("first", "after")
	g.AddEdge("after", End)

	cg, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = cg.Run(context.Background(), testState{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected node error, got %v", err)
	}
	if afterRan {
		t.Error("no further nodes may run after a failure")
	}
}

func TestCompileValidation(t *testing.T) {
	cases := []struct {
		name    string
		build   func() *Graph[testState]
		wantErr string
	}{
		{
			name: "no entry",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.AddEdge("a", End)
				return g
			},
			wantErr: "no entry",
		},
		{
			name: "entry not registered",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.AddEdge("a", End)
				g.SetEntry("missing")
				return g
			},
			wantErr: "not registered",
		},
		{
			name: "edge to unknown node",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.SetEntry("a")
				g.AddEdge("a", "ghost")
				return g
			},
			wantErr: "unknown node",
		},
		{
			name: "conditional label to unknown node",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.SetEntry("a")
				g.AddConditionalEdge("a", func(testState) string { return "x" }, map[string]string{"x": "ghost"})
				return g
			},
			wantErr: "unknown node",
		},
		{
			name: "dangling node",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.RegisterNode("b", appendLog("b"))
				g.SetEntry("a")
				g.AddEdge("a", "b")
				return g
			},
			wantErr: "no outgoing edge",
		},
		{
			name: "fan-out without merge",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.RegisterNode("b", appendLog("b"))
				g.RegisterNode("c", appendLog("c"))
				g.RegisterNode("j", appendLog("j"))
				g.SetEntry("a")
				g.AddFanOut("a", []string{"b", "c"})
				g.AddEdge("b", "j")
				g.AddEdge("c", "j")
				g.AddEdge("j", End)
				return g
			},
			wantErr: "merge function",
		},
		{
			name: "fan-out branches never reconverge",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.RegisterNode("b", appendLog("b"))
				g.RegisterNode("c", appendLog("c"))
				g.SetEntry("a")
				g.AddFanOut("a", []string{"b", "c"})
				g.AddEdge("b", End)
				g.AddEdge("c", End)
				g.SetMerge(mergeTest)
				return g
			},
			wantErr: "reconverge",
		},
		{
			name: "duplicate outgoing edge",
			build: func() *Graph[testState] {
				g := New[testState]()
				g.RegisterNode("a", appendLog("a"))
				g.SetEntry("a")
				g.AddEdge("a", End)
				g.AddEdge("a", End)
				return g
			},
			wantErr: "already has an outgoing edge",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build().Compile()
			if err == nil {
				t.Fatal("expected compile error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestCompiledGraphReusableAcrossRuns(t *testing.T) {
	g := New[testState]()
	g.RegisterNode("a", appendLog("a"))
	g.SetEntry("a")
	g.AddEdge("a", End)
	cg, err := g.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cg.Run(context.Background(), testState{})
			if err != nil {
				t.Errorf("run: %v", err)
			}
			if len(got.Log) != 1 {
				t.Errorf("state leaked between runs: %+v", got)
			}
		}()
	}
	wg.Wait()
}
