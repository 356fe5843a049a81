package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countState struct {
	Visits []string
	N      int
}

func appendNode(id string) Handler[countState] {
	return func(_ context.Context, s countState) (countState, error) {
		s.Visits = append(s.Visits, id)
		return s, nil
	}
}

func TestRunLinearPath(t *testing.T) {
	g := New[countState]()
	require.NoError(t, g.AddNode("a", appendNode("a")))
	require.NoError(t, g.AddNode("b", appendNode("b")))
	require.NoError(t, g.AddNode("c", appendNode("c")))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.SetEntry("a"))
	require.NoError(t, g.Compile())

	final, err := g.Run(context.Background(), countState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, final.Visits)
}

func TestRunConditionalLoop(t *testing.T) {
	g := New[countState]()
	require.NoError(t, g.AddNode("work", func(_ context.Context, s countState) (countState, error) {
		s.N++
		return s, nil
	}))
	require.NoError(t, g.AddNode("done", appendNode("done")))
	require.NoError(t, g.AddConditionalEdge("work", func(s countState) Branch {
		if s.N < 3 {
			return BranchContinue
		}
		return BranchAdvance
	}, map[Branch]string{
		BranchContinue: "work",
		BranchAdvance:  "done",
	}))
	require.NoError(t, g.SetEntry("work"))
	require.NoError(t, g.Compile())

	final, err := g.Run(context.Background(), countState{})
	require.NoError(t, err)
	assert.Equal(t, 3, final.N)
	assert.Equal(t, []string{"done"}, final.Visits)
}

func TestDuplicateNodeRejected(t *testing.T) {
	g := New[countState]()
	require.NoError(t, g.AddNode("a", appendNode("a")))
	err := g.AddNode("a", appendNode("a"))

	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
}

func TestCompileRejectsUnknownEdgeTarget(t *testing.T) {
	g := New[countState]()
	require.NoError(t, g.AddNode("a", appendNode("a")))
	require.NoError(t, g.AddEdge("a", "ghost"))
	require.NoError(t, g.SetEntry("a"))

	var defErr *DefinitionError
	require.ErrorAs(t, g.Compile(), &defErr)
}

func TestCompileRejectsNoTerminal(t *testing.T) {
	g := New[countState]()
	require.NoError(t, g.AddNode("a", appendNode("a")))
	require.NoError(t, g.AddNode("b", appendNode("b")))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))
	require.NoError(t, g.SetEntry("a"))

	var defErr *DefinitionError
	require.ErrorAs(t, g.Compile(), &defErr)
}

func TestStepLimitReturnsLastState(t *testing.T) {
	g := New[countState](WithStepLimit[countState](10))
	require.NoError(t, g.AddNode("spin", func(_ context.Context, s countState) (countState, error) {
		s.N++
		return s, nil
	}))
	require.NoError(t, g.AddNode("never", appendNode("never")))
	require.NoError(t, g.AddConditionalEdge("spin", func(countState) Branch {
		return BranchContinue
	}, map[Branch]string{
		BranchContinue: "spin",
		BranchAdvance:  "never",
	}))
	require.NoError(t, g.SetEntry("spin"))
	require.NoError(t, g.Compile())

	final, err := g.Run(context.Background(), countState{})
	var limitErr *StepLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 10, limitErr.Limit)
	assert.Equal(t, 10, final.N, "last good state carries all committed increments")
}

func TestHandlerErrorAbortsWithLastState(t *testing.T) {
	boom := errors.New("oracle unavailable")
	g := New[countState]()
	require.NoError(t, g.AddNode("ok", appendNode("ok")))
	require.NoError(t, g.AddNode("fail", func(_ context.Context, s countState) (countState, error) {
		return s, boom
	}))
	require.NoError(t, g.AddNode("end", appendNode("end")))
	require.NoError(t, g.AddEdge("ok", "fail"))
	require.NoError(t, g.AddEdge("fail", "end"))
	require.NoError(t, g.SetEntry("ok"))
	require.NoError(t, g.Compile())

	final, err := g.Run(context.Background(), countState{})
	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fail", nodeErr.Node)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{"ok"}, final.Visits)
}

func TestStepHookRunsPerNode(t *testing.T) {
	var persisted []string
	g := New(WithStepHook[countState](func(_ context.Context, node string, _ countState) error {
		persisted = append(persisted, node)
		return nil
	}))
	require.NoError(t, g.AddNode("a", appendNode("a")))
	require.NoError(t, g.AddNode("b", appendNode("b")))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.SetEntry("a"))
	require.NoError(t, g.Compile())

	_, err := g.Run(context.Background(), countState{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, persisted)
}

func TestConcurrentRunsAreIndependent(t *testing.T) {
	g := New[countState]()
	require.NoError(t, g.AddNode("inc", func(_ context.Context, s countState) (countState, error) {
		s.N++
		return s, nil
	}))
	require.NoError(t, g.AddNode("end", appendNode("end")))
	require.NoError(t, g.AddConditionalEdge("inc", func(s countState) Branch {
		if s.N < 50 {
			return BranchContinue
		}
		return BranchAdvance
	}, map[Branch]string{BranchContinue: "inc", BranchAdvance: "end"}))
	require.NoError(t, g.SetEntry("inc"))
	require.NoError(t, g.Compile())

	results := make(chan int, 8)
	for i := 0; i < 8; i++ {
		go func() {
			final, err := g.Run(context.Background(), countState{})
			if err != nil {
				results <- -1
				return
			}
			results <- final.N
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, 50, <-results, fmt.Sprintf("run %d", i))
	}
}
