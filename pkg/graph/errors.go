package graph

import "fmt"

// DefinitionError reports a malformed graph at compile time: a missing entry
// point, an edge referencing an unknown node, or a graph with no reachable
// terminal node. It is never returned at run time.
type DefinitionError struct {
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("graph definition error: %s", e.Reason)
}

// StepLimitError reports a run that exceeded the configured step ceiling.
// The last good state is returned alongside this error by Run.
type StepLimitError struct {
	Node  string
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step limit %d exceeded at node %q", e.Limit, e.Node)
}

// NodeError wraps a failure raised by a node handler or by the step hook,
// identifying the node where the run aborted.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
