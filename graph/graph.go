package graph

import (
	"context"
	"errors"
	"fmt"
)

const (
	// START is the sentinel source of the entry edge: AddEdge(START, "agent").
	START = "START"

	// END is a special constant used to represent the end node in the graph.
	END = "END"
)

// DefaultRecursionLimit bounds the number of steps a single Invoke may run.
const DefaultRecursionLimit = 25

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrReservedNodeName is returned when a node is named START or END.
	ErrReservedNodeName = errors.New("reserved node name")

	// ErrDuplicateNode is returned when two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrNoDestinations is returned when a conditional edge declares no destinations.
	ErrNoDestinations = errors.New("conditional edge has no destinations")

	// ErrRecursionLimit is returned when an execution exceeds its step budget.
	ErrRecursionLimit = errors.New("recursion limit reached")
)

// DanglingStepError is returned by Compile for a step without an outgoing edge.
type DanglingStepError struct {
	Step string
}

func (e *DanglingStepError) Error() string {
	return fmt.Sprintf("step %s has no outgoing edge", e.Step)
}

// UnreachableStepError is returned by Compile for a step that cannot be
// reached from START.
type UnreachableStepError struct {
	Step string
}

func (e *UnreachableStepError) Error() string {
	return fmt.Sprintf("step %s is not reachable from %s", e.Step, START)
}

// AmbiguousEdgeError is returned by Compile when a step has more than one way
// out. Branching must go through a conditional edge.
type AmbiguousEdgeError struct {
	Step  string
	Edges []string
}

func (e *AmbiguousEdgeError) Error() string {
	return fmt.Sprintf("step %s has ambiguous outgoing edges %v", e.Step, e.Edges)
}

// Node represents a node in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function computes the node's state update from the current state.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

type conditionalEdge[S any] struct {
	condition    func(ctx context.Context, state S) string
	destinations []string
}
