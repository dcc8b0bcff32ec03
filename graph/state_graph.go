package graph

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"

	"github.com/google/uuid"
	"github.com/smallnest/toolgraph/log"
)

// StateGraph is a graph of named steps over a state of type S. Steps run one
// at a time from START until END is reached.
//
// Example usage:
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
//	g.AddEdge(graph.START, "increment")
//	g.AddEdge("increment", graph.END)
//	runnable, err := g.Compile()
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node[S]

	// order keeps node insertion order so validation is deterministic
	order []string

	// edges is a slice of Edge objects representing the static connections between nodes
	edges []Edge

	// conditionalEdges maps a "From" node to a routing function and its possible targets
	conditionalEdges map[string]conditionalEdge[S]

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	recursionLimit int

	// buildErrs collects misuse detected while building, reported by Compile
	buildErrs []error

	// Schema defines the state update logic
	Schema StateSchema[S]
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]conditionalEdge[S]),
		recursionLimit:   DefaultRecursionLimit,
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	switch {
	case name == START || name == END:
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: %s", ErrReservedNodeName, name))
		return
	case fn == nil:
		g.buildErrs = append(g.buildErrs, fmt.Errorf("node %s has no function", name))
		return
	}
	if _, ok := g.nodes[name]; ok {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: %s", ErrDuplicateNode, name))
		return
	}
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
	g.order = append(g.order, name)
}

// AddEdge adds a new edge between the "from" and "to" nodes. An edge from
// START sets the entry point.
func (g *StateGraph[S]) AddEdge(from, to string) {
	if from == START {
		g.SetEntryPoint(to)
		return
	}
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds an edge whose target is chosen at runtime by
// condition. destinations lists every name condition may return; it is used
// to validate the graph at Compile.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string, destinations ...string) {
	if _, ok := g.conditionalEdges[from]; ok {
		g.buildErrs = append(g.buildErrs, &AmbiguousEdgeError{Step: from, Edges: []string{"conditional", "conditional"}})
		return
	}
	g.conditionalEdges[from] = conditionalEdge[S]{
		condition:    condition,
		destinations: slices.Clone(destinations),
	}
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	if g.entryPoint != "" && g.entryPoint != name {
		g.buildErrs = append(g.buildErrs, &AmbiguousEdgeError{Step: START, Edges: []string{g.entryPoint, name}})
		return
	}
	g.entryPoint = name
}

// SetSchema sets the state schema for the graph.
func (g *StateGraph[S]) SetSchema(schema StateSchema[S]) {
	g.Schema = schema
}

// SetRecursionLimit bounds the number of steps one execution may run.
func (g *StateGraph[S]) SetRecursionLimit(limit int) {
	g.recursionLimit = limit
}

// Compile validates the graph and returns a runnable. Malformed graphs are
// rejected here rather than during execution.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if len(g.buildErrs) > 0 {
		return nil, errors.Join(g.buildErrs...)
	}
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	outgoing := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		outgoing[e.From] = append(outgoing[e.From], e.To)
	}

	for _, name := range g.order {
		if _, hasCond := g.conditionalEdges[name]; !hasCond && len(outgoing[name]) == 0 {
			return nil, &DanglingStepError{Step: name}
		}
	}

	for _, e := range g.edges {
		if !g.isNode(e.From) {
			return nil, fmt.Errorf("%w: edge %s -> %s", ErrNodeNotFound, e.From, e.To)
		}
		if e.To != END && !g.isNode(e.To) {
			return nil, fmt.Errorf("%w: edge %s -> %s", ErrNodeNotFound, e.From, e.To)
		}
	}
	for from, ce := range g.conditionalEdges {
		if !g.isNode(from) {
			return nil, fmt.Errorf("%w: conditional edge from %s", ErrNodeNotFound, from)
		}
		if ce.condition == nil || len(ce.destinations) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoDestinations, from)
		}
		for _, to := range ce.destinations {
			if to != END && !g.isNode(to) {
				return nil, fmt.Errorf("%w: conditional edge %s -> %s", ErrNodeNotFound, from, to)
			}
		}
	}

	for _, name := range g.order {
		targets := outgoing[name]
		_, hasCond := g.conditionalEdges[name]
		if len(targets) > 1 || (len(targets) == 1 && hasCond) {
			edges := slices.Clone(targets)
			if hasCond {
				edges = append(edges, "conditional")
			}
			return nil, &AmbiguousEdgeError{Step: name, Edges: edges}
		}
	}

	reachable := g.reachable(outgoing)
	for _, name := range g.order {
		if !reachable[name] {
			return nil, &UnreachableStepError{Step: name}
		}
	}

	limit := g.recursionLimit
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}

	next := make(map[string]string, len(outgoing))
	for from, targets := range outgoing {
		next[from] = targets[0]
	}
	conditional := make(map[string]conditionalEdge[S], len(g.conditionalEdges))
	for from, ce := range g.conditionalEdges {
		conditional[from] = conditionalEdge[S]{
			condition:    ce.condition,
			destinations: slices.Clone(ce.destinations),
		}
	}

	// The runnable keeps its own copies so later builder calls cannot
	// change a validated graph.
	return &StateRunnable[S]{
		nodes:            maps.Clone(g.nodes),
		order:            slices.Clone(g.order),
		entryPoint:       g.entryPoint,
		next:             next,
		conditionalEdges: conditional,
		schema:           g.Schema,
		recursionLimit:   limit,
		logger:           log.GetDefaultLogger(),
	}, nil
}

func (g *StateGraph[S]) isNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

func (g *StateGraph[S]) reachable(outgoing map[string][]string) map[string]bool {
	seen := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		targets := outgoing[cur]
		if ce, ok := g.conditionalEdges[cur]; ok {
			targets = append(slices.Clone(targets), ce.destinations...)
		}
		for _, to := range targets {
			if to == END || seen[to] {
				continue
			}
			seen[to] = true
			queue = append(queue, to)
		}
	}
	return seen
}

// StateRunnable is a compiled, read-only state graph. It may be invoked by
// several executions concurrently as long as each owns its state.
type StateRunnable[S any] struct {
	nodes            map[string]Node[S]
	order            []string
	entryPoint       string
	next             map[string]string
	conditionalEdges map[string]conditionalEdge[S]
	schema           StateSchema[S]
	recursionLimit   int
	tracer           *Tracer
	logger           log.Logger
}

// SetTracer sets a tracer for observability.
func (r *StateRunnable[S]) SetTracer(tracer *Tracer) {
	r.tracer = tracer
}

// GetTracer returns the current tracer.
func (r *StateRunnable[S]) GetTracer() *Tracer {
	return r.tracer
}

// WithTracer returns a new StateRunnable with the given tracer.
func (r *StateRunnable[S]) WithTracer(tracer *Tracer) *StateRunnable[S] {
	cp := *r
	cp.tracer = tracer
	return &cp
}

// SetLogger replaces the logger used for step logging.
func (r *StateRunnable[S]) SetLogger(logger log.Logger) {
	r.logger = logger
}

// EntryPoint returns the first step run by Invoke.
func (r *StateRunnable[S]) EntryPoint() string {
	return r.entryPoint
}

// Nodes returns step names in insertion order.
func (r *StateRunnable[S]) Nodes() []string {
	return slices.Clone(r.order)
}

// Invoke runs the graph from its entry point until END. Each step's update
// is merged only after the step succeeds; on failure the state reached by
// the last successful step is returned together with the error.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	state := initialState
	runID := uuid.NewString()

	var graphSpan *TraceSpan
	if r.tracer != nil {
		graphSpan = r.tracer.StartSpan(ctx, TraceEventGraphStart, "")
		graphSpan.Metadata["run_id"] = runID
		ctx = ContextWithSpan(ctx, graphSpan)
	}
	finish := func(s S, err error) (S, error) {
		if graphSpan != nil {
			r.tracer.EndSpan(ctx, graphSpan, s, err)
		}
		if err != nil {
			r.logger.Error("run %s failed: %v", runID, err)
		}
		return s, err
	}

	r.logger.Debug("run %s started at %s", runID, r.entryPoint)
	current := r.entryPoint
	for steps := 0; current != END; steps++ {
		if steps >= r.recursionLimit {
			return finish(state, fmt.Errorf("%w: %d steps", ErrRecursionLimit, r.recursionLimit))
		}
		if err := ctx.Err(); err != nil {
			return finish(state, err)
		}

		node := r.nodes[current]
		update, err := r.runNode(ctx, node, state)
		if err != nil {
			return finish(state, fmt.Errorf("error in node %s: %w", current, err))
		}

		merged, err := r.merge(state, update)
		if err != nil {
			return finish(state, fmt.Errorf("schema update failed after node %s: %w", current, err))
		}
		state = merged

		next, err := r.nextNode(ctx, current, state)
		if err != nil {
			return finish(state, err)
		}
		if r.tracer != nil {
			r.tracer.TraceEdgeTraversal(ctx, current, next)
		}
		r.logger.Debug("run %s: %s -> %s", runID, current, next)
		current = next
	}

	return finish(state, nil)
}

func (r *StateRunnable[S]) runNode(ctx context.Context, node Node[S], state S) (update S, err error) {
	var span *TraceSpan
	if r.tracer != nil {
		span = r.tracer.StartSpan(ctx, TraceEventNodeStart, node.Name)
		ctx = ContextWithSpan(ctx, span)
	}

	defer func() {
		if p := recover(); p != nil {
			var zero S
			update = zero
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
		if span != nil {
			r.tracer.EndSpan(ctx, span, update, err)
		}
	}()

	return node.Function(ctx, state)
}

func (r *StateRunnable[S]) merge(current, update S) (S, error) {
	if r.schema == nil {
		return update, nil
	}
	return r.schema.Update(current, update)
}

func (r *StateRunnable[S]) nextNode(ctx context.Context, current string, state S) (string, error) {
	if ce, ok := r.conditionalEdges[current]; ok {
		next := ce.condition(ctx, state)
		if !slices.Contains(ce.destinations, next) {
			return "", fmt.Errorf("%w: conditional edge from %s returned %q", ErrNodeNotFound, current, next)
		}
		return next, nil
	}
	return r.next[current], nil
}
