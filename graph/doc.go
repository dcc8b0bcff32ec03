// Package graph runs a fixed, validated graph of named steps over a typed
// state.
//
// A StateGraph is built with AddNode, AddEdge and AddConditionalEdge, then
// checked by Compile. Compile rejects steps with no outgoing edge
// (DanglingStepError), steps that cannot be reached from START
// (UnreachableStepError), steps with more than one unconditional way out
// (AmbiguousEdgeError) and edges naming steps that do not exist.
//
// A compiled StateRunnable executes one step at a time. Each step returns an
// update which the graph's StateSchema merges into the running state; an
// update is merged only when its step succeeds. Branching is expressed with
// conditional edges whose possible destinations are declared up front.
//
//	g := graph.NewStateGraph[int]()
//	g.AddNode("inc", "add one", func(ctx context.Context, n int) (int, error) {
//		return n + 1, nil
//	})
//	g.AddEdge(graph.START, "inc")
//	g.AddEdge("inc", graph.END)
//
//	r, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	out, err := r.Invoke(ctx, 41)
//
// A Tracer attached with SetTracer or WithTracer records graph, step and
// edge spans; NewLoggingHook forwards them to a log.Logger.
package graph
