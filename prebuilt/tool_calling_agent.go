package prebuilt

import (
	"context"
	"errors"

	"github.com/smallnest/toolgraph/graph"
	"github.com/smallnest/toolgraph/log"
	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/model"
	"github.com/smallnest/toolgraph/tool"
)

const (
	// ModelNode is the step that calls the model.
	ModelNode = "tool_calling_llm"

	// ToolsNode is the step that resolves tool calls.
	ToolsNode = "tools"
)

// AgentOptions configures CreateToolCallingAgent.
type AgentOptions struct {
	ToolErrorPolicy ToolErrorPolicy

	// MaxToolRounds enables the follow-up loop when positive: after each tools
	// step the model is called again. At most this many tools steps run.
	MaxToolRounds int

	SystemPrompt string
	Logger       log.Logger
	Tracer       *graph.Tracer
}

// AgentOption is a functional option for CreateToolCallingAgent.
type AgentOption func(*AgentOptions)

// WithToolErrorPolicy selects how tool failures are handled.
func WithToolErrorPolicy(p ToolErrorPolicy) AgentOption {
	return func(o *AgentOptions) {
		o.ToolErrorPolicy = p
	}
}

// WithFollowUp hands every tools step's results back to the model, allowing
// up to maxRounds tools steps. The model always gets a closing call after the
// last round; tool calls it requests then are left unresolved. Without this
// option the execution ends after the first tools step.
func WithFollowUp(maxRounds int) AgentOption {
	return func(o *AgentOptions) {
		o.MaxToolRounds = maxRounds
	}
}

// WithSystemPrompt sends prompt as a leading system message on every model
// call. The prompt is not stored in the log.
func WithSystemPrompt(prompt string) AgentOption {
	return func(o *AgentOptions) {
		o.SystemPrompt = prompt
	}
}

// WithLogger sets the logger used by the agent and its graph.
func WithLogger(logger log.Logger) AgentOption {
	return func(o *AgentOptions) {
		o.Logger = logger
	}
}

// WithTracer attaches a tracer to the compiled graph.
func WithTracer(tracer *graph.Tracer) AgentOption {
	return func(o *AgentOptions) {
		o.Tracer = tracer
	}
}

// CreateToolCallingAgent builds the graph
//
//	START -> tool_calling_llm -> (tools | END)
//
// where tools goes to END, or back to tool_calling_llm when the follow-up
// loop is enabled.
func CreateToolCallingAgent(m model.Model, reg *tool.Registry, opts ...AgentOption) (*graph.StateRunnable[MessagesState], error) {
	if m == nil {
		return nil, errors.New("model is required")
	}
	if reg == nil {
		return nil, errors.New("tool registry is required")
	}

	options := &AgentOptions{Logger: log.GetDefaultLogger()}
	for _, opt := range opts {
		opt(options)
	}

	toolNode := NewToolNode(reg, options.ToolErrorPolicy)
	toolNode.logger = options.Logger
	schemas := reg.DescribeAll()

	workflow := graph.NewStateGraph[MessagesState]()
	workflow.SetSchema(MessagesSchema())

	workflow.AddNode(ModelNode, "Call the model with the registered tools", func(ctx context.Context, state MessagesState) (MessagesState, error) {
		var snap message.Snapshot
		if state.Messages != nil {
			snap = state.Messages.Snapshot()
		}
		if options.SystemPrompt != "" {
			snap = message.NewLog(append([]message.Message{message.System(options.SystemPrompt)}, snap.Messages()...)...).Snapshot()
		}

		resp, err := m.Invoke(ctx, snap, schemas)
		if err != nil {
			return MessagesState{}, err
		}
		if resp == nil {
			return MessagesState{}, &model.MalformedResponseError{Reason: "model returned no response"}
		}
		if req, ok := resp.(model.ToolCallRequest); ok {
			options.Logger.Debug("model requested %d tool call(s)", len(req.Calls))
		}
		return delta(model.AssistantMessage(resp)), nil
	})
	workflow.AddNode(ToolsNode, "Execute requested tools", toolNode.Invoke)

	maxRounds := options.MaxToolRounds
	workflow.AddEdge(graph.START, ModelNode)
	workflow.AddConditionalEdge(ModelNode, func(_ context.Context, state MessagesState) string {
		if state.Messages == nil {
			return graph.END
		}
		last, ok := state.Messages.Snapshot().Last()
		if !ok || !last.HasToolCalls() {
			return graph.END
		}
		if maxRounds > 0 && state.ToolRounds >= maxRounds {
			options.Logger.Warn("tool round limit %d reached, leaving %d tool call(s) unresolved", maxRounds, len(last.ToolCalls))
			return graph.END
		}
		return ToolsNode
	}, ToolsNode, graph.END)

	if maxRounds > 0 {
		workflow.AddEdge(ToolsNode, ModelNode)

		// Each round runs both steps, plus the closing model call.
		if limit := 2*maxRounds + 1; limit > graph.DefaultRecursionLimit {
			workflow.SetRecursionLimit(limit)
		}
	} else {
		workflow.AddEdge(ToolsNode, graph.END)
	}

	runnable, err := workflow.Compile()
	if err != nil {
		return nil, err
	}
	runnable.SetLogger(options.Logger)
	if options.Tracer != nil {
		runnable.SetTracer(options.Tracer)
	}
	return runnable, nil
}

// Run executes the agent over a copy of msgs and returns the resulting log;
// msgs itself is never modified, so the same initial log can be replayed. On
// failure the returned log holds every message appended before the failing
// step.
func Run(ctx context.Context, agent *graph.StateRunnable[MessagesState], msgs *message.Log) (*message.Log, error) {
	initial := message.NewLog()
	if msgs != nil {
		initial = msgs.Clone()
	}
	out, err := agent.Invoke(ctx, MessagesState{Messages: initial})
	if out.Messages == nil {
		out.Messages = initial
	}
	return out.Messages, err
}
