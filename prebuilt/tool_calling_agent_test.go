package prebuilt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/smallnest/toolgraph/graph"
	"github.com/smallnest/toolgraph/log"
	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/model"
	"github.com/smallnest/toolgraph/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg, err := tool.NewRegistry(tool.Multiply())
	require.NoError(t, err)
	return reg
}

func multiplyCall(id string, a, b any) message.ToolCall {
	return message.ToolCall{ID: id, Name: "multiply", Arguments: map[string]any{"a": a, "b": b}}
}

func TestToolCallingAgent_Multiply(t *testing.T) {
	reg := newRegistry(t)
	m := model.Replies(model.ToolCallRequest{Calls: []message.ToolCall{multiplyCall("call-1", 3, 4)}})

	agent, err := CreateToolCallingAgent(m, reg)
	require.NoError(t, err)

	initial := message.NewLog(message.User("what is 3 times 4"))
	out, err := Run(context.Background(), agent, initial)
	require.NoError(t, err)

	snap := out.Snapshot()
	require.Equal(t, 3, snap.Len())
	assert.Equal(t, message.RoleAssistant, snap.At(1).Role)
	assert.Equal(t, []message.ToolCall{multiplyCall("call-1", 3, 4)}, snap.At(1).ToolCalls)

	result := snap.At(2)
	assert.Equal(t, message.RoleTool, result.Role)
	assert.Equal(t, "12", result.Content)
	assert.Equal(t, "call-1", result.ToolCallID)
	assert.Equal(t, "multiply", result.Name)
	assert.False(t, result.IsError)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Messages.Len())
	assert.Equal(t, reg.DescribeAll(), calls[0].Tools)
}

func TestToolCallingAgent_PlainReply(t *testing.T) {
	m := model.Replies(model.PlainReply{Text: "hello"})
	agent, err := CreateToolCallingAgent(m, newRegistry(t))
	require.NoError(t, err)

	out, err := Run(context.Background(), agent, message.NewLog(message.User("hi")))
	require.NoError(t, err)
	assert.Equal(t, []message.Message{
		message.User("hi"),
		message.Assistant("hello"),
	}, out.Snapshot().Messages())
}

func TestToolCallingAgent_UnknownToolFails(t *testing.T) {
	m := model.Replies(model.ToolCallRequest{Calls: []message.ToolCall{
		multiplyCall("call-1", 2, 5),
		{ID: "call-2", Name: "divide", Arguments: map[string]any{"a": 1}},
	}})
	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithToolErrorPolicy(ToolErrorFail))
	require.NoError(t, err)

	out, err := Run(context.Background(), agent, message.NewLog(message.User("divide 1")))
	require.Error(t, err)

	var unknown *tool.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "divide", unknown.Name)

	// The assistant turn is kept; nothing from the failed batch is appended.
	snap := out.Snapshot()
	require.Equal(t, 2, snap.Len())
	for _, msg := range snap.Messages() {
		assert.NotEqual(t, message.RoleTool, msg.Role)
	}
}

func TestToolCallingAgent_ToolErrorsAsMessages(t *testing.T) {
	m := model.Replies(model.ToolCallRequest{Calls: []message.ToolCall{
		{ID: "call-1", Name: "divide", Arguments: map[string]any{}},
		multiplyCall("call-2", "three", 4),
		multiplyCall("call-3", 6, 7),
	}})
	agent, err := CreateToolCallingAgent(m, newRegistry(t),
		WithToolErrorPolicy(ToolErrorAsMessage),
		WithLogger(&log.NoOpLogger{}),
	)
	require.NoError(t, err)

	out, err := Run(context.Background(), agent, message.NewLog(message.User("go")))
	require.NoError(t, err)

	snap := out.Snapshot()
	require.Equal(t, 5, snap.Len())

	assert.True(t, snap.At(2).IsError)
	assert.Equal(t, "call-1", snap.At(2).ToolCallID)
	assert.Contains(t, snap.At(2).Content, "unknown tool")

	assert.True(t, snap.At(3).IsError)
	assert.Contains(t, snap.At(3).Content, "invalid arguments")

	assert.False(t, snap.At(4).IsError)
	assert.Equal(t, "42", snap.At(4).Content)
}

func TestToolCallingAgent_FollowUp(t *testing.T) {
	m := model.Replies(
		model.ToolCallRequest{Calls: []message.ToolCall{multiplyCall("call-1", 3, 4)}},
		model.PlainReply{Text: "3 times 4 is 12"},
	)
	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithFollowUp(3))
	require.NoError(t, err)

	out, err := Run(context.Background(), agent, message.NewLog(message.User("what is 3 times 4")))
	require.NoError(t, err)

	snap := out.Snapshot()
	require.Equal(t, 4, snap.Len())
	last, _ := snap.Last()
	assert.Equal(t, message.Assistant("3 times 4 is 12"), last)

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 3, calls[1].Messages.Len())
}

func TestToolCallingAgent_FollowUpSingleRound(t *testing.T) {
	m := model.Replies(
		model.ToolCallRequest{Calls: []message.ToolCall{multiplyCall("call-1", 3, 4)}},
		model.PlainReply{Text: "3 times 4 is 12"},
	)
	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithFollowUp(1))
	require.NoError(t, err)

	out, err := agent.Invoke(context.Background(), NewMessagesState(message.User("what is 3 times 4")))
	require.NoError(t, err)
	assert.Equal(t, 1, out.ToolRounds)

	calls := m.Calls()
	require.Len(t, calls, 2)
	last, ok := calls[1].Messages.Last()
	require.True(t, ok)
	assert.Equal(t, message.RoleTool, last.Role)
	assert.Equal(t, "12", last.Content)

	require.Equal(t, 4, out.Messages.Len())
	final, _ := out.Messages.Snapshot().Last()
	assert.Equal(t, message.Assistant("3 times 4 is 12"), final)
}

func TestToolCallingAgent_FollowUpStopsAtMaxRounds(t *testing.T) {
	request := model.ToolCallRequest{Calls: []message.ToolCall{multiplyCall("call-1", 1, 1)}}
	m := model.Replies(request, request, request, request)

	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithFollowUp(2), WithLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	out, err := agent.Invoke(context.Background(), NewMessagesState(message.User("loop")))
	require.NoError(t, err)
	assert.Equal(t, 2, out.ToolRounds)

	// Two full rounds, then a closing model call whose request is not run.
	assert.Len(t, m.Calls(), 3)
	require.Equal(t, 6, out.Messages.Len())
	final, _ := out.Messages.Snapshot().Last()
	assert.Equal(t, message.RoleAssistant, final.Role)
	assert.True(t, final.HasToolCalls())
}

func TestToolCallingAgent_LargeFollowUpRaisesRecursionLimit(t *testing.T) {
	const rounds = 20
	request := model.ToolCallRequest{Calls: []message.ToolCall{multiplyCall("call-1", 2, 2)}}
	responses := make([]model.Response, 0, rounds+1)
	for i := 0; i < rounds; i++ {
		responses = append(responses, request)
	}
	responses = append(responses, model.PlainReply{Text: "done"})
	m := model.Replies(responses...)

	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithFollowUp(rounds))
	require.NoError(t, err)

	out, err := agent.Invoke(context.Background(), NewMessagesState(message.User("again")))
	require.NoError(t, err)
	assert.Equal(t, rounds, out.ToolRounds)
	assert.Len(t, m.Calls(), rounds+1)
}

func TestRun_DoesNotModifyInitialLog(t *testing.T) {
	m := model.Replies(model.ToolCallRequest{Calls: []message.ToolCall{multiplyCall("call-1", 3, 4)}})
	agent, err := CreateToolCallingAgent(m, newRegistry(t))
	require.NoError(t, err)

	initial := message.NewLog(message.User("what is 3 times 4"))

	first, err := Run(context.Background(), agent, initial)
	require.NoError(t, err)
	assert.Equal(t, 1, initial.Len())

	m.Reset()
	second, err := Run(context.Background(), agent, initial)
	require.NoError(t, err)
	assert.Equal(t, 1, initial.Len())

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, 3, second.Len())
}

func TestToolCallingAgent_ReplayIsByteIdentical(t *testing.T) {
	m := model.Replies(model.ToolCallRequest{
		Text:  "let me compute",
		Calls: []message.ToolCall{multiplyCall("call-1", 3, 4), multiplyCall("call-2", 5, 6)},
	})
	agent, err := CreateToolCallingAgent(m, newRegistry(t))
	require.NoError(t, err)

	run := func() []byte {
		m.Reset()
		out, err := Run(context.Background(), agent, message.NewLog(message.User("what is 3 times 4 and 5 times 6")))
		require.NoError(t, err)
		b, err := json.Marshal(out)
		require.NoError(t, err)
		return b
	}

	first := run()
	second := run()
	assert.Equal(t, string(first), string(second))
}

func TestToolCallingAgent_CancelledModelCall(t *testing.T) {
	blocking := model.Func(func(ctx context.Context, _ message.Snapshot, _ []tool.Schema) (model.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	agent, err := CreateToolCallingAgent(blocking, newRegistry(t), WithLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out, err := Run(ctx, agent, message.NewLog(message.User("hi")))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, out.Len())
}

func TestToolCallingAgent_ModelErrorLeavesLogUnchanged(t *testing.T) {
	m := model.NewScriptedModel(model.Step{Err: &model.MalformedResponseError{Reason: "no choices"}})
	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	out, err := Run(context.Background(), agent, message.NewLog(message.User("hi")))
	var malformed *model.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 1, out.Len())
}

func TestToolCallingAgent_SystemPrompt(t *testing.T) {
	m := model.Replies(model.PlainReply{Text: "hello"})
	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithSystemPrompt("You are a calculator."))
	require.NoError(t, err)

	out, err := Run(context.Background(), agent, message.NewLog(message.User("hi")))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())

	sent := m.Calls()[0].Messages
	require.Equal(t, 2, sent.Len())
	assert.Equal(t, message.System("You are a calculator."), sent.At(0))
}

func TestToolCallingAgent_Tracer(t *testing.T) {
	tracer := graph.NewTracer()
	m := model.Replies(model.ToolCallRequest{Calls: []message.ToolCall{multiplyCall("call-1", 3, 4)}})
	agent, err := CreateToolCallingAgent(m, newRegistry(t), WithTracer(tracer))
	require.NoError(t, err)

	_, err = Run(context.Background(), agent, message.NewLog(message.User("what is 3 times 4")))
	require.NoError(t, err)

	var nodes []string
	for _, span := range tracer.GetSpans() {
		if span.Event == graph.TraceEventNodeEnd {
			nodes = append(nodes, span.NodeName)
		}
	}
	assert.ElementsMatch(t, []string{ModelNode, ToolsNode}, nodes)
}

func TestCreateToolCallingAgent_Validation(t *testing.T) {
	_, err := CreateToolCallingAgent(nil, newRegistry(t))
	assert.Error(t, err)

	_, err = CreateToolCallingAgent(model.Replies(), nil)
	assert.Error(t, err)

	agent, err := CreateToolCallingAgent(model.Replies(), newRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, ModelNode, agent.EntryPoint())
	assert.Equal(t, []string{ModelNode, ToolsNode}, agent.Nodes())
}

func TestParseToolErrorPolicy(t *testing.T) {
	p, err := ParseToolErrorPolicy("message")
	require.NoError(t, err)
	assert.Equal(t, ToolErrorAsMessage, p)

	p, err = ParseToolErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ToolErrorFail, p)
	assert.Equal(t, "fail", p.String())

	_, err = ParseToolErrorPolicy("ignore")
	assert.Error(t, err)
}

func TestToolNode_RequiresToolCalls(t *testing.T) {
	node := NewToolNode(newRegistry(t), ToolErrorFail)

	_, err := node.Invoke(context.Background(), NewMessagesState(message.User("hi")))
	assert.True(t, errors.Is(err, ErrNoToolCalls))

	_, err = node.Invoke(context.Background(), MessagesState{})
	assert.ErrorIs(t, err, ErrNoToolCalls)
}

func TestMessagesSchema(t *testing.T) {
	schema := MessagesSchema()

	current, err := schema.Update(MessagesState{}, delta(message.User("a")))
	require.NoError(t, err)
	require.NotNil(t, current.Messages)

	update := delta(message.Assistant("b"))
	update.ToolRounds = 1
	current, err = schema.Update(current, update)
	require.NoError(t, err)

	assert.Equal(t, 2, current.Messages.Len())
	assert.Equal(t, 1, current.ToolRounds)
}
