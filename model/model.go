package model

import (
	"context"

	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/tool"
)

// Model sends the ordered message history and the available tool schemas to
// a language model and returns its decision.
type Model interface {
	Invoke(ctx context.Context, msgs message.Snapshot, tools []tool.Schema) (Response, error)
}

// Func adapts a plain function to the Model interface.
type Func func(ctx context.Context, msgs message.Snapshot, tools []tool.Schema) (Response, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, msgs message.Snapshot, tools []tool.Schema) (Response, error) {
	return f(ctx, msgs, tools)
}

// Response is either a PlainReply or a ToolCallRequest.
type Response interface {
	isResponse()
}

// PlainReply is a direct textual answer.
type PlainReply struct {
	Text string
}

// ToolCallRequest asks the caller to execute tools. Calls keep the order the
// model produced them in.
type ToolCallRequest struct {
	// Text is optional content the model produced alongside the calls.
	Text  string
	Calls []message.ToolCall
}

func (PlainReply) isResponse()      {}
func (ToolCallRequest) isResponse() {}

// AssistantMessage converts a response into the assistant message appended to
// the log.
func AssistantMessage(r Response) message.Message {
	switch v := r.(type) {
	case PlainReply:
		return message.Assistant(v.Text)
	case ToolCallRequest:
		return message.Assistant(v.Text, v.Calls...)
	default:
		return message.Assistant("")
	}
}
