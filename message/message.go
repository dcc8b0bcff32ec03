package message

import (
	"maps"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single request from the model to execute a named tool.
type ToolCall struct {
	// ID correlates the call with its tool-result message.
	ID string `json:"id"`

	// Name is the registered tool name.
	Name string `json:"name"`

	// Arguments are the decoded call arguments.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is one conversation turn. Messages are treated as immutable once
// appended to a Log.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name are set on tool-result messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`

	// IsError marks a tool result that carries a failure description.
	IsError bool `json:"is_error,omitempty"`
}

// User returns a user message.
func User(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// System returns a system message.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// Assistant returns an assistant message, optionally requesting tool calls.
func Assistant(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: cloneCalls(calls)}
}

// ToolResult returns the tool-result message answering the call callID.
func ToolResult(callID, name, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		Name:       name,
		IsError:    isError,
	}
}

// HasToolCalls reports whether the message requests at least one tool call.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// Clone returns a deep copy of m so that the copy shares no mutable state.
func (m Message) Clone() Message {
	m.ToolCalls = cloneCalls(m.ToolCalls)
	return m
}

func cloneCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		out[i] = ToolCall{ID: c.ID, Name: c.Name, Arguments: maps.Clone(c.Arguments)}
	}
	return out
}
