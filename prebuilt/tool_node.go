package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/toolgraph/log"
	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/tool"
)

// ToolErrorPolicy decides what happens when a requested tool fails.
type ToolErrorPolicy int

const (
	// ToolErrorFail aborts the tools step with the first failure. None of the
	// batch's results are appended.
	ToolErrorFail ToolErrorPolicy = iota

	// ToolErrorAsMessage turns each failure into a tool-result message with
	// IsError set so the conversation can continue.
	ToolErrorAsMessage
)

func (p ToolErrorPolicy) String() string {
	switch p {
	case ToolErrorFail:
		return "fail"
	case ToolErrorAsMessage:
		return "message"
	default:
		return fmt.Sprintf("ToolErrorPolicy(%d)", int(p))
	}
}

// ParseToolErrorPolicy maps "fail" and "message" to a policy.
func ParseToolErrorPolicy(s string) (ToolErrorPolicy, error) {
	switch s {
	case "", "fail":
		return ToolErrorFail, nil
	case "message":
		return ToolErrorAsMessage, nil
	}
	return ToolErrorFail, fmt.Errorf("unknown tool error policy %q", s)
}

// ErrNoToolCalls is returned when the tools step runs after a message that
// requested no tools.
var ErrNoToolCalls = errors.New("last message has no tool calls")

// ToolNode resolves the tool calls of the last assistant message through a
// registry.
type ToolNode struct {
	Registry *tool.Registry
	Policy   ToolErrorPolicy
	logger   log.Logger
}

// NewToolNode creates a ToolNode over reg.
func NewToolNode(reg *tool.Registry, policy ToolErrorPolicy) *ToolNode {
	return &ToolNode{Registry: reg, Policy: policy, logger: log.GetDefaultLogger()}
}

// Invoke runs every call of the last message in request order and returns a
// delta with one tool-result message per call.
func (n *ToolNode) Invoke(ctx context.Context, state MessagesState) (MessagesState, error) {
	if state.Messages == nil {
		return MessagesState{}, ErrNoToolCalls
	}
	last, ok := state.Messages.Snapshot().Last()
	if !ok || last.Role != message.RoleAssistant || !last.HasToolCalls() {
		return MessagesState{}, ErrNoToolCalls
	}

	results := make([]message.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		if err := ctx.Err(); err != nil {
			return MessagesState{}, err
		}

		content, err := n.call(ctx, call)
		if err != nil {
			if n.Policy == ToolErrorFail {
				return MessagesState{}, err
			}
			n.logger.Warn("tool %s (%s) failed: %v", call.Name, call.ID, err)
			results = append(results, message.ToolResult(call.ID, call.Name, err.Error(), true))
			continue
		}
		results = append(results, message.ToolResult(call.ID, call.Name, content, false))
	}

	update := delta(results...)
	update.ToolRounds = 1
	return update, nil
}

func (n *ToolNode) call(ctx context.Context, call message.ToolCall) (string, error) {
	result, err := n.Registry.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		return "", err
	}
	content, err := tool.FormatResult(result)
	if err != nil {
		return "", &tool.ToolExecutionError{Tool: call.Name, Err: err}
	}
	return content, nil
}
