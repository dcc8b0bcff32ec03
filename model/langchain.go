package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/tool"
	"github.com/tmc/langchaingo/llms"
)

// LangchainModel adapts a langchaingo llms.Model, such as the one returned
// by openai.New, to the Model interface.
type LangchainModel struct {
	llm  llms.Model
	opts []llms.CallOption
}

var _ Model = (*LangchainModel)(nil)

// NewLangchainModel wraps llm. opts are passed on every call, before the
// tool definitions.
func NewLangchainModel(llm llms.Model, opts ...llms.CallOption) *LangchainModel {
	return &LangchainModel{llm: llm, opts: opts}
}

// Invoke sends the history and tool definitions through GenerateContent.
func (m *LangchainModel) Invoke(ctx context.Context, msgs message.Snapshot, tools []tool.Schema) (Response, error) {
	opts := slices.Clone(m.opts)
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tool.LangchainTools(tools)))
	}

	contents, err := message.ToLangchain(msgs)
	if err != nil {
		return nil, err
	}

	resp, err := m.llm.GenerateContent(ctx, contents, opts...)
	if err != nil {
		return nil, classifyLangchainError(ctx, err)
	}
	return fromContentResponse(resp)
}

func fromContentResponse(resp *llms.ContentResponse) (Response, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, &MalformedResponseError{Reason: "no choices"}
	}
	choice := resp.Choices[0]
	if len(choice.ToolCalls) == 0 {
		return PlainReply{Text: choice.Content}, nil
	}

	calls := make([]message.ToolCall, 0, len(choice.ToolCalls))
	for i, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name == "" {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("tool call %d has no function name", i)}
		}
		call, err := newToolCall(i, tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return ToolCallRequest{Text: choice.Content, Calls: calls}, nil
}

// newToolCall decodes raw JSON arguments. Providers that omit call ids get a
// positional id so results can still be correlated.
func newToolCall(index int, id, name, rawArgs string) (message.ToolCall, error) {
	args, err := message.DecodeArguments(rawArgs)
	if err != nil {
		return message.ToolCall{}, &MalformedResponseError{Reason: fmt.Sprintf("tool call %q", name), Err: err}
	}
	if id == "" {
		id = fmt.Sprintf("call_%d", index+1)
	}
	return message.ToolCall{ID: id, Name: name, Arguments: args}, nil
}

// classifyLangchainError maps provider errors onto the error taxonomy.
// langchaingo surfaces most provider failures as plain errors carrying the
// HTTP status in their text.
func classifyLangchainError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var transport *TransportError
	var rateLimit *RateLimitError
	var malformed *MalformedResponseError
	if errors.As(err, &transport) || errors.As(err, &rateLimit) || errors.As(err, &malformed) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransportError{Err: err}
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "429") || strings.Contains(text, "rate limit"):
		return &RateLimitError{Err: err}
	case strings.Contains(text, "status code: 5") || strings.Contains(text, "connection refused") ||
		strings.Contains(text, "connection reset") || strings.Contains(text, "eof"):
		return &TransportError{Err: err}
	}
	return err
}
