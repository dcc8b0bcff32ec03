package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/tool"
)

// DefaultOpenAIModel is the chat model used when none is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIModel calls the OpenAI chat completions API through go-openai.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
}

var _ Model = (*OpenAIModel)(nil)

// OpenAIOption configures an OpenAIModel.
type OpenAIOption func(*OpenAIModel)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) OpenAIOption {
	return func(m *OpenAIModel) {
		m.temperature = t
	}
}

// NewOpenAIModel wraps an existing go-openai client.
func NewOpenAIModel(client *openai.Client, modelName string, opts ...OpenAIOption) *OpenAIModel {
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	m := &OpenAIModel{client: client, model: modelName}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewOpenAIModelWithKey builds a client for apiKey. An empty baseURL keeps the
// public OpenAI endpoint.
func NewOpenAIModelWithKey(apiKey, baseURL, modelName string, opts ...OpenAIOption) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIModel(openai.NewClientWithConfig(cfg), modelName, opts...)
}

// Invoke sends one chat completion request.
func (m *OpenAIModel) Invoke(ctx context.Context, msgs message.Snapshot, tools []tool.Schema) (Response, error) {
	history, err := toOpenAIMessages(msgs)
	if err != nil {
		return nil, err
	}
	req := openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    history,
		Temperature: m.temperature,
	}
	for _, s := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Reason: "no choices"}
	}

	out := resp.Choices[0].Message
	if len(out.ToolCalls) == 0 {
		return PlainReply{Text: out.Content}, nil
	}
	calls := make([]message.ToolCall, 0, len(out.ToolCalls))
	for i, tc := range out.ToolCalls {
		if tc.Function.Name == "" {
			return nil, &MalformedResponseError{Reason: "tool call without function name"}
		}
		call, err := newToolCall(i, tc.ID, tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return ToolCallRequest{Text: out.Content, Calls: calls}, nil
}

func toOpenAIMessages(s message.Snapshot) ([]openai.ChatCompletionMessage, error) {
	msgs := s.Messages()
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case message.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case message.RoleAssistant:
			cm := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				args, err := message.EncodeArguments(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("tool call %q: %w", tc.ID, err)
				}
				cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			out = append(out, cm)
		case message.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.Name,
				ToolCallID: m.ToolCallID,
			})
		default:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		}
	}
	return out, nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 0 {
			return &TransportError{Err: err}
		}
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransportError{Err: err}
	}
	return err
}

func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests:
		return &RateLimitError{Err: err}
	case code >= http.StatusInternalServerError:
		return &TransportError{Err: err}
	}
	return err
}
