package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// ToLangchain converts the snapshot into langchaingo message contents, the
// request shape understood by every llms.Model. It fails when tool-call
// arguments cannot be encoded.
func ToLangchain(s Snapshot) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, s.Len())
	for i, m := range s.msgs {
		mc, err := toLangchainMessage(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, mc)
	}
	return out, nil
}

func toLangchainMessage(m Message) (llms.MessageContent, error) {
	switch m.Role {
	case RoleTool:
		return llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.Name,
					Content:    m.Content,
				},
			},
		}, nil
	case RoleAssistant:
		mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if m.Content != "" {
			mc.Parts = append(mc.Parts, llms.TextPart(m.Content))
		}
		for _, tc := range m.ToolCalls {
			args, err := EncodeArguments(tc.Arguments)
			if err != nil {
				return llms.MessageContent{}, fmt.Errorf("tool call %q: %w", tc.ID, err)
			}
			mc.Parts = append(mc.Parts, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
		return mc, nil
	case RoleSystem:
		return llms.TextParts(llms.ChatMessageTypeSystem, m.Content), nil
	default:
		return llms.TextParts(llms.ChatMessageTypeHuman, m.Content), nil
	}
}

// FromLangchain converts langchaingo message contents back into messages.
func FromLangchain(contents []llms.MessageContent) ([]Message, error) {
	out := make([]Message, 0, len(contents))
	for i, mc := range contents {
		m, err := fromLangchainMessage(mc)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func fromLangchainMessage(mc llms.MessageContent) (Message, error) {
	var m Message
	switch mc.Role {
	case llms.ChatMessageTypeAI:
		m.Role = RoleAssistant
	case llms.ChatMessageTypeTool:
		m.Role = RoleTool
	case llms.ChatMessageTypeSystem:
		m.Role = RoleSystem
	default:
		m.Role = RoleUser
	}

	for _, part := range mc.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			m.Content += p.Text
		case llms.ToolCall:
			if p.FunctionCall == nil {
				return Message{}, fmt.Errorf("tool call %q has no function", p.ID)
			}
			args, err := DecodeArguments(p.FunctionCall.Arguments)
			if err != nil {
				return Message{}, fmt.Errorf("tool call %q: %w", p.ID, err)
			}
			m.ToolCalls = append(m.ToolCalls, ToolCall{ID: p.ID, Name: p.FunctionCall.Name, Arguments: args})
		case llms.ToolCallResponse:
			m.ToolCallID = p.ToolCallID
			m.Name = p.Name
			m.Content += p.Content
		}
	}
	return m, nil
}

// EncodeArguments renders call arguments as a JSON object. Keys are sorted by
// encoding/json, so equal maps always encode identically.
func EncodeArguments(args map[string]any) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode arguments: %w", err)
	}
	return string(b), nil
}

// DecodeArguments parses a JSON object of call arguments. Numbers are kept as
// json.Number so integer arguments survive without float rounding.
func DecodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("invalid arguments %q: %w", raw, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
