package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

func (t ParamType) valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// Param declares one named, typed tool parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string

	// Optional parameters may be omitted by the caller.
	Optional bool
}

// Handler executes a tool with validated arguments.
type Handler func(ctx context.Context, args Arguments) (any, error)

// Tool is a function exposed to the model. The schema is declared explicitly
// through Params rather than derived from the handler.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Schema is the model-facing description of a tool.
type Schema struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Schema builds the JSON schema of the tool's parameters.
func (t Tool) Schema() Schema {
	props := make(map[string]*jsonschema.Schema, len(t.Params))
	var required []string
	for _, p := range t.Params {
		ps := &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
		}
		if p.Type == TypeArray {
			ps.Items = &jsonschema.Schema{}
		}
		props[p.Name] = ps
		if !p.Optional {
			required = append(required, p.Name)
		}
	}

	return Schema{
		Name:        t.Name,
		Description: t.Description,
		Parameters: &jsonschema.Schema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

func (t Tool) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if t.Handler == nil {
		return fmt.Errorf("%w: tool %q has no handler", ErrInvalidTool, t.Name)
	}
	seen := make(map[string]bool, len(t.Params))
	for _, p := range t.Params {
		if p.Name == "" {
			return fmt.Errorf("%w: tool %q has a parameter without a name", ErrInvalidTool, t.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: tool %q declares parameter %q twice", ErrInvalidTool, t.Name, p.Name)
		}
		if !p.Type.valid() {
			return fmt.Errorf("%w: tool %q parameter %q has unsupported type %q", ErrInvalidTool, t.Name, p.Name, p.Type)
		}
		seen[p.Name] = true
	}
	return nil
}

// FormatResult renders a handler result as message content. Strings pass
// through unchanged; everything else is JSON encoded.
func FormatResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(b), nil
}
