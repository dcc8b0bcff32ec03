package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string, params ...Param) Tool {
	return Tool{
		Name:        name,
		Description: "echo " + name,
		Params:      params,
		Handler: func(_ context.Context, args Arguments) (any, error) {
			return map[string]any(args), nil
		},
	}
}

func TestRegistry_DescribeAllKeepsRegistrationOrder(t *testing.T) {
	names := []string{"zeta", "alpha", "multiply", "beta"}
	reg, err := NewRegistry()
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, reg.Register(echoTool(n)))
	}

	schemas := reg.DescribeAll()
	require.Len(t, schemas, len(names))
	for i, s := range schemas {
		assert.Equal(t, names[i], s.Name)
	}
	assert.Equal(t, names, reg.Names())
	assert.Equal(t, len(names), reg.Len())
}

func TestRegistry_DuplicateNameFails(t *testing.T) {
	reg, err := NewRegistry(Multiply())
	require.NoError(t, err)

	err = reg.Register(Multiply())
	var dup *DuplicateToolError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "multiply", dup.Name)
	assert.Equal(t, 1, reg.Len())

	_, err = NewRegistry(echoTool("x"), echoTool("x"))
	assert.ErrorAs(t, err, &dup)
}

func TestRegistry_RejectsMalformedTools(t *testing.T) {
	reg, _ := NewRegistry()

	tests := []struct {
		name string
		tool Tool
	}{
		{"empty name", Tool{Handler: echoTool("x").Handler}},
		{"nil handler", Tool{Name: "x"}},
		{"unnamed param", echoTool("x", Param{Type: TypeString})},
		{"duplicate param", echoTool("x", Param{Name: "a", Type: TypeString}, Param{Name: "a", Type: TypeInteger})},
		{"bad type", echoTool("x", Param{Name: "a", Type: "date"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, reg.Register(tt.tool), ErrInvalidTool)
		})
	}
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	reg, _ := NewRegistry(Multiply())
	assert.Panics(t, func() { reg.MustRegister(Multiply()) })
}

func TestRegistry_InvokeMultiply(t *testing.T) {
	reg, _ := NewRegistry(Multiply())

	res, err := reg.Invoke(context.Background(), "multiply", map[string]any{"a": 3, "b": 4})
	require.NoError(t, err)
	assert.Equal(t, 12, res)

	// JSON decoded arguments arrive as float64 or json.Number
	res, err = reg.Invoke(context.Background(), "multiply", map[string]any{"a": float64(6), "b": json.Number("7")})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	reg, _ := NewRegistry(Multiply())

	_, err := reg.Invoke(context.Background(), "divide", map[string]any{"a": 1})
	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "divide", unknown.Name)
}

func TestRegistry_InvokeInvalidArguments(t *testing.T) {
	reg, _ := NewRegistry(Multiply(), echoTool("opt",
		Param{Name: "q", Type: TypeString},
		Param{Name: "limit", Type: TypeInteger, Optional: true},
	))

	tests := []struct {
		name  string
		tool  string
		args  map[string]any
		param string
	}{
		{"missing", "multiply", map[string]any{"a": 3}, "b"},
		{"extra", "multiply", map[string]any{"a": 3, "b": 4, "c": 5}, "c"},
		{"string for int", "multiply", map[string]any{"a": "3", "b": 4}, "a"},
		{"fractional", "multiply", map[string]any{"a": 3.5, "b": 4}, "a"},
		{"null required", "multiply", map[string]any{"a": nil, "b": 4}, "a"},
		{"int for string", "opt", map[string]any{"q": 1}, "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Invoke(context.Background(), tt.tool, tt.args)
			var invalid *InvalidArgumentsError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.param, invalid.Param)
		})
	}

	res, err := reg.Invoke(context.Background(), "opt", map[string]any{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"q": "x"}, res)
}

func TestRegistry_InvokeWrapsHandlerFailures(t *testing.T) {
	cause := errors.New("division by zero")
	reg, _ := NewRegistry(
		Tool{Name: "fail", Handler: func(context.Context, Arguments) (any, error) { return nil, cause }},
		Tool{Name: "boom", Handler: func(context.Context, Arguments) (any, error) { panic("kaboom") }},
	)

	_, err := reg.Invoke(context.Background(), "fail", nil)
	var execErr *ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "fail", execErr.Tool)
	assert.ErrorIs(t, err, cause)

	_, err = reg.Invoke(context.Background(), "boom", nil)
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRegistry_InvokeHonoursCancelledContext(t *testing.T) {
	called := false
	reg, _ := NewRegistry(Tool{Name: "x", Handler: func(context.Context, Arguments) (any, error) {
		called = true
		return nil, nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Invoke(ctx, "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLangchainTools(t *testing.T) {
	reg, _ := NewRegistry(Multiply())

	defs := reg.LangchainTools()
	require.Len(t, defs, 1)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "multiply", defs[0].Function.Name)
	assert.Equal(t, "Multiply a and b.", defs[0].Function.Description)

	b, err := json.Marshal(defs[0].Function.Parameters)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"a": {"type": "integer", "description": "first int"},
			"b": {"type": "integer", "description": "second int"}
		},
		"required": ["a", "b"]
	}`, string(b))
}
