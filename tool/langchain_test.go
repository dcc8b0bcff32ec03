package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperTool struct{}

func (upperTool) Name() string        { return "upper" }
func (upperTool) Description() string { return "Upper-case the input." }
func (upperTool) Call(_ context.Context, input string) (string, error) {
	if input == "" {
		return "", errors.New("empty input")
	}
	return strings.ToUpper(input), nil
}

func TestFromLangchain(t *testing.T) {
	reg, err := NewRegistry(FromLangchain(upperTool{}))
	require.NoError(t, err)

	schema := reg.DescribeAll()[0]
	assert.Equal(t, "upper", schema.Name)
	assert.Equal(t, []string{"input"}, schema.Parameters.Required)

	res, err := reg.Invoke(context.Background(), "upper", map[string]any{"input": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", res)

	_, err = reg.Invoke(context.Background(), "upper", map[string]any{"input": ""})
	var execErr *ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.EqualError(t, execErr.Err, "empty input")

	_, err = reg.Invoke(context.Background(), "upper", map[string]any{})
	var argErr *InvalidArgumentsError
	assert.ErrorAs(t, err, &argErr)
}
