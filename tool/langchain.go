package tool

import (
	"context"

	"github.com/tmc/langchaingo/tools"
)

// FromLangchain wraps a langchaingo tool. Its single string input is exposed
// as the required parameter "input".
func FromLangchain(t tools.Tool) Tool {
	return Tool{
		Name:        t.Name(),
		Description: t.Description(),
		Params: []Param{
			{Name: "input", Type: TypeString, Description: "The input query for the tool"},
		},
		Handler: func(ctx context.Context, args Arguments) (any, error) {
			return t.Call(ctx, args.String("input"))
		},
	}
}
