package tool

import "context"

// Multiply returns the multiply(a, b) tool.
func Multiply() Tool {
	return Tool{
		Name:        "multiply",
		Description: "Multiply a and b.",
		Params: []Param{
			{Name: "a", Type: TypeInteger, Description: "first int"},
			{Name: "b", Type: TypeInteger, Description: "second int"},
		},
		Handler: func(_ context.Context, args Arguments) (any, error) {
			return args.Int("a") * args.Int("b"), nil
		},
	}
}
