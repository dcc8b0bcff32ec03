// Package tool implements the tool registry: functions with explicitly
// declared parameters that a model may ask to call.
//
// A tool declares its schema up front:
//
//	reg, err := tool.NewRegistry(tool.Tool{
//		Name:        "multiply",
//		Description: "Multiply a and b.",
//		Params: []tool.Param{
//			{Name: "a", Type: tool.TypeInteger, Description: "first int"},
//			{Name: "b", Type: tool.TypeInteger, Description: "second int"},
//		},
//		Handler: func(ctx context.Context, args tool.Arguments) (any, error) {
//			return args.Int("a") * args.Int("b"), nil
//		},
//	})
//
// DescribeAll returns schemas in registration order so prompts are
// reproducible. Invoke validates arguments before calling the handler and
// reports failures as *UnknownToolError, *InvalidArgumentsError or
// *ToolExecutionError. A handler panic never escapes Invoke.
package tool
