// Package prebuilt provides the tool-calling agent built on the graph
// package.
//
// CreateToolCallingAgent wires a model.Model and a tool.Registry into
//
//	START -> tool_calling_llm -> tools -> END
//
// The tool_calling_llm step sends the conversation and every registered tool
// schema to the model. When the reply requests tools, the tools step runs
// each call in order and appends one tool-result message per call. By default
// the execution then ends; WithFollowUp hands the results back to the model.
//
//	reg, _ := tool.NewRegistry(tool.Multiply())
//	agent, err := prebuilt.CreateToolCallingAgent(m, reg)
//	if err != nil {
//		return err
//	}
//	out, err := prebuilt.Run(ctx, agent, message.NewLog(message.User("what is 3 times 4")))
//
// Tool failures either abort the execution (ToolErrorFail, the default) or
// are reported to the model as tool-result messages (ToolErrorAsMessage).
package prebuilt
