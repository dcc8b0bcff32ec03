// Toolgraph - a tool-calling conversation step executor in Go
//
// Toolgraph runs a small directed graph of steps over a conversation. A
// language model is called with the conversation and the schemas of every
// registered tool; when it asks for tools, they are executed and their
// results appended to the conversation.
//
// # Quick Start
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/smallnest/toolgraph/message"
//		"github.com/smallnest/toolgraph/model"
//		"github.com/smallnest/toolgraph/prebuilt"
//		"github.com/smallnest/toolgraph/tool"
//	)
//
//	func main() {
//		reg, _ := tool.NewRegistry(tool.Multiply())
//		m := model.NewOpenAIModelWithKey(apiKey, "", model.DefaultOpenAIModel)
//
//		agent, err := prebuilt.CreateToolCallingAgent(m, reg)
//		if err != nil {
//			panic(err)
//		}
//
//		out, err := prebuilt.Run(context.Background(), agent,
//			message.NewLog(message.User("what is 3 times 4")))
//		if err != nil {
//			panic(err)
//		}
//		last, _ := out.Snapshot().Last()
//		fmt.Println(last.Content) // 12
//	}
//
// # Packages
//
//   - graph: StateGraph, compile-time validation and sequential execution
//   - prebuilt: the tool-calling agent (tool_calling_llm and tools steps)
//   - tool: tool declarations, the registry and argument validation
//   - message: messages, the append-only Log and Snapshot views
//   - model: the Model interface, OpenAI and langchaingo adapters, retries
//   - config: YAML, .env and environment configuration
//   - log: the logging interface with stdlib and golog implementations
//
// The toolgraph command in cmd/toolgraph wires these together:
//
//	toolgraph run "what is 3 times 4"
//	toolgraph tools
package toolgraph
