// Package model is the model invocation adapter: the only part of toolgraph
// that talks to a language model endpoint.
//
// A Model receives an immutable snapshot of the conversation and the tool
// schemas and answers with either a PlainReply or a ToolCallRequest. Calls in
// a ToolCallRequest are returned in the order the model produced them.
//
// Implementations:
//
//   - LangchainModel wraps any langchaingo llms.Model.
//   - OpenAIModel calls chat completions through github.com/sashabaranov/go-openai.
//   - ScriptedModel replays canned responses and is used in tests.
//
// Failures are reported as *TransportError, *RateLimitError or
// *MalformedResponseError. WithRetry retries the first two with bounded
// exponential backoff:
//
//	m := model.WithRetry(model.NewOpenAIModelWithKey(key, "", "gpt-4o"), model.DefaultRetryConfig())
package model
