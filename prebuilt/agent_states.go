package prebuilt

import (
	"github.com/smallnest/toolgraph/graph"
	"github.com/smallnest/toolgraph/message"
)

// MessagesState is the state of the tool-calling agent. Programs that need
// more fields embed it in their own struct.
type MessagesState struct {
	// Messages is the conversation log owned by one execution.
	Messages *message.Log

	// ToolRounds counts completed tools steps.
	ToolRounds int
}

// NewMessagesState creates a state with a fresh log seeded with msgs.
func NewMessagesState(msgs ...message.Message) MessagesState {
	return MessagesState{Messages: message.NewLog(msgs...)}
}

// delta builds the update returned by a step: the messages it produced.
func delta(msgs ...message.Message) MessagesState {
	return MessagesState{Messages: message.NewLog(msgs...)}
}

// MessagesSchema appends the messages of each update to the current log and
// adds up the tool rounds.
func MessagesSchema() graph.StateSchema[MessagesState] {
	return graph.SchemaFunc[MessagesState](func(current, update MessagesState) (MessagesState, error) {
		if current.Messages == nil {
			current.Messages = message.NewLog()
		}
		if update.Messages != nil {
			current.Messages.Append(update.Messages.Snapshot().Messages()...)
		}
		current.ToolRounds += update.ToolRounds
		return current, nil
	})
}
