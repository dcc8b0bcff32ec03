package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/toolgraph/message"
	"github.com/smallnest/toolgraph/tool"
)

// Step configures one turn of a ScriptedModel.
type Step struct {
	Response Response
	Err      error
}

// Call records what a ScriptedModel received.
type Call struct {
	Messages message.Snapshot
	Tools    []tool.Schema
}

// ScriptedModel is a deterministic model that replays queued steps. It never
// performs I/O.
type ScriptedModel struct {
	mu    sync.Mutex
	index int
	steps []Step
	calls []Call
}

var _ Model = (*ScriptedModel)(nil)

// NewScriptedModel creates a model that returns the given steps in order.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{steps: append([]Step(nil), steps...)}
}

// Replies is a shortcut for a script of responses without errors.
func Replies(responses ...Response) *ScriptedModel {
	steps := make([]Step, len(responses))
	for i, r := range responses {
		steps[i] = Step{Response: r}
	}
	return NewScriptedModel(steps...)
}

// Invoke returns the next scripted step.
func (m *ScriptedModel) Invoke(ctx context.Context, msgs message.Snapshot, tools []tool.Schema) (Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Messages: msgs, Tools: append([]tool.Schema(nil), tools...)})
	if m.index >= len(m.steps) {
		return nil, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	step := m.steps[m.index]
	m.index++
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Calls returns the requests received so far.
func (m *ScriptedModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Reset rewinds the script so it can be replayed.
func (m *ScriptedModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = 0
	m.calls = nil
}
