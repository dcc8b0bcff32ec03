package message

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendThenSnapshot(t *testing.T) {
	l := NewLog(User("hi"))
	l.Append(Assistant("hello"))

	snap := l.Snapshot()
	require.Equal(t, 2, snap.Len())
	last, ok := snap.Last()
	require.True(t, ok)
	assert.Equal(t, Assistant("hello"), last)
}

func TestSnapshotUnaffectedByLaterAppend(t *testing.T) {
	l := NewLog(User("hi"))
	before := l.Snapshot()

	l.Append(Assistant("hello"), User("again"))

	assert.Equal(t, 1, before.Len())
	assert.Equal(t, []Message{User("hi")}, before.Messages())
	assert.Equal(t, 3, l.Len())
}

func TestSnapshotSharesNoMutableState(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "multiply", Arguments: map[string]any{"a": 3}}
	l := NewLog(Assistant("", call))

	// mutating the caller's copy after append must not leak into the log
	call.Arguments["a"] = 99

	snap := l.Snapshot()
	msgs := snap.Messages()
	msgs[0].ToolCalls[0].Arguments["a"] = 100

	assert.Equal(t, 3, snap.At(0).ToolCalls[0].Arguments["a"])
}

func TestEmptySnapshot(t *testing.T) {
	l := NewLog()
	snap := l.Snapshot()

	_, ok := snap.Last()
	assert.False(t, ok)

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestLogConcurrentAppendAndSnapshot(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Append(User("x"))
		}()
		go func() {
			defer wg.Done()
			snap := l.Snapshot()
			for _, m := range snap.Messages() {
				assert.Equal(t, RoleUser, m.Role)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, l.Len())
}

func TestLogCloneIsIndependent(t *testing.T) {
	l := NewLog(User("hi"))
	c := l.Clone()
	c.Append(Assistant("hello"))

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 2, c.Len())
}

func TestLogMarshalJSON(t *testing.T) {
	l := NewLog(
		User("what is 3 times 4"),
		Assistant("", ToolCall{ID: "call-1", Name: "multiply", Arguments: map[string]any{"a": 3, "b": 4}}),
		ToolResult("call-1", "multiply", "12", false),
	)

	b, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"role":"user","content":"what is 3 times 4"},
		{"role":"assistant","content":"","tool_calls":[{"id":"call-1","name":"multiply","arguments":{"a":3,"b":4}}]},
		{"role":"tool","content":"12","tool_call_id":"call-1","name":"multiply"}
	]`, string(b))
}
