package message

import (
	"encoding/json"
	"sync"
)

// Log is an ordered, append-only sequence of messages. A Log belongs to a
// single execution and is shared by pointer between its steps.
type Log struct {
	mu   sync.RWMutex
	msgs []Message
}

// NewLog creates a log seeded with msgs.
func NewLog(msgs ...Message) *Log {
	l := &Log{}
	l.Append(msgs...)
	return l
}

// Append adds msgs to the end of the log. Prior entries are never touched.
func (l *Log) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	cloned := make([]Message, len(msgs))
	for i, m := range msgs {
		cloned[i] = m.Clone()
	}

	l.mu.Lock()
	l.msgs = append(l.msgs, cloned...)
	l.mu.Unlock()
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// Snapshot returns an immutable view of the log as it is now.
func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.msgs)
	// The capped slice keeps later appends from ever writing into the view.
	return Snapshot{msgs: l.msgs[:n:n]}
}

// Clone returns an independent log with the same messages.
func (l *Log) Clone() *Log {
	return NewLog(l.Snapshot().Messages()...)
}

// MarshalJSON encodes the log as a JSON array of messages.
func (l *Log) MarshalJSON() ([]byte, error) {
	return l.Snapshot().MarshalJSON()
}

// Snapshot is a read-only view of a Log at a point in time.
type Snapshot struct {
	msgs []Message
}

// Len returns the number of messages in the snapshot.
func (s Snapshot) Len() int {
	return len(s.msgs)
}

// At returns a copy of the i-th message.
func (s Snapshot) At(i int) Message {
	return s.msgs[i].Clone()
}

// Last returns the final message, or false when the snapshot is empty.
func (s Snapshot) Last() (Message, bool) {
	if len(s.msgs) == 0 {
		return Message{}, false
	}
	return s.msgs[len(s.msgs)-1].Clone(), true
}

// Messages returns a copy of the messages in order.
func (s Snapshot) Messages() []Message {
	out := make([]Message, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = m.Clone()
	}
	return out
}

// MarshalJSON encodes the snapshot as a JSON array of messages.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.msgs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.msgs)
}
