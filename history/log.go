// Package history holds the bounded, insertion-ordered buffer of recent
// messages. Eviction is FIFO once the cap is exceeded.
package history

import (
	"github.com/a7al3le-dotcom/chat7ob/domain"
)

// Log assigns monotonically-unique ids on append and never holds more than
// cap entries. Access is serialized by the coordinator.
type Log struct {
	cap      int
	nextID   int64
	messages []domain.Message
}

func NewLog(capacity int) *Log {
	return &Log{cap: capacity, nextID: 1}
}

// Append stores the message at the tail, assigning its id. If the cap is
// exceeded the oldest entries are evicted; their ids are returned so
// secondary indexes can drop them too.
func (l *Log) Append(m domain.Message) (domain.Message, []int64) {
	m.ID = l.nextID
	l.nextID++
	l.messages = append(l.messages, m)

	var evicted []int64
	for len(l.messages) > l.cap {
		evicted = append(evicted, l.messages[0].ID)
		l.messages = l.messages[1:]
	}
	return m, evicted
}

// DeleteByID removes at most one matching message, reporting whether a
// match was found. A miss is a no-op.
func (l *Log) DeleteByID(id int64) bool {
	for i, m := range l.messages {
		if m.ID == id {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the buffer entirely and returns the ids that were held,
// for secondary index cleanup.
func (l *Log) Clear() []int64 {
	ids := make([]int64, 0, len(l.messages))
	for _, m := range l.messages {
		ids = append(ids, m.ID)
	}
	l.messages = nil
	return ids
}

// Tail returns the last n messages in order without mutating the buffer.
func (l *Log) Tail(n int) []domain.Message {
	if n <= 0 || len(l.messages) == 0 {
		return nil
	}
	if n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]domain.Message, n)
	copy(out, l.messages[len(l.messages)-n:])
	return out
}

func (l *Log) Len() int {
	return len(l.messages)
}
