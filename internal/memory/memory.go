// Package memory keeps a bounded window of conversation turns for the
// chat chain. Oldest turns are evicted first.
package memory

import "sync"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation message.
type Message struct {
	Role    Role
	Content string
}

// Memory is a fixed-capacity conversation buffer. A "turn" is one user
// message plus one assistant reply; capacity is counted in turns.
type Memory struct {
	mu       sync.Mutex
	maxTurns int
	messages []Message
}

// New creates a Memory holding at most maxTurns turns. A non-positive
// value disables history.
func New(maxTurns int) *Memory {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &Memory{maxTurns: maxTurns}
}

// AddTurn appends one completed user/assistant exchange, evicting the
// oldest turn when over capacity.
func (m *Memory) AddTurn(user, assistant string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxTurns == 0 {
		return
	}

	m.messages = append(m.messages,
		Message{Role: RoleUser, Content: user},
		Message{Role: RoleAssistant, Content: assistant},
	)

	if excess := len(m.messages)/2 - m.maxTurns; excess > 0 {
		m.messages = m.messages[excess*2:]
	}
}

// Messages returns a copy of the buffered messages, oldest first.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of buffered turns.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages) / 2
}

// Clear drops all history.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
