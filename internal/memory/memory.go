// Package memory provides per-session conversation memory.
//
// A Buffer is an append-only log of completed question/answer turns,
// scoped to exactly one session. The transcript grows without bound;
// long sessions grow the prompt accordingly. That is an accepted
// limitation of the buffer strategy, not a bug.
package memory

import (
	"strings"
	"sync"
)

// Transcript line prefixes. The generation prompt quotes prior turns with
// these labels.
const (
	humanPrefix     = "Human: "
	assistantPrefix = "Assistant: "
)

// Turn is one completed question/answer exchange. Immutable once recorded.
type Turn struct {
	Question string
	Answer   string
}

// Buffer holds the ordered turn log for one session.
// Safe for concurrent use; the zero value is not useful, use NewBuffer.
type Buffer struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{turns: make([]Turn, 0)}
}

// Append records one completed turn. Turns are appended in call order and
// never mutated or reordered afterwards.
func (b *Buffer) Append(question, answer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, Turn{Question: question, Answer: answer})
}

// Transcript returns all recorded turns, oldest first, as alternating
// Human/Assistant lines. Returns the empty string when no turns exist.
func (b *Buffer) Transcript() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.turns) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, turn := range b.turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(humanPrefix)
		sb.WriteString(turn.Question)
		sb.WriteByte('\n')
		sb.WriteString(assistantPrefix)
		sb.WriteString(turn.Answer)
	}
	return sb.String()
}

// Turns returns a copy of the recorded turns for thread-safe inspection.
func (b *Buffer) Turns() []Turn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Len returns the number of recorded turns.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.turns)
}
