package agent

import (
	"codewright/internal/llm"
	"codewright/internal/logging"
)

// Conversation is the ordered turn history sent to the model. The first
// turn is the pinned system instruction; later turns are appended by the
// loop. When the history grows past twice the configured limit it is cut
// to the pinned turn plus the most recent window. The cut is lossy and
// not restorable.
//
// Owned by the single loop goroutine; no locking.
type Conversation struct {
	turns []llm.Message
	limit int
}

// NewConversation creates a history seeded with the system turn.
func NewConversation(systemPrompt string, limit int) *Conversation {
	if limit <= 0 {
		limit = 20
	}
	return &Conversation{
		turns: []llm.Message{{Role: "system", Content: systemPrompt}},
		limit: limit,
	}
}

// AddUser appends a user turn.
func (c *Conversation) AddUser(content string) {
	c.turns = append(c.turns, llm.Message{Role: "user", Content: content})
	c.prune()
}

// AddAssistant appends an assistant turn.
func (c *Conversation) AddAssistant(content string) {
	c.turns = append(c.turns, llm.Message{Role: "assistant", Content: content})
	c.prune()
}

// Messages returns the turns to send to the model. Callers must not
// mutate the returned slice.
func (c *Conversation) Messages() []llm.Message {
	return c.turns
}

// Len returns the number of turns including the system turn.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// prune drops the oldest exchanges once the history exceeds twice the
// limit, keeping the system turn and the most recent window.
func (c *Conversation) prune() {
	window := c.limit * 2
	if len(c.turns) <= window {
		return
	}
	dropped := len(c.turns) - 1 - window
	kept := make([]llm.Message, 0, window+1)
	kept = append(kept, c.turns[0])
	kept = append(kept, c.turns[len(c.turns)-window:]...)
	c.turns = kept
	logging.LoopDebug("Pruned conversation: dropped %d turns, %d kept", dropped, len(c.turns))
}
