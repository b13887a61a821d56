package conversation

import "strings"

// DefaultMaxMessages matches the original agent's default bound.
const DefaultMaxMessages = 100

// Conversation is an ordered sequence of Messages bounded by MaxMessages.
//
// Invariants (I2 and I3 are enforced after every mutating call; I1 is
// maintained by SetSystem, and Append does not inspect roles):
//
//	I1: at most one Role==RoleSystem message exists; if present it is first.
//	I2: len(messages) <= MaxMessages.
//	I3: truncation removes only non-System messages, oldest first.
type Conversation struct {
	messages    []Message
	maxMessages int
}

// New creates an empty Conversation with the default bound.
func New() *Conversation {
	return &Conversation{maxMessages: DefaultMaxMessages}
}

// NewWithMaxMessages creates an empty Conversation with an explicit bound.
func NewWithMaxMessages(max int) *Conversation {
	return &Conversation{maxMessages: max}
}

// SetMaxMessages updates the bound and truncates if the new bound is
// smaller than the current length.
func (c *Conversation) SetMaxMessages(max int) {
	c.maxMessages = max
	c.truncateIfNeeded()
}

// MaxMessages returns the configured bound.
func (c *Conversation) MaxMessages() int { return c.maxMessages }

// SetSystem replaces any existing System message and positions the new one
// first (I1).
func (c *Conversation) SetSystem(content string) {
	kept := c.messages[:0:0]
	for _, m := range c.messages {
		if m.Role != RoleSystem {
			kept = append(kept, m)
		}
	}
	c.messages = append([]Message{NewSystem(content)}, kept...)
}

// Append adds a message and enforces I2 by truncating from the head of the
// non-System messages if needed.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
	c.truncateIfNeeded()
}

// AddUser is a convenience wrapper around Append(NewUser(...)).
func (c *Conversation) AddUser(content string) { c.Append(NewUser(content)) }

// AddAssistant is a convenience wrapper around Append(NewAssistant(...)).
func (c *Conversation) AddAssistant(content string) { c.Append(NewAssistant(content)) }

// AddToolResult is a convenience wrapper around Append(NewTool(...)).
func (c *Conversation) AddToolResult(toolName, content string) {
	c.Append(NewTool(toolName, content))
}

// Messages returns the live message slice. Callers must not mutate it.
func (c *Conversation) Messages() []Message { return c.messages }

// Last returns the final message, or the zero Message and false if empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// IsEmpty reports whether the conversation has no messages.
func (c *Conversation) IsEmpty() bool { return len(c.messages) == 0 }

// Clear removes every message except an existing System message.
func (c *Conversation) Clear() {
	var system *Message
	for i := range c.messages {
		if c.messages[i].Role == RoleSystem {
			m := c.messages[i]
			system = &m
			break
		}
	}
	c.messages = c.messages[:0]
	if system != nil {
		c.messages = append(c.messages, *system)
	}
}

// SerializePrompt renders the conversation as a role-tagged text block
// terminated by an "Assistant: " cue, for non-chat completion endpoints.
func (c *Conversation) SerializePrompt() string {
	var b strings.Builder
	for _, m := range c.messages {
		switch m.Role {
		case RoleSystem:
			b.WriteString("System: ")
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		case RoleUser:
			b.WriteString("User: ")
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		case RoleAssistant:
			b.WriteString("Assistant: ")
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		case RoleTool:
			name := m.ToolName
			if name == "" {
				name = "unknown"
			}
			b.WriteString("Tool (")
			b.WriteString(name)
			b.WriteString("): ")
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Assistant: ")
	return b.String()
}

// EstimatedTokens sums the per-message estimate across the conversation.
// This is the estimator referenced by spec.md §4.1: "per message,
// ⌈ascii/4⌉ + ⌈non-ascii/2⌉ + 4" (EstimateMessageTokens), summed.
func (c *Conversation) EstimatedTokens() int {
	total := 0
	for _, m := range c.messages {
		total += EstimateMessageTokens(m)
	}
	return total
}

// truncateIfNeeded enforces I2/I3: once over the bound, drop the oldest
// non-System messages first, keeping every System message (there is at
// most one per I1, but this stays defensive against a transitional state).
func (c *Conversation) truncateIfNeeded() {
	if len(c.messages) <= c.maxMessages {
		return
	}

	var systemMsgs, nonSystem []Message
	for _, m := range c.messages {
		if m.Role == RoleSystem {
			systemMsgs = append(systemMsgs, m)
		} else {
			nonSystem = append(nonSystem, m)
		}
	}

	keep := c.maxMessages - len(systemMsgs)
	if keep < 0 {
		keep = 0
	}
	skip := len(nonSystem) - keep
	if skip < 0 {
		skip = 0
	}

	c.messages = append([]Message{}, systemMsgs...)
	c.messages = append(c.messages, nonSystem[skip:]...)
}
