// Package history persists conversations across runs: spec.md §6's
// external JSON shape (name, saved_at, messages, metadata) backed by
// modernc.org/sqlite instead of the teacher's internal/session package's
// one-JSON-file-per-session layout, plus an optional bleve full-text
// index over saved conversations (§3, §10). The CLI's /save adds each
// saved conversation to the index; /history lists saved conversations
// from the store and does not query the index.
package history

import (
	"strings"
	"time"

	"github.com/turnline/turnline/internal/conversation"
)

// reservedChars are replaced with "_" in a saved name, per spec.md §6's
// filename sanitization rule.
const reservedChars = `/\:*?"<>|`

// SanitizeName replaces every reserved filesystem character in name with
// "_", matching the original's filename-sanitization behavior even
// though storage is now a sqlite row rather than a literal file.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedChars, r) {
			return '_'
		}
		return r
	}, name)
}

// MessageRecord is one persisted message, spec.md §6's wire shape.
type MessageRecord struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	ToolName  string `json:"tool_name,omitempty"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// Metadata carries optional provenance about a saved conversation.
type Metadata struct {
	CreatedAt   *int64 `json:"created_at,omitempty"`
	Model       string `json:"model,omitempty"`
	ProjectPath string `json:"project_path,omitempty"`
}

// Record is the full persisted-history JSON object for one saved
// conversation.
type Record struct {
	Name     string          `json:"name"`
	SavedAt  int64           `json:"saved_at"`
	Messages []MessageRecord `json:"messages"`
	Metadata Metadata        `json:"metadata,omitempty"`
}

// Meta is the lightweight listing projection (name, saved_at) the
// /history command's listing reads, avoiding a full message-body load.
type Meta struct {
	Name    string
	SavedAt int64
}

// FromConversation builds a Record from a live Conversation, sanitizing
// name and stamping savedAt (unix seconds, caller-supplied so the
// package itself never calls time.Now for deterministic testing).
func FromConversation(name string, conv *conversation.Conversation, meta Metadata, savedAt int64) Record {
	messages := conv.Messages()
	records := make([]MessageRecord, 0, len(messages))
	for _, m := range messages {
		var ts *int64
		if !m.CreatedAt.IsZero() {
			t := m.CreatedAt.Unix()
			ts = &t
		}
		records = append(records, MessageRecord{
			Role:      string(m.Role),
			Content:   m.Content,
			ToolName:  m.ToolName,
			Timestamp: ts,
		})
	}
	return Record{
		Name:     SanitizeName(name),
		SavedAt:  savedAt,
		Messages: records,
		Metadata: meta,
	}
}

// ToConversation projects a Record back into a live Conversation, role
// and content preserved verbatim, tool_name preserved iff role==tool —
// the round-trip property spec.md §8 requires.
func (r Record) ToConversation() *conversation.Conversation {
	conv := conversation.New()
	for _, m := range r.Messages {
		msg := conversation.Message{
			Role:    conversation.Role(m.Role),
			Content: m.Content,
		}
		if m.Role == string(conversation.RoleTool) {
			msg.ToolName = m.ToolName
		}
		if m.Timestamp != nil {
			msg.CreatedAt = time.Unix(*m.Timestamp, 0)
		}
		conv.Append(msg)
	}
	return conv
}
