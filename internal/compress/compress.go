// Package compress implements the context compressor: once a conversation
// crosses a token threshold, old messages are replaced by an extractive
// summary while recent messages and "important" content (tool results,
// code blocks) are preserved.
package compress

import (
	"fmt"
	"strings"

	"github.com/turnline/turnline/internal/conversation"
)

// Config mirrors spec.md's CompressionConfig.
type Config struct {
	Threshold           float64
	MaxTokens           int
	PreserveRecent      int
	PreserveCodeBlocks  bool
	PreserveToolResults bool
}

// DefaultConfig matches the original agent's defaults: compress at 50% of
// a 128K token budget, keeping the last 10 messages verbatim.
func DefaultConfig() Config {
	return Config{
		Threshold:           0.5,
		MaxTokens:           128000,
		PreserveRecent:      10,
		PreserveCodeBlocks:  true,
		PreserveToolResults: true,
	}
}

// Summary is the compressed representation of the messages older than
// PreserveRecent.
type Summary struct {
	OriginalCount int
	Text          string
}

// Compressed is the projection built by Compress: a CompressedConversation
// in spec terms.
type Compressed struct {
	System              *conversation.Message
	History             *Summary
	Preserved           []conversation.Message
	OriginalMessageCount int
	TokensSaved         int
}

// ToConversation projects a Compressed back into a fresh Conversation:
// system message first, then (if compression actually happened) a single
// synthetic System message carrying the summary, then the preserved
// recent messages in order.
func (c Compressed) ToConversation() *conversation.Conversation {
	out := conversation.New()
	if c.System != nil {
		out.SetSystem(c.System.Content)
	}
	if c.History != nil {
		out.Append(conversation.NewSystem(fmt.Sprintf(
			"[Previous conversation summary (%d messages)]\n%s",
			c.History.OriginalCount, c.History.Text,
		)))
	}
	for _, m := range c.Preserved {
		out.Append(m)
	}
	return out
}

// Compressor applies Config to a Conversation.
type Compressor struct {
	cfg Config
}

// New creates a Compressor with the given configuration.
func New(cfg Config) *Compressor {
	return &Compressor{cfg: cfg}
}

// ShouldCompress reports whether the conversation's estimated token usage
// exceeds threshold * max_tokens.
func (cp *Compressor) ShouldCompress(conv *conversation.Conversation) bool {
	thresholdTokens := int(float64(cp.cfg.MaxTokens) * cp.cfg.Threshold)
	return conv.EstimatedTokens() > thresholdTokens
}

// Compress builds a Compressed projection per spec.md §4.2.
func (cp *Compressor) Compress(conv *conversation.Conversation) Compressed {
	messages := conv.Messages()
	originalCount := len(messages)

	var system *conversation.Message
	var nonSystem []conversation.Message
	for i := range messages {
		if messages[i].Role == conversation.RoleSystem && system == nil {
			m := messages[i]
			system = &m
			continue
		}
		if messages[i].Role != conversation.RoleSystem {
			nonSystem = append(nonSystem, messages[i])
		}
	}

	k := cp.cfg.PreserveRecent
	if len(nonSystem) <= k {
		return Compressed{
			System:               system,
			History:              nil,
			Preserved:            nonSystem,
			OriginalMessageCount: originalCount,
			TokensSaved:          0,
		}
	}

	splitPoint := len(nonSystem) - k
	old := nonSystem[:splitPoint]
	recent := nonSystem[splitPoint:]

	important := extractImportant(old, cp.cfg)
	summaryText := summarize(old, important)

	oldTokens := 0
	for _, m := range old {
		oldTokens += conversation.EstimateMessageTokens(m)
	}
	summaryTokens := conversation.EstimateTextTokens(summaryText)
	tokensSaved := saturatingSub(oldTokens, summaryTokens)

	return Compressed{
		System: system,
		History: &Summary{
			OriginalCount: len(old),
			Text:          summaryText,
		},
		Preserved:            recent,
		OriginalMessageCount: originalCount,
		TokensSaved:          tokensSaved,
	}
}

func saturatingSub(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}

// containsCodeBlock detects a fenced (```) or 4-space-indented code block.
func containsCodeBlock(text string) bool {
	return strings.Contains(text, "```") || strings.Contains(text, "    ")
}

func extractImportant(messages []conversation.Message, cfg Config) []conversation.Message {
	var important []conversation.Message
	for _, m := range messages {
		isImportant := (cfg.PreserveToolResults && m.Role == conversation.RoleTool) ||
			(cfg.PreserveCodeBlocks && containsCodeBlock(m.Content))
		if isImportant {
			important = append(important, m)
		}
	}
	return important
}

// summarize builds the extractive summary text: a first-line/first-sentence
// digest of User/Assistant turns, followed by verbatim important content.
func summarize(messages, important []conversation.Message) string {
	var userTopics, assistantActions []string

	for _, m := range messages {
		switch m.Role {
		case conversation.RoleUser:
			if topic := extractTopic(m.Content); topic != "" {
				userTopics = append(userTopics, topic)
			}
		case conversation.RoleAssistant:
			if action := extractAction(m.Content); action != "" {
				assistantActions = append(assistantActions, action)
			}
		}
	}

	var b strings.Builder
	if len(userTopics) > 0 {
		b.WriteString("User discussed: ")
		b.WriteString(strings.Join(userTopics, ", "))
		b.WriteString(".\n")
	}
	if len(assistantActions) > 0 {
		b.WriteString("Assistant: ")
		b.WriteString(strings.Join(assistantActions, "; "))
		b.WriteString(".\n")
	}

	for _, m := range important {
		switch {
		case m.Role == conversation.RoleTool:
			name := m.ToolName
			if name == "" {
				name = "unknown"
			}
			b.WriteString(fmt.Sprintf("\n[Tool: %s] ", name))
			b.WriteString(truncate(m.Content, 200))
			b.WriteString("\n")
		case (m.Role == conversation.RoleAssistant || m.Role == conversation.RoleUser) && containsCodeBlock(m.Content):
			if code := extractCodeBlocks(m.Content); code != "" {
				b.WriteString("\n[Code context]:\n")
				b.WriteString(code)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// extractTopic takes the first line, truncated to 100 chars with "…".
func extractTopic(content string) string {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) == 0 || lines[0] == "" {
		return ""
	}
	return truncateWithEllipsis(lines[0], 100)
}

// extractAction takes the first sentence, truncated to 100 chars with "…".
func extractAction(content string) string {
	parts := strings.SplitN(content, ".", 2)
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return truncateWithEllipsis(parts[0], 100)
}

func truncateWithEllipsis(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + "…"
}

// truncate is the 200-char tool-output cut: like truncateWithEllipsis it
// keeps the result within max bytes, but its marker is an ASCII "...".
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + "..."
}

// extractCodeBlocks pulls every fenced block's body out of content and
// rejoins them with "---".
func extractCodeBlocks(content string) string {
	var blocks []string
	var current strings.Builder
	inBlock := false

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "```") {
			if inBlock {
				blocks = append(blocks, current.String())
				current.Reset()
			}
			inBlock = !inBlock
			continue
		}
		if inBlock {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n---\n")
}
