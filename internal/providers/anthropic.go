// Package providers adapts third-party LLM SDKs to llm.Generator, the
// turn controller's minimal "prompt(+system) in, text out" interface.
// The teacher's internal/providers package wired these same SDKs
// (go-anthropic, go-openai) into a native tool-calling chat engine
// (engine.LLMClient, with ChatMessage/ToolSchema/ToolCall types); this
// system's tool-call protocol is textual (fenced JSON parsed by
// internal/toolcall), so the adaptation here collapses each provider
// down to a single-turn completion call and lets the turn controller's
// own tool-call parsing work identically regardless of backend.
package providers

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/turnline/turnline/internal/llm"
)

// AnthropicClient adapts the Anthropic Messages API to llm.Generator.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient builds an AnthropicClient for the given model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{client: anthropic.NewClient(apiKey), model: model, maxTokens: 4096}
}

// Generate implements llm.Generator by issuing one single-turn Messages
// request: prompt as the sole user message, system (if non-empty) as
// the system prompt.
func (c *AnthropicClient) Generate(ctx context.Context, prompt, system string) (llm.GenerateResponse, error) {
	req := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(prompt)}},
		},
		MaxTokens: c.maxTokens,
	}
	if system != "" {
		req.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: system}}
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}

	return llm.GenerateResponse{Response: text.String(), Done: true}, nil
}
