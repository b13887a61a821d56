package providers

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/turnline/turnline/internal/llm"
)

// OpenAIClient adapts the OpenAI-compatible chat completions API to
// llm.Generator. baseURL lets it double as a client for any
// OpenAI-compatible endpoint (Kimi, Groq, DeepSeek, local LM Studio,
// etc — the teacher's factory.go already enumerated these as the same
// client with a different base URL).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds an OpenAIClient. An empty baseURL uses the
// standard OpenAI endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate implements llm.Generator with a single-turn chat completion:
// an optional system message followed by one user message carrying prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt, system string) (llm.GenerateResponse, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.GenerateResponse{}, fmt.Errorf("openai returned no choices")
	}

	return llm.GenerateResponse{Response: resp.Choices[0].Message.Content, Done: true}, nil
}
