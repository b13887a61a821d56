package providers

import (
	"fmt"

	"github.com/turnline/turnline/internal/config"
	"github.com/turnline/turnline/internal/llm"
)

// FromConfig builds the llm.Generator named by cfg.Provider. "ollama"
// (the default) returns the streaming-capable HTTP client from
// internal/llm; "anthropic" and "openai" return the SDK adapters above,
// demonstrating the teacher's provider-polymorphism pattern generalized
// beyond Ollama (SPEC_FULL.md §3/§5.3).
func FromConfig(cfg config.LLMConfig) (llm.Generator, error) {
	switch cfg.Provider {
	case "", "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return llm.New(llm.DefaultConfig(baseURL, cfg.Model)), nil

	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for provider %q", cfg.Provider)
		}
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for provider %q", cfg.Provider)
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	default:
		return nil, fmt.Errorf("unknown llm.provider %q (supported: ollama, anthropic, openai)", cfg.Provider)
	}
}
