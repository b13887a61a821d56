// Package config loads and persists turnline's declarative configuration
// document: sections {llm, agent, tools, skills, lsp}, authored as YAML.
// The Manager shape (Load/Save/Exists/GetConfigPath) and its 0600-perms
// habit come straight from the teacher's internal/config/manager.go; only
// the document format (JSON -> YAML) and section set changed.
package config

import "time"

// RetryConfig mirrors llm.RetryPolicy in millisecond/count terms suitable
// for a hand-authored document.
type RetryConfig struct {
	MaxRetries       int     `yaml:"max_retries"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms"`
}

// AsDurations converts the millisecond fields to time.Duration.
func (r RetryConfig) AsDurations() (initial, max time.Duration) {
	return time.Duration(r.InitialBackoffMs) * time.Millisecond,
		time.Duration(r.MaxBackoffMs) * time.Millisecond
}

// LLMConfig configures the turn controller's LLM backend.
type LLMConfig struct {
	Provider         string      `yaml:"provider"` // ollama, anthropic, openai
	BaseURL          string      `yaml:"base_url,omitempty"`
	Model            string      `yaml:"model"`
	APIKey           string      `yaml:"api_key,omitempty"`
	ConnectTimeoutMs int         `yaml:"connect_timeout_ms"`
	ReadTimeoutMs    int         `yaml:"read_timeout_ms"`
	Retry            RetryConfig `yaml:"retry"`
}

// CompressionConfig mirrors compress.Config in a hand-authored-friendly shape.
type CompressionConfig struct {
	Threshold           float64 `yaml:"threshold"`
	MaxTokens           int     `yaml:"max_tokens"`
	PreserveRecent      int     `yaml:"preserve_recent"`
	PreserveCodeBlocks  bool    `yaml:"preserve_code_blocks"`
	PreserveToolResults bool    `yaml:"preserve_tool_results"`
}

// AgentConfig configures conversation bounds and the starting mode.
type AgentConfig struct {
	Mode        string            `yaml:"mode"` // plan, execute
	MaxMessages int               `yaml:"max_messages"`
	Compression CompressionConfig `yaml:"compression"`
}

// ToolsConfig configures the execution backend tools run against.
type ToolsConfig struct {
	Sandbox            string `yaml:"sandbox"` // host, docker
	BashTimeoutSeconds int    `yaml:"bash_timeout_seconds"`
}

// SkillsConfig configures the skill overlay's content directory and
// which skills auto-run (are listed first / invoked without a trigger).
type SkillsConfig struct {
	Dir     string   `yaml:"dir,omitempty"`
	AutoRun []string `yaml:"auto_run,omitempty"`
}

// LSPServerConfig is one language server's launch command.
type LSPServerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// LSPConfig maps a language id (per internal/lsp's table) to its server.
type LSPConfig struct {
	Servers map[string]LSPServerConfig `yaml:"servers,omitempty"`
}

// Config is the full declarative document.
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Agent  AgentConfig  `yaml:"agent"`
	Tools  ToolsConfig  `yaml:"tools"`
	Skills SkillsConfig `yaml:"skills,omitempty"`
	LSP    LSPConfig    `yaml:"lsp,omitempty"`
}

// Default returns the document matching the package defaults used
// elsewhere (llm.DefaultConfig, compress.DefaultConfig, mode.Execute).
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:         "ollama",
			BaseURL:          "http://localhost:11434",
			Model:            "llama3",
			ConnectTimeoutMs: 30000,
			ReadTimeoutMs:    300000,
			Retry: RetryConfig{
				MaxRetries:       3,
				InitialBackoffMs: 500,
				Multiplier:       2.0,
				MaxBackoffMs:     30000,
			},
		},
		Agent: AgentConfig{
			Mode:        "execute",
			MaxMessages: 100,
			Compression: CompressionConfig{
				Threshold:           0.5,
				MaxTokens:           128000,
				PreserveRecent:      10,
				PreserveCodeBlocks:  true,
				PreserveToolResults: true,
			},
		},
		Tools: ToolsConfig{
			Sandbox:            "host",
			BashTimeoutSeconds: 120,
		},
	}
}
