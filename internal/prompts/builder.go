// Package prompts composes the turn controller's system prompt from a base
// fragment plus project-specific additions, the same fragment+variable
// composition the teacher's PromptBuilder used for its brain-agent prompts,
// trimmed of the versioned PromptRegistry this system has no use for (there
// is exactly one system prompt, not a library of named/versioned ones).
package prompts

import (
	"fmt"
	"strings"
)

// Builder composes a system prompt from an ordered list of fragments, with
// optional {{key}} variable substitution applied at Build time.
type Builder struct {
	fragments []string
	variables map[string]string
}

// NewBuilder starts a Builder from a base fragment.
func NewBuilder(base string) *Builder {
	return &Builder{fragments: []string{base}, variables: make(map[string]string)}
}

// AddFragment appends a fragment, joined with a blank line on Build.
func (b *Builder) AddFragment(text string) *Builder {
	if text == "" {
		return b
	}
	b.fragments = append(b.fragments, text)
	return b
}

// SetVariable registers a {{key}} -> value substitution applied on Build.
func (b *Builder) SetVariable(key, value string) *Builder {
	b.variables[key] = value
	return b
}

// Build joins the fragments and applies variable substitution.
func (b *Builder) Build() string {
	result := strings.Join(b.fragments, "\n\n")
	for key, value := range b.variables {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{%s}}", key), value)
	}
	return result
}
