// Package toolcall extracts structured tool-invocation requests embedded
// in an LLM's reply text: fenced JSON blocks first, a brace-balanced bare
// JSON object as fallback.
package toolcall

import (
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Call is a single parsed tool invocation.
type Call struct {
	Tool   string
	Params map[string]any
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// Parse extracts every well-formed tool call from response. Parse
// failures on individual candidates are discarded silently so that
// partial valid calls still take effect.
func Parse(response string) []Call {
	var calls []Call
	for _, block := range extractJSONBlocks(response) {
		if call, ok := parseToolCall(block); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// ParseFirst returns the first tool call, if any.
func ParseFirst(response string) (Call, bool) {
	calls := Parse(response)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[0], true
}

// extractJSONBlocks returns each fenced block's body. If no fenced block
// is found, it falls back to scanning for a single balanced {...}.
func extractJSONBlocks(text string) []string {
	matches := fencedBlockRe.FindAllStringSubmatch(text, -1)
	var blocks []string
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSpace(m[1]))
	}
	if len(blocks) == 0 {
		if raw, ok := findRawJSON(text); ok {
			blocks = append(blocks, raw)
		}
	}
	return blocks
}

// findRawJSON scans for the first brace-balanced {...} span, ignoring
// string contents (balanced-bracket counting over raw characters is
// sufficient per spec).
func findRawJSON(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	start := strings.IndexByte(trimmed, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(trimmed); i++ {
		switch trimmed[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return trimmed[start : i+1], true
			}
		}
	}
	return "", false
}

// parseToolCall parses one JSON candidate into a Call. It requires a
// "tool" string key; "params" defaults to an empty object.
func parseToolCall(jsonStr string) (Call, bool) {
	var value map[string]any
	if err := json.UnmarshalFromString(jsonStr, &value); err != nil {
		return Call{}, false
	}

	tool, ok := value["tool"].(string)
	if !ok || tool == "" {
		return Call{}, false
	}

	params, ok := value["params"].(map[string]any)
	if !ok {
		params = map[string]any{}
	}

	return Call{Tool: tool, Params: params}, true
}

// HasToolCall reports whether response looks like it embeds a tool call,
// without fully parsing it.
func HasToolCall(response string) bool {
	return regexp.MustCompile(`\{\s*"tool"\s*:`).MatchString(response)
}

// SplitResponse strips fenced blocks from response (retaining only
// narrative prose) and returns the prose alongside the parsed calls.
func SplitResponse(response string) (string, []Call) {
	textOnly := strings.TrimSpace(fencedBlockRe.ReplaceAllString(response, ""))
	return textOnly, Parse(response)
}
