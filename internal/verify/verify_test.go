package verify

import (
	"context"
	"strings"
	"testing"
)

func TestExtractCodeBlocksWithLanguageTag(t *testing.T) {
	content := "Here is some code:\n```python\ndef hello():\n    print(\"Hello\")\n```\nAnd more text."
	blocks := ExtractCodeBlocks(content)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Language != "python" {
		t.Fatalf("expected language python, got %q", blocks[0].Language)
	}
	if !strings.Contains(blocks[0].Code, "def hello()") {
		t.Fatalf("expected code to contain def hello(), got %q", blocks[0].Code)
	}
}

func TestExtractCodeBlocksWithoutLanguageTagInfersPython(t *testing.T) {
	content := "```\ndef hello():\n    print('hi')\n```"
	blocks := ExtractCodeBlocks(content)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Language != "python" {
		t.Fatalf("expected inferred language python, got %q", blocks[0].Language)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{"py": "python", "Python": "python", "rs": "rust", "js": "javascript"}
	for in, want := range cases {
		if got := NormalizeLanguage(in); got != want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInferLanguage(t *testing.T) {
	cases := []struct {
		code string
		want string
		ok   bool
	}{
		{"def foo(): pass", "python", true},
		{"fn main() {}", "rust", true},
		{"const x = 1;", "javascript", true},
		{"#!/bin/bash\necho hi", "bash", true},
		{"some random text", "", false},
	}
	for _, c := range cases {
		got, ok := InferLanguage(c.code)
		if ok != c.ok || got != c.want {
			t.Fatalf("InferLanguage(%q) = (%q, %v), want (%q, %v)", c.code, got, ok, c.want, c.ok)
		}
	}
}

func TestVerifyUnsupportedLanguageSucceedsTrivially(t *testing.T) {
	v := New()
	result, err := v.Verify(context.Background(), "cobol", "IDENTIFICATION DIVISION.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected unsupported language to report success")
	}
}

func TestCreateFixPromptIncludesCodeAndError(t *testing.T) {
	v := New()
	prompt := v.CreateFixPrompt(Result{Language: "python", Code: "print(x", Error: "SyntaxError: unexpected EOF"})
	if !strings.Contains(prompt, "print(x") || !strings.Contains(prompt, "SyntaxError") {
		t.Fatalf("expected fix prompt to include both code and error, got %q", prompt)
	}
}

func TestRunFixLoopSkipsGenerateWhenFirstAttemptSucceeds(t *testing.T) {
	v := &Verifier{Runner: nil, MaxAttempts: 3}
	calls := 0
	outcome, err := v.RunFixLoop(context.Background(), "cobol", "IDENTIFICATION DIVISION.", func(ctx context.Context, fixPrompt string) (string, string, error) {
		calls++
		return "cobol", "irrelevant", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected generate to never be called when the first attempt already succeeds, got %d calls", calls)
	}
	if !outcome.Fixed || outcome.Attempts != 1 {
		t.Fatalf("expected Fixed=true, Attempts=1, got %+v", outcome)
	}
}
