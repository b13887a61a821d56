package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return full
}

func TestReadToolRequiresFilePathParam(t *testing.T) {
	tool := NewReadTool(t.TempDir())
	res, err := tool.Execute(context.Background(), map[string]any{"path": "a.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure when file_path is missing, got success: %q", res.Output)
	}
}

func TestReadToolReturnsNumberedLinesWithHeader(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "one\ntwo\nthree")
	tool := NewReadTool(dir)

	res, err := tool.Execute(context.Background(), map[string]any{"file_path": "a.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got failure: %q", res.Output)
	}
	want := "File: a.txt (3 lines)\n     1\tone\n     2\ttwo\n     3\tthree"
	if res.Output != want {
		t.Fatalf("got:\n%q\nwant:\n%q", res.Output, want)
	}
}

func TestReadToolHonorsOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "one\ntwo\nthree\nfour")
	tool := NewReadTool(dir)

	res, err := tool.Execute(context.Background(), map[string]any{
		"file_path": "a.txt",
		"offset":    float64(1),
		"limit":     float64(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "File: a.txt (4 lines)\n     2\ttwo\n     3\tthree"
	if res.Output != want {
		t.Fatalf("got:\n%q\nwant:\n%q", res.Output, want)
	}
}

func TestWriteToolRequiresFilePathParamAndReportsLineCount(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteTool(dir)

	res, err := tool.Execute(context.Background(), map[string]any{"path": "a.txt", "content": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure when file_path is missing, got success: %q", res.Output)
	}

	res, err = tool.Execute(context.Background(), map[string]any{"file_path": "a.txt", "content": "one\ntwo\nthree"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got failure: %q", res.Output)
	}
	if res.Output != "Successfully wrote 3 lines to a.txt" {
		t.Fatalf("unexpected output: %q", res.Output)
	}
}

func TestEditToolRequiresFilePathParam(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "hello")
	tool := NewEditTool(dir)

	res, err := tool.Execute(context.Background(), map[string]any{
		"path": "a.txt", "old_string": "hello", "new_string": "bye",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure when file_path is missing, got success: %q", res.Output)
	}
}

func TestEditToolAmbiguousMatchFailsWithoutReplaceAll(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "foo bar foo")
	tool := NewEditTool(dir)

	res, err := tool.Execute(context.Background(), map[string]any{
		"file_path": "a.txt", "old_string": "foo", "new_string": "baz",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure for a double occurrence without replace_all, got success: %q", res.Output)
	}

	res, err = tool.Execute(context.Background(), map[string]any{
		"file_path": "a.txt", "old_string": "foo", "new_string": "baz", "replace_all": true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success with replace_all, got failure: %q", res.Output)
	}
	if res.Output != "replaced 2 occurrence(s) in a.txt" {
		t.Fatalf("unexpected output: %q", res.Output)
	}

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "baz bar baz" {
		t.Fatalf("unexpected file contents: %q", got)
	}
}

func TestGlobToolMatchesRecursivelyAcrossDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.go", "")
	writeTempFile(t, dir, filepath.Join("sub", "b.go"), "")
	writeTempFile(t, dir, filepath.Join("sub", "deeper", "c.go"), "")
	writeTempFile(t, dir, "d.txt", "")

	tool := NewGlobTool(dir)
	res, err := tool.Execute(context.Background(), map[string]any{"pattern": "**/*.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got failure: %q", res.Output)
	}
	for _, want := range []string{"a.go", filepath.Join("sub", "b.go"), filepath.Join("sub", "deeper", "c.go")} {
		if !containsLine(res.Output, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, res.Output)
		}
	}
	if containsLine(res.Output, "d.txt") {
		t.Fatalf("did not expect d.txt to match *.go, got:\n%s", res.Output)
	}
}

func TestGlobToolSkipsGitignoredPaths(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, ".gitignore", "vendor/\n")
	writeTempFile(t, dir, "a.go", "")
	writeTempFile(t, dir, filepath.Join("vendor", "b.go"), "")

	tool := NewGlobTool(dir)
	res, err := tool.Execute(context.Background(), map[string]any{"pattern": "**/*.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if containsLine(res.Output, filepath.Join("vendor", "b.go")) {
		t.Fatalf("expected vendor/b.go to be ignored, got:\n%s", res.Output)
	}
	if !containsLine(res.Output, "a.go") {
		t.Fatalf("expected a.go in output, got:\n%s", res.Output)
	}
}

func containsLine(output, line string) bool {
	for _, l := range splitLines(output) {
		if l == line {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
