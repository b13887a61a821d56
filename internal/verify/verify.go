// Package verify executes fenced code blocks extracted from an LLM response
// to catch broken code before it reaches the user: Python runs end to end,
// Rust/JavaScript/Bash are checked for syntax/compile errors only.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/turnline/turnline/internal/sandbox"
)

// Result is the outcome of verifying one code block.
type Result struct {
	Success  bool
	Output   string
	Error    string
	Language string
	Code     string
}

// Block is one fenced code block extracted from a response. Raw is the
// exact matched fence (including the backtick lines), kept so a caller can
// replace the block in place after a successful fix-loop pass (spec.md
// §4.9 S6: "replacing the block in place").
type Block struct {
	Language string
	Code     string
	Raw      string
}

var fenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")

// ExtractCodeBlocks finds every fenced code block in content, inferring the
// language from the first lines when the fence carries no tag.
func ExtractCodeBlocks(content string) []Block {
	matches := fenceRe.FindAllStringSubmatch(content, -1)
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		lang := strings.TrimSpace(m[1])
		code := strings.TrimRight(m[2], "\n")
		if lang == "" {
			if inferred, ok := InferLanguage(code); ok {
				lang = inferred
			}
		}
		blocks = append(blocks, Block{Language: lang, Code: code, Raw: m[0]})
	}
	return blocks
}

// Fence renders a block back into fenced-markdown form, for splicing a
// fix-loop's corrected code back into the response text in place of Raw.
func Fence(language, code string) string {
	return "```" + language + "\n" + code + "\n```"
}

// InferLanguage guesses a block's language from keyword hints in its first
// five lines, the same heuristic depth the original verifier used.
func InferLanguage(code string) (string, bool) {
	lines := strings.Split(code, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	head := strings.Join(lines, "\n")

	switch {
	case strings.Contains(head, "def ") || strings.Contains(head, "import ") || strings.Contains(head, "print("):
		return "python", true
	case strings.Contains(head, "fn ") || strings.Contains(head, "let ") || strings.Contains(head, "use "):
		return "rust", true
	case strings.Contains(head, "function ") || strings.Contains(head, "const ") || strings.Contains(head, "=>"):
		return "javascript", true
	case strings.HasPrefix(head, "#!/bin/bash") || strings.HasPrefix(head, "#!/bin/sh"):
		return "bash", true
	default:
		return "", false
	}
}

// NormalizeLanguage maps common fence-tag aliases onto canonical names: the
// four languages Verify checks, plus typescript, which Verify reports as
// unsupported.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(lang) {
	case "python", "py", "python3":
		return "python"
	case "rust", "rs":
		return "rust"
	case "javascript", "js", "node":
		return "javascript"
	case "typescript", "ts":
		return "typescript"
	case "bash", "sh", "shell":
		return "bash"
	default:
		return lang
	}
}

// pythonTimeout is a hard ceiling independent of the caller's context:
// arbitrary generated Python must never be allowed to hang the turn.
const pythonTimeout = 10 * time.Second

// Verifier runs verification commands via sandbox.Runner, reusing the same
// Docker-or-host isolation the bash/grep tools use.
type Verifier struct {
	Runner      sandbox.Runner
	MaxAttempts int
}

// New builds a Verifier with the default 3-attempt fix loop bound.
func New() *Verifier {
	return &Verifier{Runner: sandbox.NewDefaultRunner(), MaxAttempts: 3}
}

// Verify dispatches to the per-language check. Unsupported languages report
// success trivially: verification is a best-effort safety net, not a gate
// that blocks languages it doesn't understand.
func (v *Verifier) Verify(ctx context.Context, language, code string) (Result, error) {
	lang := NormalizeLanguage(language)
	switch lang {
	case "python":
		return v.verifyPython(ctx, code)
	case "rust":
		return v.verifyRust(ctx, code)
	case "javascript":
		return v.verifyJavaScript(ctx, code)
	case "bash":
		return v.verifyBash(ctx, code)
	default:
		return Result{
			Success:  true,
			Output:   fmt.Sprintf("verification not supported for language: %s", language),
			Language: language,
			Code:     code,
		}, nil
	}
}

func (v *Verifier) writeTemp(code, ext string) (string, func(), error) {
	f, err := os.CreateTemp("", "turnline-verify-*"+ext)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

func (v *Verifier) verifyPython(ctx context.Context, code string) (Result, error) {
	path, cleanup, err := v.writeTemp(code, ".py")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	res, _ := v.Runner.RunCmd(ctx, filepath.Dir(path), "python3", []string{path}, pythonTimeout)
	if res.TimedOut {
		return Result{Success: false, Error: "execution timed out after 10 seconds", Language: "python", Code: code}, nil
	}
	return Result{
		Success:  res.Code == 0,
		Output:   res.Stdout,
		Error:    res.Stderr,
		Language: "python",
		Code:     code,
	}, nil
}

func (v *Verifier) verifyRust(ctx context.Context, code string) (Result, error) {
	path, cleanup, err := v.writeTemp(code, ".rs")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	// Compile-check only, discarding output. /dev/null is a Unix-only
	// sink; this verifier does not attempt to be Windows-portable.
	args := []string{"--emit=metadata", "-o", "/dev/null", path}
	res, _ := v.Runner.RunCmd(ctx, filepath.Dir(path), "rustc", args, 30*time.Second)
	return Result{
		Success:  res.Code == 0,
		Output:   res.Stdout,
		Error:    res.Stderr,
		Language: "rust",
		Code:     code,
	}, nil
}

func (v *Verifier) verifyJavaScript(ctx context.Context, code string) (Result, error) {
	path, cleanup, err := v.writeTemp(code, ".js")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	res, _ := v.Runner.RunCmd(ctx, filepath.Dir(path), "node", []string{"--check", path}, 10*time.Second)
	return Result{
		Success:  res.Code == 0,
		Output:   res.Stdout,
		Error:    res.Stderr,
		Language: "javascript",
		Code:     code,
	}, nil
}

func (v *Verifier) verifyBash(ctx context.Context, code string) (Result, error) {
	path, cleanup, err := v.writeTemp(code, ".sh")
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	res, _ := v.Runner.RunCmd(ctx, filepath.Dir(path), "bash", []string{"-n", path}, 10*time.Second)
	return Result{
		Success:  res.Code == 0,
		Output:   res.Stdout,
		Error:    res.Stderr,
		Language: "bash",
		Code:     code,
	}, nil
}

// CreateFixPrompt builds the re-prompt sent back to the LLM after a failed
// verification, carrying the original code and the exact stderr.
func (v *Verifier) CreateFixPrompt(r Result) string {
	return fmt.Sprintf(
		"The following %s code has an error. Please fix it.\n\n"+
			"**Original Code:**\n```%s\n%s\n```\n\n"+
			"**Error:**\n```\n%s\n```\n\n"+
			"Please provide the corrected code. Only output the fixed code block, no explanation.",
		r.Language, r.Language, r.Code, r.Error,
	)
}
