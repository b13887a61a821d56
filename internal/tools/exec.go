package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turnline/turnline/internal/sandbox"
)

// grepMaxHits is the hard cap on reported matches spec.md §4.6 requires,
// matching the original grep tool's 100-match ceiling
// (_examples/original_source search/grep.rs).
const grepMaxHits = 100

// GrepTool runs ripgrep through the teacher's sandbox.Runner, the same
// Docker-or-host isolation execution tools already use for shell commands.
type GrepTool struct {
	Root   string
	Runner sandbox.Runner
}

func NewGrepTool(root string) *GrepTool {
	return &GrepTool{Root: root, Runner: sandbox.NewDefaultRunner()}
}

func (t *GrepTool) Name() string        { return "grep" }
func (t *GrepTool) Description() string { return "Search file contents with a regex pattern." }
func (t *GrepTool) ParamsSchema() string {
	return `{"type":"object","properties":{"pattern":{"type":"string"},"path":{"type":"string"},"glob":{"type":"string"}},"required":["pattern"]}`
}

func (t *GrepTool) Execute(ctx context.Context, params map[string]any) (Result, error) {
	pattern, ok := params["pattern"].(string)
	if !ok || pattern == "" {
		return Failure("missing required parameter: pattern"), nil
	}
	path, _ := params["path"].(string)
	if path == "" {
		path = "."
	}
	globFilter, _ := params["glob"].(string)

	args := []string{"--line-number"}
	if globFilter != "" {
		args = append(args, "-g", globFilter)
	}
	args = append(args, "-e", pattern, path)

	res, err := t.Runner.RunCmd(ctx, t.Root, "rg", args, 10*time.Second)
	if err != nil {
		if res.Code == 1 {
			return Success("no matches"), nil
		}
		return Failure(fmt.Sprintf("grep failed: %v: %s", err, res.Stderr)), nil
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return Success("no matches"), nil
	}

	lines := strings.Split(strings.TrimRight(res.Stdout, "\n"), "\n")
	truncated := len(lines) > grepMaxHits
	if truncated {
		lines = lines[:grepMaxHits]
	}
	out := strings.Join(lines, "\n")
	if truncated {
		out += " (truncated)"
	}
	return Success(out), nil
}

// BashTool runs an arbitrary shell command through the sandbox runner. It is
// a member of mode.DestructiveTools: the turn controller must gate it behind
// user confirmation before dispatch.
type BashTool struct {
	Root    string
	Runner  sandbox.Runner
	Timeout time.Duration
}

func NewBashTool(root string) *BashTool {
	return &BashTool{Root: root, Runner: sandbox.NewDefaultRunner(), Timeout: 2 * time.Minute}
}

func (t *BashTool) Name() string        { return "bash" }
func (t *BashTool) Description() string { return "Run a shell command in the working directory." }
func (t *BashTool) ParamsSchema() string {
	return `{"type":"object","properties":{"command":{"type":"string"},"working_dir":{"type":"string"},"timeout":{"type":"integer"}},"required":["command"]}`
}

func (t *BashTool) Execute(ctx context.Context, params map[string]any) (Result, error) {
	command, ok := params["command"].(string)
	if !ok || command == "" {
		return Failure("missing required parameter: command"), nil
	}

	repoDir := t.Root
	if workingDir, ok := params["working_dir"].(string); ok && workingDir != "" {
		resolved, err := resolveInRoot(t.Root, workingDir)
		if err != nil {
			return Failure(err.Error()), nil
		}
		repoDir = resolved
	}

	timeout := t.Timeout
	if secs := intParam(params, "timeout", -1); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	res, err := t.Runner.RunCmd(ctx, repoDir, "sh", []string{"-c", command}, timeout)
	if res.TimedOut {
		return Failure(fmt.Sprintf("command timed out after %s", timeout)), nil
	}

	output := res.Stdout
	if res.Stderr != "" {
		output += "\n" + res.Stderr
	}
	output = strings.TrimSpace(output)
	if err != nil {
		return Failure(output), nil
	}
	if res.Code != 0 {
		return Failure(output), nil
	}
	return Success(output), nil
}
