package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/turnline/turnline/internal/sandbox"
)

// gitTool wraps a single fixed-shape git subcommand through the sandbox
// runner: status/diff/log are read-only (Plan-mode allowed); add/commit are
// in mode.DestructiveTools and require confirmation.
type gitTool struct {
	name        string
	description string
	root        string
	runner      sandbox.Runner
	buildArgs   func(params map[string]any) ([]string, error)
	schema      string
}

func (t *gitTool) Name() string         { return t.name }
func (t *gitTool) Description() string  { return t.description }
func (t *gitTool) ParamsSchema() string { return t.schema }

func (t *gitTool) Execute(ctx context.Context, params map[string]any) (Result, error) {
	args, err := t.buildArgs(params)
	if err != nil {
		return Failure(err.Error()), nil
	}
	res, err := t.runner.RunCmd(ctx, t.root, "git", args, 30*time.Second)
	if err != nil {
		return Failure(fmt.Sprintf("git %s failed: %v: %s", strings.Join(args, " "), err, res.Stderr)), nil
	}
	if res.Code != 0 {
		return Failure(strings.TrimSpace(res.Stderr)), nil
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		out = "(no output)"
	}
	return Success(out), nil
}

// NewGitStatusTool runs `git status --short`, carrying over
// original_source tools/git/operations.rs's exact flag.
func NewGitStatusTool(root string) Tool {
	return &gitTool{
		name:        "git_status",
		description: "Show the working tree status.",
		root:        root,
		runner:      sandbox.NewDefaultRunner(),
		schema:      `{"type":"object","properties":{}}`,
		buildArgs: func(params map[string]any) ([]string, error) {
			return []string{"status", "--short"}, nil
		},
	}
}

// NewGitDiffTool runs `git diff`, optionally scoped to one file and/or
// switched to staged changes via `--staged`, matching
// original_source tools/git/operations.rs's `staged`/`file` params.
func NewGitDiffTool(root string) Tool {
	return &gitTool{
		name:        "git_diff",
		description: "Show changes between commits, commit and working tree, etc.",
		root:        root,
		runner:      sandbox.NewDefaultRunner(),
		schema:      `{"type":"object","properties":{"file":{"type":"string"},"staged":{"type":"boolean"}}}`,
		buildArgs: func(params map[string]any) ([]string, error) {
			args := []string{"diff"}
			if staged, ok := params["staged"].(bool); ok && staged {
				args = append(args, "--staged")
			}
			if file, ok := params["file"].(string); ok && file != "" {
				args = append(args, file)
			}
			return args, nil
		},
	}
}

// NewGitLogTool runs `git log` with a bounded entry count, defaulting to 10
// entries with `--oneline`, matching original_source's `count`/`oneline`
// params and defaults.
func NewGitLogTool(root string) Tool {
	return &gitTool{
		name:        "git_log",
		description: "Show commit logs.",
		root:        root,
		runner:      sandbox.NewDefaultRunner(),
		schema:      `{"type":"object","properties":{"count":{"type":"integer"},"oneline":{"type":"boolean"}}}`,
		buildArgs: func(params map[string]any) ([]string, error) {
			count := intParam(params, "count", 10)
			if count <= 0 {
				count = 10
			}
			oneline := true
			if v, ok := params["oneline"].(bool); ok {
				oneline = v
			}
			args := []string{"log", fmt.Sprintf("-%d", count)}
			if oneline {
				args = append(args, "--oneline")
			}
			return args, nil
		},
	}
}

// NewGitAddTool runs `git add` for one or more paths, taking a `files`
// array the way original_source's GitAddTool does rather than a single
// path. Destructive: requires confirmation per mode.DestructiveTools.
func NewGitAddTool(root string) Tool {
	return &gitTool{
		name:        "git_add",
		description: "Add file contents to the staging area.",
		root:        root,
		runner:      sandbox.NewDefaultRunner(),
		schema:      `{"type":"object","properties":{"files":{"type":"array","items":{"type":"string"}}},"required":["files"]}`,
		buildArgs: func(params map[string]any) ([]string, error) {
			files, err := stringSliceParam(params, "files")
			if err != nil {
				return nil, err
			}
			if len(files) == 0 {
				return nil, fmt.Errorf("missing required parameter: files")
			}
			args := []string{"add"}
			args = append(args, files...)
			return args, nil
		},
	}
}

// stringSliceParam reads a JSON array-of-strings param.
func stringSliceParam(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be an array of strings", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

// NewGitCommitTool runs `git commit -m`. Destructive: requires confirmation
// per mode.DestructiveTools.
func NewGitCommitTool(root string) Tool {
	return &gitTool{
		name:        "git_commit",
		description: "Record changes to the repository.",
		root:        root,
		runner:      sandbox.NewDefaultRunner(),
		schema:      `{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`,
		buildArgs: func(params map[string]any) ([]string, error) {
			message, ok := params["message"].(string)
			if !ok || message == "" {
				return nil, fmt.Errorf("missing required parameter: message")
			}
			return []string{"commit", "-m", message}, nil
		},
	}
}
