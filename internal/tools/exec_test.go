package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/turnline/turnline/internal/sandbox"
)

// fakeRunner returns a canned sandbox.Result for every call and records the
// args it was last invoked with, standing in for a real rg/sh invocation.
type fakeRunner struct {
	result      sandbox.Result
	err         error
	lastCmd     string
	lastArgs    []string
	lastDir     string
	lastTimeout time.Duration
}

func (r *fakeRunner) RunCmd(ctx context.Context, repoDir, name string, args []string, timeout time.Duration) (sandbox.Result, error) {
	r.lastDir = repoDir
	r.lastCmd = name
	r.lastArgs = args
	r.lastTimeout = timeout
	return r.result, r.err
}

func TestGrepToolPassesGlobFilterToRipgrep(t *testing.T) {
	runner := &fakeRunner{result: sandbox.Result{Stdout: "a.go:1:match\n", Code: 0}}
	tool := &GrepTool{Root: "/repo", Runner: runner}

	res, err := tool.Execute(context.Background(), map[string]any{"pattern": "match", "glob": "*.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got failure: %q", res.Output)
	}
	found := false
	for i, a := range runner.lastArgs {
		if a == "-g" && i+1 < len(runner.lastArgs) && runner.lastArgs[i+1] == "*.go" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected -g *.go in rg args, got %v", runner.lastArgs)
	}
}

func TestGrepToolTruncatesAt100HitsWithIndicator(t *testing.T) {
	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, "a.go:1:match")
	}
	runner := &fakeRunner{result: sandbox.Result{Stdout: strings.Join(lines, "\n") + "\n", Code: 0}}
	tool := &GrepTool{Root: "/repo", Runner: runner}

	res, err := tool.Execute(context.Background(), map[string]any{"pattern": "match"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(res.Output, "(truncated)") {
		t.Fatalf("expected truncation indicator, got: %q", res.Output[len(res.Output)-40:])
	}
	got := strings.Count(res.Output, "a.go:1:match")
	if got != grepMaxHits {
		t.Fatalf("expected %d reported hits, got %d", grepMaxHits, got)
	}
}

func TestBashToolHonorsWorkingDirAndTimeoutParams(t *testing.T) {
	root := "/repo"
	runner := &fakeRunner{result: sandbox.Result{Code: 0}}
	tool := &BashTool{Root: root, Runner: runner, Timeout: 2 * time.Minute}

	_, err := tool.Execute(context.Background(), map[string]any{
		"command":     "echo hi",
		"working_dir": "sub",
		"timeout":     float64(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.lastDir != root+"/sub" {
		t.Fatalf("expected working_dir to resolve under root, got %q", runner.lastDir)
	}
	if runner.lastTimeout != 5*time.Second {
		t.Fatalf("expected a 5s timeout, got %v", runner.lastTimeout)
	}
}

func TestBashToolReportsTimedOutFailure(t *testing.T) {
	runner := &fakeRunner{result: sandbox.Result{TimedOut: true}}
	tool := NewBashTool("/repo")
	tool.Runner = runner

	res, err := tool.Execute(context.Background(), map[string]any{"command": "sleep 999"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure for a timed-out command, got success")
	}
	if !strings.Contains(res.Output, "timed out") {
		t.Fatalf("expected a timed-out message, got %q", res.Output)
	}
}
