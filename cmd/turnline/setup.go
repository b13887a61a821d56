package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/turnline/turnline/internal/compress"
	"github.com/turnline/turnline/internal/config"
	"github.com/turnline/turnline/internal/conversation"
	"github.com/turnline/turnline/internal/history"
	"github.com/turnline/turnline/internal/mode"
	"github.com/turnline/turnline/internal/obslog"
	"github.com/turnline/turnline/internal/project"
	"github.com/turnline/turnline/internal/prompts"
	"github.com/turnline/turnline/internal/providers"
	"github.com/turnline/turnline/internal/sandbox"
	"github.com/turnline/turnline/internal/skills"
	"github.com/turnline/turnline/internal/tools"
	lsptools "github.com/turnline/turnline/internal/tools/lsp"
	"github.com/turnline/turnline/internal/turn"
	"github.com/turnline/turnline/internal/verify"
	"github.com/turnline/turnline/internal/workspace"
)

// environment bundles everything one turnline process needs, built once at
// startup from the loaded Config and torn down on exit.
type environment struct {
	cfg        *config.Config
	mgr        *config.Manager
	controller *turn.Controller
	skills     *skills.Registry
	triggers   *skills.TriggerDetector
	history    *history.Store
	searchIdx  *history.Index
	repoRoot   string
	autoSkills bool
}

// buildEnvironment wires a Controller and its supporting stores from cfg,
// the way the teacher's factory.BuildBrainAgent composes an engine.Agent
// from indexer/retrieval/workspace context.
func buildEnvironment(mgr *config.Manager, cfg *config.Config, repoRoot string) (*environment, error) {
	conv := conversation.NewWithMaxMessages(cfg.Agent.MaxMessages)
	promptBuilder := prompts.NewBuilder(systemPrompt())
	if rules, err := project.LoadRules(repoRoot); err != nil {
		obslog.Error("project: load rules failed", err)
	} else if rules != "" {
		promptBuilder.AddFragment("Project-specific instructions (.turnline/rules):\n" + rules)
	}
	conv.SetSystem(promptBuilder.Build())

	compressor := compress.New(compress.Config{
		Threshold:           cfg.Agent.Compression.Threshold,
		MaxTokens:           cfg.Agent.Compression.MaxTokens,
		PreserveRecent:      cfg.Agent.Compression.PreserveRecent,
		PreserveCodeBlocks:  cfg.Agent.Compression.PreserveCodeBlocks,
		PreserveToolResults: cfg.Agent.Compression.PreserveToolResults,
	})

	generator, err := providers.FromConfig(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build llm provider: %w", err)
	}

	runner, err := buildRunner(cfg, repoRoot)
	if err != nil {
		return nil, fmt.Errorf("build sandbox runner: %w", err)
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewReadTool(repoRoot))
	registry.Register(tools.NewWriteTool(repoRoot))
	registry.Register(tools.NewEditTool(repoRoot))
	registry.Register(tools.NewGlobTool(repoRoot))

	grepTool := tools.NewGrepTool(repoRoot)
	grepTool.Runner = runner
	registry.Register(grepTool)

	bashTool := tools.NewBashTool(repoRoot)
	bashTool.Runner = runner
	if cfg.Tools.BashTimeoutSeconds > 0 {
		bashTool.Timeout = secondsToDuration(cfg.Tools.BashTimeoutSeconds)
	}
	registry.Register(bashTool)

	registry.Register(tools.NewGitStatusTool(repoRoot))
	registry.Register(tools.NewGitDiffTool(repoRoot))
	registry.Register(tools.NewGitLogTool(repoRoot))
	registry.Register(tools.NewGitAddTool(repoRoot))
	registry.Register(tools.NewGitCommitTool(repoRoot))

	if server, ok := firstLSPServer(cfg); ok {
		session := lsptools.NewSession(repoRoot, server.Command, server.Args...)
		registry.Register(lsptools.NewDefinitionTool(session))
		registry.Register(lsptools.NewReferencesTool(session))
		registry.Register(lsptools.NewDiagnosticsTool(session))
	}

	modeMgr := mode.DefaultManager()
	if parsed, ok := mode.Parse(cfg.Agent.Mode); ok {
		modeMgr.Set(parsed)
	}

	skillRegistry := skills.NewRegistry()
	if err := skillRegistry.LoadDir(cfg.Skills.Dir); err != nil {
		obslog.Error("skills: load failed", err)
	}

	autoSkills := true
	if projCfg, err := project.LoadConfig(repoRoot); err != nil {
		obslog.Error("project: load config failed", err)
	} else if projCfg != nil {
		autoSkills = projCfg.AutoRunSkills
	}

	historyDir, err := historyDir()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(filepath.Join(historyDir, "conversations.db"))
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	searchIdx, err := history.OpenIndex(filepath.Join(historyDir, "search.bleve"))
	if err != nil {
		obslog.Error("history: search index unavailable", err)
	}

	controller := &turn.Controller{
		Conversation:  conv,
		Compressor:    compressor,
		LLM:           generator,
		Tools:         registry,
		Mode:          modeMgr,
		Verifier:      verify.New(),
		Confirm:       confirmOnStdin,
		VerifyEnabled: false,
		OnChunk: func(text string) {
			fmt.Print(text)
		},
	}

	return &environment{
		cfg:        cfg,
		mgr:        mgr,
		controller: controller,
		skills:     skillRegistry,
		triggers:   skills.NewTriggerDetector(skillRegistry),
		history:    store,
		searchIdx:  searchIdx,
		repoRoot:   repoRoot,
		autoSkills: autoSkills,
	}, nil
}

func (e *environment) Close() {
	if e.history != nil {
		e.history.Close()
	}
	if e.searchIdx != nil {
		e.searchIdx.Close()
	}
}

// buildRunner resolves tools.sandbox ("host" or "docker") to a
// sandbox.Runner, picking the Docker image by detecting the repo's project
// type (internal/workspace) when Docker mode is selected — the teacher's
// own DetectProjectType/GetDockerImage pairing, previously only reachable
// from the teacher's execution tools, now wired into the bash/grep tools
// the new fixed tool set exposes.
func buildRunner(cfg *config.Config, repoRoot string) (sandbox.Runner, error) {
	mode := sandbox.ModeHost
	if cfg.Tools.Sandbox == "docker" {
		mode = sandbox.ModeDocker
	}

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Mode = mode
	if mode == sandbox.ModeDocker {
		projectType := workspace.DetectProjectType(repoRoot)
		sandboxCfg.DockerImage = sandbox.GetDockerImage(projectType, sandboxCfg)
	}

	return sandbox.NewRunner(mode, sandboxCfg)
}

func firstLSPServer(cfg *config.Config) (config.LSPServerConfig, bool) {
	if server, ok := cfg.LSP.Servers["default"]; ok {
		return server, true
	}
	for _, server := range cfg.LSP.Servers {
		return server, true
	}
	return config.LSPServerConfig{}, false
}

func historyDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir = filepath.Join(dir, "turnline")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// systemPrompt describes the tool-call protocol the turn controller's
// toolcall.Parse expects: a fenced JSON block carrying {"tool","params"}.
func systemPrompt() string {
	return `You are turnline, an interactive coding assistant.

To call a tool, emit a fenced JSON code block of the exact shape:

` + "```json" + `
{"tool": "<name>", "params": {...}}
` + "```" + `

You may emit multiple such blocks in one reply; they run strictly in the
order they appear. Narrative text outside the fenced blocks is shown to
the user. Available tools: read, write, edit, glob, grep, bash, git_status,
git_diff, git_log, git_add, git_commit, lsp_definition, lsp_references,
lsp_diagnostics (when a language server is configured).`
}
