// Package lsp wraps internal/lsp.Client as three tools.Tool implementations
// (lsp_definition, lsp_references, lsp_diagnostics), the set spec.md §5.7
// names. Grounded on original_source's tools/lsp/operations.rs: each
// operation did_opens the target file before the actual request, since a
// language server cannot answer a query against a document it has never
// seen.
package lsp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	internallsp "github.com/turnline/turnline/internal/lsp"
	"github.com/turnline/turnline/internal/tools"
)

// Session owns one lazily-started language server subprocess, shared by all
// three tools below. The teacher's equivalent (original_source's
// Arc<Mutex<Option<LspClient>>>) guards the same lazy-init-once pattern.
type Session struct {
	mu      sync.Mutex
	client  *internallsp.Client
	root    string
	command string
	args    []string
	opened  map[string]bool
}

// NewSession builds a Session that starts command/args on first use against
// root.
func NewSession(root, command string, args ...string) *Session {
	return &Session{root: root, command: command, args: args, opened: make(map[string]bool)}
}

func (s *Session) ensure(ctx context.Context) (*internallsp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := internallsp.Start(ctx, s.command, s.args...)
	if err != nil {
		return nil, fmt.Errorf("lsp: start %s: %w", s.command, err)
	}
	if _, err := client.Initialize(s.root); err != nil {
		return nil, fmt.Errorf("lsp: initialize: %w", err)
	}
	s.client = client
	return s.client, nil
}

func (s *Session) didOpen(client *internallsp.Client, path string) error {
	s.mu.Lock()
	already := s.opened[path]
	s.mu.Unlock()
	if already {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := client.DidOpen(path, string(content)); err != nil {
		return err
	}
	s.mu.Lock()
	s.opened[path] = true
	s.mu.Unlock()
	return nil
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func positionParams(params map[string]any) (path string, pos internallsp.Position, err error) {
	path, ok := params["file_path"].(string)
	if !ok || path == "" {
		return "", internallsp.Position{}, fmt.Errorf("missing required parameter: file_path")
	}
	line, ok := intParam(params, "line")
	if !ok {
		return "", internallsp.Position{}, fmt.Errorf("missing required parameter: line")
	}
	character, ok := intParam(params, "character")
	if !ok {
		return "", internallsp.Position{}, fmt.Errorf("missing required parameter: character")
	}
	return path, internallsp.Position{Line: line, Character: character}, nil
}

const positionSchema = `{"type":"object","properties":{"file_path":{"type":"string"},"line":{"type":"integer"},"character":{"type":"integer"}},"required":["file_path","line","character"]}`

// DefinitionTool implements lsp_definition.
type DefinitionTool struct{ Session *Session }

func NewDefinitionTool(s *Session) *DefinitionTool { return &DefinitionTool{Session: s} }

func (t *DefinitionTool) Name() string         { return "lsp_definition" }
func (t *DefinitionTool) Description() string  { return "Jump to the definition of a symbol at the given position." }
func (t *DefinitionTool) ParamsSchema() string { return positionSchema }

func (t *DefinitionTool) Execute(ctx context.Context, params map[string]any) (tools.Result, error) {
	path, pos, err := positionParams(params)
	if err != nil {
		return tools.Failure(err.Error()), nil
	}
	client, err := t.Session.ensure(ctx)
	if err != nil {
		return tools.Result{}, err
	}
	if err := t.Session.didOpen(client, path); err != nil {
		return tools.Failure(err.Error()), nil
	}
	result, err := client.Definition(path, pos)
	if err != nil {
		return tools.Failure(fmt.Sprintf("lsp error: %v", err)), nil
	}
	if len(result) == 0 || string(result) == "null" {
		return tools.Success("no definition found"), nil
	}
	return tools.Success(string(result)), nil
}

// ReferencesTool implements lsp_references.
type ReferencesTool struct{ Session *Session }

func NewReferencesTool(s *Session) *ReferencesTool { return &ReferencesTool{Session: s} }

func (t *ReferencesTool) Name() string         { return "lsp_references" }
func (t *ReferencesTool) Description() string  { return "Find all references to a symbol at the given position." }
func (t *ReferencesTool) ParamsSchema() string { return positionSchema }

func (t *ReferencesTool) Execute(ctx context.Context, params map[string]any) (tools.Result, error) {
	path, pos, err := positionParams(params)
	if err != nil {
		return tools.Failure(err.Error()), nil
	}
	client, err := t.Session.ensure(ctx)
	if err != nil {
		return tools.Result{}, err
	}
	if err := t.Session.didOpen(client, path); err != nil {
		return tools.Failure(err.Error()), nil
	}
	result, err := client.References(path, pos)
	if err != nil {
		return tools.Failure(fmt.Sprintf("lsp error: %v", err)), nil
	}
	if len(result) == 0 || string(result) == "null" {
		return tools.Success("no references found"), nil
	}
	return tools.Success(string(result)), nil
}

// DiagnosticsTool implements lsp_diagnostics.
type DiagnosticsTool struct{ Session *Session }

func NewDiagnosticsTool(s *Session) *DiagnosticsTool { return &DiagnosticsTool{Session: s} }

func (t *DiagnosticsTool) Name() string        { return "lsp_diagnostics" }
func (t *DiagnosticsTool) Description() string { return "Fetch diagnostics (errors/warnings) for a file." }
func (t *DiagnosticsTool) ParamsSchema() string {
	return `{"type":"object","properties":{"file_path":{"type":"string"}},"required":["file_path"]}`
}

func (t *DiagnosticsTool) Execute(ctx context.Context, params map[string]any) (tools.Result, error) {
	path, ok := params["file_path"].(string)
	if !ok || path == "" {
		return tools.Failure("missing required parameter: file_path"), nil
	}
	client, err := t.Session.ensure(ctx)
	if err != nil {
		return tools.Result{}, err
	}
	if err := t.Session.didOpen(client, path); err != nil {
		return tools.Failure(err.Error()), nil
	}
	result, err := client.Diagnostics(path)
	if err != nil {
		return tools.Failure(fmt.Sprintf("lsp error: %v", err)), nil
	}
	out := strings.TrimSpace(string(result))
	if out == "" || out == "null" {
		return tools.Success("no diagnostics"), nil
	}
	return tools.Success(out), nil
}
