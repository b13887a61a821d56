// Package lsp implements a JSON-RPC 2.0 client over Content-Length-framed
// stdio, the framing a language server speaks per the LSP base protocol.
// This is deliberately NOT the newline-delimited framing the pack's MCP
// clients use: the base LSP spec requires HTTP-style headers.
package lsp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type response struct {
	ID     *int64          `json:"id"`
	Result jsoniter.RawMessage `json:"result"`
	Error  jsoniter.RawMessage `json:"error"`
}

// Client drives one language server subprocess over stdio. Requests are
// serialized: a single in-flight send-then-read at a time, matching the
// original client's coarse per-client mutex rather than a per-request
// pending-response map.
type Client struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	nextID  int64
}

// Start spawns the language server process and returns an unconnected
// Client; call Initialize before issuing any other request.
func Start(ctx context.Context, command string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp: start %s: %w", command, err)
	}
	return &Client{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// newClientWithIO builds a Client directly over an existing stdin/stdout
// pair, bypassing process spawn. Used by tests to drive the framing logic
// against an in-process fake server.
func newClientWithIO(stdin io.WriteCloser, stdout io.Reader) *Client {
	return &Client{stdin: stdin, stdout: bufio.NewReader(stdout)}
}

// Initialize performs the initialize -> initialized handshake against
// rootPath.
func (c *Client) Initialize(rootPath string) (jsoniter.RawMessage, error) {
	uri := fileURI(rootPath)
	params := map[string]any{
		"processId":    nil,
		"rootUri":      uri,
		"capabilities": map[string]any{},
	}
	result, err := c.request("initialize", params)
	if err != nil {
		return nil, err
	}
	if err := c.notify("initialized", map[string]any{}); err != nil {
		return nil, err
	}
	return result, nil
}

// DidOpen notifies the server a document is open, required before any
// definition/references/diagnostics request targeting it.
func (c *Client) DidOpen(path, text string) error {
	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        fileURI(path),
			"languageId": languageIDForPath(path),
			"version":    1,
			"text":       text,
		},
	}
	return c.notify("textDocument/didOpen", params)
}

// Position is a zero-indexed (line, character) pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Definition requests textDocument/definition.
func (c *Client) Definition(path string, pos Position) (jsoniter.RawMessage, error) {
	params := map[string]any{
		"textDocument": map[string]any{"uri": fileURI(path)},
		"position":     pos,
	}
	return c.request("textDocument/definition", params)
}

// References requests textDocument/references, including the declaration.
func (c *Client) References(path string, pos Position) (jsoniter.RawMessage, error) {
	params := map[string]any{
		"textDocument": map[string]any{"uri": fileURI(path)},
		"position":     pos,
		"context":      map[string]any{"includeDeclaration": true},
	}
	return c.request("textDocument/references", params)
}

// Diagnostics requests textDocument/diagnostic (pull diagnostics).
func (c *Client) Diagnostics(path string) (jsoniter.RawMessage, error) {
	params := map[string]any{
		"textDocument":     map[string]any{"uri": fileURI(path)},
		"identifier":       nil,
		"previousResultId": nil,
	}
	return c.request("textDocument/diagnostic", params)
}

// Shutdown performs the shutdown -> exit teardown sequence and waits for
// the subprocess to exit.
func (c *Client) Shutdown() error {
	if _, err := c.request("shutdown", nil); err != nil {
		return err
	}
	if err := c.notify("exit", nil); err != nil {
		return err
	}
	c.stdin.Close()
	if c.cmd == nil {
		return nil
	}
	return c.cmd.Wait()
}

func (c *Client) request(method string, params interface{}) (jsoniter.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	if err := c.writeFrame(request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, err
	}

	for {
		resp, err := c.readFrame()
		if err != nil {
			return nil, err
		}
		if resp.ID == nil || *resp.ID != id {
			// A notification or a response to a stale request; discard.
			continue
		}
		if len(resp.Error) > 0 {
			return nil, fmt.Errorf("lsp error for %s: %s", method, string(resp.Error))
		}
		return resp.Result, nil
	}
}

func (c *Client) notify(method string, params interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeFrame(notification{JSONRPC: "2.0", Method: method, Params: params})
}

func (c *Client) writeFrame(v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := c.stdin.Write([]byte(header)); err != nil {
		return fmt.Errorf("lsp: write header: %w", err)
	}
	if _, err := c.stdin.Write(body); err != nil {
		return fmt.Errorf("lsp: write body: %w", err)
	}
	return nil
}

func (c *Client) readFrame() (response, error) {
	var contentLength int
	for {
		line, err := c.stdout.ReadString('\n')
		if err != nil {
			return response{}, fmt.Errorf("lsp: read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if contentLength > 0 {
				break
			}
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Content-Length:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return response{}, fmt.Errorf("lsp: bad Content-Length: %w", err)
			}
			contentLength = n
		}
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.stdout, body); err != nil {
		return response{}, fmt.Errorf("lsp: read body: %w", err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return response{}, fmt.Errorf("lsp: decode body: %w", err)
	}
	return resp, nil
}

func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return "file://" + abs
}

func languageIDForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "typescriptreact"
	case ".js":
		return "javascript"
	case ".jsx":
		return "javascriptreact"
	case ".py":
		return "python"
	case ".java":
		return "java"
	case ".c":
		return "c"
	case ".cc", ".cpp", ".cxx", ".h", ".hpp":
		return "cpp"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	case ".md":
		return "markdown"
	case ".yml", ".yaml":
		return "yaml"
	default:
		return "plaintext"
	}
}
