// Package tools implements the fixed tool set the turn controller dispatches
// against: filesystem, search, execution, version control and LSP bridges,
// each described by a JSON parameters schema and gated by mode/confirmation
// policy upstream in internal/mode.
package tools

import "context"

// Result is a tool's outcome. Success=false carries a human-readable
// failure description in Output rather than a Go error, mirroring how the
// turn controller feeds failed tool output back into the conversation as a
// Tool-role message instead of aborting the turn.
type Result struct {
	Success bool
	Output  string
}

// Success builds a successful Result.
func Success(output string) Result { return Result{Success: true, Output: output} }

// Failure builds a failed Result. The failure still becomes a Tool message;
// only a non-nil error from Execute itself is treated as infrastructure
// failure (turnerr.KindToolFailure).
func Failure(output string) Result { return Result{Success: false, Output: output} }

// Tool is one entry in the registry the turn controller dispatches against.
type Tool interface {
	Name() string
	Description() string
	ParamsSchema() string // JSON Schema describing Execute's params
	Execute(ctx context.Context, params map[string]any) (Result, error)
}

// Definition is the wire-facing shape handed to the LLM so it knows what
// tools exist and how to call them.
type Definition struct {
	Name        string
	Description string
	ParamsSchema string
}
