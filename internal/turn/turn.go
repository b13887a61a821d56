// Package turn implements the turn controller: the S0-S6 loop that takes one
// user input, round-trips it through the LLM, and dispatches any tool calls
// the response contains strictly in the order they appear in the text
// (spec.md §5) — unlike the teacher's engine, which fires all of a
// response's tool calls concurrently via a goroutine+WaitGroup
// (internal/engine/step.go's executeToolsWithRetry). Sequential dispatch is
// required here because a later call in the same response can depend on an
// earlier one's side effect (e.g. edit after read, or commit after add).
package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/turnline/turnline/internal/compress"
	"github.com/turnline/turnline/internal/conversation"
	"github.com/turnline/turnline/internal/llm"
	"github.com/turnline/turnline/internal/mode"
	"github.com/turnline/turnline/internal/toolcall"
	"github.com/turnline/turnline/internal/tools"
	"github.com/turnline/turnline/internal/turnerr"
	"github.com/turnline/turnline/internal/verify"
)

// ConfirmFunc gates a destructive tool call behind user approval (S3a).
// It returns true to proceed, false to decline.
type ConfirmFunc func(ctx context.Context, toolName string, params map[string]any) bool

// ToolExecution records what happened to one parsed tool call.
type ToolExecution struct {
	Call                 toolcall.Call
	Result               tools.Result
	Err                  error
	Denied               bool // blocked by mode policy (S3)
	ConfirmationDeclined bool // blocked by user declining confirmation (S3a)
}

// Outcome is what one RunTurn call produced.
type Outcome struct {
	AssistantText string
	ToolResults   []ToolExecution
	Verifications []verify.Result
	Done          bool // true when the response carried no tool calls
}

// Controller wires conversation, compression, the LLM client, the tool
// registry, mode policy and the optional code verifier into one turn loop.
type Controller struct {
	Conversation  *conversation.Conversation
	Compressor    *compress.Compressor
	LLM           llm.Generator
	Tools         *tools.Registry
	Mode          *mode.Manager
	Verifier      *verify.Verifier
	Confirm       ConfirmFunc
	VerifyEnabled bool

	// OnChunk, when set, is called with each text fragment as it streams
	// in from the LLM (spec.md §4.9 S1: "stream; render tokens live").
	// RunTurn only takes the streaming path when both OnChunk is set and
	// LLM implements llm.StreamGenerator; otherwise it falls back to a
	// single blocking Generate call, which keeps providers that only
	// support a plain request/response shape (internal/providers)
	// working behind the same Controller.
	OnChunk func(text string)
}

// RunTurn executes one S0-S6 turn for userInput.
func (c *Controller) RunTurn(ctx context.Context, userInput string) (Outcome, error) {
	// S0: ReceiveInput.
	c.Conversation.AddUser(userInput)
	if c.Compressor != nil && c.Compressor.ShouldCompress(c.Conversation) {
		compressed := c.Compressor.Compress(c.Conversation)
		*c.Conversation = *compressed.ToConversation()
	}

	// S1: SendToLLM.
	prompt := c.Conversation.SerializePrompt()
	responseText, err := c.generate(ctx, prompt)
	if err != nil {
		return Outcome{}, turnerr.New(turnerr.KindTransport, err)
	}

	// S6: optional VerifyHook, run against the raw response before S2
	// strips fences, so any non-tool-call code block (python, rust, ...)
	// can be patched in place before it ever reaches the conversation or
	// the user. A failure enters the bounded fix loop (§4.8); it never
	// recurses into another verifier pass beyond the loop's own
	// MaxAttempts bound (spec.md §9).
	var verifications []verify.Result
	if c.VerifyEnabled && c.Verifier != nil {
		responseText, verifications = c.runVerifyFixLoop(ctx, responseText)
	}

	// S2: ParseToolCalls.
	text, calls := toolcall.SplitResponse(responseText)
	if len(calls) == 0 {
		// "full text" per spec.md §4.9 S2: the complete response, fences
		// and all, since there is no tool transcript to splice around it.
		c.Conversation.AddAssistant(responseText)
		return Outcome{AssistantText: responseText, Verifications: verifications, Done: true}, nil
	}

	executions := make([]ToolExecution, 0, len(calls))
	for _, call := range calls {
		// S3: CheckMode.
		if c.Mode != nil && !c.Mode.IsToolAllowed(call.Tool) {
			msg := fmt.Sprintf("tool %q is not allowed in %s mode", call.Tool, c.Mode.Current())
			c.Conversation.AddToolResult(call.Tool, msg)
			executions = append(executions, ToolExecution{Call: call, Denied: true, Result: tools.Failure(msg)})
			continue
		}

		// S3a: CheckConfirmation.
		if mode.RequiresConfirmation(call.Tool) && c.Confirm != nil && !c.Confirm(ctx, call.Tool, call.Params) {
			msg := fmt.Sprintf("user declined to confirm %q", call.Tool)
			c.Conversation.AddToolResult(call.Tool, msg)
			executions = append(executions, ToolExecution{Call: call, ConfirmationDeclined: true, Result: tools.Failure(msg)})
			continue
		}

		// S4: DispatchTool (one call at a time, in textual order).
		result, dispatchErr := c.Tools.Dispatch(ctx, call.Tool, call.Params)
		if dispatchErr != nil {
			dispatchErr = turnerr.WithTool(turnerr.KindToolFailure, call.Tool, dispatchErr)
			result = tools.Failure(dispatchErr.Error())
		}
		c.Conversation.AddToolResult(call.Tool, result.Output)
		executions = append(executions, ToolExecution{Call: call, Result: result, Err: dispatchErr})
	}

	// S5: AfterAllTools. The final Assistant message is the narrative
	// text stripped of tool-call fences, followed by one "[tool]\n<output>"
	// stanza per call in textual order — this exact layout is part of the
	// observable protocol for persisted history (spec.md §4.9).
	finalText := appendToolTranscript(text, executions)
	c.Conversation.AddAssistant(finalText)

	return Outcome{
		AssistantText: finalText,
		ToolResults:   executions,
		Verifications: verifications,
		Done:          false,
	}, nil
}

// appendToolTranscript builds the S5 final Assistant text: narrative
// prose followed by a "[tool]\n<output>\n\n" stanza per executed call.
func appendToolTranscript(narrative string, executions []ToolExecution) string {
	var sb strings.Builder
	sb.WriteString(narrative)
	for _, exec := range executions {
		sb.WriteString("\n\n[")
		sb.WriteString(exec.Call.Tool)
		sb.WriteString("]\n")
		sb.WriteString(exec.Result.Output)
	}
	return strings.TrimSpace(sb.String())
}

// runVerifyFixLoop verifies every fenced code block in raw (skipping the
// json-tagged tool-call fences the toolcall protocol uses), running each
// through the bounded fix loop, and splices any fixed block back into raw
// in place of its original fence.
func (c *Controller) runVerifyFixLoop(ctx context.Context, raw string) (string, []verify.Result) {
	var results []verify.Result
	for _, block := range verify.ExtractCodeBlocks(raw) {
		if strings.EqualFold(block.Language, "json") {
			continue
		}

		fallbackLang := block.Language
		generate := func(ctx context.Context, fixPrompt string) (string, string, error) {
			resp, err := c.LLM.Generate(ctx, fixPrompt, "")
			if err != nil {
				return "", "", err
			}
			reply := strings.TrimSpace(resp.Response)
			if fixed := verify.ExtractCodeBlocks(reply); len(fixed) > 0 {
				lang := fixed[0].Language
				if lang == "" {
					lang = fallbackLang
				}
				return lang, fixed[0].Code, nil
			}
			// No fenced block in the reply: tolerate a code-only response
			// by treating the entire trimmed reply as the candidate
			// (spec.md §4.8).
			return fallbackLang, reply, nil
		}

		fixOutcome, err := c.Verifier.RunFixLoop(ctx, block.Language, block.Code, generate)
		if err != nil {
			continue
		}
		results = append(results, fixOutcome.Result)
		if fixOutcome.Fixed && fixOutcome.Result.Code != block.Code {
			raw = strings.Replace(raw, block.Raw,
				verify.Fence(fixOutcome.Result.Language, fixOutcome.Result.Code), 1)
		}
	}
	return raw, results
}

// generate dispatches to the streaming path when the configured LLM
// supports it and a consumer is listening, otherwise it issues one
// blocking Generate call. Either way it returns the full response text.
func (c *Controller) generate(ctx context.Context, prompt string) (string, error) {
	streamer, ok := c.LLM.(llm.StreamGenerator)
	if !ok || c.OnChunk == nil {
		resp, err := c.LLM.Generate(ctx, prompt, "")
		if err != nil {
			return "", err
		}
		return resp.Response, nil
	}

	stream, err := streamer.GenerateStreaming(ctx, prompt, "")
	if err != nil {
		return "", err
	}
	for {
		chunk, more := stream.Next()
		if !more {
			break
		}
		if chunk.Text != "" {
			c.OnChunk(chunk.Text)
		}
	}
	return stream.AccumulatedText(), nil
}
