package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/turnline/turnline/internal/history"
	"github.com/turnline/turnline/internal/obslog"
	"github.com/turnline/turnline/internal/providers"
	"github.com/turnline/turnline/internal/skills"
)

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// confirmOnStdin implements turn.ConfirmFunc by asking the operator on the
// controlling terminal, the same y/n gate the teacher's plan-mode tools use
// before a destructive action.
func confirmOnStdin(ctx context.Context, toolName string, params map[string]any) bool {
	fmt.Printf("confirm %s %v [y/N]: ", toolName, params)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// runREPL drives the interactive loop: bufio.Scanner over stdin, one line
// per turn, the same shape as the teacher's cmd/repl/main.go runBrainMode
// generalized to this system's slash-command surface (spec.md §6).
func runREPL(ctx context.Context, env *environment) error {
	fmt.Printf("turnline ready (mode: %s, model: %s)\n", env.controller.Mode.Current(), env.cfg.LLM.Model)
	fmt.Println("Type /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done, err := handleCommand(ctx, env, line); done {
				if err != nil {
					fmt.Printf("error: %v\n", err)
				}
				if line == "/quit" || line == "/q" || line == "/exit" {
					return nil
				}
				continue
			}
		}

		if err := runOneTurn(ctx, env, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

// handleCommand dispatches a leading-slash input. It returns done=true if
// the input was recognized as a built-in command (handled, whether or not
// it errored); done=false means the input should fall through to a skill
// invocation or, failing that, a normal turn.
func handleCommand(ctx context.Context, env *environment, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/help", "/h", "/?":
		printHelp()
		return true, nil

	case "/quit", "/q", "/exit":
		fmt.Println("bye")
		return true, nil

	case "/plan":
		env.controller.Mode.ToPlan()
		fmt.Println("mode: plan")
		return true, nil

	case "/execute", "/exec":
		env.controller.Mode.ToExecute()
		fmt.Println("mode: execute")
		return true, nil

	case "/clear", "/cls":
		env.controller.Conversation.Clear()
		fmt.Println("conversation cleared")
		return true, nil

	case "/status":
		printStatus(env)
		return true, nil

	case "/skills":
		printSkills(env)
		return true, nil

	case "/model":
		if len(args) == 0 {
			fmt.Printf("model: %s\n", env.cfg.LLM.Model)
			return true, nil
		}
		llmCfg := env.cfg.LLM
		llmCfg.Model = args[0]
		generator, err := providers.FromConfig(llmCfg)
		if err != nil {
			return true, err
		}
		env.cfg.LLM = llmCfg
		env.controller.LLM = generator
		fmt.Printf("model set to %s\n", args[0])
		return true, nil

	case "/save":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /save <name>")
		}
		return true, saveConversation(ctx, env, args[0])

	case "/load":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /load <name>")
		}
		return true, loadConversation(ctx, env, args[0])

	case "/history", "/hist":
		return true, printHistory(ctx, env)

	default:
		if skills.IsSkillCommand(line) {
			return true, runSkillInvocation(env, line)
		}
		return false, nil
	}
}

func printHelp() {
	fmt.Println(`commands:
  /help, /h, /?          show this help
  /quit, /q, /exit       exit turnline
  /plan                  switch to plan mode (read-only tools)
  /execute, /exec        switch to execute mode
  /clear, /cls           clear the conversation
  /status                show mode and conversation size
  /skills                list loaded skills
  /model <name>          show or set the active model
  /save <name>           save the conversation
  /load <name>           load a saved conversation
  /history, /hist        list saved conversations
  /<skill-name> [args]   invoke a skill`)
}

func printStatus(env *environment) {
	fmt.Printf("mode: %s\n", env.controller.Mode.Current())
	fmt.Printf("messages: %d\n", env.controller.Conversation.Len())
	fmt.Printf("provider: %s  model: %s\n", env.cfg.LLM.Provider, env.cfg.LLM.Model)
}

func printSkills(env *environment) {
	names := env.skills.Names()
	if len(names) == 0 {
		fmt.Println("no skills loaded")
		return
	}
	for _, name := range names {
		skill, _ := env.skills.Get(name)
		fmt.Printf("  /%s - %s\n", name, skill.Metadata.Description)
	}
}

// runSkillInvocation runs one turn at once whose user input is the matched
// skill's content, followed by an "Arguments: ..." line when the
// invocation carries arguments; skill content is opaque to this package
// (SPEC_FULL.md §5.9/§10).
func runSkillInvocation(env *environment, line string) error {
	name := skills.ExtractSkillName(line)
	skill, ok := env.skills.Get(name)
	if !ok {
		return fmt.Errorf("no such skill: %s", name)
	}
	args := skills.ExtractSkillArgs(line)
	prompt := skill.Content
	if args != "" {
		prompt = fmt.Sprintf("%s\n\nArguments: %s", prompt, args)
	}
	return runOneTurn(context.Background(), env, prompt)
}

// applyAutoTriggers prepends the content of the first auto-run skill that
// the trigger detector matches for input (other matching auto-run skills
// are not added), the way original_source's registered auto skills fire
// without an explicit slash invocation.
func applyAutoTriggers(env *environment, input string) string {
	if !env.autoSkills {
		return input
	}
	for _, skill := range env.triggers.Detect(input) {
		if skill.Metadata.Auto {
			return skill.Content + "\n\n" + input
		}
	}
	return input
}

func runOneTurn(ctx context.Context, env *environment, input string) error {
	input = applyAutoTriggers(env, input)
	// The assistant's reply is already printed live as it streams in via
	// env.controller.OnChunk; RunTurn's returned AssistantText (fences
	// stripped) only needs a trailing newline here to close out the line.
	outcome, err := env.controller.RunTurn(ctx, input)
	if err != nil {
		return err
	}
	fmt.Println()
	for _, exec := range outcome.ToolResults {
		status := "ok"
		if exec.Denied {
			status = "denied"
		} else if exec.ConfirmationDeclined {
			status = "declined"
		} else if !exec.Result.Success {
			status = "failed"
		}
		obslog.Turn("").Tool(exec.Call.Tool).Info(fmt.Sprintf("%s: %s", status, exec.Result.Output))
		fmt.Printf("[%s] %s -> %s\n", status, exec.Call.Tool, truncateForDisplay(exec.Result.Output))
	}
	for _, v := range outcome.Verifications {
		fmt.Printf("[verify %s] success=%v\n", v.Language, v.Success)
	}
	return nil
}

func truncateForDisplay(s string) string {
	const max = 400
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}

func saveConversation(ctx context.Context, env *environment, name string) error {
	name = history.SanitizeName(name)
	record := history.FromConversation(name, env.controller.Conversation, history.Metadata{
		Model: env.cfg.LLM.Model,
	}, time.Now().Unix())
	if err := env.history.Save(ctx, record); err != nil {
		return err
	}
	if env.searchIdx != nil {
		if err := env.searchIdx.Put(record); err != nil {
			obslog.Error("history: index put failed", err)
		}
	}
	fmt.Printf("saved as %q\n", name)
	return nil
}

func loadConversation(ctx context.Context, env *environment, name string) error {
	record, err := env.history.Load(ctx, history.SanitizeName(name))
	if err != nil {
		return err
	}
	*env.controller.Conversation = *record.ToConversation()
	fmt.Printf("loaded %q (%d messages)\n", name, env.controller.Conversation.Len())
	return nil
}

func printHistory(ctx context.Context, env *environment) error {
	metas, err := env.history.List(ctx)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no saved conversations")
		return nil
	}
	for _, m := range metas {
		fmt.Printf("  %s  (saved %s)\n", m.Name, time.Unix(m.SavedAt, 0).Format(time.RFC3339))
	}
	return nil
}
