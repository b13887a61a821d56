package verify

import "context"

// Generator re-invokes the LLM with a fix prompt and returns the next
// candidate code block extracted from its response. A turn controller
// plugs llm.Client.Generate + toolcall/code-block extraction in here.
type Generator func(ctx context.Context, fixPrompt string) (language, code string, err error)

// FixLoopOutcome records what the bounded fix loop produced.
type FixLoopOutcome struct {
	Result   Result
	Attempts int
	Fixed    bool
}

// RunFixLoop verifies code, and on failure re-invokes generate with the
// failure's fix prompt and verifies the new candidate, stopping as soon as
// a verification succeeds. MaxAttempts bounds the total number of
// verifications, the first one included, so generate runs at most
// MaxAttempts-1 times.
func (v *Verifier) RunFixLoop(ctx context.Context, language, code string, generate Generator) (FixLoopOutcome, error) {
	attempts := 0
	result, err := v.Verify(ctx, language, code)
	if err != nil {
		return FixLoopOutcome{}, err
	}
	attempts++

	for !result.Success && attempts < v.MaxAttempts {
		fixPrompt := v.CreateFixPrompt(result)
		nextLang, nextCode, genErr := generate(ctx, fixPrompt)
		if genErr != nil {
			return FixLoopOutcome{Result: result, Attempts: attempts, Fixed: false}, genErr
		}

		result, err = v.Verify(ctx, nextLang, nextCode)
		if err != nil {
			return FixLoopOutcome{}, err
		}
		attempts++
	}

	return FixLoopOutcome{Result: result, Attempts: attempts, Fixed: result.Success}, nil
}
