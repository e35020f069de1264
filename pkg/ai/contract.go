package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrContractViolation reports that a generator kept returning output that
// does not satisfy the declared JSON schema after one strict retry.
var ErrContractViolation = errors.New("generation output contract violation")

const strictRetryInstruction = "Your previous reply was not valid JSON of the required shape. " +
	"Reply again with ONLY the JSON value, no code fences, no explanation, no surrounding text."

// GenerateJSON runs one generation call whose output must be a JSON value of
// the given shape. Code fences are stripped before parsing. On a parse
// failure the call is retried once with a stricter instruction; a second
// failure returns an error wrapping ErrContractViolation.
func GenerateJSON(ctx context.Context, gen TextGenerator, systemPrompt, userPrompt string, out any) error {
	return GenerateCheckedJSON(ctx, gen, systemPrompt, userPrompt, out, nil)
}

// GenerateCheckedJSON is GenerateJSON with an extra shape check run after a
// successful parse. A check failure counts as a contract violation like a
// parse failure does: it spends the same single strict retry before the call
// fails with ErrContractViolation.
func GenerateCheckedJSON(ctx context.Context, gen TextGenerator, systemPrompt, userPrompt string, out any, check func() error) error {
	raw, err := gen.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := decodeJSONOutput(raw, out, check); err == nil {
		return nil
	}

	raw, err = gen.GenerateText(ctx, systemPrompt, userPrompt+"\n\n"+strictRetryInstruction)
	if err != nil {
		return fmt.Errorf("generate retry: %w", err)
	}
	if err := decodeJSONOutput(raw, out, check); err != nil {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	return nil
}

func decodeJSONOutput(raw string, out any, check func() error) error {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return fmt.Errorf("empty output")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parse output: %w", err)
	}
	if check != nil {
		if err := check(); err != nil {
			return fmt.Errorf("check output: %w", err)
		}
	}
	return nil
}

// StripCodeFences removes a surrounding markdown code fence, if present,
// including an optional language tag on the opening fence.
func StripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		first := strings.TrimSpace(text[:idx])
		// Opening fence may carry a language tag like "json" or "sql".
		if first == "" || !strings.ContainsAny(first, " \t{[\"") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
