package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
// All providers (Gemini, OpenAI-compatible) implement this interface; the
// orchestrator depends only on it.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
