package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/ai"
)

// generateFollowups asks for exactly 3 related questions. The shape check
// runs inside the generation contract, so a wrong-length but well-formed
// array gets the same single strict retry as malformed JSON before the call
// fails closed.
func (a *App) generateFollowups(ctx context.Context, question, answer string) ([]string, error) {
	prompt := fmt.Sprintf("Question: %s\n\nAnswer:\n%s", question, answer)
	var followups []string
	err := ai.GenerateCheckedJSON(ctx, a.generator, followupSystemPrompt, prompt, &followups, func() error {
		if len(followups) != 3 {
			return fmt.Errorf("got %d questions, want 3", len(followups))
		}
		for i, q := range followups {
			if strings.TrimSpace(q) == "" {
				return fmt.Errorf("question %d is empty", i+1)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate followups: %w", err)
	}
	return followups, nil
}
