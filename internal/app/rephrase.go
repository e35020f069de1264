package app

import (
	"context"
	"fmt"
	"strings"
)

// rephrase folds the recent thread history into the new question so the rest
// of the pipeline sees a self-contained message. With no prior turns the raw
// question is returned as-is, without a generation call.
func (a *App) rephrase(ctx context.Context, userID, tableID, question string) (string, error) {
	turns, err := a.store.ListRecentTurns(userID, tableID, a.historyLimit)
	if err != nil {
		return "", fmt.Errorf("list recent turns: %w", err)
	}
	if len(turns) == 0 {
		return question, nil
	}

	var transcript strings.Builder
	transcript.WriteString("Conversation so far:\n")
	for _, turn := range turns {
		fmt.Fprintf(&transcript, "Recruiter: %s\nAssistant: %s\n", turn.Question, turn.Response)
	}
	fmt.Fprintf(&transcript, "\nNew question: %s", question)

	rephrased, err := a.generator.GenerateText(ctx, rephraseSystemPrompt, transcript.String())
	if err != nil {
		return "", fmt.Errorf("rephrase question: %w", err)
	}
	rephrased = strings.TrimSpace(rephrased)
	if rephrased == "" {
		return question, nil
	}
	return rephrased, nil
}
