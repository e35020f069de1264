package app

import (
	"context"
	"strings"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
)

// classifyIntent maps a question to one of the fixed intents. It never
// fails: a generation error or an out-of-vocabulary token both land on
// IntentUnknown.
func (a *App) classifyIntent(ctx context.Context, question string) domain.Intent {
	raw, err := a.generator.GenerateText(ctx, intentSystemPrompt, question)
	if err != nil {
		a.logger.Warn("intent classification failed", "error", err)
		return domain.IntentUnknown
	}
	token := strings.ToLower(strings.TrimSpace(raw))
	switch domain.Intent(token) {
	case domain.IntentSQL:
		return domain.IntentSQL
	case domain.IntentBestFit:
		return domain.IntentBestFit
	case domain.IntentGmail:
		return domain.IntentGmail
	case domain.IntentCalendar:
		return domain.IntentCalendar
	default:
		return domain.IntentUnknown
	}
}
