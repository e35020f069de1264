// Package executor performs the side effects behind action intents:
// sending mail and creating calendar events through Google's REST APIs.
package executor

import (
	"context"
	"time"
)

// Executor runs external actions. Implementations make a single attempt
// per call; retrying is the caller's decision.
type Executor interface {
	SendEmail(ctx context.Context, recipient, subject, body string) error
	CreateEvent(ctx context.Context, attendees []string, title string, start time.Time) error
}
