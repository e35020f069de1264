package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/ai"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
)

// Action handlers are fail-quiet: every failure inside them degrades to a
// user-facing canned string and nothing propagates past the boundary.

const candidateEmailNotFoundResponse = "email of the candidate not found"

func (a *App) handleEmail(ctx context.Context, question string) domain.Reply {
	reply := domain.Reply{Intent: domain.IntentGmail}

	var payload domain.EmailPayload
	if err := ai.GenerateJSON(ctx, a.generator, emailPayloadSystemPrompt, question, &payload); err != nil {
		a.logger.Warn("parse email payload", "error", err)
		reply.Canned = "could not work out who to email from that request"
		return reply
	}
	ref, err := a.store.LookupCandidate(payload.CandidateName)
	if err != nil || ref.Email == "" {
		if err != nil {
			a.logger.Warn("lookup candidate for email", "candidate", payload.CandidateName, "error", err)
		}
		reply.Canned = candidateEmailNotFoundResponse
		return reply
	}
	if a.executor == nil {
		reply.Canned = "email sending is not configured"
		return reply
	}
	if err := a.executor.SendEmail(ctx, ref.Email, payload.Subject, payload.Body); err != nil {
		a.logger.Warn("send email", "recipient", ref.Email, "error", err)
		reply.Canned = fmt.Sprintf("could not send the email to %s", ref.Email)
		return reply
	}
	reply.Canned = fmt.Sprintf("email sent to %s", ref.Email)
	return reply
}

func (a *App) handleCalendar(ctx context.Context, question string) domain.Reply {
	reply := domain.Reply{Intent: domain.IntentCalendar}

	var payload domain.CalendarPayload
	if err := ai.GenerateJSON(ctx, a.generator, calendarPayloadSystemPrompt, question, &payload); err != nil {
		a.logger.Warn("parse calendar payload", "error", err)
		reply.Canned = "could not work out the meeting details from that request"
		return reply
	}
	ref, err := a.store.LookupCandidate(payload.CandidateName)
	if err != nil || ref.Email == "" {
		if err != nil {
			a.logger.Warn("lookup candidate for event", "candidate", payload.CandidateName, "error", err)
		}
		reply.Canned = candidateEmailNotFoundResponse
		return reply
	}
	start, err := parseEventTime(payload.DateTime)
	if err != nil {
		a.logger.Warn("parse event time", "datetime", payload.DateTime, "error", err)
		reply.Canned = fmt.Sprintf("could not understand the meeting time %q", payload.DateTime)
		return reply
	}
	if a.executor == nil {
		reply.Canned = "calendar scheduling is not configured"
		return reply
	}
	if err := a.executor.CreateEvent(ctx, []string{ref.Email}, payload.Title, start); err != nil {
		a.logger.Warn("create event", "attendee", ref.Email, "error", err)
		reply.Canned = fmt.Sprintf("could not schedule %q with %s", payload.Title, ref.Email)
		return reply
	}
	reply.Canned = fmt.Sprintf("event %q scheduled; invite sent to %s", payload.Title, ref.Email)
	return reply
}

func (a *App) handleBestFit(ctx context.Context, tableID, question string) domain.Reply {
	reply := domain.Reply{Intent: domain.IntentBestFit}

	var payload domain.HighlightPayload
	if err := ai.GenerateJSON(ctx, a.generator, highlightPayloadSystemPrompt, question, &payload); err != nil {
		a.logger.Warn("parse highlight payload", "error", err)
		reply.Canned = "could not work out which candidate you mean"
		return reply
	}
	ref, err := a.store.LookupCandidate(payload.CandidateName)
	if err != nil {
		a.logger.Warn("lookup candidate for highlights", "candidate", payload.CandidateName, "error", err)
		reply.Canned = candidateEmailNotFoundResponse
		return reply
	}
	resume, ok, err := a.store.GetResumeText(ref.Name)
	if err != nil || !ok {
		if err != nil {
			a.logger.Warn("fetch resume text", "candidate", ref.Name, "error", err)
		}
		reply.Canned = fmt.Sprintf("no resume stored for %s", ref.Name)
		return reply
	}
	jd, ok, err := a.store.GetJobDescription(tableID)
	if err != nil || !ok {
		if err != nil {
			a.logger.Warn("fetch job description", "table_id", tableID, "error", err)
		}
		reply.Canned = "no job description stored for this table"
		return reply
	}

	prompt := fmt.Sprintf("Job description:\n%s\n\nResume:\n%s", jd.Content, resume)
	var highlights []string
	if err := ai.GenerateJSON(ctx, a.generator, highlightSystemPrompt, prompt, &highlights); err != nil {
		a.logger.Warn("generate highlights", "candidate", ref.Name, "error", err)
		reply.Canned = fmt.Sprintf("could not extract resume highlights for %s", ref.Name)
		return reply
	}
	// Keep only passages that are verbatim substrings of the resume.
	kept := highlights[:0]
	for _, h := range highlights {
		h = strings.TrimSpace(h)
		if h != "" && strings.Contains(resume, h) {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		reply.Canned = fmt.Sprintf("no resume passages matching the job were found for %s", ref.Name)
		return reply
	}
	reply.Highlights = kept
	return reply
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}
