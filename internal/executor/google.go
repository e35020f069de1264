package executor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGmailBaseURL    = "https://gmail.googleapis.com"
	defaultCalendarBaseURL = "https://www.googleapis.com"
	defaultEventDuration   = 30 * time.Minute
	defaultTimeout         = 30 * time.Second
)

// TokenSource returns a bearer token for Google API calls. It is called
// once per request so short-lived OAuth tokens can be refreshed outside
// this package.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken adapts a fixed access token into a TokenSource.
func StaticToken(token string) TokenSource {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

// GoogleOptions configures a GoogleExecutor.
type GoogleOptions struct {
	Tokens          TokenSource
	Sender          string
	GmailBaseURL    string
	CalendarBaseURL string
	EventDuration   time.Duration
	HTTPClient      *http.Client
}

// GoogleExecutor sends mail through the Gmail API and creates events
// through the Calendar API, one HTTP call per action.
type GoogleExecutor struct {
	tokens          TokenSource
	sender          string
	gmailBaseURL    string
	calendarBaseURL string
	eventDuration   time.Duration
	httpClient      *http.Client
}

// NewGoogleExecutor validates opts and returns a ready executor.
func NewGoogleExecutor(opts GoogleOptions) (*GoogleExecutor, error) {
	if opts.Tokens == nil {
		return nil, errors.New("google executor: token source is required")
	}
	sender := strings.TrimSpace(opts.Sender)
	if sender == "" {
		return nil, errors.New("google executor: sender address is required")
	}
	gmailBase := strings.TrimRight(opts.GmailBaseURL, "/")
	if gmailBase == "" {
		gmailBase = defaultGmailBaseURL
	}
	calendarBase := strings.TrimRight(opts.CalendarBaseURL, "/")
	if calendarBase == "" {
		calendarBase = defaultCalendarBaseURL
	}
	duration := opts.EventDuration
	if duration <= 0 {
		duration = defaultEventDuration
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &GoogleExecutor{
		tokens:          opts.Tokens,
		sender:          sender,
		gmailBaseURL:    gmailBase,
		calendarBaseURL: calendarBase,
		eventDuration:   duration,
		httpClient:      client,
	}, nil
}

// SendEmail submits one message through the Gmail send endpoint.
func (g *GoogleExecutor) SendEmail(ctx context.Context, recipient, subject, body string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return errors.New("send email: recipient is required")
	}
	raw := g.encodeMessage(recipient, subject, body)
	payload := map[string]string{"raw": raw}
	url := g.gmailBaseURL + "/gmail/v1/users/me/messages/send"
	if err := g.postJSON(ctx, url, payload); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// CreateEvent creates one event on the sender's primary calendar.
func (g *GoogleExecutor) CreateEvent(ctx context.Context, attendees []string, title string, start time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("create event: title is required")
	}
	if start.IsZero() {
		return errors.New("create event: start time is required")
	}
	type eventTime struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	}
	type eventAttendee struct {
		Email string `json:"email"`
	}
	event := struct {
		Summary   string          `json:"summary"`
		Start     eventTime       `json:"start"`
		End       eventTime       `json:"end"`
		Attendees []eventAttendee `json:"attendees,omitempty"`
	}{
		Summary: title,
		Start:   eventTime{DateTime: start.Format(time.RFC3339), TimeZone: "UTC"},
		End:     eventTime{DateTime: start.Add(g.eventDuration).Format(time.RFC3339), TimeZone: "UTC"},
	}
	for _, attendee := range attendees {
		attendee = strings.TrimSpace(attendee)
		if attendee == "" {
			continue
		}
		event.Attendees = append(event.Attendees, eventAttendee{Email: attendee})
	}
	url := g.calendarBaseURL + "/calendar/v3/calendars/primary/events"
	if err := g.postJSON(ctx, url, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (g *GoogleExecutor) encodeMessage(recipient, subject, body string) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", g.sender)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return base64.URLEncoding.EncodeToString([]byte(msg.String()))
}

func (g *GoogleExecutor) postJSON(ctx context.Context, url string, payload any) error {
	token, err := g.tokens(ctx)
	if err != nil {
		return fmt.Errorf("fetch token: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call google api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("google api status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
