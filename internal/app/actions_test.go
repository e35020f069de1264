package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/store"
)

func seedJohn(t *testing.T, st *store.MemoryStore, email string) {
	t.Helper()
	if err := st.UpsertCandidate(domain.CandidateRef{
		Name: "John Doe", TableName: "engineers", RowID: 1, Email: email,
	}); err != nil {
		t.Fatalf("seed candidate: %v", err)
	}
}

func TestEmailHandlerNeverRaises(t *testing.T) {
	cases := []struct {
		name       string
		setup      func(t *testing.T, st *store.MemoryStore, gen *fakeGenerator, exec *fakeExecutor)
		wantCanned string
	}{
		{
			name: "candidate not found",
			setup: func(t *testing.T, st *store.MemoryStore, gen *fakeGenerator, exec *fakeExecutor) {
				gen.script(emailPayloadSystemPrompt, `{"candidate_name":"Nobody","subject":"s","body":"b"}`)
			},
			wantCanned: candidateEmailNotFoundResponse,
		},
		{
			name: "email field absent",
			setup: func(t *testing.T, st *store.MemoryStore, gen *fakeGenerator, exec *fakeExecutor) {
				seedJohn(t, st, "")
				gen.script(emailPayloadSystemPrompt, `{"candidate_name":"John Doe","subject":"s","body":"b"}`)
			},
			wantCanned: candidateEmailNotFoundResponse,
		},
		{
			name: "executor fails",
			setup: func(t *testing.T, st *store.MemoryStore, gen *fakeGenerator, exec *fakeExecutor) {
				seedJohn(t, st, "john@x.com")
				gen.script(emailPayloadSystemPrompt, `{"candidate_name":"John Doe","subject":"s","body":"b"}`)
				exec.sendErr = errors.New("smtp down")
			},
			wantCanned: "could not send the email to john@x.com",
		},
		{
			name: "payload parse fails after retry",
			setup: func(t *testing.T, st *store.MemoryStore, gen *fakeGenerator, exec *fakeExecutor) {
				gen.script(emailPayloadSystemPrompt, "not json", "still not json")
			},
			wantCanned: "could not work out who to email from that request",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			gen := newFakeGenerator(t)
			exec := &fakeExecutor{}
			gen.script(intentSystemPrompt, "gmail")
			tc.setup(t, st, gen, exec)

			app := newTestApp(t, st, gen, exec)
			reply, err := app.Answer(context.Background(), "u1", "engineers", "email John Doe")
			if err != nil {
				t.Fatalf("handler raised: %v", err)
			}
			if reply.Canned != tc.wantCanned {
				t.Fatalf("canned = %q, want %q", reply.Canned, tc.wantCanned)
			}
		})
	}
}

func TestCalendarHandlerCreatesEvent(t *testing.T) {
	st := store.NewMemoryStore()
	seedJohn(t, st, "john@x.com")
	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "calendar")
	gen.script(calendarPayloadSystemPrompt,
		`{"candidate_name":"John Doe","datetime":"2026-03-10T14:00:00Z","title":"Screening call"}`)
	exec := &fakeExecutor{}

	app := newTestApp(t, st, gen, exec)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "schedule a call with John Doe")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(reply.Canned, "john@x.com") {
		t.Fatalf("canned missing attendee: %q", reply.Canned)
	}
	if len(exec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(exec.events))
	}
	event := exec.events[0]
	if event.title != "Screening call" {
		t.Fatalf("unexpected title: %q", event.title)
	}
	want := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	if !event.start.Equal(want) {
		t.Fatalf("unexpected start: %v", event.start)
	}
	if len(event.attendees) != 1 || event.attendees[0] != "john@x.com" {
		t.Fatalf("unexpected attendees: %v", event.attendees)
	}
}

func TestCalendarHandlerBadTimeDegrades(t *testing.T) {
	st := store.NewMemoryStore()
	seedJohn(t, st, "john@x.com")
	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "calendar")
	gen.script(calendarPayloadSystemPrompt,
		`{"candidate_name":"John Doe","datetime":"next tuesday-ish","title":"Call"}`)

	app := newTestApp(t, st, gen, &fakeExecutor{})
	reply, err := app.Answer(context.Background(), "u1", "engineers", "schedule a call with John Doe")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(reply.Canned, "next tuesday-ish") {
		t.Fatalf("unexpected canned reply: %q", reply.Canned)
	}
}

func TestParseEventTimeLayouts(t *testing.T) {
	for _, value := range []string{
		"2026-03-10T14:00:00Z",
		"2026-03-10T14:00",
		"2026-03-10 14:00",
	} {
		if _, err := parseEventTime(value); err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
	}
	if _, err := parseEventTime("tomorrow"); err == nil {
		t.Fatalf("expected error for free-text time")
	}
}
