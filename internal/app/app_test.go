package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/ai"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/store"
)

// fakeGenerator scripts responses per system prompt: each call pops the next
// response from that prompt's queue. User prompts are recorded for
// assertions.
type fakeGenerator struct {
	t         *testing.T
	responses map[string][]string
	errs      map[string]error
	prompts   map[string][]string
}

func newFakeGenerator(t *testing.T) *fakeGenerator {
	return &fakeGenerator{
		t:         t,
		responses: make(map[string][]string),
		errs:      make(map[string]error),
		prompts:   make(map[string][]string),
	}
}

func (g *fakeGenerator) script(systemPrompt string, responses ...string) {
	g.responses[systemPrompt] = append(g.responses[systemPrompt], responses...)
}

func (g *fakeGenerator) GenerateText(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	g.prompts[systemPrompt] = append(g.prompts[systemPrompt], userPrompt)
	if err, ok := g.errs[systemPrompt]; ok {
		return "", err
	}
	queue := g.responses[systemPrompt]
	if len(queue) == 0 {
		g.t.Errorf("unexpected generation call, system prompt: %.60q", systemPrompt)
		return "", errors.New("no scripted response")
	}
	g.responses[systemPrompt] = queue[1:]
	return queue[0], nil
}

type sentEmail struct {
	recipient, subject, body string
}

type createdEvent struct {
	attendees []string
	title     string
	start     time.Time
}

type fakeExecutor struct {
	sendErr  error
	eventErr error
	emails   []sentEmail
	events   []createdEvent
}

func (e *fakeExecutor) SendEmail(_ context.Context, recipient, subject, body string) error {
	if e.sendErr != nil {
		return e.sendErr
	}
	e.emails = append(e.emails, sentEmail{recipient, subject, body})
	return nil
}

func (e *fakeExecutor) CreateEvent(_ context.Context, attendees []string, title string, start time.Time) error {
	if e.eventErr != nil {
		return e.eventErr
	}
	e.events = append(e.events, createdEvent{attendees, title, start})
	return nil
}

func newTestApp(t *testing.T, st store.Store, gen *fakeGenerator, exec *fakeExecutor) *App {
	t.Helper()
	cfg := Config{Store: st, Generator: gen}
	if exec != nil {
		cfg.Executor = exec
	}
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func registerEngineers(st *store.MemoryStore) {
	st.RegisterTable("engineers", []domain.Column{
		{Name: "name", Type: "text"},
		{Name: "email", Type: "text"},
		{Name: "skills", Type: "text"},
		{Name: "experience", Type: "integer"},
	}, [][]string{
		{"Alice", "alice@x.com", "Go, Python", "7"},
		{"Bob", "bob@x.com", "Java", "3"},
	})
}

const followupsJSON = `["Who has the most experience?","Which skills are most common?","How many candidates know Go?"]`

func TestSQLExchangeWithEmptyHistory(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)
	var executed []string
	st.QueryFunc = func(query string) (domain.QueryResult, error) {
		executed = append(executed, query)
		return domain.QueryResult{Columns: []string{"name"}, Rows: [][]string{{"Alice"}}}, nil
	}

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "sql")
	gen.script(sqlAgentSystemPrompt,
		`{"action":"sql","query":"SELECT name FROM engineers WHERE experience > 5"}`,
		`{"action":"final","answer":"Result\nAlice qualifies.\nData overview\nOne row.\nConclusion\nAlice."}`)
	gen.script(followupSystemPrompt, followupsJSON)

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "List candidates with experience over 5 years")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply.Intent != domain.IntentSQL {
		t.Fatalf("unexpected intent: %s", reply.Intent)
	}
	if !strings.Contains(reply.Answer, "Alice") {
		t.Fatalf("unexpected answer: %q", reply.Answer)
	}
	if len(reply.Followups) != 3 {
		t.Fatalf("expected 3 followups, got %d", len(reply.Followups))
	}
	if len(executed) != 1 || !strings.Contains(executed[0], "experience > 5") {
		t.Fatalf("unexpected executed queries: %v", executed)
	}
	// No prior turns, so the rephraser must not have called the generator.
	if len(gen.prompts[rephraseSystemPrompt]) != 0 {
		t.Fatalf("rephrase call on empty history")
	}

	turns := st.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(turns))
	}
	if turns[0].ThreadID == "" {
		t.Fatalf("turn missing thread id")
	}
	if turns[0].Question != "List candidates with experience over 5 years" {
		t.Fatalf("unexpected persisted question: %q", turns[0].Question)
	}
}

func TestRephraseFoldsHistoryIntoQuestion(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)
	st.QueryFunc = func(string) (domain.QueryResult, error) {
		return domain.QueryResult{Columns: []string{"name"}, Rows: [][]string{{"Alice"}}}, nil
	}
	if err := st.AppendTurn(domain.Turn{
		ID: "t1", ThreadID: "th1", UserID: "u1", TableID: "engineers",
		Question: "Who are the AI candidates?", Response: "Alice, Bob, Carol.",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed turn: %v", err)
	}

	gen := newFakeGenerator(t)
	gen.script(rephraseSystemPrompt, "Which of Alice, Bob and Carol know Python?")
	gen.script(intentSystemPrompt, "sql")
	gen.script(sqlAgentSystemPrompt, `{"action":"final","answer":"Result\nAlice.\nData overview\n-\nConclusion\n-"}`)
	gen.script(followupSystemPrompt, followupsJSON)

	app := newTestApp(t, st, gen, nil)
	if _, err := app.Answer(context.Background(), "u1", "engineers", "Which of those know Python?"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	transcripts := gen.prompts[rephraseSystemPrompt]
	if len(transcripts) != 1 || !strings.Contains(transcripts[0], "Alice, Bob, Carol.") {
		t.Fatalf("rephrase prompt missing history: %v", transcripts)
	}
	agentPrompts := gen.prompts[sqlAgentSystemPrompt]
	if len(agentPrompts) == 0 || !strings.Contains(agentPrompts[0], "Which of Alice, Bob and Carol know Python?") {
		t.Fatalf("agent did not receive the rephrased question: %v", agentPrompts)
	}
	turns := st.Turns()
	if got := turns[len(turns)-1].Question; got != "Which of Alice, Bob and Carol know Python?" {
		t.Fatalf("persisted question not rephrased: %q", got)
	}
}

func TestSequentialExchangesShareOneThread(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)
	st.QueryFunc = func(string) (domain.QueryResult, error) {
		return domain.QueryResult{Columns: []string{"n"}, Rows: nil}, nil
	}

	gen := newFakeGenerator(t)
	app := newTestApp(t, st, gen, nil)
	for i := 0; i < 3; i++ {
		if i > 0 {
			gen.script(rephraseSystemPrompt, fmt.Sprintf("standalone question %d", i))
		}
		gen.script(intentSystemPrompt, "sql")
		gen.script(sqlAgentSystemPrompt, `{"action":"final","answer":"Result\nok\nData overview\n-\nConclusion\n-"}`)
		gen.script(followupSystemPrompt, followupsJSON)
		if _, err := app.Answer(context.Background(), "u1", "engineers", fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	turns := st.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for _, turn := range turns[1:] {
		if turn.ThreadID != turns[0].ThreadID {
			t.Fatalf("turns split across threads: %q vs %q", turn.ThreadID, turns[0].ThreadID)
		}
	}
}

func TestEmailActionSuccess(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)
	if err := st.UpsertCandidate(domain.CandidateRef{
		Name: "John Doe", TableName: "engineers", RowID: 1, Email: "john@x.com",
	}); err != nil {
		t.Fatalf("seed candidate: %v", err)
	}

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "gmail")
	gen.script(emailPayloadSystemPrompt, `{"candidate_name":"John Doe","subject":"Hello","body":"hi"}`)
	exec := &fakeExecutor{}

	app := newTestApp(t, st, gen, exec)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "send an email to John Doe saying hi")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(reply.Canned, "john@x.com") {
		t.Fatalf("success string missing recipient: %q", reply.Canned)
	}
	if len(exec.emails) != 1 || exec.emails[0].recipient != "john@x.com" {
		t.Fatalf("unexpected sent emails: %+v", exec.emails)
	}
	if got := len(st.Turns()); got != 0 {
		t.Fatalf("action path persisted %d turns", got)
	}
}

func TestBestFitUnknownCandidate(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "bestfit")
	gen.script(highlightPayloadSystemPrompt, `{"candidate_name":"Jane"}`)

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "why is Jane a good fit")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply.Canned != "email of the candidate not found" {
		t.Fatalf("unexpected canned reply: %q", reply.Canned)
	}
	if got := len(st.Turns()); got != 0 {
		t.Fatalf("failed lookup persisted %d turns", got)
	}
}

func TestBestFitReturnsVerbatimHighlights(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)
	if err := st.UpsertCandidate(domain.CandidateRef{
		Name: "Alice", TableName: "engineers", RowID: 1, Email: "alice@x.com",
	}); err != nil {
		t.Fatalf("seed candidate: %v", err)
	}
	if err := st.SaveResumeText("Alice", "Built Go services at scale. Led a team of five."); err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	if err := st.SaveJobDescription(domain.JobDescription{TableName: "engineers", Content: "Senior Go engineer"}); err != nil {
		t.Fatalf("seed jd: %v", err)
	}

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "bestfit")
	gen.script(highlightPayloadSystemPrompt, `{"candidate_name":"Alice"}`)
	gen.script(highlightSystemPrompt, `["Built Go services at scale.","invented the internet"]`)

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "why is Alice a good fit")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	// Non-verbatim passages are dropped.
	if len(reply.Highlights) != 1 || reply.Highlights[0] != "Built Go services at scale." {
		t.Fatalf("unexpected highlights: %v", reply.Highlights)
	}
}

func TestFallbackAnswerAfterAgentFailure(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)
	st.QueryFunc = func(query string) (domain.QueryResult, error) {
		if strings.Contains(query, "broken") {
			return domain.QueryResult{}, errors.New("syntax error")
		}
		return domain.QueryResult{Columns: []string{"name"}, Rows: [][]string{{"Alice"}, {"Bob"}}}, nil
	}

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "sql")
	gen.script(sqlAgentSystemPrompt, `{"action":"sql","query":"SELECT broken FROM engineers"}`)
	gen.script(sqlFallbackSystemPrompt, `{"query":"SELECT name FROM engineers"}`)
	gen.script(sqlExplainSystemPrompt, "Two candidates are listed: Alice and Bob.")
	gen.script(followupSystemPrompt, followupsJSON)

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "list everyone")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	for _, want := range []string{
		"Two candidates are listed",
		"SQL: SELECT name FROM engineers",
		"Rows: 2",
	} {
		if !strings.Contains(reply.Answer, want) {
			t.Fatalf("fallback answer missing %q:\n%s", want, reply.Answer)
		}
	}
}

func TestBothSQLPathsFailingReturnsCombinedError(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)
	st.QueryFunc = func(string) (domain.QueryResult, error) {
		return domain.QueryResult{}, errors.New("connection refused")
	}

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "sql")
	gen.script(sqlAgentSystemPrompt, `{"action":"sql","query":"SELECT name FROM engineers"}`)
	gen.script(sqlFallbackSystemPrompt, `{"query":"SELECT name FROM engineers"}`)

	app := newTestApp(t, st, gen, nil)
	_, err := app.Answer(context.Background(), "u1", "engineers", "list everyone")
	if err == nil {
		t.Fatalf("expected combined failure")
	}
	if !strings.Contains(err.Error(), "fallback failed") {
		t.Fatalf("error does not reference both paths: %v", err)
	}
	if got := len(st.Turns()); got != 0 {
		t.Fatalf("failed exchange persisted %d turns", got)
	}
}

func TestUnknownIntentTokenNeverErrors(t *testing.T) {
	st := store.NewMemoryStore()
	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "buy a llama")

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "????")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply.Intent != domain.IntentUnknown || reply.Canned != unknownResponse {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestClassifierErrorDegradesToUnknown(t *testing.T) {
	st := store.NewMemoryStore()
	gen := newFakeGenerator(t)
	gen.errs[intentSystemPrompt] = errors.New("upstream down")

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "hello")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply.Intent != domain.IntentUnknown {
		t.Fatalf("unexpected intent: %s", reply.Intent)
	}
}

func TestFollowupViolationFailsClosed(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "sql")
	gen.script(sqlAgentSystemPrompt, `{"action":"final","answer":"Result\nok\nData overview\n-\nConclusion\n-"}`)
	// Valid JSON of the wrong shape on both the first try and the strict
	// retry: two questions instead of three.
	gen.script(followupSystemPrompt, `["one","two"]`, `["one","two"]`)

	app := newTestApp(t, st, gen, nil)
	_, err := app.Answer(context.Background(), "u1", "engineers", "list everyone")
	if !errors.Is(err, ai.ErrContractViolation) {
		t.Fatalf("expected contract violation, got %v", err)
	}
	if got := len(st.Turns()); got != 0 {
		t.Fatalf("failed exchange persisted %d turns", got)
	}
}

func TestFollowupWrongShapeRecoversOnRetry(t *testing.T) {
	st := store.NewMemoryStore()
	registerEngineers(st)

	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "sql")
	gen.script(sqlAgentSystemPrompt, `{"action":"final","answer":"Result\nok\nData overview\n-\nConclusion\n-"}`)
	gen.script(followupSystemPrompt, `["one","two"]`, followupsJSON)

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "engineers", "list everyone")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(reply.Followups) != 3 {
		t.Fatalf("expected 3 followups after retry, got %v", reply.Followups)
	}
	if got := len(st.Turns()); got != 1 {
		t.Fatalf("expected exchange persisted once, got %d turns", got)
	}
}

func TestMissingTableIsTerminalNotError(t *testing.T) {
	st := store.NewMemoryStore()
	gen := newFakeGenerator(t)
	gen.script(intentSystemPrompt, "sql")

	app := newTestApp(t, st, gen, nil)
	reply, err := app.Answer(context.Background(), "u1", "no_such_table", "list everyone")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply.Canned != tableNotFoundResponse {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if got := len(st.Turns()); got != 0 {
		t.Fatalf("missing table persisted %d turns", got)
	}
}
