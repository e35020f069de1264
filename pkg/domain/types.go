package domain

import "time"

// Intent is the routing decision for one inbound question.
type Intent string

const (
	IntentSQL      Intent = "sql"
	IntentBestFit  Intent = "bestfit"
	IntentGmail    Intent = "gmail"
	IntentCalendar Intent = "calendar"
	IntentUnknown  Intent = "unknown"
)

// Thread groups all conversation turns for one (user, table) pair.
type Thread struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TableID   string    `json:"tableId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Turn is one completed question/answer exchange inside a thread.
// Turns are append-only and ordered by CreatedAt inside a thread.
type Turn struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	UserID    string    `json:"userId"`
	TableID   string    `json:"tableId"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Followups []string  `json:"followups,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Column is one column of an introspected candidate table, in physical order.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the outcome of executing one SQL statement.
type QueryResult struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// CandidateRef points at one candidate row via the ingestion-time directory.
type CandidateRef struct {
	Name      string `json:"name"`
	TableName string `json:"tableName"`
	RowID     int64  `json:"rowId"`
	Email     string `json:"email,omitempty"`
}

// JobDescription is the stored posting a candidate table was created for.
type JobDescription struct {
	TableName string    `json:"tableName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// EmailPayload is extracted from a gmail-intent question.
type EmailPayload struct {
	CandidateName string `json:"candidate_name"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}

// CalendarPayload is extracted from a calendar-intent question.
type CalendarPayload struct {
	CandidateName string `json:"candidate_name"`
	DateTime      string `json:"datetime"`
	Title         string `json:"title"`
}

// HighlightPayload is extracted from a bestfit-intent question.
type HighlightPayload struct {
	CandidateName string `json:"candidate_name"`
}

// Reply is the terminal result of one orchestrated exchange.
// Exactly one shape is populated: Answer+Followups for the sql path,
// Highlights for bestfit, Canned for everything else.
type Reply struct {
	Intent     Intent   `json:"intent"`
	Answer     string   `json:"answer,omitempty"`
	Followups  []string `json:"followups,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
	Canned     string   `json:"response,omitempty"`
}

// RejectedCandidate records an ingestion-time background-check failure.
type RejectedCandidate struct {
	Name      string    `json:"name"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}
