package store

import (
	"errors"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
)

var (
	// ErrCandidateNotFound indicates no directory entry matched a name.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrAmbiguousCandidate indicates multiple exact directory matches.
	ErrAmbiguousCandidate = errors.New("candidate name is ambiguous")
)

// Store defines persistence operations for conversation threads, candidate
// tables, and the ingestion-time candidate directory.
type Store interface {
	// threads and turns
	GetOrCreateThread(userID, tableID string) (domain.Thread, error)
	AppendTurn(turn domain.Turn) error
	// ListRecentTurns returns at most limit turns for (user, table) in
	// chronological order, keeping the most recent ones.
	ListRecentTurns(userID, tableID string, limit int) ([]domain.Turn, error)

	// schema introspection and query execution
	IntrospectTable(tableName string) ([]domain.Column, error)
	SampleRows(tableName string, limit int) (domain.QueryResult, error)
	ExecuteQuery(query string) (domain.QueryResult, error)
	ListCandidateTables() ([]string, error)

	// candidate directory
	UpsertCandidate(ref domain.CandidateRef) error
	LookupCandidate(name string) (domain.CandidateRef, error)

	// job descriptions and resumes
	SaveJobDescription(jd domain.JobDescription) error
	GetJobDescription(tableName string) (domain.JobDescription, bool, error)
	SaveResumeText(candidateName, text string) error
	GetResumeText(candidateName string) (string, bool, error)

	// ingestion
	CreateCandidateTable(tableName string, columns []string) error
	InsertCandidateRow(tableName string, columns []string, values []string) (int64, error)
	AddRejectedCandidate(rc domain.RejectedCandidate) error
}
