package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
)

// MemoryStore keeps everything in-process. It mirrors GormStore semantics
// closely enough for orchestrator and ingestion tests.
type MemoryStore struct {
	mu       sync.Mutex
	threads  map[string]domain.Thread // key: userID + "\x00" + tableID
	turns    []domain.Turn
	tables   map[string]memoryTable
	order    []string
	dir      []domain.CandidateRef
	jds      map[string]domain.JobDescription
	resumes  map[string]string
	rejected []domain.RejectedCandidate

	// QueryFunc handles ExecuteQuery; tests script it because the in-memory
	// store does not interpret SQL.
	QueryFunc func(query string) (domain.QueryResult, error)
}

type memoryTable struct {
	columns []domain.Column
	rows    [][]string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]domain.Thread),
		tables:  make(map[string]memoryTable),
		jds:     make(map[string]domain.JobDescription),
		resumes: make(map[string]string),
	}
}

func threadKey(userID, tableID string) string {
	return userID + "\x00" + tableID
}

// GetOrCreateThread returns or atomically creates the (user, table) thread.
func (m *MemoryStore) GetOrCreateThread(userID, tableID string) (domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := threadKey(userID, tableID)
	if thread, ok := m.threads[key]; ok {
		return thread, nil
	}
	thread := domain.Thread{
		ID:        newThreadID(),
		UserID:    userID,
		TableID:   tableID,
		CreatedAt: time.Now().UTC(),
	}
	m.threads[key] = thread
	return thread, nil
}

// AppendTurn records one completed exchange.
func (m *MemoryStore) AppendTurn(turn domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	return nil
}

// ListRecentTurns returns the most recent turns in chronological order.
func (m *MemoryStore) ListRecentTurns(userID, tableID string, limit int) ([]domain.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		return []domain.Turn{}, nil
	}
	matched := make([]domain.Turn, 0)
	for _, turn := range m.turns {
		if turn.UserID == userID && turn.TableID == tableID {
			matched = append(matched, turn)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

// RegisterTable seeds schema and rows for a table (test helper mirroring
// what ingestion produces).
func (m *MemoryStore) RegisterTable(name string, columns []domain.Column, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tables[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tables[name] = memoryTable{columns: columns, rows: rows}
}

// IntrospectTable returns registered column metadata.
func (m *MemoryStore) IntrospectTable(tableName string) ([]domain.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[tableName]
	if !ok {
		return nil, nil
	}
	return append([]domain.Column(nil), table.columns...), nil
}

// SampleRows returns up to limit registered rows.
func (m *MemoryStore) SampleRows(tableName string, limit int) (domain.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[tableName]
	if !ok {
		return domain.QueryResult{}, nil
	}
	names := make([]string, 0, len(table.columns))
	for _, col := range table.columns {
		names = append(names, col.Name)
	}
	rows := table.rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return domain.QueryResult{Columns: names, Rows: rows}, nil
}

// ExecuteQuery delegates to the scripted QueryFunc.
func (m *MemoryStore) ExecuteQuery(query string) (domain.QueryResult, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(query)
	}
	return domain.QueryResult{}, fmt.Errorf("memory store cannot execute SQL: %q", query)
}

// ListCandidateTables returns registered table names in insertion order.
func (m *MemoryStore) ListCandidateTables() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...), nil
}

// UpsertCandidate writes a directory entry, replacing an existing one for
// the same (name, table) pair so retried ingestion jobs stay idempotent.
func (m *MemoryStore) UpsertCandidate(ref domain.CandidateRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.dir {
		if strings.EqualFold(existing.Name, ref.Name) && existing.TableName == ref.TableName {
			m.dir[i] = ref
			return nil
		}
	}
	m.dir = append(m.dir, ref)
	return nil
}

// LookupCandidate resolves a name: exact case-insensitive match first,
// ambiguity on multiple exact matches, substring match as fallback.
func (m *MemoryStore) LookupCandidate(name string) (domain.CandidateRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CandidateRef{}, ErrCandidateNotFound
	}
	lower := strings.ToLower(name)
	var exact []domain.CandidateRef
	for _, ref := range m.dir {
		if strings.ToLower(ref.Name) == lower {
			exact = append(exact, ref)
		}
	}
	if len(exact) > 1 {
		return domain.CandidateRef{}, fmt.Errorf("%w: %q", ErrAmbiguousCandidate, name)
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	var subs []domain.CandidateRef
	for _, ref := range m.dir {
		if strings.Contains(strings.ToLower(ref.Name), lower) {
			subs = append(subs, ref)
		}
	}
	if len(subs) == 0 {
		return domain.CandidateRef{}, fmt.Errorf("%w: %q", ErrCandidateNotFound, name)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return subs[0], nil
}

// SaveJobDescription stores the posting for a table.
func (m *MemoryStore) SaveJobDescription(jd domain.JobDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jds[jd.TableName] = jd
	return nil
}

// GetJobDescription returns the posting for a table.
func (m *MemoryStore) GetJobDescription(tableName string) (domain.JobDescription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jd, ok := m.jds[tableName]
	return jd, ok, nil
}

// SaveResumeText stores extracted resume text.
func (m *MemoryStore) SaveResumeText(candidateName, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes[candidateName] = text
	return nil
}

// GetResumeText returns stored resume text.
func (m *MemoryStore) GetResumeText(candidateName string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.resumes[candidateName]
	return text, ok, nil
}

// CreateCandidateTable registers an empty table with text columns.
func (m *MemoryStore) CreateCandidateTable(tableName string, columns []string) error {
	cols := make([]domain.Column, 0, len(columns))
	for _, name := range columns {
		cols = append(cols, domain.Column{Name: name, Type: "text"})
	}
	m.RegisterTable(tableName, cols, nil)
	return nil
}

// InsertCandidateRow appends one row and returns its position-based id.
func (m *MemoryStore) InsertCandidateRow(tableName string, columns []string, values []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[tableName]
	if !ok {
		return 0, fmt.Errorf("table not registered: %q", tableName)
	}
	if len(columns) != len(values) {
		return 0, fmt.Errorf("column/value count mismatch: %d vs %d", len(columns), len(values))
	}
	row := make([]string, len(table.columns))
	for i, col := range table.columns {
		for j, name := range columns {
			if name == col.Name {
				row[i] = values[j]
			}
		}
	}
	table.rows = append(table.rows, row)
	m.tables[tableName] = table
	return int64(len(table.rows)), nil
}

// AddRejectedCandidate records a background-check failure.
func (m *MemoryStore) AddRejectedCandidate(rc domain.RejectedCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, rc)
	return nil
}

// RejectedCandidates returns recorded rejections (test helper).
func (m *MemoryStore) RejectedCandidates() []domain.RejectedCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RejectedCandidate(nil), m.rejected...)
}

// Turns returns all recorded turns (test helper).
func (m *MemoryStore) Turns() []domain.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Turn(nil), m.turns...)
}
