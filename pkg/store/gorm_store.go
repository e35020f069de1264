package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
)

// internalTables are the orchestrator's own relations, hidden from candidate
// table enumeration.
var internalTables = map[string]struct{}{
	"thread_models":             {},
	"turn_models":               {},
	"candidate_dir_models":      {},
	"job_description_models":    {},
	"resume_models":             {},
	"rejected_candidate_models": {},
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&ThreadModel{},
		&TurnModel{},
		&CandidateDirModel{},
		&JobDescriptionModel{},
		&ResumeModel{},
		&RejectedCandidateModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// GetOrCreateThread returns the thread for (user, table), creating it when
// absent. The unique index on (user_id, table_id) plus ON CONFLICT DO
// NOTHING makes concurrent first turns converge on one thread.
func (s *GormStore) GetOrCreateThread(userID, tableID string) (domain.Thread, error) {
	model := ThreadModel{
		ID:        newThreadID(),
		UserID:    userID,
		TableID:   tableID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "table_id"}},
		DoNothing: true,
	}).Create(&model).Error; err != nil {
		return domain.Thread{}, fmt.Errorf("create thread: %w", err)
	}
	var found ThreadModel
	if err := s.db.Where("user_id = ? AND table_id = ?", userID, tableID).First(&found).Error; err != nil {
		return domain.Thread{}, fmt.Errorf("load thread: %w", err)
	}
	return domain.Thread{
		ID:        found.ID,
		UserID:    found.UserID,
		TableID:   found.TableID,
		CreatedAt: found.CreatedAt,
	}, nil
}

// AppendTurn records one completed exchange.
func (s *GormStore) AppendTurn(turn domain.Turn) error {
	followups, _ := json.Marshal(turn.Followups)
	model := TurnModel{
		ID:        turn.ID,
		ThreadID:  turn.ThreadID,
		UserID:    turn.UserID,
		TableID:   turn.TableID,
		Question:  turn.Question,
		Response:  turn.Response,
		Followups: followups,
		CreatedAt: turn.CreatedAt,
	}
	return s.db.Create(&model).Error
}

// ListRecentTurns returns the most recent turns in chronological order.
func (s *GormStore) ListRecentTurns(userID, tableID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return []domain.Turn{}, nil
	}
	var models []TurnModel
	if err := s.db.Where("user_id = ? AND table_id = ?", userID, tableID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	turns := make([]domain.Turn, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		turns = append(turns, turnFromModel(models[i]))
	}
	return turns, nil
}

// IntrospectTable returns column metadata in physical column order.
func (s *GormStore) IntrospectTable(tableName string) ([]domain.Column, error) {
	rows, err := s.db.Raw(
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = ?
		 ORDER BY ordinal_position`, tableName).Rows()
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", tableName, err)
	}
	defer rows.Close()
	var columns []domain.Column
	for rows.Next() {
		var col domain.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// SampleRows fetches up to limit rows from the table.
func (s *GormStore) SampleRows(tableName string, limit int) (domain.QueryResult, error) {
	if err := validateIdentifier(tableName); err != nil {
		return domain.QueryResult{}, err
	}
	if limit <= 0 {
		limit = 3
	}
	return s.ExecuteQuery(fmt.Sprintf(`SELECT * FROM %q LIMIT %d`, tableName, limit))
}

// ExecuteQuery runs one SQL statement and returns columns plus stringified rows.
func (s *GormStore) ExecuteQuery(query string) (domain.QueryResult, error) {
	rows, err := s.db.Raw(query).Rows()
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return domain.QueryResult{}, err
	}
	result := domain.QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		for i := range values {
			values[i] = new(any)
		}
		if err := rows.Scan(values...); err != nil {
			return domain.QueryResult{}, err
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = stringifyValue(*(v.(*any)))
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

// ListCandidateTables enumerates candidate tables, excluding internal relations.
func (s *GormStore) ListCandidateTables() ([]string, error) {
	rows, err := s.db.Raw(
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`).Rows()
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if _, internal := internalTables[name]; internal {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// UpsertCandidate writes a directory entry mapping name to (table, row).
// The entry is keyed on (name, table): re-running an ingestion job for a
// table replaces entries instead of duplicating them.
func (s *GormStore) UpsertCandidate(ref domain.CandidateRef) error {
	model := CandidateDirModel{
		Name:      ref.Name,
		TableName: ref.TableName,
		RowID:     ref.RowID,
		Email:     ref.Email,
		CreatedAt: time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "table_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"row_id", "email"}),
	}).Create(&model).Error
}

// LookupCandidate resolves a free-text name against the directory.
// A case-insensitive exact match wins; multiple exact matches are an error;
// otherwise the first substring match in name order is returned.
func (s *GormStore) LookupCandidate(name string) (domain.CandidateRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CandidateRef{}, ErrCandidateNotFound
	}
	var exact []CandidateDirModel
	if err := s.db.Where("LOWER(name) = LOWER(?)", name).Find(&exact).Error; err != nil {
		return domain.CandidateRef{}, err
	}
	if len(exact) > 1 {
		return domain.CandidateRef{}, fmt.Errorf("%w: %q", ErrAmbiguousCandidate, name)
	}
	if len(exact) == 1 {
		return refFromModel(exact[0]), nil
	}
	var sub CandidateDirModel
	err := s.db.Where("name ILIKE ?", "%"+name+"%").Order("name ASC").First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.CandidateRef{}, fmt.Errorf("%w: %q", ErrCandidateNotFound, name)
		}
		return domain.CandidateRef{}, err
	}
	return refFromModel(sub), nil
}

// SaveJobDescription stores or replaces the posting for a table.
func (s *GormStore) SaveJobDescription(jd domain.JobDescription) error {
	model := JobDescriptionModel{
		TableName: jd.TableName,
		Content:   jd.Content,
		CreatedAt: time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content"}),
	}).Create(&model).Error
}

// GetJobDescription returns the stored posting for a table.
func (s *GormStore) GetJobDescription(tableName string) (domain.JobDescription, bool, error) {
	var model JobDescriptionModel
	if err := s.db.First(&model, "table_name = ?", tableName).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.JobDescription{}, false, nil
		}
		return domain.JobDescription{}, false, err
	}
	return domain.JobDescription{
		TableName: model.TableName,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}, true, nil
}

// SaveResumeText stores extracted resume text keyed by candidate name.
func (s *GormStore) SaveResumeText(candidateName, text string) error {
	model := ResumeModel{
		CandidateName: candidateName,
		Content:       text,
		CreatedAt:     time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content"}),
	}).Create(&model).Error
}

// GetResumeText returns the stored resume text for a candidate.
func (s *GormStore) GetResumeText(candidateName string) (string, bool, error) {
	var model ResumeModel
	if err := s.db.First(&model, "candidate_name = ?", candidateName).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return model.Content, true, nil
}

// CreateCandidateTable creates a text-column table for ingested candidates.
func (s *GormStore) CreateCandidateTable(tableName string, columns []string) error {
	if err := validateIdentifier(tableName); err != nil {
		return err
	}
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		if err := validateIdentifier(col); err != nil {
			return err
		}
		defs = append(defs, fmt.Sprintf("%q TEXT", col))
	}
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (id BIGSERIAL PRIMARY KEY, %s, created_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
		tableName, strings.Join(defs, ", "))
	return s.db.Exec(stmt).Error
}

// InsertCandidateRow inserts one candidate and returns the row id.
func (s *GormStore) InsertCandidateRow(tableName string, columns []string, values []string) (int64, error) {
	if err := validateIdentifier(tableName); err != nil {
		return 0, err
	}
	if len(columns) != len(values) {
		return 0, fmt.Errorf("column/value count mismatch: %d vs %d", len(columns), len(values))
	}
	names := make([]string, 0, len(columns))
	placeholders := make([]string, 0, len(columns))
	args := make([]any, 0, len(values))
	for i, col := range columns {
		if err := validateIdentifier(col); err != nil {
			return 0, err
		}
		names = append(names, fmt.Sprintf("%q", col))
		placeholders = append(placeholders, "?")
		args = append(args, values[i])
	}
	stmt := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s) RETURNING id`,
		tableName, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	var id int64
	if err := s.db.Raw(stmt, args...).Scan(&id).Error; err != nil {
		return 0, fmt.Errorf("insert candidate: %w", err)
	}
	return id, nil
}

// AddRejectedCandidate records a background-check failure.
func (s *GormStore) AddRejectedCandidate(rc domain.RejectedCandidate) error {
	model := RejectedCandidateModel{
		Name:      rc.Name,
		Reason:    rc.Reason,
		CreatedAt: time.Now().UTC(),
	}
	return s.db.Create(&model).Error
}

func validateIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %q", name)
	}
	return nil
}

func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func turnFromModel(m TurnModel) domain.Turn {
	var followups []string
	if len(m.Followups) > 0 {
		_ = json.Unmarshal(m.Followups, &followups)
	}
	return domain.Turn{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		UserID:    m.UserID,
		TableID:   m.TableID,
		Question:  m.Question,
		Response:  m.Response,
		Followups: followups,
		CreatedAt: m.CreatedAt,
	}
}

func refFromModel(m CandidateDirModel) domain.CandidateRef {
	return domain.CandidateRef{
		Name:      m.Name,
		TableName: m.TableName,
		RowID:     m.RowID,
		Email:     m.Email,
	}
}
