// Package ingest builds a candidate table from an uploaded batch: it infers
// columns from the job description, screens and scores each resume, and
// fills the table, the candidate directory, and the resume store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/ai"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/store"
)

const defaultConcurrency = 4

// Columns every candidate table carries regardless of what inference
// proposes: lookup and actions need name/email, ranking needs score.
var requiredColumns = []string{"name", "email", "score"}

// defaultColumns is the silent fallback when column inference returns
// unusable output.
var defaultColumns = []string{"name", "email", "skills", "experience", "education", "score"}

// ObjectGetter fetches uploaded objects (the batch manifest and resume PDFs).
type ObjectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Manifest describes one ingestion batch, stored as a JSON object.
type Manifest struct {
	JobDescription string              `json:"job_description"`
	Candidates     []ManifestCandidate `json:"candidates"`
}

// ManifestCandidate is one uploaded resume in a batch.
type ManifestCandidate struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	ResumeKey string `json:"resume_key"`
}

// Config carries the pipeline's collaborators.
type Config struct {
	Store       store.Store
	Generator   ai.TextGenerator
	Objects     ObjectGetter
	Logger      *slog.Logger
	Concurrency int
	// ExtractText overrides PDF text extraction; tests use plain text.
	ExtractText func(data []byte) (string, error)
}

// Pipeline processes ingestion jobs.
type Pipeline struct {
	store       store.Store
	generator   ai.TextGenerator
	objects     ObjectGetter
	logger      *slog.Logger
	concurrency int
	extractText func(data []byte) (string, error)
	now         func() time.Time
}

// New validates cfg and returns a ready pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("ingest: store is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("ingest: generator is required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("ingest: object getter is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	extract := cfg.ExtractText
	if extract == nil {
		extract = extractPDFText
	}
	return &Pipeline{
		store:       cfg.Store,
		generator:   cfg.Generator,
		objects:     cfg.Objects,
		logger:      logger,
		concurrency: concurrency,
		extractText: extract,
		now:         time.Now,
	}, nil
}

// Run processes one batch: creates the table, stores the job description,
// then screens, extracts, scores and inserts every candidate. Candidates
// failing the screen or with unreadable resumes are recorded as rejected;
// generation and store failures abort the job so the queue can retry it.
func (p *Pipeline) Run(ctx context.Context, tableName, manifestKey string) error {
	raw, err := p.objects.Get(ctx, manifestKey)
	if err != nil {
		return fmt.Errorf("fetch manifest %q: %w", manifestKey, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("parse manifest %q: %w", manifestKey, err)
	}
	if strings.TrimSpace(manifest.JobDescription) == "" {
		return errors.New("manifest has no job description")
	}

	columns := p.inferColumns(ctx, manifest.JobDescription)
	if err := p.store.CreateCandidateTable(tableName, columns); err != nil {
		return fmt.Errorf("create table %q: %w", tableName, err)
	}
	if err := p.store.SaveJobDescription(domain.JobDescription{
		TableName: tableName,
		Content:   manifest.JobDescription,
		CreatedAt: p.now(),
	}); err != nil {
		return fmt.Errorf("save job description: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, candidate := range manifest.Candidates {
		g.Go(func() error {
			return p.processCandidate(gctx, tableName, columns, manifest.JobDescription, candidate)
		})
	}
	return g.Wait()
}

// inferColumns asks for a column list for the role. It never fails:
// unusable output falls back silently to the default column set. The
// required columns are always present.
func (p *Pipeline) inferColumns(ctx context.Context, jobDescription string) []string {
	var proposed []string
	if err := ai.GenerateJSON(ctx, p.generator, columnsSystemPrompt, jobDescription, &proposed); err != nil {
		p.logger.Warn("column inference failed, using defaults", "error", err)
		proposed = defaultColumns
	}

	seen := make(map[string]bool)
	columns := make([]string, 0, len(proposed)+len(requiredColumns))
	for _, name := range proposed {
		name = normalizeColumn(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, name)
	}
	if len(columns) == 0 {
		columns = append([]string(nil), defaultColumns...)
		for _, name := range columns {
			seen[name] = true
		}
	}
	for _, name := range requiredColumns {
		if !seen[name] {
			columns = append(columns, name)
		}
	}
	return columns
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	var b strings.Builder
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

type screenVerdict struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

func (p *Pipeline) processCandidate(ctx context.Context, tableName string, columns []string, jobDescription string, candidate ManifestCandidate) error {
	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		p.reject("(unnamed)", "candidate name missing from manifest")
		return nil
	}

	data, err := p.objects.Get(ctx, candidate.ResumeKey)
	if err != nil {
		p.reject(name, fmt.Sprintf("resume download failed: %v", err))
		return nil
	}
	text, err := p.extractText(data)
	if err != nil {
		p.reject(name, fmt.Sprintf("resume unreadable: %v", err))
		return nil
	}

	var verdict screenVerdict
	if err := ai.GenerateJSON(ctx, p.generator, backgroundCheckSystemPrompt, text, &verdict); err != nil {
		return fmt.Errorf("screen %s: %w", name, err)
	}
	if !verdict.Passed {
		p.reject(name, verdict.Reason)
		return nil
	}

	values, email, err := p.extractRow(ctx, columns, jobDescription, name, candidate.Email, text)
	if err != nil {
		return err
	}
	rowID, err := p.store.InsertCandidateRow(tableName, columns, values)
	if err != nil {
		return fmt.Errorf("insert %s into %q: %w", name, tableName, err)
	}
	if err := p.store.UpsertCandidate(domain.CandidateRef{
		Name:      name,
		TableName: tableName,
		RowID:     rowID,
		Email:     email,
	}); err != nil {
		return fmt.Errorf("register %s in directory: %w", name, err)
	}
	if err := p.store.SaveResumeText(name, text); err != nil {
		return fmt.Errorf("save resume text for %s: %w", name, err)
	}
	return nil
}

// extractRow builds the table row for one candidate: field extraction for
// the inferred columns plus a 0-100 match score.
func (p *Pipeline) extractRow(ctx context.Context, columns []string, jobDescription, name, manifestEmail, text string) ([]string, string, error) {
	fields := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != "name" && col != "score" {
			fields = append(fields, col)
		}
	}
	prompt := fmt.Sprintf("Fields: %s\n\nResume:\n%s", strings.Join(fields, ", "), text)
	info := make(map[string]string)
	if err := ai.GenerateJSON(ctx, p.generator, extractInfoSystemPrompt, prompt, &info); err != nil {
		return nil, "", fmt.Errorf("extract fields for %s: %w", name, err)
	}

	var scored struct {
		Score int `json:"score"`
	}
	scorePrompt := fmt.Sprintf("Job description:\n%s\n\nResume:\n%s", jobDescription, text)
	if err := ai.GenerateJSON(ctx, p.generator, scoreSystemPrompt, scorePrompt, &scored); err != nil {
		return nil, "", fmt.Errorf("score %s: %w", name, err)
	}
	if scored.Score < 0 {
		scored.Score = 0
	}
	if scored.Score > 100 {
		scored.Score = 100
	}

	email := strings.TrimSpace(manifestEmail)
	if email == "" {
		email = strings.TrimSpace(info["email"])
	}

	values := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case "name":
			values[i] = name
		case "email":
			values[i] = email
		case "score":
			values[i] = strconv.Itoa(scored.Score)
		default:
			values[i] = info[col]
		}
	}
	return values, email, nil
}

func (p *Pipeline) reject(name, reason string) {
	p.logger.Info("candidate rejected", "candidate", name, "reason", reason)
	if err := p.store.AddRejectedCandidate(domain.RejectedCandidate{
		Name:      name,
		Reason:    reason,
		CreatedAt: p.now(),
	}); err != nil {
		p.logger.Error("record rejected candidate", "candidate", name, "error", err)
	}
}
