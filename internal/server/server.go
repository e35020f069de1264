// Package server exposes the HTTP surface: the chat endpoint, ingestion job
// submission, table insights, and health.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/internal/apitoken"
	"github.com/sohamshirke10/recruiter-bandhu/internal/util"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/queue"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/store"
)

const (
	insightsRowLimit = 50
	uploadSizeLimit  = 20 << 20
	presignExpiry    = 15 * time.Minute
)

// Orchestrator answers one chat exchange.
type Orchestrator interface {
	Answer(ctx context.Context, userID, tableID, question string) (domain.Reply, error)
}

// JobQueue submits and reads ingestion jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, tableName, manifestKey string) (queue.JobStatus, error)
	GetJob(ctx context.Context, jobID string) (queue.JobStatus, bool, error)
}

// Limiter rate-limits chat requests per client key.
type Limiter interface {
	Allow(key string) bool
}

// TokenVerifier checks API bearer tokens and yields the user id.
type TokenVerifier interface {
	VerifySubject(token string) (string, error)
}

// Uploads stores manifest and resume objects and hands out download links.
type Uploads interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App      Orchestrator
	Store    store.Store
	Queue    JobQueue
	Verifier TokenVerifier
	Limiter  Limiter
	Uploads  Uploads
	Proxies  *util.TrustedProxies
}

// Server exposes HTTP endpoints for the recruiter assistant.
type Server struct {
	app      Orchestrator
	store    store.Store
	queue    JobQueue
	verifier TokenVerifier
	limiter  Limiter
	uploads  Uploads
	proxies  *util.TrustedProxies
	mux      *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:      cfg.App,
		store:    cfg.Store,
		queue:    cfg.Queue,
		verifier: cfg.Verifier,
		limiter:  cfg.Limiter,
		uploads:  cfg.Uploads,
		proxies:  cfg.Proxies,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	handler := util.WithSecurityHeaders(util.WithCORS(s.mux))
	handler = util.WithRequestLog("server", handler)
	return util.WithRequestID(handler)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/chat", s.withUser(s.handleChat))
	s.mux.Handle("/tables", s.withUser(s.handleTables))
	s.mux.Handle("/insights/", s.withUser(s.handleInsights))
	s.mux.Handle("/jobs/", s.withUser(s.handleJob))
	s.mux.Handle("/uploads/", s.withUser(s.handleUpload))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := apitoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := s.verifier.VerifySubject(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, userID)
	})
}

type chatRequest struct {
	TableID  string `json:"tableId"`
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.limiter != nil && !s.limiter.Allow(util.ClientIP(r, s.proxies)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.TableID == "" {
		writeError(w, http.StatusBadRequest, "tableId is required")
		return
	}
	reply, err := s.app.Answer(r.Context(), userID, req.TableID, req.Question)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type tableRequest struct {
	TableName   string `json:"tableName"`
	ManifestKey string `json:"manifestKey"`
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req tableRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TableName == "" {
		writeError(w, http.StatusBadRequest, "tableName is required")
		return
	}
	if req.ManifestKey == "" {
		writeError(w, http.StatusBadRequest, "manifestKey is required")
		return
	}
	job, err := s.queue.Enqueue(r.Context(), req.TableName, req.ManifestKey)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not enqueue ingestion job")
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, ok, err := s.queue.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not read job status")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type insightsResponse struct {
	TableName string          `json:"tableName"`
	Columns   []domain.Column `json:"columns"`
	Rows      [][]string      `json:"rows"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	table := strings.TrimPrefix(r.URL.Path, "/insights/")
	if table == "" || strings.Contains(table, "/") {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}
	columns, err := s.store.IntrospectTable(table)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not read table")
		return
	}
	if len(columns) == 0 {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}
	sample, err := s.store.SampleRows(table, insightsRowLimit)
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not read table")
		return
	}
	writeJSON(w, http.StatusOK, insightsResponse{
		TableName: table,
		Columns:   columns,
		Rows:      sample.Rows,
	})
}

// handleUpload stores an object under the given key (PUT) or hands out a
// pre-signed download link for it (GET). Keys may contain slashes, matching
// the manifest and resume key layout the ingestion worker reads.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, _ string) {
	if s.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/uploads/")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid object key")
		return
	}
	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(io.LimitReader(r.Body, uploadSizeLimit))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read upload body")
			return
		}
		if len(body) == 0 {
			writeError(w, http.StatusBadRequest, "upload body is empty")
			return
		}
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := s.uploads.Put(r.Context(), key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
			writeError(w, http.StatusBadGateway, "could not store object")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key})
	case http.MethodGet:
		url, err := s.uploads.PresignGet(r.Context(), key, presignExpiry)
		if err != nil {
			writeError(w, http.StatusBadGateway, "could not presign object")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
	default:
		methodNotAllowed(w)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
