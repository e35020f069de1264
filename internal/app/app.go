// Package app implements the conversational query orchestrator: one inbound
// question is rephrased against its thread history, classified into an
// intent, and dispatched to the SQL answering agent or to an action handler.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sohamshirke10/recruiter-bandhu/internal/executor"
	"github.com/sohamshirke10/recruiter-bandhu/internal/util"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/ai"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/store"
)

const (
	defaultHistoryLimit    = 10
	defaultAgentStepBudget = 5
	sampleRowLimit         = 3
)

// Config carries the orchestrator's collaborators. Store and Generator are
// required; Executor is required only if action intents should succeed.
type Config struct {
	Store           store.Store
	Generator       ai.TextGenerator
	Executor        executor.Executor
	Logger          *slog.Logger
	HistoryLimit    int
	AgentStepBudget int
}

// App answers free-text questions about one candidate table at a time.
type App struct {
	store           store.Store
	generator       ai.TextGenerator
	executor        executor.Executor
	logger          *slog.Logger
	historyLimit    int
	agentStepBudget int
	now             func() time.Time
}

// New validates cfg and returns a ready orchestrator.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app: store is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("app: generator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	stepBudget := cfg.AgentStepBudget
	if stepBudget <= 0 {
		stepBudget = defaultAgentStepBudget
	}
	return &App{
		store:           cfg.Store,
		generator:       cfg.Generator,
		executor:        cfg.Executor,
		logger:          logger,
		historyLimit:    historyLimit,
		agentStepBudget: stepBudget,
		now:             time.Now,
	}, nil
}

// Answer runs one full exchange for (userID, tableID, question) and returns
// the terminal reply. Action and unknown intents never return an error; the
// SQL path errors only when both the agent loop and its fallback fail, or
// when follow-up generation violates its contract.
func (a *App) Answer(ctx context.Context, userID, tableID, question string) (domain.Reply, error) {
	userID = strings.TrimSpace(userID)
	tableID = strings.TrimSpace(tableID)
	question = strings.TrimSpace(question)
	if userID == "" || tableID == "" || question == "" {
		return domain.Reply{}, errors.New("answer: user id, table id and question are required")
	}

	rephrased, err := a.rephrase(ctx, userID, tableID, question)
	if err != nil {
		return domain.Reply{}, err
	}

	intent := a.classifyIntent(ctx, rephrased)
	a.logger.Info("question classified",
		"user_id", userID, "table_id", tableID, "intent", string(intent))

	switch intent {
	case domain.IntentSQL:
		reply, err := a.answerSQL(ctx, tableID, rephrased)
		if err != nil {
			return domain.Reply{}, err
		}
		if reply.Answer != "" {
			a.persistTurn(userID, tableID, rephrased, reply)
		}
		return reply, nil
	case domain.IntentGmail:
		return a.handleEmail(ctx, rephrased), nil
	case domain.IntentCalendar:
		return a.handleCalendar(ctx, rephrased), nil
	case domain.IntentBestFit:
		return a.handleBestFit(ctx, tableID, rephrased), nil
	default:
		return domain.Reply{Intent: domain.IntentUnknown, Canned: unknownResponse}, nil
	}
}

// persistTurn records a completed sql exchange. The reply has already been
// computed, so persistence failures are logged rather than returned.
func (a *App) persistTurn(userID, tableID, question string, reply domain.Reply) {
	thread, err := a.store.GetOrCreateThread(userID, tableID)
	if err != nil {
		a.logger.Error("get or create thread",
			"user_id", userID, "table_id", tableID, "error", err)
		return
	}
	turn := domain.Turn{
		ID:        util.NewID(),
		ThreadID:  thread.ID,
		UserID:    userID,
		TableID:   tableID,
		Question:  question,
		Response:  reply.Answer,
		Followups: reply.Followups,
		CreatedAt: a.now(),
	}
	if err := a.store.AppendTurn(turn); err != nil {
		a.logger.Error("append turn",
			"user_id", userID, "table_id", tableID, "thread_id", thread.ID, "error", err)
	}
}
