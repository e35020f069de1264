package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sohamshirke10/recruiter-bandhu/pkg/ai"
	"github.com/sohamshirke10/recruiter-bandhu/pkg/domain"
)

const (
	tableNotFoundResponse = "table not found"
	fallbackRowLimit      = 5
	agentResultRowLimit   = 20
)

// agentStep is the JSON value the agent loop expects at every turn.
type agentStep struct {
	Action string `json:"action"`
	Query  string `json:"query,omitempty"`
	Answer string `json:"answer,omitempty"`
}

// answerSQL runs the SQL path: introspect, agent loop, fallback on agent
// failure, then follow-up generation. A missing table is a terminal reply,
// not an error; follow-up contract violations fail the whole exchange.
func (a *App) answerSQL(ctx context.Context, tableID, question string) (domain.Reply, error) {
	columns, err := a.store.IntrospectTable(tableID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("introspect table %q: %w", tableID, err)
	}
	if len(columns) == 0 {
		return domain.Reply{Intent: domain.IntentSQL, Canned: tableNotFoundResponse}, nil
	}

	schema := schemaText(tableID, columns)
	if sample, err := a.store.SampleRows(tableID, sampleRowLimit); err != nil {
		a.logger.Warn("fetch sample rows", "table_id", tableID, "error", err)
	} else if len(sample.Rows) > 0 {
		schema += "\nSample rows:\n" + resultText(sample, sampleRowLimit)
	}

	answer, agentErr := a.runAgent(ctx, tableID, schema, question)
	if agentErr != nil {
		a.logger.Warn("sql agent failed, trying fallback", "table_id", tableID, "error", agentErr)
		answer, err = a.fallbackAnswer(ctx, tableID, schema, question)
		if err != nil {
			return domain.Reply{}, fmt.Errorf("sql agent failed (%v); fallback failed: %w", agentErr, err)
		}
	}

	followups, err := a.generateFollowups(ctx, question, answer)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.Reply{Intent: domain.IntentSQL, Answer: answer, Followups: followups}, nil
}

// runAgent drives the iterative tool loop: the model asks for queries one at
// a time and finishes with a narrative. Every query passes the table guard
// before execution. Exhausting the step budget is an error.
func (a *App) runAgent(ctx context.Context, tableID, schema, question string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString(schema)
	fmt.Fprintf(&prompt, "\nQuestion: %s\n", question)

	for step := 0; step < a.agentStepBudget; step++ {
		var decision agentStep
		if err := ai.GenerateJSON(ctx, a.generator, sqlAgentSystemPrompt, prompt.String(), &decision); err != nil {
			return "", fmt.Errorf("agent step %d: %w", step+1, err)
		}
		switch decision.Action {
		case "final":
			if strings.TrimSpace(decision.Answer) == "" {
				return "", fmt.Errorf("agent step %d: empty final answer", step+1)
			}
			return decision.Answer, nil
		case "sql":
			query := strings.TrimSpace(decision.Query)
			if query == "" {
				return "", fmt.Errorf("agent step %d: empty query", step+1)
			}
			if err := guardQuery(query, tableID); err != nil {
				return "", fmt.Errorf("agent step %d: %w", step+1, err)
			}
			result, err := a.store.ExecuteQuery(query)
			if err != nil {
				return "", fmt.Errorf("agent step %d: execute query: %w", step+1, err)
			}
			fmt.Fprintf(&prompt, "\nQuery: %s\nObservation:\n%s", query, resultText(result, agentResultRowLimit))
		default:
			return "", fmt.Errorf("agent step %d: unexpected action %q", step+1, decision.Action)
		}
	}
	return "", errors.New("agent step budget exhausted without a final answer")
}

// fallbackAnswer is the single-shot path: one generated statement, executed
// directly, with the first rows explained by a second call. The reply keeps
// the executed SQL text and the total row count visible.
func (a *App) fallbackAnswer(ctx context.Context, tableID, schema, question string) (string, error) {
	var generated struct {
		Query string `json:"query"`
	}
	prompt := fmt.Sprintf("%s\nQuestion: %s", schema, question)
	if err := ai.GenerateJSON(ctx, a.generator, sqlFallbackSystemPrompt, prompt, &generated); err != nil {
		return "", fmt.Errorf("generate fallback query: %w", err)
	}
	query := strings.TrimSpace(generated.Query)
	if query == "" {
		return "", errors.New("generate fallback query: empty statement")
	}
	if err := guardQuery(query, tableID); err != nil {
		return "", err
	}

	result, err := a.store.ExecuteQuery(query)
	if err != nil {
		return "", fmt.Errorf("execute fallback query: %w", err)
	}

	explanation, err := a.generator.GenerateText(ctx, sqlExplainSystemPrompt,
		fmt.Sprintf("Question: %s\n%s", question, resultText(result, fallbackRowLimit)))
	if err != nil {
		return "", fmt.Errorf("explain fallback result: %w", err)
	}
	return fmt.Sprintf("%s\n\nSQL: %s\nRows: %d",
		strings.TrimSpace(explanation), query, len(result.Rows)), nil
}
