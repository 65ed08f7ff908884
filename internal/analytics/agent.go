package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/aman-zulfiqar/solana-amm/internal/events"
)

const (
	defaultModel    = "openai/gpt-4.1-mini"
	defaultBaseURL  = "https://openrouter.ai/api/v1"
	defaultDatabase = "solana"
	defaultRowLimit = 500
)

type AgentConfig struct {
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	OpenRouterAPIKey string
	BaseURL          string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string
	// RowLimit caps the rows a generated query may return.
	RowLimit int

	Logger *logrus.Logger
}

// Agent answers questions about pool liquidity history. A model writes a
// SELECT over the liquidity event table, the agent checks and runs it, then
// the model summarises the rows.
type Agent struct {
	llm      llms.Model
	db       *sql.DB
	database string
	rowLimit int
	logger   *logrus.Logger
}

// AskResult is what the agent ran and what it concluded.
type AskResult struct {
	SQL       string `json:"sql"`
	Answer    string `json:"answer"`
	Rows      int    `json:"rows"`
	Truncated bool   `json:"truncated,omitempty"`
}

func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ClickHouseDatabase == "" {
		cfg.ClickHouseDatabase = defaultDatabase
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 30,
		},
		DialTimeout: 5 * time.Second,
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}

	a := NewAgentWith(llm, db, cfg.Logger)
	a.database = cfg.ClickHouseDatabase
	if cfg.RowLimit > 0 {
		a.rowLimit = cfg.RowLimit
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":      cfg.ClickHouseAddr,
		"database":  a.database,
		"model":     cfg.Model,
		"row_limit": a.rowLimit,
	}).Info("analytics agent ready")
	return a, nil
}

// NewAgentWith builds an Agent from an existing model and database handle.
func NewAgentWith(llm llms.Model, db *sql.DB, logger *logrus.Logger) *Agent {
	if logger == nil {
		logger = logrus.New()
	}
	return &Agent{
		llm:      llm,
		db:       db,
		database: defaultDatabase,
		rowLimit: defaultRowLimit,
		logger:   logger,
	}
}

func (a *Agent) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	start := time.Now()

	query, err := a.writeQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	rows, truncated, err := a.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	answer, err := a.summarise(ctx, question, query, rows, truncated)
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"rows":      len(rows),
		"truncated": truncated,
		"took":      time.Since(start).String(),
	}).Info("answered liquidity question")
	return &AskResult{SQL: query, Answer: answer, Rows: len(rows), Truncated: truncated}, nil
}

func (a *Agent) writeQuery(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`You write ClickHouse SQL over the liquidity history of a constant-product exchange.

%s
Rules:
- Reply with one SELECT statement and nothing else.
- Read only %s.%s. No CTEs, no other tables, no table functions.
- Filter operations with the kind column using the event kinds listed above.
- Amounts are raw integer token units; never divide them by decimals.
- For "top" or "biggest" questions use ORDER BY ... DESC with a LIMIT.

Question: %s
`, describeSchema(a.database), a.database, events.Table, question)

	reply, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithMaxTokens(512), llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate SQL: %w", err)
	}

	query, err := checkQuery(cleanReply(reply), a.database, a.rowLimit)
	if err != nil {
		a.logger.WithError(err).WithField("reply", reply).Warn("model wrote an unusable query")
		return "", err
	}
	a.logger.WithField("sql", query).Debug("generated SQL")
	return query, nil
}

// fetch runs query and returns at most rowLimit rows keyed by column name.
func (a *Agent) fetch(ctx context.Context, query string) ([]map[string]any, bool, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("read columns: %w", err)
	}

	out := []map[string]any{}
	for rows.Next() {
		if len(out) == a.rowLimit {
			return out, true, nil
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, fmt.Errorf("scan row %d: %w", len(out), err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("read rows: %w", err)
	}
	return out, false, nil
}

func (a *Agent) summarise(ctx context.Context, question, query string, rows []map[string]any, truncated bool) (string, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	note := ""
	if truncated {
		note = fmt.Sprintf("\nOnly the first %d rows are shown; say the answer may be partial.", a.rowLimit)
	}

	prompt := fmt.Sprintf(`You explain liquidity activity on a constant-product exchange. Pools hold
two assets (A and B); depositors receive share tokens (C) and burn them to withdraw.

Question: %s

Query:
%s

Rows (JSON, may be empty):
%s
%s
Answer in short bullet points with the key numbers (deposits, withdrawals,
share supply, counts). If there are no rows, say no matching activity was found.
Do not repeat the JSON.
`, question, query, data, note)

	reply, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithMaxTokens(512))
	if err != nil {
		return "", fmt.Errorf("summarise rows: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
