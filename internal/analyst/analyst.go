package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sources reported on a Result.
const (
	SourceDirectSQL = "Direct SQL"
)

// Executor runs a read-only statement and returns rows keyed by column.
type Executor interface {
	RunReadOnlyQuery(ctx context.Context, sql string) ([]map[string]any, error)
}

// Result is the answer to a data question.
type Result struct {
	Answer      string           `json:"answer"`
	SQL         string           `json:"sql"`
	Data        []map[string]any `json:"data"`
	Explanation string           `json:"explanation,omitempty"`
	Source      string           `json:"source"`
}

// Analyst answers questions with canned SQL, falling back to a generator.
type Analyst struct {
	db        Executor
	generator Generator
	logger    *slog.Logger
}

// New creates an Analyst. generator may be nil, in which case only the
// keyword rules are used.
func New(db Executor, generator Generator, logger *slog.Logger) *Analyst {
	return &Analyst{db: db, generator: generator, logger: logger.With("component", "analyst")}
}

// GeneratorName reports the configured generator, or "" when there is none.
func (a *Analyst) GeneratorName() string {
	if a.generator == nil {
		return ""
	}
	return a.generator.Name()
}

// Ask answers a question. A keyword rule that returns rows wins; otherwise
// the generator writes SQL which runs read-only. ErrNoMatch means neither
// path produced rows.
func (a *Analyst) Ask(ctx context.Context, question string) (Result, error) {
	if q, err := DirectSQL(question); err == nil {
		rows, err := a.db.RunReadOnlyQuery(ctx, q.SQL)
		switch {
		case err != nil:
			a.logger.Warn("direct sql failed", "error", err)
		case len(rows) > 0:
			return Result{
				Answer:      "Query executed",
				SQL:         q.SQL,
				Data:        rows,
				Explanation: q.Explanation,
				Source:      SourceDirectSQL,
			}, nil
		}
	}

	if a.generator == nil {
		return Result{}, ErrNoMatch
	}

	text, err := a.generator.GenerateSQL(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("analyst: generate sql: %w", err)
	}
	sql, err := CleanSQL(text)
	if err != nil {
		a.logger.Warn("rejected generated sql", "generator", a.generator.Name(), "sql", text)
		return Result{}, err
	}
	rows, err := a.db.RunReadOnlyQuery(ctx, sql)
	if err != nil {
		return Result{}, fmt.Errorf("analyst: run generated sql: %w", err)
	}
	if len(rows) == 0 {
		return Result{SQL: sql}, ErrNoMatch
	}
	return Result{
		Answer: "Query executed",
		SQL:    sql,
		Data:   rows,
		Source: a.generator.Name(),
	}, nil
}

// IsNoAnswer reports whether err means the question could not be answered
// with data, as opposed to an infrastructure failure.
func IsNoAnswer(err error) bool {
	return errors.Is(err, ErrNoMatch) || errors.Is(err, ErrUnsafeSQL)
}
