// Package store persists aggregate usage counters. This is the only durable
// surface in the repo and it is content-free by contract: the table holds
// counts keyed by day and source, never message text or anything derived
// from it.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// RecordAnalysis increments the day/source usage row for one completed
// analysis.
func (s *Store) RecordAnalysis(ctx context.Context, source string, messages, questions, tensions, misalignments int, draftAnalyzed bool, degraded bool) error {
	drafts := 0
	if draftAnalyzed {
		drafts = 1
	}
	degradedCount := 0
	if degraded {
		degradedCount = 1
	}

	query := `
		INSERT INTO usage_counters (day, source, analyses, messages, questions, tensions, misalignments, drafts, degraded)
		VALUES (CURRENT_DATE, $1, 1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (day, source) DO UPDATE SET
			analyses      = usage_counters.analyses + 1,
			messages      = usage_counters.messages + EXCLUDED.messages,
			questions     = usage_counters.questions + EXCLUDED.questions,
			tensions      = usage_counters.tensions + EXCLUDED.tensions,
			misalignments = usage_counters.misalignments + EXCLUDED.misalignments,
			drafts        = usage_counters.drafts + EXCLUDED.drafts,
			degraded      = usage_counters.degraded + EXCLUDED.degraded`

	if _, err := s.pool.Exec(ctx, query, source, messages, questions, tensions, misalignments, drafts, degradedCount); err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}
	return nil
}

// UsageRow is one day/source aggregate.
type UsageRow struct {
	Day           string
	Source        string
	Analyses      int64
	Messages      int64
	Questions     int64
	Tensions      int64
	Misalignments int64
	Drafts        int64
	Degraded      int64
}

// UsageSince returns daily aggregates from the given day forward, newest first.
func (s *Store) UsageSince(ctx context.Context, day string) ([]UsageRow, error) {
	query := `
		SELECT day::text, source, analyses, messages, questions, tensions, misalignments, drafts, degraded
		FROM usage_counters
		WHERE day >= $1::date
		ORDER BY day DESC, source`

	rows, err := s.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var r UsageRow
		if err := rows.Scan(&r.Day, &r.Source, &r.Analyses, &r.Messages, &r.Questions, &r.Tensions, &r.Misalignments, &r.Drafts, &r.Degraded); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage rows: %w", err)
	}

	return out, nil
}
