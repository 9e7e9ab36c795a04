package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/render"
)

const defaultRecentLimit = 20

// RecordRender persists one finished render. The manager calls this once
// per job regardless of outcome.
func (s *Store) RecordRender(ctx context.Context, rec render.HistoryRecord) error {
	if strings.TrimSpace(rec.JobID) == "" {
		return errors.New("record render: job id required")
	}
	if strings.TrimSpace(rec.Outcome) == "" {
		return errors.New("record render: outcome required")
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO render_history (
            job_id, title, input_path, output_path, outcome, error_text,
            duration_seconds, elapsed_seconds, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID,
		rec.Title,
		rec.InputPath,
		rec.OutputPath,
		rec.Outcome,
		rec.ErrorText,
		rec.DurationSeconds,
		rec.ElapsedSeconds,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert render history: %w", err)
	}
	return nil
}

// Recent returns the most recently finished renders, newest first. A
// non-positive limit falls back to a small default.
func (s *Store) Recent(ctx context.Context, limit int) ([]render.HistoryRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT job_id, title, input_path, output_path, outcome, error_text,
            duration_seconds, elapsed_seconds, started_at, finished_at
        FROM render_history
        ORDER BY finished_at DESC, id DESC
        LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query render history: %w", err)
	}
	defer rows.Close()

	var records []render.HistoryRecord
	for rows.Next() {
		rec, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate render history: %w", err)
	}
	return records, nil
}

func scanHistoryRecord(rows *sql.Rows) (render.HistoryRecord, error) {
	var rec render.HistoryRecord
	var startedAt, finishedAt string
	if err := rows.Scan(
		&rec.JobID,
		&rec.Title,
		&rec.InputPath,
		&rec.OutputPath,
		&rec.Outcome,
		&rec.ErrorText,
		&rec.DurationSeconds,
		&rec.ElapsedSeconds,
		&startedAt,
		&finishedAt,
	); err != nil {
		return render.HistoryRecord{}, fmt.Errorf("scan render history row: %w", err)
	}
	rec.StartedAt = parseTimestamp(startedAt)
	rec.FinishedAt = parseTimestamp(finishedAt)
	return rec, nil
}

// parseTimestamp tolerates rows written without sub-second precision.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
