package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/render"
)

// Summary aggregates the render history table.
type Summary struct {
	Renders            int     `json:"renders"`
	Succeeded          int     `json:"succeeded"`
	Failed             int     `json:"failed"`
	Stopped            int     `json:"stopped"`
	TotalRenderSeconds float64 `json:"total_render_seconds"`
	LastFinishedAt     string  `json:"last_finished_at,omitempty"`
}

// Summary returns outcome totals across the full history.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*),
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(elapsed_seconds), 0),
            COALESCE(MAX(finished_at), '')
        FROM render_history`,
		render.OutcomeCompleted,
		render.OutcomeFailed,
		render.OutcomeStopped,
	)

	var summary Summary
	if err := row.Scan(
		&summary.Renders,
		&summary.Succeeded,
		&summary.Failed,
		&summary.Stopped,
		&summary.TotalRenderSeconds,
		&summary.LastFinishedAt,
	); err != nil {
		return Summary{}, fmt.Errorf("scan summary: %w", err)
	}
	return summary, nil
}

// Clear wipes the render history.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM render_history"); err != nil {
		return fmt.Errorf("clear render history: %w", err)
	}
	return nil
}

// legacyRender is one element of the exported renders array.
type legacyRender struct {
	JobID           string  `json:"jobId"`
	Title           string  `json:"title"`
	Input           string  `json:"input"`
	Output          string  `json:"output"`
	Outcome         string  `json:"outcome"`
	Error           string  `json:"error,omitempty"`
	DurationSeconds float64 `json:"durationSeconds"`
	ElapsedSeconds  float64 `json:"elapsedSeconds"`
	StartedAt       string  `json:"startedAt"`
	FinishedAt      string  `json:"finishedAt"`
}

// legacyExport mirrors the stat.json document earlier releases kept on
// disk, so exported statistics stay loadable by existing tooling.
type legacyExport struct {
	Renders         []legacyRender `json:"renders"`
	TotalRenders    int            `json:"totalRenders"`
	TotalSuccessful int            `json:"totalSuccessful"`
	TotalFailed     int            `json:"totalFailed"`
	TotalRenderTime float64        `json:"totalRenderTime"`
	LastUpdated     string         `json:"lastUpdated"`
}

// ExportJSON renders the full history in the legacy stat.json shape.
// Stopped renders count toward totalFailed, which only ever had two
// buckets.
func (s *Store) ExportJSON(ctx context.Context) ([]byte, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT job_id, title, input_path, output_path, outcome, error_text,
            duration_seconds, elapsed_seconds, started_at, finished_at
        FROM render_history
        ORDER BY finished_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query render history: %w", err)
	}
	defer rows.Close()

	export := legacyExport{Renders: []legacyRender{}}
	for rows.Next() {
		rec, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, err
		}
		export.Renders = append(export.Renders, legacyRender{
			JobID:           rec.JobID,
			Title:           rec.Title,
			Input:           rec.InputPath,
			Output:          rec.OutputPath,
			Outcome:         rec.Outcome,
			Error:           rec.ErrorText,
			DurationSeconds: rec.DurationSeconds,
			ElapsedSeconds:  rec.ElapsedSeconds,
			StartedAt:       rec.StartedAt.Format(time.RFC3339),
			FinishedAt:      rec.FinishedAt.Format(time.RFC3339),
		})
		export.TotalRenders++
		switch rec.Outcome {
		case render.OutcomeCompleted:
			export.TotalSuccessful++
		default:
			export.TotalFailed++
		}
		export.TotalRenderTime += rec.ElapsedSeconds
		export.LastUpdated = rec.FinishedAt.Format(time.RFC3339)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate render history: %w", err)
	}
	if export.LastUpdated == "" {
		export.LastUpdated = time.Now().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}
