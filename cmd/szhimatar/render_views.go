package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/ipc"
	"github.com/sharkye1/Szhimatar2/internal/stats"
)

func shortJobID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatSpeed(speed float64) string {
	if speed <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", speed)
}

func formatFPS(fps float64) string {
	if fps <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", fps)
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second))
	d = d.Round(time.Second)
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm%02ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func buildJobRows(jobs []ipc.JobStatus) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortJobID(job.JobID),
			job.Title,
			fmt.Sprintf("%.1f%%", job.Last.Percent),
			formatFPS(job.Last.FPS),
			formatSpeed(job.Last.Speed),
			formatSeconds(job.Last.ETASeconds),
			formatSeconds(job.ElapsedSeconds),
			fmt.Sprintf("%d", job.PID),
		})
	}
	return rows
}

func buildHistoryRows(records []ipc.HistoryRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			shortJobID(rec.JobID),
			rec.Title,
			rec.Outcome,
			formatSeconds(rec.ElapsedSeconds),
			formatTimestamp(rec.FinishedAt),
		})
	}
	return rows
}

func buildStatsRows(summary *stats.Summary) [][]string {
	if summary == nil || summary.Renders == 0 {
		return nil
	}
	rows := [][]string{
		{"Completed", fmt.Sprintf("%d", summary.Succeeded)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Stopped", fmt.Sprintf("%d", summary.Stopped)},
		{"Total", fmt.Sprintf("%d", summary.Renders)},
	}
	return rows
}

// formatLogEvent renders one structured daemon log event for terminal
// display, with detail bullets on follow-up lines.
func formatLogEvent(evt ipc.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	line := strings.Join(parts, " ")
	if jobID := shortJobID(evt.JobID); jobID != "" {
		line += fmt.Sprintf(" job %s", jobID)
	}
	message := strings.TrimSpace(evt.Message)
	if message != "" {
		line += " - " + message
	}
	if len(evt.Details) == 0 {
		return line
	}
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Label)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}
