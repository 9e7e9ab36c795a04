package stats_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/stats"
	"github.com/sharkye1/Szhimatar2/internal/testsupport"
)

func historyRecord(jobID, outcome string, finished time.Time, elapsed float64) render.HistoryRecord {
	return render.HistoryRecord{
		JobID:           jobID,
		Title:           "Sample Title",
		InputPath:       "/media/in.mkv",
		OutputPath:      "/media/in_szhatoe.mkv",
		Outcome:         outcome,
		DurationSeconds: 120,
		ElapsedSeconds:  elapsed,
		StartedAt:       finished.Add(-time.Duration(elapsed * float64(time.Second))),
		FinishedAt:      finished,
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)

	ctx := context.Background()
	rec := historyRecord("job-1", render.OutcomeCompleted, time.Now().UTC(), 42.5)
	if err := store.RecordRender(ctx, rec); err != nil {
		t.Fatalf("RecordRender failed: %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.JobID != "job-1" || got.Outcome != render.OutcomeCompleted {
		t.Fatalf("unexpected record: %#v", got)
	}
	if got.Title != rec.Title || got.InputPath != rec.InputPath || got.OutputPath != rec.OutputPath {
		t.Fatalf("unexpected record fields: %#v", got)
	}
	if got.ElapsedSeconds != 42.5 || got.DurationSeconds != 120 {
		t.Fatalf("unexpected durations: %#v", got)
	}
	if !got.FinishedAt.Equal(rec.FinishedAt) {
		t.Fatalf("FinishedAt mismatch: got %v, want %v", got.FinishedAt, rec.FinishedAt)
	}
}

func TestRecordRenderRequiresIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)

	ctx := context.Background()
	if err := store.RecordRender(ctx, render.HistoryRecord{Outcome: render.OutcomeFailed}); err == nil {
		t.Fatal("expected error when job id missing")
	}
	if err := store.RecordRender(ctx, render.HistoryRecord{JobID: "job-1"}); err == nil {
		t.Fatal("expected error when outcome missing")
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"job-1", "job-2", "job-3"} {
		rec := historyRecord(id, render.OutcomeCompleted, base.Add(time.Duration(i)*time.Hour), 10)
		if err := store.RecordRender(ctx, rec); err != nil {
			t.Fatalf("RecordRender(%s) failed: %v", id, err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].JobID != "job-3" || records[1].JobID != "job-2" {
		t.Fatalf("unexpected order: %s, %s", records[0].JobID, records[1].JobID)
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent with default limit failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records with default limit, got %d", len(all))
	}
}

func TestSummaryCountsOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)

	ctx := context.Background()
	now := time.Now().UTC()
	seed := []struct {
		id      string
		outcome string
		elapsed float64
	}{
		{"job-1", render.OutcomeCompleted, 10},
		{"job-2", render.OutcomeCompleted, 20},
		{"job-3", render.OutcomeFailed, 5},
		{"job-4", render.OutcomeStopped, 2.5},
	}
	for _, item := range seed {
		if err := store.RecordRender(ctx, historyRecord(item.id, item.outcome, now, item.elapsed)); err != nil {
			t.Fatalf("RecordRender(%s) failed: %v", item.id, err)
		}
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Renders != 4 || summary.Succeeded != 2 || summary.Failed != 1 || summary.Stopped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.TotalRenderSeconds != 37.5 {
		t.Fatalf("TotalRenderSeconds = %v, want 37.5", summary.TotalRenderSeconds)
	}
	if summary.LastFinishedAt == "" {
		t.Fatal("expected LastFinishedAt to be set")
	}
}

func TestClearEmptiesHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)

	ctx := context.Background()
	if err := store.RecordRender(ctx, historyRecord("job-1", render.OutcomeCompleted, time.Now().UTC(), 10)); err != nil {
		t.Fatalf("RecordRender failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Renders != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestExportJSONLegacyShape(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.RecordRender(ctx, historyRecord("job-1", render.OutcomeCompleted, base, 30)); err != nil {
		t.Fatalf("RecordRender failed: %v", err)
	}
	if err := store.RecordRender(ctx, historyRecord("job-2", render.OutcomeStopped, base.Add(time.Hour), 12)); err != nil {
		t.Fatalf("RecordRender failed: %v", err)
	}

	data, err := store.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	var export struct {
		Renders []struct {
			JobID   string `json:"jobId"`
			Outcome string `json:"outcome"`
		} `json:"renders"`
		TotalRenders    int     `json:"totalRenders"`
		TotalSuccessful int     `json:"totalSuccessful"`
		TotalFailed     int     `json:"totalFailed"`
		TotalRenderTime float64 `json:"totalRenderTime"`
		LastUpdated     string  `json:"lastUpdated"`
	}
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if export.TotalRenders != 2 || export.TotalSuccessful != 1 || export.TotalFailed != 1 {
		t.Fatalf("unexpected totals: %+v", export)
	}
	if export.TotalRenderTime != 42 {
		t.Fatalf("TotalRenderTime = %v, want 42", export.TotalRenderTime)
	}
	if len(export.Renders) != 2 || export.Renders[0].JobID != "job-1" {
		t.Fatalf("expected oldest-first renders, got %+v", export.Renders)
	}
	if !strings.HasPrefix(export.LastUpdated, "2025-06-01T13:00:00") {
		t.Fatalf("LastUpdated = %q", export.LastUpdated)
	}
}

func TestExportJSONEmptyHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)

	data, err := store.ExportJSON(context.Background())
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"renders": []`) {
		t.Fatalf("expected empty renders array, got:\n%s", text)
	}
	if !strings.Contains(text, `"lastUpdated"`) {
		t.Fatalf("expected lastUpdated in empty export, got:\n%s", text)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := stats.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.RecordRender(context.Background(), historyRecord("job-1", render.OutcomeCompleted, time.Now().UTC(), 10)); err != nil {
		t.Fatalf("RecordRender failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := stats.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	records, err := second.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 || records[0].JobID != "job-1" {
		t.Fatalf("expected row to survive reopen, got %+v", records)
	}
}
