package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRenderCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsEvents(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "render completed",
			event: notifications.EventRenderCompleted,
			payload: notifications.Payload{
				"title":   "Dune Part Two 2024",
				"elapsed": "12m30s",
			},
			expectTitle:   "Szhimatar - Render Complete",
			expectMessage: "✅ Render complete: Dune Part Two 2024 in 12m30s",
			expectTags:    "szhimatar,render,completed",
		},
		{
			name:  "render completed without elapsed",
			event: notifications.EventRenderCompleted,
			payload: notifications.Payload{
				"title": "Blade Runner",
			},
			expectTitle:   "Szhimatar - Render Complete",
			expectMessage: "✅ Render complete: Blade Runner",
			expectTags:    "szhimatar,render,completed",
		},
		{
			name:  "render failed",
			event: notifications.EventRenderFailed,
			payload: notifications.Payload{
				"title": "Arrival",
				"error": "FFmpeg exited with code: 1",
			},
			expectTitle:    "Szhimatar - Render Failed",
			expectMessage:  "❌ Render failed: Arrival: FFmpeg exited with code: 1",
			expectTags:     "szhimatar,render,failed",
			expectPriority: "high",
		},
		{
			name:  "render stopped",
			event: notifications.EventRenderStopped,
			payload: notifications.Payload{
				"title": "The Matrix",
			},
			expectTitle:   "Szhimatar - Render Stopped",
			expectMessage: "🛑 Render stopped: The Matrix",
			expectTags:    "szhimatar,render,stopped",
		},
		{
			name:  "daemon started",
			event: notifications.EventDaemonStarted,
			payload: notifications.Payload{
				"host": "render-box",
			},
			expectTitle:   "Szhimatar - Daemon Started",
			expectMessage: "Daemon started on render-box",
			expectTags:    "szhimatar,daemon,started",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			payload:        nil,
			expectTitle:    "Szhimatar - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "szhimatar,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				path     string
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.path = r.URL.Path
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyServer = server.URL
			cfg.Notifications.NtfyTopic = "renders"
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.path != "/renders" {
				t.Fatalf("expected topic path /renders, got %q", captured.path)
			}
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyServer = server.URL
	cfg.Notifications.NtfyTopic = "renders"
	cfg.Notifications.Renders = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	suppressed := []notifications.Event{
		notifications.EventRenderCompleted,
		notifications.EventRenderStopped,
		notifications.EventRenderFailed,
	}
	for _, event := range suppressed {
		if err := svc.Publish(ctx, event, notifications.Payload{"title": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("suppressed events reached the server %d times", got)
	}

	if err := svc.Publish(ctx, notifications.EventTest, nil); err != nil {
		t.Fatalf("test notification returned error: %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("expected exactly the test event to send, got %d requests", got)
	}
}

func TestPublishRejectsUnknownEvent(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "renders"

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Event("bogus"), nil); err == nil {
		t.Fatal("expected error for unknown event")
	}
}

func TestPublishSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic limit exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyServer = server.URL
	cfg.Notifications.NtfyTopic = "renders"

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

type recordingService struct {
	events   []notifications.Event
	payloads []notifications.Payload
}

func (r *recordingService) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

func TestRenderNotifierBuildsPayloads(t *testing.T) {
	rec := &recordingService{}
	notifier := notifications.NewRenderNotifier(rec, nil)
	ctx := context.Background()

	notifier.RenderCompleted(ctx, "Dune Part Two 2024", 90*time.Second)
	notifier.RenderFailed(ctx, "Arrival", "decode error")
	notifier.RenderStopped(ctx, "The Matrix")

	if len(rec.events) != 3 {
		t.Fatalf("published %d events, want 3", len(rec.events))
	}
	if rec.events[0] != notifications.EventRenderCompleted {
		t.Errorf("first event = %s", rec.events[0])
	}
	if got := rec.payloads[0]["elapsed"]; got != "1m30s" {
		t.Errorf("elapsed = %q, want 1m30s", got)
	}
	if got := rec.payloads[1]["error"]; got != "decode error" {
		t.Errorf("error payload = %q", got)
	}
	if got := rec.payloads[2]["title"]; got != "The Matrix" {
		t.Errorf("stopped title = %q", got)
	}
}
