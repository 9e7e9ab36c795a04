package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/config"
)

const userAgent = "Szhimatar/2.0"

// Event identifies one notification kind.
type Event string

const (
	EventRenderCompleted Event = "render_completed"
	EventRenderFailed    Event = "render_failed"
	EventRenderStopped   Event = "render_stopped"
	EventDaemonStarted   Event = "daemon_started"
	EventTest            Event = "test"
)

// Payload carries the event-specific fields used when formatting a
// notification. Unknown keys are ignored.
type Payload map[string]string

// Service is the notification surface exposed to the daemon and the render
// manager.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      strings.TrimSuffix(cfg.Notifications.NtfyServer, "/") + "/" + topic,
		client:        &http.Client{Timeout: timeout},
		notifyRenders: cfg.Notifications.Renders,
		notifyErrors:  cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	notifyRenders bool
	notifyErrors  bool
}

// Publish formats the event and posts it to the configured topic. Events
// suppressed by the renders/errors toggles return nil without a request.
// Daemon-started and test always go through; test exists to verify
// connectivity.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	switch event {
	case EventRenderCompleted, EventRenderStopped:
		if !n.notifyRenders {
			return nil
		}
	case EventRenderFailed:
		if !n.notifyErrors {
			return nil
		}
	case EventDaemonStarted, EventTest:
	default:
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, format(event, payload))
}

func format(event Event, payload Payload) message {
	title := strings.TrimSpace(payload["title"])
	switch event {
	case EventRenderCompleted:
		body := fmt.Sprintf("✅ Render complete: %s", title)
		if elapsed := strings.TrimSpace(payload["elapsed"]); elapsed != "" {
			body = fmt.Sprintf("%s in %s", body, elapsed)
		}
		return message{
			title: "Szhimatar - Render Complete",
			body:  body,
			tags:  []string{"szhimatar", "render", "completed"},
		}
	case EventRenderFailed:
		var builder strings.Builder
		builder.WriteString("❌ Render failed: ")
		builder.WriteString(title)
		if errText := strings.TrimSpace(payload["error"]); errText != "" {
			builder.WriteString(": ")
			builder.WriteString(errText)
		}
		return message{
			title:    "Szhimatar - Render Failed",
			body:     builder.String(),
			tags:     []string{"szhimatar", "render", "failed"},
			priority: "high",
		}
	case EventRenderStopped:
		return message{
			title: "Szhimatar - Render Stopped",
			body:  fmt.Sprintf("🛑 Render stopped: %s", title),
			tags:  []string{"szhimatar", "render", "stopped"},
		}
	case EventDaemonStarted:
		body := "Daemon started"
		if host := strings.TrimSpace(payload["host"]); host != "" {
			body = fmt.Sprintf("Daemon started on %s", host)
		}
		return message{
			title: "Szhimatar - Daemon Started",
			body:  body,
			tags:  []string{"szhimatar", "daemon", "started"},
		}
	default:
		return message{
			title:    "Szhimatar - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"szhimatar", "test"},
			priority: "low",
		}
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
