package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/render"
)

// RenderNotifier adapts the notification service onto the render manager's
// notifier hooks. Delivery failures are logged, never surfaced: a dropped
// push must not fail a render.
type RenderNotifier struct {
	svc    Service
	logger *slog.Logger
}

var _ render.Notifier = (*RenderNotifier)(nil)

// NewRenderNotifier wraps svc for use as the manager's notifier. A nil
// logger silences delivery warnings.
func NewRenderNotifier(svc Service, logger *slog.Logger) *RenderNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RenderNotifier{svc: svc, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (n *RenderNotifier) RenderCompleted(ctx context.Context, title string, elapsed time.Duration) {
	n.publish(ctx, EventRenderCompleted, Payload{
		"title":   title,
		"elapsed": formatElapsed(elapsed),
	})
}

func (n *RenderNotifier) RenderFailed(ctx context.Context, title, errorText string) {
	n.publish(ctx, EventRenderFailed, Payload{
		"title": title,
		"error": errorText,
	})
}

func (n *RenderNotifier) RenderStopped(ctx context.Context, title string) {
	n.publish(ctx, EventRenderStopped, Payload{"title": title})
}

func (n *RenderNotifier) publish(ctx context.Context, event Event, payload Payload) {
	if n == nil || n.svc == nil {
		return
	}
	if err := n.svc.Publish(ctx, event, payload); err != nil {
		n.logger.Warn("notification delivery failed",
			logging.String("event", string(event)),
			logging.Error(err))
	}
}

func formatElapsed(elapsed time.Duration) string {
	elapsed = elapsed.Round(time.Second)
	if elapsed <= 0 {
		return ""
	}
	return elapsed.String()
}
