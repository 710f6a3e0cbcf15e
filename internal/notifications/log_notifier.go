package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogNotifier writes dispatches to the log instead of sending mail.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendCertificate(ctx context.Context, in CertificateInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.certificate",
		"email", in.Attendee.Email,
		"name", in.Attendee.Name(),
		"event_id", in.Event.ID,
		"attendee_id", in.Attendee.ID,
	)
	return nil
}

func (n *LogNotifier) SendSummary(ctx context.Context, in SummaryInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.summary",
		"email", in.To,
		"event_id", in.Event.ID,
		"attendees", len(in.Attendees),
	)
	return nil
}

// NOTIFIER_SLEEP_MS and NOTIFIER_FAIL let local runs exercise the timeout
// and breaker paths.
func simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}
	return nil
}
