package notifications

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/geocoder89/certhub/internal/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ResendNotifier delivers certificate and summary mail through the Resend API.
type ResendNotifier struct {
	client *resend.Client
	from   string
	log    *slog.Logger
	prom   *observability.Prom
}

func NewResendNotifier(client *resend.Client, from string, log *slog.Logger, prom *observability.Prom) *ResendNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &ResendNotifier{client: client, from: from, log: log, prom: prom}
}

func (n *ResendNotifier) SendCertificate(ctx context.Context, in CertificateInput) error {
	subject := fmt.Sprintf("Your certificate for %s", in.Event.Name)

	err := n.send(ctx, KindCertificate, in.Attendee.Email, subject, "certificate.html", in)
	n.prom.ObserveEmail(KindCertificate, err)
	return err
}

func (n *ResendNotifier) SendSummary(ctx context.Context, in SummaryInput) error {
	subject := fmt.Sprintf("Attendance summary for %s", in.Event.Name)

	err := n.send(ctx, KindSummary, in.To, subject, "summary.html", in)
	n.prom.ObserveEmail(KindSummary, err)
	return err
}

func (n *ResendNotifier) send(ctx context.Context, kind, to, subject, tmpl string, data any) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}

	sent, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Html:    body.String(),
	})
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			n.log.WarnContext(ctx, "resend_rate_limited",
				"kind", kind,
				"limit", rateLimitErr.Limit,
				"reset", rateLimitErr.Reset,
			)
		}
		return fmt.Errorf("resend %s: %w", kind, err)
	}

	n.log.InfoContext(ctx, "email_sent", "kind", kind, "email_id", sent.Id, "to", to)
	return nil
}
