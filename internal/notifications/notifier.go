package notifications

import (
	"context"

	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/domain/event"
)

const (
	KindCertificate = "certificate"
	KindSummary     = "summary"
)

type CertificateInput struct {
	Attendee attendee.Attendee
	Event    event.Event
}

// SummaryInput goes to one receiver and lists everyone who attended.
type SummaryInput struct {
	To        string
	Event     event.Event
	Attendees []attendee.Attendee
}

type Notifier interface {
	SendCertificate(ctx context.Context, input CertificateInput) error
	SendSummary(ctx context.Context, input SummaryInput) error
}
