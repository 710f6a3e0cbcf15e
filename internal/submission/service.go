package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/geocoder89/certhub/internal/authz"
	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/domain/receiver"
	"github.com/geocoder89/certhub/internal/notifications"
	"github.com/geocoder89/certhub/internal/observability"
)

var ErrDispatchFailed = errors.New("certificate dispatch failed")

type EventsRepo interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	MarkSubmitted(ctx context.Context, id string) error
}

type AttendeesRepo interface {
	ListByEvent(ctx context.Context, eventID string) ([]attendee.Attendee, error)
	MarkCertificatesSent(ctx context.Context, eventID string) error
}

type ReceiversRepo interface {
	ListByEvent(ctx context.Context, eventID string) ([]receiver.Receiver, error)
}

type Service struct {
	events    EventsRepo
	attendees AttendeesRepo
	receivers ReceiversRepo
	notifier  notifications.Notifier
	log       *slog.Logger

	// MaxParallel bounds concurrent sends.
	MaxParallel int
}

func NewService(events EventsRepo, attendees AttendeesRepo, receivers ReceiversRepo, notifier notifications.Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		events:      events,
		attendees:   attendees,
		receivers:   receivers,
		notifier:    notifier,
		log:         log,
		MaxParallel: 8,
	}
}

// Submit sends a certificate to every attendee and a summary to every
// receiver, then marks the event submitted. The event is only marked once
// every send has succeeded.
func (s *Service) Submit(ctx context.Context, principalID, eventID string) (event.Event, error) {
	ev, err := authz.RequireOwner(ctx, principalID, func(ctx context.Context) (event.Event, error) {
		return s.events.GetByID(ctx, eventID)
	})
	if err != nil {
		return event.Event{}, err
	}

	if ev.IsSubmitted {
		return event.Event{}, event.ErrAlreadySubmitted
	}

	var (
		attendees []attendee.Attendee
		receivers []receiver.Receiver
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attendees, err = s.attendees.ListByEvent(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		receivers, err = s.receivers.ListByEvent(gctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		return event.Event{}, err
	}

	if err := s.dispatch(ctx, ev, attendees, receivers); err != nil {
		s.log.ErrorContext(ctx, "event_submit_dispatch_failed",
			"event_id", eventID,
			observability.Err(err),
		)
		return event.Event{}, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	if err := s.attendees.MarkCertificatesSent(ctx, eventID); err != nil {
		return event.Event{}, err
	}

	if err := s.events.MarkSubmitted(ctx, eventID); err != nil {
		return event.Event{}, err
	}

	s.log.InfoContext(ctx, "event_submitted",
		"event_id", eventID,
		"certificates", len(attendees),
		"summaries", len(receivers),
	)

	ev.IsSubmitted = true
	return ev, nil
}

func (s *Service) dispatch(ctx context.Context, ev event.Event, attendees []attendee.Attendee, receivers []receiver.Receiver) error {
	g, gctx := errgroup.WithContext(ctx)
	if s.MaxParallel > 0 {
		g.SetLimit(s.MaxParallel)
	}

	for _, a := range attendees {
		g.Go(func() error {
			return s.notifier.SendCertificate(gctx, notifications.CertificateInput{Attendee: a, Event: ev})
		})
	}

	for _, r := range receivers {
		g.Go(func() error {
			return s.notifier.SendSummary(gctx, notifications.SummaryInput{To: r.Email, Event: ev, Attendees: attendees})
		})
	}

	return g.Wait()
}
