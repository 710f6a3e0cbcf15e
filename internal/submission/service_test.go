package submission

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/certhub/internal/authz"
	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/domain/receiver"
	"github.com/geocoder89/certhub/internal/notifications"
)

type fakeEvents struct {
	ev        event.Event
	getErr    error
	submitted bool
}

func (f *fakeEvents) GetByID(_ context.Context, id string) (event.Event, error) {
	if f.getErr != nil {
		return event.Event{}, f.getErr
	}
	e := f.ev
	e.IsSubmitted = f.submitted || e.IsSubmitted
	return e, nil
}

func (f *fakeEvents) MarkSubmitted(context.Context, string) error {
	f.submitted = true
	return nil
}

type fakeAttendees struct {
	list   []attendee.Attendee
	marked bool
}

func (f *fakeAttendees) ListByEvent(context.Context, string) ([]attendee.Attendee, error) {
	return f.list, nil
}

func (f *fakeAttendees) MarkCertificatesSent(context.Context, string) error {
	f.marked = true
	return nil
}

type fakeReceivers struct{ list []receiver.Receiver }

func (f *fakeReceivers) ListByEvent(context.Context, string) ([]receiver.Receiver, error) {
	return f.list, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	certs     []string
	summaries []string
	failFor   string
}

func (n *recordingNotifier) SendCertificate(_ context.Context, in notifications.CertificateInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if in.Attendee.Email == n.failFor {
		return errors.New("mailbox unavailable")
	}
	n.certs = append(n.certs, in.Attendee.Email)
	return nil
}

func (n *recordingNotifier) SendSummary(_ context.Context, in notifications.SummaryInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if in.To == n.failFor {
		return errors.New("mailbox unavailable")
	}
	n.summaries = append(n.summaries, in.To)
	return nil
}

func setup(failFor string) (*Service, *fakeEvents, *fakeAttendees, *recordingNotifier) {
	events := &fakeEvents{ev: event.Event{ID: "e1", UserID: "owner", Name: "CPR"}}
	attendees := &fakeAttendees{list: []attendee.Attendee{
		{ID: "a1", Email: "a1@example.com"},
		{ID: "a2", Email: "a2@example.com"},
	}}
	receivers := &fakeReceivers{list: []receiver.Receiver{{ID: "r1", Email: "boss@example.com"}}}
	n := &recordingNotifier{failFor: failFor}

	return NewService(events, attendees, receivers, n, nil), events, attendees, n
}

func TestSubmit_SendsEverythingThenMarksSubmitted(t *testing.T) {
	svc, events, attendees, n := setup("")

	ev, err := svc.Submit(context.Background(), "owner", "e1")
	require.NoError(t, err)

	assert.True(t, ev.IsSubmitted)
	assert.True(t, events.submitted)
	assert.True(t, attendees.marked)
	assert.ElementsMatch(t, []string{"a1@example.com", "a2@example.com"}, n.certs)
	assert.Equal(t, []string{"boss@example.com"}, n.summaries)
}

func TestSubmit_DispatchFailureLeavesEventUnsubmitted(t *testing.T) {
	for _, failFor := range []string{"a2@example.com", "boss@example.com"} {
		t.Run(failFor, func(t *testing.T) {
			svc, events, attendees, _ := setup(failFor)

			_, err := svc.Submit(context.Background(), "owner", "e1")
			require.ErrorIs(t, err, ErrDispatchFailed)

			assert.False(t, events.submitted)
			assert.False(t, attendees.marked)
		})
	}
}

func TestSubmit_Rejections(t *testing.T) {
	t.Run("non owner", func(t *testing.T) {
		svc, events, _, n := setup("")

		_, err := svc.Submit(context.Background(), "intruder", "e1")
		require.ErrorIs(t, err, authz.ErrForbidden)
		assert.False(t, events.submitted)
		assert.Empty(t, n.certs)
	})

	t.Run("already submitted", func(t *testing.T) {
		svc, events, _, _ := setup("")
		events.submitted = true

		_, err := svc.Submit(context.Background(), "owner", "e1")
		require.ErrorIs(t, err, event.ErrAlreadySubmitted)
	})

	t.Run("missing event", func(t *testing.T) {
		svc, events, _, _ := setup("")
		events.getErr = event.ErrNotFound

		_, err := svc.Submit(context.Background(), "owner", "e1")
		require.ErrorIs(t, err, event.ErrNotFound)
	})
}
