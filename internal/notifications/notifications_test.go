package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/domain/event"
)

type fakeNotifier struct {
	err   error
	block bool
	calls int
}

func (f *fakeNotifier) SendCertificate(ctx context.Context, _ CertificateInput) error {
	f.calls++
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeNotifier) SendSummary(ctx context.Context, _ SummaryInput) error {
	return f.SendCertificate(ctx, CertificateInput{})
}

func sampleEvent() event.Event {
	credits := 2.5
	presenter := "Dr. Ruth"
	return event.Event{
		ID:                    "e1",
		Name:                  "CPR Refresher",
		Date:                  time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		City:                  "Austin",
		State:                 "TX",
		CourseNo:              "CPR-101",
		CourseName:            "Adult CPR",
		NumberOfCourseCredits: &credits,
		PresenterName:         &presenter,
	}
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	ctx := context.Background()
	assert.Error(t, n.SendCertificate(ctx, CertificateInput{}))
	assert.Error(t, n.SendCertificate(ctx, CertificateInput{}))
	assert.Equal(t, "open", n.State())

	require.ErrorIs(t, n.SendSummary(ctx, SummaryInput{}), ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)

	// cooldown elapsed, one probe succeeds and closes the circuit
	clock = clock.Add(2 * time.Minute)
	inner.err = nil

	require.NoError(t, n.SendCertificate(ctx, CertificateInput{}))
	assert.Equal(t, "closed", n.State())
}

func TestProtectedNotifier_FailedProbeReopens(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("provider down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Second})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	assert.Error(t, n.SendCertificate(context.Background(), CertificateInput{}))
	assert.Equal(t, "open", n.State())

	clock = clock.Add(2 * time.Second)
	assert.Error(t, n.SendCertificate(context.Background(), CertificateInput{}))
	assert.Equal(t, "open", n.State())
}

func TestProtectedNotifier_TimesOutSlowProvider(t *testing.T) {
	inner := &fakeNotifier{block: true}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{Timeout: 20 * time.Millisecond})

	err := n.SendCertificate(context.Background(), CertificateInput{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProtectedNotifier_CallerCancelDoesNotCount(t *testing.T) {
	inner := &fakeNotifier{block: true}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, n.SendCertificate(ctx, CertificateInput{}))
	assert.Equal(t, "closed", n.State())
}

func TestResendNotifier_SendsRenderedCertificate(t *testing.T) {
	var got resend.SendEmailRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "email-1"})
	}))
	defer srv.Close()

	client := resend.NewClient("test-key")
	client.BaseURL, _ = url.Parse(srv.URL)

	n := NewResendNotifier(client, "certs@example.com", nil, nil)

	err := n.SendCertificate(context.Background(), CertificateInput{
		Attendee: attendee.Attendee{Firstname: "Ada", Lastname: "Lovelace", Email: "ada@example.com"},
		Event:    sampleEvent(),
	})
	require.NoError(t, err)

	assert.Equal(t, "certs@example.com", got.From)
	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, "Your certificate for CPR Refresher", got.Subject)
	assert.Contains(t, got.Html, "Ada Lovelace")
	assert.Contains(t, got.Html, "CPR-101 Adult CPR")
	assert.Contains(t, got.Html, "2.5")
	assert.Contains(t, got.Html, "Dr. Ruth")
}

func TestResendNotifier_SummaryListsAttendees(t *testing.T) {
	var got resend.SendEmailRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "email-2"})
	}))
	defer srv.Close()

	client := resend.NewClient("test-key")
	client.BaseURL, _ = url.Parse(srv.URL)

	n := NewResendNotifier(client, "certs@example.com", nil, nil)

	err := n.SendSummary(context.Background(), SummaryInput{
		To:    "boss@example.com",
		Event: sampleEvent(),
		Attendees: []attendee.Attendee{
			{Firstname: "Ada", Lastname: "Lovelace", Email: "ada@example.com"},
			{Firstname: "Alan", Lastname: "Turing", Email: "alan@example.com"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"boss@example.com"}, got.To)
	assert.Equal(t, 2, strings.Count(got.Html, "@example.com</td>"))
}

func TestResendNotifier_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"statusCode": 422, "message": "invalid from", "name": "validation_error"})
	}))
	defer srv.Close()

	client := resend.NewClient("test-key")
	client.BaseURL, _ = url.Parse(srv.URL)

	n := NewResendNotifier(client, "bad", nil, nil)

	err := n.SendCertificate(context.Background(), CertificateInput{Event: sampleEvent()})
	require.Error(t, err)
}
