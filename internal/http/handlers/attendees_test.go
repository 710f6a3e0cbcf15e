package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/certhub/internal/blob"
	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/http/handlers"
)

const attendeeID = "1d7f4c0e-5b5a-4f7e-a0f5-8f6f6a2c9b41"

func signatureDataURL(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func attendeeBody(signature string) string {
	return fmt.Sprintf(`{"firstname":"Grace","lastname":"Hopper","email":"grace@example.com","signature":%q}`, signature)
}

func TestCreateAttendeeHandler(t *testing.T) {
	sig := signatureDataURL(t)

	tests := []struct {
		name        string
		userID      string
		body        string
		wantStatus  int
		wantMessage string
		wantStored  int
	}{
		{name: "success", userID: ownerID, body: attendeeBody(sig), wantStatus: http.StatusCreated, wantStored: 1},
		{name: "missing_signature", userID: ownerID, body: attendeeBody(""), wantStatus: http.StatusBadRequest, wantMessage: handlers.MsgSignatureRequired},
		{name: "not_a_png", userID: ownerID, body: attendeeBody(base64.StdEncoding.EncodeToString([]byte("hello"))), wantStatus: http.StatusBadRequest, wantMessage: handlers.MsgSignatureRequired},
		{name: "not_event_owner", userID: strangerID, body: attendeeBody(sig), wantStatus: http.StatusForbidden},
		{name: "invalid_email", userID: ownerID, body: `{"firstname":"Grace","lastname":"Hopper","email":"nope","signature":"x"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			attendees := &fakeAttendeesRepo{}
			store := blob.NewMemoryStore()

			h := handlers.NewAttendeesHandler(attendees, &fakeEventsRepo{getFn: ownedBy(ownerID)}, store, nil)
			r := setupRouter(http.MethodPost, "/events/:id/attendees", tt.userID, h.CreateAttendee)

			w := doJSON(r, http.MethodPost, "/events/"+eventID+"/attendees", tt.body)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			require.Len(t, attendees.created, tt.wantStored)

			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, decodeError(t, w).Message)
			}

			if tt.wantStored == 1 {
				created := attendees.created[0]
				assert.Equal(t, eventID, created.EventID)
				assert.Equal(t, ownerID, created.UserID)
				assert.False(t, created.ReceivedCertificate)

				img, ok := store.Get(created.Signature)
				require.True(t, ok, "signature should be stored under the attendee's key")
				_, err := png.DecodeConfig(bytes.NewReader(img))
				assert.NoError(t, err)
			}
		})
	}
}

func TestListAttendeesHandler(t *testing.T) {
	attendees := &fakeAttendeesRepo{
		listFn: func(ctx context.Context, id string) ([]attendee.Attendee, error) {
			return []attendee.Attendee{{ID: attendeeID, EventID: id, UserID: ownerID}}, nil
		},
	}

	h := handlers.NewAttendeesHandler(attendees, &fakeEventsRepo{getFn: ownedBy(ownerID)}, blob.NewMemoryStore(), nil)

	r := setupRouter(http.MethodGet, "/events/:id/attendees", ownerID, h.ListByEvent)
	w := doJSON(r, http.MethodGet, "/events/"+eventID+"/attendees", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Items []attendee.Attendee `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, eventID, resp.Items[0].EventID)

	r = setupRouter(http.MethodGet, "/events/:id/attendees", strangerID, h.ListByEvent)
	w = doJSON(r, http.MethodGet, "/events/"+eventID+"/attendees", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttendeeOwnerOnlyOperations(t *testing.T) {
	owned := func(ctx context.Context, id string) (attendee.Attendee, error) {
		if id != attendeeID {
			return attendee.Attendee{}, attendee.ErrNotFound
		}
		return attendee.Attendee{ID: attendeeID, EventID: eventID, UserID: ownerID}, nil
	}

	updateBody := `{"firstname":"Grace","lastname":"Murray","email":"grace@example.com"}`

	tests := []struct {
		name       string
		method     string
		userID     string
		id         string
		body       string
		wantStatus int
	}{
		{name: "get_owner", method: http.MethodGet, userID: ownerID, id: attendeeID, wantStatus: http.StatusOK},
		{name: "get_stranger", method: http.MethodGet, userID: strangerID, id: attendeeID, wantStatus: http.StatusForbidden},
		{name: "get_missing", method: http.MethodGet, userID: ownerID, id: eventID, wantStatus: http.StatusNotFound},
		{name: "update_owner", method: http.MethodPut, userID: ownerID, id: attendeeID, body: updateBody, wantStatus: http.StatusOK},
		{name: "update_stranger", method: http.MethodPut, userID: strangerID, id: attendeeID, body: updateBody, wantStatus: http.StatusForbidden},
		{name: "delete_owner", method: http.MethodDelete, userID: ownerID, id: attendeeID, wantStatus: http.StatusNoContent},
		{name: "delete_stranger", method: http.MethodDelete, userID: strangerID, id: attendeeID, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			attendees := &fakeAttendeesRepo{getFn: owned}
			h := handlers.NewAttendeesHandler(attendees, &fakeEventsRepo{}, blob.NewMemoryStore(), nil)

			var fn gin.HandlerFunc
			switch tt.method {
			case http.MethodGet:
				fn = h.GetAttendee
			case http.MethodPut:
				fn = h.UpdateAttendee
			default:
				fn = h.DeleteAttendee
			}

			r := setupRouter(tt.method, "/attendees/:id", tt.userID, fn)
			w := doJSON(r, tt.method, "/attendees/"+tt.id, tt.body)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.method == http.MethodDelete && tt.wantStatus != http.StatusNoContent {
				assert.Zero(t, attendees.deleted)
			}
		})
	}
}
