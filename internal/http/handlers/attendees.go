package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/certhub/internal/authz"
	"github.com/geocoder89/certhub/internal/blob"
	"github.com/geocoder89/certhub/internal/config"
	"github.com/geocoder89/certhub/internal/domain/attendee"
	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/geocoder89/certhub/internal/utils"
)

const MsgSignatureRequired = "Send a base64 encoded png image of the signature"

type AttendeeStore interface {
	Create(ctx context.Context, a attendee.Attendee) (attendee.Attendee, error)
	ListByEvent(ctx context.Context, eventID string) ([]attendee.Attendee, error)
	GetByID(ctx context.Context, id string) (attendee.Attendee, error)
	Update(ctx context.Context, id string, req attendee.UpdateAttendeeRequest) (attendee.Attendee, error)
	Delete(ctx context.Context, id string) error
}

type EventGetter interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
}

type AttendeesHandler struct {
	attendees  AttendeeStore
	events     EventGetter
	signatures blob.SignatureStore
	log        *slog.Logger
}

func NewAttendeesHandler(attendees AttendeeStore, events EventGetter, signatures blob.SignatureStore, log *slog.Logger) *AttendeesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AttendeesHandler{attendees: attendees, events: events, signatures: signatures, log: log}
}

// CreateAttendee registers an attendee on an event the caller owns and
// stores the signature image.
func (h *AttendeesHandler) CreateAttendee(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	var req attendee.CreateAttendeeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	img, err := blob.DecodeSignature(req.Signature)
	if err != nil {
		RespondBadRequest(ctx, MsgSignatureRequired, nil)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	e, ok := loadOwnedEvent(ctx, cctx, h.events, userID, "You don't own this event and cannot add attendees to it.")
	if !ok {
		return
	}

	req.EventID = e.ID
	req.UserID = userID

	key := blob.NewKey()
	if err := h.signatures.PutSignature(cctx, key, img); err != nil {
		h.log.ErrorContext(cctx, "signature_upload_failed", "event_id", e.ID, observability.Err(err))
		RespondInternal(ctx, "Could not store signature")
		return
	}

	created, err := h.attendees.Create(cctx, attendee.NewFromCreateRequest(req, key))
	if err != nil {
		h.log.ErrorContext(cctx, "create_attendee_failed", "event_id", e.ID, observability.Err(err))
		RespondInternal(ctx, "Could not create attendee")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *AttendeesHandler) ListByEvent(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	e, ok := loadOwnedEvent(ctx, cctx, h.events, userID, "You don't own this event.")
	if !ok {
		return
	}

	items, err := h.attendees.ListByEvent(cctx, e.ID)
	if err != nil {
		h.log.ErrorContext(cctx, "list_attendees_failed", "event_id", e.ID, observability.Err(err))
		RespondInternal(ctx, "Could not list attendees")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items})
}

func (h *AttendeesHandler) loadOwned(ctx *gin.Context, cctx context.Context, userID, forbiddenMsg string) (attendee.Attendee, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Attendee not found")
		return attendee.Attendee{}, false
	}

	a, err := authz.RequireOwner(cctx, userID, func(c context.Context) (attendee.Attendee, error) {
		return h.attendees.GetByID(c, id)
	})
	if err != nil {
		switch {
		case errors.Is(err, attendee.ErrNotFound):
			RespondNotFound(ctx, "Attendee not found")
		case errors.Is(err, authz.ErrForbidden):
			RespondForbidden(ctx, forbiddenMsg)
		default:
			h.log.ErrorContext(cctx, "get_attendee_failed", "attendee_id", id, observability.Err(err))
			RespondInternal(ctx, "Could not fetch attendee")
		}
		return attendee.Attendee{}, false
	}

	return a, true
}

func (h *AttendeesHandler) GetAttendee(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	a, ok := h.loadOwned(ctx, cctx, userID, "You don't own this attendee.")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, a)
}

func (h *AttendeesHandler) UpdateAttendee(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	var req attendee.UpdateAttendeeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	a, ok := h.loadOwned(ctx, cctx, userID, "You don't own this attendee and cannot update it.")
	if !ok {
		return
	}

	updated, err := h.attendees.Update(cctx, a.ID, req)
	if err != nil {
		if errors.Is(err, attendee.ErrNotFound) {
			RespondNotFound(ctx, "Attendee not found")
			return
		}
		h.log.ErrorContext(cctx, "update_attendee_failed", "attendee_id", a.ID, observability.Err(err))
		RespondInternal(ctx, "Could not update attendee")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *AttendeesHandler) DeleteAttendee(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	a, ok := h.loadOwned(ctx, cctx, userID, "You don't own this attendee and cannot delete it.")
	if !ok {
		return
	}

	if err := h.attendees.Delete(cctx, a.ID); err != nil {
		if errors.Is(err, attendee.ErrNotFound) {
			RespondNotFound(ctx, "Attendee not found")
			return
		}
		h.log.ErrorContext(cctx, "delete_attendee_failed", "attendee_id", a.ID, observability.Err(err))
		RespondInternal(ctx, "Could not delete attendee")
		return
	}

	ctx.Status(http.StatusNoContent)
}
