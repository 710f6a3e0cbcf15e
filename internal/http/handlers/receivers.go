package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/certhub/internal/authz"
	"github.com/geocoder89/certhub/internal/config"
	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/domain/receiver"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/geocoder89/certhub/internal/utils"
)

const MsgReceiverTaken = "This email is already registered as a receiver."

type ReceiverStore interface {
	Create(ctx context.Context, req receiver.CreateReceiverRequest) (receiver.Receiver, error)
	ListByEvent(ctx context.Context, eventID string) ([]receiver.Receiver, error)
	GetByID(ctx context.Context, id string) (receiver.Receiver, error)
	Delete(ctx context.Context, id string) error
}

type ReceiversHandler struct {
	receivers ReceiverStore
	events    EventGetter
	log       *slog.Logger
}

func NewReceiversHandler(receivers ReceiverStore, events EventGetter, log *slog.Logger) *ReceiversHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ReceiversHandler{receivers: receivers, events: events, log: log}
}

func (h *ReceiversHandler) CreateReceiver(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	var req receiver.CreateReceiverRequest
	if !BindJSON(ctx, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) {
		RespondBadRequest(ctx, MsgInvalidEmail, nil)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	e, ok := loadOwnedEvent(ctx, cctx, h.events, userID, "You don't own this event and cannot add receivers to it.")
	if !ok {
		return
	}
	req.EventID = e.ID

	created, err := h.receivers.Create(cctx, req)
	if err != nil {
		if errors.Is(err, receiver.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", MsgReceiverTaken)
			return
		}
		h.log.ErrorContext(cctx, "create_receiver_failed", "event_id", e.ID, observability.Err(err))
		RespondInternal(ctx, "Could not create receiver")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *ReceiversHandler) ListByEvent(ctx *gin.Context) {
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

	items, err := h.receivers.ListByEvent(cctx, e.ID)
	if err != nil {
		h.log.ErrorContext(cctx, "list_receivers_failed", "event_id", e.ID, observability.Err(err))
		RespondInternal(ctx, "Could not list receivers")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items})
}

// DeleteReceiver is allowed for the owner of the receiver's event.
func (h *ReceiversHandler) DeleteReceiver(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Receiver not found")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	r, err := h.receivers.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, receiver.ErrNotFound) {
			RespondNotFound(ctx, "Receiver not found")
			return
		}
		h.log.ErrorContext(cctx, "get_receiver_failed", "receiver_id", id, observability.Err(err))
		RespondInternal(ctx, "Could not fetch receiver")
		return
	}

	_, err = authz.RequireOwner(cctx, userID, func(c context.Context) (event.Event, error) {
		return h.events.GetByID(c, r.EventID)
	})
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Receiver not found")
		case errors.Is(err, authz.ErrForbidden):
			RespondForbidden(ctx, "You don't own this receiver's event and cannot delete it.")
		default:
			h.log.ErrorContext(cctx, "get_event_failed", "event_id", r.EventID, observability.Err(err))
			RespondInternal(ctx, "Could not fetch event")
		}
		return
	}

	if err := h.receivers.Delete(cctx, r.ID); err != nil {
		if errors.Is(err, receiver.ErrNotFound) {
			RespondNotFound(ctx, "Receiver not found")
			return
		}
		h.log.ErrorContext(cctx, "delete_receiver_failed", "receiver_id", r.ID, observability.Err(err))
		RespondInternal(ctx, "Could not delete receiver")
		return
	}

	ctx.Status(http.StatusNoContent)
}
