package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/certhub/internal/authz"
	"github.com/geocoder89/certhub/internal/config"
	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/geocoder89/certhub/internal/submission"
	"github.com/geocoder89/certhub/internal/utils"
)

type EventStore interface {
	Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id string) error
}

type Submitter interface {
	Submit(ctx context.Context, principalID, eventID string) (event.Event, error)
}

type EventsHandler struct {
	repo      EventStore
	submitter Submitter
	log       *slog.Logger
}

func NewEventsHandler(repo EventStore, submitter Submitter, log *slog.Logger) *EventsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventsHandler{repo: repo, submitter: submitter, log: log}
}

// loadOwnedEvent resolves :id to an event the caller owns. It writes the
// error response itself and reports whether the caller may proceed.
func loadOwnedEvent(ctx *gin.Context, cctx context.Context, repo EventGetter, userID, forbiddenMsg string) (event.Event, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return event.Event{}, false
	}

	e, err := authz.RequireOwner(cctx, userID, func(c context.Context) (event.Event, error) {
		return repo.GetByID(c, id)
	})
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, authz.ErrForbidden):
			RespondForbidden(ctx, forbiddenMsg)
		default:
			RespondInternal(ctx, "Could not fetch event")
		}
		return event.Event{}, false
	}

	return e, true
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	var req event.CreateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}
	req.UserID = userID

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	created, err := h.repo.Create(cctx, req)
	if err != nil {
		h.log.ErrorContext(cctx, "create_event_failed", "user_id", userID, observability.Err(err))
		RespondInternal(ctx, "Could not create event")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *EventsHandler) GetEventByID(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	e, ok := loadOwnedEvent(ctx, cctx, h.repo, userID, "You don't own this event.")
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, e)
}

func (h *EventsHandler) UpdateEvent(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	var req event.UpdateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	e, ok := loadOwnedEvent(ctx, cctx, h.repo, userID, "You don't own this event and cannot update it.")
	if !ok {
		return
	}

	if _, err := h.repo.Update(cctx, e.ID, req); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		h.log.ErrorContext(cctx, "update_event_failed", "event_id", e.ID, observability.Err(err))
		RespondInternal(ctx, "Could not update event")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	e, ok := loadOwnedEvent(ctx, cctx, h.repo, userID, "You don't own this event and cannot delete it.")
	if !ok {
		return
	}

	// attendees and receivers go with it (ON DELETE CASCADE)
	if err := h.repo.Delete(cctx, e.ID); err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		h.log.ErrorContext(cctx, "delete_event_failed", "event_id", e.ID, observability.Err(err))
		RespondInternal(ctx, "Could not delete event")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// SubmitEvent sends certificates and summaries, then marks the event submitted.
func (h *EventsHandler) SubmitEvent(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return
	}

	// dispatch fans out to the mail provider, so allow more than a db call
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 30*dbTimeout)
	defer cancel()

	e, err := h.submitter.Submit(cctx, userID, id)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, authz.ErrForbidden):
			RespondForbidden(ctx, "You don't own this event and cannot submit it.")
		case errors.Is(err, event.ErrAlreadySubmitted):
			RespondConflict(ctx, "already_submitted", "This event has already been submitted.")
		case errors.Is(err, submission.ErrDispatchFailed):
			RespondBadGateway(ctx, "dispatch_failed", "Could not deliver certificates. The event was not submitted.")
		default:
			h.log.ErrorContext(cctx, "submit_event_failed", "event_id", id, observability.Err(err))
			RespondInternal(ctx, "Could not submit event")
		}
		return
	}

	ctx.JSON(http.StatusOK, e)
}
