package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/certhub/internal/config"
	"github.com/geocoder89/certhub/internal/domain/subscription"
	"github.com/geocoder89/certhub/internal/observability"
)

const (
	MsgSecondTrial        = "Unable to create a second trial period."
	MsgReceiptInvalid     = "Error validating iOS purchase receipt"
	MsgAndroidUnsupported = "android receipt verification is not yet supported"
	msgInvalidPlatform    = "Invalid platform specified: "

	// covers two App Store round trips
	receiptTimeout = 20 * time.Second
)

type SubscriptionService interface {
	Create(ctx context.Context, userID string, req subscription.CreateRequest) (subscription.Status, error)
	Status(ctx context.Context, userID string) (subscription.Status, error)
}

type SubscriptionsHandler struct {
	svc SubscriptionService
	log *slog.Logger
}

func NewSubscriptionsHandler(svc SubscriptionService, log *slog.Logger) *SubscriptionsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SubscriptionsHandler{svc: svc, log: log}
}

func (h *SubscriptionsHandler) Create(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	var req subscription.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), receiptTimeout)
	defer cancel()

	status, err := h.svc.Create(cctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrTrialExists):
			RespondBadRequest(ctx, MsgSecondTrial, nil)
		case errors.Is(err, subscription.ErrReceiptInvalid):
			RespondBadRequest(ctx, MsgReceiptInvalid, nil)
		case errors.Is(err, subscription.ErrPlatformUnsupported):
			RespondBadRequest(ctx, MsgAndroidUnsupported, nil)
		case errors.Is(err, subscription.ErrInvalidPlatform):
			RespondBadRequest(ctx, msgInvalidPlatform+req.Platform, nil)
		default:
			h.log.ErrorContext(cctx, "create_subscription_failed",
				"user_id", userID,
				"platform", req.Platform,
				observability.Err(err),
			)
			RespondInternal(ctx, "Could not create subscription")
		}
		return
	}

	ctx.JSON(http.StatusOK, status)
}

func (h *SubscriptionsHandler) Status(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	status, err := h.svc.Status(cctx, userID)
	if err != nil {
		h.log.ErrorContext(cctx, "subscription_status_failed", "user_id", userID, observability.Err(err))
		RespondInternal(ctx, "Could not load subscription status")
		return
	}

	ctx.JSON(http.StatusOK, status)
}
