package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/geocoder89/certhub/internal/auth"
	"github.com/geocoder89/certhub/internal/config"
	"github.com/geocoder89/certhub/internal/domain/event"
	"github.com/geocoder89/certhub/internal/domain/user"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/geocoder89/certhub/internal/security"
)

const (
	MsgInvalidEmail  = "Invalid email supplied."
	MsgEmailTaken    = "This email is already registered. Please try another or login."
	MsgShortPassword = "Please make sure your password is at least 5 character."
	MsgEmailNotFound = "Email not found."
	MsgAuthFailed    = "There was a problem authenticating."
	dbTimeout        = 3 * time.Second
)

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
}

type TokenIssuer interface {
	GenerateToken(id auth.Identity) (string, error)
}

type OwnedEventsLister interface {
	ListByUser(ctx context.Context, userID string) ([]event.Event, error)
}

type UsersHandler struct {
	users  UserStore
	events OwnedEventsLister
	tokens TokenIssuer
	log    *slog.Logger
}

func NewUsersHandler(users UserStore, events OwnedEventsLister, tokens TokenIssuer, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{users: users, events: events, tokens: tokens, log: log}
}

func (h *UsersHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if err := json.NewDecoder(ctx.Request.Body).Decode(&req); err != nil {
		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err, &req))
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) {
		RespondBadRequest(ctx, MsgInvalidEmail, nil)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	taken, err := h.users.EmailExists(cctx, req.Email)
	if err != nil {
		h.log.ErrorContext(cctx, "signup_email_check_failed", observability.Err(err))
		RespondInternal(ctx, "Could not create user")
		return
	}
	if taken {
		RespondBadRequest(ctx, MsgEmailTaken, nil)
		return
	}

	if len(req.Password) < user.MinPasswordLength {
		RespondBadRequest(ctx, MsgShortPassword, nil)
		return
	}

	if err := binding.Validator.ValidateStruct(&req); err != nil {
		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err, &req))
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	created, err := h.users.Create(cctx, user.New(req, hash))
	if err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, user.ErrEmailTaken) {
			RespondBadRequest(ctx, MsgEmailTaken, nil)
			return
		}
		h.log.ErrorContext(cctx, "signup_failed", observability.Err(err))
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusOK, created)
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondBadRequest(ctx, MsgEmailNotFound, nil)
			return
		}
		h.log.ErrorContext(cctx, "login_lookup_failed", observability.Err(err))
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "invalid_credentials", MsgAuthFailed)
		return
	}

	token, err := h.tokens.GenerateToken(auth.Identity{
		ID:        found.ID,
		Email:     found.Email,
		Firstname: found.Firstname,
		Lastname:  found.Lastname,
	})
	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

// GetByEmail serves GET /users?email=.
func (h *UsersHandler) GetByEmail(ctx *gin.Context) {
	email := strings.TrimSpace(ctx.Query("email"))
	if email == "" {
		RespondNotFound(ctx, MsgEmailNotFound)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, MsgEmailNotFound)
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	var req user.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	u, err := h.users.Update(cctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", MsgEmailTaken)
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// Events lists events owned by the caller.
func (h *UsersHandler) Events(ctx *gin.Context) {
	userID, ok := principalID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), dbTimeout)
	defer cancel()

	events, err := h.events.ListByUser(cctx, userID)
	if err != nil {
		h.log.ErrorContext(cctx, "list_user_events_failed", "user_id", userID, observability.Err(err))
		RespondInternal(ctx, "Could not list events")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, events)
}
