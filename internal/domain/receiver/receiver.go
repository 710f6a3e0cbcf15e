package receiver

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Receiver is an address that gets the summary once an event is submitted.
type Receiver struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrNotFound   = errors.New("receiver not found")
	ErrEmailTaken = errors.New("receiver email already registered")
)

type CreateReceiverRequest struct {
	EventID string `json:"-"`
	Email   string `json:"email"`
}

func NewFromCreateRequest(req CreateReceiverRequest) Receiver {
	return Receiver{
		ID:        uuid.NewString(),
		EventID:   req.EventID,
		Email:     strings.TrimSpace(req.Email),
		CreatedAt: time.Now().UTC(),
	}
}
