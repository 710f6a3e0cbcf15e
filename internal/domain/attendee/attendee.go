package attendee

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Attendee struct {
	ID                  string    `json:"id"`
	EventID             string    `json:"eventId"`
	UserID              string    `json:"userId"`
	Firstname           string    `json:"firstname"`
	Lastname            string    `json:"lastname"`
	Email               string    `json:"email"`
	Phone               *string   `json:"phone,omitempty"`
	Signature           string    `json:"signature"` // object storage key
	ReceivedCertificate bool      `json:"receivedCertificate"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (a Attendee) OwnerID() string { return a.UserID }

func (a Attendee) Name() string {
	return strings.TrimSpace(a.Firstname + " " + a.Lastname)
}

var ErrNotFound = errors.New("attendee not found")

type CreateAttendeeRequest struct {
	EventID   string  `json:"-"`
	UserID    string  `json:"-"`
	Firstname string  `json:"firstname" binding:"required,max=100"`
	Lastname  string  `json:"lastname" binding:"required,max=100"`
	Email     string  `json:"email" binding:"required,email"`
	Phone     *string `json:"phone" binding:"omitempty,max=40"`
	// base64 png, optionally prefixed with a data URL header
	Signature string `json:"signature"`
}

type UpdateAttendeeRequest struct {
	Firstname string  `json:"firstname" binding:"required,max=100"`
	Lastname  string  `json:"lastname" binding:"required,max=100"`
	Email     string  `json:"email" binding:"required,email"`
	Phone     *string `json:"phone" binding:"omitempty,max=40"`
}

func NewFromCreateRequest(req CreateAttendeeRequest, signatureKey string) Attendee {
	now := time.Now().UTC()

	return Attendee{
		ID:        uuid.NewString(),
		EventID:   req.EventID,
		UserID:    req.UserID,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Phone:     req.Phone,
		Signature: signatureKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
