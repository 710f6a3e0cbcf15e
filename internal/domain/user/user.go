package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) Name() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

const MinPasswordLength = 5

// email and password are checked by the handler so each failure gets its
// own message
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname" binding:"required,max=100"`
	Lastname  string `json:"lastname" binding:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// full-field profile update; the password is not touched here
type UpdateRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Firstname string `json:"firstname" binding:"required,max=100"`
	Lastname  string `json:"lastname" binding:"required,max=100"`
}

func New(req SignUpRequest, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(req.Email),
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
