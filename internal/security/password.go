package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost matches the salt rounds existing password hashes were created with.
const Cost = 10

var ErrPasswordMismatch = errors.New("password does not match")

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)

	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword returns ErrPasswordMismatch for a wrong password and the
// bcrypt error for a malformed hash.
func CheckPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}

	return err
}
