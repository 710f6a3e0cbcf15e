package security

import (
	"errors"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if hash == "hunter2" {
		t.Fatalf("hash must not equal the plain text")
	}

	if err := CheckPassword(hash, "hunter2"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}

	if err := CheckPassword(hash, "hunter3"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	err := CheckPassword("not-a-hash", "x")
	if err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected a hash format error, got %v", err)
	}
}
