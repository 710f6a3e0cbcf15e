package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/png"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidSignature = errors.New("invalid signature image")

// SignatureStore persists signature images under an opaque key.
type SignatureStore interface {
	PutSignature(ctx context.Context, key string, png []byte) error
}

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// DecodeSignature accepts a bare base64 payload or a data URL and returns
// the PNG bytes.
func DecodeSignature(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrInvalidSignature
	}

	raw, err := base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(encoded, ""))
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidSignature
	}

	if _, err := png.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return nil, ErrInvalidSignature
	}

	return raw, nil
}

func NewKey() string {
	return uuid.NewString()
}
