package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Black)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeSignature(t *testing.T) {
	raw := tinyPNG(t)
	b64 := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"bare base64", b64, false},
		{"data url", "data:image/png;base64," + b64, false},
		{"empty", "   ", true},
		{"not base64", "%%%", true},
		{"not png", base64.StdEncoding.EncodeToString([]byte("hello")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSignature(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSignature)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestMemoryStore_CopiesBytes(t *testing.T) {
	m := NewMemoryStore()
	img := []byte{1, 2, 3}

	require.NoError(t, m.PutSignature(context.Background(), "k", img))
	img[0] = 9

	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestS3Store_PutsObjectPathStyle(t *testing.T) {
	var gotMethod, gotPath, gotType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), S3Config{
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		Bucket:          "signatures",
		Endpoint:        srv.URL,
	}, nil)
	require.NoError(t, err)

	img := tinyPNG(t)
	require.NoError(t, store.PutSignature(context.Background(), "abc-123", img))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/signatures/abc-123", gotPath)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, img, gotBody)
}
