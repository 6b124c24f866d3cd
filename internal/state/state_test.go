package state

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	blob, err := codec.Encode("google", "team-1", "https://app.example.com/cb")
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	claims, err := codec.Decode(blob)
	require.NoError(t, err)
	require.Equal(t, "google", claims.Provider)
	require.Equal(t, "team-1", claims.TeamID)
	require.Equal(t, "https://app.example.com/cb", claims.RedirectURI)
	require.NotEmpty(t, claims.Nonce)
}

func TestDecodeTamperedBlob(t *testing.T) {
	codec := NewCodec(testSecret, 0)
	blob, err := codec.Encode("google", "team-1", "https://app/cb")
	require.NoError(t, err)

	// Flip a character in the payload section.
	parts := strings.Split(blob, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = codec.Decode(tampered)
	require.ErrorIs(t, err, domainoauth.ErrInvalidState)
}

func TestDecodeWrongSecret(t *testing.T) {
	codec := NewCodec(testSecret, 0)
	blob, err := codec.Encode("meta", "team-1", "https://app/cb")
	require.NoError(t, err)

	other := NewCodec([]byte("ffffffffffffffffffffffffffffffff"), 0)
	_, err = other.Decode(blob)
	require.ErrorIs(t, err, domainoauth.ErrInvalidState)
}

func TestValidityWindow(t *testing.T) {
	codec := NewCodec(testSecret, 0)

	codec.now = func() time.Time { return time.Now().Add(-11 * time.Minute) }
	blob, err := codec.Encode("google", "team-1", "https://app/cb")
	require.NoError(t, err)

	codec.now = time.Now
	_, err = codec.Decode(blob)
	require.ErrorIs(t, err, domainoauth.ErrStateExpired)

	codec.now = func() time.Time { return time.Now().Add(-9 * time.Minute) }
	blob, err = codec.Encode("google", "team-1", "https://app/cb")
	require.NoError(t, err)

	codec.now = time.Now
	_, err = codec.Decode(blob)
	require.NoError(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	codec := NewCodec(testSecret, 0)
	_, err := codec.Decode("not-a-state-blob")
	require.ErrorIs(t, err, domainoauth.ErrInvalidState)
}
