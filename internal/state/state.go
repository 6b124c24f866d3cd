package state

import (
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
)

// DefaultValidity is how long an issued state blob remains acceptable.
const DefaultValidity = 10 * time.Minute

// Codec signs and verifies the self-contained OAuth state parameter. The blob
// is an HS256 JWS over StateClaims, so the callback is validated by decoding
// alone and no server-side state store is needed.
type Codec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewCodec constructs a codec with the given signing secret. A non-positive
// validity falls back to DefaultValidity.
func NewCodec(secret []byte, validity time.Duration) *Codec {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Codec{secret: secret, validity: validity, now: time.Now}
}

// Encode issues a signed state blob binding the pending authorization to a
// provider, team, and redirect URI. The nonce makes each blob single-purpose.
func (c *Codec) Encode(provider, teamID, redirectURI string) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: c.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new state signer: %w", err)
	}

	claims := domainoauth.StateClaims{
		Provider:    provider,
		TeamID:      teamID,
		RedirectURI: redirectURI,
		Nonce:       uuid.NewString(),
		IssuedAtMS:  c.now().UnixMilli(),
	}

	token, err := gojwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize state: %w", err)
	}
	return token, nil
}

// Decode verifies the blob's signature and validity window. Tampered or
// malformed blobs fail with ErrInvalidState, stale ones with ErrStateExpired.
func (c *Codec) Decode(blob string) (*domainoauth.StateClaims, error) {
	parsed, err := gojwt.ParseSigned(blob, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainoauth.ErrInvalidState, err)
	}

	var claims domainoauth.StateClaims
	if err := parsed.Claims(c.secret, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domainoauth.ErrInvalidState, err)
	}
	if claims.Provider == "" || claims.IssuedAtMS == 0 {
		return nil, domainoauth.ErrInvalidState
	}

	issued := time.UnixMilli(claims.IssuedAtMS)
	if c.now().Sub(issued) > c.validity {
		return nil, domainoauth.ErrStateExpired
	}
	return &claims, nil
}
