package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedProvider signals a provider with no OAuth endpoints configured.
	ErrUnsupportedProvider = errors.New("oauth: unsupported provider")
	// ErrInvalidState indicates the state blob failed decoding or signature checks.
	ErrInvalidState = errors.New("oauth: invalid state")
	// ErrProviderMismatch indicates the state was issued for a different provider.
	ErrProviderMismatch = errors.New("oauth: state provider mismatch")
	// ErrStateExpired indicates the state is older than its validity window.
	ErrStateExpired = errors.New("oauth: state expired")
	// ErrNoRefreshToken marks credentials whose tokens cannot be refreshed.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrMissingClientCredentials signals that no client id/secret could be resolved.
	ErrMissingClientCredentials = errors.New("oauth: missing client credentials")
	// ErrAccountInfoUnsupported marks providers without an identity endpoint.
	ErrAccountInfoUnsupported = errors.New("oauth: account info not supported")
	// ErrNoAdvertiserAccount indicates a well-formed identity response with zero usable accounts.
	ErrNoAdvertiserAccount = errors.New("oauth: no advertiser account found")
	// ErrCredentialNotFound signals a missing or inactive credential row.
	ErrCredentialNotFound = errors.New("oauth: credential not found")
)

// ExchangeError reports a non-2xx response from a provider token endpoint.
type ExchangeError struct {
	Provider string
	Grant    string
	Status   int
	Body     string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("oauth: %s %s grant failed: status=%d body=%s", e.Provider, e.Grant, e.Status, e.Body)
}

// AccountInfoError reports a non-2xx response from a provider identity endpoint.
type AccountInfoError struct {
	Provider string
	Status   int
}

func (e *AccountInfoError) Error() string {
	return fmt.Sprintf("oauth: %s account info failed: status=%d", e.Provider, e.Status)
}
