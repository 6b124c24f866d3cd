package domain

import "time"

// RefreshWindow is how far ahead of expiry a credential is considered due
// for a proactive refresh.
const RefreshWindow = 5 * time.Minute

// Credential is one team's authorized connection to one ad-platform account.
// A (team, provider, account) tuple has at most one active row; replacing a
// connection deactivates the old row and inserts a new one.
type Credential struct {
	ID           int64
	TeamID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
	AccountID    string
	AccountName  string
	Email        string
	ClientID     string
	ClientSecret string
	IsActive     bool
	LastSyncAt   *time.Time
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsExpired reports whether the access token is already past its expiry.
// Credentials without an expiry never expire.
func (c Credential) IsExpired() bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(time.Now())
}

// NeedsRefresh reports whether the access token expires within RefreshWindow.
func (c Credential) NeedsRefresh() bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(time.Now().Add(RefreshWindow))
}

// ExpiresAtFrom converts a provider expires_in (seconds) to an absolute
// expiry. Providers that omit expires_in yield a nil, never-expiring value.
func ExpiresAtFrom(now time.Time, expiresIn int64) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(expiresIn) * time.Second)
	return &t
}

// TokenData carries everything needed to persist a freshly connected account.
type TokenData struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
	AccountID    string
	AccountName  string
	Email        string
	ClientID     string
	ClientSecret string
}

// TokenUpdate carries the fields written back after a successful refresh.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// RefreshResult is the outcome of refreshing a single credential. It is never
// persisted; failures are folded into the credential's error marker.
type RefreshResult struct {
	CredentialID int64
	Success      bool
	Skipped      bool
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Error        string
}

// CredentialError pairs a credential with the refresh error it produced.
type CredentialError struct {
	CredentialID int64  `json:"credential_id"`
	Error        string `json:"error"`
}

// CycleSummary aggregates one orchestrator pass over a set of credentials.
type CycleSummary struct {
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped,omitempty"`
	Errors     []CredentialError `json:"errors,omitempty"`
}
