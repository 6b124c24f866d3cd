package oauth

// TokenResponse models the response from an external provider token endpoint.
// Fields are passed through verbatim; callers add expiry semantics.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	TokenType    string
	Scope        string
	Raw          map[string]any
}

// AccountInfo is the normalized identity of the connected advertising account.
type AccountInfo struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// StateClaims is the signed payload carried in the OAuth "state" parameter.
// It is self-contained: verified by signature and issue time, not store lookup.
type StateClaims struct {
	Provider    string `json:"provider"`
	TeamID      string `json:"team_id"`
	RedirectURI string `json:"redirect_uri"`
	Nonce       string `json:"nonce"`
	IssuedAtMS  int64  `json:"iat_ms"`
}
