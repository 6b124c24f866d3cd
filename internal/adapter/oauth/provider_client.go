package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/provider"
)

// ProviderClient encapsulates outbound HTTP calls to the ad platforms' OAuth
// and identity endpoints.
type ProviderClient interface {
	ExchangeCode(ctx context.Context, cfg provider.Config, code, redirectURI, clientID, clientSecret string) (*domainoauth.TokenResponse, error)
	RefreshToken(ctx context.Context, cfg provider.Config, refreshToken, clientID, clientSecret string) (*domainoauth.TokenResponse, error)
	FetchAccountInfo(ctx context.Context, cfg provider.Config, accessToken, clientID string) (*domainoauth.AccountInfo, error)
}

// HTTPProviderClient is the default HTTP implementation.
type HTTPProviderClient struct {
	httpClient *http.Client
}

var _ ProviderClient = (*HTTPProviderClient)(nil)

// NewHTTPProviderClient constructs the default ProviderClient. The client's
// timeout bounds every exchange, refresh, and identity call so one hanging
// platform cannot stall a refresh cycle.
func NewHTTPProviderClient(client *http.Client) *HTTPProviderClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPProviderClient{httpClient: client}
}

// grantBodyFunc builds the form body for a token-endpoint call. Platforms
// disagree on parameter names, so each deviant platform supplies its own.
type grantBodyFunc func(clientID, clientSecret, subject, redirectURI string, refresh bool) url.Values

var grantBodies = map[string]grantBodyFunc{
	provider.TikTok: tiktokGrantBody,
}

func defaultGrantBody(clientID, clientSecret, subject, redirectURI string, refresh bool) url.Values {
	data := url.Values{}
	data.Set("client_id", clientID)
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}
	if refresh {
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", subject)
		return data
	}
	data.Set("grant_type", "authorization_code")
	data.Set("code", subject)
	data.Set("redirect_uri", redirectURI)
	return data
}

// TikTok's business token endpoint names everything differently.
func tiktokGrantBody(clientID, clientSecret, subject, _ string, refresh bool) url.Values {
	data := url.Values{}
	data.Set("app_id", clientID)
	data.Set("secret", clientSecret)
	if refresh {
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", subject)
		return data
	}
	data.Set("auth_code", subject)
	return data
}

func grantBodyFor(name string) grantBodyFunc {
	if fn, ok := grantBodies[name]; ok {
		return fn
	}
	return defaultGrantBody
}

// ExchangeCode trades an authorization code for a token pair.
func (c *HTTPProviderClient) ExchangeCode(ctx context.Context, cfg provider.Config, code, redirectURI, clientID, clientSecret string) (*domainoauth.TokenResponse, error) {
	if !cfg.SupportsOAuth() {
		return nil, fmt.Errorf("provider %s: %w", cfg.Name, domainoauth.ErrUnsupportedProvider)
	}
	body := grantBodyFor(cfg.Name)(clientID, clientSecret, code, redirectURI, false)
	return c.tokenRequest(ctx, cfg, "authorization_code", body)
}

// RefreshToken trades a refresh token for a fresh token pair. Persisting the
// result is the caller's job; this client never mutates stored state.
func (c *HTTPProviderClient) RefreshToken(ctx context.Context, cfg provider.Config, refreshToken, clientID, clientSecret string) (*domainoauth.TokenResponse, error) {
	if !cfg.SupportsRefresh() {
		return nil, fmt.Errorf("provider %s: %w", cfg.Name, domainoauth.ErrUnsupportedProvider)
	}
	body := grantBodyFor(cfg.Name)(clientID, clientSecret, refreshToken, "", true)
	return c.tokenRequest(ctx, cfg, "refresh_token", body)
}

func (c *HTTPProviderClient) tokenRequest(ctx context.Context, cfg provider.Config, grant string, data url.Values) (*domainoauth.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s token request: %w", cfg.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &domainoauth.ExchangeError{
			Provider: cfg.Name,
			Grant:    grant,
			Status:   resp.StatusCode,
			Body:     truncate(string(raw), 512),
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	// TikTok nests the token fields under "data".
	if nested, ok := payload["data"].(map[string]any); ok && payload["access_token"] == nil {
		payload = nested
	}

	token := &domainoauth.TokenResponse{
		AccessToken:  stringValue(payload["access_token"]),
		RefreshToken: stringValue(payload["refresh_token"]),
		TokenType:    stringValue(payload["token_type"]),
		Scope:        stringValue(payload["scope"]),
		Raw:          payload,
	}
	if exp := payload["expires_in"]; exp != nil {
		token.ExpiresIn = int64Value(exp)
	}
	return token, nil
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func int64Value(input any) int64 {
	switch v := input.(type) {
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
