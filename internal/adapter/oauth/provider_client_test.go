package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/provider"
)

func googleConfig(tokenURL, identityURL string) provider.Config {
	cfg, _ := provider.Lookup(provider.Google)
	cfg.TokenURL = tokenURL
	cfg.IdentityURL = identityURL
	return cfg
}

func TestExchangeCode(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotBody = map[string]string{
			"grant_type":   r.PostFormValue("grant_type"),
			"code":         r.PostFormValue("code"),
			"redirect_uri": r.PostFormValue("redirect_uri"),
			"client_id":    r.PostFormValue("client_id"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.X","refresh_token":"1//Y","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	cfg := googleConfig(srv.URL, "")
	token, err := client.ExchangeCode(context.Background(), cfg, "abc123", "https://app/cb", "client", "secret")
	require.NoError(t, err)
	require.Equal(t, "ya29.X", token.AccessToken)
	require.Equal(t, "1//Y", token.RefreshToken)
	require.Equal(t, int64(3600), token.ExpiresIn)

	require.Equal(t, "authorization_code", gotBody["grant_type"])
	require.Equal(t, "abc123", gotBody["code"])
	require.Equal(t, "https://app/cb", gotBody["redirect_uri"])
	require.Equal(t, "client", gotBody["client_id"])
}

func TestExchangeCodeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	_, err := client.ExchangeCode(context.Background(), googleConfig(srv.URL, ""), "bad", "https://app/cb", "client", "secret")
	require.Error(t, err)

	var exchErr *domainoauth.ExchangeError
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, http.StatusBadRequest, exchErr.Status)
	require.Equal(t, "authorization_code", exchErr.Grant)
}

func TestTikTokGrantBodyNaming(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotBody = map[string]string{
			"app_id":    r.PostFormValue("app_id"),
			"secret":    r.PostFormValue("secret"),
			"auth_code": r.PostFormValue("auth_code"),
			"client_id": r.PostFormValue("client_id"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"data":{"access_token":"tt-token","refresh_token":"tt-refresh","expires_in":86400}}`))
	}))
	defer srv.Close()

	cfg, err := provider.Lookup(provider.TikTok)
	require.NoError(t, err)
	cfg.TokenURL = srv.URL

	client := NewHTTPProviderClient(srv.Client())
	token, err := client.ExchangeCode(context.Background(), cfg, "tt-code", "https://app/cb", "app-1", "app-secret")
	require.NoError(t, err)
	require.Equal(t, "tt-token", token.AccessToken)
	require.Equal(t, "tt-refresh", token.RefreshToken)

	require.Equal(t, "app-1", gotBody["app_id"])
	require.Equal(t, "app-secret", gotBody["secret"])
	require.Equal(t, "tt-code", gotBody["auth_code"])
	require.Empty(t, gotBody["client_id"])
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		require.Equal(t, "old-refresh", r.PostFormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","expires_in":3600}`))
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	token, err := client.RefreshToken(context.Background(), googleConfig(srv.URL, ""), "old-refresh", "client", "secret")
	require.NoError(t, err)
	require.Equal(t, "new-access", token.AccessToken)
	require.Empty(t, token.RefreshToken)
}

func TestRefreshTokenUnsupportedProvider(t *testing.T) {
	client := NewHTTPProviderClient(nil)
	cfg, err := provider.Lookup(provider.Coupang)
	require.NoError(t, err)

	_, err = client.RefreshToken(context.Background(), cfg, "refresh", "client", "secret")
	require.ErrorIs(t, err, domainoauth.ErrUnsupportedProvider)
}

func TestRefreshTokenNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer srv.Close()

	client := NewHTTPProviderClient(srv.Client())
	_, err := client.RefreshToken(context.Background(), googleConfig(srv.URL, ""), "stale", "client", "secret")

	var exchErr *domainoauth.ExchangeError
	require.ErrorAs(t, err, &exchErr)
	require.Equal(t, "refresh_token", exchErr.Grant)
	require.Equal(t, http.StatusUnauthorized, exchErr.Status)
}
