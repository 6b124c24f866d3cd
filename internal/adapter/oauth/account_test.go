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

func identityServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPProviderClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewHTTPProviderClient(srv.Client())
}

func TestFetchAccountInfoGoogle(t *testing.T) {
	srv, client := identityServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"g-123","email":"ads@example.com","name":"Ads User"}`))
	})

	cfg := googleConfig("", srv.URL)
	info, err := client.FetchAccountInfo(context.Background(), cfg, "tok", "client")
	require.NoError(t, err)
	require.Equal(t, "g-123", info.AccountID)
	require.Equal(t, "Ads User", info.AccountName)
	require.Equal(t, "ads@example.com", info.Email)
}

func TestFetchAccountInfoTikTokHeaderAndEmptyList(t *testing.T) {
	srv, client := identityServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok", r.Header.Get("Access-Token"))
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"code":0,"data":{"list":[]}}`))
	})

	cfg, err := provider.Lookup(provider.TikTok)
	require.NoError(t, err)
	cfg.IdentityURL = srv.URL

	_, err = client.FetchAccountInfo(context.Background(), cfg, "tok", "app-1")
	require.ErrorIs(t, err, domainoauth.ErrNoAdvertiserAccount)
}

func TestFetchAccountInfoTikTokFirstAdvertiser(t *testing.T) {
	srv, client := identityServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"data":{"list":[{"advertiser_id":"adv-9","advertiser_name":"Brand"}]}}`))
	})

	cfg, err := provider.Lookup(provider.TikTok)
	require.NoError(t, err)
	cfg.IdentityURL = srv.URL

	info, err := client.FetchAccountInfo(context.Background(), cfg, "tok", "app-1")
	require.NoError(t, err)
	require.Equal(t, "adv-9", info.AccountID)
	require.Equal(t, "Brand", info.AccountName)
}

func TestFetchAccountInfoAmazonClientIDHeader(t *testing.T) {
	srv, client := identityServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "amzn-client", r.Header.Get("Amazon-Advertising-API-ClientId"))
		_, _ = w.Write([]byte(`[{"profileId":42,"accountInfo":{"name":"Seller"}}]`))
	})

	cfg, err := provider.Lookup(provider.Amazon)
	require.NoError(t, err)
	cfg.IdentityURL = srv.URL

	info, err := client.FetchAccountInfo(context.Background(), cfg, "tok", "amzn-client")
	require.NoError(t, err)
	require.Equal(t, "42", info.AccountID)
	require.Equal(t, "Seller", info.AccountName)
}

func TestFetchAccountInfoNaverEnvelope(t *testing.T) {
	srv, client := identityServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultcode":"00","response":{"id":"nv-1","name":"Naver User","email":"nv@example.com"}}`))
	})

	cfg, err := provider.Lookup(provider.Naver)
	require.NoError(t, err)
	cfg.IdentityURL = srv.URL

	info, err := client.FetchAccountInfo(context.Background(), cfg, "tok", "client")
	require.NoError(t, err)
	require.Equal(t, "nv-1", info.AccountID)
	require.Equal(t, "nv@example.com", info.Email)
}

func TestFetchAccountInfoKakaoNumericID(t *testing.T) {
	srv, client := identityServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":998877,"properties":{"nickname":"Kakao User"},"kakao_account":{"email":"kk@example.com"}}`))
	})

	cfg, err := provider.Lookup(provider.Kakao)
	require.NoError(t, err)
	cfg.IdentityURL = srv.URL

	info, err := client.FetchAccountInfo(context.Background(), cfg, "tok", "client")
	require.NoError(t, err)
	require.Equal(t, "998877", info.AccountID)
	require.Equal(t, "Kakao User", info.AccountName)
}

func TestFetchAccountInfoNon2xx(t *testing.T) {
	srv, client := identityServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	cfg := googleConfig("", srv.URL)
	_, err := client.FetchAccountInfo(context.Background(), cfg, "tok", "client")

	var infoErr *domainoauth.AccountInfoError
	require.ErrorAs(t, err, &infoErr)
	require.Equal(t, http.StatusForbidden, infoErr.Status)
}

func TestFetchAccountInfoUnsupported(t *testing.T) {
	client := NewHTTPProviderClient(nil)
	cfg, err := provider.Lookup(provider.Coupang)
	require.NoError(t, err)

	_, err = client.FetchAccountInfo(context.Background(), cfg, "tok", "client")
	require.ErrorIs(t, err, domainoauth.ErrAccountInfoUnsupported)
}
