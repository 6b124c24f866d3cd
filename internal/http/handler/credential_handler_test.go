package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/seongpil0948/all-ad-sub002/internal/config"
	"github.com/seongpil0948/all-ad-sub002/internal/domain"
	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
	httptransport "github.com/seongpil0948/all-ad-sub002/internal/http"
	httpHandler "github.com/seongpil0948/all-ad-sub002/internal/http/handler"
	"github.com/seongpil0948/all-ad-sub002/internal/provider"
	"github.com/seongpil0948/all-ad-sub002/internal/service/connect"
)

type stubConnectService struct {
	startOut    *connect.StartConnectionOutput
	startErr    error
	completeOut *domain.Credential
	completeErr error
	listed      []domain.Credential
	disconnects []int64
}

func (s *stubConnectService) ListProviders() []connect.ProviderInfo {
	return []connect.ProviderInfo{
		{Name: provider.Google, DisplayName: "Google Ads", SupportsOAuth: true, Configured: true},
		{Name: provider.Coupang, DisplayName: "Coupang", SupportsOAuth: false},
	}
}

func (s *stubConnectService) StartConnection(ctx context.Context, teamID string, in connect.StartConnectionInput) (*connect.StartConnectionOutput, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.startOut, nil
}

func (s *stubConnectService) CompleteConnection(ctx context.Context, teamID string, in connect.CallbackInput) (*domain.Credential, error) {
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	return s.completeOut, nil
}

func (s *stubConnectService) ListCredentials(ctx context.Context, teamID, providerName string) ([]domain.Credential, error) {
	return s.listed, nil
}

func (s *stubConnectService) Disconnect(ctx context.Context, teamID string, credentialID int64) error {
	s.disconnects = append(s.disconnects, credentialID)
	return nil
}

type stubOrchestrator struct {
	summary  domain.CycleSummary
	err      error
	platform string
}

func (s *stubOrchestrator) RefreshExpiredTokens(ctx context.Context, teamID string) (domain.CycleSummary, error) {
	return s.summary, s.err
}

func (s *stubOrchestrator) RefreshPlatformCredentials(ctx context.Context, teamID, providerName string) (domain.CycleSummary, error) {
	s.platform = providerName
	return s.summary, s.err
}

func (s *stubOrchestrator) RefreshCredential(ctx context.Context, cred domain.Credential) domain.RefreshResult {
	return domain.RefreshResult{}
}

func (s *stubOrchestrator) Start() {}

func (s *stubOrchestrator) Stop() {}

func newTestRouter(connectSvc *stubConnectService, orch *stubOrchestrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := httpHandler.NewCredentialHandler(connectSvc, orch)
	return httptransport.NewRouter(config.Config{ServiceName: "allad-credentials-test"}, h, nil)
}

func doRequest(router *gin.Engine, method, target, teamID string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if teamID != "" {
		req.Header.Set("X-Team-ID", teamID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListProvidersIsPublic(t *testing.T) {
	router := newTestRouter(&stubConnectService{}, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/providers", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "google")
	require.Contains(t, w.Body.String(), "coupang")
}

func TestStartConnectionRequiresTeamHeader(t *testing.T) {
	router := newTestRouter(&stubConnectService{}, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/auth/google/start?redirect_uri=https://app.example.com/cb", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing_team")
}

func TestStartConnectionReturnsAuthorizationURL(t *testing.T) {
	svc := &stubConnectService{
		startOut: &connect.StartConnectionOutput{
			AuthorizationURL: "https://accounts.google.com/o/oauth2/v2/auth?client_id=x",
			State:            "signed-state",
		},
	}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/auth/google/start?redirect_uri=https://app.example.com/cb", "team-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "signed-state", resp["state"])
	require.Contains(t, resp["authorization_url"], "accounts.google.com")
}

func TestStartConnectionMapsUnsupportedProvider(t *testing.T) {
	svc := &stubConnectService{startErr: domainoauth.ErrUnsupportedProvider}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/auth/coupang/start?redirect_uri=https://app.example.com/cb", "team-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unsupported_provider")
}

func TestStartConnectionMapsUnconfiguredProvider(t *testing.T) {
	svc := &stubConnectService{startErr: domainoauth.ErrMissingClientCredentials}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/auth/kakao/start?redirect_uri=https://app.example.com/cb", "team-1", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "provider_not_configured")
}

func TestCallbackWithholdsTokenMaterial(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	svc := &stubConnectService{
		completeOut: &domain.Credential{
			ID:           991,
			TeamID:       "team-1",
			Provider:     provider.Google,
			AccessToken:  "ya29.secret",
			RefreshToken: "1//secret",
			ExpiresAt:    &expires,
			AccountID:    "act_1",
			IsActive:     true,
		},
	}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=c&state=s", "team-1", "")
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotContains(t, w.Body.String(), "ya29.secret")
	require.NotContains(t, w.Body.String(), "1//secret")
	require.Contains(t, w.Body.String(), "act_1")
}

func TestCallbackMapsExpiredState(t *testing.T) {
	svc := &stubConnectService{completeErr: domainoauth.ErrStateExpired}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=c&state=s", "team-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "state_expired")
}

func TestCallbackMapsProviderRejection(t *testing.T) {
	svc := &stubConnectService{completeErr: &domainoauth.ExchangeError{
		Provider: provider.Google, Grant: "authorization_code", Status: 400, Body: "invalid_grant",
	}}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/auth/google/callback?code=c&state=s", "team-1", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), "provider_error")
}

func TestListCredentialsFlagsReconnection(t *testing.T) {
	expires := time.Now().Add(-time.Hour)
	svc := &stubConnectService{listed: []domain.Credential{
		{ID: 1, Provider: provider.Google, AccountID: "act_1", IsActive: true},
		{ID: 2, Provider: provider.Meta, AccountID: "act_2", IsActive: true, ExpiresAt: &expires, ErrorMessage: "invalid_grant"},
	}}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/api/credentials", "team-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Credentials []struct {
			ID                string `json:"id"`
			NeedsReconnection bool   `json:"needs_reconnection"`
		} `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Credentials, 2)
	require.False(t, resp.Credentials[0].NeedsReconnection)
	require.True(t, resp.Credentials[1].NeedsReconnection)
}

func TestDisconnectParsesCredentialID(t *testing.T) {
	svc := &stubConnectService{}
	router := newTestRouter(svc, &stubOrchestrator{})

	w := doRequest(router, http.MethodDelete, "/api/credentials/42", "team-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []int64{42}, svc.disconnects)

	w = doRequest(router, http.MethodDelete, "/api/credentials/not-a-number", "team-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshEndpointReturnsSummary(t *testing.T) {
	orch := &stubOrchestrator{summary: domain.CycleSummary{Successful: 2, Failed: 1, Errors: []domain.CredentialError{{CredentialID: 9, Error: "invalid_grant"}}}}
	router := newTestRouter(&stubConnectService{}, orch)

	w := doRequest(router, http.MethodPost, "/api/auth/refresh", "team-1", `{"platform":"meta"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "meta", orch.platform)

	var summary domain.CycleSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Equal(t, 2, summary.Successful)
	require.Equal(t, 1, summary.Failed)
}

func TestRefreshEndpointUnknownPlatform(t *testing.T) {
	orch := &stubOrchestrator{err: domainoauth.ErrUnsupportedProvider}
	router := newTestRouter(&stubConnectService{}, orch)

	w := doRequest(router, http.MethodPost, "/api/auth/refresh", "team-1", `{"platform":"linkedin"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubConnectService{}, &stubOrchestrator{})

	w := doRequest(router, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}
