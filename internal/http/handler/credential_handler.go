package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seongpil0948/all-ad-sub002/internal/domain"
	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/http/middleware"
	"github.com/seongpil0948/all-ad-sub002/internal/service/connect"
	"github.com/seongpil0948/all-ad-sub002/internal/service/refresh"
)

// CredentialHandler exposes the connect flow and refresh endpoints.
type CredentialHandler struct {
	Connect connect.Service
	Refresh refresh.Orchestrator
}

// NewCredentialHandler creates the handler set.
func NewCredentialHandler(connectSvc connect.Service, refreshSvc refresh.Orchestrator) *CredentialHandler {
	return &CredentialHandler{Connect: connectSvc, Refresh: refreshSvc}
}

// credentialView is the wire shape for a stored credential. Token material
// never leaves the service.
type credentialView struct {
	ID                string     `json:"id"`
	Provider          string     `json:"provider"`
	AccountID         string     `json:"account_id"`
	AccountName       string     `json:"account_name,omitempty"`
	Email             string     `json:"email,omitempty"`
	Scope             string     `json:"scope,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	IsActive          bool       `json:"is_active"`
	NeedsReconnection bool       `json:"needs_reconnection"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	ConnectedAt       time.Time  `json:"connected_at"`
}

func toCredentialView(cred domain.Credential) credentialView {
	return credentialView{
		ID:                strconv.FormatInt(cred.ID, 10),
		Provider:          cred.Provider,
		AccountID:         cred.AccountID,
		AccountName:       cred.AccountName,
		Email:             cred.Email,
		Scope:             cred.Scope,
		ExpiresAt:         cred.ExpiresAt,
		IsActive:          cred.IsActive,
		NeedsReconnection: cred.ErrorMessage != "",
		ErrorMessage:      cred.ErrorMessage,
		LastSyncAt:        cred.LastSyncAt,
		ConnectedAt:       cred.CreatedAt,
	}
}

// ListProviders returns the supported ad platforms and their connect modes.
func (h *CredentialHandler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.Connect.ListProviders()})
}

// StartConnection generates the provider authorization URL with signed state.
func (h *CredentialHandler) StartConnection(c *gin.Context) {
	teamID, ok := middleware.GetTeamContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_team", "error_description": "Team not resolved."})
		return
	}

	redirectURI := strings.TrimSpace(c.Query("redirect_uri"))
	if redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "redirect_uri is required."})
		return
	}

	output, err := h.Connect.StartConnection(c.Request.Context(), teamID, connect.StartConnectionInput{
		Provider:    c.Param("provider"),
		RedirectURI: redirectURI,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authorization_url": output.AuthorizationURL,
		"state":             output.State,
	})
}

// OAuthCallback completes the connect flow from provider callback parameters.
func (h *CredentialHandler) OAuthCallback(c *gin.Context) {
	teamID, ok := middleware.GetTeamContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_team", "error_description": "Team not resolved."})
		return
	}

	input := connect.CallbackInput{
		Provider: c.Param("provider"),
		Code:     c.Query("code"),
		State:    c.Query("state"),
	}
	if strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.State) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "code and state are required."})
		return
	}

	cred, err := h.Connect.CompleteConnection(c.Request.Context(), teamID, input)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCredentialView(*cred))
}

// ListCredentials returns the team's active credentials, tokens withheld.
func (h *CredentialHandler) ListCredentials(c *gin.Context) {
	teamID, ok := middleware.GetTeamContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_team", "error_description": "Team not resolved."})
		return
	}

	creds, err := h.Connect.ListCredentials(c.Request.Context(), teamID, c.Query("provider"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	views := make([]credentialView, 0, len(creds))
	for _, cred := range creds {
		views = append(views, toCredentialView(cred))
	}
	c.JSON(http.StatusOK, gin.H{"credentials": views})
}

// Disconnect deactivates a credential without deleting its history.
func (h *CredentialHandler) Disconnect(c *gin.Context) {
	teamID, ok := middleware.GetTeamContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_team", "error_description": "Team not resolved."})
		return
	}

	credentialID, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Credential id must be numeric."})
		return
	}

	if err := h.Connect.Disconnect(c.Request.Context(), teamID, credentialID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Credential disconnected."})
}

// RefreshTokens runs a refresh cycle for the team, optionally narrowed to one
// platform.
func (h *CredentialHandler) RefreshTokens(c *gin.Context) {
	teamID, ok := middleware.GetTeamContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_team", "error_description": "Team not resolved."})
		return
	}

	var req struct {
		Platform string `json:"platform"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
			return
		}
	}

	var (
		summary domain.CycleSummary
		err     error
	)
	if platform := strings.TrimSpace(req.Platform); platform != "" {
		summary, err = h.Refresh.RefreshPlatformCredentials(c.Request.Context(), teamID, platform)
	} else {
		summary, err = h.Refresh.RefreshExpiredTokens(c.Request.Context(), teamID)
	}
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Health reports process liveness.
func (h *CredentialHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *CredentialHandler) respondServiceError(c *gin.Context, err error) {
	logger := zap.L()
	var exchangeErr *domainoauth.ExchangeError
	var accountErr *domainoauth.AccountInfoError
	switch {
	case errors.Is(err, domainoauth.ErrUnsupportedProvider):
		logger.Warn("unsupported provider", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_provider", "error_description": "Platform does not support OAuth connections."})
	case errors.Is(err, domainoauth.ErrMissingClientCredentials):
		logger.Warn("provider app not configured", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "provider_not_configured", "error_description": "Provider app credentials are not configured."})
	case errors.Is(err, domainoauth.ErrStateExpired):
		logger.Warn("oauth state expired", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "state_expired", "error_description": "The authorization flow took too long. Start over."})
	case errors.Is(err, domainoauth.ErrInvalidState), errors.Is(err, domainoauth.ErrProviderMismatch):
		logger.Warn("oauth invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "State verification failed."})
	case errors.Is(err, domainoauth.ErrCredentialNotFound):
		logger.Warn("credential missing", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "credential_not_found", "error_description": "Credential not found for team."})
	case errors.Is(err, domainoauth.ErrNoAdvertiserAccount):
		logger.Warn("no advertiser account", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no_advertiser_account", "error_description": "The authorized account has no advertiser profile."})
	case errors.As(err, &exchangeErr), errors.As(err, &accountErr):
		logger.Warn("provider rejected request", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "error_description": "The ad platform rejected the request."})
	default:
		logger.Error("credential service failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
	}
}
