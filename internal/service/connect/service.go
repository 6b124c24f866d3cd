package connect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	oauthadapter "github.com/seongpil0948/all-ad-sub002/internal/adapter/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/config"
	"github.com/seongpil0948/all-ad-sub002/internal/domain"
	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/provider"
	"github.com/seongpil0948/all-ad-sub002/internal/repository"
	"github.com/seongpil0948/all-ad-sub002/internal/state"
)

// Service drives the connect flow: authorization URL, callback exchange,
// credential persistence, and disconnect.
type Service interface {
	ListProviders() []ProviderInfo
	StartConnection(ctx context.Context, teamID string, in StartConnectionInput) (*StartConnectionOutput, error)
	CompleteConnection(ctx context.Context, teamID string, in CallbackInput) (*domain.Credential, error)
	ListCredentials(ctx context.Context, teamID, providerName string) ([]domain.Credential, error)
	Disconnect(ctx context.Context, teamID string, credentialID int64) error
}

// ProviderInfo summarizes one platform for the dashboard's connect dialog.
type ProviderInfo struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	SupportsOAuth bool   `json:"supports_oauth"`
	Configured    bool   `json:"configured"`
}

// StartConnectionInput contains parameters for constructing authorization URLs.
type StartConnectionInput struct {
	Provider    string
	RedirectURI string
}

// StartConnectionOutput returns the prepared authorization URL and its state.
type StartConnectionOutput struct {
	AuthorizationURL string
	State            string
}

// CallbackInput captures provider callback query parameters.
type CallbackInput struct {
	Provider string
	Code     string
	State    string
}

type service struct {
	repo           repository.CredentialRepository
	providerClient oauthadapter.ProviderClient
	stateCodec     *state.Codec
	node           *snowflake.Node
	cfg            config.Config
	logger         *zap.Logger
}

// NewService wires the connect service implementation.
func NewService(
	repo repository.CredentialRepository,
	providerClient oauthadapter.ProviderClient,
	stateCodec *state.Codec,
	node *snowflake.Node,
	cfg config.Config,
	logger *zap.Logger,
) Service {
	return &service{
		repo:           repo,
		providerClient: providerClient,
		stateCodec:     stateCodec,
		node:           node,
		cfg:            cfg,
		logger:         logger,
	}
}

func (s *service) ListProviders() []ProviderInfo {
	names := provider.Names()
	infos := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		cfg, err := provider.Lookup(name)
		if err != nil {
			continue
		}
		_, configured := s.cfg.App(name)
		infos = append(infos, ProviderInfo{
			Name:          cfg.Name,
			DisplayName:   cfg.DisplayName,
			SupportsOAuth: cfg.SupportsOAuth(),
			Configured:    configured,
		})
	}
	return infos
}

func (s *service) StartConnection(ctx context.Context, teamID string, in StartConnectionInput) (*StartConnectionOutput, error) {
	providerName := strings.ToLower(strings.TrimSpace(in.Provider))
	redirect := strings.TrimSpace(in.RedirectURI)
	if providerName == "" || redirect == "" || strings.TrimSpace(teamID) == "" {
		return nil, fmt.Errorf("connect: provider, team, and redirect_uri are required")
	}

	cfg, err := provider.Lookup(providerName)
	if err != nil {
		return nil, err
	}
	if !cfg.SupportsOAuth() {
		return nil, fmt.Errorf("provider %s: %w", providerName, domainoauth.ErrUnsupportedProvider)
	}
	app, ok := s.cfg.App(providerName)
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", providerName, domainoauth.ErrMissingClientCredentials)
	}

	stateBlob, err := s.stateCodec.Encode(cfg.Name, teamID, redirect)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	authURL, err := buildAuthorizationURL(cfg, app.ClientID, redirect, stateBlob)
	if err != nil {
		return nil, err
	}

	return &StartConnectionOutput{AuthorizationURL: authURL, State: stateBlob}, nil
}

// buildAuthorizationURL assembles the redirect target using the platform's
// own parameter names and scope delimiter.
func buildAuthorizationURL(cfg provider.Config, clientID, redirectURI, stateBlob string) (string, error) {
	authURL, err := url.Parse(cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}

	params := authURL.Query()
	params.Set(cfg.ClientIDParam, clientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", redirectURI)
	params.Set("state", stateBlob)
	if len(cfg.Scopes) > 0 {
		params.Set("scope", strings.Join(cfg.Scopes, cfg.ScopeDelimiter))
	}
	if cfg.OfflineAccess {
		params.Set("access_type", "offline")
		params.Set("prompt", "consent")
	}
	authURL.RawQuery = params.Encode()

	return authURL.String(), nil
}

func (s *service) CompleteConnection(ctx context.Context, teamID string, in CallbackInput) (*domain.Credential, error) {
	providerName := strings.ToLower(strings.TrimSpace(in.Provider))
	if providerName == "" || strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.State) == "" {
		return nil, fmt.Errorf("connect: provider, code, and state are required")
	}

	claims, err := s.stateCodec.Decode(in.State)
	if err != nil {
		s.log().Warn("oauth state rejected",
			zap.String("provider", providerName),
			zap.String("team_id", teamID),
			zap.Error(err))
		return nil, err
	}
	if !strings.EqualFold(claims.Provider, providerName) {
		s.log().Warn("oauth state provider mismatch",
			zap.String("expected", claims.Provider),
			zap.String("got", providerName))
		return nil, domainoauth.ErrProviderMismatch
	}
	if claims.TeamID != teamID {
		return nil, domainoauth.ErrInvalidState
	}

	cfg, err := provider.Lookup(providerName)
	if err != nil {
		return nil, err
	}
	app, ok := s.cfg.App(providerName)
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", providerName, domainoauth.ErrMissingClientCredentials)
	}

	token, err := s.providerClient.ExchangeCode(ctx, cfg, in.Code, claims.RedirectURI, app.ClientID, app.ClientSecret)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("provider %s returned empty access token", providerName)
	}

	account, err := s.providerClient.FetchAccountInfo(ctx, cfg, token.AccessToken, app.ClientID)
	if err != nil {
		return nil, err
	}

	cred, err := s.repo.UpsertNew(ctx, s.node.Generate().Int64(), teamID, cfg.Name, domain.TokenData{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    domain.ExpiresAtFrom(time.Now(), token.ExpiresIn),
		Scope:        token.Scope,
		AccountID:    account.AccountID,
		AccountName:  account.AccountName,
		Email:        account.Email,
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("persist credential: %w", err)
	}

	s.log().Info("platform connected",
		zap.String("team_id", teamID),
		zap.String("provider", cfg.Name),
		zap.String("account_id", account.AccountID))
	return &cred, nil
}

func (s *service) ListCredentials(ctx context.Context, teamID, providerName string) ([]domain.Credential, error) {
	creds, err := s.repo.ListActive(ctx, teamID, strings.ToLower(strings.TrimSpace(providerName)))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

func (s *service) Disconnect(ctx context.Context, teamID string, credentialID int64) error {
	if err := s.repo.Deactivate(ctx, teamID, credentialID); err != nil {
		if errors.Is(err, domainoauth.ErrCredentialNotFound) {
			return err
		}
		return fmt.Errorf("disconnect credential: %w", err)
	}
	s.log().Info("platform disconnected",
		zap.String("team_id", teamID),
		zap.Int64("credential_id", credentialID))
	return nil
}

func (s *service) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
