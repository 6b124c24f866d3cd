package refresh

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	oauthadapter "github.com/seongpil0948/all-ad-sub002/internal/adapter/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/config"
	"github.com/seongpil0948/all-ad-sub002/internal/domain"
	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/provider"
	"github.com/seongpil0948/all-ad-sub002/internal/repository"
)

// cycleTimeout bounds one scheduled pass so a hung provider cannot wedge the
// ticker loop into overlapping itself.
const cycleTimeout = 10 * time.Minute

// Orchestrator refreshes credentials that are expired or inside the refresh
// window. One credential's failure never aborts the rest of a cycle.
type Orchestrator interface {
	// RefreshExpiredTokens refreshes every credential needing it. Empty teamID
	// covers all teams, as the scheduled cycle does.
	RefreshExpiredTokens(ctx context.Context, teamID string) (domain.CycleSummary, error)
	// RefreshPlatformCredentials narrows a cycle to one provider.
	RefreshPlatformCredentials(ctx context.Context, teamID, providerName string) (domain.CycleSummary, error)
	// RefreshCredential refreshes a single credential. Failures are recorded on
	// the credential row and folded into the result, never returned as errors.
	RefreshCredential(ctx context.Context, cred domain.Credential) domain.RefreshResult
	// Start launches the periodic refresh loop. Idempotent.
	Start()
	// Stop halts the loop. Safe to call without a prior Start.
	Stop()
}

type orchestrator struct {
	repo     repository.CredentialRepository
	lock     repository.RefreshLock
	client   oauthadapter.ProviderClient
	cfg      config.Config
	logger   *zap.Logger
	interval time.Duration
	lockTTL  time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewOrchestrator wires the refresh orchestrator.
func NewOrchestrator(
	repo repository.CredentialRepository,
	lock repository.RefreshLock,
	client oauthadapter.ProviderClient,
	cfg config.Config,
	logger *zap.Logger,
) Orchestrator {
	return &orchestrator{
		repo:     repo,
		lock:     lock,
		client:   client,
		cfg:      cfg,
		logger:   logger,
		interval: cfg.RefreshInterval,
		lockTTL:  cfg.RefreshLockTTL,
	}
}

func (o *orchestrator) RefreshExpiredTokens(ctx context.Context, teamID string) (domain.CycleSummary, error) {
	return o.refreshMatching(ctx, teamID, "")
}

func (o *orchestrator) RefreshPlatformCredentials(ctx context.Context, teamID, providerName string) (domain.CycleSummary, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	if providerName != "" {
		if _, err := provider.Lookup(providerName); err != nil {
			return domain.CycleSummary{}, err
		}
	}
	return o.refreshMatching(ctx, teamID, providerName)
}

func (o *orchestrator) refreshMatching(ctx context.Context, teamID, providerName string) (domain.CycleSummary, error) {
	creds, err := o.repo.ListNeedingRefresh(ctx, teamID, providerName)
	if err != nil {
		return domain.CycleSummary{}, fmt.Errorf("list credentials needing refresh: %w", err)
	}
	if len(creds) == 0 {
		return domain.CycleSummary{}, nil
	}

	results := make([]domain.RefreshResult, len(creds))
	var wg sync.WaitGroup
	for i, cred := range creds {
		wg.Add(1)
		go func(i int, cred domain.Credential) {
			defer wg.Done()
			results[i] = o.RefreshCredential(ctx, cred)
		}(i, cred)
	}
	wg.Wait()

	var summary domain.CycleSummary
	for _, res := range results {
		switch {
		case res.Skipped:
			summary.Skipped++
		case res.Success:
			summary.Successful++
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, domain.CredentialError{
				CredentialID: res.CredentialID,
				Error:        res.Error,
			})
		}
	}
	return summary, nil
}

func (o *orchestrator) RefreshCredential(ctx context.Context, cred domain.Credential) domain.RefreshResult {
	pcfg, err := provider.Lookup(cred.Provider)
	if err != nil || !pcfg.SupportsRefresh() {
		return domain.RefreshResult{CredentialID: cred.ID, Skipped: true}
	}

	acquired, err := o.lock.Acquire(ctx, cred.ID, o.lockTTL)
	if err != nil {
		// Lock store trouble should not halt refreshes; proceed unguarded.
		o.log().Warn("refresh lock unavailable, proceeding without it",
			zap.Int64("credential_id", cred.ID), zap.Error(err))
	} else if !acquired {
		return domain.RefreshResult{CredentialID: cred.ID, Skipped: true}
	} else {
		defer func() {
			if err := o.lock.Release(context.WithoutCancel(ctx), cred.ID); err != nil {
				o.log().Warn("release refresh lock",
					zap.Int64("credential_id", cred.ID), zap.Error(err))
			}
		}()
	}

	if strings.TrimSpace(cred.RefreshToken) == "" {
		return o.fail(ctx, cred, domainoauth.ErrNoRefreshToken.Error())
	}

	clientID, clientSecret, err := o.resolveClientCredentials(cred)
	if err != nil {
		return o.fail(ctx, cred, err.Error())
	}

	token, err := o.client.RefreshToken(ctx, pcfg, cred.RefreshToken, clientID, clientSecret)
	if err != nil {
		return o.fail(ctx, cred, err.Error())
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return o.fail(ctx, cred, "provider returned empty access token")
	}

	expiresAt := domain.ExpiresAtFrom(time.Now(), token.ExpiresIn)
	if err := o.repo.UpdateTokens(ctx, cred.ID, domain.TokenUpdate{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	}); err != nil {
		return o.fail(ctx, cred, fmt.Sprintf("persist refreshed tokens: %v", err))
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}
	o.log().Info("credential refreshed",
		zap.Int64("credential_id", cred.ID),
		zap.String("team_id", cred.TeamID),
		zap.String("provider", cred.Provider),
		zap.Bool("rotated_refresh_token", token.RefreshToken != ""))
	return domain.RefreshResult{
		CredentialID: cred.ID,
		Success:      true,
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

// resolveClientCredentials picks the app credential pair for the refresh
// grant. TikTok apps are registered service-wide, so the shared app from the
// environment wins over whatever was stored with the credential.
func (o *orchestrator) resolveClientCredentials(cred domain.Credential) (string, string, error) {
	if cred.Provider == provider.TikTok {
		if app, ok := o.cfg.App(provider.TikTok); ok {
			return app.ClientID, app.ClientSecret, nil
		}
	}
	if cred.ClientID != "" && cred.ClientSecret != "" {
		return cred.ClientID, cred.ClientSecret, nil
	}
	if app, ok := o.cfg.App(cred.Provider); ok {
		return app.ClientID, app.ClientSecret, nil
	}
	return "", "", domainoauth.ErrMissingClientCredentials
}

// fail records the error on the credential row without deactivating it, so
// the dashboard can surface a reconnect prompt.
func (o *orchestrator) fail(ctx context.Context, cred domain.Credential, message string) domain.RefreshResult {
	if err := o.repo.MarkFailed(ctx, cred.ID, message); err != nil {
		o.log().Error("record refresh failure",
			zap.Int64("credential_id", cred.ID), zap.Error(err))
	}
	o.log().Warn("credential refresh failed",
		zap.Int64("credential_id", cred.ID),
		zap.String("team_id", cred.TeamID),
		zap.String("provider", cred.Provider),
		zap.String("reason", message))
	return domain.RefreshResult{CredentialID: cred.ID, Error: message}
}

func (o *orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop != nil || o.interval <= 0 {
		return
	}
	o.stop = make(chan struct{})
	go o.run(o.stop)
	o.log().Info("refresh scheduler started", zap.Duration("interval", o.interval))
}

func (o *orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop == nil {
		return
	}
	close(o.stop)
	o.stop = nil
	o.log().Info("refresh scheduler stopped")
}

func (o *orchestrator) run(stop <-chan struct{}) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
			summary, err := o.RefreshExpiredTokens(ctx, "")
			cancel()
			if err != nil {
				o.log().Error("scheduled refresh cycle", zap.Error(err))
				continue
			}
			if summary.Successful+summary.Failed+summary.Skipped > 0 {
				o.log().Info("scheduled refresh cycle completed",
					zap.Int("successful", summary.Successful),
					zap.Int("failed", summary.Failed),
					zap.Int("skipped", summary.Skipped))
			}
		}
	}
}

func (o *orchestrator) log() *zap.Logger {
	if o != nil && o.logger != nil {
		return o.logger
	}
	return zap.L()
}
