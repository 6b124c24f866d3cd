package repository

import (
	"context"
	"time"

	"github.com/seongpil0948/all-ad-sub002/internal/domain"
)

// CredentialRepository persists ad-platform credentials scoped by team and
// provider. The backing store enforces row-level access control; this layer
// only issues point lookups, point updates, and the supersede transaction.
type CredentialRepository interface {
	ListActive(ctx context.Context, teamID, provider string) ([]domain.Credential, error)
	GetByID(ctx context.Context, credentialID int64) (domain.Credential, error)
	GetOne(ctx context.Context, teamID, provider, accountID string) (domain.Credential, error)
	// ListNeedingRefresh returns active credentials whose expiry falls within
	// domain.RefreshWindow. Empty teamID or provider means no filter.
	ListNeedingRefresh(ctx context.Context, teamID, provider string) ([]domain.Credential, error)
	// UpsertNew deactivates any active row for the same (team, provider,
	// account) tuple and inserts the replacement in one transaction.
	UpsertNew(ctx context.Context, id int64, teamID, provider string, data domain.TokenData) (domain.Credential, error)
	// UpdateTokens persists refreshed tokens and clears any prior error marker.
	UpdateTokens(ctx context.Context, credentialID int64, update domain.TokenUpdate) error
	// MarkFailed records a refresh error without deactivating the credential,
	// so the dashboard can prompt reconnection instead of dropping it.
	MarkFailed(ctx context.Context, credentialID int64, message string) error
	TouchLastSync(ctx context.Context, credentialID int64) error
	Deactivate(ctx context.Context, teamID string, credentialID int64) error
}

// RefreshLock provides per-credential mutual exclusion so overlapping refresh
// cycles cannot race to persist a stale token pair.
type RefreshLock interface {
	// Acquire returns false when another refresh already holds the lock.
	Acquire(ctx context.Context, credentialID int64, ttl time.Duration) (bool, error)
	Release(ctx context.Context, credentialID int64) error
}
