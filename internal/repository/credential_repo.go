package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seongpil0948/all-ad-sub002/internal/domain"
	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
)

// PostgresCredentialRepo implements CredentialRepository.
type PostgresCredentialRepo struct {
	db *pgxpool.Pool
}

var _ CredentialRepository = (*PostgresCredentialRepo)(nil)

func NewPostgresCredentialRepo(pool *pgxpool.Pool) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: pool}
}

const credentialColumns = `id, team_id, provider, access_token, refresh_token, expires_at, scope,
	account_id, account_name, email, client_id, client_secret,
	is_active, last_sync_at, error_message, created_at, updated_at`

func (r *PostgresCredentialRepo) ListActive(ctx context.Context, teamID, provider string) ([]domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM platform_credentials WHERE team_id = $1 AND is_active`
	args := []any{teamID}
	if strings.TrimSpace(provider) != "" {
		query += ` AND provider = $2`
		args = append(args, provider)
	}
	query += ` ORDER BY provider, account_id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()
	return scanCredentials(rows)
}

func (r *PostgresCredentialRepo) GetByID(ctx context.Context, credentialID int64) (domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM platform_credentials WHERE id = $1`
	cred, err := scanCredential(r.db.QueryRow(ctx, query, credentialID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, domainoauth.ErrCredentialNotFound
		}
		return domain.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}

func (r *PostgresCredentialRepo) GetOne(ctx context.Context, teamID, provider, accountID string) (domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM platform_credentials
		WHERE team_id = $1 AND provider = $2 AND account_id = $3 AND is_active
		LIMIT 1`
	cred, err := scanCredential(r.db.QueryRow(ctx, query, teamID, provider, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Credential{}, domainoauth.ErrCredentialNotFound
		}
		return domain.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}

func (r *PostgresCredentialRepo) ListNeedingRefresh(ctx context.Context, teamID, provider string) ([]domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM platform_credentials
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= now() + $1::interval`
	args := []any{fmt.Sprintf("%d seconds", int(domain.RefreshWindow.Seconds()))}
	if strings.TrimSpace(teamID) != "" {
		args = append(args, teamID)
		query += fmt.Sprintf(` AND team_id = $%d`, len(args))
	}
	if strings.TrimSpace(provider) != "" {
		args = append(args, provider)
		query += fmt.Sprintf(` AND provider = $%d`, len(args))
	}
	query += ` ORDER BY expires_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials needing refresh: %w", err)
	}
	defer rows.Close()
	return scanCredentials(rows)
}

func (r *PostgresCredentialRepo) UpsertNew(ctx context.Context, id int64, teamID, provider string, data domain.TokenData) (domain.Credential, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("begin supersede: %w", err)
	}
	defer tx.Rollback(ctx)

	// Deactivate-then-insert keeps history while guaranteeing a single active
	// row per (team, provider, account) tuple.
	if _, err := tx.Exec(ctx, `
		UPDATE platform_credentials
		SET is_active = false, updated_at = now()
		WHERE team_id = $1 AND provider = $2 AND account_id = $3 AND is_active`,
		teamID, provider, data.AccountID,
	); err != nil {
		return domain.Credential{}, fmt.Errorf("deactivate prior credential: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO platform_credentials (
			id, team_id, provider, access_token, refresh_token, expires_at, scope,
			account_id, account_name, email, client_id, client_secret, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true)
		RETURNING `+credentialColumns,
		id, teamID, provider,
		data.AccessToken, nullable(data.RefreshToken), data.ExpiresAt, nullable(data.Scope),
		data.AccountID, nullable(data.AccountName), nullable(data.Email),
		nullable(data.ClientID), nullable(data.ClientSecret),
	)
	cred, err := scanCredential(row)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("insert credential: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Credential{}, fmt.Errorf("commit supersede: %w", err)
	}
	return cred, nil
}

func (r *PostgresCredentialRepo) UpdateTokens(ctx context.Context, credentialID int64, update domain.TokenUpdate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE platform_credentials
		SET access_token = $2,
		    refresh_token = COALESCE($3, refresh_token),
		    expires_at = $4,
		    error_message = NULL,
		    updated_at = now()
		WHERE id = $1`,
		credentialID, update.AccessToken, nullable(update.RefreshToken), update.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainoauth.ErrCredentialNotFound
	}
	return nil
}

func (r *PostgresCredentialRepo) MarkFailed(ctx context.Context, credentialID int64, message string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE platform_credentials
		SET error_message = $2, updated_at = now()
		WHERE id = $1`,
		credentialID, message,
	)
	if err != nil {
		return fmt.Errorf("mark credential failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainoauth.ErrCredentialNotFound
	}
	return nil
}

func (r *PostgresCredentialRepo) TouchLastSync(ctx context.Context, credentialID int64) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE platform_credentials
		SET last_sync_at = now(), updated_at = now()
		WHERE id = $1`,
		credentialID,
	); err != nil {
		return fmt.Errorf("touch last sync: %w", err)
	}
	return nil
}

func (r *PostgresCredentialRepo) Deactivate(ctx context.Context, teamID string, credentialID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE platform_credentials
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND team_id = $2 AND is_active`,
		credentialID, teamID,
	)
	if err != nil {
		return fmt.Errorf("deactivate credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainoauth.ErrCredentialNotFound
	}
	return nil
}

func scanCredentials(rows pgx.Rows) ([]domain.Credential, error) {
	var creds []domain.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return creds, nil
}

func scanCredential(row pgx.Row) (domain.Credential, error) {
	var (
		cred         domain.Credential
		refreshToken *string
		scope        *string
		accountName  *string
		email        *string
		clientID     *string
		clientSecret *string
		errorMessage *string
	)
	if err := row.Scan(
		&cred.ID, &cred.TeamID, &cred.Provider,
		&cred.AccessToken, &refreshToken, &cred.ExpiresAt, &scope,
		&cred.AccountID, &accountName, &email, &clientID, &clientSecret,
		&cred.IsActive, &cred.LastSyncAt, &errorMessage,
		&cred.CreatedAt, &cred.UpdatedAt,
	); err != nil {
		return domain.Credential{}, err
	}
	cred.RefreshToken = deref(refreshToken)
	cred.Scope = deref(scope)
	cred.AccountName = deref(accountName)
	cred.Email = deref(email)
	cred.ClientID = deref(clientID)
	cred.ClientSecret = deref(clientSecret)
	cred.ErrorMessage = deref(errorMessage)
	return cred, nil
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
