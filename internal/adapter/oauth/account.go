package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
	"github.com/seongpil0948/all-ad-sub002/internal/provider"
)

// accountNormalizer maps one platform's identity response onto the uniform
// AccountInfo shape. Keeping them in a table keeps per-platform parsing
// isolated and independently testable.
type accountNormalizer func(raw []byte) (*domainoauth.AccountInfo, error)

var accountNormalizers = map[string]accountNormalizer{
	provider.Google: normalizeGoogleAccount,
	provider.Meta:   normalizeMetaAccount,
	provider.TikTok: normalizeTikTokAccount,
	provider.Amazon: normalizeAmazonAccount,
	provider.Kakao:  normalizeKakaoAccount,
	provider.Naver:  normalizeNaverAccount,
}

// FetchAccountInfo calls the platform's identity endpoint and normalizes the
// result. clientID is forwarded for platforms whose identity API demands the
// application id as a header.
func (c *HTTPProviderClient) FetchAccountInfo(ctx context.Context, cfg provider.Config, accessToken, clientID string) (*domainoauth.AccountInfo, error) {
	normalize, ok := accountNormalizers[cfg.Name]
	if !ok || strings.TrimSpace(cfg.IdentityURL) == "" {
		return nil, fmt.Errorf("provider %s: %w", cfg.Name, domainoauth.ErrAccountInfoUnsupported)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.IdentityURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build account info request: %w", err)
	}
	if cfg.IdentityTokenHeader != "" {
		req.Header.Set(cfg.IdentityTokenHeader, accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if cfg.RequiresClientIDHeader != "" {
		req.Header.Set(cfg.RequiresClientIDHeader, clientID)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s account info request: %w", cfg.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read account info: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &domainoauth.AccountInfoError{Provider: cfg.Name, Status: resp.StatusCode}
	}

	info, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.AccountID) == "" {
		return nil, fmt.Errorf("provider %s: %w", cfg.Name, domainoauth.ErrNoAdvertiserAccount)
	}
	return info, nil
}

func normalizeGoogleAccount(raw []byte) (*domainoauth.AccountInfo, error) {
	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode google account: %w", err)
	}
	name := payload.Name
	if name == "" {
		name = payload.Email
	}
	return &domainoauth.AccountInfo{AccountID: payload.ID, AccountName: name, Email: payload.Email}, nil
}

func normalizeMetaAccount(raw []byte) (*domainoauth.AccountInfo, error) {
	var payload struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode meta account: %w", err)
	}
	return &domainoauth.AccountInfo{AccountID: payload.ID, AccountName: payload.Name, Email: payload.Email}, nil
}

func normalizeTikTokAccount(raw []byte) (*domainoauth.AccountInfo, error) {
	var payload struct {
		Data struct {
			List []struct {
				AdvertiserID   string `json:"advertiser_id"`
				AdvertiserName string `json:"advertiser_name"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode tiktok advertisers: %w", err)
	}
	if len(payload.Data.List) == 0 {
		return nil, fmt.Errorf("provider tiktok: %w", domainoauth.ErrNoAdvertiserAccount)
	}
	first := payload.Data.List[0]
	return &domainoauth.AccountInfo{AccountID: first.AdvertiserID, AccountName: first.AdvertiserName}, nil
}

func normalizeAmazonAccount(raw []byte) (*domainoauth.AccountInfo, error) {
	var profiles []struct {
		ProfileID   json.Number `json:"profileId"`
		AccountInfo struct {
			Name string `json:"name"`
		} `json:"accountInfo"`
	}
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("decode amazon profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("provider amazon: %w", domainoauth.ErrNoAdvertiserAccount)
	}
	first := profiles[0]
	return &domainoauth.AccountInfo{AccountID: first.ProfileID.String(), AccountName: first.AccountInfo.Name}, nil
}

func normalizeKakaoAccount(raw []byte) (*domainoauth.AccountInfo, error) {
	var payload struct {
		ID         json.Number `json:"id"`
		Properties struct {
			Nickname string `json:"nickname"`
		} `json:"properties"`
		KakaoAccount struct {
			Email string `json:"email"`
		} `json:"kakao_account"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode kakao account: %w", err)
	}
	return &domainoauth.AccountInfo{
		AccountID:   payload.ID.String(),
		AccountName: payload.Properties.Nickname,
		Email:       payload.KakaoAccount.Email,
	}, nil
}

func normalizeNaverAccount(raw []byte) (*domainoauth.AccountInfo, error) {
	var payload struct {
		Response struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"response"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode naver account: %w", err)
	}
	return &domainoauth.AccountInfo{
		AccountID:   payload.Response.ID,
		AccountName: payload.Response.Name,
		Email:       payload.Response.Email,
	}, nil
}
