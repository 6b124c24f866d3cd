package provider

import (
	"fmt"
	"sort"
	"strings"

	domainoauth "github.com/seongpil0948/all-ad-sub002/internal/domain/oauth"
)

// Supported platform identifiers.
const (
	Google  = "google"
	Meta    = "meta"
	TikTok  = "tiktok"
	Amazon  = "amazon"
	Kakao   = "kakao"
	Naver   = "naver"
	Coupang = "coupang"
)

// Config is the compiled-in description of one advertising platform's OAuth
// surface, including its parameter-naming quirks.
type Config struct {
	Name        string
	DisplayName string
	AuthURL     string
	TokenURL    string
	IdentityURL string
	Scopes      []string

	// ClientIDParam is the query/body key for the client identifier. TikTok
	// deviates from the usual client_id.
	ClientIDParam string
	// ScopeDelimiter joins the scope list in the authorization URL.
	ScopeDelimiter string
	// OfflineAccess appends access_type=offline and prompt=consent to the
	// authorization URL for providers that gate refresh tokens behind it.
	OfflineAccess bool
	// IdentityTokenHeader overrides the Authorization bearer header when the
	// identity endpoint expects the token elsewhere.
	IdentityTokenHeader string
	// RequiresClientIDHeader marks identity endpoints that expect the
	// application client id as an extra request header.
	RequiresClientIDHeader string
}

// SupportsOAuth reports whether the platform has an authorization endpoint at
// all. Coupang is connected manually with API keys and has none.
func (c Config) SupportsOAuth() bool {
	return c.AuthURL != "" && c.TokenURL != ""
}

// SupportsRefresh reports whether the platform exposes a token endpoint
// usable for the refresh_token grant.
func (c Config) SupportsRefresh() bool {
	return c.TokenURL != ""
}

var registry = map[string]Config{
	Google: {
		Name:           Google,
		DisplayName:    "Google Ads",
		AuthURL:        "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:       "https://oauth2.googleapis.com/token",
		IdentityURL:    "https://www.googleapis.com/oauth2/v2/userinfo",
		Scopes:         []string{"https://www.googleapis.com/auth/adwords", "https://www.googleapis.com/auth/userinfo.email"},
		ClientIDParam:  "client_id",
		ScopeDelimiter: " ",
		OfflineAccess:  true,
	},
	Meta: {
		Name:           Meta,
		DisplayName:    "Meta Ads",
		AuthURL:        "https://www.facebook.com/v18.0/dialog/oauth",
		TokenURL:       "https://graph.facebook.com/v18.0/oauth/access_token",
		IdentityURL:    "https://graph.facebook.com/v18.0/me?fields=id,name,email",
		Scopes:         []string{"ads_read", "ads_management", "business_management"},
		ClientIDParam:  "client_id",
		ScopeDelimiter: " ",
		// Meta issues long-lived tokens instead of refresh tokens; there is
		// no offline consent concept to request.
		OfflineAccess: false,
	},
	TikTok: {
		Name:                   TikTok,
		DisplayName:            "TikTok Ads",
		AuthURL:                "https://business-api.tiktok.com/portal/auth",
		TokenURL:               "https://business-api.tiktok.com/open_api/v1.3/oauth2/access_token/",
		IdentityURL:            "https://business-api.tiktok.com/open_api/v1.3/oauth2/advertiser/get/",
		Scopes:                 []string{"user.info.basic", "ad.read", "report.read"},
		ClientIDParam:          "client_key",
		ScopeDelimiter:         ",",
		// The business auth portal issues refresh tokens unconditionally and
		// rejects Google-style consent flags.
		OfflineAccess:          false,
		IdentityTokenHeader:    "Access-Token",
		RequiresClientIDHeader: "",
	},
	Amazon: {
		Name:                   Amazon,
		DisplayName:            "Amazon Ads",
		AuthURL:                "https://www.amazon.com/ap/oa",
		TokenURL:               "https://api.amazon.com/auth/o2/token",
		IdentityURL:            "https://advertising-api.amazon.com/v2/profiles",
		Scopes:                 []string{"advertising::campaign_management", "profile"},
		ClientIDParam:          "client_id",
		ScopeDelimiter:         " ",
		OfflineAccess:          true,
		RequiresClientIDHeader: "Amazon-Advertising-API-ClientId",
	},
	Kakao: {
		Name:           Kakao,
		DisplayName:    "Kakao Moment",
		AuthURL:        "https://kauth.kakao.com/oauth/authorize",
		TokenURL:       "https://kauth.kakao.com/oauth/token",
		IdentityURL:    "https://kapi.kakao.com/v2/user/me",
		Scopes:         []string{"account_email"},
		ClientIDParam:  "client_id",
		ScopeDelimiter: " ",
		OfflineAccess:  true,
	},
	Naver: {
		Name:           Naver,
		DisplayName:    "Naver Search Ads",
		AuthURL:        "https://nid.naver.com/oauth2.0/authorize",
		TokenURL:       "https://nid.naver.com/oauth2.0/token",
		IdentityURL:    "https://openapi.naver.com/v1/nid/me",
		Scopes:         nil,
		ClientIDParam:  "client_id",
		ScopeDelimiter: " ",
		OfflineAccess:  true,
	},
	// Coupang has no OAuth flow; accounts are connected with vendor API keys
	// through a separate manual surface.
	Coupang: {
		Name:        Coupang,
		DisplayName: "Coupang Ads",
	},
}

// Lookup returns the platform config for the given identifier.
func Lookup(name string) (Config, error) {
	cfg, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("provider %q: %w", name, domainoauth.ErrUnsupportedProvider)
	}
	return cfg, nil
}

// Names returns all registered platform identifiers, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
