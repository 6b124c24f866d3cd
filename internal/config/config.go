package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppCredential is one registered developer-application credential for an ad
// platform, shared by every team connecting through this deployment.
type AppCredential struct {
	ClientID     string
	ClientSecret string
}

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	StateSecret          string
	StateValidity        time.Duration
	RefreshInterval      time.Duration
	RefreshLockTTL       time.Duration
	ProviderHTTPTimeout  time.Duration
	ServiceName          string
	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool

	// OAuthApps maps provider name to the deployment's registered app.
	OAuthApps map[string]AppCredential
}

// App returns the registered application credential for a provider.
func (c Config) App(provider string) (AppCredential, bool) {
	app, ok := c.OAuthApps[strings.ToLower(strings.TrimSpace(provider))]
	return app, ok && app.ClientID != ""
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	stateSecret := strings.TrimSpace(os.Getenv("OAUTH_STATE_SECRET"))
	if stateSecret == "" {
		return Config{}, fmt.Errorf("OAUTH_STATE_SECRET is required")
	}
	if len(stateSecret) < 32 {
		return Config{}, fmt.Errorf("OAUTH_STATE_SECRET must be at least 32 bytes")
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		StateSecret:          stateSecret,
		StateValidity:        getDuration("OAUTH_STATE_VALIDITY", 10*time.Minute),
		RefreshInterval:      getDuration("TOKEN_REFRESH_INTERVAL", time.Hour),
		RefreshLockTTL:       getDuration("TOKEN_REFRESH_LOCK_TTL", 30*time.Second),
		ProviderHTTPTimeout:  getDuration("PROVIDER_HTTP_TIMEOUT", 15*time.Second),
		ServiceName:          getEnv("SERVICE_NAME", "allad-credentials"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Team-ID"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
		OAuthApps:            loadOAuthApps(),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// loadOAuthApps picks up the per-platform application credentials. TikTok's
// developer portal calls them app id/secret; the env vars follow suit.
func loadOAuthApps() map[string]AppCredential {
	pairs := map[string][2]string{
		"google": {"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET"},
		"meta":   {"META_CLIENT_ID", "META_CLIENT_SECRET"},
		"tiktok": {"TIKTOK_APP_ID", "TIKTOK_APP_SECRET"},
		"amazon": {"AMAZON_CLIENT_ID", "AMAZON_CLIENT_SECRET"},
		"kakao":  {"KAKAO_CLIENT_ID", "KAKAO_CLIENT_SECRET"},
		"naver":  {"NAVER_CLIENT_ID", "NAVER_CLIENT_SECRET"},
	}

	apps := make(map[string]AppCredential, len(pairs))
	for name, envs := range pairs {
		id := strings.TrimSpace(os.Getenv(envs[0]))
		secret := strings.TrimSpace(os.Getenv(envs[1]))
		if id == "" {
			continue
		}
		apps[name] = AppCredential{ClientID: id, ClientSecret: secret}
	}
	return apps
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
