// config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Port           string
	DatabaseURL    string
	GatewayToken   string
	AllowedOrigins string
	LogLevel       string

	RedisURL string

	IdentityURL     string
	IdentityToken   string
	IdentitySyncURL string

	R2AccountID    string
	R2AccessKeyID  string
	R2AccessSecret string
	R2Bucket       string
	CDNBaseURL     string

	TxMaxRetries        int
	ReferralInterval    time.Duration
	AuditInterval       time.Duration
	ProfileSyncInterval time.Duration
}

// Load reads .env (if present) and the process environment.
// It reports whether a .env file was found so main can log it.
func Load() (*Config, bool) {
	envFileFound := godotenv.Load() == nil

	cfg := &Config{
		Port:           getEnv("PORT", "5200"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		GatewayToken:   os.Getenv("GATEWAY_TOKEN"),
		AllowedOrigins: normalizeOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		RedisURL: os.Getenv("REDIS_URL"),

		IdentityURL:     os.Getenv("IDENTITY_URL"),
		IdentityToken:   os.Getenv("IDENTITY_TOKEN"),
		IdentitySyncURL: os.Getenv("IDENTITY_SYNC_URL"),

		R2AccountID:    os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:  os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessSecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:       os.Getenv("R2_BUCKET_NAME"),
		CDNBaseURL:     os.Getenv("CDN_BASE_URL"),

		TxMaxRetries:        getInt("TX_MAX_RETRIES", 5),
		ReferralInterval:    getDuration("REFERRAL_INTERVAL", 30*time.Second),
		AuditInterval:       getDuration("AUDIT_INTERVAL", 10*time.Minute),
		ProfileSyncInterval: getDuration("PROFILE_SYNC_INTERVAL", time.Minute),
	}
	return cfg, envFileFound
}

// R2Enabled reports whether image uploads can be sent to R2.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessSecret != "" && c.R2Bucket != ""
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// normalizeOrigins trims spaces around each comma-separated origin for fiber's CORS config.
func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
