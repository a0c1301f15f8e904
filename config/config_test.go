package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TX_MAX_RETRIES", "")
	t.Setenv("REFERRAL_INTERVAL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, _ := Load()
	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, 5, cfg.TxMaxRetries)
	assert.Equal(t, 30*time.Second, cfg.ReferralInterval)
	assert.Equal(t, "http://localhost:3000", cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TX_MAX_RETRIES", "9")
	t.Setenv("AUDIT_INTERVAL", "1m")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , https://b.example ,")

	cfg, _ := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 9, cfg.TxMaxRetries)
	assert.Equal(t, time.Minute, cfg.AuditInterval)
	assert.Equal(t, "https://a.example,https://b.example", cfg.AllowedOrigins)
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("TX_MAX_RETRIES", "zero")
	t.Setenv("PROFILE_SYNC_INTERVAL", "-5s")

	cfg, _ := Load()
	assert.Equal(t, 5, cfg.TxMaxRetries)
	assert.Equal(t, time.Minute, cfg.ProfileSyncInterval)
}

func TestR2Enabled(t *testing.T) {
	cfg := &Config{R2AccountID: "acc", R2AccessKeyID: "id", R2AccessSecret: "secret"}
	assert.False(t, cfg.R2Enabled())
	cfg.R2Bucket = "assets"
	assert.True(t, cfg.R2Enabled())
}
