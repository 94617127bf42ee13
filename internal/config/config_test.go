package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "RETENTION_PERIOD_DAYS")
	unsetEnvWithCleanup(t, "XACTUS_TIMEOUT_SECONDS")
	unsetEnvWithCleanup(t, "PULL_RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.RetentionPeriodDays != 730 {
		t.Fatalf("expected default retention of 730 days, got %d", cfg.RetentionPeriodDays)
	}
	if cfg.XactusTimeoutSeconds != 30 {
		t.Fatalf("expected default provider timeout of 30s, got %d", cfg.XactusTimeoutSeconds)
	}
	if cfg.PullRateLimitPerMinute != 0 {
		t.Fatalf("expected throttling disabled by default, got %d", cfg.PullRateLimitPerMinute)
	}
	if cfg.RedisRateLimitPrefix != "credit:rate_limit" {
		t.Fatalf("expected default rate limit prefix, got %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadConfig_EncryptionKeyHasNoDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CREDIT_ENCRYPTION_KEY")
	unsetEnvWithCleanup(t, "CREDIT_SERVICE_ENCRYPTION_KEY")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CreditEncryptionKey != "" {
		t.Fatalf("encryption key must never be defaulted or generated, got %q", cfg.CreditEncryptionKey)
	}
}

func TestLoadConfig_UsesCreditServiceEncryptionKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CREDIT_ENCRYPTION_KEY")
	setEnvWithCleanup(t, "CREDIT_SERVICE_ENCRYPTION_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CreditEncryptionKey != "alias-only-key" {
		t.Fatalf("expected CreditEncryptionKey from alias env var, got %q", cfg.CreditEncryptionKey)
	}
}

func TestLoadConfig_EncryptionKeyTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CREDIT_ENCRYPTION_KEY", "primary-key")
	setEnvWithCleanup(t, "CREDIT_SERVICE_ENCRYPTION_KEY", "alias-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CreditEncryptionKey != "primary-key" {
		t.Fatalf("expected CreditEncryptionKey to prioritize CREDIT_ENCRYPTION_KEY, got %q", cfg.CreditEncryptionKey)
	}
}

func TestLoadConfig_PortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_NonPositiveRetentionFallsBackToDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "RETENTION_PERIOD_DAYS", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RetentionPeriodDays != 730 {
		t.Fatalf("expected non-positive retention to fall back to 730, got %d", cfg.RetentionPeriodDays)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
