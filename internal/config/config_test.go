package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  allowed_origins: ["https://shop.example"]
pricing:
  unit_scale: 1000
  min_quantity: 100
deposits:
  predefined_amounts: [500, 1500]
  pending_ttl: 24h
bot:
  operator_chat_ids: [42, 43]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Pricing.UnitScale != 1000 || cfg.Pricing.MinQuantity != 100 {
		t.Fatalf("unexpected pricing override: %+v", cfg.Pricing)
	}
	if cfg.Pricing.QuantityStep != 1 {
		t.Fatalf("quantity_step default should stay 1, got %d", cfg.Pricing.QuantityStep)
	}
	if len(cfg.Deposits.PredefinedAmounts) != 2 || cfg.Deposits.PredefinedAmounts[1] != 1500 {
		t.Fatalf("unexpected predefined amounts: %v", cfg.Deposits.PredefinedAmounts)
	}
	if cfg.Deposits.PendingTTL != 24*time.Hour {
		t.Fatalf("unexpected pending ttl: %s", cfg.Deposits.PendingTTL)
	}
	if cfg.Deposits.Bank != "Palmpay" {
		t.Fatalf("bank default should stay Palmpay, got %q", cfg.Deposits.Bank)
	}
	if len(cfg.Bot.OperatorChatIDs) != 2 || cfg.Bot.OperatorChatIDs[0] != 42 {
		t.Fatalf("unexpected operator chats: %v", cfg.Bot.OperatorChatIDs)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://shop.example" {
		t.Fatalf("unexpected allowed origins: %v", cfg.HTTP.AllowedOrigins)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Pricing.UnitScale != 1 || cfg.Pricing.MinQuantity != 1 || cfg.Pricing.QuantityStep != 1 {
		t.Fatalf("unexpected default pricing: %+v", cfg.Pricing)
	}
	if got := cfg.Deposits.PredefinedAmounts; len(got) != 5 || got[0] != 1000 || got[4] != 20000 {
		t.Fatalf("unexpected default predefined amounts: %v", got)
	}
	if cfg.Auth.GuardTimeout != 3*time.Second {
		t.Fatalf("unexpected guard timeout: %s", cfg.Auth.GuardTimeout)
	}
	if !cfg.Postgres.Migrate {
		t.Fatalf("migrations should run by default")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PRICING_UNIT_SCALE", "1000")
	t.Setenv("BOT_OPERATOR_CHAT_IDS", "7, 8")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("AUTH_GUARD_TIMEOUT", "500ms")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Pricing.UnitScale != 1000 {
		t.Fatalf("unexpected unit scale: %d", cfg.Pricing.UnitScale)
	}
	if len(cfg.Bot.OperatorChatIDs) != 2 || cfg.Bot.OperatorChatIDs[1] != 8 {
		t.Fatalf("unexpected operator chats: %v", cfg.Bot.OperatorChatIDs)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Auth.GuardTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected guard timeout: %s", cfg.Auth.GuardTimeout)
	}
}

func TestLoadRejectsBadOperatorChatIDs(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("BOT_OPERATOR_CHAT_IDS", "abc")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadRejectsDefaultJWTSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when jwt secret is left at default in production")
	}
}

func TestLoadRejectsNonPositivePricing(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PRICING_UNIT_SCALE", "0")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for zero unit scale")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"HTTP_ALLOWED_ORIGINS",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"POSTGRES_MIGRATE",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"AUTH_COOKIE_SECURE",
		"AUTH_GUARD_TIMEOUT",
		"PRICING_UNIT_SCALE",
		"PRICING_MIN_QUANTITY",
		"PRICING_QUANTITY_STEP",
		"DEPOSIT_PENDING_TTL",
		"DEPOSIT_CLEANUP_INTERVAL",
		"BOT_TOKEN",
		"BOT_OPERATOR_CHAT_IDS",
		"RESEND_API_KEY",
		"MAIL_FROM",
	} {
		t.Setenv(key, "")
	}
}
