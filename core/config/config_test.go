package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeDefaultsToLongpoll(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: "Polling"}}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("RunMode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"missing token":  {},
		"zero admin":     {Telegram: TelegramConfig{Token: "t", AdminIDs: []int64{1, 0}}},
		"bad mode":       {Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}},
		"webhook no url": {Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}},
		"bad exclusion":  {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}},
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadOverlaysEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "telegram:\n  token: from-file\n  admin_ids: [1, 2]\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOT_TOKEN", "from-env")

	var cfg Config
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Errorf("Token = %q, want %q", cfg.Telegram.Token, "from-env")
	}
	if len(cfg.Telegram.AdminIDs) != 2 || !cfg.Telegram.IsAdmin(2) || cfg.Telegram.IsAdmin(3) {
		t.Errorf("AdminIDs = %v, want [1 2]", cfg.Telegram.AdminIDs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadAdminIDsFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "x")
	t.Setenv("ADMIN_IDS", "10,20,30")
	var cfg Config
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Telegram.AdminIDs) != 3 || cfg.Telegram.AdminIDs[2] != 30 {
		t.Errorf("AdminIDs = %v, want [10 20 30]", cfg.Telegram.AdminIDs)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("telegram: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "YAML") {
		t.Fatalf("Load error = %v, want YAML parse error", err)
	}
}
