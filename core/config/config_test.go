package config

import "testing"

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
	}
}

func TestNormalizeDefaultsToLongpoll(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
	if cfg.Tokens.Dir != "data/tokens" {
		t.Fatalf("tokens dir = %q, want default", cfg.Tokens.Dir)
	}
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
}

func TestNormalizeRejectsMissingToken(t *testing.T) {
	if err := Normalize(&Config{}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestNormalizeWebhookRequiresEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook mode without url")
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook = WebhookConfig{URL: "https://example.com/hook", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestNormalizeRejectsUnknownExcludeUpdate(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown exclude value")
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := validConfig()
	cfg.Access.AdminIDs = []int64{42, 77}
	if !cfg.IsAdmin(77) {
		t.Fatal("77 should be admin")
	}
	if cfg.IsAdmin(1) {
		t.Fatal("1 should not be admin")
	}
}
