package cfg

import (
	"os"
	"testing"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestParseDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "OFFER_EXPIRY", "DB_PATH", "SESSION_TTL")

	cfg, err := parse([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.OfferExpiry != 900 {
		t.Errorf("Expected offer expiry 900, got %d", cfg.OfferExpiry)
	}
	if cfg.DBPath != "./data/cards.db" {
		t.Errorf("Expected DB path './data/cards.db', got '%s'", cfg.DBPath)
	}
	if cfg.SessionTTLDuration().Hours() != 1 {
		t.Errorf("Expected session TTL 1h, got %v", cfg.SessionTTLDuration())
	}
}

func TestParseFlagsAndEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://travel.example.com")
	t.Setenv("DEBUG", "true")

	cfg, err := parse([]string{"--port", "9090", "--offer-expiry", "120", "--hosts-dir", "/etc/cards/hosts"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.OfferExpiry != 120 {
		t.Errorf("Expected offer expiry 120, got %d", cfg.OfferExpiry)
	}
	if cfg.HostsDir != "/etc/cards/hosts" {
		t.Errorf("Expected hosts dir '/etc/cards/hosts', got '%s'", cfg.HostsDir)
	}
	if cfg.BackendURL != "https://travel.example.com" {
		t.Errorf("Expected backend URL from env, got '%s'", cfg.BackendURL)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestParseRejectsNonPositive(t *testing.T) {
	if _, err := parse([]string{"--offer-expiry", "0"}); err == nil {
		t.Error("Expected error for zero offer expiry")
	}
	if _, err := parse([]string{"--worker-count", "-1"}); err == nil {
		t.Error("Expected error for negative worker count")
	}
}

func TestGetPanicsBeforeLoad(t *testing.T) {
	globalCfg = nil
	defer func() {
		if recover() == nil {
			t.Error("Expected Get to panic before Load")
		}
	}()
	Get()
}
