package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Reservation.MaxStalls != 3 {
		t.Errorf("expected max stalls 3, got %d", cfg.Reservation.MaxStalls)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory storage driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Storage.QRURLExpiry.Year() != 2500 {
		t.Errorf("expected QR URL expiry in 2500, got %v", cfg.Storage.QRURLExpiry)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RESERVATION_MAX_STALLS", "5")
	t.Setenv("STALL_STORE", "postgres")
	t.Setenv("ACCESS_TOKEN_TTL", "90m")
	t.Setenv("QR_URL_EXPIRY", "2030-01-02T03:04:05Z")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := Load()

	if cfg.Reservation.MaxStalls != 5 {
		t.Errorf("expected max stalls 5, got %d", cfg.Reservation.MaxStalls)
	}
	if cfg.Reservation.StoreDriver != "postgres" {
		t.Errorf("expected postgres store, got %s", cfg.Reservation.StoreDriver)
	}
	if cfg.Auth.AccessTokenTTL != 90*time.Minute {
		t.Errorf("expected 90m token TTL, got %v", cfg.Auth.AccessTokenTTL)
	}
	want := time.Date(2030, time.January, 2, 3, 4, 5, 0, time.UTC)
	if !cfg.Storage.QRURLExpiry.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, cfg.Storage.QRURLExpiry)
	}
	if cfg.Email.SMTPPort != 1025 {
		t.Errorf("invalid SMTP_PORT should fall back to 1025, got %d", cfg.Email.SMTPPort)
	}
}

func TestServerAddr(t *testing.T) {
	if got := (ServerConfig{}).Addr("8082"); got != ":8082" {
		t.Errorf("expected fallback :8082, got %s", got)
	}
	if got := (ServerConfig{Port: "9000"}).Addr("8082"); got != ":9000" {
		t.Errorf("expected :9000, got %s", got)
	}
}

func TestLoad_AuthSettings(t *testing.T) {
	cfg := Load()
	if cfg.Auth.AllowAdminSignup {
		t.Error("admin self-signup should be off by default")
	}
	if len(cfg.Auth.TrustedProxies) == 0 {
		t.Error("expected default trusted proxy networks")
	}

	t.Setenv("AUTH_ALLOW_ADMIN_SIGNUP", "true")
	t.Setenv("TRUSTED_PROXIES", " 10.1.0.0/16, ,192.168.5.0/24 ")
	cfg = Load()
	if !cfg.Auth.AllowAdminSignup {
		t.Error("expected admin signup enabled")
	}
	if len(cfg.Auth.TrustedProxies) != 2 || cfg.Auth.TrustedProxies[1] != "192.168.5.0/24" {
		t.Errorf("unexpected trusted proxies %v", cfg.Auth.TrustedProxies)
	}
}
