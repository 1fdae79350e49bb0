package main

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	s := loadSettings()

	if s.Production || s.Addr != ":5000" || s.Notifier != "log" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.ResetTTL != 10*time.Minute || !s.RevealUnknownEmail || s.RevokeSessions {
		t.Fatalf("unexpected reset defaults: %+v", s)
	}
	if err := s.validate(); err != nil {
		t.Fatalf("development settings must validate: %v", err)
	}

	cfg := s.engineConfig()
	if string(cfg.JWT.PrivateKey) != devJWTSecret {
		t.Fatal("expected development secret fallback")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("engine config invalid: %v", err)
	}
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ORIGIN", "https://app.example.com")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REFRESH_TOKEN_TTL", "24h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("NOTIFIER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RESET_REVEAL_UNKNOWN_EMAIL", "false")
	t.Setenv("RESET_REVOKE_SESSIONS", "true")

	s := loadSettings()
	if err := s.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(s.Kafka.Brokers) != 2 || s.Kafka.Topic != "mail-requests" {
		t.Fatalf("unexpected kafka settings: %+v", s.Kafka)
	}

	cfg := s.engineConfig()
	if !cfg.App.Production || cfg.JWT.AccessTTL != 5*time.Minute || cfg.JWT.RefreshTTL != 24*time.Hour {
		t.Fatalf("unexpected engine config: %+v", cfg.JWT)
	}
	if cfg.PasswordReset.RevealUnknownEmail || !cfg.PasswordReset.RevokeSessions {
		t.Fatalf("unexpected reset config: %+v", cfg.PasswordReset)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("engine config invalid: %v", err)
	}
}

func TestProductionRejectsDevelopmentFallbacks(t *testing.T) {
	base := settings{
		Production: true,
		JWTSecret:  "secret",
		RedisAddr:  "redis:6379",
		MongoURI:   "mongodb://mongo",
		Notifier:   "smtp",
	}
	if err := base.validate(); err != nil {
		t.Fatalf("complete settings rejected: %v", err)
	}

	for name, mutate := range map[string]func(*settings){
		"secret":   func(s *settings) { s.JWTSecret = "" },
		"redis":    func(s *settings) { s.RedisAddr = "" },
		"mongo":    func(s *settings) { s.MongoURI = "" },
		"notifier": func(s *settings) { s.Notifier = "log" },
	} {
		s := base
		mutate(&s)
		if err := s.validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestOpenNotifier(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, _, err := openNotifier(settings{Notifier: "pigeon"}, log); err == nil {
		t.Fatal("expected error for unknown notifier")
	}
	if _, _, err := openNotifier(settings{Notifier: "smtp"}, log); err == nil {
		t.Fatal("expected error for incomplete smtp settings")
	}
	n, closeFn, err := openNotifier(settings{Notifier: "log"}, log)
	if err != nil || n == nil {
		t.Fatalf("log notifier: %v", err)
	}
	closeFn()
}

func TestEngineConfigKeyRotation(t *testing.T) {
	s := settings{
		Origin:     "http://localhost:3000",
		JWTSecret:  "current-secret-current-secret",
		JWTKeyID:   "2026-10",
		JWTRetired: []string{"2026-09=retired-secret-retired", "broken", "2026-10=ignored"},
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ResetTTL:   10 * time.Minute,
	}

	cfg := s.engineConfig()
	if cfg.JWT.KeyID != "2026-10" || len(cfg.JWT.VerifyKeys) != 2 {
		t.Fatalf("unexpected verify keys: %v", cfg.JWT.VerifyKeys)
	}
	if string(cfg.JWT.VerifyKeys["2026-10"]) != s.JWTSecret {
		t.Fatal("current kid must verify with the signing secret")
	}
	if string(cfg.JWT.VerifyKeys["2026-09"]) != "retired-secret-retired" {
		t.Fatal("retired key missing")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("engine config invalid: %v", err)
	}
}
