package main

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/internal/envx"
	"github.com/MrEthical07/authflow/notify"
)

const devJWTSecret = "authd-development-secret-do-not-use"

// settings is the process configuration read from the environment.
type settings struct {
	Production bool
	Addr       string
	Origin     string
	LogLevel   string

	JWTSecret string
	JWTKeyID  string
	// JWTRetired holds kid=secret pairs still accepted for verification.
	JWTRetired []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string

	Notifier string
	SMTP     notify.SMTPConfig
	Kafka    notify.KafkaConfig

	ResetTTL           time.Duration
	RevealUnknownEmail bool
	RevokeSessions     bool
}

func loadSettings() settings {
	defaults := authflow.DefaultConfig()
	return settings{
		Production: envx.GetString("APP_ENV", "development") == "production",
		Addr:       envx.GetString("HTTP_ADDR", ":5000"),
		Origin:     envx.GetString("APP_ORIGIN", defaults.App.Origin),
		LogLevel:   envx.GetString("LOG_LEVEL", "info"),

		JWTSecret:  envx.GetString("JWT_SECRET", ""),
		JWTKeyID:   envx.GetString("JWT_KEY_ID", ""),
		JWTRetired: envx.GetList("JWT_RETIRED_KEYS", nil),
		AccessTTL:  envx.GetDuration("ACCESS_TOKEN_TTL", defaults.JWT.AccessTTL),
		RefreshTTL: envx.GetDuration("REFRESH_TOKEN_TTL", defaults.JWT.RefreshTTL),

		RedisAddr:     envx.GetString("REDIS_ADDR", ""),
		RedisPassword: envx.GetString("REDIS_PASSWORD", ""),
		RedisDB:       envx.GetInt("REDIS_DB", 0),

		MongoURI:      envx.GetString("MONGO_URI", ""),
		MongoDatabase: envx.GetString("MONGO_DATABASE", "authflow"),

		Notifier: envx.GetString("NOTIFIER", "log"),
		SMTP: notify.SMTPConfig{
			Host:     envx.GetString("SMTP_HOST", ""),
			Port:     envx.GetInt("SMTP_PORT", 587),
			Username: envx.GetString("SMTP_USER", ""),
			Password: envx.GetString("SMTP_PASSWORD", ""),
			From:     envx.GetString("MAIL_FROM", ""),
			FromName: envx.GetString("MAIL_FROM_NAME", "Admin"),
		},
		Kafka: notify.KafkaConfig{
			Brokers:  envx.GetList("KAFKA_BROKERS", nil),
			Topic:    envx.GetString("KAFKA_TOPIC", "mail-requests"),
			Username: envx.GetString("KAFKA_USERNAME", ""),
			Password: envx.GetString("KAFKA_PASSWORD", ""),
		},

		ResetTTL:           envx.GetDuration("RESET_TOKEN_TTL", defaults.PasswordReset.TokenTTL),
		RevealUnknownEmail: envx.GetBool("RESET_REVEAL_UNKNOWN_EMAIL", defaults.PasswordReset.RevealUnknownEmail),
		RevokeSessions:     envx.GetBool("RESET_REVOKE_SESSIONS", defaults.PasswordReset.RevokeSessions),
	}
}

// validate rejects development fallbacks in production.
func (s settings) validate() error {
	if !s.Production {
		return nil
	}
	switch {
	case s.JWTSecret == "":
		return errors.New("JWT_SECRET is required in production")
	case s.RedisAddr == "":
		return errors.New("REDIS_ADDR is required in production")
	case s.MongoURI == "":
		return errors.New("MONGO_URI is required in production")
	case s.Notifier == "log":
		return errors.New("NOTIFIER=log is not allowed in production")
	}
	return nil
}

func (s settings) engineConfig() authflow.Config {
	cfg := authflow.DefaultConfig()
	cfg.App.Origin = s.Origin
	cfg.App.Production = s.Production

	secret := s.JWTSecret
	if secret == "" {
		secret = devJWTSecret
	}
	cfg.JWT.PrivateKey = []byte(secret)
	if s.JWTKeyID != "" {
		cfg.JWT.KeyID = s.JWTKeyID
		cfg.JWT.VerifyKeys = map[string][]byte{s.JWTKeyID: []byte(secret)}
		for _, pair := range s.JWTRetired {
			kid, key, ok := strings.Cut(pair, "=")
			if !ok || kid == "" || key == "" || kid == s.JWTKeyID {
				continue
			}
			cfg.JWT.VerifyKeys[kid] = []byte(key)
		}
	}
	cfg.JWT.AccessTTL = s.AccessTTL
	cfg.JWT.RefreshTTL = s.RefreshTTL

	cfg.PasswordReset.TokenTTL = s.ResetTTL
	cfg.PasswordReset.RevealUnknownEmail = s.RevealUnknownEmail
	cfg.PasswordReset.RevokeSessions = s.RevokeSessions

	cfg.Audit = authflow.AuditConfig{Enabled: true, BufferSize: 1024, DropIfFull: true}
	return cfg
}
